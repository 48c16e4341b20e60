package refdata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/identity"
)

const tz = "210"

func dayAndNight() []SessionInterval {
	return []SessionInterval{
		{Start: Clock(9, 0, 0), End: Clock(10, 15, 0)},
		{Start: Clock(13, 30, 0), End: Clock(15, 0, 0)},
	}
}

func insertRevision(t *testing.T, c *CalendarTable, p identity.Product, date time.Time, sessions []SessionInterval) {
	t.Helper()
	require.NoError(t, c.Insert(tz, p, date, TradingSession{
		Date:             date,
		Product:          p,
		Sessions:         sessions,
		ExchangeTimezone: tz,
	}))
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("091530")
	require.NoError(t, err)
	assert.Equal(t, Clock(9, 15, 30), tod)
	assert.Equal(t, "09:15:30", tod.String())

	_, err = ParseTimeOfDay("25xx00")
	assert.Error(t, err)
}

func TestTimeOfDay_JSON(t *testing.T) {
	data, err := json.Marshal(Clock(21, 0, 0))
	require.NoError(t, err)
	assert.JSONEq(t, `"21:00:00"`, string(data))

	var tod TimeOfDay
	require.NoError(t, json.Unmarshal([]byte(`"02:30:00"`), &tod))
	assert.Equal(t, Clock(2, 30, 0), tod)
}

func TestCalendarTable_GetEmpty(t *testing.T) {
	reg := identity.NewRegistry()
	c := NewCalendarTable(zap.NewNop())

	_, ok := c.Get(tz, reg.InternProduct("IF", "CFFEX"), Date(2020, 1, 1))
	assert.False(t, ok)
}

func TestCalendarTable_AsOfResolution(t *testing.T) {
	reg := identity.NewRegistry()
	c := NewCalendarTable(zap.NewNop())
	p := reg.InternProduct("rb", "SHFE")

	insertRevision(t, c, p, Date(2020, 6, 1), dayAndNight()[:1])
	insertRevision(t, c, p, Date(2020, 1, 1), dayAndNight())

	tests := []struct {
		name     string
		asOf     time.Time
		expected time.Time
	}{
		{"between revisions", Date(2020, 3, 1), Date(2020, 1, 1)},
		{"after latest", Date(2020, 12, 1), Date(2020, 6, 1)},
		{"on effective date", Date(2020, 6, 1), Date(2020, 6, 1)},
		{"time of day ignored", time.Date(2020, 6, 1, 23, 59, 0, 0, time.UTC), Date(2020, 6, 1)},
		// Questionable but deliberate: a query before every revision falls
		// back to the earliest one instead of reporting no calendar.
		{"before all revisions falls back to earliest", Date(2019, 1, 1), Date(2020, 1, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := c.Get(tz, p, tt.asOf)
			require.True(t, ok)
			assert.True(t, tt.expected.Equal(s.Date), "got %s", s.Date)
		})
	}
}

func TestCalendarTable_SingleRevisionAlwaysReturned(t *testing.T) {
	reg := identity.NewRegistry()
	c := NewCalendarTable(zap.NewNop())
	p := reg.InternProduct("IF", "CFFEX")

	insertRevision(t, c, p, Date(2021, 1, 1), dayAndNight())

	s, ok := c.Get(tz, p, Date(2019, 1, 1))
	require.True(t, ok)
	assert.True(t, Date(2021, 1, 1).Equal(s.Date))
}

func TestCalendarTable_KeyedByTimezone(t *testing.T) {
	reg := identity.NewRegistry()
	c := NewCalendarTable(zap.NewNop())
	p := reg.InternProduct("IF", "CFFEX")

	insertRevision(t, c, p, Date(2021, 1, 1), dayAndNight())

	_, ok := c.Get("UTC", p, Date(2021, 1, 1))
	assert.False(t, ok)
	assert.Empty(t, c.ByTimezone("UTC"))
}

func TestCalendarTable_GetIgnoresForeignHandles(t *testing.T) {
	regA := identity.NewRegistry()
	regB := identity.NewRegistry()
	c := NewCalendarTable(zap.NewNop())

	rb := regA.InternProduct("rb", "SHFE")
	insertRevision(t, c, rb, Date(2020, 1, 1), dayAndNight())

	au := regB.InternProduct("au", "SHFE")
	require.Equal(t, rb.ID, au.ID)
	_, ok := c.Get(tz, au, Date(2021, 1, 1))
	assert.False(t, ok)
	assert.Empty(t, c.ByTimezoneAndProduct(tz, au))
}

func TestCalendarTable_GetByValueProduct(t *testing.T) {
	reg := identity.NewRegistry()
	c := NewCalendarTable(zap.NewNop())
	insertRevision(t, c, reg.InternProduct("IF", "CFFEX"), Date(2020, 1, 1), dayAndNight())

	decoded := identity.Product{Symbol: "IF", Exchange: "CFFEX"}
	s, ok := c.Get(tz, decoded, Date(2021, 1, 1))
	require.True(t, ok)
	assert.Equal(t, "IF.CFFEX", s.Product.Name())
	assert.Len(t, c.ByTimezoneAndProduct(tz, decoded), 1)
}

func TestCalendarTable_SameDateReplaces(t *testing.T) {
	reg := identity.NewRegistry()
	c := NewCalendarTable(zap.NewNop())
	p := reg.InternProduct("IF", "CFFEX")

	insertRevision(t, c, p, Date(2021, 1, 1), dayAndNight())
	insertRevision(t, c, p, Date(2021, 1, 1), dayAndNight()[:1])

	assert.Equal(t, 1, c.Len())
	s, ok := c.Get(tz, p, Date(2021, 5, 1))
	require.True(t, ok)
	assert.Len(t, s.Sessions, 1)
}

func TestCalendarTable_Listings(t *testing.T) {
	reg := identity.NewRegistry()
	c := NewCalendarTable(zap.NewNop())
	rb := reg.InternProduct("rb", "SHFE")
	au := reg.InternProduct("au", "SHFE")

	insertRevision(t, c, rb, Date(2020, 6, 1), dayAndNight())
	insertRevision(t, c, rb, Date(2020, 1, 1), dayAndNight())
	insertRevision(t, c, au, Date(2020, 3, 1), dayAndNight())
	require.NoError(t, c.Insert("UTC", au, Date(2020, 3, 1), TradingSession{Product: au}))

	all := c.ByTimezone(tz)
	require.Len(t, all, 3)
	assert.Equal(t, "au.SHFE", all[0].Product.Name())
	assert.Equal(t, "rb.SHFE", all[1].Product.Name())
	assert.True(t, Date(2020, 1, 1).Equal(all[1].Date))
	assert.True(t, Date(2020, 6, 1).Equal(all[2].Date))

	revs := c.ByTimezoneAndProduct(tz, rb)
	require.Len(t, revs, 2)
	assert.True(t, revs[0].Date.Before(revs[1].Date))

	assert.Empty(t, c.ByTimezoneAndProduct(tz, reg.InternProduct("m", "DCE")))
	assert.Equal(t, []string{"210", "UTC"}, c.Timezones())
	assert.Equal(t, 4, c.Len())
}

func TestCalendarTable_FrozenRejectsWrites(t *testing.T) {
	reg := identity.NewRegistry()
	c := NewCalendarTable(zap.NewNop())
	p := reg.InternProduct("rb", "SHFE")

	insertRevision(t, c, p, Date(2020, 1, 1), dayAndNight())
	c.Freeze()

	err := c.Insert(tz, p, Date(2020, 6, 1), TradingSession{Product: p})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.Equal(t, 1, c.Len())

	s, ok := c.Get(tz, p, Date(2020, 12, 1))
	require.True(t, ok)
	assert.True(t, Date(2020, 1, 1).Equal(s.Date))
}

func TestCalendarTable_ReturnedSessionsAreCopies(t *testing.T) {
	reg := identity.NewRegistry()
	c := NewCalendarTable(zap.NewNop())
	p := reg.InternProduct("rb", "SHFE")

	in := dayAndNight()
	insertRevision(t, c, p, Date(2020, 1, 1), in)
	in[0].Start = Clock(0, 0, 0)

	s, ok := c.Get(tz, p, Date(2020, 1, 1))
	require.True(t, ok)
	assert.Equal(t, Clock(9, 0, 0), s.Sessions[0].Start)

	s.Sessions[0].Start = Clock(1, 0, 0)
	again, _ := c.Get(tz, p, Date(2020, 1, 1))
	assert.Equal(t, Clock(9, 0, 0), again.Sessions[0].Start)
}

func TestTradingSession_InSession(t *testing.T) {
	s := TradingSession{Sessions: []SessionInterval{
		{Start: Clock(9, 0, 0), End: Clock(11, 30, 0)},
		{Start: Clock(21, 0, 0), End: Clock(2, 30, 0)},
	}}

	assert.True(t, s.InSession(Clock(10, 0, 0)))
	assert.False(t, s.InSession(Clock(12, 0, 0)))
	assert.True(t, s.InSession(Clock(23, 0, 0)))
	assert.True(t, s.InSession(Clock(1, 0, 0)))
	assert.False(t, s.InSession(Clock(3, 0, 0)))
}
