package refdata

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/identity"
	"github.com/Checker-Finance/refdata/internal/metrics"
)

const tableSessions = "trading_session"

// TimeOfDay is an offset from midnight.
type TimeOfDay time.Duration

// Clock builds a TimeOfDay from its components.
func Clock(hour, min, sec int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(min)*time.Minute + time.Duration(sec)*time.Second)
}

// ParseTimeOfDay parses an HHMMSS boundary such as "091500".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("150405", s)
	if err != nil {
		return 0, fmt.Errorf("parse time of day %q: %w", s, err)
	}
	return Clock(t.Hour(), t.Minute(), t.Second()), nil
}

func (t TimeOfDay) Hour() int   { return int(time.Duration(t) / time.Hour) }
func (t TimeOfDay) Minute() int { return int(time.Duration(t)%time.Hour) / int(time.Minute) }
func (t TimeOfDay) Second() int { return int(time.Duration(t)%time.Minute) / int(time.Second) }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *TimeOfDay) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	v, err := time.Parse("15:04:05", s)
	if err != nil {
		return fmt.Errorf("parse time of day %q: %w", s, err)
	}
	*t = Clock(v.Hour(), v.Minute(), v.Second())
	return nil
}

// SessionInterval is one [start, end] trading window within a day.
type SessionInterval struct {
	Start TimeOfDay `json:"start"`
	End   TimeOfDay `json:"end"`
}

// Contains reports whether tod falls inside the interval. Intervals that
// cross midnight (night sessions ending after 00:00) wrap around.
func (s SessionInterval) Contains(tod TimeOfDay) bool {
	if s.Start <= s.End {
		return tod >= s.Start && tod <= s.End
	}
	return tod >= s.Start || tod <= s.End
}

// TradingSession is one dated revision of a product's trading calendar. It
// is valid from Date until the next later revision for the same timezone and
// product.
type TradingSession struct {
	Date             time.Time         `json:"date"`
	Product          identity.Product  `json:"product"`
	Sessions         []SessionInterval `json:"sessions"`
	ExchangeTimezone string            `json:"exchange_timezone"`
}

// InSession reports whether tod falls inside any of the revision's intervals.
func (s TradingSession) InSession(tod TimeOfDay) bool {
	for _, iv := range s.Sessions {
		if iv.Contains(tod) {
			return true
		}
	}
	return false
}

func (s TradingSession) clone() TradingSession {
	s.Sessions = slices.Clone(s.Sessions)
	return s
}

// Date returns the civil date year-month-day at UTC midnight.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DateOf drops the time-of-day and location from t, keeping its calendar date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

type calendarKey struct {
	timezone string
	product  productKey
}

// CalendarTable maps (timezone, product, effective date) to a trading session
// and resolves the revision in force on a given date.
type CalendarTable struct {
	mu sync.RWMutex
	// revisions per key, ascending by Date with unique dates
	revisions map[calendarKey][]TradingSession
	frozen    bool
	logger    *zap.Logger
}

// NewCalendarTable creates an empty, writable table.
func NewCalendarTable(logger *zap.Logger) *CalendarTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CalendarTable{
		revisions: make(map[calendarKey][]TradingSession),
		logger:    logger,
	}
}

// Insert stores session as the revision of (timezone, product) effective on
// the given date. Inserting the same date twice replaces the earlier record.
func (c *CalendarTable) Insert(timezone string, product identity.Product, effective time.Time, session TradingSession) error {
	if product.IsZero() {
		return fmt.Errorf("insert trading session %q: %w", product.Name(), ErrUnknownProduct)
	}

	effective = DateOf(effective)
	session = session.clone()
	session.Date = effective

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.frozen {
		c.logger.Warn("refdata.calendar_table.write_rejected",
			zap.String("timezone", timezone),
			zap.String("product", product.Name()),
			zap.Time("date", effective))
		metrics.IncWriteRejected(tableSessions)
		return fmt.Errorf("insert trading session %q: %w", product.Name(), ErrReadOnly)
	}

	k := calendarKey{timezone, keyOf(product)}
	revs := c.revisions[k]
	i := sort.Search(len(revs), func(i int) bool { return !revs[i].Date.Before(effective) })
	if i < len(revs) && revs[i].Date.Equal(effective) {
		revs[i] = session
		return nil
	}
	c.revisions[k] = slices.Insert(revs, i, session)
	return nil
}

// Get returns the revision in force for (timezone, product) on asOf:
//   - no revisions: absent;
//   - a single revision: returned whatever asOf is;
//   - otherwise the latest revision dated on or before asOf;
//   - if asOf precedes every revision, the earliest revision.
func (c *CalendarTable) Get(timezone string, product identity.Product, asOf time.Time) (TradingSession, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	revs := c.revisions[calendarKey{timezone, keyOf(product)}]
	switch len(revs) {
	case 0:
		return TradingSession{}, false
	case 1:
		return revs[0].clone(), true
	}

	day := DateOf(asOf)
	// first revision dated after asOf
	i := sort.Search(len(revs), func(i int) bool { return revs[i].Date.After(day) })
	if i == 0 {
		return revs[0].clone(), true
	}
	return revs[i-1].clone(), true
}

// ByTimezone returns every revision stored under timezone, ordered by
// product and then date.
func (c *CalendarTable) ByTimezone(timezone string) []TradingSession {
	c.mu.RLock()
	var out []TradingSession
	for k, revs := range c.revisions {
		if k.timezone != timezone {
			continue
		}
		for _, s := range revs {
			out = append(out, s.clone())
		}
	}
	c.mu.RUnlock()

	slices.SortFunc(out, func(a, b TradingSession) int {
		if n := identity.CompareNames(a.Product.Name(), b.Product.Name()); n != 0 {
			return n
		}
		return a.Date.Compare(b.Date)
	})
	return out
}

// ByTimezoneAndProduct returns the revisions for (timezone, product) ordered
// by date.
func (c *CalendarTable) ByTimezoneAndProduct(timezone string, product identity.Product) []TradingSession {
	c.mu.RLock()
	defer c.mu.RUnlock()

	revs := c.revisions[calendarKey{timezone, keyOf(product)}]
	out := make([]TradingSession, 0, len(revs))
	for _, s := range revs {
		out = append(out, s.clone())
	}
	return out
}

// Timezones returns the distinct timezone tags, sorted.
func (c *CalendarTable) Timezones() []string {
	c.mu.RLock()
	seen := make(map[string]struct{})
	for k := range c.revisions {
		seen[k.timezone] = struct{}{}
	}
	c.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for tz := range seen {
		out = append(out, tz)
	}
	slices.Sort(out)
	return out
}

// Len returns the total number of revisions.
func (c *CalendarTable) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, revs := range c.revisions {
		n += len(revs)
	}
	return n
}

// Freeze makes the table read-only.
func (c *CalendarTable) Freeze() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frozen = true
}

// Frozen reports whether Freeze was called.
func (c *CalendarTable) Frozen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.frozen
}
