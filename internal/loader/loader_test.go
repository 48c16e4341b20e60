package loader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/identity"
	"github.com/Checker-Finance/refdata/internal/refdata"
)

const tickerInfoRows = `CTP,CSI300,CFFEX,Futures,210,CNY,300,0.2,1,1,0.000023,0,0,0,0,1,IF,2,0.12,1
CTP,SQrb,SHFE,Futures,210,CNY,10,1,1,1,0.0001,0,0,0,0,1,rb,1,0.1,1

CTP,ZZTC,CZCE,Futures,210,CNY,100,0.2,1,1,0,4,0,0,0,1,ZC,0,0.08,1
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newLoader() (*Loader, *identity.Registry) {
	reg := identity.NewRegistry()
	return New(reg, zap.NewNop()), reg
}

func TestLoadGeneralTickerInfo(t *testing.T) {
	l, reg := newLoader()
	table := refdata.NewProductTable(zap.NewNop())
	path := writeFile(t, GeneralTickerInfoFile, GeneralTickerInfoHeader+"\n"+tickerInfoRows)

	res, err := l.LoadGeneralTickerInfo(path, table)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 3, res.Distinct)
	assert.Equal(t, 3, table.Len())

	info, ok := table.Get(reg.InternProduct("IF", "CFFEX"))
	require.True(t, ok)
	assert.Equal(t, "Futures", info.Prefix)
	assert.Equal(t, "CNY", info.Currency)
	assert.Equal(t, "CSI300", info.Product.InternalProduct)
	assert.True(t, decimal.NewFromInt(300).Equal(info.PointValue))
	assert.True(t, decimal.RequireFromString("0.2").Equal(info.MinMove))
	assert.True(t, decimal.NewFromInt(1).Equal(info.LotSize))
	assert.True(t, decimal.RequireFromString("0.000023").Equal(info.CommissionOnRate))
	assert.True(t, decimal.Zero.Equal(info.CommissionPerShare))
	assert.True(t, decimal.NewFromInt(1).Equal(info.SlippagePoints))
	assert.True(t, decimal.NewFromInt(2).Equal(info.FlatTodayDiscount))
	assert.True(t, decimal.RequireFromString("0.12").Equal(info.Margin))

	info, ok = table.Get(reg.InternTicker("ZC101", "CZCE").Product)
	require.True(t, ok)
	assert.Equal(t, "ZZTC", info.Product.InternalProduct)
	assert.True(t, decimal.NewFromInt(4).Equal(info.CommissionPerShare))
}

func TestLoadGeneralTickerInfo_ShortRowFailsWholeLoad(t *testing.T) {
	l, reg := newLoader()
	table := refdata.NewProductTable(zap.NewNop())
	short := "CTP,DLm,DCE,Futures,210,CNY,10,1,1,1,0.0001,0,0,0,0,1,m,1,0.1"
	path := writeFile(t, GeneralTickerInfoFile, GeneralTickerInfoHeader+"\n"+tickerInfoRows+short+"\n")

	_, err := l.LoadGeneralTickerInfo(path, table)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRow)

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 6, rowErr.Line)
	assert.Equal(t, 19, rowErr.Fields)

	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, reg.ProductCount())
	_, ok := reg.LookupProduct("IF", "CFFEX")
	assert.False(t, ok)
}

func TestLoadGeneralTickerInfo_InvalidNumber(t *testing.T) {
	l, _ := newLoader()
	table := refdata.NewProductTable(zap.NewNop())
	bad := strings.Replace(strings.Split(tickerInfoRows, "\n")[0], ",300,", ",abc,", 1)
	path := writeFile(t, GeneralTickerInfoFile, GeneralTickerInfoHeader+"\n"+bad+"\n")

	_, err := l.LoadGeneralTickerInfo(path, table)
	assert.ErrorIs(t, err, ErrInvalidField)

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "PointValue", rowErr.Column)
	assert.Equal(t, 0, table.Len())
}

func TestLoadGeneralTickerInfo_MissingFile(t *testing.T) {
	l, _ := newLoader()
	table := refdata.NewProductTable(zap.NewNop())

	_, err := l.LoadGeneralTickerInfo(filepath.Join(t.TempDir(), "nope.csv"), table)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestLoadGeneralTickerInfo_HeaderOnly(t *testing.T) {
	l, _ := newLoader()
	table := refdata.NewProductTable(zap.NewNop())
	path := writeFile(t, GeneralTickerInfoFile, GeneralTickerInfoHeader+"\n\n  \n")

	res, err := l.LoadGeneralTickerInfo(path, table)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Rows)
	assert.Equal(t, 0, table.Len())
}

func TestLoadGeneralTickerInfo_FrozenTable(t *testing.T) {
	l, _ := newLoader()
	table := refdata.NewProductTable(zap.NewNop())
	table.Freeze()
	path := writeFile(t, GeneralTickerInfoFile, GeneralTickerInfoHeader+"\n"+tickerInfoRows)

	_, err := l.LoadGeneralTickerInfo(path, table)
	assert.ErrorIs(t, err, refdata.ErrReadOnly)
	assert.Equal(t, 0, table.Len())
}

const sessionFile = TradingSessionHeader + `
20200101,rb.SHFE,090000-101500&103000-113000&133000-150000,210000-230000,210
20200601,rb.SHFE,090000-101500&103000-113000&133000-150000,,210
20190101,IF.CFFEX,093000-113000&130000-150000,,210
`

func TestParseSessions(t *testing.T) {
	sessions, err := ParseSessions("090000-101500&133000-150000")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, refdata.Clock(9, 0, 0), sessions[0].Start)
	assert.Equal(t, refdata.Clock(10, 15, 0), sessions[0].End)
	assert.Equal(t, refdata.Clock(13, 30, 0), sessions[1].Start)
	assert.Equal(t, refdata.Clock(15, 0, 0), sessions[1].End)
}

func TestParseSessions_Invalid(t *testing.T) {
	for _, s := range []string{"", "090000", "090000-1015", "090000-101500&", "ab0000-101500"} {
		t.Run(s, func(t *testing.T) {
			_, err := ParseSessions(s)
			assert.Error(t, err)
		})
	}
}

func TestLoadTradingSession(t *testing.T) {
	l, reg := newLoader()
	table := refdata.NewCalendarTable(zap.NewNop())
	path := writeFile(t, TradingSessionFile, sessionFile)

	res, err := l.LoadTradingSession(path, "", table)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 2, res.Distinct)
	assert.Equal(t, 3, table.Len())

	rb := reg.InternProduct("rb", "SHFE")
	s, ok := table.Get(DefaultTimezone, rb, refdata.Date(2020, 3, 1))
	require.True(t, ok)
	assert.True(t, refdata.Date(2020, 1, 1).Equal(s.Date))
	assert.Equal(t, DefaultTimezone, s.ExchangeTimezone)
	require.Len(t, s.Sessions, 3)
	assert.Equal(t, refdata.Clock(10, 30, 0), s.Sessions[1].Start)

	assert.Len(t, table.ByTimezoneAndProduct(DefaultTimezone, rb), 2)
}

func TestLoadTradingSession_TimezoneArgument(t *testing.T) {
	l, reg := newLoader()
	table := refdata.NewCalendarTable(zap.NewNop())
	path := writeFile(t, TradingSessionFile, sessionFile)

	_, err := l.LoadTradingSession(path, "480", table)
	require.NoError(t, err)

	assert.Empty(t, table.ByTimezone(DefaultTimezone))
	s, ok := table.Get("480", reg.InternProduct("IF", "CFFEX"), refdata.Date(2024, 1, 1))
	require.True(t, ok)
	assert.Equal(t, "480", s.ExchangeTimezone)
	assert.Equal(t, "CSI300", s.Product.InternalProduct)
}

func TestLoadTradingSession_MalformedRow(t *testing.T) {
	l, reg := newLoader()
	table := refdata.NewCalendarTable(zap.NewNop())
	path := writeFile(t, TradingSessionFile, sessionFile+"20210101,rb.SHFE,090000-101500,210\n")

	_, err := l.LoadTradingSession(path, "", table)
	assert.ErrorIs(t, err, ErrMalformedRow)
	assert.Equal(t, 0, table.Len())
	assert.Equal(t, 0, reg.ProductCount())
}

func TestLoadTradingSession_BadDate(t *testing.T) {
	l, _ := newLoader()
	table := refdata.NewCalendarTable(zap.NewNop())
	path := writeFile(t, TradingSessionFile, TradingSessionHeader+"\n2020-01-01,rb.SHFE,090000-101500,,210\n")

	_, err := l.LoadTradingSession(path, "", table)
	assert.ErrorIs(t, err, ErrInvalidField)

	var rowErr *RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, "Date", rowErr.Column)
	assert.Equal(t, 2, rowErr.Line)
}

func TestLoadTradingSession_MissingFile(t *testing.T) {
	l, _ := newLoader()
	table := refdata.NewCalendarTable(zap.NewNop())

	_, err := l.LoadTradingSession("/nonexistent/TradingSession.csv", "", table)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
