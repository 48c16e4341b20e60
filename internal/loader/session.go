package loader

import (
	"fmt"
	"strings"
	"time"

	"github.com/Checker-Finance/refdata/internal/identity"
	"github.com/Checker-Finance/refdata/internal/refdata"
)

const (
	TradingSessionFile   = "TradingSession.csv"
	TradingSessionHeader = "Date,ProductInfo,DaySession,NightSession,ExchangeTimezone"
	tradingSessionFields = 5

	// DefaultTimezone is the timezone tag attached to sessions when the
	// caller does not supply one.
	DefaultTimezone = "210"
)

type sessionRow struct {
	date     time.Time
	name     string
	product  identity.Product
	sessions []refdata.SessionInterval
}

// LoadTradingSession reads a TradingSession.csv file into table. Every record
// is tagged with timezone; the file's ExchangeTimezone column is not used.
func (l *Loader) LoadTradingSession(path, timezone string, table *refdata.CalendarTable) (LoadResult, error) {
	start := time.Now()
	if timezone == "" {
		timezone = DefaultTimezone
	}

	rows, err := l.parseTradingSession(path)
	if err == nil {
		for _, r := range rows {
			err = table.Insert(timezone, r.product, r.date, refdata.TradingSession{
				Date:             r.date,
				Product:          r.product,
				Sessions:         r.sessions,
				ExchangeTimezone: timezone,
			})
			if err != nil {
				break
			}
		}
	}

	distinct := make(map[identity.ProductID]struct{}, len(rows))
	for _, r := range rows {
		distinct[r.product.ID] = struct{}{}
	}
	return l.finish(TradingSessionFile, path, len(rows), len(distinct), start, err)
}

func (l *Loader) parseTradingSession(path string) ([]sessionRow, error) {
	lines, err := l.readRows(path, TradingSessionHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]sessionRow, 0, len(lines))
	for _, ln := range lines {
		fields, err := splitRow(path, ln, tradingSessionFields)
		if err != nil {
			return nil, err
		}

		date, err := time.Parse("20060102", fields[0])
		if err != nil {
			return nil, &RowError{File: path, Line: ln.number, Fields: len(fields), Column: "Date",
				Err: fmt.Errorf("%w: %q", ErrInvalidField, fields[0])}
		}
		sessions, err := ParseSessions(fields[2])
		if err != nil {
			return nil, &RowError{File: path, Line: ln.number, Fields: len(fields), Column: "DaySession",
				Err: fmt.Errorf("%w: %v", ErrInvalidField, err)}
		}

		rows = append(rows, sessionRow{
			date:     date,
			name:     fields[1],
			sessions: sessions,
		})
	}

	// intern only once every row is valid
	for i := range rows {
		rows[i].product = l.reg.ProductFromName(rows[i].name)
	}
	return rows, nil
}

// ParseSessions parses "HHMMSS-HHMMSS" pairs joined by "&", keeping their
// order: "090000-101500&133000-150000" yields two intervals.
func ParseSessions(s string) ([]refdata.SessionInterval, error) {
	pairs := strings.Split(s, "&")
	out := make([]refdata.SessionInterval, 0, len(pairs))
	for _, pair := range pairs {
		startStr, endStr, ok := strings.Cut(pair, "-")
		if !ok {
			return nil, fmt.Errorf("session %q: missing '-'", pair)
		}
		start, err := refdata.ParseTimeOfDay(strings.TrimSpace(startStr))
		if err != nil {
			return nil, err
		}
		end, err := refdata.ParseTimeOfDay(strings.TrimSpace(endStr))
		if err != nil {
			return nil, err
		}
		out = append(out, refdata.SessionInterval{Start: start, End: end})
	}
	return out, nil
}
