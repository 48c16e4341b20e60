package loader

import (
	"fmt"

	"github.com/Checker-Finance/refdata/internal/refdata"
)

// Paths names the reference files of one load.
type Paths struct {
	GeneralTickerInfo string
	TradingSession    string
	Timezone          string // empty means DefaultTimezone
}

// LoadSnapshot runs both loaders against fresh tables and freezes the result.
// Any loader error aborts the whole load.
func (l *Loader) LoadSnapshot(paths Paths) (*refdata.Snapshot, error) {
	products := refdata.NewProductTable(l.logger)
	calendar := refdata.NewCalendarTable(l.logger)

	if _, err := l.LoadGeneralTickerInfo(paths.GeneralTickerInfo, products); err != nil {
		return nil, fmt.Errorf("load %s: %w", GeneralTickerInfoFile, err)
	}
	if _, err := l.LoadTradingSession(paths.TradingSession, paths.Timezone, calendar); err != nil {
		return nil, fmt.Errorf("load %s: %w", TradingSessionFile, err)
	}
	return refdata.NewSnapshot(l.reg, products, calendar), nil
}
