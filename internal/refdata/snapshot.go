package refdata

import (
	"time"

	"github.com/google/uuid"

	"github.com/Checker-Finance/refdata/internal/identity"
	"github.com/Checker-Finance/refdata/internal/metrics"
)

// Snapshot is the read-only view handed out once loading has finished. It
// freezes both tables on construction and never interns new identities.
type Snapshot struct {
	ID       uuid.UUID
	LoadedAt time.Time

	registry *identity.Registry
	products *ProductTable
	calendar *CalendarTable
}

// Stats summarises a snapshot.
type Stats struct {
	SnapshotID   uuid.UUID `json:"snapshot_id"`
	LoadedAt     time.Time `json:"loaded_at"`
	Tickers      int       `json:"tickers"`
	Products     int       `json:"products"`
	ProductInfos int       `json:"product_infos"`
	Sessions     int       `json:"sessions"`
	Timezones    []string  `json:"timezones"`
}

// NewSnapshot freezes products and calendar and wraps them with reg.
func NewSnapshot(reg *identity.Registry, products *ProductTable, calendar *CalendarTable) *Snapshot {
	products.Freeze()
	calendar.Freeze()

	s := &Snapshot{
		ID:       uuid.New(),
		LoadedAt: time.Now().UTC(),
		registry: reg,
		products: products,
		calendar: calendar,
	}

	metrics.SetEntries(tableProducts, products.Len())
	metrics.SetEntries(tableSessions, calendar.Len())
	metrics.SetEntries("product", reg.ProductCount())
	metrics.SetEntries("ticker", reg.TickerCount())
	return s
}

// Registry exposes the identity registry for non-creating lookups.
func (s *Snapshot) Registry() *identity.Registry {
	return s.registry
}

// ProductInfo returns the parameters of product.
func (s *Snapshot) ProductInfo(product identity.Product) (ProductInfo, bool) {
	info, ok := s.products.Get(product)
	metrics.IncLookup(tableProducts, ok)
	return info, ok
}

// ProductInfoByName looks up parameters by canonical product name.
func (s *Snapshot) ProductInfoByName(name string) (ProductInfo, bool) {
	product, ok := s.registry.LookupProductByName(name)
	if !ok {
		metrics.IncLookup(tableProducts, false)
		return ProductInfo{}, false
	}
	return s.ProductInfo(product)
}

// ProductForTicker resolves the product owning the ticker named
// "<symbol>.<exchange>". The ticker itself need not have been interned.
func (s *Snapshot) ProductForTicker(name string) (identity.Product, bool) {
	symbol, exchange := identity.SplitName(name)
	if t, ok := s.registry.LookupTicker(symbol, exchange); ok {
		return t.Product, true
	}
	return s.registry.LookupProduct(identity.ProductName(symbol), exchange)
}

// ProductInfos returns all parameter records in canonical product order.
func (s *Snapshot) ProductInfos() []ProductInfo {
	return s.products.All()
}

// Session resolves the calendar revision in force on asOf.
func (s *Snapshot) Session(timezone string, product identity.Product, asOf time.Time) (TradingSession, bool) {
	session, ok := s.calendar.Get(timezone, product, asOf)
	metrics.IncLookup(tableSessions, ok)
	return session, ok
}

// Sessions returns every revision for timezone.
func (s *Snapshot) Sessions(timezone string) []TradingSession {
	return s.calendar.ByTimezone(timezone)
}

// ProductSessions returns every revision for (timezone, product).
func (s *Snapshot) ProductSessions(timezone string, product identity.Product) []TradingSession {
	return s.calendar.ByTimezoneAndProduct(timezone, product)
}

// Timezones returns the timezone tags present in the calendar.
func (s *Snapshot) Timezones() []string {
	return s.calendar.Timezones()
}

func (s *Snapshot) Stats() Stats {
	return Stats{
		SnapshotID:   s.ID,
		LoadedAt:     s.LoadedAt,
		Tickers:      s.registry.TickerCount(),
		Products:     s.registry.ProductCount(),
		ProductInfos: s.products.Len(),
		Sessions:     s.calendar.Len(),
		Timezones:    s.calendar.Timezones(),
	}
}
