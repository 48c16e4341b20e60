package refdata

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/refdata/internal/identity"
	"github.com/Checker-Finance/refdata/internal/metrics"
	"github.com/Checker-Finance/refdata/internal/model"
)

var (
	// ErrReadOnly is returned by writes to a frozen table.
	ErrReadOnly = errors.New("refdata: table is read-only")
	// ErrUnknownProduct is returned when a record references a product that
	// was never interned.
	ErrUnknownProduct = errors.New("refdata: product not interned")
)

const tableProducts = "product_info"

// ProductInfo holds the static economic parameters of a product.
type ProductInfo struct {
	Product  identity.Product `json:"product"`
	Prefix   string           `json:"prefix"` // Futures / Stock / Options / ...
	Currency string           `json:"currency"`

	PointValue         decimal.Decimal `json:"point_value"`          // contract value = price * point value
	MinMove            decimal.Decimal `json:"min_move"`             // price change of one tick
	LotSize            decimal.Decimal `json:"lot_size"`             // shares per lot
	CommissionOnRate   decimal.Decimal `json:"commission_on_rate"`   // fraction of traded value
	CommissionPerShare decimal.Decimal `json:"commission_per_share"` // flat amount per share
	SlippagePoints     decimal.Decimal `json:"slippage_points"`
	FlatTodayDiscount  decimal.Decimal `json:"flat_today_discount"` // 1: same, 0: free, 2: double
	Margin             decimal.Decimal `json:"margin"`
}

// Commission is the fee for a fill of volume lots at price. Closing today's
// position is charged FlatTodayDiscount times the normal fee.
func (i ProductInfo) Commission(price, volume decimal.Decimal, offset model.OffsetFlag) decimal.Decimal {
	turnover := price.Mul(volume).Mul(i.PointValue)
	fee := turnover.Mul(i.CommissionOnRate).Add(volume.Mul(i.CommissionPerShare))
	if offset == model.OffsetFlatToday {
		fee = fee.Mul(i.FlatTodayDiscount)
	}
	return fee
}

// productKey is the (symbol, exchange) identity of a product. Handles are
// registry-local and never used as table keys.
type productKey struct {
	symbol   string
	exchange string
}

func keyOf(p identity.Product) productKey {
	return productKey{p.Symbol, p.Exchange}
}

// ProductTable maps a product to its ProductInfo. Insert is the only write
// path; after Freeze every write is rejected.
type ProductTable struct {
	mu     sync.RWMutex
	data   map[productKey]ProductInfo
	frozen bool
	logger *zap.Logger
}

// NewProductTable creates an empty, writable table.
func NewProductTable(logger *zap.Logger) *ProductTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductTable{
		data:   make(map[productKey]ProductInfo),
		logger: logger,
	}
}

// Get returns the record for the product's (symbol, exchange). The handle of
// the argument is not consulted.
func (t *ProductTable) Get(product identity.Product) (ProductInfo, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.data[keyOf(product)]
	return info, ok
}

// Insert stores info under info.Product. A second insert for the same
// product replaces the first.
func (t *ProductTable) Insert(info ProductInfo) error {
	if info.Product.IsZero() {
		return fmt.Errorf("insert product info %q: %w", info.Product.Name(), ErrUnknownProduct)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		t.logger.Warn("refdata.product_table.write_rejected",
			zap.String("product", info.Product.Name()))
		metrics.IncWriteRejected(tableProducts)
		return fmt.Errorf("insert product info %q: %w", info.Product.Name(), ErrReadOnly)
	}

	if _, exists := t.data[keyOf(info.Product)]; exists {
		t.logger.Debug("refdata.product_table.overwrite",
			zap.String("product", info.Product.Name()))
	}
	t.data[keyOf(info.Product)] = info
	return nil
}

// Freeze makes the table read-only.
func (t *ProductTable) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// Frozen reports whether Freeze was called.
func (t *ProductTable) Frozen() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.frozen
}

func (t *ProductTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}

// All returns a copy of every record in canonical product order.
func (t *ProductTable) All() []ProductInfo {
	t.mu.RLock()
	out := make([]ProductInfo, 0, len(t.data))
	for _, info := range t.data {
		out = append(out, info)
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b ProductInfo) int {
		return identity.CompareNames(a.Product.Name(), b.Product.Name())
	})
	return out
}
