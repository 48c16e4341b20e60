package identity

import (
	"slices"
	"sync"
)

// ProductID is a registry-local handle for an interned Product.
type ProductID uint32

// TickerID is a registry-local handle for an interned Ticker.
type TickerID uint32

// Product identifies a product group, e.g. a futures underlying.
type Product struct {
	ID              ProductID `json:"-"`
	Symbol          string    `json:"symbol"`
	Exchange        string    `json:"exchange"`
	InternalProduct string    `json:"internal_product"`
}

// Name returns the canonical "<symbol>.<exchange>" form.
func (p Product) Name() string {
	return JoinName(p.Symbol, p.Exchange)
}

// Less orders products by case-insensitive name.
func (p Product) Less(other Product) bool {
	return CompareNames(p.Name(), other.Name()) < 0
}

func (p Product) String() string {
	return "Product: " + p.Name()
}

// IsZero reports whether p was never interned.
func (p Product) IsZero() bool {
	return p.ID == 0
}

// Ticker identifies a single tradable instrument.
type Ticker struct {
	ID          TickerID `json:"-"`
	Symbol      string   `json:"symbol"`
	Exchange    string   `json:"exchange"`
	ProductName string   `json:"product_name"`
	Product     Product  `json:"product"`
}

// Name returns the canonical "<symbol>.<exchange>" form.
func (t Ticker) Name() string {
	return JoinName(t.Symbol, t.Exchange)
}

// Less orders tickers by case-insensitive name.
func (t Ticker) Less(other Ticker) bool {
	return CompareNames(t.Name(), other.Name()) < 0
}

func (t Ticker) String() string {
	return "Ticker: " + t.Name()
}

// IsZero reports whether t was never interned.
func (t Ticker) IsZero() bool {
	return t.ID == 0
}

type key struct {
	symbol   string
	exchange string
}

// Registry interns tickers and products so that every (symbol, exchange)
// pair maps to exactly one identity for the registry's lifetime. Entries are
// never evicted. Handles start at 1; the zero handle means "not interned".
type Registry struct {
	mu        sync.RWMutex
	products  []Product
	tickers   []Ticker
	productBy map[key]ProductID
	tickerBy  map[key]TickerID
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		productBy: make(map[key]ProductID),
		tickerBy:  make(map[key]TickerID),
	}
}

// InternProduct returns the canonical product for (symbol, exchange),
// creating it on first call.
func (r *Registry) InternProduct(symbol, exchange string) Product {
	k := key{symbol, exchange}

	r.mu.RLock()
	id, ok := r.productBy[k]
	if ok {
		p := r.products[id-1]
		r.mu.RUnlock()
		return p
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.internProductLocked(k)
}

func (r *Registry) internProductLocked(k key) Product {
	if id, ok := r.productBy[k]; ok {
		return r.products[id-1]
	}
	p := Product{
		ID:              ProductID(len(r.products) + 1),
		Symbol:          k.symbol,
		Exchange:        k.exchange,
		InternalProduct: InternalProduct(k.symbol, k.exchange),
	}
	r.products = append(r.products, p)
	r.productBy[k] = p.ID
	return p
}

// InternTicker returns the canonical ticker for (symbol, exchange), creating
// it and its owning product on first call.
func (r *Registry) InternTicker(symbol, exchange string) Ticker {
	k := key{symbol, exchange}

	r.mu.RLock()
	id, ok := r.tickerBy[k]
	if ok {
		t := r.tickers[id-1]
		r.mu.RUnlock()
		return t
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if id, ok := r.tickerBy[k]; ok {
		return r.tickers[id-1]
	}

	productName := ProductName(symbol)
	t := Ticker{
		ID:          TickerID(len(r.tickers) + 1),
		Symbol:      symbol,
		Exchange:    exchange,
		ProductName: productName,
		Product:     r.internProductLocked(key{productName, exchange}),
	}
	r.tickers = append(r.tickers, t)
	r.tickerBy[k] = t.ID
	return t
}

// TickerFromName interns the ticker named "<symbol>.<exchange>".
func (r *Registry) TickerFromName(name string) Ticker {
	symbol, exchange := SplitName(name)
	return r.InternTicker(symbol, exchange)
}

// ProductFromName interns the product named "<symbol>.<exchange>".
func (r *Registry) ProductFromName(name string) Product {
	symbol, exchange := SplitName(name)
	return r.InternProduct(symbol, exchange)
}

// Ticker resolves a ticker handle.
func (r *Registry) Ticker(id TickerID) (Ticker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) > len(r.tickers) {
		return Ticker{}, false
	}
	return r.tickers[id-1], true
}

// Product resolves a product handle.
func (r *Registry) Product(id ProductID) (Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if id == 0 || int(id) > len(r.products) {
		return Product{}, false
	}
	return r.products[id-1], true
}

// LookupTicker returns an already interned ticker without creating one.
func (r *Registry) LookupTicker(symbol, exchange string) (Ticker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.tickerBy[key{symbol, exchange}]
	if !ok {
		return Ticker{}, false
	}
	return r.tickers[id-1], true
}

// LookupProduct returns an already interned product without creating one.
func (r *Registry) LookupProduct(symbol, exchange string) (Product, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.productBy[key{symbol, exchange}]
	if !ok {
		return Product{}, false
	}
	return r.products[id-1], true
}

// LookupProductByName is LookupProduct for a canonical name.
func (r *Registry) LookupProductByName(name string) (Product, bool) {
	symbol, exchange := SplitName(name)
	return r.LookupProduct(symbol, exchange)
}

// TickerCount returns the number of interned tickers.
func (r *Registry) TickerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickers)
}

// ProductCount returns the number of interned products.
func (r *Registry) ProductCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products)
}

// Tickers returns all interned tickers in canonical order.
func (r *Registry) Tickers() []Ticker {
	r.mu.RLock()
	out := slices.Clone(r.tickers)
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Ticker) int {
		return CompareNames(a.Name(), b.Name())
	})
	return out
}

// Products returns all interned products in canonical order.
func (r *Registry) Products() []Product {
	r.mu.RLock()
	out := slices.Clone(r.products)
	r.mu.RUnlock()

	SortProducts(out)
	return out
}

// SortProducts sorts products in canonical order.
func SortProducts(ps []Product) {
	slices.SortFunc(ps, func(a, b Product) int {
		return CompareNames(a.Name(), b.Name())
	})
}
