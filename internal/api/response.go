package api

import (
	"github.com/Checker-Finance/refdata/internal/identity"
	"github.com/Checker-Finance/refdata/internal/model"
	"github.com/Checker-Finance/refdata/internal/refdata"
)

// TickerResponse describes a ticker name resolved against the snapshot.
// Interned is false when the ticker was never seen by a loader and only its
// product could be derived.
type TickerResponse struct {
	Name        string               `json:"name"`
	Symbol      string               `json:"symbol"`
	Exchange    string               `json:"exchange"`
	ProductName string               `json:"product_name"`
	Interned    bool                 `json:"interned"`
	Product     identity.Product     `json:"product"`
	Info        *refdata.ProductInfo `json:"info,omitempty"`
}

// SessionResponse is the as-of resolution of a product's calendar.
type SessionResponse struct {
	Timezone string                 `json:"timezone"`
	AsOf     string                 `json:"as_of"` // YYYYMMDD
	Session  refdata.TradingSession `json:"session"`
}

// FillResponse prices a hypothetical fill. Row is the fill as a TradeSeries
// CSV line under Header.
type FillResponse struct {
	Trade  model.Trade `json:"trade"`
	Header string      `json:"header"`
	Row    string      `json:"row"`
}

type errorResponse struct {
	Error string `json:"error"`
}
