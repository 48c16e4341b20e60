package model

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/refdata/internal/identity"
)

// Trade is a single fill.
type Trade struct {
	Time       time.Time       `json:"time"`
	Ticker     identity.Ticker `json:"ticker"`
	Direction  Direction       `json:"direction"`
	Offset     OffsetFlag      `json:"offset"`
	Price      decimal.Decimal `json:"price"`
	Volume     decimal.Decimal `json:"volume"`
	Commission decimal.Decimal `json:"commission"`
}

// String renders the trade as a TradeSeries CSV row.
func (t Trade) String() string {
	return strings.Join([]string{
		t.Time.Format("20060102 150405.000000"),
		t.Ticker.Name(),
		string(t.Direction),
		string(t.Offset),
		t.Price.String(),
		t.Volume.String(),
		t.Commission.String(),
	}, ",")
}

// TradeSeriesHeader is the header of a TradeSeries CSV file.
const TradeSeriesHeader = "datetime,ticker,direction,offset_flag,price,volume,commission"

func compareTrades(a, b Trade) int {
	if n := a.Time.Compare(b.Time); n != 0 {
		return n
	}
	if n := identity.CompareNames(a.Ticker.Name(), b.Ticker.Name()); n != 0 {
		return n
	}
	if n := CompareDirection(a.Direction, b.Direction); n != 0 {
		return n
	}
	if n := CompareOffset(a.Offset, b.Offset); n != 0 {
		return n
	}
	if n := a.Price.Cmp(b.Price); n != 0 {
		return n
	}
	if n := a.Volume.Cmp(b.Volume); n != 0 {
		return n
	}
	return a.Commission.Cmp(b.Commission)
}

// SortTrades orders trades field by field: time, ticker, direction, offset,
// price, volume, commission.
func SortTrades(trades []Trade) {
	slices.SortStableFunc(trades, compareTrades)
}

// Position is a holding at a point in time. VolumeToday is nil when the
// venue does not split today's volume out.
type Position struct {
	Time        time.Time        `json:"time"`
	Ticker      identity.Ticker  `json:"ticker"`
	Direction   Direction        `json:"direction"`
	Volume      decimal.Decimal  `json:"volume"`
	VolumeToday *decimal.Decimal `json:"volume_today,omitempty"`
	Price       decimal.Decimal  `json:"price"`
}

func (p Position) String() string {
	today := ""
	if p.VolumeToday != nil && !p.VolumeToday.IsZero() {
		today = p.VolumeToday.String()
	}
	return strings.Join([]string{
		p.Time.Format("20060102 150405"),
		p.Ticker.Name(),
		string(p.Direction),
		p.Volume.String(),
		today,
		p.Price.String(),
	}, ",")
}

const PositionSeriesHeader = "datetime,ticker,direction,volume,volume_today,price"

// SortPositions orders positions by time, ticker, direction, volume, price.
func SortPositions(positions []Position) {
	slices.SortStableFunc(positions, func(a, b Position) int {
		if n := a.Time.Compare(b.Time); n != 0 {
			return n
		}
		if n := identity.CompareNames(a.Ticker.Name(), b.Ticker.Name()); n != 0 {
			return n
		}
		if n := CompareDirection(a.Direction, b.Direction); n != 0 {
			return n
		}
		if n := a.Volume.Cmp(b.Volume); n != 0 {
			return n
		}
		return a.Price.Cmp(b.Price)
	})
}

type Account struct {
	Account   string          `json:"account"`
	Balance   decimal.Decimal `json:"balance"`
	Available decimal.Decimal `json:"available"`
	RiskRatio decimal.Decimal `json:"risk_ratio"`
}

func (a Account) String() string {
	return strings.Join([]string{
		a.Account,
		a.Balance.String(),
		a.Available.String(),
		a.RiskRatio.String(),
	}, ",")
}

// SortAccounts orders accounts by id.
func SortAccounts(accounts []Account) {
	slices.SortStableFunc(accounts, func(a, b Account) int {
		return cmp.Compare(a.Account, b.Account)
	})
}

// BookLevel is one price level of an order book side.
type BookLevel struct {
	Price  decimal.Decimal `json:"price"`
	Volume decimal.Decimal `json:"volume"`
}

// Tick carries the last trade, a five-level book snapshot and intraday
// statistics.
type Tick struct {
	Ticker    identity.Ticker `json:"ticker"`
	Time      time.Time       `json:"time"`
	LocalTime time.Time       `json:"local_time,omitempty"`

	Volume       decimal.Decimal `json:"volume"`
	OpenInterest decimal.Decimal `json:"open_interest"`
	LastPrice    decimal.Decimal `json:"last_price"`
	LastVolume   decimal.Decimal `json:"last_volume"`
	LimitUp      decimal.Decimal `json:"limit_up"`
	LimitDown    decimal.Decimal `json:"limit_down"`

	OpenPrice decimal.Decimal `json:"open_price"`
	HighPrice decimal.Decimal `json:"high_price"`
	LowPrice  decimal.Decimal `json:"low_price"`
	PreClose  decimal.Decimal `json:"pre_close"`

	Bids [5]BookLevel `json:"bids"`
	Asks [5]BookLevel `json:"asks"`
}

// Symbol returns the canonical ticker name.
func (t Tick) Symbol() string {
	return t.Ticker.Name()
}

// Bar is one candlestick.
type Bar struct {
	Ticker       identity.Ticker `json:"ticker"`
	Time         time.Time       `json:"time"`
	Interval     Interval        `json:"interval"`
	Volume       decimal.Decimal `json:"volume"`
	OpenInterest decimal.Decimal `json:"open_interest"`
	OpenPrice    decimal.Decimal `json:"open_price"`
	HighPrice    decimal.Decimal `json:"high_price"`
	LowPrice     decimal.Decimal `json:"low_price"`
	ClosePrice   decimal.Decimal `json:"close_price"`
}

func (b Bar) Symbol() string {
	return b.Ticker.Name()
}
