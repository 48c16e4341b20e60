package model

import (
	"cmp"
	"fmt"
)

// Direction tells whether P&L moves with the price (Long) or against it (Short).
type Direction string

const (
	DirectionLong  Direction = "Long"
	DirectionShort Direction = "Short"
)

// Rank gives Direction its total order: Short < Long.
func (d Direction) Rank() int {
	switch d {
	case DirectionLong:
		return 1
	case DirectionShort:
		return -1
	default:
		return 0
	}
}

// ParseDirection accepts "Long" or "Short".
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if d.Rank() == 0 {
		return "", fmt.Errorf("direction %q: want Long or Short", s)
	}
	return d, nil
}

func CompareDirection(a, b Direction) int {
	return cmp.Compare(a.Rank(), b.Rank())
}

// OffsetFlag tells whether a fill opens or closes position.
type OffsetFlag string

const (
	OffsetOpen        OffsetFlag = "Open"
	OffsetFlat        OffsetFlag = "Flat"
	OffsetFlatToday   OffsetFlag = "FlatToday"
	OffsetFlatHistory OffsetFlag = "FlatHistory"
)

// Rank gives OffsetFlag its total order. Flat and FlatToday rank equal.
func (o OffsetFlag) Rank() int {
	switch o {
	case OffsetOpen:
		return 1
	case OffsetFlat, OffsetFlatToday:
		return -1
	case OffsetFlatHistory:
		return -2
	default:
		return 0
	}
}

func ParseOffsetFlag(s string) (OffsetFlag, error) {
	o := OffsetFlag(s)
	if o.Rank() == 0 {
		return "", fmt.Errorf("offset %q: want Open, Flat, FlatToday or FlatHistory", s)
	}
	return o, nil
}

func CompareOffset(a, b OffsetFlag) int {
	return cmp.Compare(a.Rank(), b.Rank())
}

type HedgeFlag int

const HedgeSpeculation HedgeFlag = 2

// Status is an order status.
type Status string

const (
	StatusSubmitting Status = "SUBMITTING"
	StatusNotTraded  Status = "NOTTRADED"
	StatusPartTraded Status = "PARTTRADED"
	StatusAllTraded  Status = "ALLTRADED"
	StatusCancelled  Status = "CANCELLED"
	StatusRejected   Status = "REJECTED"
)

// Active reports whether the order can still trade.
func (s Status) Active() bool {
	switch s {
	case StatusSubmitting, StatusNotTraded, StatusPartTraded:
		return true
	default:
		return false
	}
}

// Prefix is the product class carried in GeneralTickerInfo.
type Prefix string

const (
	PrefixEquity      Prefix = "Equity"
	PrefixFutures     Prefix = "Futures"
	PrefixCommodities Prefix = "Commodities"
	PrefixOption      Prefix = "Option"
	PrefixIndex       Prefix = "Index"
	PrefixForex       Prefix = "Forex"
	PrefixSpot        Prefix = "Spot"
	PrefixETF         Prefix = "ETF"
	PrefixBond        Prefix = "Bond"
	PrefixWarrant     Prefix = "Warrant"
	PrefixSpread      Prefix = "Spread"
	PrefixFund        Prefix = "Fund"
)

type OrderType string

const (
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeStop   OrderType = "STOP"
	OrderTypeFAK    OrderType = "FAK"
	OrderTypeFOK    OrderType = "FOK"
	OrderTypeRFQ    OrderType = "RFQ"
)

type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// Known exchange codes. Identities store exchanges as plain strings, so this
// list documents rather than restricts.
const (
	ExchangeCFFEX  = "CFFEX" // China Financial Futures Exchange
	ExchangeSHFE   = "SHFE"  // Shanghai Futures Exchange
	ExchangeCZCE   = "CZCE"  // Zhengzhou Commodity Exchange
	ExchangeDCE    = "DCE"   // Dalian Commodity Exchange
	ExchangeINE    = "INE"   // Shanghai International Energy Exchange
	ExchangeLME    = "LME"
	ExchangeCME    = "CME"
	ExchangeCMECBT = "CME_CBT"
	ExchangeHKEX   = "HKEX"
	ExchangeICE    = "ICE"
	ExchangeKRX    = "KRX"
	ExchangeNYBOT  = "NYBOT"
	ExchangeSFE    = "SFE"
	ExchangeSGXQ   = "SGXQ"
	ExchangeSSE    = "SSE"   // Shanghai Stock Exchange
	ExchangeSZSE   = "SZSE"  // Shenzhen Stock Exchange
	ExchangeSGE    = "SGE"   // Shanghai Gold Exchange
	ExchangeWXE    = "WXE"   // Wuxi Steel Exchange
	ExchangeCFETS  = "CFETS" // China Foreign Exchange Trade System
)

type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyHKD Currency = "HKD"
	CurrencyCNY Currency = "CNY"
)

// Interval is the bar period.
type Interval string

const (
	IntervalMinute Interval = "1m"
	IntervalHour   Interval = "1h"
	IntervalDaily  Interval = "d"
	IntervalWeekly Interval = "w"
	IntervalTick   Interval = "tick"
)
