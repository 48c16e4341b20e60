package identity

import "strings"

// Exchange codes that drive InternalProduct derivation. Exchanges are kept as
// free-form strings on Ticker and Product; these are only the ones with a
// naming convention.
const (
	ExchangeCFFEX  = "CFFEX"
	ExchangeSHFE   = "SHFE"
	ExchangeCZCE   = "CZCE"
	ExchangeDCE    = "DCE"
	ExchangeINE    = "INE"
	ExchangeLME    = "LME"
	ExchangeCME    = "CME"
	ExchangeCMECBT = "CME_CBT"
	ExchangeNYBOT  = "NYBOT"
	ExchangeSGXQ   = "SGXQ"
)

type exchangeSymbol struct {
	exchange string
	symbol   string
}

// internalOverrides holds products whose internal code does not follow the
// per-exchange rule.
var internalOverrides = map[exchangeSymbol]string{
	{ExchangeCZCE, "ZC"}:    "ZZTC",
	{ExchangeSHFE, "au"}:    "SQau2",
	{ExchangeCFFEX, "IF"}:   "CSI300",
	{ExchangeCFFEX, "IC"}:   "CSI500",
	{ExchangeCFFEX, "IH"}:   "SSE50",
	{ExchangeLME, "AH3M"}:   "LmeAH",
	{ExchangeLME, "CA3M"}:   "LmeCA",
	{ExchangeLME, "L-ZS3M"}: "LmeZS",
	{ExchangeLME, "NI3M"}:   "LmeNI",
	{ExchangeLME, "PB3M"}:   "LmePB",
	{ExchangeLME, "SN3M"}:   "LmeSN",
}

// ProductName returns the leading non-digit part of a ticker symbol:
// "IF2009" -> "IF", "a2101" -> "a". A symbol without digits is returned whole.
func ProductName(symbol string) string {
	for i := 0; i < len(symbol); i++ {
		if symbol[i] >= '0' && symbol[i] <= '9' {
			return symbol[:i]
		}
	}
	return symbol
}

// InternalProduct derives the internal product code for a product symbol on
// an exchange. Unknown exchanges map to the symbol unchanged.
func InternalProduct(symbol, exchange string) string {
	if code, ok := internalOverrides[exchangeSymbol{exchange, symbol}]; ok {
		return code
	}

	switch exchange {
	case ExchangeDCE:
		return "DL" + symbol
	case ExchangeCZCE:
		return "ZZ" + symbol
	case ExchangeSHFE, ExchangeINE:
		return "SQ" + symbol
	case ExchangeLME:
		return "Lme" + symbol
	case ExchangeCFFEX, ExchangeCME, ExchangeCMECBT, ExchangeNYBOT, ExchangeSGXQ:
		return symbol
	default:
		return symbol
	}
}

// SplitName splits a canonical "<symbol>.<exchange>" name on its last dot.
// A name without a dot is all symbol with an empty exchange.
func SplitName(name string) (symbol, exchange string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i+1:]
}

// JoinName builds the canonical "<symbol>.<exchange>" form.
func JoinName(symbol, exchange string) string {
	return symbol + "." + exchange
}

// CompareNames orders canonical names case-insensitively.
func CompareNames(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}
