package loader

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/refdata/internal/identity"
	"github.com/Checker-Finance/refdata/internal/refdata"
)

const (
	GeneralTickerInfoFile   = "GeneralTickerInfo.csv"
	GeneralTickerInfoHeader = "Adapter,InternalProduct,Exchange,Prefix,TradingExchangeZoneIndex,Currency," +
		"PointValue,MinMove,LotSize,ExchangeRateXxxUsd,CommissionOnRate,CommissionPerShareInXxx," +
		"MinCommissionInXxx,MaxCommissionInXxx,StampDutyRate," +
		"SlippagePoints,Product,FlatTodayDiscount,Margin,IsLive"
	generalTickerInfoFields = 20
)

// GeneralTickerInfo column positions.
const (
	colExchange           = 2
	colPrefix             = 3
	colCurrency           = 5
	colPointValue         = 6
	colMinMove            = 7
	colLotSize            = 8
	colCommissionOnRate   = 10
	colCommissionPerShare = 11
	colSlippagePoints     = 15
	colProduct            = 16
	colFlatTodayDiscount  = 17
	colMargin             = 18
)

var decimalColumns = []struct {
	index int
	name  string
	set   func(*refdata.ProductInfo, decimal.Decimal)
}{
	{colPointValue, "PointValue", func(i *refdata.ProductInfo, d decimal.Decimal) { i.PointValue = d }},
	{colMinMove, "MinMove", func(i *refdata.ProductInfo, d decimal.Decimal) { i.MinMove = d }},
	{colLotSize, "LotSize", func(i *refdata.ProductInfo, d decimal.Decimal) { i.LotSize = d }},
	{colCommissionOnRate, "CommissionOnRate", func(i *refdata.ProductInfo, d decimal.Decimal) { i.CommissionOnRate = d }},
	{colCommissionPerShare, "CommissionPerShareInXxx", func(i *refdata.ProductInfo, d decimal.Decimal) { i.CommissionPerShare = d }},
	{colSlippagePoints, "SlippagePoints", func(i *refdata.ProductInfo, d decimal.Decimal) { i.SlippagePoints = d }},
	{colFlatTodayDiscount, "FlatTodayDiscount", func(i *refdata.ProductInfo, d decimal.Decimal) { i.FlatTodayDiscount = d }},
	{colMargin, "Margin", func(i *refdata.ProductInfo, d decimal.Decimal) { i.Margin = d }},
}

// LoadGeneralTickerInfo reads a GeneralTickerInfo.csv file into table. Rows
// are validated in full before the first insert.
func (l *Loader) LoadGeneralTickerInfo(path string, table *refdata.ProductTable) (LoadResult, error) {
	start := time.Now()

	infos, err := l.parseGeneralTickerInfo(path)
	if err == nil {
		for _, info := range infos {
			if err = table.Insert(info); err != nil {
				break
			}
		}
	}

	distinct := make(map[identity.ProductID]struct{}, len(infos))
	for _, info := range infos {
		distinct[info.Product.ID] = struct{}{}
	}
	return l.finish(GeneralTickerInfoFile, path, len(infos), len(distinct), start, err)
}

func (l *Loader) parseGeneralTickerInfo(path string) ([]refdata.ProductInfo, error) {
	rows, err := l.readRows(path, GeneralTickerInfoHeader)
	if err != nil {
		return nil, err
	}

	infos := make([]refdata.ProductInfo, 0, len(rows))
	for _, row := range rows {
		fields, err := splitRow(path, row, generalTickerInfoFields)
		if err != nil {
			return nil, err
		}

		info := refdata.ProductInfo{
			Product:  identity.Product{Symbol: fields[colProduct], Exchange: fields[colExchange]},
			Prefix:   fields[colPrefix],
			Currency: fields[colCurrency],
		}
		for _, col := range decimalColumns {
			d, err := decimal.NewFromString(fields[col.index])
			if err != nil {
				return nil, &RowError{
					File:   path,
					Line:   row.number,
					Fields: len(fields),
					Column: col.name,
					Err:    fmt.Errorf("%w: %q", ErrInvalidField, fields[col.index]),
				}
			}
			col.set(&info, d)
		}
		infos = append(infos, info)
	}

	// intern only once every row is valid
	for i := range infos {
		infos[i].Product = l.reg.InternProduct(infos[i].Product.Symbol, infos[i].Product.Exchange)
	}
	return infos, nil
}
