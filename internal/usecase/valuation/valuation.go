package valuation

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/folio-backend/internal/domain"
)

var hundred = decimal.NewFromInt(100)

// Config names the currencies the valuation works with
type Config struct {
	ReferenceCurrency string // Currency of prices and of every aggregate, e.g. USD
	LocalCurrency     string // Native currency of TL-unit symbols, e.g. TRY
}

// Input is one symbol with its FIFO holding.
// Stale is set when the holding is the last good one of a symbol whose recompute failed.
type Input struct {
	Symbol  *domain.Symbol
	Holding *domain.Holding
	Stale   bool
}

// PriceLookup returns the current reference-currency price of a symbol, if any
type PriceLookup func(symbolID uuid.UUID) (decimal.Decimal, bool)

// PricesFromMap adapts a map of latest prices to a PriceLookup
func PricesFromMap(prices map[uuid.UUID]domain.Price) PriceLookup {
	return func(symbolID uuid.UUID) (decimal.Decimal, bool) {
		p, ok := prices[symbolID]
		return p.Value, ok
	}
}

// Build values every symbol and rolls the rows up by category and exchange/unit.
// rate is the number of local currency units per reference unit; nil when unknown.
// Logic:
//   - Zero balance: cost, value and P&L are zero, P&L % is nil; no price is needed
//   - Local-currency symbols: cost basis is divided by rate; without a rate every
//     reference figure that needs it is nil (status MISSING_RATE)
//   - Missing price on a non-zero balance: value and P&L are nil (status MISSING_PRICE)
//   - P&L % is nil whenever the cost basis is zero or unknown
//
// Rollups and the summary sum the market values that are present and count the rows
// that were not. Their cost is nil once any row's cost is unknown, and the summary P&L
// is nil once any row is incomplete, so no aggregate P&L mixes known and unknown figures.
func Build(inputs []Input, prices PriceLookup, rate *decimal.Decimal, cfg Config, now time.Time) *domain.Report {
	if rate != nil && !rate.IsPositive() {
		rate = nil
	}

	rows := make([]domain.ValuationRow, 0, len(inputs))
	for _, in := range inputs {
		rows = append(rows, valueRow(in, prices, rate, cfg))
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return compareValue(rows[i].MarketValue, rows[j].MarketValue, rows[i].Code, rows[j].Code)
	})

	return &domain.Report{
		Rows:       rows,
		Categories: rollup(rows, func(r domain.ValuationRow) string { return r.Category }),
		Exchanges:  rollup(rows, func(r domain.ValuationRow) string { return r.Exchange }),
		Summary:    summarize(rows),
		Rate:       rate,
		ComputedAt: now,
	}
}

func valueRow(in Input, prices PriceLookup, rate *decimal.Decimal, cfg Config) domain.ValuationRow {
	sym := in.Symbol
	holding := in.Holding
	if holding == nil {
		holding = &domain.Holding{SymbolID: sym.ID}
	}

	row := domain.ValuationRow{
		SymbolID:     sym.ID,
		Code:         sym.Code,
		Name:         sym.Name,
		Category:     sym.CategoryKey(),
		Exchange:     sym.ExchangeKey(),
		Currency:     cfg.ReferenceCurrency,
		Balance:      holding.Balance(),
		AverageCost:  holding.AverageCost(),
		RealizedGain: holding.RealizedGain(),
		Status:       domain.StatusOK,
	}
	if sym.IsLocalCurrency() {
		row.Currency = cfg.LocalCurrency
	}

	if price, ok := prices(sym.ID); ok {
		p := price
		row.CurrentPrice = &p
	}

	if row.Balance.IsZero() {
		zero := decimal.Zero
		row.TotalCost = &zero
		row.MarketValue = &zero
		row.ProfitLoss = &zero
		if in.Stale {
			row.Status = domain.StatusStale
		}
		return row
	}

	cost := holding.TotalCost()
	if sym.IsLocalCurrency() {
		if rate == nil {
			row.Status = domain.StatusMissingRate
		} else {
			converted := cost.Div(*rate)
			row.TotalCost = &converted
		}
	} else {
		row.TotalCost = &cost
	}

	if row.CurrentPrice == nil {
		row.Status = domain.StatusMissingPrice
	} else {
		value := row.Balance.Mul(*row.CurrentPrice)
		row.MarketValue = &value
	}

	if row.TotalCost != nil && row.MarketValue != nil {
		pl := row.MarketValue.Sub(*row.TotalCost)
		row.ProfitLoss = &pl
		row.ProfitLossPct = percent(pl, *row.TotalCost)
	}

	if in.Stale {
		row.Status = domain.StatusStale
	}
	return row
}

func rollup(rows []domain.ValuationRow, key func(domain.ValuationRow) string) []domain.Rollup {
	byKey := make(map[string]*totals)
	var order []string
	for _, r := range rows {
		k := key(r)
		t, ok := byKey[k]
		if !ok {
			t = &totals{}
			byKey[k] = t
			order = append(order, k)
		}
		t.add(r)
	}

	out := make([]domain.Rollup, 0, len(byKey))
	for _, k := range order {
		t := byKey[k]
		out = append(out, domain.Rollup{
			Key:         k,
			SymbolCount: t.count,
			TotalCost:   t.knownCost(),
			TotalValue:  t.value,
			Incomplete:  t.incomplete,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TotalValue.Equal(out[j].TotalValue) {
			return out[i].TotalValue.GreaterThan(out[j].TotalValue)
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func summarize(rows []domain.ValuationRow) domain.PortfolioSummary {
	var t totals
	for _, r := range rows {
		t.add(r)
	}

	s := domain.PortfolioSummary{
		TotalCost:  t.knownCost(),
		TotalValue: t.value,
		Incomplete: t.incomplete,
	}
	if t.incomplete == 0 {
		pl := t.value.Sub(t.cost)
		s.ProfitLoss = &pl
		s.ProfitLossPct = percent(pl, t.cost)
	}
	return s
}

// totals accumulates row figures. A row without a cost makes the cost total unknown;
// a row without a value only counts as incomplete.
type totals struct {
	count       int
	incomplete  int
	cost        decimal.Decimal
	value       decimal.Decimal
	costUnknown bool
}

func (t *totals) add(r domain.ValuationRow) {
	t.count++
	if r.TotalCost == nil || r.MarketValue == nil {
		t.incomplete++
	}
	if r.TotalCost == nil {
		t.costUnknown = true
	} else {
		t.cost = t.cost.Add(*r.TotalCost)
	}
	if r.MarketValue != nil {
		t.value = t.value.Add(*r.MarketValue)
	}
}

func (t *totals) knownCost() *decimal.Decimal {
	if t.costUnknown {
		return nil
	}
	c := t.cost
	return &c
}

// percent returns part/whole*100 rounded to 4 places, or nil when whole is zero
func percent(part, whole decimal.Decimal) *decimal.Decimal {
	if whole.IsZero() {
		return nil
	}
	pct := part.Mul(hundred).DivRound(whole, 4)
	return &pct
}

// compareValue orders by descending market value, unknown values last, then by code
func compareValue(a, b *decimal.Decimal, codeA, codeB string) bool {
	switch {
	case a != nil && b != nil && !a.Equal(*b):
		return a.GreaterThan(*b)
	case a != nil && b == nil:
		return true
	case a == nil && b != nil:
		return false
	}
	return codeA < codeB
}
