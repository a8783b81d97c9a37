package valuation

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/folio-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	cfg = Config{ReferenceCurrency: "USD", LocalCurrency: "TRY"}
	now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func ptr(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func symbol(code string, kind domain.InstrumentKind, unit domain.SettlementUnit) *domain.Symbol {
	return &domain.Symbol{ID: uuid.New(), Name: code, Code: code, Kind: kind, Unit: unit}
}

// holding builds a holding with a single open lot
func holding(sym *domain.Symbol, qty, cost string) *domain.Holding {
	return &domain.Holding{
		SymbolID: sym.ID,
		Lots: []domain.Lot{{
			TransactionID:    uuid.New(),
			OriginalQuantity: d(qty),
			Remaining:        d(qty),
			UnitCost:         d(cost),
		}},
	}
}

func lookup(prices map[uuid.UUID]string) PriceLookup {
	return func(id uuid.UUID) (decimal.Decimal, bool) {
		p, ok := prices[id]
		if !ok {
			return decimal.Zero, false
		}
		return d(p), true
	}
}

func rowFor(t *testing.T, r *domain.Report, id uuid.UUID) domain.ValuationRow {
	t.Helper()
	for _, row := range r.Rows {
		if row.SymbolID == id {
			return row
		}
	}
	t.Fatalf("row %s not found", id)
	return domain.ValuationRow{}
}

func assertDec(t *testing.T, want string, got *decimal.Decimal) {
	t.Helper()
	require.NotNil(t, got)
	assert.True(t, d(want).Equal(*got), "want %s, got %s", want, got.String())
}

func TestBuild_RowFigures(t *testing.T) {
	sym := symbol("AAPL", domain.KindForeignEquity, domain.UnitDoviz)
	report := Build(
		[]Input{{Symbol: sym, Holding: holding(sym, "5", "120")}},
		lookup(map[uuid.UUID]string{sym.ID: "150"}),
		nil, cfg, now,
	)

	row := rowFor(t, report, sym.ID)
	assert.Equal(t, domain.StatusOK, row.Status)
	assert.Equal(t, "USD", row.Currency)
	assert.True(t, d("5").Equal(row.Balance))
	assertDec(t, "120", row.AverageCost)
	assertDec(t, "150", row.CurrentPrice)
	assertDec(t, "600", row.TotalCost)
	assertDec(t, "750", row.MarketValue)
	assertDec(t, "150", row.ProfitLoss)
	assertDec(t, "25", row.ProfitLossPct)
	assert.Equal(t, now, report.ComputedAt)
}

func TestBuild_ZeroTransactions(t *testing.T) {
	sym := symbol("EMPTY", domain.KindBIST, domain.UnitTL)
	report := Build([]Input{{Symbol: sym}}, lookup(nil), nil, cfg, now)

	row := rowFor(t, report, sym.ID)
	assert.True(t, row.Balance.IsZero())
	assert.Nil(t, row.AverageCost)
	assertDec(t, "0", row.MarketValue)
	assertDec(t, "0", row.TotalCost)
	assert.Nil(t, row.ProfitLossPct)
	assert.Equal(t, domain.StatusOK, row.Status)

	assert.Nil(t, report.Summary.ProfitLossPct)
}

func TestBuild_MissingPriceIsPartial(t *testing.T) {
	x := symbol("X", domain.KindBIST, domain.UnitDoviz)
	y := symbol("Y", domain.KindBIST, domain.UnitDoviz)
	z := symbol("Z", domain.KindCoin, domain.UnitDoviz)

	report := Build(
		[]Input{
			{Symbol: x, Holding: holding(x, "1", "10")},
			{Symbol: y, Holding: holding(y, "2", "10")},
			{Symbol: z, Holding: holding(z, "3", "10")},
		},
		lookup(map[uuid.UUID]string{y.ID: "20", z.ID: "5"}),
		nil, cfg, now,
	)

	rx := rowFor(t, report, x.ID)
	assert.Equal(t, domain.StatusMissingPrice, rx.Status)
	assert.Nil(t, rx.MarketValue)
	assert.Nil(t, rx.ProfitLoss)
	assert.Nil(t, rx.ProfitLossPct)
	assertDec(t, "10", rx.TotalCost)

	ry := rowFor(t, report, y.ID)
	assert.Equal(t, domain.StatusOK, ry.Status)
	assertDec(t, "40", ry.MarketValue)

	rz := rowFor(t, report, z.ID)
	assertDec(t, "-15", rz.ProfitLoss)
	assertDec(t, "-50", rz.ProfitLossPct)

	// value sums the present figures, cost is fully known, P&L is withheld
	assert.True(t, d("55").Equal(report.Summary.TotalValue))
	assertDec(t, "60", report.Summary.TotalCost)
	assert.Equal(t, 1, report.Summary.Incomplete)
	assert.Nil(t, report.Summary.ProfitLoss)
	assert.Nil(t, report.Summary.ProfitLossPct)

	// X has no value and sorts last
	assert.Equal(t, x.ID, report.Rows[len(report.Rows)-1].SymbolID)
}

func TestBuild_CurrencyConversion(t *testing.T) {
	local := symbol("THYAO", domain.KindBIST, domain.UnitTL)
	in := []Input{{Symbol: local, Holding: holding(local, "10", "300")}}
	prices := lookup(map[uuid.UUID]string{local.ID: "10"})

	t.Run("with rate", func(t *testing.T) {
		report := Build(in, prices, ptr("40"), cfg, now)
		row := rowFor(t, report, local.ID)
		assert.Equal(t, "TRY", row.Currency)
		// 10 x 300 TRY / 40 = 75 USD
		assertDec(t, "75", row.TotalCost)
		assertDec(t, "100", row.MarketValue)
		assertDec(t, "25", row.ProfitLoss)
		assertDec(t, "33.3333", row.ProfitLossPct)
		// native figures stay native
		assertDec(t, "300", row.AverageCost)
		assertDec(t, "40", report.Rate)
	})

	t.Run("without rate", func(t *testing.T) {
		report := Build(in, prices, nil, cfg, now)
		row := rowFor(t, report, local.ID)
		assert.Equal(t, domain.StatusMissingRate, row.Status)
		assert.Nil(t, row.TotalCost)
		assert.Nil(t, row.ProfitLoss)
		assert.Nil(t, row.ProfitLossPct)
		assertDec(t, "100", row.MarketValue)

		require.Len(t, report.Exchanges, 1)
		assert.Equal(t, 1, report.Exchanges[0].Incomplete)
	})

	t.Run("non-positive rate is ignored", func(t *testing.T) {
		report := Build(in, prices, ptr("0"), cfg, now)
		assert.Nil(t, report.Rate)
		assert.Equal(t, domain.StatusMissingRate, rowFor(t, report, local.ID).Status)
	})
}

func TestBuild_Rollups(t *testing.T) {
	a := symbol("A", domain.KindBIST, domain.UnitTL)
	b := symbol("B", domain.KindBIST, domain.UnitDoviz)
	c := symbol("C", domain.KindCoin, domain.UnitDoviz)
	u := symbol("U", "", "")

	report := Build(
		[]Input{
			{Symbol: a, Holding: holding(a, "1", "20")},
			{Symbol: b, Holding: holding(b, "1", "5")},
			{Symbol: c, Holding: holding(c, "1", "100")},
			{Symbol: u},
		},
		lookup(map[uuid.UUID]string{a.ID: "1", b.ID: "10", c.ID: "200"}),
		ptr("2"), cfg, now,
	)

	require.Len(t, report.Categories, 3)
	assert.Equal(t, "COIN", report.Categories[0].Key)
	assert.Equal(t, "BIST", report.Categories[1].Key)
	assert.Equal(t, 2, report.Categories[1].SymbolCount)
	assert.True(t, d("11").Equal(report.Categories[1].TotalValue))
	// 20 TRY / 2 + 5 USD
	assertDec(t, "15", report.Categories[1].TotalCost)
	assert.Equal(t, domain.Unclassified, report.Categories[2].Key)

	require.Len(t, report.Exchanges, 3)
	assert.Equal(t, "DOVIZ", report.Exchanges[0].Key)
	assert.Equal(t, 2, report.Exchanges[0].SymbolCount)
	assert.Equal(t, "TL", report.Exchanges[1].Key)

	assert.True(t, d("211").Equal(report.Summary.TotalValue))
	assertDec(t, "115", report.Summary.TotalCost)
	assertDec(t, "96", report.Summary.ProfitLoss)
	assert.Equal(t, 0, report.Summary.Incomplete)
}

func TestBuild_AggregatesWithoutRate(t *testing.T) {
	foreign := symbol("AAPL", domain.KindForeignEquity, domain.UnitDoviz)
	local := symbol("THYAO", domain.KindBIST, domain.UnitTL)

	report := Build(
		[]Input{
			{Symbol: foreign, Holding: holding(foreign, "10", "100")},
			{Symbol: local, Holding: holding(local, "10", "3000")},
		},
		lookup(map[uuid.UUID]string{foreign.ID: "100", local.ID: "90"}),
		nil, cfg, now,
	)

	s := report.Summary
	assert.True(t, d("1900").Equal(s.TotalValue))
	assert.Nil(t, s.TotalCost)
	assert.Nil(t, s.ProfitLoss)
	assert.Nil(t, s.ProfitLossPct)
	assert.Equal(t, 1, s.Incomplete)

	require.Len(t, report.Categories, 2)
	bist := report.Categories[1]
	assert.Equal(t, "BIST", bist.Key)
	assert.True(t, d("900").Equal(bist.TotalValue))
	assert.Nil(t, bist.TotalCost)
	assert.Equal(t, 1, bist.Incomplete)

	foreignCat := report.Categories[0]
	assertDec(t, "1000", foreignCat.TotalCost)
	assert.Equal(t, 0, foreignCat.Incomplete)
}

func TestBuild_AggregatesWithoutPrice(t *testing.T) {
	priced := symbol("A", domain.KindBIST, domain.UnitDoviz)
	unpriced := symbol("B", domain.KindBIST, domain.UnitDoviz)

	report := Build(
		[]Input{
			{Symbol: priced, Holding: holding(priced, "1", "100")},
			{Symbol: unpriced, Holding: holding(unpriced, "1", "100")},
		},
		lookup(map[uuid.UUID]string{priced.ID: "150"}),
		nil, cfg, now,
	)

	// the unpriced cost must not be netted against a zero value
	s := report.Summary
	assertDec(t, "200", s.TotalCost)
	assert.True(t, d("150").Equal(s.TotalValue))
	assert.Nil(t, s.ProfitLoss)
	assert.Equal(t, 1, s.Incomplete)

	require.Len(t, report.Categories, 1)
	assertDec(t, "200", report.Categories[0].TotalCost)
	assert.Equal(t, 1, report.Categories[0].Incomplete)
}

func TestBuild_StaleHoldingKeepsFigures(t *testing.T) {
	sym := symbol("OLD", domain.KindBIST, domain.UnitDoviz)
	report := Build(
		[]Input{{Symbol: sym, Holding: holding(sym, "2", "10"), Stale: true}},
		lookup(map[uuid.UUID]string{sym.ID: "15"}),
		nil, cfg, now,
	)

	row := rowFor(t, report, sym.ID)
	assert.Equal(t, domain.StatusStale, row.Status)
	assertDec(t, "30", row.MarketValue)
}

func TestPricesFromMap(t *testing.T) {
	id := uuid.New()
	lookup := PricesFromMap(map[uuid.UUID]domain.Price{id: {SymbolID: id, Value: d("3.5")}})

	v, ok := lookup(id)
	assert.True(t, ok)
	assert.True(t, d("3.5").Equal(v))

	_, ok = lookup(uuid.New())
	assert.False(t, ok)
}
