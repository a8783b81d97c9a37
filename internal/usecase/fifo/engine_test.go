package fifo

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/simaogato/folio-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	symbolID = uuid.MustParse("00000000-0000-0000-0000-0000000000aa")
	day1     = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	fixedNow = func() time.Time { return time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC) }
)

type builder struct {
	seq int64
	txs []*domain.Transaction
}

func (b *builder) add(typ domain.TradeType, day int, qty, price string) *domain.Transaction {
	b.seq++
	tx := &domain.Transaction{
		ID:       uuid.New(),
		Seq:      b.seq,
		SymbolID: symbolID,
		Date:     day1.AddDate(0, 0, day-1),
		Type:     typ,
		Price:    decimal.RequireFromString(price),
		Quantity: decimal.RequireFromString(qty),
	}
	b.txs = append(b.txs, tx)
	return tx
}

func (b *builder) buy(day int, qty, price string) *domain.Transaction {
	return b.add(domain.TradeBuy, day, qty, price)
}

func (b *builder) sell(day int, qty, price string) *domain.Transaction {
	return b.add(domain.TradeSell, day, qty, price)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRun_SellSpanningTwoLots(t *testing.T) {
	var b builder
	lot1 := b.buy(1, "10", "100")
	lot2 := b.buy(2, "10", "120")
	sale := b.sell(3, "15", "150")

	h, err := Run(symbolID, b.txs, WithClock(fixedNow))
	require.NoError(t, err)

	// 10x(150-100) + 5x(150-120) = 650
	assert.True(t, d("650").Equal(h.RealizedGain()), "realized gain = %s", h.RealizedGain())

	require.Len(t, h.Lots, 1)
	assert.Equal(t, lot2.ID, h.Lots[0].TransactionID)
	assert.True(t, d("5").Equal(h.Lots[0].Remaining))
	assert.True(t, d("10").Equal(h.Lots[0].OriginalQuantity))
	assert.True(t, d("120").Equal(h.Lots[0].UnitCost))

	require.Len(t, h.Realizations, 2)
	assert.Equal(t, lot1.ID, h.Realizations[0].LotTransactionID)
	assert.Equal(t, lot2.ID, h.Realizations[1].LotTransactionID)
	assert.Equal(t, sale.ID, h.Realizations[0].SellTransactionID)

	// cost basis = lot1.remaining x lot1.cost + lot2.consumed x lot2.cost
	basis := h.Realizations[0].CostBasis().Add(h.Realizations[1].CostBasis())
	assert.True(t, d("1600").Equal(basis), "cost basis = %s", basis)

	assert.True(t, d("5").Equal(h.Balance()))
	assert.True(t, d("600").Equal(h.TotalCost()))
	require.NotNil(t, h.AverageCost())
	assert.True(t, d("120").Equal(*h.AverageCost()))
}

func TestRun_OversellAfterFullSale(t *testing.T) {
	var b builder
	b.buy(1, "5", "50")
	b.sell(2, "5", "60")
	second := b.sell(3, "1", "60")

	h, err := Run(symbolID, b.txs)
	assert.Nil(t, h)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientInventory))

	var inv *domain.InsufficientInventoryError
	require.True(t, errors.As(err, &inv))
	assert.Equal(t, symbolID, inv.SymbolID)
	assert.Equal(t, second.ID, inv.TransactionID)
	assert.True(t, d("1").Equal(inv.Shortfall))
	assert.True(t, d("0").Equal(inv.Available))
	assert.True(t, d("1").Equal(inv.Requested))
}

func TestRun_OversellLeavesQueueUntouched(t *testing.T) {
	var b builder
	b.buy(1, "3", "10")
	b.buy(2, "2", "11")
	sale := b.sell(3, "7", "12")

	var q queue
	for _, tx := range b.txs[:2] {
		q.push(*tx)
	}
	before := q.open()

	taken, err := q.consume(symbolID, *sale)
	assert.Nil(t, taken)

	var inv *domain.InsufficientInventoryError
	require.True(t, errors.As(err, &inv))
	assert.True(t, d("2").Equal(inv.Shortfall))
	assert.Equal(t, before, q.open())
}

func TestRun_NoTransactions(t *testing.T) {
	h, err := Run(symbolID, nil)
	require.NoError(t, err)

	assert.Empty(t, h.Lots)
	assert.Empty(t, h.Realizations)
	assert.True(t, h.Balance().IsZero())
	assert.True(t, h.TotalCost().IsZero())
	assert.Nil(t, h.AverageCost())
	assert.True(t, h.RealizedGain().IsZero())
}

func TestRun_IsIdempotent(t *testing.T) {
	var b builder
	b.buy(1, "1.5", "10.10")
	b.buy(1, "2.25", "10.20")
	b.sell(2, "3", "11")
	b.buy(4, "0.333", "9.99")
	b.sell(5, "0.5", "12.5")

	first, err := Run(symbolID, b.txs, WithClock(fixedNow))
	require.NoError(t, err)
	second, err := Run(symbolID, b.txs, WithClock(fixedNow))
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRun_DoesNotMutateInput(t *testing.T) {
	var b builder
	b.sell(2, "1", "20")
	b.buy(1, "4", "10")
	b.txs[0].Date = b.txs[0].Date.Add(15 * time.Hour)

	snapshot := make([]domain.Transaction, len(b.txs))
	for i, tx := range b.txs {
		snapshot[i] = *tx
	}

	_, err := Run(symbolID, b.txs)
	require.NoError(t, err)

	for i, tx := range b.txs {
		assert.Equal(t, snapshot[i], *tx)
	}
}

func TestRun_OrdersByDateBeforeSeq(t *testing.T) {
	var b builder
	// recorded out of chronological order: the SELL on day 3 is entered first
	b.sell(3, "4", "30")
	older := b.buy(1, "2", "10")
	newer := b.buy(2, "5", "20")

	h, err := Run(symbolID, b.txs)
	require.NoError(t, err)

	require.Len(t, h.Realizations, 2)
	assert.Equal(t, older.ID, h.Realizations[0].LotTransactionID)
	assert.True(t, d("2").Equal(h.Realizations[0].Quantity))
	assert.Equal(t, newer.ID, h.Realizations[1].LotTransactionID)
	assert.True(t, d("2").Equal(h.Realizations[1].Quantity))
	require.Len(t, h.Lots, 1)
	assert.True(t, d("3").Equal(h.Lots[0].Remaining))
}

func TestRun_SameDayPolicies(t *testing.T) {
	// On day 2 the SELL is recorded before the BUY that would cover it.
	newHistory := func() []*domain.Transaction {
		var b builder
		b.buy(1, "1", "10")
		b.sell(2, "3", "15")
		b.buy(2, "2", "12")
		return b.txs
	}

	t.Run("in order rejects the sale", func(t *testing.T) {
		_, err := Run(symbolID, newHistory(), WithSameDayPolicy(SameDayInOrder))
		var inv *domain.InsufficientInventoryError
		require.True(t, errors.As(err, &inv))
		assert.True(t, d("2").Equal(inv.Shortfall))
	})

	t.Run("buys first fills the sale", func(t *testing.T) {
		h, err := Run(symbolID, newHistory(), WithSameDayPolicy(SameDayBuysFirst))
		require.NoError(t, err)
		assert.True(t, h.Balance().IsZero())
		// 1x(15-10) + 2x(15-12) = 11
		assert.True(t, d("11").Equal(h.RealizedGain()))
	})

	t.Run("in order uses a same-day buy recorded first", func(t *testing.T) {
		var b builder
		b.buy(2, "2", "12")
		b.sell(2, "2", "15")
		h, err := Run(symbolID, b.txs, WithSameDayPolicy(SameDayInOrder))
		require.NoError(t, err)
		assert.True(t, h.Balance().IsZero())
		assert.True(t, d("6").Equal(h.RealizedGain()))
	})
}

func TestRun_ZeroQuantities(t *testing.T) {
	var b builder
	b.buy(1, "0", "10")
	b.buy(1, "1", "10")
	b.sell(2, "0", "99")

	h, err := Run(symbolID, b.txs)
	require.NoError(t, err)
	assert.Len(t, h.Lots, 1)
	assert.Empty(t, h.Realizations)
}

func TestRun_RejectsForeignOrMalformedTransactions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tx *domain.Transaction)
	}{
		{"other symbol", func(tx *domain.Transaction) { tx.SymbolID = uuid.New() }},
		{"negative quantity", func(tx *domain.Transaction) { tx.Quantity = d("-1") }},
		{"negative price", func(tx *domain.Transaction) { tx.Price = d("-1") }},
		{"unknown type", func(tx *domain.Transaction) { tx.Type = "SWAP" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b builder
			tx := b.buy(1, "1", "1")
			tt.mutate(tx)
			_, err := Run(symbolID, b.txs)
			assert.ErrorIs(t, err, domain.ErrMalformedTransaction)
		})
	}
}

func TestRun_NoDriftOverManySmallLots(t *testing.T) {
	var b builder
	for i := 0; i < 1000; i++ {
		b.buy(1, "0.1", "0.1")
	}
	b.sell(2, "99.9", "0.3")

	h, err := Run(symbolID, b.txs)
	require.NoError(t, err)
	assert.True(t, d("0.1").Equal(h.Balance()), "balance = %s", h.Balance())
	assert.True(t, d("0.01").Equal(h.TotalCost()), "cost = %s", h.TotalCost())
	// 999 x 0.1 x (0.3 - 0.1)
	assert.True(t, d("19.98").Equal(h.RealizedGain()), "gain = %s", h.RealizedGain())
}

// TestRun_RandomHistories checks conservation and non-negativity on generated histories.
func TestRun_RandomHistories(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 200; run++ {
		t.Run(fmt.Sprintf("history %d", run), func(t *testing.T) {
			var b builder
			open := decimal.Zero
			bought, sold := decimal.Zero, decimal.Zero
			for i := 0; i < 30; i++ {
				qty := decimal.New(int64(rng.Intn(1000)+1), -2)
				price := decimal.New(int64(rng.Intn(50000)+1), -2)
				if rng.Intn(3) > 0 || open.LessThan(qty) {
					b.buy(i+1, qty.String(), price.String())
					open = open.Add(qty)
					bought = bought.Add(qty)
				} else {
					b.sell(i+1, qty.String(), price.String())
					open = open.Sub(qty)
					sold = sold.Add(qty)
				}
			}

			h, err := Run(symbolID, b.txs)
			require.NoError(t, err)

			assert.True(t, bought.Sub(sold).Equal(h.Balance()))
			for _, l := range h.Lots {
				assert.True(t, l.Remaining.IsPositive())
				assert.True(t, l.Remaining.LessThanOrEqual(l.OriginalQuantity))
			}

			consumed := decimal.Zero
			for _, r := range h.Realizations {
				assert.True(t, r.Quantity.IsPositive())
				consumed = consumed.Add(r.Quantity)
			}
			assert.True(t, sold.Equal(consumed))
		})
	}
}

func TestParseSameDayPolicy(t *testing.T) {
	p, err := ParseSameDayPolicy("")
	require.NoError(t, err)
	assert.Equal(t, SameDayInOrder, p)

	p, err = ParseSameDayPolicy("buys_first")
	require.NoError(t, err)
	assert.Equal(t, SameDayBuysFirst, p)

	_, err = ParseSameDayPolicy("lifo")
	assert.Error(t, err)
}
