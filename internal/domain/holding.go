package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Lot is the part of a BUY transaction that later sells have not consumed yet
type Lot struct {
	TransactionID    uuid.UUID
	Date             time.Time
	OriginalQuantity decimal.Decimal
	Remaining        decimal.Decimal
	UnitCost         decimal.Decimal
}

// Cost returns the cost basis of the remaining units
func (l Lot) Cost() decimal.Decimal {
	return l.Remaining.Mul(l.UnitCost)
}

// Realization records the units a SELL took from one lot
type Realization struct {
	SellTransactionID uuid.UUID
	LotTransactionID  uuid.UUID
	Date              time.Time
	Quantity          decimal.Decimal
	UnitCost          decimal.Decimal
	SellPrice         decimal.Decimal
}

// CostBasis returns the cost attributed to the sold units
func (r Realization) CostBasis() decimal.Decimal {
	return r.Quantity.Mul(r.UnitCost)
}

// Proceeds returns what the sold units were sold for
func (r Realization) Proceeds() decimal.Decimal {
	return r.Quantity.Mul(r.SellPrice)
}

// Gain returns the realized gain (negative for a loss)
func (r Realization) Gain() decimal.Decimal {
	return r.SellPrice.Sub(r.UnitCost).Mul(r.Quantity)
}

// Holding is the FIFO engine output for one symbol: open lots in acquisition order
// and every realization in sale order. Amounts are in the symbol's native currency.
type Holding struct {
	SymbolID     uuid.UUID
	Lots         []Lot
	Realizations []Realization
	ComputedAt   time.Time
}

// Balance returns the total remaining quantity across open lots
func (h *Holding) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, l := range h.Lots {
		total = total.Add(l.Remaining)
	}
	return total
}

// TotalCost returns the cost basis of the remaining quantity
func (h *Holding) TotalCost() decimal.Decimal {
	total := decimal.Zero
	for _, l := range h.Lots {
		total = total.Add(l.Cost())
	}
	return total
}

// AverageCost returns the weighted average unit cost of the open lots,
// or nil when nothing is held.
func (h *Holding) AverageCost() *decimal.Decimal {
	balance := h.Balance()
	if balance.IsZero() {
		return nil
	}
	avg := h.TotalCost().Div(balance)
	return &avg
}

// RealizedGain returns the sum of all realized gains
func (h *Holding) RealizedGain() decimal.Decimal {
	total := decimal.Zero
	for _, r := range h.Realizations {
		total = total.Add(r.Gain())
	}
	return total
}
