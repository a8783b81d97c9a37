package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TradeType represents the direction of a transaction
type TradeType string

const (
	TradeBuy  TradeType = "BUY"
	TradeSell TradeType = "SELL"
)

// Transaction represents a buy or sell event on a symbol.
// Price and Quantity are in the symbol's native currency and unit.
type Transaction struct {
	ID       uuid.UUID
	Seq      int64 // Insertion order, assigned by the store; same-day tie-break
	SymbolID uuid.UUID
	Date     time.Time // Day granularity (UTC midnight)
	Type     TradeType
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Balance  *decimal.Decimal // Advisory running balance, BUY only; never used by the FIFO engine
	Note     string
}

// Validate ensures the transaction adheres to domain rules.
// It is the ingestion boundary: malformed transactions never reach the FIFO engine.
func (t *Transaction) Validate() error {
	if t.SymbolID == uuid.Nil {
		return fmt.Errorf("%w: transaction must reference a symbol", ErrMalformedTransaction)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("%w: transaction date is required", ErrMalformedTransaction)
	}
	if t.Type != TradeBuy && t.Type != TradeSell {
		return fmt.Errorf("%w: transaction type must be BUY or SELL", ErrMalformedTransaction)
	}
	if t.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrMalformedTransaction)
	}
	if t.Quantity.IsNegative() {
		return fmt.Errorf("%w: quantity must not be negative", ErrMalformedTransaction)
	}
	if t.Balance != nil && t.Type != TradeBuy {
		return fmt.Errorf("%w: balance is only recorded on BUY transactions", ErrMalformedTransaction)
	}
	if len(t.Note) > maxNoteLen {
		return fmt.Errorf("%w: note must have at most %d characters", ErrMalformedTransaction, maxNoteLen)
	}
	return nil
}

// Day returns the calendar day of t in t's own location, as UTC midnight
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayIn returns the calendar day t falls on in loc, as UTC midnight
func DayIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return Day(t)
	}
	return Day(t.In(loc))
}
