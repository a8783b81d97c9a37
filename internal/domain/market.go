package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Price is the market price of a symbol on a day, in the reference currency
type Price struct {
	SymbolID uuid.UUID
	Date     time.Time
	Value    decimal.Decimal
}

// ExchangeRate is the number of Quote units per one Base unit on a day (e.g. USD/TRY)
type ExchangeRate struct {
	Base  string
	Quote string
	Date  time.Time
	Rate  decimal.Decimal
}

// PortfolioSnapshot is the total portfolio value and cost recorded for a day
type PortfolioSnapshot struct {
	Date  time.Time
	Value decimal.Decimal
	Cost  *decimal.Decimal // nil when the cost basis was not fully known that day
}

// Quote is a raw price returned by an external source
type Quote struct {
	Value    decimal.Decimal
	Currency string
}

// PriceSource fetches the current quote of an instrument code from one market
type PriceSource interface {
	// Latest returns the current quote for the given code
	Latest(ctx context.Context, code string) (Quote, error)
}

// RateSource fetches a live exchange rate
type RateSource interface {
	// Rate returns how many quote units one base unit buys
	Rate(ctx context.Context, base, quote string) (decimal.Decimal, error)
}
