package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ValuationStatus tells how complete a valuation row is
type ValuationStatus string

const (
	StatusOK           ValuationStatus = "OK"
	StatusMissingPrice ValuationStatus = "MISSING_PRICE"
	StatusMissingRate  ValuationStatus = "MISSING_RATE"
	// StatusStale marks a symbol whose last recompute failed; it is valued from its last good holding.
	StatusStale ValuationStatus = "STALE"
)

// ValuationRow is the per-symbol report line.
// Nil pointers mean the figure could not be computed (missing price or rate, zero cost basis).
// Cost, value and P&L figures are in the reference currency; Balance, AverageCost and
// RealizedGain are in the symbol's native currency.
type ValuationRow struct {
	SymbolID      uuid.UUID
	Code          string
	Name          string
	Category      string
	Exchange      string
	Currency      string // Native currency of the symbol's transactions
	Balance       decimal.Decimal
	AverageCost   *decimal.Decimal
	CurrentPrice  *decimal.Decimal
	TotalCost     *decimal.Decimal
	MarketValue   *decimal.Decimal
	ProfitLoss    *decimal.Decimal
	ProfitLossPct *decimal.Decimal
	RealizedGain  decimal.Decimal
	Status        ValuationStatus
}

// Rollup is a grid aggregate over one classification key.
// TotalValue sums the values that are known; TotalCost is nil when any row's cost is unknown.
type Rollup struct {
	Key         string
	SymbolCount int
	TotalCost   *decimal.Decimal
	TotalValue  decimal.Decimal
	Incomplete  int // Rows whose cost or value could not be computed
}

// PortfolioSummary is the portfolio-wide total.
// Same rules as Rollup; P&L is only reported when no row is incomplete.
type PortfolioSummary struct {
	TotalCost     *decimal.Decimal
	TotalValue    decimal.Decimal
	ProfitLoss    *decimal.Decimal
	ProfitLossPct *decimal.Decimal
	Incomplete    int
}

// Report groups every read model produced by one recompute
type Report struct {
	Rows       []ValuationRow
	Categories []Rollup
	Exchanges  []Rollup
	Summary    PortfolioSummary
	Rate       *decimal.Decimal
	ComputedAt time.Time
}

// SymbolIssue names a symbol that was computed with absent figures
type SymbolIssue struct {
	SymbolID uuid.UUID
	Code     string
	Status   ValuationStatus
}

// SymbolFailure names a symbol whose FIFO recomputation was rejected
type SymbolFailure struct {
	SymbolID uuid.UUID
	Code     string
	Err      error
}

// RecomputeResult separates fully computed, partial and failed symbols
type RecomputeResult struct {
	Succeeded []uuid.UUID
	Partial   []SymbolIssue
	Failed    []SymbolFailure
	Summary   PortfolioSummary
}

// PriceUpdate is a successfully stored price
type PriceUpdate struct {
	SymbolID uuid.UUID
	Code     string
	OldPrice *decimal.Decimal
	NewPrice decimal.Decimal
}

// PriceFailure is a symbol whose price could not be refreshed
type PriceFailure struct {
	SymbolID uuid.UUID
	Code     string
	Err      error
}

// PriceBatchResult is the outcome of one price ingestion run
type PriceBatchResult struct {
	Rate      *decimal.Decimal
	Succeeded []PriceUpdate
	Failed    []PriceFailure
}

// Performance is the price change of a symbol over standard look-back windows, in percent
type Performance struct {
	Latest     *decimal.Decimal
	Day1       *decimal.Decimal
	Day5       *decimal.Decimal
	Month1     *decimal.Decimal
	Month3     *decimal.Decimal
	SinceFirst *decimal.Decimal
}

// MarketRates holds headline rates; either may be absent
type MarketRates struct {
	USDTRY *decimal.Decimal
	BTCUSD *decimal.Decimal
}
