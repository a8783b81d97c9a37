package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SymbolRepository defines the interface for symbol persistence operations
type SymbolRepository interface {
	// GetByID retrieves a symbol by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Symbol, error)
	// Create creates a new symbol
	Create(ctx context.Context, symbol *Symbol) error
	// Update overwrites the mutable fields of a symbol; the ID never changes
	Update(ctx context.Context, symbol *Symbol) error
	// Delete removes a symbol together with its transactions, prices and holding
	Delete(ctx context.Context, id uuid.UUID) error
	// List retrieves all symbols, newest first
	List(ctx context.Context) ([]*Symbol, error)
}

// TransactionRepository defines the interface for transaction persistence operations
type TransactionRepository interface {
	// GetByID retrieves a transaction by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*Transaction, error)
	// Create inserts a transaction and assigns its Seq
	Create(ctx context.Context, tx *Transaction) error
	// Update overwrites a transaction; Seq is preserved
	Update(ctx context.Context, tx *Transaction) error
	// Delete removes a transaction
	Delete(ctx context.Context, id uuid.UUID) error
	// List retrieves transactions newest first.
	// If symbolID is nil, returns transactions of all symbols
	List(ctx context.Context, symbolID *uuid.UUID) ([]*Transaction, error)
	// ListBySymbol returns the full history of a symbol ordered by date, then Seq
	ListBySymbol(ctx context.Context, symbolID uuid.UUID) ([]*Transaction, error)
}

// PriceRepository defines the interface for price persistence operations
type PriceRepository interface {
	// Upsert stores the price of a symbol for a day, replacing any existing one
	Upsert(ctx context.Context, price *Price) error
	// Latest retrieves the most recent price of a symbol
	Latest(ctx context.Context, symbolID uuid.UUID) (*Price, error)
	// LatestAll retrieves the most recent price of every symbol that has one
	LatestAll(ctx context.Context) (map[uuid.UUID]Price, error)
	// Recent retrieves up to limit prices of a symbol, newest first
	Recent(ctx context.Context, symbolID uuid.UUID, limit int) ([]*Price, error)
}

// RateRepository defines the interface for exchange rate persistence operations
type RateRepository interface {
	// Upsert stores the rate of a pair for a day
	Upsert(ctx context.Context, rate *ExchangeRate) error
	// Latest retrieves the most recent rate of a pair
	Latest(ctx context.Context, base, quote string) (*ExchangeRate, error)
}

// HoldingRepository defines the interface for reading persisted FIFO results
type HoldingRepository interface {
	// Get retrieves the last successfully computed holding of a symbol
	Get(ctx context.Context, symbolID uuid.UUID) (*Holding, error)
	// List retrieves every persisted holding keyed by symbol
	List(ctx context.Context) (map[uuid.UUID]*Holding, error)
}

// ReportRepository persists and reads the aggregate read models
type ReportRepository interface {
	// Save replaces the holdings of the given symbols and every report table in one
	// database transaction, so readers never observe a half-written report
	Save(ctx context.Context, holdings []*Holding, report *Report) error
	// Grid retrieves the per-symbol valuation rows
	Grid(ctx context.Context) ([]ValuationRow, error)
	// Categories retrieves the category rollup ordered by value
	Categories(ctx context.Context) ([]Rollup, error)
	// Exchanges retrieves the exchange/unit rollup ordered by value
	Exchanges(ctx context.Context) ([]Rollup, error)
	// Summary retrieves the portfolio totals
	Summary(ctx context.Context) (*PortfolioSummary, error)
}

// SnapshotRepository defines the interface for portfolio history persistence
type SnapshotRepository interface {
	// Upsert stores the snapshot of a day, replacing any existing one
	Upsert(ctx context.Context, snapshot *PortfolioSnapshot) error
	// List retrieves snapshots ordered by date ascending, optionally from a day on
	List(ctx context.Context, from *time.Time) ([]*PortfolioSnapshot, error)
}
