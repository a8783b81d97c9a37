package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/folio-backend/internal/domain"
)

// symbolRepository implements domain.SymbolRepository
type symbolRepository struct {
	db *DB
}

// NewSymbolRepository creates a new symbol repository
func NewSymbolRepository(db *DB) domain.SymbolRepository {
	return &symbolRepository{db: db}
}

const symbolColumns = `id, name, code, unit, kind, sub_code, market_category, note, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSymbol(row rowScanner) (*domain.Symbol, error) {
	var s domain.Symbol
	var unit, kind, market string
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.Code,
		&unit,
		&kind,
		&s.SubCode,
		&market,
		&s.Note,
		&s.CreatedAt,
	); err != nil {
		return nil, err
	}
	s.Unit = domain.SettlementUnit(unit)
	s.Kind = domain.InstrumentKind(kind)
	s.Market = domain.MarketCategory(market)
	return &s, nil
}

// GetByID retrieves a symbol by its ID
func (r *symbolRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Symbol, error) {
	query := `SELECT ` + symbolColumns + ` FROM symbols WHERE id = $1`

	s, err := scanSymbol(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("symbol %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get symbol by ID: %w", err)
	}
	return s, nil
}

// Create creates a new symbol
func (r *symbolRepository) Create(ctx context.Context, s *domain.Symbol) error {
	query := `
		INSERT INTO symbols (id, name, code, unit, kind, sub_code, market_category, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		s.ID,
		s.Name,
		s.Code,
		string(s.Unit),
		string(s.Kind),
		s.SubCode,
		string(s.Market),
		s.Note,
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create symbol: %w", err)
	}

	return nil
}

// Update overwrites the mutable fields of a symbol
func (r *symbolRepository) Update(ctx context.Context, s *domain.Symbol) error {
	query := `
		UPDATE symbols
		SET name = $2, code = $3, unit = $4, kind = $5, sub_code = $6, market_category = $7, note = $8
		WHERE id = $1
	`

	res, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.Name,
		s.Code,
		string(s.Unit),
		string(s.Kind),
		s.SubCode,
		string(s.Market),
		s.Note,
	)
	if err != nil {
		return fmt.Errorf("failed to update symbol: %w", err)
	}
	return expectOneRow(res, "symbol", s.ID)
}

// Delete removes a symbol. Transactions, prices and holdings go with it through
// ON DELETE CASCADE; the report row is removed in the same database transaction.
func (r *symbolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	res, err := dbTx.ExecContext(ctx, `DELETE FROM symbols WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete symbol: %w", err)
	}
	if err := expectOneRow(res, "symbol", id); err != nil {
		return err
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM rep_grid WHERE symbol_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete report row: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List retrieves all symbols, newest first
func (r *symbolRepository) List(ctx context.Context) ([]*domain.Symbol, error) {
	query := `SELECT ` + symbolColumns + ` FROM symbols ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []*domain.Symbol
	for rows.Next() {
		s, err := scanSymbol(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating symbols: %w", err)
	}

	return symbols, nil
}

// expectOneRow turns an UPDATE or DELETE that matched nothing into ErrNotFound
func expectOneRow(res sql.Result, entity string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", entity, id, domain.ErrNotFound)
	}
	return nil
}
