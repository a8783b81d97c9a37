package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/folio-backend/internal/domain"
)

// priceRepository implements domain.PriceRepository
type priceRepository struct {
	db *DB
}

// NewPriceRepository creates a new price repository
func NewPriceRepository(db *DB) domain.PriceRepository {
	return &priceRepository{db: db}
}

func scanPrice(row rowScanner) (*domain.Price, error) {
	var p domain.Price
	var valueStr string
	if err := row.Scan(&p.SymbolID, &p.Date, &valueStr); err != nil {
		return nil, err
	}
	value, err := parseDecimal("value", valueStr)
	if err != nil {
		return nil, err
	}
	p.Value = value
	p.Date = domain.Day(p.Date)
	return &p, nil
}

// Upsert stores the price of a symbol for a day, replacing any existing one
func (r *priceRepository) Upsert(ctx context.Context, price *domain.Price) error {
	query := `
		INSERT INTO prices (symbol_id, date, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (symbol_id, date) DO UPDATE SET value = EXCLUDED.value
	`

	_, err := r.db.ExecContext(ctx, query,
		price.SymbolID,
		price.Date,
		price.Value.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price: %w", err)
	}

	return nil
}

// Latest retrieves the most recent price of a symbol
func (r *priceRepository) Latest(ctx context.Context, symbolID uuid.UUID) (*domain.Price, error) {
	query := `
		SELECT symbol_id, date, value
		FROM prices
		WHERE symbol_id = $1
		ORDER BY date DESC
		LIMIT 1
	`

	p, err := scanPrice(r.db.QueryRowContext(ctx, query, symbolID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no price for symbol %s: %w", symbolID, domain.ErrMissingPrice)
		}
		return nil, fmt.Errorf("failed to get latest price: %w", err)
	}
	return p, nil
}

// LatestAll retrieves the most recent price of every symbol that has one
func (r *priceRepository) LatestAll(ctx context.Context) (map[uuid.UUID]domain.Price, error) {
	query := `
		SELECT DISTINCT ON (symbol_id) symbol_id, date, value
		FROM prices
		ORDER BY symbol_id, date DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list latest prices: %w", err)
	}
	defer rows.Close()

	prices := make(map[uuid.UUID]domain.Price)
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices[p.SymbolID] = *p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return prices, nil
}

// Recent retrieves up to limit prices of a symbol, newest first
func (r *priceRepository) Recent(ctx context.Context, symbolID uuid.UUID, limit int) ([]*domain.Price, error) {
	query := `
		SELECT symbol_id, date, value
		FROM prices
		WHERE symbol_id = $1
		ORDER BY date DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, symbolID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent prices: %w", err)
	}
	defer rows.Close()

	var prices []*domain.Price
	for rows.Next() {
		p, err := scanPrice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		prices = append(prices, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prices: %w", err)
	}

	return prices, nil
}
