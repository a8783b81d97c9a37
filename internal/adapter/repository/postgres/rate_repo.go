package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/folio-backend/internal/domain"
)

// rateRepository implements domain.RateRepository
type rateRepository struct {
	db *DB
}

// NewRateRepository creates a new exchange rate repository
func NewRateRepository(db *DB) domain.RateRepository {
	return &rateRepository{db: db}
}

// Upsert stores the rate of a pair for a day
func (r *rateRepository) Upsert(ctx context.Context, rate *domain.ExchangeRate) error {
	query := `
		INSERT INTO exchange_rates (base, quote, date, rate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (base, quote, date) DO UPDATE SET rate = EXCLUDED.rate
	`

	_, err := r.db.ExecContext(ctx, query,
		rate.Base,
		rate.Quote,
		rate.Date,
		rate.Rate.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert exchange rate: %w", err)
	}

	return nil
}

// Latest retrieves the most recent rate of a pair
func (r *rateRepository) Latest(ctx context.Context, base, quote string) (*domain.ExchangeRate, error) {
	query := `
		SELECT base, quote, date, rate
		FROM exchange_rates
		WHERE base = $1 AND quote = $2
		ORDER BY date DESC
		LIMIT 1
	`

	var rate domain.ExchangeRate
	var rateStr string

	err := r.db.QueryRowContext(ctx, query, base, quote).Scan(
		&rate.Base,
		&rate.Quote,
		&rate.Date,
		&rateStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no %s/%s rate: %w", base, quote, domain.ErrMissingExchangeRate)
		}
		return nil, fmt.Errorf("failed to get latest exchange rate: %w", err)
	}

	if rate.Rate, err = parseDecimal("rate", rateStr); err != nil {
		return nil, err
	}
	rate.Date = domain.Day(rate.Date)

	return &rate, nil
}
