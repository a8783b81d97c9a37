package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/simaogato/folio-backend/internal/domain"
)

// snapshotRepository implements domain.SnapshotRepository
type snapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new portfolio snapshot repository
func NewSnapshotRepository(db *DB) domain.SnapshotRepository {
	return &snapshotRepository{db: db}
}

// Upsert stores the snapshot of a day, replacing any existing one
func (r *snapshotRepository) Upsert(ctx context.Context, snapshot *domain.PortfolioSnapshot) error {
	query := `
		INSERT INTO portfolio_snapshots (date, value, cost)
		VALUES ($1, $2, $3)
		ON CONFLICT (date) DO UPDATE SET value = EXCLUDED.value, cost = EXCLUDED.cost
	`

	_, err := r.db.ExecContext(ctx, query,
		snapshot.Date,
		snapshot.Value.String(),
		nullDecimal(snapshot.Cost),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert portfolio snapshot: %w", err)
	}

	return nil
}

// List retrieves snapshots ordered by date ascending, optionally from a day on
func (r *snapshotRepository) List(ctx context.Context, from *time.Time) ([]*domain.PortfolioSnapshot, error) {
	query := `SELECT date, value, cost FROM portfolio_snapshots`
	var args []any
	if from != nil {
		query += ` WHERE date >= $1`
		args = append(args, *from)
	}
	query += ` ORDER BY date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list portfolio snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*domain.PortfolioSnapshot
	for rows.Next() {
		var s domain.PortfolioSnapshot
		var valueStr string
		var cost sql.NullString
		if err := rows.Scan(&s.Date, &valueStr, &cost); err != nil {
			return nil, fmt.Errorf("failed to scan portfolio snapshot: %w", err)
		}
		if s.Value, err = parseDecimal("value", valueStr); err != nil {
			return nil, err
		}
		if s.Cost, err = parseNullDecimal("cost", cost); err != nil {
			return nil, err
		}
		s.Date = domain.Day(s.Date)
		snapshots = append(snapshots, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolio snapshots: %w", err)
	}

	return snapshots, nil
}
