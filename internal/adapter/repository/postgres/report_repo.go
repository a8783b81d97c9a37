package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simaogato/folio-backend/internal/domain"
)

// reportRepository implements domain.ReportRepository
type reportRepository struct {
	db *DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *DB) domain.ReportRepository {
	return &reportRepository{db: db}
}

// Save replaces the given holdings and all report tables in one database transaction.
// Logic:
//  1. Replace the holding of every successfully computed symbol
//  2. Truncate and refill rep_grid, rep_category and rep_exchange
//  3. Replace the single rep_summary row
//  4. Commit; on any error nothing is visible to readers
func (r *reportRepository) Save(ctx context.Context, holdings []*domain.Holding, report *domain.Report) error {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer dbTx.Rollback()

	for _, h := range holdings {
		if err := writeHolding(ctx, dbTx, h); err != nil {
			return err
		}
	}

	if err := writeGrid(ctx, dbTx, report.Rows); err != nil {
		return err
	}
	if err := writeRollups(ctx, dbTx, "rep_category", report.Categories); err != nil {
		return err
	}
	if err := writeRollups(ctx, dbTx, "rep_exchange", report.Exchanges); err != nil {
		return err
	}

	if _, err := dbTx.ExecContext(ctx, `DELETE FROM rep_summary`); err != nil {
		return fmt.Errorf("failed to clear summary: %w", err)
	}
	_, err = dbTx.ExecContext(ctx, `
		INSERT INTO rep_summary (total_cost, total_value, profit_loss, profit_loss_pct, incomplete, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`,
		nullDecimal(report.Summary.TotalCost),
		report.Summary.TotalValue.String(),
		nullDecimal(report.Summary.ProfitLoss),
		nullDecimal(report.Summary.ProfitLossPct),
		report.Summary.Incomplete,
		report.ComputedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func writeGrid(ctx context.Context, dbTx *sql.Tx, rows []domain.ValuationRow) error {
	if _, err := dbTx.ExecContext(ctx, `DELETE FROM rep_grid`); err != nil {
		return fmt.Errorf("failed to clear grid: %w", err)
	}

	query := `
		INSERT INTO rep_grid (symbol_id, position, code, name, category, exchange, currency, balance,
			average_cost, current_price, total_cost, market_value, profit_loss, profit_loss_pct, realized_gain, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	for i, row := range rows {
		_, err := dbTx.ExecContext(ctx, query,
			row.SymbolID,
			i,
			row.Code,
			row.Name,
			row.Category,
			row.Exchange,
			row.Currency,
			row.Balance.String(),
			nullDecimal(row.AverageCost),
			nullDecimal(row.CurrentPrice),
			nullDecimal(row.TotalCost),
			nullDecimal(row.MarketValue),
			nullDecimal(row.ProfitLoss),
			nullDecimal(row.ProfitLossPct),
			row.RealizedGain.String(),
			string(row.Status),
		)
		if err != nil {
			return fmt.Errorf("failed to insert grid row: %w", err)
		}
	}
	return nil
}

// writeRollups refills one rollup table; table is always a package constant
func writeRollups(ctx context.Context, dbTx *sql.Tx, table string, rollups []domain.Rollup) error {
	if _, err := dbTx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	query := `INSERT INTO ` + table + ` (key, position, symbol_count, total_cost, total_value, incomplete)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, agg := range rollups {
		_, err := dbTx.ExecContext(ctx, query,
			agg.Key,
			i,
			agg.SymbolCount,
			nullDecimal(agg.TotalCost),
			agg.TotalValue.String(),
			agg.Incomplete,
		)
		if err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

// Grid retrieves the per-symbol valuation rows in report order
func (r *reportRepository) Grid(ctx context.Context) ([]domain.ValuationRow, error) {
	query := `
		SELECT symbol_id, code, name, category, exchange, currency, balance, average_cost, current_price,
			total_cost, market_value, profit_loss, profit_loss_pct, realized_gain, status
		FROM rep_grid
		ORDER BY position
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list grid: %w", err)
	}
	defer rows.Close()

	var grid []domain.ValuationRow
	for rows.Next() {
		var row domain.ValuationRow
		var balanceStr, realizedStr, status string
		var avgCost, price, cost, value, pl, plPct sql.NullString

		if err := rows.Scan(
			&row.SymbolID,
			&row.Code,
			&row.Name,
			&row.Category,
			&row.Exchange,
			&row.Currency,
			&balanceStr,
			&avgCost,
			&price,
			&cost,
			&value,
			&pl,
			&plPct,
			&realizedStr,
			&status,
		); err != nil {
			return nil, fmt.Errorf("failed to scan grid row: %w", err)
		}
		row.Status = domain.ValuationStatus(status)

		if row.Balance, err = parseDecimal("balance", balanceStr); err != nil {
			return nil, err
		}
		if row.RealizedGain, err = parseDecimal("realized_gain", realizedStr); err != nil {
			return nil, err
		}
		if row.AverageCost, err = parseNullDecimal("average_cost", avgCost); err != nil {
			return nil, err
		}
		if row.CurrentPrice, err = parseNullDecimal("current_price", price); err != nil {
			return nil, err
		}
		if row.TotalCost, err = parseNullDecimal("total_cost", cost); err != nil {
			return nil, err
		}
		if row.MarketValue, err = parseNullDecimal("market_value", value); err != nil {
			return nil, err
		}
		if row.ProfitLoss, err = parseNullDecimal("profit_loss", pl); err != nil {
			return nil, err
		}
		if row.ProfitLossPct, err = parseNullDecimal("profit_loss_pct", plPct); err != nil {
			return nil, err
		}
		grid = append(grid, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating grid: %w", err)
	}

	return grid, nil
}

// Categories retrieves the category rollup ordered by value
func (r *reportRepository) Categories(ctx context.Context) ([]domain.Rollup, error) {
	return r.rollups(ctx, "rep_category")
}

// Exchanges retrieves the exchange/unit rollup ordered by value
func (r *reportRepository) Exchanges(ctx context.Context) ([]domain.Rollup, error) {
	return r.rollups(ctx, "rep_exchange")
}

func (r *reportRepository) rollups(ctx context.Context, table string) ([]domain.Rollup, error) {
	query := `SELECT key, symbol_count, total_cost, total_value, incomplete FROM ` + table + ` ORDER BY position`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", table, err)
	}
	defer rows.Close()

	var out []domain.Rollup
	for rows.Next() {
		var agg domain.Rollup
		var cost sql.NullString
		var valueStr string
		if err := rows.Scan(&agg.Key, &agg.SymbolCount, &cost, &valueStr, &agg.Incomplete); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		if agg.TotalCost, err = parseNullDecimal("total_cost", cost); err != nil {
			return nil, err
		}
		if agg.TotalValue, err = parseDecimal("total_value", valueStr); err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating %s: %w", table, err)
	}

	return out, nil
}

// Summary retrieves the portfolio totals; before the first recompute the value is zero
// and the other figures are absent
func (r *reportRepository) Summary(ctx context.Context) (*domain.PortfolioSummary, error) {
	query := `SELECT total_cost, total_value, profit_loss, profit_loss_pct, incomplete FROM rep_summary`

	var s domain.PortfolioSummary
	var valueStr string
	var cost, pl, plPct sql.NullString

	err := r.db.QueryRowContext(ctx, query).Scan(&cost, &valueStr, &pl, &plPct, &s.Incomplete)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &s, nil
		}
		return nil, fmt.Errorf("failed to get summary: %w", err)
	}

	if s.TotalCost, err = parseNullDecimal("total_cost", cost); err != nil {
		return nil, err
	}
	if s.TotalValue, err = parseDecimal("total_value", valueStr); err != nil {
		return nil, err
	}
	if s.ProfitLoss, err = parseNullDecimal("profit_loss", pl); err != nil {
		return nil, err
	}
	if s.ProfitLossPct, err = parseNullDecimal("profit_loss_pct", plPct); err != nil {
		return nil, err
	}

	return &s, nil
}
