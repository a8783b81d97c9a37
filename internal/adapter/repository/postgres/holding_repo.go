package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/folio-backend/internal/domain"
)

// holdingRepository implements domain.HoldingRepository
type holdingRepository struct {
	db *DB
}

// NewHoldingRepository creates a new holding repository
func NewHoldingRepository(db *DB) domain.HoldingRepository {
	return &holdingRepository{db: db}
}

// Get retrieves the last successfully computed holding of a symbol
func (r *holdingRepository) Get(ctx context.Context, symbolID uuid.UUID) (*domain.Holding, error) {
	h := domain.Holding{SymbolID: symbolID}
	err := r.db.QueryRowContext(ctx,
		`SELECT computed_at FROM holdings WHERE symbol_id = $1`, symbolID,
	).Scan(&h.ComputedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("holding of symbol %s: %w", symbolID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}

	byID := map[uuid.UUID]*domain.Holding{symbolID: &h}
	if err := r.loadLots(ctx, byID, `WHERE symbol_id = $1`, symbolID); err != nil {
		return nil, err
	}
	if err := r.loadRealizations(ctx, byID, `WHERE symbol_id = $1`, symbolID); err != nil {
		return nil, err
	}
	return &h, nil
}

// List retrieves every persisted holding keyed by symbol
func (r *holdingRepository) List(ctx context.Context) (map[uuid.UUID]*domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT symbol_id, computed_at FROM holdings`)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*domain.Holding)
	for rows.Next() {
		var h domain.Holding
		if err := rows.Scan(&h.SymbolID, &h.ComputedAt); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		byID[h.SymbolID] = &h
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}

	if err := r.loadLots(ctx, byID, ""); err != nil {
		return nil, err
	}
	if err := r.loadRealizations(ctx, byID, ""); err != nil {
		return nil, err
	}
	return byID, nil
}

func (r *holdingRepository) loadLots(ctx context.Context, byID map[uuid.UUID]*domain.Holding, where string, args ...any) error {
	query := `
		SELECT symbol_id, transaction_id, date, original_quantity, remaining, unit_cost
		FROM holding_lots ` + where + `
		ORDER BY symbol_id, position
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to list holding lots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var symbolID uuid.UUID
		var lot domain.Lot
		var originalStr, remainingStr, unitCostStr string
		if err := rows.Scan(&symbolID, &lot.TransactionID, &lot.Date, &originalStr, &remainingStr, &unitCostStr); err != nil {
			return fmt.Errorf("failed to scan holding lot: %w", err)
		}
		if lot.OriginalQuantity, err = parseDecimal("original_quantity", originalStr); err != nil {
			return err
		}
		if lot.Remaining, err = parseDecimal("remaining", remainingStr); err != nil {
			return err
		}
		if lot.UnitCost, err = parseDecimal("unit_cost", unitCostStr); err != nil {
			return err
		}
		lot.Date = domain.Day(lot.Date)
		if h, ok := byID[symbolID]; ok {
			h.Lots = append(h.Lots, lot)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating holding lots: %w", err)
	}
	return nil
}

func (r *holdingRepository) loadRealizations(ctx context.Context, byID map[uuid.UUID]*domain.Holding, where string, args ...any) error {
	query := `
		SELECT symbol_id, sell_transaction_id, lot_transaction_id, date, quantity, unit_cost, sell_price
		FROM holding_realizations ` + where + `
		ORDER BY symbol_id, position
	`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to list holding realizations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var symbolID uuid.UUID
		var rz domain.Realization
		var quantityStr, unitCostStr, sellPriceStr string
		if err := rows.Scan(&symbolID, &rz.SellTransactionID, &rz.LotTransactionID, &rz.Date,
			&quantityStr, &unitCostStr, &sellPriceStr); err != nil {
			return fmt.Errorf("failed to scan holding realization: %w", err)
		}
		if rz.Quantity, err = parseDecimal("quantity", quantityStr); err != nil {
			return err
		}
		if rz.UnitCost, err = parseDecimal("unit_cost", unitCostStr); err != nil {
			return err
		}
		if rz.SellPrice, err = parseDecimal("sell_price", sellPriceStr); err != nil {
			return err
		}
		rz.Date = domain.Day(rz.Date)
		if h, ok := byID[symbolID]; ok {
			h.Realizations = append(h.Realizations, rz)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating holding realizations: %w", err)
	}
	return nil
}

// writeHolding replaces the persisted holding of one symbol inside dbTx
func writeHolding(ctx context.Context, dbTx *sql.Tx, h *domain.Holding) error {
	// Lots and realizations cascade from the holdings row
	if _, err := dbTx.ExecContext(ctx, `DELETE FROM holdings WHERE symbol_id = $1`, h.SymbolID); err != nil {
		return fmt.Errorf("failed to delete holding: %w", err)
	}

	if _, err := dbTx.ExecContext(ctx,
		`INSERT INTO holdings (symbol_id, computed_at) VALUES ($1, $2)`,
		h.SymbolID, h.ComputedAt,
	); err != nil {
		return fmt.Errorf("failed to insert holding: %w", err)
	}

	insertLot := `
		INSERT INTO holding_lots (symbol_id, position, transaction_id, date, original_quantity, remaining, unit_cost)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	for i, lot := range h.Lots {
		if _, err := dbTx.ExecContext(ctx, insertLot,
			h.SymbolID,
			i,
			lot.TransactionID,
			lot.Date,
			lot.OriginalQuantity.String(),
			lot.Remaining.String(),
			lot.UnitCost.String(),
		); err != nil {
			return fmt.Errorf("failed to insert holding lot: %w", err)
		}
	}

	insertRealization := `
		INSERT INTO holding_realizations (symbol_id, position, sell_transaction_id, lot_transaction_id, date, quantity, unit_cost, sell_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i, rz := range h.Realizations {
		if _, err := dbTx.ExecContext(ctx, insertRealization,
			h.SymbolID,
			i,
			rz.SellTransactionID,
			rz.LotTransactionID,
			rz.Date,
			rz.Quantity.String(),
			rz.UnitCost.String(),
			rz.SellPrice.String(),
		); err != nil {
			return fmt.Errorf("failed to insert holding realization: %w", err)
		}
	}

	return nil
}
