package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/simaogato/folio-backend/internal/domain"
)

// transactionRepository implements domain.TransactionRepository
type transactionRepository struct {
	db *DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *DB) domain.TransactionRepository {
	return &transactionRepository{db: db}
}

const transactionColumns = `id, seq, symbol_id, date, type, price, quantity, balance, note`

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var tx domain.Transaction
	var txType, priceStr, quantityStr string
	var balanceStr sql.NullString

	if err := row.Scan(
		&tx.ID,
		&tx.Seq,
		&tx.SymbolID,
		&tx.Date,
		&txType,
		&priceStr,
		&quantityStr,
		&balanceStr,
		&tx.Note,
	); err != nil {
		return nil, err
	}
	tx.Type = domain.TradeType(txType)
	tx.Date = domain.Day(tx.Date)

	var err error
	if tx.Price, err = parseDecimal("price", priceStr); err != nil {
		return nil, err
	}
	if tx.Quantity, err = parseDecimal("quantity", quantityStr); err != nil {
		return nil, err
	}
	if tx.Balance, err = parseNullDecimal("balance", balanceStr); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetByID retrieves a transaction by its ID
func (r *transactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get transaction by ID: %w", err)
	}
	return tx, nil
}

// Create inserts a transaction; the database assigns Seq
func (r *transactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (id, symbol_id, date, type, price, quantity, balance, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING seq
	`

	err := r.db.QueryRowContext(ctx, query,
		tx.ID,
		tx.SymbolID,
		tx.Date,
		string(tx.Type),
		tx.Price.String(),
		tx.Quantity.String(),
		nullDecimal(tx.Balance),
		tx.Note,
	).Scan(&tx.Seq)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	return nil
}

// Update overwrites a transaction, preserving its Seq
func (r *transactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	query := `
		UPDATE transactions
		SET symbol_id = $2, date = $3, type = $4, price = $5, quantity = $6, balance = $7, note = $8
		WHERE id = $1
		RETURNING seq
	`

	err := r.db.QueryRowContext(ctx, query,
		tx.ID,
		tx.SymbolID,
		tx.Date,
		string(tx.Type),
		tx.Price.String(),
		tx.Quantity.String(),
		nullDecimal(tx.Balance),
		tx.Note,
	).Scan(&tx.Seq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("transaction %s: %w", tx.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("failed to update transaction: %w", err)
	}

	return nil
}

// Delete removes a transaction
func (r *transactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return expectOneRow(res, "transaction", id)
}

// List retrieves transactions newest first, optionally filtered by symbol
func (r *transactionRepository) List(ctx context.Context, symbolID *uuid.UUID) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions`
	var args []any
	if symbolID != nil {
		query += ` WHERE symbol_id = $1`
		args = append(args, *symbolID)
	}
	query += ` ORDER BY date DESC, seq DESC`

	return r.query(ctx, query, args...)
}

// ListBySymbol returns the full history of a symbol in date, then insertion order
func (r *transactionRepository) ListBySymbol(ctx context.Context, symbolID uuid.UUID) ([]*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE symbol_id = $1 ORDER BY date, seq`
	return r.query(ctx, query, symbolID)
}

func (r *transactionRepository) query(ctx context.Context, query string, args ...any) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return txs, nil
}
