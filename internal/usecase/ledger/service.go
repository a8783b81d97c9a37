package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/simaogato/folio-backend/internal/domain"
)

// TransactionService records buy and sell events
type TransactionService struct {
	TransactionRepo domain.TransactionRepository
	SymbolRepo      domain.SymbolRepository
}

// NewTransactionService creates a new TransactionService instance
func NewTransactionService(transactionRepo domain.TransactionRepository, symbolRepo domain.SymbolRepository) *TransactionService {
	return &TransactionService{
		TransactionRepo: transactionRepo,
		SymbolRepo:      symbolRepo,
	}
}

// prepare normalizes and validates a transaction before it is stored.
// Logic:
//  1. Date is truncated to its day, note trimmed
//  2. Balance is advisory and only kept on BUY
//  3. Domain validation (type, non-negative price and quantity)
//  4. The owning symbol must exist
func (s *TransactionService) prepare(ctx context.Context, tx *domain.Transaction) error {
	tx.Date = domain.Day(tx.Date)
	tx.Note = strings.TrimSpace(tx.Note)
	tx.Type = domain.TradeType(strings.ToUpper(string(tx.Type)))
	if tx.Type != domain.TradeBuy {
		tx.Balance = nil
	}

	if err := tx.Validate(); err != nil {
		return err
	}

	if _, err := s.SymbolRepo.GetByID(ctx, tx.SymbolID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: symbol %s does not exist", domain.ErrMalformedTransaction, tx.SymbolID)
		}
		return err
	}
	return nil
}

// Create records a new transaction; the store assigns its insertion sequence
func (s *TransactionService) Create(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	if err := s.prepare(ctx, tx); err != nil {
		return nil, err
	}

	tx.ID = uuid.New()
	if err := s.TransactionRepo.Create(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// Update overwrites an existing transaction, keeping its insertion sequence
func (s *TransactionService) Update(ctx context.Context, tx *domain.Transaction) (*domain.Transaction, error) {
	existing, err := s.TransactionRepo.GetByID(ctx, tx.ID)
	if err != nil {
		return nil, err
	}

	if err := s.prepare(ctx, tx); err != nil {
		return nil, err
	}

	tx.Seq = existing.Seq
	if err := s.TransactionRepo.Update(ctx, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// Delete removes a transaction
func (s *TransactionService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.TransactionRepo.Delete(ctx, id)
}

// Get returns one transaction
func (s *TransactionService) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.TransactionRepo.GetByID(ctx, id)
}

// List returns transactions newest first, optionally of one symbol
func (s *TransactionService) List(ctx context.Context, symbolID *uuid.UUID) ([]*domain.Transaction, error) {
	return s.TransactionRepo.List(ctx, symbolID)
}
