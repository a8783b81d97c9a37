package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/simaogato/folio-backend/internal/domain"
)

// SymbolService manages the tradable instruments
type SymbolService struct {
	SymbolRepo domain.SymbolRepository
}

// NewSymbolService creates a new SymbolService instance
func NewSymbolService(symbolRepo domain.SymbolRepository) *SymbolService {
	return &SymbolService{SymbolRepo: symbolRepo}
}

// normalize trims free text and upper-cases codes
func normalize(s *domain.Symbol) {
	s.Name = strings.TrimSpace(s.Name)
	s.Code = strings.ToUpper(strings.TrimSpace(s.Code))
	s.SubCode = strings.ToUpper(strings.TrimSpace(s.SubCode))
	s.Note = strings.TrimSpace(s.Note)
}

// Create registers a new symbol with a fresh ID
func (s *SymbolService) Create(ctx context.Context, symbol *domain.Symbol) (*domain.Symbol, error) {
	normalize(symbol)
	if err := symbol.Validate(); err != nil {
		return nil, err
	}

	symbol.ID = uuid.New()
	if err := s.SymbolRepo.Create(ctx, symbol); err != nil {
		return nil, err
	}

	return symbol, nil
}

// Update overwrites the mutable fields of an existing symbol.
// The ID identifies the symbol and never changes; CreatedAt is kept.
func (s *SymbolService) Update(ctx context.Context, symbol *domain.Symbol) (*domain.Symbol, error) {
	existing, err := s.SymbolRepo.GetByID(ctx, symbol.ID)
	if err != nil {
		return nil, err
	}

	normalize(symbol)
	if err := symbol.Validate(); err != nil {
		return nil, err
	}

	symbol.CreatedAt = existing.CreatedAt
	if err := s.SymbolRepo.Update(ctx, symbol); err != nil {
		return nil, err
	}

	return symbol, nil
}

// Delete removes a symbol with its transactions, prices and holding
func (s *SymbolService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.SymbolRepo.Delete(ctx, id)
}

// Get returns one symbol
func (s *SymbolService) Get(ctx context.Context, id uuid.UUID) (*domain.Symbol, error) {
	return s.SymbolRepo.GetByID(ctx, id)
}

// List returns every symbol, newest first
func (s *SymbolService) List(ctx context.Context) ([]*domain.Symbol, error) {
	return s.SymbolRepo.List(ctx)
}
