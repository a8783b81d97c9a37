// Package mocks provides testify mocks of the domain repositories and market sources
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/simaogato/folio-backend/internal/domain"
)

// SymbolRepository is a mock implementation of domain.SymbolRepository
type SymbolRepository struct {
	mock.Mock
}

func (m *SymbolRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Symbol, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Symbol), args.Error(1)
}

func (m *SymbolRepository) Create(ctx context.Context, symbol *domain.Symbol) error {
	args := m.Called(ctx, symbol)
	return args.Error(0)
}

func (m *SymbolRepository) Update(ctx context.Context, symbol *domain.Symbol) error {
	args := m.Called(ctx, symbol)
	return args.Error(0)
}

func (m *SymbolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *SymbolRepository) List(ctx context.Context) ([]*domain.Symbol, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Symbol), args.Error(1)
}

// TransactionRepository is a mock implementation of domain.TransactionRepository
type TransactionRepository struct {
	mock.Mock
}

func (m *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Transaction), args.Error(1)
}

func (m *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *TransactionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *TransactionRepository) List(ctx context.Context, symbolID *uuid.UUID) ([]*domain.Transaction, error) {
	args := m.Called(ctx, symbolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

func (m *TransactionRepository) ListBySymbol(ctx context.Context, symbolID uuid.UUID) ([]*domain.Transaction, error) {
	args := m.Called(ctx, symbolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Transaction), args.Error(1)
}

// PriceRepository is a mock implementation of domain.PriceRepository
type PriceRepository struct {
	mock.Mock
}

func (m *PriceRepository) Upsert(ctx context.Context, price *domain.Price) error {
	args := m.Called(ctx, price)
	return args.Error(0)
}

func (m *PriceRepository) Latest(ctx context.Context, symbolID uuid.UUID) (*domain.Price, error) {
	args := m.Called(ctx, symbolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Price), args.Error(1)
}

func (m *PriceRepository) LatestAll(ctx context.Context) (map[uuid.UUID]domain.Price, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]domain.Price), args.Error(1)
}

func (m *PriceRepository) Recent(ctx context.Context, symbolID uuid.UUID, limit int) ([]*domain.Price, error) {
	args := m.Called(ctx, symbolID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Price), args.Error(1)
}

// RateRepository is a mock implementation of domain.RateRepository
type RateRepository struct {
	mock.Mock
}

func (m *RateRepository) Upsert(ctx context.Context, rate *domain.ExchangeRate) error {
	args := m.Called(ctx, rate)
	return args.Error(0)
}

func (m *RateRepository) Latest(ctx context.Context, base, quote string) (*domain.ExchangeRate, error) {
	args := m.Called(ctx, base, quote)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExchangeRate), args.Error(1)
}

// HoldingRepository is a mock implementation of domain.HoldingRepository
type HoldingRepository struct {
	mock.Mock
}

func (m *HoldingRepository) Get(ctx context.Context, symbolID uuid.UUID) (*domain.Holding, error) {
	args := m.Called(ctx, symbolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Holding), args.Error(1)
}

func (m *HoldingRepository) List(ctx context.Context) (map[uuid.UUID]*domain.Holding, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[uuid.UUID]*domain.Holding), args.Error(1)
}

// ReportRepository is a mock implementation of domain.ReportRepository
type ReportRepository struct {
	mock.Mock
}

func (m *ReportRepository) Save(ctx context.Context, holdings []*domain.Holding, report *domain.Report) error {
	args := m.Called(ctx, holdings, report)
	return args.Error(0)
}

func (m *ReportRepository) Grid(ctx context.Context) ([]domain.ValuationRow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ValuationRow), args.Error(1)
}

func (m *ReportRepository) Categories(ctx context.Context) ([]domain.Rollup, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rollup), args.Error(1)
}

func (m *ReportRepository) Exchanges(ctx context.Context) ([]domain.Rollup, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Rollup), args.Error(1)
}

func (m *ReportRepository) Summary(ctx context.Context) (*domain.PortfolioSummary, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PortfolioSummary), args.Error(1)
}

// SnapshotRepository is a mock implementation of domain.SnapshotRepository
type SnapshotRepository struct {
	mock.Mock
}

func (m *SnapshotRepository) Upsert(ctx context.Context, snapshot *domain.PortfolioSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *SnapshotRepository) List(ctx context.Context, from *time.Time) ([]*domain.PortfolioSnapshot, error) {
	args := m.Called(ctx, from)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.PortfolioSnapshot), args.Error(1)
}

// PriceSource is a mock implementation of domain.PriceSource
type PriceSource struct {
	mock.Mock
}

func (m *PriceSource) Latest(ctx context.Context, code string) (domain.Quote, error) {
	args := m.Called(ctx, code)
	return args.Get(0).(domain.Quote), args.Error(1)
}

// RateSource is a mock implementation of domain.RateSource
type RateSource struct {
	mock.Mock
}

func (m *RateSource) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	args := m.Called(ctx, base, quote)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}
