package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/simaogato/folio-backend/internal/domain"
)

// PerformanceWindow is the number of most recent prices a performance read looks at
const PerformanceWindow = 100

var hundred = decimal.NewFromInt(100)

// Service serves the report read models produced by the last recompute
type Service struct {
	ReportRepo   domain.ReportRepository
	SnapshotRepo domain.SnapshotRepository
	PriceRepo    domain.PriceRepository
	SymbolRepo   domain.SymbolRepository
	Location     *time.Location

	now func() time.Time
}

// NewService creates a new report Service
func NewService(
	reportRepo domain.ReportRepository,
	snapshotRepo domain.SnapshotRepository,
	priceRepo domain.PriceRepository,
	symbolRepo domain.SymbolRepository,
	loc *time.Location,
) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		ReportRepo:   reportRepo,
		SnapshotRepo: snapshotRepo,
		PriceRepo:    priceRepo,
		SymbolRepo:   symbolRepo,
		Location:     loc,
		now:          time.Now,
	}
}

// WithClock overrides the clock performance windows are measured from
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Grid returns the per-symbol valuation rows
func (s *Service) Grid(ctx context.Context) ([]domain.ValuationRow, error) {
	return s.ReportRepo.Grid(ctx)
}

// Categories returns the category rollup
func (s *Service) Categories(ctx context.Context) ([]domain.Rollup, error) {
	return s.ReportRepo.Categories(ctx)
}

// Exchanges returns the exchange/unit rollup
func (s *Service) Exchanges(ctx context.Context) ([]domain.Rollup, error) {
	return s.ReportRepo.Exchanges(ctx)
}

// Summary returns the portfolio totals
func (s *Service) Summary(ctx context.Context) (*domain.PortfolioSummary, error) {
	return s.ReportRepo.Summary(ctx)
}

// History returns the portfolio snapshots in date order, optionally from a day on
func (s *Service) History(ctx context.Context, from *time.Time) ([]*domain.PortfolioSnapshot, error) {
	if from != nil {
		day := domain.Day(*from)
		from = &day
	}
	return s.SnapshotRepo.List(ctx, from)
}

// Performance returns how the price of a symbol moved over standard look-back windows.
// Logic:
//   - Look at the last PerformanceWindow prices, newest first
//   - Latest is the newest price
//   - Each window compares the newest price with the closest price on or before
//     today minus the window (1 day, 5 days, 1 month, 3 months)
//   - SinceFirst compares it with the oldest price in the window
//
// A window with no old enough price, or a zero old price, is nil.
func (s *Service) Performance(ctx context.Context, symbolID uuid.UUID) (*domain.Performance, error) {
	if _, err := s.SymbolRepo.GetByID(ctx, symbolID); err != nil {
		return nil, err
	}

	prices, err := s.PriceRepo.Recent(ctx, symbolID, PerformanceWindow)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	perf := &domain.Performance{}
	if len(prices) == 0 {
		return perf, nil
	}

	latest := prices[0].Value
	perf.Latest = &latest

	today := domain.DayIn(s.now(), s.Location)
	perf.Day1 = changeSince(prices, today.AddDate(0, 0, -1), latest)
	perf.Day5 = changeSince(prices, today.AddDate(0, 0, -5), latest)
	perf.Month1 = changeSince(prices, today.AddDate(0, -1, 0), latest)
	perf.Month3 = changeSince(prices, today.AddDate(0, -3, 0), latest)
	perf.SinceFirst = change(prices[len(prices)-1].Value, latest)

	return perf, nil
}

// changeSince finds the newest price dated on or before target.
// prices must be ordered newest first.
func changeSince(prices []*domain.Price, target time.Time, latest decimal.Decimal) *decimal.Decimal {
	for _, p := range prices {
		if !domain.Day(p.Date).After(target) {
			return change(p.Value, latest)
		}
	}
	return nil
}

// change returns (newer - older) / older * 100, or nil when older is zero
func change(older, newer decimal.Decimal) *decimal.Decimal {
	if older.IsZero() {
		return nil
	}
	pct := newer.Sub(older).Mul(hundred).DivRound(older, 4)
	return &pct
}
