package recompute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/folio-backend/internal/common"
	"github.com/simaogato/folio-backend/internal/domain"
	"github.com/simaogato/folio-backend/internal/usecase/fifo"
	"github.com/simaogato/folio-backend/internal/usecase/snapshot"
	"github.com/simaogato/folio-backend/internal/usecase/valuation"
)

// Config tunes a recompute run
type Config struct {
	Policy    fifo.SameDayPolicy
	Workers   int
	Valuation valuation.Config
}

// Service recomputes every holding and refreshes the report read models
type Service struct {
	SymbolRepo      domain.SymbolRepository
	TransactionRepo domain.TransactionRepository
	PriceRepo       domain.PriceRepository
	RateRepo        domain.RateRepository
	HoldingRepo     domain.HoldingRepository
	ReportRepo      domain.ReportRepository
	Snapshots       *snapshot.Writer
	Logger          *common.Logger

	cfg Config
	now func() time.Time
	mu  sync.Mutex // one run at a time
}

// NewService creates a new recompute Service
func NewService(
	symbolRepo domain.SymbolRepository,
	transactionRepo domain.TransactionRepository,
	priceRepo domain.PriceRepository,
	rateRepo domain.RateRepository,
	holdingRepo domain.HoldingRepository,
	reportRepo domain.ReportRepository,
	snapshots *snapshot.Writer,
	cfg Config,
	logger *common.Logger,
) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		SymbolRepo:      symbolRepo,
		TransactionRepo: transactionRepo,
		PriceRepo:       priceRepo,
		RateRepo:        rateRepo,
		HoldingRepo:     holdingRepo,
		ReportRepo:      reportRepo,
		Snapshots:       snapshots,
		Logger:          logger,
		cfg:             cfg,
		now:             time.Now,
	}
}

// WithClock overrides the clock used to stamp holdings, reports and snapshots
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type outcome struct {
	holding *domain.Holding
	err     error
}

// Run replays every symbol's history and swaps in a fresh report.
// Logic:
//  1. Run the FIFO engine per symbol with bounded parallelism; an engine error only
//     fails that symbol
//  2. Failed symbols are valued from their last persisted holding (status STALE)
//  3. Value all symbols against the latest prices and reference rate
//  4. Save the successful holdings and the report in one database transaction
//  5. Upsert today's portfolio snapshot
//
// The returned error is reserved for infrastructure failures; per-symbol problems
// are reported in the result.
func (s *Service) Run(ctx context.Context) (*domain.RecomputeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	started := s.now()

	symbols, err := s.SymbolRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	outcomes, err := s.replay(ctx, symbols, started)
	if err != nil {
		return nil, err
	}

	var previous map[uuid.UUID]*domain.Holding
	result := &domain.RecomputeResult{}
	inputs := make([]valuation.Input, 0, len(symbols))
	holdings := make([]*domain.Holding, 0, len(symbols))

	for i, sym := range symbols {
		out := outcomes[i]
		if out.err == nil {
			holdings = append(holdings, out.holding)
			inputs = append(inputs, valuation.Input{Symbol: sym, Holding: out.holding})
			continue
		}

		s.Logger.Warn().
			Str("symbol_id", sym.ID.String()).
			Str("code", sym.Code).
			Err(out.err).
			Msg("FIFO recompute failed, keeping last holding")
		result.Failed = append(result.Failed, domain.SymbolFailure{SymbolID: sym.ID, Code: sym.Code, Err: out.err})

		if previous == nil {
			if previous, err = s.HoldingRepo.List(ctx); err != nil {
				return nil, fmt.Errorf("failed to load previous holdings: %w", err)
			}
		}
		inputs = append(inputs, valuation.Input{Symbol: sym, Holding: previous[sym.ID], Stale: true})
	}

	prices, err := s.PriceRepo.LatestAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	rate, err := s.referenceRate(ctx)
	if err != nil {
		return nil, err
	}

	report := valuation.Build(inputs, valuation.PricesFromMap(prices), rate, s.cfg.Valuation, started)

	if err := s.ReportRepo.Save(ctx, holdings, report); err != nil {
		return nil, fmt.Errorf("failed to save report: %w", err)
	}

	if _, err := s.Snapshots.Write(ctx, report.Summary, started); err != nil {
		return nil, fmt.Errorf("failed to write snapshot: %w", err)
	}

	for _, row := range report.Rows {
		switch row.Status {
		case domain.StatusOK:
			result.Succeeded = append(result.Succeeded, row.SymbolID)
		case domain.StatusMissingPrice, domain.StatusMissingRate:
			result.Partial = append(result.Partial, domain.SymbolIssue{SymbolID: row.SymbolID, Code: row.Code, Status: row.Status})
		}
	}
	result.Summary = report.Summary

	s.Logger.Info().
		Int("symbols", len(symbols)).
		Int("succeeded", len(result.Succeeded)).
		Int("partial", len(result.Partial)).
		Int("failed", len(result.Failed)).
		Str("total_value", report.Summary.TotalValue.StringFixed(2)).
		Int("incomplete", report.Summary.Incomplete).
		Dur("elapsed", s.now().Sub(started)).
		Msg("recompute finished")

	return result, nil
}

// replay runs the engine for every symbol. Symbols share nothing, so they run in
// parallel; a symbol's own history is always replayed in order by a single goroutine.
func (s *Service) replay(ctx context.Context, symbols []*domain.Symbol, at time.Time) ([]outcome, error) {
	outcomes := make([]outcome, len(symbols))
	clock := func() time.Time { return at }

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)

	for i, sym := range symbols {
		g.Go(func() error {
			txs, err := s.TransactionRepo.ListBySymbol(gctx, sym.ID)
			if err != nil {
				return fmt.Errorf("failed to list transactions of symbol %s: %w", sym.ID, err)
			}
			h, err := fifo.Run(sym.ID, txs, fifo.WithSameDayPolicy(s.cfg.Policy), fifo.WithClock(clock))
			outcomes[i] = outcome{holding: h, err: err}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}

// referenceRate returns the stored reference/local rate, or nil when none was ever recorded
func (s *Service) referenceRate(ctx context.Context) (*decimal.Decimal, error) {
	ref, local := s.cfg.Valuation.ReferenceCurrency, s.cfg.Valuation.LocalCurrency
	r, err := s.RateRepo.Latest(ctx, ref, local)
	if err != nil {
		if errors.Is(err, domain.ErrMissingExchangeRate) {
			s.Logger.Warn().Str("pair", ref+"/"+local).Msg("no exchange rate recorded")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load exchange rate: %w", err)
	}
	return &r.Rate, nil
}
