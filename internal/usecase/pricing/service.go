package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/simaogato/folio-backend/internal/common"
	"github.com/simaogato/folio-backend/internal/domain"
)

// BTCPair is the crypto pair quoted for the headline BTC/USD rate
const BTCPair = "BTCUSDT"

// SourceRouter resolves the price source of a market category
type SourceRouter interface {
	Source(market domain.MarketCategory) (domain.PriceSource, error)
}

// Config tunes a price ingestion run
type Config struct {
	Concurrency       int
	Timeout           time.Duration
	ReferenceCurrency string
	LocalCurrency     string
	Location          *time.Location
}

// Service refreshes symbol prices and exchange rates from external sources
type Service struct {
	SymbolRepo  domain.SymbolRepository
	HoldingRepo domain.HoldingRepository
	PriceRepo   domain.PriceRepository
	RateRepo    domain.RateRepository
	Sources     SourceRouter
	Rates       domain.RateSource
	Logger      *common.Logger

	cfg Config
	now func() time.Time
}

// NewService creates a new pricing Service
func NewService(
	symbolRepo domain.SymbolRepository,
	holdingRepo domain.HoldingRepository,
	priceRepo domain.PriceRepository,
	rateRepo domain.RateRepository,
	sources SourceRouter,
	rates domain.RateSource,
	cfg Config,
	logger *common.Logger,
) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.ReferenceCurrency == "" {
		cfg.ReferenceCurrency = "USD"
	}
	if cfg.LocalCurrency == "" {
		cfg.LocalCurrency = "TRY"
	}
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Service{
		SymbolRepo:  symbolRepo,
		HoldingRepo: holdingRepo,
		PriceRepo:   priceRepo,
		RateRepo:    rateRepo,
		Sources:     sources,
		Rates:       rates,
		Logger:      logger,
		cfg:         cfg,
		now:         time.Now,
	}
}

// WithClock overrides the clock used to key prices and rates by day
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

type fetchOutcome struct {
	update *domain.PriceUpdate
	err    error
}

// UpdatePrices fetches today's price of every held symbol.
// Logic:
//  1. Fetch and store the reference/local rate; fall back to the last stored one
//  2. Candidates are symbols whose last holding has a positive balance
//  3. Fetch each candidate concurrently (bounded) with its own timeout
//  4. Convert local-currency quotes to the reference currency and upsert on (symbol, today)
//
// A symbol that fails never stops the others; failures are listed in the result.
func (s *Service) UpdatePrices(ctx context.Context) (*domain.PriceBatchResult, error) {
	today := domain.DayIn(s.now(), s.cfg.Location)

	rate, err := s.refreshRate(ctx, today)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidates(ctx)
	if err != nil {
		return nil, err
	}

	previous, err := s.PriceRepo.LatestAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load previous prices: %w", err)
	}

	outcomes := make([]fetchOutcome, len(candidates))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, sym := range candidates {
		g.Go(func() error {
			outcomes[i] = s.updateOne(ctx, sym, rate, today, previous)
			return nil
		})
	}
	_ = g.Wait() // workers report through outcomes

	result := &domain.PriceBatchResult{Rate: rate}
	for i, out := range outcomes {
		sym := candidates[i]
		if out.err != nil {
			s.Logger.Warn().
				Str("symbol_id", sym.ID.String()).
				Str("code", sym.Code).
				Err(out.err).
				Msg("price update failed")
			result.Failed = append(result.Failed, domain.PriceFailure{SymbolID: sym.ID, Code: sym.Code, Err: out.err})
			continue
		}
		result.Succeeded = append(result.Succeeded, *out.update)
	}

	s.Logger.Info().
		Int("candidates", len(candidates)).
		Int("succeeded", len(result.Succeeded)).
		Int("failed", len(result.Failed)).
		Msg("price update finished")

	return result, nil
}

// updateOne fetches, converts and stores the price of one symbol
func (s *Service) updateOne(ctx context.Context, sym *domain.Symbol, rate *decimal.Decimal, today time.Time, previous map[uuid.UUID]domain.Price) fetchOutcome {
	if sym.Code == "" {
		return fetchOutcome{err: fmt.Errorf("missing code: %w", domain.ErrInvalidSymbol)}
	}

	source, err := s.Sources.Source(sym.PriceMarket())
	if err != nil {
		return fetchOutcome{err: err}
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	quote, err := source.Latest(fetchCtx, sym.Code)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, domain.ErrPriceSourceUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrPriceSourceUnavailable, err)
		}
		return fetchOutcome{err: err}
	}

	value, err := s.toReference(quote, rate)
	if err != nil {
		return fetchOutcome{err: err}
	}
	if !value.IsPositive() {
		return fetchOutcome{err: fmt.Errorf("non-positive price %s: %w", value, domain.ErrPriceSourceUnavailable)}
	}

	price := &domain.Price{SymbolID: sym.ID, Date: today, Value: value}
	if err := s.PriceRepo.Upsert(ctx, price); err != nil {
		return fetchOutcome{err: err}
	}

	update := &domain.PriceUpdate{SymbolID: sym.ID, Code: sym.Code, NewPrice: value}
	if old, ok := previous[sym.ID]; ok {
		v := old.Value
		update.OldPrice = &v
	}
	return fetchOutcome{update: update}
}

// toReference converts a quote into the reference currency
func (s *Service) toReference(q domain.Quote, rate *decimal.Decimal) (decimal.Decimal, error) {
	switch q.Currency {
	case "", s.cfg.ReferenceCurrency:
		return q.Value, nil
	case s.cfg.LocalCurrency:
		if rate == nil {
			return decimal.Zero, fmt.Errorf("cannot convert %s price: %w", q.Currency, domain.ErrMissingExchangeRate)
		}
		return q.Value.Div(*rate), nil
	}
	return decimal.Zero, fmt.Errorf("no rate for %s: %w", q.Currency, domain.ErrMissingExchangeRate)
}

// refreshRate fetches the live rate and stores it. When the source is down the last
// stored rate is used; nil means no rate is known at all.
func (s *Service) refreshRate(ctx context.Context, today time.Time) (*decimal.Decimal, error) {
	ref, local := s.cfg.ReferenceCurrency, s.cfg.LocalCurrency

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	live, err := s.Rates.Rate(fetchCtx, ref, local)
	cancel()
	if err == nil && live.IsPositive() {
		if err := s.RateRepo.Upsert(ctx, &domain.ExchangeRate{Base: ref, Quote: local, Date: today, Rate: live}); err != nil {
			return nil, fmt.Errorf("failed to store exchange rate: %w", err)
		}
		return &live, nil
	}

	s.Logger.Warn().Err(err).Str("pair", ref+"/"+local).Msg("live exchange rate unavailable, using last stored rate")

	stored, err := s.RateRepo.Latest(ctx, ref, local)
	if err != nil {
		if errors.Is(err, domain.ErrMissingExchangeRate) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load exchange rate: %w", err)
	}
	return &stored.Rate, nil
}

// candidates returns the symbols currently held
func (s *Service) candidates(ctx context.Context) ([]*domain.Symbol, error) {
	symbols, err := s.SymbolRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}

	holdings, err := s.HoldingRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list holdings: %w", err)
	}

	var held []*domain.Symbol
	for _, sym := range symbols {
		if h, ok := holdings[sym.ID]; ok && h.Balance().IsPositive() {
			held = append(held, sym)
		}
	}
	return held, nil
}

// MarketRates fetches the reference/local rate (USD/TRY by default) and BTC/USD
// concurrently. Either may be absent when its source fails.
func (s *Service) MarketRates(ctx context.Context) *domain.MarketRates {
	var rates domain.MarketRates

	var g errgroup.Group
	g.Go(func() error {
		fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		r, err := s.Rates.Rate(fetchCtx, s.cfg.ReferenceCurrency, s.cfg.LocalCurrency)
		if err != nil {
			s.Logger.Warn().Err(err).Str("pair", s.cfg.ReferenceCurrency+"/"+s.cfg.LocalCurrency).Msg("exchange rate unavailable")
			return nil
		}
		rates.USDTRY = &r
		return nil
	})
	g.Go(func() error {
		source, err := s.Sources.Source(domain.MarketCrypto)
		if err != nil {
			s.Logger.Warn().Err(err).Msg("BTC/USD unavailable")
			return nil
		}
		fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
		q, err := source.Latest(fetchCtx, BTCPair)
		if err != nil {
			s.Logger.Warn().Err(err).Msg("BTC/USD unavailable")
			return nil
		}
		rates.BTCUSD = &q.Value
		return nil
	})
	_ = g.Wait()

	return &rates
}
