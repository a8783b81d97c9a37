package market

import (
	"fmt"

	"github.com/simaogato/folio-backend/internal/common"
	"github.com/simaogato/folio-backend/internal/domain"
)

// Router picks the price source of a market category
type Router struct {
	sources  map[domain.MarketCategory]domain.PriceSource
	fallback domain.MarketCategory
}

// NewRouter creates a router; symbols of an unknown category use the fallback's source
func NewRouter(sources map[domain.MarketCategory]domain.PriceSource, fallback domain.MarketCategory) *Router {
	return &Router{sources: sources, fallback: fallback}
}

// NewDefaultRouter wires the Yahoo, BTCTurk and TEFAS sources from configuration
func NewDefaultRouter(cfg common.ClientsConfig, opts ...ClientOption) *Router {
	return NewRouter(map[domain.MarketCategory]domain.PriceSource{
		domain.MarketBIST:   NewYahooSource(withClientConfig(cfg.Yahoo, opts)...),
		domain.MarketCrypto: NewBTCTurkSource(withClientConfig(cfg.BTCTurk, opts)...),
		domain.MarketFund:   NewTEFASSource(withClientConfig(cfg.TEFAS, opts)...),
	}, domain.MarketFund)
}

// NewExchangeRateSourceFromConfig creates the rate source from configuration
func NewExchangeRateSourceFromConfig(cfg common.ClientConfig, opts ...ClientOption) *ExchangeRateSource {
	return NewExchangeRateSource(withClientConfig(cfg, opts)...)
}

// Source returns the price source for a market
func (r *Router) Source(market domain.MarketCategory) (domain.PriceSource, error) {
	if s, ok := r.sources[market]; ok {
		return s, nil
	}
	if s, ok := r.sources[r.fallback]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("no price source for market %q: %w", market, domain.ErrPriceSourceUnavailable)
}

func withClientConfig(cfg common.ClientConfig, extra []ClientOption) []ClientOption {
	opts := []ClientOption{
		WithBaseURL(cfg.BaseURL),
		WithRateLimit(cfg.RateLimit),
		WithUserAgent(cfg.UserAgent),
	}
	return append(opts, extra...)
}
