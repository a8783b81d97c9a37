package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/simaogato/folio-backend/internal/domain"
)

const (
	DefaultYahooURL = "https://query1.finance.yahoo.com"
	bistSuffix      = ".IS"
)

// YahooSource quotes Borsa Istanbul equities from the Yahoo Finance chart API.
// Quotes are in TRY.
type YahooSource struct {
	*client
}

// NewYahooSource creates a Yahoo Finance price source
func NewYahooSource(opts ...ClientOption) *YahooSource {
	return &YahooSource{client: newClient("yahoo", DefaultYahooURL, opts...)}
}

// Latest returns the regular market price of a BIST code such as THYAO
func (s *YahooSource) Latest(ctx context.Context, code string) (domain.Quote, error) {
	ticker := strings.ToUpper(strings.TrimSpace(code))
	if !strings.HasSuffix(ticker, bistSuffix) {
		ticker += bistSuffix
	}

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	jobj, err := s.getJSON(ctx, "/v8/finance/chart/"+url.PathEscape(ticker), params)
	if err != nil {
		return domain.Quote{}, err
	}

	price, err := lookupDecimal(jobj, "$.chart.result[0].meta.regularMarketPrice")
	if err != nil {
		return domain.Quote{}, fmt.Errorf("yahoo %s: %w", ticker, err)
	}
	if price, err = positive(s.name, ticker, price); err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{Value: price, Currency: "TRY"}, nil
}
