package market

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/simaogato/folio-backend/internal/domain"
)

// DefaultExchangeRateURL is the free exchangerate-api endpoint
const DefaultExchangeRateURL = "https://api.exchangerate-api.com"

// ExchangeRateSource reads fiat rates from exchangerate-api.com
type ExchangeRateSource struct {
	*client
}

// NewExchangeRateSource creates an exchange rate source
func NewExchangeRateSource(opts ...ClientOption) *ExchangeRateSource {
	return &ExchangeRateSource{client: newClient("exchangerate", DefaultExchangeRateURL, opts...)}
}

// Rate returns how many quote units one base unit buys, e.g. Rate(ctx, "USD", "TRY")
func (s *ExchangeRateSource) Rate(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)

	jobj, err := s.getJSON(ctx, "/v4/latest/"+base, nil)
	if err != nil {
		return decimal.Zero, err
	}

	r, err := lookupDecimal(jobj, "$.rates."+quote)
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchangerate %s/%s: %w", base, quote, err)
	}
	if !r.IsPositive() {
		return decimal.Zero, fmt.Errorf("exchangerate %s/%s: non-positive rate %s: %w", base, quote, r, domain.ErrMissingExchangeRate)
	}
	return r, nil
}
