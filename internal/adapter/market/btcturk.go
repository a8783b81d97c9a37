package market

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/simaogato/folio-backend/internal/domain"
)

// DefaultBTCTurkURL is the public BTCTurk API
const DefaultBTCTurkURL = "https://api.btcturk.com"

// BTCTurkSource quotes crypto pairs from the BTCTurk ticker.
// Pairs are expected to be quoted in USDT, which is treated as USD.
type BTCTurkSource struct {
	*client
}

// NewBTCTurkSource creates a BTCTurk price source
func NewBTCTurkSource(opts ...ClientOption) *BTCTurkSource {
	return &BTCTurkSource{client: newClient("btcturk", DefaultBTCTurkURL, opts...)}
}

// Latest returns the last traded price of a pair such as BTCUSDT
func (s *BTCTurkSource) Latest(ctx context.Context, code string) (domain.Quote, error) {
	pair := strings.ToUpper(strings.TrimSpace(code))

	params := url.Values{}
	params.Set("pairSymbol", pair)

	jobj, err := s.getJSON(ctx, "/api/v2/ticker", params)
	if err != nil {
		return domain.Quote{}, err
	}

	ok, err := lookup(jobj, "$.success")
	if err != nil {
		return domain.Quote{}, fmt.Errorf("btcturk %s: %w", pair, err)
	}
	if success, _ := ok.(bool); !success {
		msg, _ := lookup(jobj, "$.message")
		return domain.Quote{}, fmt.Errorf("btcturk %s: unsuccessful response %v: %w", pair, msg, domain.ErrPriceSourceUnavailable)
	}

	price, err := lookupDecimal(jobj, "$.data[0].last")
	if err != nil {
		return domain.Quote{}, fmt.Errorf("btcturk %s: %w", pair, err)
	}
	if price, err = positive(s.name, pair, price); err != nil {
		return domain.Quote{}, err
	}

	return domain.Quote{Value: price, Currency: quoteCurrency(pair)}, nil
}

// quoteCurrency derives the currency of a pair from its suffix
func quoteCurrency(pair string) string {
	switch {
	case strings.HasSuffix(pair, "USDT"), strings.HasSuffix(pair, "USD"):
		return "USD"
	case strings.HasSuffix(pair, "TRY"):
		return "TRY"
	}
	return "USD"
}
