package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/folio-backend/internal/common"
	"github.com/simaogato/folio-backend/internal/domain"
)

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestYahooSource_Latest(t *testing.T) {
	var capturedPath, capturedUA string
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		capturedUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"currency":"TRY","regularMarketPrice":312.75}}],"error":null}}`)
	})

	src := NewYahooSource(WithBaseURL(srv.URL), WithUserAgent("folio-test"))
	quote, err := src.Latest(context.Background(), "thyao")
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/THYAO.IS", capturedPath)
	assert.Equal(t, "folio-test", capturedUA)
	assert.True(t, decimal.RequireFromString("312.75").Equal(quote.Value))
	assert.Equal(t, "TRY", quote.Currency)
}

func TestYahooSource_Errors(t *testing.T) {
	tests := []struct {
		name string
		code int
		body string
	}{
		{"http error", http.StatusNotFound, `{"chart":{"result":null,"error":{"code":"Not Found"}}}`},
		{"empty result", http.StatusOK, `{"chart":{"result":[],"error":null}}`},
		{"zero price", http.StatusOK, `{"chart":{"result":[{"meta":{"regularMarketPrice":0}}]}}`},
		{"not json", http.StatusOK, `<html></html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				fmt.Fprint(w, tt.body)
			})

			_, err := NewYahooSource(WithBaseURL(srv.URL)).Latest(context.Background(), "XYZ.IS")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrPriceSourceUnavailable), "got %v", err)
		})
	}
}

func TestYahooSource_RateLimitTimeout(t *testing.T) {
	var hits atomic.Int32
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"currency":"TRY","regularMarketPrice":10}}]}}`)
	})

	src := NewYahooSource(WithBaseURL(srv.URL), WithRateLimit(1))
	_, err := src.Latest(context.Background(), "THYAO")
	require.NoError(t, err)

	// the next token is a second away, past the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = src.Latest(ctx, "THYAO")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPriceSourceUnavailable)
	assert.Contains(t, err.Error(), "rate limit wait")
	assert.Equal(t, int32(1), hits.Load())
}

func TestBTCTurkSource_Latest(t *testing.T) {
	var capturedPair string
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPair = r.URL.Query().Get("pairSymbol")
		fmt.Fprint(w, `{"data":[{"pair":"BTCUSDT","last":67123.45,"bid":67120}],"success":true,"message":null,"code":0}`)
	})

	quote, err := NewBTCTurkSource(WithBaseURL(srv.URL)).Latest(context.Background(), "btcusdt")
	require.NoError(t, err)

	assert.Equal(t, "BTCUSDT", capturedPair)
	assert.True(t, decimal.RequireFromString("67123.45").Equal(quote.Value))
	assert.Equal(t, "USD", quote.Currency)
}

func TestBTCTurkSource_Unsuccessful(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":null,"success":false,"message":"pair not found","code":1}`)
	})

	_, err := NewBTCTurkSource(WithBaseURL(srv.URL)).Latest(context.Background(), "NOPE")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPriceSourceUnavailable)
	assert.Contains(t, err.Error(), "pair not found")
}

func TestExchangeRateSource_Rate(t *testing.T) {
	var capturedPath string
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		fmt.Fprint(w, `{"base":"USD","date":"2025-06-01","rates":{"USD":1,"TRY":39.2541,"EUR":0.88}}`)
	})

	r, err := NewExchangeRateSource(WithBaseURL(srv.URL)).Rate(context.Background(), "usd", "try")
	require.NoError(t, err)

	assert.Equal(t, "/v4/latest/USD", capturedPath)
	assert.True(t, decimal.RequireFromString("39.2541").Equal(r))
}

func TestExchangeRateSource_MissingQuote(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"base":"USD","rates":{"EUR":0.88}}`)
	})

	_, err := NewExchangeRateSource(WithBaseURL(srv.URL)).Rate(context.Background(), "USD", "TRY")
	assert.Error(t, err)
}

const tefasPage = `<!DOCTYPE html>
<html><body>
<div class="main-indicators">
  <ul class="top-list">
    <li>Günlük Getiri (%)<span>%0,0821</span></li>
    <li>Son Fiyat (TL)<span>1.441.371,12</span></li>
  </ul>
</div>
</body></html>`

func TestTEFASSource_Latest(t *testing.T) {
	var capturedCode string
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		capturedCode = r.URL.Query().Get("FonKod")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, tefasPage)
	})

	quote, err := NewTEFASSource(WithBaseURL(srv.URL)).Latest(context.Background(), "tte")
	require.NoError(t, err)

	assert.Equal(t, "TTE", capturedCode)
	assert.True(t, decimal.RequireFromString("1441371.12").Equal(quote.Value))
	assert.Equal(t, "TRY", quote.Currency)
}

func TestTEFASSource_LabelMissing(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><ul class="top-list"><li>Other<span>1,00</span></li></ul></body></html>`)
	})

	_, err := NewTEFASSource(WithBaseURL(srv.URL)).Latest(context.Background(), "XXX")
	assert.ErrorIs(t, err, domain.ErrPriceSourceUnavailable)
}

func TestParseTurkishDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
		err  bool
	}{
		{"1.441.371,12", "1441371.12", false},
		{" 0,123456 ", "0.123456", false},
		{"42", "42", false},
		{"N/A", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTurkishDecimal(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestRouter_Source(t *testing.T) {
	router := NewDefaultRouter(common.NewDefaultConfig().Clients)

	tests := []struct {
		market domain.MarketCategory
		want   any
	}{
		{domain.MarketBIST, &YahooSource{}},
		{domain.MarketCrypto, &BTCTurkSource{}},
		{domain.MarketFund, &TEFASSource{}},
		{"", &TEFASSource{}},
	}

	for _, tt := range tests {
		t.Run(string(tt.market), func(t *testing.T) {
			src, err := router.Source(tt.market)
			require.NoError(t, err)
			assert.IsType(t, tt.want, src)
		})
	}
}

func TestRouter_NoSource(t *testing.T) {
	router := NewRouter(map[domain.MarketCategory]domain.PriceSource{}, domain.MarketFund)
	_, err := router.Source(domain.MarketBIST)
	assert.ErrorIs(t, err, domain.ErrPriceSourceUnavailable)
}
