package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSymbol_Validate(t *testing.T) {
	tests := []struct {
		name    string
		symbol  Symbol
		wantErr bool
		errMsg  string
	}{
		{
			name:    "Fully classified symbol should pass",
			symbol:  Symbol{Name: "Türk Hava Yolları", Code: "THYAO", Unit: UnitTL, Kind: KindBIST, Market: MarketBIST},
			wantErr: false,
		},
		{
			name:    "Name only should pass",
			symbol:  Symbol{Name: "Gold"},
			wantErr: false,
		},
		{
			name:    "Empty name should fail",
			symbol:  Symbol{Code: "X"},
			wantErr: true,
			errMsg:  "name cannot be empty",
		},
		{
			name:    "Long name should fail",
			symbol:  Symbol{Name: strings.Repeat("n", 256)},
			wantErr: true,
			errMsg:  "name must have at most",
		},
		{
			name:    "Long code should fail",
			symbol:  Symbol{Name: "X", Code: "ABCDEFGHIJK"},
			wantErr: true,
			errMsg:  "code must have at most",
		},
		{
			name:    "Unknown unit should fail",
			symbol:  Symbol{Name: "X", Unit: "EUR"},
			wantErr: true,
			errMsg:  "invalid settlement unit",
		},
		{
			name:    "Unknown kind should fail",
			symbol:  Symbol{Name: "X", Kind: "BOND"},
			wantErr: true,
			errMsg:  "invalid instrument kind",
		},
		{
			name:    "Unknown market should fail",
			symbol:  Symbol{Name: "X", Market: "Z"},
			wantErr: true,
			errMsg:  "invalid market category",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.symbol.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSymbol)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSymbol_Keys(t *testing.T) {
	classified := Symbol{Unit: UnitDoviz, Kind: KindCoin, Market: MarketCrypto}
	assert.Equal(t, "COIN", classified.CategoryKey())
	assert.Equal(t, "DOVIZ", classified.ExchangeKey())
	assert.Equal(t, MarketCrypto, classified.PriceMarket())
	assert.False(t, classified.IsLocalCurrency())

	bare := Symbol{Unit: UnitTL}
	assert.Equal(t, Unclassified, bare.CategoryKey())
	assert.Equal(t, MarketFund, bare.PriceMarket())
	assert.True(t, bare.IsLocalCurrency())
	assert.Equal(t, Unclassified, (&Symbol{}).ExchangeKey())
}
