package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SettlementUnit is the unit a symbol is settled in. It is the grouping key of the exchange rollup.
type SettlementUnit string

const (
	UnitTL    SettlementUnit = "TL"
	UnitDoviz SettlementUnit = "DOVIZ"
	UnitKarma SettlementUnit = "KARMA"
)

// InstrumentKind classifies the instrument. It is the grouping key of the category rollup.
type InstrumentKind string

const (
	KindBIST          InstrumentKind = "BIST"
	KindForeignEquity InstrumentKind = "YABANCI_BORSA"
	KindPreciousMetal InstrumentKind = "KIYMETLI_METAL"
	KindCommodity     InstrumentKind = "EMTIA"
	KindMoneyMarket   InstrumentKind = "PARA_PIYASASI"
	KindEurobond      InstrumentKind = "EUROBOND"
	KindMixed         InstrumentKind = "KARMA"
	KindCoin          InstrumentKind = "COIN"
)

// MarketCategory selects the external source a symbol's price is fetched from.
type MarketCategory string

const (
	MarketBIST   MarketCategory = "B" // Borsa Istanbul, quoted in TRY
	MarketCrypto MarketCategory = "K" // crypto pairs, quoted in the reference currency
	MarketFund   MarketCategory = "F" // TEFAS funds, quoted in TRY
)

// Unclassified is the rollup key used for symbols without the grouping tag.
const Unclassified = "UNCLASSIFIED"

const (
	maxSymbolNameLen = 255
	maxSymbolCodeLen = 10
	maxSubCodeLen    = 5
	maxNoteLen       = 255
)

// Symbol represents a tradable instrument
type Symbol struct {
	ID        uuid.UUID
	Name      string
	Code      string // Quote lookup code, empty when unknown
	Unit      SettlementUnit
	Kind      InstrumentKind
	SubCode   string
	Market    MarketCategory
	Note      string
	CreatedAt time.Time
}

var validUnits = map[SettlementUnit]bool{
	UnitTL: true, UnitDoviz: true, UnitKarma: true,
}

var validKinds = map[InstrumentKind]bool{
	KindBIST: true, KindForeignEquity: true, KindPreciousMetal: true, KindCommodity: true,
	KindMoneyMarket: true, KindEurobond: true, KindMixed: true, KindCoin: true,
}

var validMarkets = map[MarketCategory]bool{
	MarketBIST: true, MarketCrypto: true, MarketFund: true,
}

// Validate ensures the symbol adheres to domain rules.
// Empty tags are allowed; non-empty tags must belong to their closed set.
func (s *Symbol) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: symbol name cannot be empty", ErrInvalidSymbol)
	}
	if len(s.Name) > maxSymbolNameLen {
		return fmt.Errorf("%w: symbol name must have at most %d characters", ErrInvalidSymbol, maxSymbolNameLen)
	}
	if len(s.Code) > maxSymbolCodeLen {
		return fmt.Errorf("%w: symbol code must have at most %d characters", ErrInvalidSymbol, maxSymbolCodeLen)
	}
	if len(s.SubCode) > maxSubCodeLen {
		return fmt.Errorf("%w: sub code must have at most %d characters", ErrInvalidSymbol, maxSubCodeLen)
	}
	if len(s.Note) > maxNoteLen {
		return fmt.Errorf("%w: note must have at most %d characters", ErrInvalidSymbol, maxNoteLen)
	}
	if s.Unit != "" && !validUnits[s.Unit] {
		return fmt.Errorf("%w: invalid settlement unit %q", ErrInvalidSymbol, s.Unit)
	}
	if s.Kind != "" && !validKinds[s.Kind] {
		return fmt.Errorf("%w: invalid instrument kind %q", ErrInvalidSymbol, s.Kind)
	}
	if s.Market != "" && !validMarkets[s.Market] {
		return fmt.Errorf("%w: invalid market category %q", ErrInvalidSymbol, s.Market)
	}
	return nil
}

// PriceMarket returns the market the price is fetched from; funds are the default source.
func (s *Symbol) PriceMarket() MarketCategory {
	if s.Market == "" {
		return MarketFund
	}
	return s.Market
}

// IsLocalCurrency reports whether the symbol's transactions are recorded in the local currency
// rather than the reference currency.
func (s *Symbol) IsLocalCurrency() bool {
	return s.Unit == UnitTL
}

// CategoryKey returns the category rollup key
func (s *Symbol) CategoryKey() string {
	if s.Kind == "" {
		return Unclassified
	}
	return string(s.Kind)
}

// ExchangeKey returns the exchange/unit rollup key
func (s *Symbol) ExchangeKey() string {
	if s.Unit == "" {
		return Unclassified
	}
	return string(s.Unit)
}
