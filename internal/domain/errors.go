package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientInventory is returned when a SELL needs more units than the open lots hold.
	ErrInsufficientInventory = errors.New("insufficient inventory")
	// ErrMissingPrice marks a symbol that has a balance but no known price.
	ErrMissingPrice = errors.New("missing price")
	// ErrMissingExchangeRate marks figures that needed a currency conversion without a rate.
	ErrMissingExchangeRate = errors.New("missing exchange rate")
	// ErrPriceSourceUnavailable wraps failures and timeouts of external price sources.
	ErrPriceSourceUnavailable = errors.New("price source unavailable")
	// ErrMalformedTransaction is returned by transaction validation.
	ErrMalformedTransaction = errors.New("malformed transaction")
	// ErrInvalidSymbol is returned by symbol validation.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrNotFound is returned by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")
)

// InsufficientInventoryError identifies the SELL that could not be filled from open lots.
type InsufficientInventoryError struct {
	SymbolID      uuid.UUID
	TransactionID uuid.UUID
	Requested     decimal.Decimal
	Available     decimal.Decimal
	Shortfall     decimal.Decimal
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("insufficient inventory for symbol %s: transaction %s sells %s but only %s is open (shortfall %s)",
		e.SymbolID, e.TransactionID, e.Requested, e.Available, e.Shortfall)
}

func (e *InsufficientInventoryError) Unwrap() error {
	return ErrInsufficientInventory
}
