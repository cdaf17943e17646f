package models

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedAsset    = errors.New("unsupported asset")
	ErrUnavailable         = errors.New("market data unavailable")
	ErrInvalidTransition   = errors.New("invalid signal state transition")
	ErrInsufficientHistory = errors.New("insufficient price history")
	ErrInvalidRule         = errors.New("invalid alert rule")
	ErrDisabled            = errors.New("disabled in this deployment")
)

// UnavailableError is the gateway's typed "unavailable" result.
type UnavailableError struct {
	Symbol string
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s unavailable from %s: %v", e.Symbol, e.Source, e.Err)
	}
	return fmt.Sprintf("%s unavailable from %s", e.Symbol, e.Source)
}

func (e *UnavailableError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUnavailable}
	}
	return []error{ErrUnavailable, e.Err}
}

func NewUnavailable(symbol, source string, err error) error {
	return &UnavailableError{Symbol: symbol, Source: source, Err: err}
}
