package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind classifies a wallet or transfer failure
type ErrorKind string

const (
	KindNotInstalled        ErrorKind = "not_installed"
	KindUserRejected        ErrorKind = "user_rejected"
	KindChainUnknown        ErrorKind = "chain_unknown"
	KindWrongNetwork        ErrorKind = "wrong_network"
	KindNotConnected        ErrorKind = "not_connected"
	KindHandleMissing       ErrorKind = "handle_missing"
	KindInvalidAmount       ErrorKind = "invalid_amount"
	KindBelowMinimum        ErrorKind = "below_minimum"
	KindInsufficientBalance ErrorKind = "insufficient_balance"
	KindInsufficientGas     ErrorKind = "insufficient_gas"
	KindContractRevert      ErrorKind = "contract_revert"
	KindBusy                ErrorKind = "busy"
	KindUnknown             ErrorKind = "unknown"
)

// Error is a classified failure. Currency, Minimum and Reason are only
// set for the kinds that carry them.
type Error struct {
	Kind     ErrorKind        `json:"kind"`
	Message  string           `json:"message"`
	Currency Currency         `json:"currency,omitempty"`
	Minimum  *decimal.Decimal `json:"minimum,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Cause    error            `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrWrongNetwork) works
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels for errors.Is
var (
	ErrNotInstalled        = &Error{Kind: KindNotInstalled}
	ErrUserRejected        = &Error{Kind: KindUserRejected}
	ErrChainUnknown        = &Error{Kind: KindChainUnknown}
	ErrWrongNetwork        = &Error{Kind: KindWrongNetwork}
	ErrNotConnected        = &Error{Kind: KindNotConnected}
	ErrHandleMissing       = &Error{Kind: KindHandleMissing}
	ErrInvalidAmount       = &Error{Kind: KindInvalidAmount}
	ErrBelowMinimum        = &Error{Kind: KindBelowMinimum}
	ErrInsufficientBalance = &Error{Kind: KindInsufficientBalance}
	ErrInsufficientGas     = &Error{Kind: KindInsufficientGas}
	ErrContractRevert      = &Error{Kind: KindContractRevert}
	ErrBusy                = &Error{Kind: KindBusy}
	ErrUnknown             = &Error{Kind: KindUnknown}
)

// NewError builds an error of the given kind
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// BelowMinimum reports an amount under the currency's presale minimum
func BelowMinimum(currency Currency, minimum decimal.Decimal) *Error {
	return &Error{
		Kind:     KindBelowMinimum,
		Message:  fmt.Sprintf("Minimum purchase is %s %s", minimum.String(), currency),
		Currency: currency,
		Minimum:  &minimum,
	}
}

// InsufficientBalance reports a token balance below the requested amount
func InsufficientBalance(currency Currency) *Error {
	return &Error{
		Kind:     KindInsufficientBalance,
		Message:  fmt.Sprintf("Insufficient %s balance", currency),
		Currency: currency,
	}
}

// ContractRevert reports a transfer reverted by the token contract
func ContractRevert(reason string, cause error) *Error {
	return &Error{
		Kind:    KindContractRevert,
		Message: reason,
		Reason:  reason,
		Cause:   cause,
	}
}
