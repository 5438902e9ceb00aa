package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Currency is a payment currency accepted by the presale
type Currency string

const (
	CurrencyBNB  Currency = "BNB"  // Native chain currency
	CurrencyUSDT Currency = "USDT" // BEP-20 stablecoin
	CurrencyUSDC Currency = "USDC" // BEP-20 stablecoin
)

// Currencies lists every accepted currency in display order
var Currencies = []Currency{CurrencyBNB, CurrencyUSDT, CurrencyUSDC}

// ParseCurrency parses a currency symbol, case-insensitively
func ParseCurrency(symbol string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(symbol)))
	switch c {
	case CurrencyBNB, CurrencyUSDT, CurrencyUSDC:
		return c, nil
	default:
		return "", fmt.Errorf("unsupported currency %q (expected BNB, USDT or USDC)", symbol)
	}
}

// IsNative returns true if the currency is sent as a plain value transfer
func (c Currency) IsNative() bool {
	return c == CurrencyBNB
}

func (c Currency) String() string {
	return string(c)
}

// TransferStatus is the lifecycle state of a submitted transfer
type TransferStatus string

const (
	StatusPending   TransferStatus = "pending"   // Submitted, no receipt yet
	StatusConfirmed TransferStatus = "confirmed" // Receipt reports success
	StatusFailed    TransferStatus = "failed"    // Rejected, reverted or never sent
)

// TransferRequest is a single purchase attempt
type TransferRequest struct {
	ID        string
	Currency  Currency
	RawAmount string
	Recipient common.Address
	Minimum   decimal.Decimal
}

// TransferOutcome reports how a TransferRequest ended
type TransferOutcome struct {
	RequestID string         `json:"request_id"`
	Status    TransferStatus `json:"status"`
	TxHash    string         `json:"tx_hash,omitempty"`
	Err       *Error         `json:"error,omitempty"`
}

// Succeeded returns true if the outcome is confirmed on-chain
func (o TransferOutcome) Succeeded() bool {
	return o.Status == StatusConfirmed
}

// MessageLevel controls how a banner message is rendered
type MessageLevel string

const (
	LevelInfo    MessageLevel = "info"
	LevelSuccess MessageLevel = "success"
	LevelWarning MessageLevel = "warning"
	LevelError   MessageLevel = "error"
)

// Notifier is the presentation surface the core signals into.
// Every failure reaches the user through exactly one of these calls.
type Notifier interface {
	ShowMessage(level MessageLevel, message string)
	ShowNetworkModal()
	HideNetworkModal()
	ShowMinimumModal(currency Currency, minimum decimal.Decimal)
	OpenURL(url string)
}
