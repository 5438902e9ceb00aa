// Package presale converts payment amounts into presale tokens and submits
// payments to the presale address.
package presale

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"four-presale/pkg/types"
)

// Quantity is a converted token amount. The zero value is the invalid
// sentinel.
type Quantity struct {
	Value decimal.Decimal
	Valid bool
}

var printer = message.NewPrinter(language.AmericanEnglish)

// Format renders the quantity with no fractional digits and thousands
// separators. Invalid quantities render as 0.0.
func (q Quantity) Format() string {
	if !q.Valid {
		return "0.0"
	}
	rounded := q.Value.Round(0)
	if !rounded.BigInt().IsInt64() {
		return rounded.String()
	}
	return printer.Sprintf("%d", rounded.IntPart())
}

func (q Quantity) String() string {
	return q.Format()
}

// Converter maps payment amounts to presale tokens at fixed rates
type Converter struct {
	rates map[types.Currency]decimal.Decimal
}

// NewConverter copies the rate table
func NewConverter(rates map[types.Currency]decimal.Decimal) *Converter {
	table := make(map[types.Currency]decimal.Decimal, len(rates))
	for cur, rate := range rates {
		table[cur] = rate
	}
	return &Converter{rates: table}
}

// Rate returns tokens per one unit of currency
func (c *Converter) Rate(currency types.Currency) (decimal.Decimal, bool) {
	rate, ok := c.rates[currency]
	return rate, ok
}

// Convert returns raw × rate. Input that is not a positive number, or a
// currency without a rate, gives the invalid sentinel.
func (c *Converter) Convert(raw string, currency types.Currency) Quantity {
	amount, ok := ParseAmount(raw)
	if !ok {
		return Quantity{}
	}
	rate, ok := c.rates[currency]
	if !ok {
		return Quantity{}
	}
	return Quantity{Value: amount.Mul(rate), Valid: true}
}

// maxMagnitude is the largest power of ten a float64 can reach
const maxMagnitude = 309

// ParseAmount parses a positive decimal amount. Amounts outside the finite
// float64 range are rejected before anything scales them.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, false
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil || !amount.IsPositive() {
		return decimal.Zero, false
	}

	// number of digits left of the decimal point
	magnitude := int64(amount.NumDigits()) + int64(amount.Exponent())
	if magnitude > maxMagnitude || magnitude < -maxMagnitude {
		return decimal.Zero, false
	}
	if f, _ := amount.Float64(); math.IsInf(f, 0) || f == 0 {
		return decimal.Zero, false
	}
	return amount, true
}
