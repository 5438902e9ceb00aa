package parser

import (
	"fmt"
	"regexp"
	"strings"

	"four-presale/pkg/types"
)

// BuyCommand is a parsed purchase instruction
type BuyCommand struct {
	Amount   string
	Currency types.Currency
}

var buyPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)\s*([A-Z][A-Z0-9-]*)$`)

// ParseBuyCommand parses a natural language purchase command
// Examples:
//   - "buy 0.5 BNB"
//   - "100 USDT"
//   - "buy 250usdc"
func ParseBuyCommand(command string) (*BuyCommand, error) {
	// Normalize the command
	command = strings.TrimSpace(strings.ToUpper(command))

	// Remove the word "BUY" if present at the beginning
	command = strings.TrimSpace(strings.TrimPrefix(command, "BUY "))

	matches := buyPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, fmt.Errorf("invalid buy command format. Expected: 'buy <amount> <currency>' (e.g., 'buy 100 USDT')")
	}

	currency, err := types.ParseCurrency(NormalizeCurrencySymbol(matches[2]))
	if err != nil {
		return nil, err
	}

	return &BuyCommand{
		Amount:   matches[1],
		Currency: currency,
	}, nil
}

// ParseBuyArgs accepts either one argument ("100USDT", "buy 100 USDT") or
// an amount and a currency as separate arguments
func ParseBuyArgs(args []string) (*BuyCommand, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("amount and currency are required")
	}
	return ParseBuyCommand(strings.Join(args, " "))
}

// NormalizeCurrencySymbol maps common aliases to the accepted symbols
func NormalizeCurrencySymbol(symbol string) string {
	// Convert to uppercase for consistency
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// BscScan lists Binance-Peg USDT as BSC-USD
	aliases := map[string]string{
		"BSC-USD": "USDT",
		"TETHER":  "USDT",
		"USD-C":   "USDC",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
