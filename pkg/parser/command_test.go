package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"four-presale/pkg/types"
)

func TestParseBuyCommand(t *testing.T) {
	tests := []struct {
		input        string
		wantAmount   string
		wantCurrency types.Currency
	}{
		{"buy 100 USDT", "100", types.CurrencyUSDT},
		{"BUY 0.5 bnb", "0.5", types.CurrencyBNB},
		{"  250 usdc  ", "250", types.CurrencyUSDC},
		{"buy 250usdc", "250", types.CurrencyUSDC},
		{"buy .25 BNB", ".25", types.CurrencyBNB},
		{"100 bsc-usd", "100", types.CurrencyUSDT},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := ParseBuyCommand(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, cmd.Amount)
			assert.Equal(t, tt.wantCurrency, cmd.Currency)
		})
	}
}

func TestParseBuyCommand_Invalid(t *testing.T) {
	for _, input := range []string{"", "buy", "buy USDT", "buy 100", "buy -5 BNB", "buy 100 ETH", "buy 1 BNB to USDT"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseBuyCommand(input)
			assert.Error(t, err)
		})
	}
}

func TestParseBuyArgs(t *testing.T) {
	cmd, err := ParseBuyArgs([]string{"100", "usdt"})
	require.NoError(t, err)
	assert.Equal(t, "100", cmd.Amount)
	assert.Equal(t, types.CurrencyUSDT, cmd.Currency)

	_, err = ParseBuyArgs(nil)
	assert.Error(t, err)
}

func TestNormalizeCurrencySymbol(t *testing.T) {
	assert.Equal(t, "USDT", NormalizeCurrencySymbol("tether"))
	assert.Equal(t, "BNB", NormalizeCurrencySymbol(" bnb "))
}
