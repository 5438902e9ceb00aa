package config

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"four-presale/pkg/types"
)

func loadClean(t *testing.T) (*Config, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("HOME", t.TempDir())
	return Load()
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := loadClean(t)
	require.NoError(t, err)

	assert.Equal(t, "FOUR", cfg.Presale.TokenSymbol)
	assert.Equal(t, common.HexToAddress("0x443c149de9CDDBE9DdD90E800caF6C0981d74444"), cfg.RecipientAddress())
	assert.Equal(t, int64(56), cfg.Network.ChainID)
	assert.Equal(t, "0x38", cfg.Network.ChainIDHex)
	assert.Equal(t, uint64(21000), cfg.Presale.NativeGasLimit)

	rates, err := cfg.Rates()
	require.NoError(t, err)
	assert.True(t, rates[types.CurrencyBNB].Equal(decimal.NewFromInt(250000)))
	assert.True(t, rates[types.CurrencyUSDT].Equal(decimal.NewFromInt(214)))
	assert.True(t, rates[types.CurrencyUSDC].Equal(decimal.NewFromInt(214)))

	minimums, err := cfg.Minimums()
	require.NoError(t, err)
	assert.True(t, minimums[types.CurrencyBNB].Equal(decimal.RequireFromString("0.1")))
	assert.True(t, minimums[types.CurrencyUSDT].Equal(decimal.NewFromInt(100)))

	usdt, err := cfg.TokenAddress(types.CurrencyUSDT)
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x55d398326f99059fF775485246999027B3197955"), usdt)
	_, err = cfg.TokenAddress(types.CurrencyBNB)
	assert.Error(t, err)

	end, err := cfg.EndTime()
	require.NoError(t, err)
	assert.True(t, end.Equal(time.Date(2025, 10, 5, 7, 0, 0, 0, time.UTC)))

	assert.Same(t, cfg, Get())
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FOUR_PRESALE_NETWORK_NAME", "BSC Testnet")
	cfg, err := loadClean(t)
	require.NoError(t, err)
	assert.Equal(t, "BSC Testnet", cfg.Network.Name)
}

func TestLoad_InvalidRecipient(t *testing.T) {
	t.Setenv("FOUR_PRESALE_PRESALE_RECIPIENT", "not-an-address")
	_, err := loadClean(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "presale.recipient")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Presale: PresaleConfig{
				Recipient:      "0x443c149de9CDDBE9DdD90E800caF6C0981d74444",
				USDTAddress:    "0x55d398326f99059fF775485246999027B3197955",
				USDCAddress:    "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d",
				Rates:          map[string]string{"BNB": "250000", "usdt": "214", "usdc": "214"},
				Minimums:       map[string]string{"bnb": "0.1", "usdt": "100", "usdc": "100"},
				NativeGasLimit: 21000,
				EndsAt:         "2025-10-05T15:00:00+08:00",
			},
			Network: NetworkConfig{ChainID: 56, RPCURL: "https://bsc-dataseed1.binance.org/"},
		}
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"bad usdt address", func(c *Config) { c.Presale.USDTAddress = "0x123" }, "presale.usdt_address"},
		{"zero chain id", func(c *Config) { c.Network.ChainID = 0 }, "network.chain_id"},
		{"no rpc url", func(c *Config) { c.Network.RPCURL = "" }, "network.rpc_url"},
		{"zero gas limit", func(c *Config) { c.Presale.NativeGasLimit = 0 }, "native_gas_limit"},
		{"missing rate", func(c *Config) { delete(c.Presale.Rates, "usdc") }, "presale.rates.usdc"},
		{"zero rate", func(c *Config) { c.Presale.Rates["usdt"] = "0" }, "rate for USDT"},
		{"bad minimum", func(c *Config) { c.Presale.Minimums["bnb"] = "lots" }, "presale.minimums.bnb"},
		{"bad end time", func(c *Config) { c.Presale.EndsAt = "soon" }, "presale.ends_at"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
