package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"four-presale/pkg/types"
)

// Config holds the application configuration
type Config struct {
	Presale PresaleConfig `mapstructure:"presale"`
	Network NetworkConfig `mapstructure:"network"`
	Wallet  WalletConfig  `mapstructure:"wallet"`
	Logger  LoggerConfig  `mapstructure:"logger"`
}

// PresaleConfig holds the sale constants: where payments go and what they buy
type PresaleConfig struct {
	TokenSymbol    string            `mapstructure:"token_symbol"`
	Recipient      string            `mapstructure:"recipient"`
	USDTAddress    string            `mapstructure:"usdt_address"`
	USDCAddress    string            `mapstructure:"usdc_address"`
	Rates          map[string]string `mapstructure:"rates"`    // Tokens per 1 unit of currency
	Minimums       map[string]string `mapstructure:"minimums"` // Minimum purchase per currency
	NativeGasLimit uint64            `mapstructure:"native_gas_limit"`
	EndsAt         string            `mapstructure:"ends_at"` // RFC3339
}

// NetworkConfig describes the single chain the presale runs on
type NetworkConfig struct {
	ChainID        int64  `mapstructure:"chain_id"`
	ChainIDHex     string `mapstructure:"chain_id_hex"`
	Name           string `mapstructure:"name"`
	RPCURL         string `mapstructure:"rpc_url"`
	ExplorerURL    string `mapstructure:"explorer_url"`
	NativeName     string `mapstructure:"native_name"`
	NativeSymbol   string `mapstructure:"native_symbol"`
	NativeDecimals uint8  `mapstructure:"native_decimals"`
}

// WalletConfig selects and configures the signing handle
type WalletConfig struct {
	// BridgeURL is a JSON-RPC endpoint of a remote wallet bridge. When set and
	// reachable at startup, connections go through the bridge.
	BridgeURL string `mapstructure:"bridge_url"`
	ProjectID string `mapstructure:"project_id"`

	// Local signer: either a raw hex private key or an encrypted key file
	PrivateKey   string `mapstructure:"private_key"`
	RPCURL       string `mapstructure:"rpc_url"` // Chain the local signer starts on; defaults to network.rpc_url
	KeystoreFile string `mapstructure:"keystore_file"`
	Password     string `mapstructure:"password"`

	// Platform is "desktop", "ios" or "android"; decides the install link
	Platform       string `mapstructure:"platform"`
	InstallURL     string `mapstructure:"install_url"`
	AppStoreURL    string `mapstructure:"app_store_url"`
	PlayStoreURL   string `mapstructure:"play_store_url"`
	ReceiptPollSec int    `mapstructure:"receipt_poll_seconds"`
}

// LoggerConfig configures the zap logger
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var globalConfig *Config

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetConfigName(".four-presale")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME")
	viper.AddConfigPath(".")

	setDefaults()

	// Read from environment variables
	viper.SetEnvPrefix("FOUR_PRESALE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("presale.token_symbol", "FOUR")
	viper.SetDefault("presale.recipient", "0x443c149de9CDDBE9DdD90E800caF6C0981d74444")
	viper.SetDefault("presale.usdt_address", "0x55d398326f99059fF775485246999027B3197955")
	viper.SetDefault("presale.usdc_address", "0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d")
	viper.SetDefault("presale.rates", map[string]string{"bnb": "250000", "usdt": "214", "usdc": "214"})
	viper.SetDefault("presale.minimums", map[string]string{"bnb": "0.1", "usdt": "100", "usdc": "100"})
	viper.SetDefault("presale.native_gas_limit", 21000)
	viper.SetDefault("presale.ends_at", "2025-10-05T15:00:00+08:00")

	viper.SetDefault("network.chain_id", 56)
	viper.SetDefault("network.chain_id_hex", "0x38")
	viper.SetDefault("network.name", "BNB Smart Chain")
	viper.SetDefault("network.rpc_url", "https://bsc-dataseed1.binance.org/")
	viper.SetDefault("network.explorer_url", "https://bscscan.com/")
	viper.SetDefault("network.native_name", "BNB")
	viper.SetDefault("network.native_symbol", "BNB")
	viper.SetDefault("network.native_decimals", 18)

	viper.SetDefault("wallet.platform", "desktop")
	viper.SetDefault("wallet.install_url", "https://metamask.io/download/")
	viper.SetDefault("wallet.app_store_url", "https://apps.apple.com/app/metamask/id1438144202")
	viper.SetDefault("wallet.play_store_url", "https://play.google.com/store/apps/details?id=io.metamask")
	viper.SetDefault("wallet.receipt_poll_seconds", 2)

	viper.SetDefault("logger.level", "warn")
	viper.SetDefault("logger.format", "console")
}

// Validate checks addresses and amounts before anything touches the network
func (c *Config) Validate() error {
	for name, addr := range map[string]string{
		"presale.recipient":    c.Presale.Recipient,
		"presale.usdt_address": c.Presale.USDTAddress,
		"presale.usdc_address": c.Presale.USDCAddress,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("invalid %s: %q", name, addr)
		}
	}

	if c.Network.ChainID <= 0 {
		return fmt.Errorf("network.chain_id must be greater than 0")
	}
	if c.Network.RPCURL == "" {
		return fmt.Errorf("network.rpc_url is required")
	}
	if c.Presale.NativeGasLimit == 0 {
		return fmt.Errorf("presale.native_gas_limit must be greater than 0")
	}

	rates, err := c.Rates()
	if err != nil {
		return err
	}
	for cur, rate := range rates {
		if !rate.IsPositive() {
			return fmt.Errorf("rate for %s must be greater than 0", cur)
		}
	}
	if _, err := c.Minimums(); err != nil {
		return err
	}
	if _, err := c.EndTime(); err != nil {
		return err
	}

	return nil
}

// Rates returns the exchange table: presale tokens per unit of each currency
func (c *Config) Rates() (map[types.Currency]decimal.Decimal, error) {
	return decimalsByCurrency("presale.rates", c.Presale.Rates)
}

// Minimums returns the minimum purchase amount per currency
func (c *Config) Minimums() (map[types.Currency]decimal.Decimal, error) {
	return decimalsByCurrency("presale.minimums", c.Presale.Minimums)
}

// TokenAddress returns the contract address for a token currency
func (c *Config) TokenAddress(currency types.Currency) (common.Address, error) {
	switch currency {
	case types.CurrencyUSDT:
		return common.HexToAddress(c.Presale.USDTAddress), nil
	case types.CurrencyUSDC:
		return common.HexToAddress(c.Presale.USDCAddress), nil
	default:
		return common.Address{}, fmt.Errorf("%s is not a token currency", currency)
	}
}

// RecipientAddress returns the presale payment address
func (c *Config) RecipientAddress() common.Address {
	return common.HexToAddress(c.Presale.Recipient)
}

// EndTime returns when the presale closes
func (c *Config) EndTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.Presale.EndsAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid presale.ends_at: %w", err)
	}
	return t, nil
}

func decimalsByCurrency(key string, raw map[string]string) (map[types.Currency]decimal.Decimal, error) {
	out := make(map[types.Currency]decimal.Decimal, len(types.Currencies))
	for _, cur := range types.Currencies {
		value, ok := lookupFold(raw, cur.String())
		if !ok {
			return nil, fmt.Errorf("%s.%s is not configured", key, strings.ToLower(cur.String()))
		}
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("invalid %s.%s: %w", key, strings.ToLower(cur.String()), err)
		}
		out[cur] = d
	}
	return out, nil
}

// viper lower-cases map keys, config files may not
func lookupFold(m map[string]string, key string) (string, bool) {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
