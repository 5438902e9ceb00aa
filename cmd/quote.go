package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"four-presale/pkg/parser"
	"four-presale/pkg/presale"
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <currency>",
	Short: "Show how many presale tokens an amount buys",
	Long: `Convert a payment amount into presale tokens at the fixed presale rate.
No wallet is needed.

Examples:
  four-presale quote 100 USDT
  four-presale quote 0.5 BNB --json`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

type quoteOutput struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Rate      string `json:"rate"`
	Tokens    string `json:"tokens"`
	Formatted string `json:"formatted"`
	Valid     bool   `json:"valid"`
	Minimum   string `json:"minimum"`
}

func runQuote(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	buy, err := parser.ParseBuyArgs(args)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	rates, err := cfg.Rates()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	minimums, err := cfg.Minimums()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	converter := presale.NewConverter(rates)
	quantity := converter.Convert(buy.Amount, buy.Currency)
	rate, _ := converter.Rate(buy.Currency)

	out := quoteOutput{
		Amount:    buy.Amount,
		Currency:  buy.Currency.String(),
		Rate:      rate.String(),
		Tokens:    quantity.Value.String(),
		Formatted: quantity.Format(),
		Valid:     quantity.Valid,
		Minimum:   minimums[buy.Currency].String(),
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if !quantity.Valid {
		printError(fmt.Errorf("please enter a valid amount"))
		os.Exit(1)
	}
	printSuccess(fmt.Sprintf("%s %s = %s %s (1 %s = %s %s)",
		buy.Amount, buy.Currency, quantity.Format(), cfg.Presale.TokenSymbol,
		buy.Currency, rate.String(), cfg.Presale.TokenSymbol))

	if amount, ok := presale.ParseAmount(buy.Amount); ok && amount.LessThan(minimums[buy.Currency]) {
		fmt.Printf("Note: the minimum purchase is %s %s\n\n", minimums[buy.Currency].String(), buy.Currency)
	}
}
