package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"four-presale/config"
	"four-presale/pkg/types"
)

var filterCurrency string

var ratesCmd = &cobra.Command{
	Use:     "rates",
	Aliases: []string{"currencies", "ls"},
	Short:   "List accepted currencies with their rates and minimums",
	Long: `List every currency the presale accepts, how many presale tokens one unit
buys, the minimum purchase and the token contract paid to.

Examples:
  four-presale rates
  four-presale rates --currency usdt
  four-presale rates --json`,
	Run: runRates,
}

func init() {
	rootCmd.AddCommand(ratesCmd)

	ratesCmd.Flags().StringVar(&filterCurrency, "currency", "", "Filter by currency symbol")
}

type rateRow struct {
	Currency types.Currency `json:"currency"`
	Rate     string         `json:"rate"`
	Minimum  string         `json:"minimum"`
	Contract string         `json:"contract,omitempty"`
}

func runRates(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	rows, err := rateRows(cfg)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Apply filter
	if filterCurrency != "" {
		var filtered []rateRow
		for _, row := range rows {
			if strings.EqualFold(row.Currency.String(), strings.TrimSpace(filterCurrency)) {
				filtered = append(filtered, row)
			}
		}
		rows = filtered
	}

	// Output
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayRates(cfg, rows)
	}
}

func rateRows(cfg *config.Config) ([]rateRow, error) {
	rates, err := cfg.Rates()
	if err != nil {
		return nil, err
	}
	minimums, err := cfg.Minimums()
	if err != nil {
		return nil, err
	}

	rows := make([]rateRow, 0, len(types.Currencies))
	for _, cur := range types.Currencies {
		row := rateRow{
			Currency: cur,
			Rate:     rates[cur].String(),
			Minimum:  minimums[cur].String(),
		}
		if !cur.IsNative() {
			addr, err := cfg.TokenAddress(cur)
			if err != nil {
				return nil, err
			}
			row.Contract = addr.Hex()
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func displayRates(cfg *config.Config, rows []rateRow) {
	if len(rows) == 0 {
		fmt.Println("\nNo currencies found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                              ACCEPTED CURRENCIES")
	fmt.Println(strings.Repeat("=", 90))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\nCURRENCY\t%s PER UNIT\tMINIMUM\tCONTRACT\n", cfg.Presale.TokenSymbol)
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, row := range rows {
		contract := row.Contract
		if contract == "" {
			contract = "native"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", color.YellowString(row.Currency.String()), row.Rate, row.Minimum, contract)
	}
	w.Flush()

	fmt.Printf("\nPayments go to %s on %s\n", color.CyanString(cfg.Presale.Recipient), cfg.Network.Name)
	fmt.Println(strings.Repeat("=", 90) + "\n")
}
