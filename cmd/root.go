package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "four-presale",
	Short: "A CLI for buying FOUR presale tokens on BNB Smart Chain",
	Long: `four-presale is a command-line tool for taking part in the FOUR token presale.
Pay with BNB, USDT or USDC from your wallet and the presale tokens are
airdropped to the paying address after the presale ends.

Examples:
  four-presale quote 100 USDT
  four-presale buy 0.5 BNB
  four-presale connect --watch
  four-presale switch-network
  four-presale status <tx-hash>
  four-presale info`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolP("yes", "y", false, "Approve prompts without asking")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}
