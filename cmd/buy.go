package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"four-presale/config"
	"four-presale/pkg/parser"
	"four-presale/pkg/presale"
	"four-presale/pkg/types"
)

var (
	confirmTimeout time.Duration
	autoSwitch     bool
)

var buyCmd = &cobra.Command{
	Use:   "buy <amount> <currency>",
	Short: "Buy presale tokens with BNB, USDT or USDC",
	Long: `Pay for presale tokens from your connected wallet.

The payment goes to the presale address on BNB Smart Chain. Tokens are
airdropped to the paying address after the presale ends.

Examples:
  four-presale buy 0.5 BNB
  four-presale buy 100 USDT
  four-presale buy 250usdc --yes
  four-presale buy 1 BNB --switch-network --confirm-timeout 5m
  four-presale buy 100 USDT --json --yes`,
	Args: cobra.RangeArgs(1, 2),
	Run:  runBuy,
}

func init() {
	rootCmd.AddCommand(buyCmd)

	buyCmd.Flags().DurationVar(&confirmTimeout, "confirm-timeout", 0, "Stop waiting for confirmation after this long (0 waits until interrupted)")
	buyCmd.Flags().BoolVar(&autoSwitch, "switch-network", false, "Switch the wallet to the presale network if needed")
}

func runBuy(cmd *cobra.Command, args []string) {
	if !executeBuy(cmd, args) {
		os.Exit(1)
	}
}

// executeBuy returns false when the purchase failed. The wallet is
// disconnected before it returns.
func executeBuy(cmd *cobra.Command, args []string) bool {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	autoApprove, _ := cmd.Flags().GetBool("yes")

	if err := checkApproval(jsonOutput, autoApprove); err != nil {
		fmt.Printf("{\"error\": %q}\n", err.Error())
		return false
	}

	buy, err := parser.ParseBuyArgs(args)
	if err != nil {
		printError(err)
		return false
	}

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		printError(err)
		return false
	}
	rates, err := cfg.Rates()
	if err != nil {
		printError(err)
		return false
	}
	quantity := presale.NewConverter(rates).Convert(buy.Amount, buy.Currency)

	if !jsonOutput {
		displayPurchase(cfg, buy, quantity)
		if !autoApprove && !askYesNo("\nProceed with purchase? (y/N): ") {
			color.Yellow("Purchase cancelled")
			return true
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Connecting to wallet..."
		s.Start()
	}
	a, err := newApp(ctx, cmd)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		return false
	}
	defer a.Close()

	session, err := a.wallet.Connect(ctx)
	if err != nil {
		printOutcome(types.TransferOutcome{Status: types.StatusFailed, Err: asPresaleError(err)}, jsonOutput)
		return false
	}

	if !session.IsCorrectChain && autoSwitch {
		if err := a.wallet.SwitchNetwork(ctx); err != nil {
			printOutcome(types.TransferOutcome{Status: types.StatusFailed, Err: asPresaleError(err)}, jsonOutput)
			return false
		}
	}

	submitCtx := ctx
	if confirmTimeout > 0 {
		var cancel context.CancelFunc
		submitCtx, cancel = context.WithTimeout(ctx, confirmTimeout)
		defer cancel()
	}

	outcome := a.submitter.Submit(submitCtx, a.submitter.NewRequest(buy.Currency, buy.Amount))
	printOutcome(outcome, jsonOutput)
	return outcome.Status != types.StatusFailed
}

var errApprovalRequired = errors.New("--json cannot prompt for confirmation, pass --yes to approve the purchase")

// checkApproval refuses to buy without confirmation. JSON output has no
// interactive prompt, so it needs --yes up front.
func checkApproval(jsonOutput, autoApprove bool) error {
	if jsonOutput && !autoApprove {
		return errApprovalRequired
	}
	return nil
}

func displayPurchase(cfg *config.Config, buy *parser.BuyCommand, quantity presale.Quantity) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    PURCHASE SUMMARY")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  You Pay:           %s %s\n", buy.Amount, color.YellowString(buy.Currency.String()))
	fmt.Printf("  You Receive:       ~%s %s\n", quantity.Format(), color.YellowString(cfg.Presale.TokenSymbol))
	fmt.Printf("  Recipient:         %s\n", color.CyanString(cfg.Presale.Recipient))
	fmt.Printf("  Network:           %s\n", cfg.Network.Name)

	if minimums, err := cfg.Minimums(); err == nil {
		fmt.Printf("  Minimum Purchase:  %s %s\n", minimums[buy.Currency].String(), buy.Currency)
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
}

func printOutcome(outcome types.TransferOutcome, jsonOutput bool) {
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(outcome, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	// the presenter already showed the failure
	if outcome.Status == types.StatusFailed {
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    PURCHASE RESULT")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  Status:            %s\n", coloredStatus(outcome.Status))
	if outcome.TxHash != "" {
		fmt.Printf("  Transaction:       %s\n", color.CyanString(outcome.TxHash))
		fmt.Printf("  Track it with:     four-presale status %s\n", outcome.TxHash)
	}
	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func asPresaleError(err error) *types.Error {
	var typed *types.Error
	if errors.As(err, &typed) {
		return typed
	}
	return types.NewError(types.KindUnknown, err.Error(), err)
}

func coloredStatus(status types.TransferStatus) string {
	label := strings.ToUpper(string(status))

	switch status {
	case types.StatusConfirmed:
		return color.GreenString(label)
	case types.StatusPending:
		return color.YellowString(label)
	case types.StatusFailed:
		return color.RedString(label)
	default:
		return label
	}
}
