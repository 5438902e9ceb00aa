package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"four-presale/pkg/types"
	"four-presale/pkg/wallet"
)

var watchWallet bool

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect a wallet and show its presale balances",
	Long: `Connect your wallet, check it is on the presale network and show the
balances you can pay with.

With --watch the connection stays open and account or network changes made
in the wallet are reported until you press Ctrl+C.

Examples:
  four-presale connect
  four-presale connect --watch`,
	Run: runConnect,
}

func init() {
	rootCmd.AddCommand(connectCmd)

	connectCmd.Flags().BoolVarP(&watchWallet, "watch", "w", false, "Keep the connection open and report wallet changes")
}

type balanceRow struct {
	Currency types.Currency `json:"currency"`
	Balance  string         `json:"balance"`
}

type connectOutput struct {
	Address        string       `json:"address"`
	ChainID        string       `json:"chain_id"`
	IsCorrectChain bool         `json:"is_correct_chain"`
	Method         string       `json:"method"`
	Balances       []balanceRow `json:"balances,omitempty"`
}

func runConnect(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if watchWallet && jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer a.Close()

	session, err := a.wallet.Connect(ctx)
	if err != nil {
		a.Close()
		os.Exit(1)
	}

	out := connectOutput{
		Address:        session.Address.Hex(),
		ChainID:        session.ChainID.String(),
		IsCorrectChain: session.IsCorrectChain,
		Method:         session.Method.String(),
	}

	if session.IsCorrectChain {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		if !jsonOutput {
			s.Suffix = " Fetching balances..."
			s.Start()
		}
		out.Balances, err = a.balances(ctx, *session.Address)
		if !jsonOutput {
			s.Stop()
		}
		if err != nil {
			color.Red("Error: %v", err)
		}
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayWallet(a, session, out.Balances)

	if !watchWallet {
		return
	}

	fmt.Printf("Watching wallet %s. Press Ctrl+C to stop.\n\n", color.CyanString(session.ShortAddress()))
	if waitForDisconnect(ctx, a.wallet.Session, watchPollInterval) {
		color.Yellow("\nWallet disconnected. Stopped watching.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Yellow("\nReceived shutdown signal. Disconnecting wallet...")
}

const watchPollInterval = 500 * time.Millisecond

// waitForDisconnect blocks until the session is no longer connected or ctx
// is done. It reports whether the wallet side ended the session.
func waitForDisconnect(ctx context.Context, session func() wallet.Session, interval time.Duration) bool {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if !session().Connected {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// balances reads what the address holds in each accepted currency
func (a *app) balances(ctx context.Context, owner common.Address) ([]balanceRow, error) {
	rows := make([]balanceRow, 0, len(types.Currencies))
	for _, cur := range types.Currencies {
		if cur.IsNative() {
			wei, err := a.reader.NativeBalance(ctx, owner)
			if err != nil {
				return rows, err
			}
			rows = append(rows, balanceRow{Currency: cur, Balance: decimal.NewFromBigInt(wei, -int32(a.cfg.Network.NativeDecimals)).String()})
			continue
		}

		token, err := a.cfg.TokenAddress(cur)
		if err != nil {
			return rows, err
		}
		decimals, err := a.reader.Decimals(ctx, token)
		if err != nil {
			return rows, err
		}
		raw, err := a.reader.BalanceOf(ctx, token, owner)
		if err != nil {
			return rows, err
		}
		rows = append(rows, balanceRow{Currency: cur, Balance: decimal.NewFromBigInt(raw, -int32(decimals)).String()})
	}
	return rows, nil
}

func displayWallet(a *app, session wallet.Session, balances []balanceRow) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                        WALLET")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Address:           %s\n", color.CyanString(session.Address.Hex()))
	if session.IsCorrectChain {
		fmt.Printf("  Network:           %s\n", color.GreenString(a.guard.Name()))
	} else {
		fmt.Printf("  Network:           %s (chain %s)\n", color.RedString("Wrong Network"), session.ChainID)
	}
	fmt.Printf("  Connected Via:     %s\n", session.Method)

	for _, b := range balances {
		fmt.Printf("  %-19s%s\n", b.Currency.String()+":", b.Balance)
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
