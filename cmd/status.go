package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"four-presale/config"
	"four-presale/pkg/chain"
	"four-presale/pkg/types"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <tx-hash>",
	Short: "Check the status of a purchase transaction",
	Long: `Check whether a presale payment has been confirmed on-chain.

Examples:
  four-presale status 0x1234...abcd
  four-presale status 0x1234...abcd --watch
  four-presale status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates until the transaction settles")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if len(args[0]) != 66 || !strings.HasPrefix(args[0], "0x") {
		printError(fmt.Errorf("invalid transaction hash: %s", args[0]))
		os.Exit(1)
	}
	hash := common.HexToHash(args[0])

	// Load configuration
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Create client
	reader, err := chain.Dial(context.Background(), cfg.Network.RPCURL, 0, log)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer reader.Close()

	tracker := &txTracker{reader: reader, cfg: cfg}

	if watchStatus {
		tracker.watch(hash, jsonOutput)
	} else {
		tracker.check(hash, jsonOutput)
	}
}

type txTracker struct {
	reader *chain.Reader
	cfg    *config.Config
}

func (t *txTracker) lookup(hash common.Hash) (*chain.TxStatus, error) {
	return t.reader.TransactionStatus(context.Background(), hash)
}

func (t *txTracker) check(hash common.Hash, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking transaction status..."
		s.Start()
	}

	status, err := t.lookup(hash)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayStatus(status, t.cfg)
	}
}

func (t *txTracker) watch(hash common.Hash, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching transaction %s\n", color.CyanString(hash.Hex()))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	if t.checkAndDisplay(hash) {
		return
	}

	// Then check periodically until the transaction settles
	for range ticker.C {
		if t.checkAndDisplay(hash) {
			return
		}
	}
}

// checkAndDisplay returns true once the transaction has a receipt
func (t *txTracker) checkAndDisplay(hash common.Hash) bool {
	status, err := t.lookup(hash)
	if err != nil {
		color.Red("Error: %v", err)
		return false
	}

	displayStatus(status, t.cfg)
	if status.Status == types.StatusConfirmed {
		color.Green("Payment confirmed. Tokens will be airdropped after presale ends.")
	}
	return status.Status != types.StatusPending
}

func displayStatus(status *chain.TxStatus, cfg *config.Config) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                      TRANSACTION STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Transaction:     %s\n", color.CyanString(status.Hash.Hex()))
	fmt.Printf("  Status:          %s\n", coloredStatus(status.Status))
	if status.To != "" {
		fmt.Printf("  To:              %s\n", status.To)
	}
	if status.BlockNumber > 0 {
		fmt.Printf("  Block:           %d\n", status.BlockNumber)
		fmt.Printf("  Gas Used:        %d\n", status.GasUsed)
	}
	if cfg.Network.ExplorerURL != "" {
		fmt.Printf("  Explorer:        %s\n", color.HiBlackString(strings.TrimSuffix(cfg.Network.ExplorerURL, "/")+"/tx/"+status.Hash.Hex()))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
