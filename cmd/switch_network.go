package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var switchNetworkCmd = &cobra.Command{
	Use:   "switch-network",
	Short: "Move the wallet to the presale network",
	Long: `Ask the connected wallet to switch to BNB Smart Chain. If the wallet does
not know the network yet it is asked to add it first.

Examples:
  four-presale switch-network`,
	Args: cobra.NoArgs,
	Run:  runSwitchNetwork,
}

func init() {
	rootCmd.AddCommand(switchNetworkCmd)
}

func runSwitchNetwork(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	failed := false
	if _, err := a.wallet.Connect(ctx); err != nil {
		failed = true
	} else if err := a.wallet.SwitchNetwork(ctx); err != nil {
		failed = true
	}

	a.Close()
	if failed {
		os.Exit(1)
	}
}
