package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"four-presale/pkg/presale"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show presale details, time left and tokenomics",
	Long: `Show where payments go, how long the presale still runs and how the token
supply is split.

The presale address can also be paid directly from any wallet on BNB Smart
Chain; send only BNB, USDT or USDC.

Examples:
  four-presale info
  four-presale info --json`,
	Args: cobra.NoArgs,
	Run:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

type infoOutput struct {
	Token      string               `json:"token"`
	Recipient  string               `json:"recipient"`
	Network    string               `json:"network"`
	ChainID    int64                `json:"chain_id"`
	EndsAt     time.Time            `json:"ends_at"`
	TimeLeft   presale.Countdown    `json:"time_left"`
	Tokenomics []presale.Allocation `json:"tokenomics"`
}

func runInfo(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, _, err := loadConfig(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	endsAt, err := cfg.EndTime()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	out := infoOutput{
		Token:      cfg.Presale.TokenSymbol,
		Recipient:  cfg.Presale.Recipient,
		Network:    cfg.Network.Name,
		ChainID:    cfg.Network.ChainID,
		EndsAt:     endsAt,
		TimeLeft:   presale.CountdownTo(time.Now(), endsAt),
		Tokenomics: presale.Tokenomics,
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                 %s PRESALE", out.Token)
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Presale Address:   %s\n", color.CyanString(out.Recipient))
	fmt.Printf("  Network:           %s (chain %d)\n", out.Network, out.ChainID)
	fmt.Printf("  Ends At:           %s\n", out.EndsAt.Format("2006-01-02 15:04:05 MST"))
	if out.TimeLeft.Ended {
		fmt.Printf("  Time Left:         %s\n", color.RedString(out.TimeLeft.String()))
	} else {
		fmt.Printf("  Time Left:         %s\n", color.YellowString(out.TimeLeft.String()))
	}

	fmt.Println("\n  Tokenomics")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, a := range out.Tokenomics {
		fmt.Fprintf(w, "    %s\t%d%%\n", a.Name, a.Percent)
	}
	w.Flush()

	color.Yellow("\n  Only send BNB, USDT or USDC on %s to the presale address.", out.Network)
	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
