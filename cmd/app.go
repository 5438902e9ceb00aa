package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"four-presale/config"
	"four-presale/pkg/chain"
	"four-presale/pkg/logger"
	"four-presale/pkg/network"
	"four-presale/pkg/presale"
	"four-presale/pkg/signer"
	"four-presale/pkg/ui"
	"four-presale/pkg/wallet"
)

const switchHint = "four-presale switch-network"

// Prompts and wallet approvals share one reader so neither loses buffered input
var stdin = bufio.NewReader(os.Stdin)

// app is everything a wallet-facing command needs
type app struct {
	cfg       *config.Config
	log       *zap.Logger
	presenter *ui.Presenter
	guard     *network.Guard
	wallet    *wallet.Manager
	reader    *chain.Reader
	submitter *presale.Submitter
}

func loadConfig(cmd *cobra.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logCfg := cfg.Logger
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		logCfg.Level = "debug"
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newApp(ctx context.Context, cmd *cobra.Command) (*app, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	autoApprove, _ := cmd.Flags().GetBool("yes")

	var out io.Writer = os.Stdout
	if jsonOutput {
		out = os.Stderr
	}
	presenter := ui.NewPresenter(out, ui.NewBanner(ui.DefaultBannerTTL), cfg.Network.Name, switchHint)

	descriptor, err := network.DescriptorFromConfig(cfg.Network)
	if err != nil {
		return nil, err
	}
	guard := network.NewGuard(descriptor, log)

	approve := confirmAction
	if autoApprove {
		approve = signer.ApproveAll
	}

	rpcURL := cfg.Wallet.RPCURL
	if rpcURL == "" {
		rpcURL = cfg.Network.RPCURL
	}
	local := &wallet.LocalStrategy{
		Keys: signer.KeySource{
			PrivateKey:   cfg.Wallet.PrivateKey,
			KeystoreFile: cfg.Wallet.KeystoreFile,
			Password:     cfg.Wallet.Password,
		},
		RPCURL:  rpcURL,
		Prompt:  signer.TerminalPassword,
		Approve: approve,
		Dial:    signer.DialEthClient,
		Install: wallet.InstallURL(cfg.Wallet),
		Logger:  log,
	}
	strategy := wallet.SelectStrategy(ctx, cfg.Wallet, local, signer.DialBridge, log)
	manager := wallet.NewManager(strategy, guard, presenter, log)

	reader, err := chain.Dial(ctx, cfg.Network.RPCURL, time.Duration(cfg.Wallet.ReceiptPollSec)*time.Second, log)
	if err != nil {
		return nil, err
	}

	settings, err := presale.SettingsFromConfig(cfg)
	if err != nil {
		reader.Close()
		return nil, err
	}
	submitter, err := presale.NewSubmitter(manager, reader, presenter, settings, log)
	if err != nil {
		reader.Close()
		return nil, err
	}

	return &app{
		cfg:       cfg,
		log:       log,
		presenter: presenter,
		guard:     guard,
		wallet:    manager,
		reader:    reader,
		submitter: submitter,
	}, nil
}

// Close disconnects the wallet and releases the chain connection
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.wallet.Session().Connected {
		a.wallet.Disconnect(ctx)
	}
	a.reader.Close()
	_ = a.log.Sync()
}

// confirmAction is the local signer's approval prompt
func confirmAction(_ context.Context, prompt string) bool {
	return askYesNo(fmt.Sprintf("\n%s\nApprove? (y/N): ", prompt))
}

func askYesNo(question string) bool {
	fmt.Print(question)

	response, err := stdin.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
