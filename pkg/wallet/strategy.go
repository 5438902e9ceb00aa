package wallet

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"four-presale/config"
	"four-presale/pkg/signer"
	"four-presale/pkg/types"
)

// Strategy obtains a signing handle. One strategy is chosen at startup and
// used for every connect.
type Strategy interface {
	Method() ConnectionMethod
	Open(ctx context.Context) (signer.Handle, error)
}

// Installer is implemented by strategies that can point the user at a
// wallet to install
type Installer interface {
	InstallURL() string
}

// BridgeDialer opens a bridge connection
type BridgeDialer func(ctx context.Context, url, projectID string, log *zap.Logger) (*signer.BridgeSigner, error)

// BridgeStrategy connects through a remote wallet bridge
type BridgeStrategy struct {
	url       string
	projectID string
	dial      BridgeDialer
	log       *zap.Logger

	mu    sync.Mutex
	ready *signer.BridgeSigner // Connection made at startup, handed to the first Open
}

// NewBridgeStrategy dials the bridge and checks it answers. An error means
// the bridge is unavailable.
func NewBridgeStrategy(ctx context.Context, url, projectID string, dial BridgeDialer, log *zap.Logger) (*BridgeStrategy, error) {
	if dial == nil {
		dial = signer.DialBridge
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &BridgeStrategy{url: url, projectID: projectID, dial: dial, log: log}
	bridge, err := s.probe(ctx)
	if err != nil {
		return nil, err
	}
	s.ready = bridge
	return s, nil
}

func (s *BridgeStrategy) probe(ctx context.Context) (*signer.BridgeSigner, error) {
	bridge, err := s.dial(ctx, s.url, s.projectID, s.log)
	if err != nil {
		return nil, err
	}
	if _, err := bridge.ChainID(ctx); err != nil {
		_ = bridge.Disconnect(ctx)
		return nil, fmt.Errorf("wallet bridge is not responding: %w", err)
	}
	return bridge, nil
}

func (s *BridgeStrategy) Method() ConnectionMethod {
	return MethodProviderModal
}

// Open hands out the startup connection once and dials fresh afterwards,
// since a disconnect closes the bridge transport.
func (s *BridgeStrategy) Open(ctx context.Context) (signer.Handle, error) {
	s.mu.Lock()
	bridge := s.ready
	s.ready = nil
	s.mu.Unlock()

	if bridge != nil {
		return bridge, nil
	}

	bridge, err := s.dial(ctx, s.url, s.projectID, s.log)
	if err != nil {
		return nil, err
	}
	return bridge, nil
}

// LocalStrategy signs with a key configured on this machine
type LocalStrategy struct {
	Keys    signer.KeySource
	RPCURL  string
	Chains  []signer.ChainDescriptor
	Prompt  signer.PasswordPrompt
	Approve signer.Approver
	Dial    signer.Dialer
	Install string
	Logger  *zap.Logger
}

func (s *LocalStrategy) Method() ConnectionMethod {
	return MethodDirectExtension
}

func (s *LocalStrategy) InstallURL() string {
	return s.Install
}

// Open loads the key and connects it. Without a configured key the wallet
// counts as not installed.
func (s *LocalStrategy) Open(ctx context.Context) (signer.Handle, error) {
	if !s.Keys.Configured() {
		return nil, types.NewError(types.KindNotInstalled,
			"No wallet found. Install a wallet, or set wallet.private_key or wallet.keystore_file.", signer.ErrNotInstalled)
	}

	key, err := signer.LoadKey(s.Keys, s.Prompt)
	if err != nil {
		return nil, err
	}

	return signer.NewLocalSigner(ctx, key, s.RPCURL, signer.LocalOptions{
		Dial:    s.Dial,
		Approve: s.Approve,
		Logger:  s.Logger,
		Chains:  s.Chains,
	})
}

// InstallURL picks the wallet download link for the platform
func InstallURL(cfg config.WalletConfig) string {
	switch strings.ToLower(cfg.Platform) {
	case "ios", "ipad", "iphone":
		return cfg.AppStoreURL
	case "android":
		return cfg.PlayStoreURL
	default:
		return cfg.InstallURL
	}
}

const bridgeProbeTimeout = 10 * time.Second

// SelectStrategy picks the bridge when one is configured and reachable,
// and the local signer otherwise. It runs once at startup.
func SelectStrategy(ctx context.Context, cfg config.WalletConfig, local *LocalStrategy, dial BridgeDialer, log *zap.Logger) Strategy {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.BridgeURL == "" {
		log.Debug("No wallet bridge configured, using local signer")
		return local
	}

	probeCtx, cancel := context.WithTimeout(ctx, bridgeProbeTimeout)
	defer cancel()

	bridge, err := NewBridgeStrategy(probeCtx, cfg.BridgeURL, cfg.ProjectID, dial, log)
	if err != nil {
		log.Warn("Wallet bridge unavailable, falling back to local signer", zap.String("url", cfg.BridgeURL), zap.Error(err))
		return local
	}
	return bridge
}
