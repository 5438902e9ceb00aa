// Package network checks that a wallet sits on the presale chain and moves
// it there when it does not.
package network

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"

	"four-presale/config"
	"four-presale/pkg/signer"
	"four-presale/pkg/types"
)

// Result says which path a switch request took
type Result int

const (
	Switched Result = iota // The wallet already knew the chain
	Added                  // The chain was registered, which also switched to it
)

// Guard knows the one chain the presale accepts payments on
type Guard struct {
	required signer.ChainDescriptor
	log      *zap.Logger
}

// NewGuard creates a guard for the required chain
func NewGuard(required signer.ChainDescriptor, log *zap.Logger) *Guard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Guard{
		required: required,
		log:      log.With(zap.String("component", "network"), zap.String("chain_id", required.ChainID.String())),
	}
}

// DescriptorFromConfig builds the chain descriptor wallets are asked to add.
// The decimal and hex chain ids must agree.
func DescriptorFromConfig(cfg config.NetworkConfig) (signer.ChainDescriptor, error) {
	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainIDHex != "" {
		fromHex, err := hexutil.DecodeBig(strings.ToLower(cfg.ChainIDHex))
		if err != nil {
			return signer.ChainDescriptor{}, fmt.Errorf("invalid network.chain_id_hex: %w", err)
		}
		if fromHex.Cmp(chainID) != 0 {
			return signer.ChainDescriptor{}, fmt.Errorf("network.chain_id_hex %s does not match network.chain_id %d", cfg.ChainIDHex, cfg.ChainID)
		}
	}

	return signer.ChainDescriptor{
		ChainID:     chainID,
		Name:        cfg.Name,
		RPCURL:      cfg.RPCURL,
		ExplorerURL: cfg.ExplorerURL,
		NativeCurrency: signer.NativeCurrency{
			Name:     cfg.NativeName,
			Symbol:   cfg.NativeSymbol,
			Decimals: cfg.NativeDecimals,
		},
	}, nil
}

// Descriptor returns the required chain
func (g *Guard) Descriptor() signer.ChainDescriptor {
	return g.required
}

// Name returns the required chain's display name
func (g *Guard) Name() string {
	return g.required.Name
}

// IsCorrect returns true only for the required chain id
func (g *Guard) IsCorrect(chainID *big.Int) bool {
	return chainID != nil && chainID.Cmp(g.required.ChainID) == 0
}

// RequestSwitch asks the wallet to switch to the required chain. A wallet
// that does not know the chain is asked to add it instead; a rejection
// stops there.
func (g *Guard) RequestSwitch(ctx context.Context, handle signer.Handle) (Result, error) {
	if handle == nil {
		return Switched, types.NewError(types.KindHandleMissing, "Wallet not properly connected. Please reconnect.", nil)
	}

	err := handle.SwitchChain(ctx, g.required.ChainID)
	switch {
	case err == nil:
		g.log.Info("Wallet switched chain")
		return Switched, nil
	case signer.IsChainUnknown(err):
		g.log.Info("Wallet does not know the chain, adding it")
		return Added, g.RequestAdd(ctx, handle)
	case signer.IsUserRejected(err):
		return Switched, types.NewError(types.KindUserRejected, "Network switch cancelled by user.", err)
	default:
		g.log.Warn("Network switch failed", zap.Error(err))
		return Switched, types.NewError(types.KindUnknown, "Failed to switch network. Please try again.", err)
	}
}

// RequestAdd registers the required chain with the wallet. It is tried
// once; the user adds the chain by hand if this fails.
func (g *Guard) RequestAdd(ctx context.Context, handle signer.Handle) error {
	if handle == nil {
		return types.NewError(types.KindHandleMissing, "Wallet not properly connected. Please reconnect.", nil)
	}

	err := handle.AddChain(ctx, g.required)
	if err == nil {
		g.log.Info("Wallet added chain")
		return nil
	}

	g.log.Warn("Adding chain failed", zap.Error(err))
	kind := types.KindUnknown
	if signer.IsUserRejected(err) {
		kind = types.KindUserRejected
	}
	return types.NewError(kind, fmt.Sprintf("Failed to add %s network. Please add it manually.", g.required.Name), err)
}
