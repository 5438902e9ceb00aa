package presale

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"four-presale/config"
	"four-presale/pkg/chain"
	"four-presale/pkg/types"
	"four-presale/pkg/wallet"
)

// ChainReader is the on-chain state the submitter reads
type ChainReader interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error)
	WaitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error)
}

// SessionSource gives read access to the wallet session
type SessionSource interface {
	Session() wallet.Session
}

// Settings are the fixed presale parameters
type Settings struct {
	Recipient      common.Address
	Tokens         map[types.Currency]common.Address
	Minimums       map[types.Currency]decimal.Decimal
	NativeGasLimit uint64
	NativeDecimals uint8
	NetworkName    string
}

// SettingsFromConfig builds Settings from the loaded configuration
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	minimums, err := cfg.Minimums()
	if err != nil {
		return Settings{}, err
	}

	tokens := make(map[types.Currency]common.Address)
	for _, cur := range types.Currencies {
		if cur.IsNative() {
			continue
		}
		addr, err := cfg.TokenAddress(cur)
		if err != nil {
			return Settings{}, err
		}
		tokens[cur] = addr
	}

	return Settings{
		Recipient:      cfg.RecipientAddress(),
		Tokens:         tokens,
		Minimums:       minimums,
		NativeGasLimit: cfg.Presale.NativeGasLimit,
		NativeDecimals: cfg.Network.NativeDecimals,
		NetworkName:    cfg.Network.Name,
	}, nil
}

// Submitter sends presale payments. One submission runs at a time.
type Submitter struct {
	sessions SessionSource
	chain    ChainReader
	notifier types.Notifier
	settings Settings
	tokenABI abi.ABI
	log      *zap.Logger

	busy atomic.Bool
}

// NewSubmitter creates a submitter
func NewSubmitter(sessions SessionSource, reader ChainReader, notifier types.Notifier, settings Settings, log *zap.Logger) (*Submitter, error) {
	tokenABI, err := chain.ERC20ABI()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	if settings.NativeDecimals == 0 {
		settings.NativeDecimals = 18
	}

	return &Submitter{
		sessions: sessions,
		chain:    reader,
		notifier: notifier,
		settings: settings,
		tokenABI: tokenABI,
		log:      log.With(zap.String("component", "submitter")),
	}, nil
}

// NewRequest builds a purchase request for the fixed recipient
func (s *Submitter) NewRequest(currency types.Currency, rawAmount string) types.TransferRequest {
	return types.TransferRequest{
		ID:        uuid.New().String(),
		Currency:  currency,
		RawAmount: rawAmount,
		Recipient: s.settings.Recipient,
		Minimum:   s.settings.Minimums[currency],
	}
}

// Submit validates the request, sends the payment and waits for its
// receipt. Every failure is reported to the notifier exactly once. A call
// made while another is running fails with KindBusy and does nothing else.
func (s *Submitter) Submit(ctx context.Context, req types.TransferRequest) types.TransferOutcome {
	log := s.log.With(zap.String("request_id", req.ID), zap.String("currency", req.Currency.String()))

	if !s.busy.CompareAndSwap(false, true) {
		return s.fail(log, req, "", types.NewError(types.KindBusy, "A purchase is already in progress.", nil))
	}
	defer s.busy.Store(false)

	amount, session, err := s.check(req)
	if err != nil {
		return s.fail(log, req, "", err)
	}

	s.notifier.ShowMessage(types.LevelInfo, "Preparing transaction...")
	log.Info("Submitting purchase", zap.String("amount", amount.String()), zap.String("from", session.Address.Hex()))

	var hash common.Hash
	if req.Currency.IsNative() {
		hash, err = s.sendNative(ctx, session, req, amount)
	} else {
		hash, err = s.sendToken(ctx, session, req, amount)
	}
	if err != nil {
		return s.fail(log, req, "", Classify(err, req.Currency))
	}

	txHash := hash.Hex()
	log = log.With(zap.String("tx_hash", txHash))
	s.notifier.ShowMessage(types.LevelInfo, "Transaction sent! Waiting for confirmation...")

	receipt, err := s.chain.WaitReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			pending := types.NewError(types.KindUnknown,
				fmt.Sprintf("Stopped waiting for confirmation of %s; the transaction may still confirm", txHash), err)
			s.notifier.ShowMessage(types.LevelWarning, pending.Message)
			log.Warn("Gave up waiting for receipt", zap.Error(err))
			return types.TransferOutcome{RequestID: req.ID, Status: types.StatusPending, TxHash: txHash, Err: pending}
		}
		return s.fail(log, req, txHash, Classify(err, req.Currency))
	}

	if receipt.Status != ethtypes.ReceiptStatusSuccessful {
		return s.fail(log, req, txHash, types.NewError(types.KindUnknown, "Transaction failed", nil))
	}

	log.Info("Purchase confirmed", zap.Stringer("block", receipt.BlockNumber))
	s.notifier.ShowMessage(types.LevelSuccess, "Purchase successful! Tokens will be airdropped after presale ends.")
	return types.TransferOutcome{RequestID: req.ID, Status: types.StatusConfirmed, TxHash: txHash}
}

// check runs the preconditions in order. None of them touch the network.
func (s *Submitter) check(req types.TransferRequest) (decimal.Decimal, wallet.Session, error) {
	amount, ok := ParseAmount(req.RawAmount)
	if !ok {
		return decimal.Zero, wallet.Session{}, types.NewError(types.KindInvalidAmount, "Please enter a valid amount greater than 0.", nil)
	}

	session := s.sessions.Session()
	if !session.Connected {
		return decimal.Zero, session, types.NewError(types.KindNotConnected, "Please connect your wallet first.", nil)
	}
	if !session.IsCorrectChain {
		return decimal.Zero, session, types.NewError(types.KindWrongNetwork,
			fmt.Sprintf("Please switch to %s network first.", s.settings.NetworkName), nil)
	}
	if session.Handle == nil || session.Address == nil {
		return decimal.Zero, session, types.NewError(types.KindHandleMissing, "Wallet not properly connected. Please reconnect.", nil)
	}

	if amount.LessThan(req.Minimum) {
		return decimal.Zero, session, types.BelowMinimum(req.Currency, req.Minimum)
	}
	return amount, session, nil
}

func (s *Submitter) sendNative(ctx context.Context, session wallet.Session, req types.TransferRequest, amount decimal.Decimal) (common.Hash, error) {
	value, err := toBaseUnits(amount, s.settings.NativeDecimals)
	if err != nil {
		return common.Hash{}, err
	}
	return session.Handle.SendNativeTransfer(ctx, req.Recipient, value, s.settings.NativeGasLimit)
}

func (s *Submitter) sendToken(ctx context.Context, session wallet.Session, req types.TransferRequest, amount decimal.Decimal) (common.Hash, error) {
	token, ok := s.settings.Tokens[req.Currency]
	if !ok {
		return common.Hash{}, fmt.Errorf("no token contract configured for %s", req.Currency)
	}

	decimals, err := s.chain.Decimals(ctx, token)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get %s decimals: %w", req.Currency, err)
	}

	units, err := toBaseUnits(amount, decimals)
	if err != nil {
		return common.Hash{}, err
	}

	balance, err := s.chain.BalanceOf(ctx, token, *session.Address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get %s balance: %w", req.Currency, err)
	}
	if balance.Cmp(units) < 0 {
		return common.Hash{}, types.InsufficientBalance(req.Currency)
	}

	s.notifier.ShowMessage(types.LevelInfo, fmt.Sprintf("Sending %s tokens...", req.Currency))
	return session.Handle.CallContract(ctx, token, s.tokenABI, "transfer", req.Recipient, units)
}

// fail reports err through the one channel its kind belongs to
func (s *Submitter) fail(log *zap.Logger, req types.TransferRequest, txHash string, err error) types.TransferOutcome {
	typed := Classify(err, req.Currency)

	switch typed.Kind {
	case types.KindWrongNetwork:
		s.notifier.ShowNetworkModal()
	case types.KindBelowMinimum:
		s.notifier.ShowMinimumModal(req.Currency, *typed.Minimum)
	default:
		s.notifier.ShowMessage(types.LevelError, typed.Message)
	}

	log.Warn("Purchase failed", zap.String("kind", string(typed.Kind)), zap.Error(typed))
	return types.TransferOutcome{RequestID: req.ID, Status: types.StatusFailed, TxHash: txHash, Err: typed}
}

// toBaseUnits scales a decimal amount to integer base units. Amounts with
// more fractional digits than the currency supports are rejected.
func toBaseUnits(amount decimal.Decimal, decimals uint8) (*big.Int, error) {
	scaled := amount.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, types.NewError(types.KindInvalidAmount,
			fmt.Sprintf("Amount %s has more than %d decimal places", amount.String(), decimals), nil)
	}
	return scaled.BigInt(), nil
}
