package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Backend is the slice of an Ethereum client the local signer needs
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	Close()
}

// Dialer connects to an RPC endpoint
type Dialer func(ctx context.Context, url string) (Backend, error)

// Approver asks the key owner to confirm an action. Returning false is a
// user rejection.
type Approver func(ctx context.Context, prompt string) bool

// DialEthClient is the default Dialer
func DialEthClient(ctx context.Context, url string) (Backend, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	return client, nil
}

// ApproveAll approves every request; used when prompts are disabled
func ApproveAll(context.Context, string) bool { return true }

const defaultContractGasLimit = uint64(100000) // Typical ERC20 transfer

// LocalSigner signs with a private key held by this process. It keeps a
// registry of chains it knows RPC endpoints for and behaves like an
// injected browser wallet: unknown chains must be added before switching.
type LocalSigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
	dial    Dialer
	approve Approver
	log     *zap.Logger

	mu      sync.Mutex
	backend Backend
	chainID *big.Int
	chains  map[string]ChainDescriptor
	closed  bool

	feed  event.Feed
	scope event.SubscriptionScope
}

// LocalOptions configures a LocalSigner
type LocalOptions struct {
	Dial    Dialer
	Approve Approver
	Logger  *zap.Logger
	// Known chains the signer can switch to without adding them first
	Chains []ChainDescriptor
}

// NewLocalSigner connects the key to rpcURL and reports whatever chain that
// endpoint serves as the current chain.
func NewLocalSigner(ctx context.Context, key *ecdsa.PrivateKey, rpcURL string, opts LocalOptions) (*LocalSigner, error) {
	if key == nil {
		return nil, ErrNotInstalled
	}
	if opts.Dial == nil {
		opts.Dial = DialEthClient
	}
	if opts.Approve == nil {
		opts.Approve = ApproveAll
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	backend, err := opts.Dial(ctx, rpcURL)
	if err != nil {
		return nil, err
	}

	chainID, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to get chain id: %w", err)
	}

	s := &LocalSigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		dial:    opts.Dial,
		approve: opts.Approve,
		log:     opts.Logger.With(zap.String("signer", "local")),
		backend: backend,
		chainID: chainID,
		chains:  make(map[string]ChainDescriptor),
	}

	for _, c := range opts.Chains {
		if c.ChainID != nil {
			s.chains[c.ChainID.String()] = c
		}
	}
	if _, ok := s.chains[chainID.String()]; !ok {
		s.chains[chainID.String()] = ChainDescriptor{ChainID: chainID, RPCURL: rpcURL}
	}

	return s, nil
}

// Address returns the signing account
func (s *LocalSigner) Address() common.Address {
	return s.address
}

func (s *LocalSigner) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if err := s.ensureOpen(); err != nil {
		return nil, err
	}
	return []common.Address{s.address}, nil
}

func (s *LocalSigner) ChainID(ctx context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errDisconnected()
	}
	return new(big.Int).Set(s.chainID), nil
}

func (s *LocalSigner) SwitchChain(ctx context.Context, chainID *big.Int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errDisconnected()
	}
	if s.chainID.Cmp(chainID) == 0 {
		s.mu.Unlock()
		return nil
	}
	chain, ok := s.chains[chainID.String()]
	if !ok {
		s.mu.Unlock()
		return &ProviderError{
			Code:    CodeUnrecognizedChain,
			Message: fmt.Sprintf("Unrecognized chain ID %s. Try adding the chain first.", chainID),
		}
	}
	s.mu.Unlock()

	if !s.approve(ctx, fmt.Sprintf("Switch wallet to %s (chain %s)?", displayName(chain), chainID)) {
		return UserRejected()
	}

	return s.activate(ctx, chain)
}

func (s *LocalSigner) AddChain(ctx context.Context, chain ChainDescriptor) error {
	if err := s.ensureOpen(); err != nil {
		return err
	}
	if chain.ChainID == nil || chain.RPCURL == "" {
		return &ProviderError{Code: -32602, Message: "chain id and RPC URL are required"}
	}

	prompt := fmt.Sprintf("Add network %s (chain %s) using %s?", displayName(chain), chain.ChainID, chain.RPCURL)
	if !s.approve(ctx, prompt) {
		return UserRejected()
	}

	s.mu.Lock()
	s.chains[chain.ChainID.String()] = chain
	s.mu.Unlock()

	// Adding a chain also switches to it
	return s.activate(ctx, chain)
}

// activate dials the chain's endpoint and makes it current
func (s *LocalSigner) activate(ctx context.Context, chain ChainDescriptor) error {
	backend, err := s.dial(ctx, chain.RPCURL)
	if err != nil {
		return err
	}

	actual, err := backend.ChainID(ctx)
	if err != nil {
		backend.Close()
		return fmt.Errorf("failed to get chain id: %w", err)
	}
	if actual.Cmp(chain.ChainID) != 0 {
		backend.Close()
		return &ProviderError{
			Code:    -32602,
			Message: fmt.Sprintf("RPC endpoint %s serves chain %s, not %s", chain.RPCURL, actual, chain.ChainID),
		}
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		backend.Close()
		return errDisconnected()
	}
	old := s.backend
	s.backend = backend
	s.chainID = new(big.Int).Set(actual)
	s.mu.Unlock()

	old.Close()
	s.log.Info("Switched chain", zap.String("chain_id", actual.String()), zap.String("rpc", chain.RPCURL))

	s.feed.Send(Event{Type: EventChainChanged, ChainID: new(big.Int).Set(actual)})
	return nil
}

// SendNativeTransfer sends native tokens (BNB, ETH, etc.)
func (s *LocalSigner) SendNativeTransfer(ctx context.Context, to common.Address, amount *big.Int, gasLimit uint64) (common.Hash, error) {
	backend, chainID, err := s.current()
	if err != nil {
		return common.Hash{}, err
	}

	native := s.nativeCurrency(chainID)
	prompt := fmt.Sprintf("Send %s %s to %s on chain %s?",
		decimal.NewFromBigInt(amount, -int32(native.Decimals)).String(), native.Symbol, to.Hex(), chainID)
	if !s.approve(ctx, prompt) {
		return common.Hash{}, UserRejected()
	}

	nonce, err := backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, to, amount, gasLimit, gasPrice, nil)
	return s.signAndSend(ctx, backend, chainID, tx)
}

// CallContract sends a state-changing contract call
func (s *LocalSigner) CallContract(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) (common.Hash, error) {
	backend, chainID, err := s.current()
	if err != nil {
		return common.Hash{}, err
	}

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s data: %w", method, err)
	}

	if !s.approve(ctx, fmt.Sprintf("Call %s on %s (chain %s)?", method, contract.Hex(), chainID)) {
		return common.Hash{}, UserRejected()
	}

	nonce, err := backend.PendingNonceAt(ctx, s.address)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	// A failing estimate is usually a revert; surface it instead of
	// broadcasting a transaction that is known to fail.
	gasLimit := defaultContractGasLimit
	estimatedGas, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From: s.address,
		To:   &contract,
		Data: data,
	})
	if err != nil {
		if _, isRevert := RevertReason(err); isRevert || strings.Contains(err.Error(), "execution reverted") {
			return common.Hash{}, err
		}
		s.log.Warn("Gas estimation failed, using default limit", zap.Error(err))
	} else {
		gasLimit = estimatedGas * 120 / 100 // Add 20% buffer
	}

	tx := types.NewTransaction(nonce, contract, big.NewInt(0), gasLimit, gasPrice, data)
	return s.signAndSend(ctx, backend, chainID, tx)
}

func (s *LocalSigner) signAndSend(ctx context.Context, backend Backend, chainID *big.Int, tx *types.Transaction) (common.Hash, error) {
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), s.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	s.log.Info("Transaction sent", zap.String("tx_hash", signedTx.Hash().Hex()))
	return signedTx.Hash(), nil
}

func (s *LocalSigner) SubscribeEvents(ch chan<- Event) event.Subscription {
	return s.scope.Track(s.feed.Subscribe(ch))
}

// Disconnect cancels all event subscriptions and closes the RPC connection
func (s *LocalSigner) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	backend := s.backend
	s.mu.Unlock()

	s.scope.Close()
	if backend != nil {
		backend.Close()
	}
	return nil
}

func (s *LocalSigner) current() (Backend, *big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, nil, errDisconnected()
	}
	return s.backend, new(big.Int).Set(s.chainID), nil
}

func (s *LocalSigner) ensureOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errDisconnected()
	}
	return nil
}

func (s *LocalSigner) nativeCurrency(chainID *big.Int) NativeCurrency {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chain, ok := s.chains[chainID.String()]; ok && chain.NativeCurrency.Symbol != "" {
		return chain.NativeCurrency
	}
	return NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}
}

func errDisconnected() error {
	return &ProviderError{Code: CodeDisconnected, Message: "The wallet is disconnected."}
}

func displayName(chain ChainDescriptor) string {
	if chain.Name != "" {
		return chain.Name
	}
	return "chain " + chain.ChainID.String()
}
