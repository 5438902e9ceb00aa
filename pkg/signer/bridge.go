package signer

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

// RPCClient is the subset of *rpc.Client the bridge uses
type RPCClient interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
	Subscribe(ctx context.Context, namespace string, channel interface{}, args ...interface{}) (*rpc.ClientSubscription, error)
	Close()
}

// BridgeSigner talks to a remote wallet over JSON-RPC. The wallet holds the
// keys and asks its user to approve each request; this side only relays.
type BridgeSigner struct {
	client    RPCClient
	projectID string
	log       *zap.Logger

	mu      sync.Mutex
	account common.Address
	subs    []*rpc.ClientSubscription
	watched bool
	closed  bool
	quit    chan struct{}

	feed  event.Feed
	scope event.SubscriptionScope
}

// DialBridge connects to a wallet bridge. A failure here means the bridge is
// unavailable and the caller should fall back to another strategy.
func DialBridge(ctx context.Context, url, projectID string, log *zap.Logger) (*BridgeSigner, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to wallet bridge: %w", err)
	}
	return NewBridgeSigner(client, projectID, log), nil
}

// NewBridgeSigner wraps an existing RPC client
func NewBridgeSigner(client RPCClient, projectID string, log *zap.Logger) *BridgeSigner {
	if log == nil {
		log = zap.NewNop()
	}
	return &BridgeSigner{
		client:    client,
		projectID: projectID,
		log:       log.With(zap.String("signer", "bridge"), zap.String("project_id", projectID)),
		quit:      make(chan struct{}),
	}
}

// RequestAccounts opens the wallet's connection prompt. The returned
// accounts are cached as the signing account.
func (b *BridgeSigner) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	if err := b.ensureOpen(); err != nil {
		return nil, err
	}

	var accounts []common.Address
	if err := b.client.CallContext(ctx, &accounts, "eth_requestAccounts"); err != nil {
		return nil, err
	}

	if len(accounts) > 0 {
		b.mu.Lock()
		b.account = accounts[0]
		b.mu.Unlock()
	}

	b.watch(ctx)
	return accounts, nil
}

func (b *BridgeSigner) ChainID(ctx context.Context) (*big.Int, error) {
	var id hexutil.Big
	if err := b.client.CallContext(ctx, &id, "eth_chainId"); err != nil {
		return nil, err
	}
	return (*big.Int)(&id), nil
}

func (b *BridgeSigner) SwitchChain(ctx context.Context, chainID *big.Int) error {
	params := map[string]string{"chainId": hexutil.EncodeBig(chainID)}
	return b.client.CallContext(ctx, nil, "wallet_switchEthereumChain", params)
}

type addChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	RPCURLs           []string       `json:"rpcUrls"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls,omitempty"`
}

func (b *BridgeSigner) AddChain(ctx context.Context, chain ChainDescriptor) error {
	params := addChainParams{
		ChainID:        hexutil.EncodeBig(chain.ChainID),
		ChainName:      chain.Name,
		RPCURLs:        []string{chain.RPCURL},
		NativeCurrency: chain.NativeCurrency,
	}
	if chain.ExplorerURL != "" {
		params.BlockExplorerURLs = []string{chain.ExplorerURL}
	}
	return b.client.CallContext(ctx, nil, "wallet_addEthereumChain", params)
}

type sendTxArgs struct {
	From  common.Address  `json:"from"`
	To    common.Address  `json:"to"`
	Value *hexutil.Big    `json:"value,omitempty"`
	Gas   *hexutil.Uint64 `json:"gas,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
}

func (b *BridgeSigner) SendNativeTransfer(ctx context.Context, to common.Address, amount *big.Int, gasLimit uint64) (common.Hash, error) {
	from, err := b.from()
	if err != nil {
		return common.Hash{}, err
	}

	gas := hexutil.Uint64(gasLimit)
	return b.sendTransaction(ctx, sendTxArgs{
		From:  from,
		To:    to,
		Value: (*hexutil.Big)(amount),
		Gas:   &gas,
	})
}

// CallContract lets the wallet estimate gas for the call
func (b *BridgeSigner) CallContract(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) (common.Hash, error) {
	from, err := b.from()
	if err != nil {
		return common.Hash{}, err
	}

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack %s data: %w", method, err)
	}

	return b.sendTransaction(ctx, sendTxArgs{From: from, To: contract, Data: data})
}

func (b *BridgeSigner) sendTransaction(ctx context.Context, args sendTxArgs) (common.Hash, error) {
	var hash common.Hash
	if err := b.client.CallContext(ctx, &hash, "eth_sendTransaction", args); err != nil {
		return common.Hash{}, err
	}
	b.log.Info("Transaction sent", zap.String("tx_hash", hash.Hex()))
	return hash, nil
}

func (b *BridgeSigner) SubscribeEvents(ch chan<- Event) event.Subscription {
	return b.scope.Track(b.feed.Subscribe(ch))
}

// Disconnect revokes the session on the wallet side and closes the transport
func (b *BridgeSigner) Disconnect(ctx context.Context) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.quit)
	subs := b.subs
	b.subs = nil
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	b.scope.Close()

	revoke := map[string]struct{}{"eth_accounts": {}}
	err := b.client.CallContext(ctx, nil, "wallet_revokePermissions", revoke)
	b.client.Close()
	if err != nil {
		return fmt.Errorf("failed to revoke wallet session: %w", err)
	}
	return nil
}

// watch subscribes to the wallet's push notifications once per bridge.
// Transports without notification support (plain HTTP) get no events.
func (b *BridgeSigner) watch(ctx context.Context) {
	b.mu.Lock()
	if b.watched || b.closed {
		b.mu.Unlock()
		return
	}
	b.watched = true
	b.mu.Unlock()

	accounts := make(chan []common.Address, 4)
	chains := make(chan hexutil.Big, 4)
	disconnects := make(chan interface{}, 1)

	var subs []*rpc.ClientSubscription
	for topic, ch := range map[EventType]interface{}{
		EventAccountsChanged: accounts,
		EventChainChanged:    chains,
		EventDisconnect:      disconnects,
	} {
		sub, err := b.client.Subscribe(ctx, "wallet", ch, string(topic))
		if err != nil {
			if errors.Is(err, rpc.ErrNotificationsUnsupported) {
				b.log.Warn("Wallet bridge does not push events; account and chain changes will not be tracked")
			} else {
				b.log.Warn("Failed to subscribe to wallet events", zap.String("topic", string(topic)), zap.Error(err))
			}
			continue
		}
		subs = append(subs, sub)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		for _, sub := range subs {
			sub.Unsubscribe()
		}
		return
	}
	b.subs = subs
	b.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	go b.relay(subs, accounts, chains, disconnects)
}

func (b *BridgeSigner) relay(subs []*rpc.ClientSubscription, accounts <-chan []common.Address, chains <-chan hexutil.Big, disconnects <-chan interface{}) {
	errs := make(chan error, len(subs))
	for _, sub := range subs {
		go func(sub *rpc.ClientSubscription) {
			if err, ok := <-sub.Err(); ok && err != nil {
				errs <- err
			}
		}(sub)
	}

	for {
		select {
		case <-b.quit:
			return
		case list := <-accounts:
			b.mu.Lock()
			if len(list) > 0 {
				b.account = list[0]
			}
			b.mu.Unlock()
			b.feed.Send(Event{Type: EventAccountsChanged, Accounts: list})
		case id := <-chains:
			b.feed.Send(Event{Type: EventChainChanged, ChainID: new(big.Int).Set((*big.Int)(&id))})
		case <-disconnects:
			b.feed.Send(Event{Type: EventDisconnect})
			return
		case err := <-errs:
			b.log.Warn("Wallet bridge subscription dropped", zap.Error(err))
			b.feed.Send(Event{Type: EventDisconnect})
			return
		}
	}
}

func (b *BridgeSigner) from() (common.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return common.Address{}, errDisconnected()
	}
	if b.account == (common.Address{}) {
		return common.Address{}, &ProviderError{Code: CodeUnauthorized, Message: "No account has been authorized."}
	}
	return b.account, nil
}

func (b *BridgeSigner) ensureOpen() error {
	if b.isClosed() {
		return errDisconnected()
	}
	return nil
}

func (b *BridgeSigner) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}
