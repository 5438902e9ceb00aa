// Package signer defines the signing handle a wallet session holds, and the
// two ways of obtaining one: a remote wallet bridge spoken to over JSON-RPC,
// and a local signer backed by a private key.
package signer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
)

// Handle is a connected wallet able to authorize transfers
type Handle interface {
	// RequestAccounts asks the wallet to expose its accounts. The first
	// account is the one that signs.
	RequestAccounts(ctx context.Context) ([]common.Address, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SwitchChain(ctx context.Context, chainID *big.Int) error
	AddChain(ctx context.Context, chain ChainDescriptor) error
	SendNativeTransfer(ctx context.Context, to common.Address, amount *big.Int, gasLimit uint64) (common.Hash, error)
	CallContract(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) (common.Hash, error)
	// SubscribeEvents delivers account, chain and disconnect events to ch
	// until the subscription is cancelled.
	SubscribeEvents(ch chan<- Event) event.Subscription
	Disconnect(ctx context.Context) error
}

// EventType identifies a provider event
type EventType string

const (
	EventAccountsChanged EventType = "accountsChanged"
	EventChainChanged    EventType = "chainChanged"
	EventDisconnect      EventType = "disconnect"
)

// Event is pushed by a handle when the wallet's state changes underneath us
type Event struct {
	Type     EventType
	Accounts []common.Address // EventAccountsChanged
	ChainID  *big.Int         // EventChainChanged
}

// NativeCurrency describes a chain's base asset
type NativeCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// ChainDescriptor is everything a wallet needs to register a chain
type ChainDescriptor struct {
	ChainID        *big.Int
	Name           string
	RPCURL         string
	ExplorerURL    string
	NativeCurrency NativeCurrency
}
