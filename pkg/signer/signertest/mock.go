// Package signertest provides a mock signing handle for tests.
package signertest

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"github.com/stretchr/testify/mock"

	"four-presale/pkg/signer"
)

// MockHandle is a testify mock of signer.Handle. Events are not mocked:
// subscriptions are real and tests push events with Emit.
type MockHandle struct {
	mock.Mock

	feed  event.Feed
	scope event.SubscriptionScope
}

var _ signer.Handle = (*MockHandle)(nil)

func (m *MockHandle) RequestAccounts(ctx context.Context) ([]common.Address, error) {
	args := m.Called(ctx)
	accounts, _ := args.Get(0).([]common.Address)
	return accounts, args.Error(1)
}

func (m *MockHandle) ChainID(ctx context.Context) (*big.Int, error) {
	args := m.Called(ctx)
	id, _ := args.Get(0).(*big.Int)
	return id, args.Error(1)
}

func (m *MockHandle) SwitchChain(ctx context.Context, chainID *big.Int) error {
	return m.Called(ctx, chainID).Error(0)
}

func (m *MockHandle) AddChain(ctx context.Context, chain signer.ChainDescriptor) error {
	return m.Called(ctx, chain).Error(0)
}

func (m *MockHandle) SendNativeTransfer(ctx context.Context, to common.Address, amount *big.Int, gasLimit uint64) (common.Hash, error) {
	args := m.Called(ctx, to, amount, gasLimit)
	hash, _ := args.Get(0).(common.Hash)
	return hash, args.Error(1)
}

// CallContract records the contract, method and packed arguments; the ABI
// itself is not part of the expectation.
func (m *MockHandle) CallContract(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) (common.Hash, error) {
	ret := m.Called(ctx, contract, method, args)
	hash, _ := ret.Get(0).(common.Hash)
	return hash, ret.Error(1)
}

func (m *MockHandle) SubscribeEvents(ch chan<- signer.Event) event.Subscription {
	return m.scope.Track(m.feed.Subscribe(ch))
}

func (m *MockHandle) Disconnect(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// Emit pushes an event to every subscriber and returns how many received it
func (m *MockHandle) Emit(ev signer.Event) int {
	return m.feed.Send(ev)
}

// Subscribers returns the number of live event subscriptions
func (m *MockHandle) Subscribers() int {
	return m.scope.Count()
}
