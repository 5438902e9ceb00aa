package presale

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"four-presale/pkg/signer"
	"four-presale/pkg/signer/signertest"
	"four-presale/pkg/types"
	"four-presale/pkg/wallet"
	"four-presale/pkg/wallet/wallettest"
)

var (
	recipient = common.HexToAddress("0x443c149de9CDDBE9DdD90E800caF6C0981d74444")
	usdt      = common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	usdc      = common.HexToAddress("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d")
	buyer     = common.HexToAddress("0xabcd000000000000000000000000000000001234")
	txHash    = common.HexToHash("0x9fc76417374aa880d4449a1f7f31ec597f00b1f6f3dd2d66f4c9c6c445836d8b")
)

type mockReader struct {
	mock.Mock
}

func (m *mockReader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uint8), args.Error(1)
}

func (m *mockReader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	args := m.Called(ctx, token, account)
	balance, _ := args.Get(0).(*big.Int)
	return balance, args.Error(1)
}

func (m *mockReader) WaitReceipt(ctx context.Context, hash common.Hash) (*ethtypes.Receipt, error) {
	args := m.Called(ctx, hash)
	receipt, _ := args.Get(0).(*ethtypes.Receipt)
	return receipt, args.Error(1)
}

type staticSession struct {
	mu      sync.Mutex
	session wallet.Session
}

func (s *staticSession) Session() wallet.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

func testSettings() Settings {
	return Settings{
		Recipient: recipient,
		Tokens: map[types.Currency]common.Address{
			types.CurrencyUSDT: usdt,
			types.CurrencyUSDC: usdc,
		},
		Minimums: map[types.Currency]decimal.Decimal{
			types.CurrencyBNB:  decimal.RequireFromString("0.1"),
			types.CurrencyUSDT: decimal.NewFromInt(100),
			types.CurrencyUSDC: decimal.NewFromInt(100),
		},
		NativeGasLimit: 21000,
		NativeDecimals: 18,
		NetworkName:    "BNB Smart Chain",
	}
}

type fixture struct {
	handle   *signertest.MockHandle
	reader   *mockReader
	notifier *wallettest.Recorder
	sessions *staticSession
	sub      *Submitter
}

func newFixture(t *testing.T, correctChain bool) *fixture {
	t.Helper()

	f := &fixture{
		handle:   &signertest.MockHandle{},
		reader:   &mockReader{},
		notifier: &wallettest.Recorder{},
	}
	addr := buyer
	chainID := int64(56)
	if !correctChain {
		chainID = 1
	}
	f.sessions = &staticSession{session: wallet.Session{
		Connected:      true,
		Address:        &addr,
		ChainID:        big.NewInt(chainID),
		IsCorrectChain: correctChain,
		Handle:         f.handle,
		Method:         wallet.MethodDirectExtension,
	}}

	sub, err := NewSubmitter(f.sessions, f.reader, f.notifier, testSettings(), nil)
	require.NoError(t, err)
	f.sub = sub
	return f
}

func (f *fixture) assertNoTransfer(t *testing.T) {
	t.Helper()
	f.handle.AssertNotCalled(t, "SendNativeTransfer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.handle.AssertNotCalled(t, "CallContract", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmit_NativeSuccess(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.handle.On("SendNativeTransfer", ctx, recipient, big.NewInt(250_000_000_000_000_000), uint64(21000)).Return(txHash, nil)
	f.reader.On("WaitReceipt", ctx, txHash).Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful, BlockNumber: big.NewInt(1)}, nil)

	req := f.sub.NewRequest(types.CurrencyBNB, "0.25")
	out := f.sub.Submit(ctx, req)

	assert.True(t, out.Succeeded())
	assert.Equal(t, req.ID, out.RequestID)
	assert.Equal(t, txHash.Hex(), out.TxHash)
	assert.Nil(t, out.Err)
	assert.Equal(t, "Purchase successful! Tokens will be airdropped after presale ends.", f.notifier.LastMessage().Text)
	f.handle.AssertExpectations(t)
}

func TestSubmit_NativeReceiptFailed(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.handle.On("SendNativeTransfer", ctx, recipient, mock.Anything, uint64(21000)).Return(txHash, nil)
	f.reader.On("WaitReceipt", ctx, txHash).Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusFailed}, nil)

	out := f.sub.Submit(ctx, f.sub.NewRequest(types.CurrencyBNB, "1"))

	assert.Equal(t, types.StatusFailed, out.Status)
	require.NotNil(t, out.Err)
	assert.Equal(t, types.KindUnknown, out.Err.Kind)
	assert.Equal(t, "Transaction failed", out.Err.Message)
	assert.Equal(t, txHash.Hex(), out.TxHash)
	assert.Equal(t, 1, f.notifier.MessageCount(types.LevelError))
}

func TestSubmit_BelowMinimum(t *testing.T) {
	f := newFixture(t, true)

	out := f.sub.Submit(context.Background(), f.sub.NewRequest(types.CurrencyUSDT, "50"))

	assert.Equal(t, types.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, types.ErrBelowMinimum)
	assert.Equal(t, types.CurrencyUSDT, out.Err.Currency)
	assert.True(t, out.Err.Minimum.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, []types.Currency{types.CurrencyUSDT}, f.notifier.MinimumShown)
	assert.Equal(t, 1, f.notifier.Signals())
	f.assertNoTransfer(t)
	f.reader.AssertNotCalled(t, "Decimals", mock.Anything, mock.Anything)
}

func TestSubmit_WrongNetwork(t *testing.T) {
	f := newFixture(t, false)

	out := f.sub.Submit(context.Background(), f.sub.NewRequest(types.CurrencyBNB, "1"))

	assert.ErrorIs(t, out.Err, types.ErrWrongNetwork)
	assert.Equal(t, 1, f.notifier.NetworkModalCount())
	assert.Equal(t, 1, f.notifier.Signals())
	f.assertNoTransfer(t)
}

func TestSubmit_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		session wallet.Session
		want    *types.Error
	}{
		{"empty amount", "", wallet.Session{}, types.ErrInvalidAmount},
		{"zero amount", "0", wallet.Session{}, types.ErrInvalidAmount},
		{"not a number", "lots", wallet.Session{}, types.ErrInvalidAmount},
		{"beyond float range", "1e50000000", wallet.Session{}, types.ErrInvalidAmount},
		{"not connected", "1", wallet.Session{}, types.ErrNotConnected},
		{
			"no handle",
			"1",
			wallet.Session{Connected: true, Address: &buyer, ChainID: big.NewInt(56), IsCorrectChain: true},
			types.ErrHandleMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.sessions.session = tt.session

			out := f.sub.Submit(context.Background(), f.sub.NewRequest(types.CurrencyBNB, tt.raw))
			assert.Equal(t, types.StatusFailed, out.Status)
			assert.ErrorIs(t, out.Err, tt.want)
			assert.Equal(t, 1, f.notifier.Signals())
			f.assertNoTransfer(t)
		})
	}
}

func TestSubmit_TokenInsufficientBalance(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.reader.On("Decimals", ctx, usdt).Return(uint8(0), nil)
	f.reader.On("BalanceOf", ctx, usdt, buyer).Return(big.NewInt(99), nil)

	out := f.sub.Submit(ctx, f.sub.NewRequest(types.CurrencyUSDT, "100"))

	assert.Equal(t, types.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, types.ErrInsufficientBalance)
	assert.Equal(t, "Insufficient USDT balance", out.Err.Message)
	assert.Equal(t, 1, f.notifier.MessageCount(types.LevelError))
	f.assertNoTransfer(t)
	f.reader.AssertNotCalled(t, "WaitReceipt", mock.Anything, mock.Anything)
}

func TestSubmit_TokenSuccess(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	units, ok := new(big.Int).SetString("150500000000000000000", 10) // 150.5 with 18 decimals
	require.True(t, ok)

	f.reader.On("Decimals", ctx, usdc).Return(uint8(18), nil)
	f.reader.On("BalanceOf", ctx, usdc, buyer).Return(new(big.Int).Mul(units, big.NewInt(2)), nil)
	f.handle.On("CallContract", ctx, usdc, "transfer", []interface{}{recipient, units}).Return(txHash, nil)
	f.reader.On("WaitReceipt", ctx, txHash).Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil)

	out := f.sub.Submit(ctx, f.sub.NewRequest(types.CurrencyUSDC, "150.5"))

	require.True(t, out.Succeeded(), "outcome error: %v", out.Err)
	f.handle.AssertExpectations(t)
	f.reader.AssertExpectations(t)
}

func TestSubmit_TooManyDecimals(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.reader.On("Decimals", ctx, usdt).Return(uint8(6), nil)

	out := f.sub.Submit(ctx, f.sub.NewRequest(types.CurrencyUSDT, "100.0000001"))
	assert.ErrorIs(t, out.Err, types.ErrInvalidAmount)
	f.assertNoTransfer(t)
}

func TestSubmit_UserRejects(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.handle.On("SendNativeTransfer", ctx, recipient, mock.Anything, uint64(21000)).Return(common.Hash{}, signer.UserRejected())

	out := f.sub.Submit(ctx, f.sub.NewRequest(types.CurrencyBNB, "0.5"))

	assert.ErrorIs(t, out.Err, types.ErrUserRejected)
	assert.Equal(t, "Transaction cancelled by user", f.notifier.LastMessage().Text)
	assert.Empty(t, out.TxHash)
	assert.Equal(t, 1, f.notifier.MessageCount(types.LevelError))
	f.reader.AssertNotCalled(t, "WaitReceipt", mock.Anything, mock.Anything)
}

func TestSubmit_InsufficientGas(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.handle.On("SendNativeTransfer", ctx, recipient, mock.Anything, uint64(21000)).
		Return(common.Hash{}, errors.New("failed to send transaction: insufficient funds for gas * price + value"))

	out := f.sub.Submit(ctx, f.sub.NewRequest(types.CurrencyBNB, "0.5"))
	assert.ErrorIs(t, out.Err, types.ErrInsufficientGas)
}

func TestSubmit_StopsWaitingWhenContextEnds(t *testing.T) {
	f := newFixture(t, true)
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()

	f.handle.On("SendNativeTransfer", mock.Anything, recipient, mock.Anything, uint64(21000)).Return(txHash, nil)
	f.reader.On("WaitReceipt", mock.Anything, txHash).Return(nil, context.DeadlineExceeded)

	out := f.sub.Submit(ctx, f.sub.NewRequest(types.CurrencyBNB, "1"))
	assert.Equal(t, types.StatusPending, out.Status)
	assert.Equal(t, txHash.Hex(), out.TxHash)
	require.NotNil(t, out.Err)
}

func TestSubmit_Busy(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	release := make(chan struct{})
	started := make(chan struct{})
	f.handle.On("SendNativeTransfer", ctx, recipient, mock.Anything, uint64(21000)).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(txHash, nil)
	f.reader.On("WaitReceipt", ctx, txHash).Return(&ethtypes.Receipt{Status: ethtypes.ReceiptStatusSuccessful}, nil)

	done := make(chan types.TransferOutcome)
	go func() {
		done <- f.sub.Submit(ctx, f.sub.NewRequest(types.CurrencyBNB, "1"))
	}()
	<-started

	second := f.sub.Submit(ctx, f.sub.NewRequest(types.CurrencyBNB, "1"))
	assert.ErrorIs(t, second.Err, types.ErrBusy)

	close(release)
	first := <-done
	assert.True(t, first.Succeeded())
	f.handle.AssertNumberOfCalls(t, "SendNativeTransfer", 1)
	assert.False(t, f.sub.busy.Load())
}

func TestToBaseUnits(t *testing.T) {
	units, err := toBaseUnits(decimal.RequireFromString("0.1"), 18)
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000", units.String())

	units, err = toBaseUnits(decimal.RequireFromString("100"), 6)
	require.NoError(t, err)
	assert.Equal(t, "100000000", units.String())

	_, err = toBaseUnits(decimal.RequireFromString("1.5"), 0)
	assert.ErrorIs(t, err, types.ErrInvalidAmount)
}
