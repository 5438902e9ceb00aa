package chain

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	presaletypes "four-presale/pkg/types"
)

type fakeClient struct {
	mu       sync.Mutex
	results  map[string][]byte // method selector -> return data
	balance  *big.Int
	tx       *types.Transaction
	pending  bool
	receipts []*types.Receipt // nil entries mean not yet mined
	polls    int
	closed   bool
}

func (f *fakeClient) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	for selector, out := range f.results {
		if bytes.HasPrefix(msg.Data, []byte(selector)) {
			return out, nil
		}
	}
	return nil, errors.New("execution reverted")
}

func (f *fakeClient) BalanceAt(context.Context, common.Address, *big.Int) (*big.Int, error) {
	return f.balance, nil
}

func (f *fakeClient) TransactionByHash(context.Context, common.Hash) (*types.Transaction, bool, error) {
	if f.tx == nil {
		return nil, false, ethereum.NotFound
	}
	return f.tx, f.pending, nil
}

func (f *fakeClient) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.polls++
	if len(f.receipts) == 0 {
		return nil, ethereum.NotFound
	}
	next := f.receipts[0]
	f.receipts = f.receipts[1:]
	if next == nil {
		return nil, ethereum.NotFound
	}
	return next, nil
}

func (f *fakeClient) Close() { f.closed = true }

func packResult(t *testing.T, method string, value interface{}) (string, []byte) {
	t.Helper()
	parsed, err := ERC20ABI()
	require.NoError(t, err)
	out, err := parsed.Methods[method].Outputs.Pack(value)
	require.NoError(t, err)
	return string(parsed.Methods[method].ID), out
}

func TestReader_TokenReads(t *testing.T) {
	decSel, decOut := packResult(t, "decimals", uint8(18))
	balSel, balOut := packResult(t, "balanceOf", big.NewInt(99_000))

	client := &fakeClient{results: map[string][]byte{decSel: decOut, balSel: balOut}}
	r := NewReader(client, time.Millisecond, nil)

	token := common.HexToAddress("0x55d398326f99059fF775485246999027B3197955")
	decimals, err := r.Decimals(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, uint8(18), decimals)

	balance, err := r.BalanceOf(context.Background(), token, common.HexToAddress("0x1"))
	require.NoError(t, err)
	assert.Equal(t, "99000", balance.String())
}

func TestReader_CallError(t *testing.T) {
	r := NewReader(&fakeClient{}, time.Millisecond, nil)

	_, err := r.Decimals(context.Background(), common.HexToAddress("0x2"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to call decimals")
}

func TestReader_NativeBalance(t *testing.T) {
	r := NewReader(&fakeClient{balance: big.NewInt(42)}, time.Millisecond, nil)

	balance, err := r.NativeBalance(context.Background(), common.HexToAddress("0x1"))
	require.NoError(t, err)
	assert.Equal(t, int64(42), balance.Int64())
}

func TestReader_WaitReceipt(t *testing.T) {
	mined := &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(10)}
	client := &fakeClient{receipts: []*types.Receipt{nil, nil, mined}}
	r := NewReader(client, time.Millisecond, nil)

	receipt, err := r.WaitReceipt(context.Background(), common.HexToHash("0xabc"))
	require.NoError(t, err)
	assert.Same(t, mined, receipt)
	assert.Equal(t, 3, client.polls)
}

func TestReader_WaitReceiptHonoursContext(t *testing.T) {
	r := NewReader(&fakeClient{}, time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := r.WaitReceipt(ctx, common.HexToHash("0xabc"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReader_TransactionStatus(t *testing.T) {
	to := common.HexToAddress("0x443c149de9CDDBE9DdD90E800caF6C0981d74444")
	tx := types.NewTransaction(0, to, big.NewInt(1), 21000, big.NewInt(1), nil)

	tests := []struct {
		name    string
		pending bool
		receipt *types.Receipt
		want    presaletypes.TransferStatus
	}{
		{name: "pending", pending: true, want: presaletypes.StatusPending},
		{name: "not yet mined", want: presaletypes.StatusPending},
		{
			name:    "confirmed",
			receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(5), GasUsed: 21000},
			want:    presaletypes.StatusConfirmed,
		},
		{
			name:    "failed",
			receipt: &types.Receipt{Status: types.ReceiptStatusFailed, BlockNumber: big.NewInt(6)},
			want:    presaletypes.StatusFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &fakeClient{tx: tx, pending: tt.pending}
			if tt.receipt != nil {
				client.receipts = []*types.Receipt{tt.receipt}
			}
			r := NewReader(client, time.Millisecond, nil)

			status, err := r.TransactionStatus(context.Background(), tx.Hash())
			require.NoError(t, err)
			assert.Equal(t, tt.want, status.Status)
			assert.Equal(t, to.Hex(), status.To)
		})
	}
}

func TestReader_Close(t *testing.T) {
	client := &fakeClient{}
	NewReader(client, 0, nil).Close()
	assert.True(t, client.closed)
}
