// Package chain reads on-chain state the presale needs: token decimals and
// balances, native balances and transaction receipts.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	presaletypes "four-presale/pkg/types"
)

// ERC20 transfer, balanceOf and decimals
const erc20JSON = `[
{"constant":false,"inputs":[{"name":"_to","type":"address"},{"name":"_value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"},
{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"type":"function"}
]`

var erc20 = sync.OnceValues(func() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(erc20JSON))
})

// ERC20ABI returns the parsed ERC20 ABI
func ERC20ABI() (abi.ABI, error) {
	parsed, err := erc20()
	if err != nil {
		return abi.ABI{}, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	return parsed, nil
}

// Client is the slice of *ethclient.Client the reader uses
type Client interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (*types.Transaction, bool, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	Close()
}

const defaultPollInterval = 2 * time.Second

// Reader answers read-only chain queries
type Reader struct {
	client       Client
	pollInterval time.Duration
	log          *zap.Logger
}

// Dial connects a Reader to an RPC endpoint
func Dial(ctx context.Context, url string, pollInterval time.Duration, log *zap.Logger) (*Reader, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	return NewReader(client, pollInterval, log), nil
}

// NewReader wraps an existing client. A non-positive poll interval uses
// the default of two seconds.
func NewReader(client Client, pollInterval time.Duration, log *zap.Logger) *Reader {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{
		client:       client,
		pollInterval: pollInterval,
		log:          log.With(zap.String("component", "chain")),
	}
}

// Decimals calls the token's decimals()
func (r *Reader) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := r.call(ctx, token, "decimals")
	if err != nil {
		return 0, err
	}
	decimals, ok := out[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("unexpected decimals result %T", out[0])
	}
	return decimals, nil
}

// BalanceOf gets the token balance of an account in base units
func (r *Reader) BalanceOf(ctx context.Context, token, account common.Address) (*big.Int, error) {
	out, err := r.call(ctx, token, "balanceOf", account)
	if err != nil {
		return nil, err
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result %T", out[0])
	}
	return balance, nil
}

// NativeBalance gets the account's balance in wei
func (r *Reader) NativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := r.client.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (r *Reader) call(ctx context.Context, token common.Address, method string, args ...interface{}) ([]interface{}, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, err
	}

	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s data: %w", method, err)
	}

	result, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call %s: %w", method, err)
	}

	out, err := parsed.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty %s result", method)
	}
	return out, nil
}

// WaitReceipt polls until the transaction is mined. It only gives up when
// ctx is done.
func (r *Reader) WaitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	log := r.log.With(zap.String("tx_hash", hash.Hex()))
	for {
		receipt, err := r.client.TransactionReceipt(ctx, hash)
		if err == nil {
			log.Debug("Transaction mined", zap.Uint64("status", receipt.Status))
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}
		log.Debug("Transaction not yet mined")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// TxStatus is a snapshot of a transaction's state
type TxStatus struct {
	Hash        common.Hash                 `json:"hash"`
	Status      presaletypes.TransferStatus `json:"status"`
	To          string                      `json:"to,omitempty"`
	Value       string                      `json:"value"`
	BlockNumber uint64                      `json:"block_number,omitempty"`
	GasUsed     uint64                      `json:"gas_used,omitempty"`
}

// TransactionStatus looks a transaction up without waiting for it
func (r *Reader) TransactionStatus(ctx context.Context, hash common.Hash) (*TxStatus, error) {
	tx, isPending, err := r.client.TransactionByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	status := &TxStatus{
		Hash:   hash,
		Status: presaletypes.StatusPending,
		Value:  tx.Value().String(),
	}
	if tx.To() != nil {
		status.To = tx.To().Hex()
	}
	if isPending {
		return status, nil
	}

	receipt, err := r.client.TransactionReceipt(ctx, hash)
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return status, nil
		}
		return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
	}

	status.BlockNumber = receipt.BlockNumber.Uint64()
	status.GasUsed = receipt.GasUsed
	if receipt.Status == types.ReceiptStatusSuccessful {
		status.Status = presaletypes.StatusConfirmed
	} else {
		status.Status = presaletypes.StatusFailed
	}
	return status, nil
}

// Close closes the client connection
func (r *Reader) Close() {
	if r.client != nil {
		r.client.Close()
	}
}
