package signer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// EIP-1193 provider error codes
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeDisconnected      = 4900
	CodeUnrecognizedChain = 4902
)

// ErrNotInstalled is returned when no signing wallet is available
var ErrNotInstalled = errors.New("no wallet installed")

// ProviderError is an error reported by a wallet. It satisfies rpc.Error
// and rpc.DataError so bridge and local errors are inspected the same way.
type ProviderError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

func (e *ProviderError) ErrorCode() int {
	return e.Code
}

func (e *ProviderError) ErrorData() interface{} {
	return e.Data
}

// UserRejected returns the error a wallet reports when its user declines
func UserRejected() *ProviderError {
	return &ProviderError{Code: CodeUserRejected, Message: "User rejected the request."}
}

// ErrorCode extracts a JSON-RPC error code from err, if it carries one
func ErrorCode(err error) (int, bool) {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode(), true
	}
	return 0, false
}

// IsUserRejected returns true if the wallet's user declined the request
func IsUserRejected(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := ErrorCode(err); ok && code == CodeUserRejected {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "user rejected")
}

// IsChainUnknown returns true if the wallet does not know the requested chain
func IsChainUnknown(err error) bool {
	code, ok := ErrorCode(err)
	return ok && code == CodeUnrecognizedChain
}

// RevertReason decodes an Error(string) revert payload attached to err
func RevertReason(err error) (string, bool) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return "", false
	}

	var payload []byte
	switch data := dataErr.ErrorData().(type) {
	case string:
		decoded, decodeErr := hexutil.Decode(data)
		if decodeErr != nil {
			return "", false
		}
		payload = decoded
	case []byte:
		payload = data
	default:
		return "", false
	}

	reason, unpackErr := abi.UnpackRevert(payload)
	if unpackErr != nil || reason == "" {
		return "", false
	}
	return reason, true
}
