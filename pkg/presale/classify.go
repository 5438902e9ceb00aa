package presale

import (
	"errors"
	"fmt"
	"strings"

	"four-presale/pkg/signer"
	"four-presale/pkg/types"
)

const revertPrefix = "execution reverted: "

// Classify turns a submission or confirmation failure into a typed error.
// Checks run in order: user rejection, insufficient funds for gas, the
// currency balance check, a contract revert reason, then the raw message.
func Classify(err error, currency types.Currency) *types.Error {
	if err == nil {
		return nil
	}

	var typed *types.Error
	if errors.As(err, &typed) {
		return typed
	}

	msg := err.Error()
	switch {
	case signer.IsUserRejected(err):
		return types.NewError(types.KindUserRejected, "Transaction cancelled by user", err)
	case strings.Contains(msg, "insufficient funds"):
		return types.NewError(types.KindInsufficientGas, "Insufficient funds for transaction", err)
	case strings.Contains(msg, fmt.Sprintf("Insufficient %s balance", currency)):
		balanceErr := types.InsufficientBalance(currency)
		balanceErr.Cause = err
		return balanceErr
	}

	if reason, ok := signer.RevertReason(err); ok {
		return types.ContractRevert(reason, err)
	}
	if i := strings.Index(msg, revertPrefix); i >= 0 {
		if reason := strings.TrimSpace(msg[i+len(revertPrefix):]); reason != "" {
			return types.ContractRevert(reason, err)
		}
	}

	if msg == "" {
		msg = "Transaction failed"
	}
	return types.NewError(types.KindUnknown, msg, err)
}
