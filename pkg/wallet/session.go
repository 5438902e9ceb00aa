// Package wallet owns the connection to a signing wallet and keeps the
// session in step with what the wallet reports.
package wallet

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"four-presale/pkg/signer"
	"four-presale/pkg/types"
)

// ConnectionMethod says which strategy produced the session
type ConnectionMethod int

const (
	MethodNone            ConnectionMethod = iota
	MethodProviderModal                    // Remote wallet bridge
	MethodDirectExtension                  // Local signer
)

func (m ConnectionMethod) String() string {
	switch m {
	case MethodProviderModal:
		return "provider-modal"
	case MethodDirectExtension:
		return "direct-extension"
	default:
		return "none"
	}
}

// Session is the state of the wallet connection. The zero value is the
// disconnected session. Address is set if and only if Connected is true.
type Session struct {
	Connected      bool
	Address        *common.Address
	ChainID        *big.Int
	IsCorrectChain bool
	Handle         signer.Handle
	Method         ConnectionMethod
}

// IsEmpty returns true for the disconnected session
func (s Session) IsEmpty() bool {
	return !s.Connected && s.Address == nil && s.ChainID == nil && !s.IsCorrectChain && s.Handle == nil && s.Method == MethodNone
}

// ShortAddress formats the address as 0x1234...abcd
func (s Session) ShortAddress() string {
	if s.Address == nil {
		return ""
	}
	return ShortAddress(*s.Address)
}

// ShortAddress formats an address as 0x1234...abcd
func ShortAddress(addr common.Address) string {
	hex := addr.Hex()
	return hex[:6] + "..." + hex[len(hex)-4:]
}

func (s Session) clone() Session {
	out := s
	if s.Address != nil {
		addr := *s.Address
		out.Address = &addr
	}
	if s.ChainID != nil {
		out.ChainID = new(big.Int).Set(s.ChainID)
	}
	return out
}

// Notifier is the presentation surface plus a hook for session changes
type Notifier interface {
	types.Notifier
	SessionChanged(Session)
}
