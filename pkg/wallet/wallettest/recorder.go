// Package wallettest provides a notifier that records what it was told.
package wallettest

import (
	"sync"

	"github.com/shopspring/decimal"

	"four-presale/pkg/types"
	"four-presale/pkg/wallet"
)

// Message is one banner message
type Message struct {
	Level types.MessageLevel
	Text  string
}

// Recorder implements wallet.Notifier and keeps every call
type Recorder struct {
	mu            sync.Mutex
	Messages      []Message
	NetworkShown  int
	NetworkHidden int
	MinimumShown  []types.Currency
	URLs          []string
	Sessions      []wallet.Session
}

var _ wallet.Notifier = (*Recorder)(nil)

func (r *Recorder) ShowMessage(level types.MessageLevel, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Messages = append(r.Messages, Message{Level: level, Text: message})
}

func (r *Recorder) ShowNetworkModal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.NetworkShown++
}

func (r *Recorder) HideNetworkModal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.NetworkHidden++
}

func (r *Recorder) ShowMinimumModal(currency types.Currency, _ decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MinimumShown = append(r.MinimumShown, currency)
}

func (r *Recorder) OpenURL(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.URLs = append(r.URLs, url)
}

func (r *Recorder) SessionChanged(s wallet.Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sessions = append(r.Sessions, s)
}

// NetworkModalCount returns how often the network modal was shown
func (r *Recorder) NetworkModalCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.NetworkShown
}

// LastMessage returns the most recent banner message
func (r *Recorder) LastMessage() Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Messages) == 0 {
		return Message{}
	}
	return r.Messages[len(r.Messages)-1]
}

// MessageCount returns how many banner messages were shown at level
func (r *Recorder) MessageCount(level types.MessageLevel) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.Messages {
		if m.Level == level {
			n++
		}
	}
	return n
}

// Signals returns the number of calls that reach the user
func (r *Recorder) Signals() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Messages) + r.NetworkShown + len(r.MinimumShown)
}
