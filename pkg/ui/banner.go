package ui

import (
	"sync"
	"time"

	"four-presale/pkg/types"
)

// DefaultBannerTTL is how long a message stays current
const DefaultBannerTTL = 5 * time.Second

// Message is a single banner entry
type Message struct {
	Level types.MessageLevel `json:"level"`
	Text  string             `json:"text"`
}

// Banner holds the latest message and clears it after a TTL. A newer
// message replaces the older one and restarts the clock.
type Banner struct {
	mu      sync.Mutex
	ttl     time.Duration
	current *Message
	seq     uint64
	timer   *time.Timer
}

// NewBanner creates a banner; ttl <= 0 uses DefaultBannerTTL
func NewBanner(ttl time.Duration) *Banner {
	if ttl <= 0 {
		ttl = DefaultBannerTTL
	}
	return &Banner{ttl: ttl}
}

// Set replaces the current message
func (b *Banner) Set(level types.MessageLevel, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	seq := b.seq
	b.current = &Message{Level: level, Text: text}

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.ttl, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		// a stopped timer can still fire once
		if b.seq == seq {
			b.current = nil
		}
	})
}

// Current returns the message still on display, if any
func (b *Banner) Current() (Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current == nil {
		return Message{}, false
	}
	return *b.current, true
}

// Clear drops the current message and stops its timer
func (b *Banner) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	b.current = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
}
