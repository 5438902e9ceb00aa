package ui

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"four-presale/pkg/types"
	"four-presale/pkg/wallet"
)

func newTestPresenter(t *testing.T) (*Presenter, *bytes.Buffer) {
	t.Helper()
	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	var buf bytes.Buffer
	return NewPresenter(&buf, NewBanner(time.Hour), "BNB Smart Chain", "four-presale switch-network"), &buf
}

func TestPresenter_ShowMessage(t *testing.T) {
	p, buf := newTestPresenter(t)

	p.ShowMessage(types.LevelError, "Insufficient USDT balance")
	assert.Contains(t, buf.String(), "✗ Insufficient USDT balance")

	msg, ok := p.Banner().Current()
	require.True(t, ok)
	assert.Equal(t, Message{Level: types.LevelError, Text: "Insufficient USDT balance"}, msg)

	p.ShowMessage(types.LevelSuccess, "Wallet connected successfully!")
	msg, _ = p.Banner().Current()
	assert.Equal(t, "Wallet connected successfully!", msg.Text)
}

func TestPresenter_NetworkModal(t *testing.T) {
	p, buf := newTestPresenter(t)

	p.ShowNetworkModal()
	assert.True(t, p.NetworkModalOpen())
	assert.Contains(t, buf.String(), "WRONG NETWORK")
	assert.Contains(t, buf.String(), "BNB Smart Chain")
	assert.Contains(t, buf.String(), "four-presale switch-network")

	p.HideNetworkModal()
	assert.False(t, p.NetworkModalOpen())
}

func TestPresenter_MinimumModal(t *testing.T) {
	p, buf := newTestPresenter(t)

	p.ShowMinimumModal(types.CurrencyBNB, decimal.RequireFromString("0.1"))
	assert.Contains(t, buf.String(), "Minimum purchase is 0.1 BNB")
}

func TestPresenter_OpenURL(t *testing.T) {
	p, buf := newTestPresenter(t)

	p.OpenURL("https://metamask.io/download/")
	assert.Contains(t, buf.String(), "https://metamask.io/download/")
}

func TestPresenter_SessionChanged(t *testing.T) {
	p, buf := newTestPresenter(t)
	addr := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

	assert.Equal(t, "Wallet: not connected", p.Status())

	p.SessionChanged(wallet.Session{Connected: true, Address: &addr, ChainID: big.NewInt(56), IsCorrectChain: true})
	assert.Equal(t, "Wallet: 0x1234...5678  Network: BNB Smart Chain", p.Status())
	assert.Contains(t, buf.String(), "0x1234...5678")

	p.SessionChanged(wallet.Session{Connected: true, Address: &addr, ChainID: big.NewInt(1)})
	assert.Equal(t, "Wallet: 0x1234...5678  Network: Wrong Network", p.Status())

	p.SessionChanged(wallet.Session{})
	assert.Equal(t, "Wallet: not connected", p.Status())
}

func TestBanner_ClearsAfterTTL(t *testing.T) {
	b := NewBanner(20 * time.Millisecond)

	b.Set(types.LevelInfo, "Preparing transaction...")
	_, ok := b.Current()
	assert.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := b.Current()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestBanner_NewerMessageRestartsClock(t *testing.T) {
	b := NewBanner(50 * time.Millisecond)

	b.Set(types.LevelInfo, "first")
	time.Sleep(30 * time.Millisecond)
	b.Set(types.LevelInfo, "second")
	time.Sleep(30 * time.Millisecond)

	msg, ok := b.Current()
	require.True(t, ok)
	assert.Equal(t, "second", msg.Text)
}

func TestBanner_Clear(t *testing.T) {
	b := NewBanner(0)
	assert.Equal(t, DefaultBannerTTL, b.ttl)

	b.Set(types.LevelWarning, "Network switch cancelled by user.")
	b.Clear()
	_, ok := b.Current()
	assert.False(t, ok)
}
