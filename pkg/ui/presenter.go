// Package ui renders wallet and purchase signals on a terminal.
package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"

	"four-presale/pkg/types"
	"four-presale/pkg/wallet"
)

// Presenter writes every signal to out and keeps the latest message in a
// banner so long-running commands can show it again.
type Presenter struct {
	mu          sync.Mutex
	out         io.Writer
	banner      *Banner
	networkName string
	switchHint  string

	modalOpen bool
	session   wallet.Session
}

var _ wallet.Notifier = (*Presenter)(nil)

// NewPresenter creates a presenter. networkName is the presale chain and
// switchHint the command that moves the wallet onto it.
func NewPresenter(out io.Writer, banner *Banner, networkName, switchHint string) *Presenter {
	if banner == nil {
		banner = NewBanner(DefaultBannerTTL)
	}
	return &Presenter{
		out:         out,
		banner:      banner,
		networkName: networkName,
		switchHint:  switchHint,
	}
}

// Banner returns the message banner
func (p *Presenter) Banner() *Banner {
	return p.banner
}

func (p *Presenter) ShowMessage(level types.MessageLevel, message string) {
	p.banner.Set(level, message)

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, levelColor(level).Sprint(levelPrefix(level)+message))
}

func (p *Presenter) ShowNetworkModal() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.modalOpen = true
	fmt.Fprintln(p.out, "\n"+strings.Repeat("=", 60))
	color.New(color.FgYellow).Fprintln(p.out, "                   WRONG NETWORK")
	fmt.Fprintln(p.out, strings.Repeat("=", 60))
	fmt.Fprintf(p.out, "\n  This presale only accepts payments on %s.\n", color.CyanString(p.networkName))
	if p.switchHint != "" {
		fmt.Fprintf(p.out, "  Run %s to switch.\n", color.CyanString(p.switchHint))
	}
	fmt.Fprintln(p.out, "\n"+strings.Repeat("=", 60))
}

func (p *Presenter) HideNetworkModal() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modalOpen = false
}

// NetworkModalOpen reports whether the wrong network notice is active
func (p *Presenter) NetworkModalOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modalOpen
}

func (p *Presenter) ShowMinimumModal(currency types.Currency, minimum decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintln(p.out, "\n"+strings.Repeat("=", 60))
	color.New(color.FgYellow).Fprintln(p.out, "                  MINIMUM PURCHASE")
	fmt.Fprintln(p.out, strings.Repeat("=", 60))
	fmt.Fprintf(p.out, "\n  Minimum purchase is %s %s\n", minimum.String(), color.YellowString(currency.String()))
	fmt.Fprintln(p.out, "\n"+strings.Repeat("=", 60))
}

func (p *Presenter) OpenURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "\nNo wallet found. Install one from:\n  %s\n\n", color.CyanString(url))
}

func (p *Presenter) SessionChanged(s wallet.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.session = s
	fmt.Fprintln(p.out, p.statusLine(s))
}

// Status renders the last session the presenter was told about
func (p *Presenter) Status() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.statusLine(p.session)
}

func (p *Presenter) statusLine(s wallet.Session) string {
	if !s.Connected {
		return "Wallet: " + color.HiBlackString("not connected")
	}

	network := color.GreenString(p.networkName)
	if !s.IsCorrectChain {
		network = color.RedString("Wrong Network")
	}
	return fmt.Sprintf("Wallet: %s  Network: %s", color.CyanString(s.ShortAddress()), network)
}

func levelColor(level types.MessageLevel) *color.Color {
	switch level {
	case types.LevelSuccess:
		return color.New(color.FgGreen)
	case types.LevelWarning:
		return color.New(color.FgYellow)
	case types.LevelError:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgCyan)
	}
}

func levelPrefix(level types.MessageLevel) string {
	switch level {
	case types.LevelSuccess:
		return "✓ "
	case types.LevelWarning:
		return "! "
	case types.LevelError:
		return "✗ "
	default:
		return ""
	}
}
