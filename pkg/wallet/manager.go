package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/event"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"four-presale/pkg/network"
	"four-presale/pkg/signer"
	"four-presale/pkg/types"
)

const eventBuffer = 16

// Manager owns the Session. Only its methods and its event loop write it.
type Manager struct {
	strategy Strategy
	guard    *network.Guard
	notifier Notifier
	log      *zap.Logger

	mu      sync.RWMutex
	session Session
	gen     uint64 // Bumped on every connect and teardown; stale events carry an old value
	sub     event.Subscription

	connects singleflight.Group
}

// NewManager creates a manager with an empty session
func NewManager(strategy Strategy, guard *network.Guard, notifier Notifier, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		strategy: strategy,
		guard:    guard,
		notifier: notifier,
		log:      log.With(zap.String("component", "wallet"), zap.Stringer("method", strategy.Method())),
	}
}

// Session returns a copy of the current session
func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session.clone()
}

// Connect opens a wallet connection. It is a no-op returning the existing
// session when already connected, and concurrent calls share one attempt.
func (m *Manager) Connect(ctx context.Context) (Session, error) {
	if s := m.Session(); s.Connected {
		return s, nil
	}

	v, err, _ := m.connects.Do("connect", func() (interface{}, error) {
		return m.connect(ctx)
	})
	if err != nil {
		return Session{}, err
	}
	return v.(Session), nil
}

func (m *Manager) connect(ctx context.Context) (Session, error) {
	if s := m.Session(); s.Connected {
		return s, nil
	}

	if m.strategy.Method() == MethodProviderModal {
		m.notifier.ShowMessage(types.LevelInfo, "Opening wallet selection...")
	}

	handle, err := m.strategy.Open(ctx)
	if err != nil {
		return Session{}, m.connectFailed(err)
	}

	// The wallet may push events as soon as it authorizes us, so listen
	// first. Anything received before the session exists is applied to it
	// once the event loop starts.
	events := make(chan signer.Event, eventBuffer)
	sub := handle.SubscribeEvents(events)

	accounts, err := handle.RequestAccounts(ctx)
	if err == nil && len(accounts) == 0 {
		err = errors.New("no accounts returned from wallet")
	}
	if err != nil {
		sub.Unsubscribe()
		m.closeHandle(ctx, handle)
		return Session{}, m.connectFailed(err)
	}

	chainID, err := handle.ChainID(ctx)
	if err != nil {
		sub.Unsubscribe()
		m.closeHandle(ctx, handle)
		return Session{}, m.connectFailed(fmt.Errorf("failed to get chain id: %w", err))
	}

	address := accounts[0]

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.session = Session{
		Connected:      true,
		Address:        &address,
		ChainID:        new(big.Int).Set(chainID),
		IsCorrectChain: m.guard.IsCorrect(chainID),
		Handle:         handle,
		Method:         m.strategy.Method(),
	}
	m.sub = sub
	session := m.session.clone()
	m.mu.Unlock()

	go m.watch(gen, sub, events)

	m.log.Info("Wallet connected",
		zap.String("address", address.Hex()),
		zap.String("chain_id", chainID.String()),
		zap.Bool("correct_chain", session.IsCorrectChain))

	m.notifier.SessionChanged(session)
	if !session.IsCorrectChain {
		m.notifier.ShowNetworkModal()
	}
	m.notifier.ShowMessage(types.LevelSuccess, "Wallet connected successfully!")
	return session, nil
}

func (m *Manager) connectFailed(err error) error {
	var typed *types.Error
	switch {
	case errors.As(err, &typed) && typed.Kind == types.KindNotInstalled:
		if installer, ok := m.strategy.(Installer); ok && installer.InstallURL() != "" {
			m.notifier.OpenURL(installer.InstallURL())
		}
	case errors.Is(err, signer.ErrNotInstalled):
		typed = types.NewError(types.KindNotInstalled, "No wallet found. Please install a wallet.", err)
	case signer.IsUserRejected(err):
		typed = types.NewError(types.KindUserRejected, "Connection rejected by user", err)
	default:
		typed = types.NewError(types.KindUnknown, "Failed to connect wallet", err)
	}

	m.log.Warn("Wallet connection failed", zap.String("kind", string(typed.Kind)), zap.Error(err))
	m.notifier.ShowMessage(types.LevelError, typed.Message)
	return typed
}

// Disconnect ends the session. The wallet is asked to disconnect on a best
// effort basis; the session is reset whatever it answers.
func (m *Manager) Disconnect(ctx context.Context) {
	m.teardown(ctx, 0, false)
}

// teardown resets the session. With checkGen set it only acts if the
// session is still the one generation gen belongs to.
func (m *Manager) teardown(ctx context.Context, gen uint64, checkGen bool) {
	m.mu.Lock()
	if checkGen && gen != m.gen {
		m.mu.Unlock()
		return
	}
	if m.session.IsEmpty() {
		m.mu.Unlock()
		return
	}
	handle := m.session.Handle
	sub := m.sub
	m.gen++
	m.sub = nil
	m.session = Session{}
	m.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	if handle != nil {
		m.closeHandle(ctx, handle)
	}

	m.log.Info("Wallet disconnected")
	m.notifier.SessionChanged(Session{})
	m.notifier.HideNetworkModal()
	m.notifier.ShowMessage(types.LevelInfo, "Wallet disconnected")
}

func (m *Manager) closeHandle(ctx context.Context, handle signer.Handle) {
	if err := handle.Disconnect(ctx); err != nil {
		m.log.Warn("Wallet disconnect failed", zap.Error(err))
	}
}

// SwitchNetwork moves the wallet to the presale chain
func (m *Manager) SwitchNetwork(ctx context.Context) error {
	m.mu.RLock()
	session := m.session.clone()
	gen := m.gen
	m.mu.RUnlock()

	if !session.Connected {
		err := types.NewError(types.KindNotConnected, "Please connect your wallet first.", nil)
		m.notifier.ShowMessage(types.LevelError, err.Message)
		return err
	}
	if session.IsCorrectChain {
		m.notifier.HideNetworkModal()
		return nil
	}

	m.notifier.ShowMessage(types.LevelInfo, fmt.Sprintf("Switching to %s network...", m.guard.Name()))

	result, err := m.guard.RequestSwitch(ctx, session.Handle)
	if err != nil {
		var typed *types.Error
		if !errors.As(err, &typed) {
			typed = types.NewError(types.KindUnknown, "Failed to switch network. Please try again.", err)
		}
		level := types.LevelError
		if typed.Kind == types.KindUserRejected && result == network.Switched {
			level = types.LevelWarning
		}
		m.notifier.ShowMessage(level, typed.Message)
		return typed
	}

	// Wallets without push events never report the switch themselves
	if chainID, err := session.Handle.ChainID(ctx); err == nil {
		m.applyChain(gen, chainID, false)
	} else {
		m.log.Warn("Failed to refresh chain id after switch", zap.Error(err))
	}

	m.notifier.HideNetworkModal()
	if result == network.Added {
		m.notifier.ShowMessage(types.LevelSuccess, fmt.Sprintf("%s network added and switched successfully!", m.guard.Name()))
	} else {
		m.notifier.ShowMessage(types.LevelSuccess, fmt.Sprintf("Successfully switched to %s!", m.guard.Name()))
	}
	return nil
}

// watch consumes one connection's events until its subscription ends
func (m *Manager) watch(gen uint64, sub event.Subscription, events <-chan signer.Event) {
	for {
		select {
		case ev := <-events:
			m.handleEvent(gen, ev)
		case err, ok := <-sub.Err():
			if ok && err != nil {
				m.log.Warn("Wallet event subscription failed", zap.Error(err))
			}
			return
		}
	}
}

func (m *Manager) handleEvent(gen uint64, ev signer.Event) {
	switch ev.Type {
	case signer.EventAccountsChanged:
		if len(ev.Accounts) == 0 {
			m.teardown(context.Background(), gen, true)
			return
		}
		m.applyAccount(gen, ev)
	case signer.EventChainChanged:
		if ev.ChainID != nil {
			m.applyChain(gen, ev.ChainID, true)
		}
	case signer.EventDisconnect:
		m.teardown(context.Background(), gen, true)
	}
}

func (m *Manager) applyAccount(gen uint64, ev signer.Event) {
	address := ev.Accounts[0]

	m.mu.Lock()
	if gen != m.gen || !m.session.Connected || *m.session.Address == address {
		m.mu.Unlock()
		return
	}
	m.session.Address = &address
	session := m.session.clone()
	m.mu.Unlock()

	m.log.Info("Wallet account changed", zap.String("address", address.Hex()))
	m.notifier.SessionChanged(session)
	m.notifier.ShowMessage(types.LevelInfo, "Account switched successfully!")
}

// applyChain records a new chain id. Repeats of the current id are ignored
// so each change signals the network modal once.
func (m *Manager) applyChain(gen uint64, chainID *big.Int, announce bool) {
	m.mu.Lock()
	if gen != m.gen || !m.session.Connected {
		m.mu.Unlock()
		return
	}
	if m.session.ChainID != nil && m.session.ChainID.Cmp(chainID) == 0 {
		m.mu.Unlock()
		return
	}
	m.session.ChainID = new(big.Int).Set(chainID)
	m.session.IsCorrectChain = m.guard.IsCorrect(chainID)
	session := m.session.clone()
	m.mu.Unlock()

	m.log.Info("Wallet chain changed", zap.String("chain_id", chainID.String()), zap.Bool("correct_chain", session.IsCorrectChain))
	m.notifier.SessionChanged(session)
	if !announce {
		return
	}

	if session.IsCorrectChain {
		m.notifier.HideNetworkModal()
		m.notifier.ShowMessage(types.LevelSuccess, fmt.Sprintf("Connected to %s network!", m.guard.Name()))
	} else {
		m.notifier.ShowNetworkModal()
		m.notifier.ShowMessage(types.LevelWarning, fmt.Sprintf("Please switch to %s network to continue.", m.guard.Name()))
	}
}
