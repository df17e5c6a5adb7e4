package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

var ErrSessionClosed = errors.New("wallet session closed")

// Refresher rebuilds the ledger cache after a successful connect.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Session owns the wallet connection state. A Session is created once per process
// and passed explicitly to everything that needs the connected account.
type Session struct {
	agent    ports.SigningAgent
	guard    *NetworkGuard
	notifier *NotificationQueue
	logger   *slog.Logger

	mu        sync.RWMutex
	state     domain.WalletSession
	attempt   uint64
	refresher Refresher
	closed    bool

	watchOnce   sync.Once
	unsubscribe func()
}

func NewSession(agent ports.SigningAgent, guard *NetworkGuard, notifier *NotificationQueue, logger *slog.Logger) *Session {
	return &Session{
		agent:    agent,
		guard:    guard,
		notifier: notifier,
		logger:   loggerOrDiscard(logger),
		state:    domain.DisconnectedSession(),
	}
}

func (s *Session) SetRefresher(refresher Refresher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresher = refresher
}

func (s *Session) Current() domain.WalletSession {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Connect runs the full handshake: network guard, account request, balance, then a
// ledger refresh. Failures are reported through the notification queue and returned.
func (s *Session) Connect(ctx context.Context) (domain.WalletSession, error) {
	if s.agent == nil {
		s.notifier.Push(failureToast("Wallet not found", domain.ErrNoAgent, nil))
		return s.Current(), domain.ErrNoAgent
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.DisconnectedSession(), ErrSessionClosed
	}
	s.attempt++
	attempt := s.attempt
	s.mu.Unlock()

	s.watchOnce.Do(s.subscribe)

	session, err := s.handshake(ctx)
	if err != nil {
		s.logger.Warn("wallet connect failed", slog.String("error", err.Error()))
		s.notifier.Push(failureToast("Wallet connection failed", err, nil))
		return s.Current(), err
	}

	s.mu.Lock()
	if s.closed || attempt != s.attempt {
		current := s.state
		s.mu.Unlock()
		return current, nil
	}
	s.state = session
	refresher := s.refresher
	s.mu.Unlock()

	s.logger.Info("wallet connected", slog.String("address", session.Address.Hex()))
	s.notifier.Push(domain.Toast{
		Kind:  domain.ToastSuccess,
		Title: "Wallet connected",
		Body:  fmt.Sprintf("%s (%s)", session.Address.Hex(), session.BalanceDisplay),
	})

	if refresher != nil {
		_ = refresher.Refresh(ctx)
	}

	return session, nil
}

func (s *Session) handshake(ctx context.Context) (domain.WalletSession, error) {
	if err := s.guard.EnsureNetwork(ctx); err != nil {
		return domain.WalletSession{}, err
	}

	accounts, err := s.agent.RequestAccounts(ctx)
	if err != nil {
		return domain.WalletSession{}, fmt.Errorf("request accounts: %w", err)
	}
	if len(accounts) == 0 {
		return domain.WalletSession{}, domain.ErrNoAccounts
	}

	balance, err := s.agent.Balance(ctx, accounts[0])
	if err != nil {
		return domain.WalletSession{}, fmt.Errorf("fetch balance: %w", err)
	}

	return domain.ConnectedSession(accounts[0], domain.FormatEther(balance)), nil
}

// Disconnect clears local state only; permissions granted in the agent stay untouched.
func (s *Session) Disconnect() {
	s.mu.Lock()
	wasConnected := s.state.Connected
	s.attempt++
	s.state = domain.DisconnectedSession()
	closed := s.closed
	s.mu.Unlock()

	if wasConnected && !closed {
		s.logger.Info("wallet disconnected")
		s.notifier.Push(domain.Toast{Kind: domain.ToastInfo, Title: "Wallet disconnected"})
	}
}

// Close removes the account subscription and drops any late result of in-flight connects.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.state = domain.DisconnectedSession()
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (s *Session) subscribe() {
	unsubscribe := s.agent.SubscribeAccounts(s.onAccountsChanged)

	s.mu.Lock()
	if !s.closed {
		s.unsubscribe = unsubscribe
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	// closed while subscribing
	unsubscribe()
}

func (s *Session) onAccountsChanged(accounts []common.Address) {
	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return
	}

	if len(accounts) == 0 {
		s.logger.Info("signing agent reported no accounts")
		s.Disconnect()
		return
	}

	s.logger.Info("signing agent accounts changed", slog.String("address", accounts[0].Hex()))
	_, _ = s.Connect(context.Background())
}
