package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
)

// Coordinator drives every ledger interaction: it gates calls on the network guard,
// records submissions in the tracker, follows them to confirmation and keeps the
// land record cache in sync with the ledger.
type Coordinator struct {
	session  *Session
	guard    *NetworkGuard
	gateway  ports.LedgerGateway
	tracker  *Tracker
	notifier *NotificationQueue
	metrics  ports.Metrics
	clock    ports.Clock
	logger   *slog.Logger

	cacheMu        sync.RWMutex
	records        []domain.LandRecord
	refreshStarted uint64
	refreshApplied uint64
}

type CoordinatorDeps struct {
	Session  *Session
	Guard    *NetworkGuard
	Gateway  ports.LedgerGateway
	Tracker  *Tracker
	Notifier *NotificationQueue
	Metrics  ports.Metrics
	Clock    ports.Clock
	Logger   *slog.Logger
}

func NewCoordinator(deps CoordinatorDeps) *Coordinator {
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Metrics == nil {
		deps.Metrics = ports.NopMetrics{}
	}

	c := &Coordinator{
		session:  deps.Session,
		guard:    deps.Guard,
		gateway:  deps.Gateway,
		tracker:  deps.Tracker,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		clock:    deps.Clock,
		logger:   loggerOrDiscard(deps.Logger),
	}
	deps.Session.SetRefresher(c)

	return c
}

func (c *Coordinator) Connect(ctx context.Context) (domain.WalletSession, error) {
	return c.session.Connect(ctx)
}

func (c *Coordinator) Disconnect() {
	c.session.Disconnect()
}

func (c *Coordinator) Wallet() domain.WalletSession {
	return c.session.Current()
}

// Refresh replaces the record cache with the ledger's full record set. A failed fetch
// leaves the cache untouched; a refresh that started before the last applied one is dropped.
func (c *Coordinator) Refresh(ctx context.Context) error {
	c.cacheMu.Lock()
	c.refreshStarted++
	ticket := c.refreshStarted
	c.cacheMu.Unlock()

	started := c.clock.Now()
	records, err := c.fetchAll(ctx)
	c.metrics.RefreshObserved(c.clock.Now().Sub(started), err)
	if err != nil {
		c.logger.Warn("ledger refresh failed", slog.String("error", err.Error()))
		c.notifier.Push(failureToast("Failed to load land records", err, nil))
		return err
	}

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	if ticket < c.refreshApplied {
		c.logger.Debug("dropped stale refresh", slog.Uint64("ticket", ticket), slog.Uint64("applied", c.refreshApplied))
		return nil
	}
	c.records = records
	c.refreshApplied = ticket

	return nil
}

func (c *Coordinator) fetchAll(ctx context.Context) ([]domain.LandRecord, error) {
	if err := c.guard.EnsureNetwork(ctx); err != nil {
		return nil, err
	}

	records, err := c.gateway.FetchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch land records: %w", err)
	}

	return records, nil
}

func (c *Coordinator) Records() []domain.LandRecord {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return append([]domain.LandRecord(nil), c.records...)
}

// PendingRecords lists the records still awaiting verification.
func (c *Coordinator) PendingRecords() []domain.LandRecord {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	pending := make([]domain.LandRecord, 0, len(c.records))
	for _, record := range c.records {
		if !record.Verified {
			pending = append(pending, record)
		}
	}

	return pending
}

// Filter returns the cached records whose uid, owner, division or district contain term.
func (c *Coordinator) Filter(term string) []domain.LandRecord {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	matched := make([]domain.LandRecord, 0, len(c.records))
	for _, record := range c.records {
		if record.MatchesFilter(term) {
			matched = append(matched, record)
		}
	}

	return matched
}

func (c *Coordinator) Search(term string) (domain.LandRecord, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	for _, record := range c.records {
		if record.MatchesSearch(term) {
			return record, true
		}
	}

	return domain.LandRecord{}, false
}

func (c *Coordinator) Transactions() []domain.TxRecord {
	return c.tracker.All()
}

func (c *Coordinator) LatestTransaction() (domain.TxRecord, bool) {
	return c.tracker.Latest(c.clock.Now())
}

// RecentTransactions lists the tracked transactions still inside the display window.
func (c *Coordinator) RecentTransactions() []domain.TxRecord {
	return c.tracker.Recent(c.clock.Now())
}

func (c *Coordinator) Notifications() []domain.Toast {
	return c.notifier.Active()
}

// RegisterLand submits a new land claim and follows it until the ledger settles it.
func (c *Coordinator) RegisterLand(ctx context.Context, input domain.RegistrationInput) (domain.TxRecord, error) {
	const title = "Land registration failed"

	wallet := c.session.Current()
	if !wallet.Connected {
		return c.abort(title, domain.ErrNotConnected)
	}
	if err := input.Validate(); err != nil {
		return c.abort(title, err)
	}
	if err := c.guard.EnsureNetwork(ctx); err != nil {
		return c.abort(title, err)
	}

	handle, err := c.gateway.SubmitRegistration(ctx, wallet.Address, input)
	if err != nil {
		return c.abort(title, err)
	}

	record := c.track(handle, domain.PendingLandUID)
	c.notifier.Push(domain.Toast{
		Kind:          domain.ToastInfo,
		Title:         "Registration submitted",
		Body:          fmt.Sprintf("Survey %s is waiting for confirmation.", input.SurveyNumber),
		RelatedTxHash: hashRef(handle.Hash),
	})

	settled, err := c.settle(ctx, handle, title)
	if err != nil {
		return settled, err
	}

	c.notifier.Push(domain.Toast{
		Kind:          domain.ToastSuccess,
		Title:         "Land registered",
		Body:          fmt.Sprintf("Survey %s was recorded on the ledger.", input.SurveyNumber),
		RelatedTxHash: hashRef(handle.Hash),
	})

	if err := c.Refresh(ctx); err == nil {
		if uid, ok := c.uidForSurvey(handle.SurveyNumber); ok {
			c.tracker.AttachLandUID(handle.Hash, uid)
		}
	}

	if updated, ok := c.tracker.Get(record.Hash); ok {
		return updated, nil
	}

	return settled, nil
}

// VerifyLand asks the ledger to mark a record verified. Only the ledger decides who may verify.
func (c *Coordinator) VerifyLand(ctx context.Context, landUID string) (domain.TxRecord, error) {
	const title = "Verification failed"

	wallet := c.session.Current()
	if !wallet.Connected {
		return c.abort(title, domain.ErrNotConnected)
	}
	if landUID == "" {
		return c.abort(title, fmt.Errorf("%w: land uid is required", domain.ErrInvalidInput))
	}
	if err := c.guard.EnsureNetwork(ctx); err != nil {
		return c.abort(title, err)
	}

	handle, err := c.gateway.SubmitVerification(ctx, wallet.Address, landUID)
	if err != nil {
		return c.abort(title, err)
	}

	c.track(handle, landUID)
	c.notifier.Push(domain.Toast{
		Kind:          domain.ToastInfo,
		Title:         "Verification submitted",
		Body:          fmt.Sprintf("Land %s is waiting for confirmation.", landUID),
		RelatedTxHash: hashRef(handle.Hash),
	})

	settled, err := c.settle(ctx, handle, title)
	if err != nil {
		return settled, err
	}

	c.notifier.Push(domain.Toast{
		Kind:          domain.ToastSuccess,
		Title:         "Land verified",
		Body:          fmt.Sprintf("Land %s is now verified.", landUID),
		RelatedTxHash: hashRef(handle.Hash),
	})
	_ = c.Refresh(ctx)

	return settled, nil
}

func (c *Coordinator) abort(title string, err error) (domain.TxRecord, error) {
	c.logger.Warn(title, slog.String("error", err.Error()))
	c.notifier.Push(failureToast(title, err, nil))
	return domain.TxRecord{}, err
}

func (c *Coordinator) track(handle domain.TxHandle, landUID string) domain.TxRecord {
	record := domain.TxRecord{
		Hash:      handle.Hash,
		From:      handle.From,
		To:        handle.To,
		Kind:      handle.Kind,
		LandUID:   landUID,
		Status:    domain.TxStatusPending,
		Timestamp: c.clock.Now(),
	}
	c.tracker.Record(record)
	c.metrics.TxSubmitted(handle.Kind)
	c.logger.Info("transaction submitted",
		slog.String("hash", handle.Hash.Hex()),
		slog.String("kind", string(handle.Kind)),
	)

	return record
}

// settle waits for the ledger outcome and moves the tracker entry to its terminal status.
func (c *Coordinator) settle(ctx context.Context, handle domain.TxHandle, title string) (domain.TxRecord, error) {
	_, err := c.gateway.AwaitConfirmation(ctx, handle)
	if err != nil && ctx.Err() != nil && !errors.Is(err, domain.ErrTimeout) {
		// The transaction may still be mined; the entry stays pending.
		c.logger.Info("stopped waiting for transaction",
			slog.String("hash", handle.Hash.Hex()),
			slog.String("error", err.Error()),
		)
		c.notifier.Push(domain.Toast{
			Kind:          domain.ToastWarning,
			Title:         "Stopped waiting for confirmation",
			Body:          "The transaction was sent and may still be confirmed by the ledger.",
			RelatedTxHash: hashRef(handle.Hash),
		})

		record, _ := c.tracker.Get(handle.Hash)
		return record, err
	}
	if err != nil {
		reason := failureBody(err)
		c.tracker.Transition(handle.Hash, domain.TxStatusFailed, reason)
		c.metrics.TxSettled(handle.Kind, domain.TxStatusFailed)
		c.logger.Warn("transaction failed",
			slog.String("hash", handle.Hash.Hex()),
			slog.String("error", err.Error()),
		)
		c.notifier.Push(failureToast(title, err, hashRef(handle.Hash)))

		record, _ := c.tracker.Get(handle.Hash)
		return record, err
	}

	c.tracker.Transition(handle.Hash, domain.TxStatusConfirmed, "")
	c.metrics.TxSettled(handle.Kind, domain.TxStatusConfirmed)
	c.logger.Info("transaction confirmed", slog.String("hash", handle.Hash.Hex()))

	record, _ := c.tracker.Get(handle.Hash)
	return record, nil
}

func (c *Coordinator) uidForSurvey(surveyNumber string) (string, bool) {
	if surveyNumber == "" {
		return "", false
	}

	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()

	for _, record := range c.records {
		if record.SurveyNumber == surveyNumber {
			return record.UID, true
		}
	}

	return "", false
}

var _ Refresher = (*Coordinator)(nil)
