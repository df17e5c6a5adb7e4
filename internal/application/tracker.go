package application

import (
	"log/slog"
	"sync"
	"time"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/ethereum/go-ethereum/common"
)

const DefaultDisplayWindow = 120 * time.Second

type TrackerOptions struct {
	// DisplayWindow bounds which entries the status indicator surfaces.
	DisplayWindow time.Duration
	// Retention prunes settled entries older than this on Record. Zero keeps everything.
	Retention time.Duration
}

// Tracker keeps submitted transactions newest first. Entries never move once recorded.
type Tracker struct {
	opts   TrackerOptions
	clock  ports.Clock
	logger *slog.Logger

	mu      sync.RWMutex
	entries []domain.TxRecord
}

func NewTracker(opts TrackerOptions, clock ports.Clock, logger *slog.Logger) *Tracker {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if opts.DisplayWindow <= 0 {
		opts.DisplayWindow = DefaultDisplayWindow
	}

	return &Tracker{opts: opts, clock: clock, logger: loggerOrDiscard(logger)}
}

func (t *Tracker) Record(tx domain.TxRecord) {
	if tx.Status == "" {
		tx.Status = domain.TxStatusPending
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = t.clock.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	entries := make([]domain.TxRecord, 0, len(t.entries)+1)
	entries = append(entries, tx)
	entries = append(entries, t.entries...)
	t.entries = t.prune(entries)
}

// Transition moves a pending entry to a terminal status. Unknown hashes and
// already-settled entries are left untouched.
func (t *Tracker) Transition(hash common.Hash, status domain.TxStatus, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(hash)
	if idx < 0 {
		t.logger.Warn("transition for unknown transaction",
			slog.String("hash", hash.Hex()),
			slog.String("status", string(status)),
		)
		return
	}

	entry := &t.entries[idx]
	if !domain.CanTransition(entry.Status, status) {
		if entry.Status != status {
			t.logger.Warn("ignored transaction status change",
				slog.String("hash", hash.Hex()),
				slog.String("from", string(entry.Status)),
				slog.String("to", string(status)),
			)
		}
		return
	}

	entry.Status = status
	entry.Reason = reason
}

// AttachLandUID replaces the pending placeholder once the ledger-assigned uid is known.
func (t *Tracker) AttachLandUID(hash common.Hash, uid string) {
	if uid == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.indexOf(hash)
	if idx < 0 {
		t.logger.Warn("land uid for unknown transaction", slog.String("hash", hash.Hex()))
		return
	}
	if t.entries[idx].LandUID == domain.PendingLandUID || t.entries[idx].LandUID == "" {
		t.entries[idx].LandUID = uid
	}
}

func (t *Tracker) Get(hash common.Hash) (domain.TxRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx := t.indexOf(hash)
	if idx < 0 {
		return domain.TxRecord{}, false
	}

	return t.entries[idx], true
}

func (t *Tracker) All() []domain.TxRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return append([]domain.TxRecord(nil), t.entries...)
}

// Recent returns the entries young enough for prominent display.
func (t *Tracker) Recent(now time.Time) []domain.TxRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	recent := make([]domain.TxRecord, 0, len(t.entries))
	for _, entry := range t.entries {
		if now.Sub(entry.Timestamp) < t.opts.DisplayWindow {
			recent = append(recent, entry)
		}
	}

	return recent
}

// Latest returns the newest entry if it is still inside the display window.
func (t *Tracker) Latest(now time.Time) (domain.TxRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.entries) == 0 {
		return domain.TxRecord{}, false
	}

	latest := t.entries[0]
	if now.Sub(latest.Timestamp) >= t.opts.DisplayWindow {
		return domain.TxRecord{}, false
	}

	return latest, true
}

func (t *Tracker) indexOf(hash common.Hash) int {
	for i := range t.entries {
		if t.entries[i].Hash == hash {
			return i
		}
	}

	return -1
}

func (t *Tracker) prune(entries []domain.TxRecord) []domain.TxRecord {
	if t.opts.Retention <= 0 {
		return entries
	}

	now := t.clock.Now()
	kept := entries[:0]
	for _, entry := range entries {
		if entry.Status.Terminal() && now.Sub(entry.Timestamp) > t.opts.Retention {
			continue
		}
		kept = append(kept, entry)
	}

	return kept
}
