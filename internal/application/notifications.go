package application

import (
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/bdlandchain/landchain-cli/internal/ports"
	"github.com/google/uuid"
)

type NotificationOptions struct {
	DefaultTTL time.Duration
	TxTTL      time.Duration
}

type stopper interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) stopper

type queuedToast struct {
	toast domain.Toast
	seq   uint64
}

// NotificationQueue holds the user-facing status messages. Each entry expires on its own
// timer; Active also hides entries whose expiry has passed before the timer fired.
type NotificationQueue struct {
	opts    NotificationOptions
	clock   ports.Clock
	metrics ports.Metrics
	logger  *slog.Logger
	after   afterFunc

	mu          sync.Mutex
	toasts      map[string]queuedToast
	seq         uint64
	timers      map[string]stopper
	subscribers map[int]func(domain.Toast)
	nextSubID   int
	closed      bool
}

func NewNotificationQueue(opts NotificationOptions, clock ports.Clock, metrics ports.Metrics, logger *slog.Logger) *NotificationQueue {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = domain.DefaultToastTTL
	}
	if opts.TxTTL <= 0 {
		opts.TxTTL = domain.DefaultTxToastTTL
	}

	return &NotificationQueue{
		opts:    opts,
		clock:   clock,
		metrics: metrics,
		logger:  loggerOrDiscard(logger),
		after: func(d time.Duration, f func()) stopper {
			return time.AfterFunc(d, f)
		},
		toasts:      map[string]queuedToast{},
		timers:      map[string]stopper{},
		subscribers: map[int]func(domain.Toast){},
	}
}

// Push enqueues toast and returns its id. Pushes after Close are dropped and return "".
func (q *NotificationQueue) Push(toast domain.Toast) string {
	toast.ID = uuid.NewString()
	toast.TTL = toast.ResolveTTL(q.opts.DefaultTTL, q.opts.TxTTL)
	toast.CreatedAt = q.clock.Now()
	toast.ExpiresAt = toast.CreatedAt.Add(toast.TTL)

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ""
	}
	q.seq++
	q.toasts[toast.ID] = queuedToast{toast: toast, seq: q.seq}
	id := toast.ID
	q.timers[id] = q.after(toast.TTL, func() { q.Dismiss(id) })
	subscribers := make([]func(domain.Toast), 0, len(q.subscribers))
	for _, fn := range q.subscribers {
		subscribers = append(subscribers, fn)
	}
	q.mu.Unlock()

	q.metrics.ToastPushed(toast.Kind)
	q.logger.Info("notification",
		slog.String("kind", string(toast.Kind)),
		slog.String("title", toast.Title),
		slog.String("body", toast.Body),
	)

	for _, fn := range subscribers {
		fn(toast)
	}

	return id
}

func (q *NotificationQueue) Dismiss(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}
	delete(q.toasts, id)
}

// Active returns the visible toasts, oldest first.
func (q *NotificationQueue) Active() []domain.Toast {
	now := q.clock.Now()

	q.mu.Lock()
	queued := make([]queuedToast, 0, len(q.toasts))
	for _, entry := range q.toasts {
		if now.Before(entry.toast.ExpiresAt) {
			queued = append(queued, entry)
		}
	}
	q.mu.Unlock()

	sort.Slice(queued, func(i, j int) bool {
		return queued[i].seq < queued[j].seq
	})

	active := make([]domain.Toast, 0, len(queued))
	for _, entry := range queued {
		active = append(active, entry.toast)
	}

	return active
}

// Subscribe registers fn to receive every toast as it is pushed.
func (q *NotificationQueue) Subscribe(fn func(domain.Toast)) (cancel func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextSubID
	q.nextSubID++
	q.subscribers[id] = fn

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()
		delete(q.subscribers, id)
	}
}

func (q *NotificationQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.toasts = map[string]queuedToast{}
	q.subscribers = map[int]func(domain.Toast){}
	q.closed = true
}

func loggerOrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return logger
}
