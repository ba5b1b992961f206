// Package syncer drains the ledger's pending-sync buffer to a durable
// backend: periodically, on demand, and once more at shutdown.
//
// Failure semantics: a failed sync leaves the pending buffer untouched so
// the next tick retries the same events plus anything appended meanwhile.
// Errors are recorded as an observable status and never propagate to
// ledger writers; the encounter continues uninterrupted through any
// persistence outage.
package syncer

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chartlog/chartlog/internal/ledger"
)

// DefaultInterval is the default periodic sync cadence.
const DefaultInterval = 60 * time.Second

// State is the coordinator's observable lifecycle state.
type State string

const (
	// StateIdle means no sync is in flight and the last attempt (if any)
	// succeeded.
	StateIdle State = "idle"
	// StateSyncing means a sync is in flight.
	StateSyncing State = "syncing"
	// StateError means no sync is in flight and the last attempt failed.
	// The failure is recoverable; the next tick retries.
	StateError State = "error"
)

// Status is a point-in-time observation of the coordinator.
type Status struct {
	State        State
	LastSyncedAt time.Time
	LastError    string
	PendingCount int
}

// Coordinator owns the periodic durable sync for one ledger. Its timer is
// tied to the encounter's lifetime, not process-wide, so concurrent
// encounters do not interfere.
type Coordinator struct {
	led      *ledger.Ledger
	backend  Backend
	interval time.Duration
	log      *zap.Logger

	mu       sync.Mutex
	state    State
	lastSync time.Time
	lastErr  error
	detached bool

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithInterval sets the periodic sync cadence. Default: DefaultInterval.
func WithInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.interval = d }
}

// WithLogger sets the logger. Default: a no-op logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// New creates a coordinator for the given ledger and backend.
// Call Run to start the periodic loop; ForceSync works without it.
func New(led *ledger.Ledger, backend Backend, opts ...Option) *Coordinator {
	c := &Coordinator{
		led:      led,
		backend:  backend,
		interval: DefaultInterval,
		log:      zap.NewNop(),
		state:    StateIdle,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the periodic sync loop until ctx is canceled or Close is
// called. Must be called at most once, typically on its own goroutine.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stop:
			return
		case <-ticker.C:
			if err := c.syncOnce(ctx); err != nil {
				c.log.Warn("periodic sync failed",
					zap.String("session_id", c.led.SessionID()),
					zap.Error(err))
			}
		}
	}
}

// ForceSync performs one synchronous sync attempt. Callers await the
// result to observe success or failure; the ledger stays writable while
// the call is in flight.
func (c *Coordinator) ForceSync(ctx context.Context) error {
	return c.syncOnce(ctx)
}

// Close stops the periodic loop and performs one final best-effort sync
// so events recorded in the last interval are not silently dropped. After
// Close returns, an in-flight periodic result is discarded rather than
// applied.
func (c *Coordinator) Close(ctx context.Context) error {
	var flushErr error
	c.stopOnce.Do(func() {
		close(c.stop)
		flushErr = c.syncOnce(ctx)

		c.mu.Lock()
		c.detached = true
		c.mu.Unlock()
	})
	return flushErr
}

// Done is closed when the Run loop has exited.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Status returns the current observable state.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		State:        c.state,
		LastSyncedAt: c.lastSync,
		PendingCount: len(c.led.PendingSync()),
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// syncOnce snapshots the pending buffer and the full record, delivers
// them, and on success clears exactly the snapshotted events from the
// buffer. Events appended during the in-flight call stay pending.
func (c *Coordinator) syncOnce(ctx context.Context) error {
	c.mu.Lock()
	if c.detached {
		c.mu.Unlock()
		return nil
	}
	c.state = StateSyncing
	c.mu.Unlock()

	// One atomic capture: the pending events must be exactly the
	// unacknowledged tail of doc.Events, or the store would misnumber
	// events appended between two separate reads.
	doc, pending := c.led.PendingSnapshot()
	payload := Payload{
		SessionID:  doc.SessionID,
		RecordID:   doc.RecordID,
		NewEvents:  pending,
		Document:   doc,
		Patient:    doc.Patient,
		State:      doc.State,
		EventCount: len(doc.Events),
	}

	err := c.backend.Sync(ctx, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.detached {
		// Result arrived after Close finished; do not touch the ledger.
		return err
	}
	if err != nil {
		c.state = StateError
		c.lastErr = err
		return err
	}

	ids := make([]string, len(pending))
	for i, ev := range pending {
		ids[i] = ev.ID
	}
	c.led.ClearPendingSync(ids)
	c.state = StateIdle
	c.lastErr = nil
	c.lastSync = time.Now()
	return nil
}
