// Package session is the binding layer between producers/consumers and
// the encounter core: it guarantees exactly one authoritative ledger per
// session id, owns each session's sync coordinator, and runs the resume
// protocol on open.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chartlog/chartlog/internal/ledger"
	"github.com/chartlog/chartlog/internal/syncer"
)

// Session is one live encounter: the ledger plus its sync coordinator.
type Session struct {
	led     *ledger.Ledger
	coord   *syncer.Coordinator
	cancel  context.CancelFunc
	resumed bool
}

// Ledger returns the session's authoritative ledger.
func (s *Session) Ledger() *ledger.Ledger { return s.led }

// Resumed reports whether the session was reconstructed from a durable
// document rather than started fresh.
func (s *Session) Resumed() bool { return s.resumed }

// SyncStatus returns the coordinator's observable state, for passive
// status indicators. A persistent outage shows up here; it never blocks
// recording or narrative generation.
func (s *Session) SyncStatus() syncer.Status { return s.coord.Status() }

// ForceSync performs one synchronous sync attempt.
func (s *Session) ForceSync(ctx context.Context) error {
	return s.coord.ForceSync(ctx)
}

// Export renders the full record as a complete, self-describing canonical
// JSON document.
func (s *Session) Export() ([]byte, error) {
	return s.led.Snapshot().MarshalCanonical()
}

// close stops the coordinator with a final best-effort flush.
func (s *Session) close(ctx context.Context) error {
	err := s.coord.Close(ctx)
	s.cancel()
	return err
}

// Manager hands out sessions, one live ledger per session id. Opening an
// id that is already live returns the existing session; two concurrently
// written ledgers for the same session cannot be constructed through it.
type Manager struct {
	backend  syncer.Backend
	log      *zap.Logger
	interval time.Duration
	clock    ledger.Clock
	ids      ledger.IDSource

	mu       sync.Mutex
	sessions map[string]*Session
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger. Default: a no-op logger.
func WithLogger(log *zap.Logger) ManagerOption {
	return func(m *Manager) { m.log = log }
}

// WithSyncInterval sets the periodic sync cadence for new sessions.
func WithSyncInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.interval = d }
}

// WithClock sets the time source for new ledgers. Default: wall clock.
func WithClock(c ledger.Clock) ManagerOption {
	return func(m *Manager) { m.clock = c }
}

// WithIDSource sets the id generator for new ledgers. Default: UUIDv7.
func WithIDSource(s ledger.IDSource) ManagerOption {
	return func(m *Manager) { m.ids = s }
}

// NewManager creates a session manager backed by the given durable store.
func NewManager(backend syncer.Backend, opts ...ManagerOption) *Manager {
	m := &Manager{
		backend:  backend,
		log:      zap.NewNop(),
		interval: syncer.DefaultInterval,
		sessions: make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Open returns the live session for sessionID, resuming from the durable
// store when a valid document exists and starting fresh otherwise. Either
// path leaves the ledger in a state where the next recording call behaves
// identically.
//
// Load or validation failures are recoverable: they log a warning and
// fall back to a fresh record rather than blocking session start.
func (m *Manager) Open(ctx context.Context, sessionID, caseID string, patient ledger.Patient) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sessions[sessionID]; ok {
		return existing, nil
	}

	led, resumed := m.buildLedger(ctx, sessionID, caseID, patient)

	coord := syncer.New(led, m.backend,
		syncer.WithInterval(m.interval),
		syncer.WithLogger(m.log),
	)
	runCtx, cancel := context.WithCancel(context.Background())
	go coord.Run(runCtx)

	sess := &Session{led: led, coord: coord, cancel: cancel, resumed: resumed}
	m.sessions[sessionID] = sess

	m.log.Info("session opened",
		zap.String("session_id", sessionID),
		zap.String("record_id", led.RecordID()),
		zap.Bool("resumed", resumed),
	)
	return sess, nil
}

// buildLedger runs the resume protocol: load, validate, reconstruct; on
// any failure, fresh.
func (m *Manager) buildLedger(ctx context.Context, sessionID, caseID string, patient ledger.Patient) (*ledger.Ledger, bool) {
	doc, err := m.backend.Load(ctx, sessionID)
	switch {
	case err == nil:
		if verr := ValidateDocument(doc); verr != nil {
			m.log.Warn("persisted document rejected, starting fresh",
				zap.String("session_id", sessionID),
				zap.Error(verr),
			)
			return m.freshLedger(sessionID, caseID, patient), false
		}
		return ledger.NewFromRecord(doc, m.ledgerOptions()...), true
	case errors.Is(err, syncer.ErrNotFound):
		return m.freshLedger(sessionID, caseID, patient), false
	default:
		m.log.Warn("load failed, starting fresh",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return m.freshLedger(sessionID, caseID, patient), false
	}
}

func (m *Manager) freshLedger(sessionID, caseID string, patient ledger.Patient) *ledger.Ledger {
	return ledger.New(sessionID, caseID, patient, m.ledgerOptions()...)
}

func (m *Manager) ledgerOptions() []ledger.Option {
	var opts []ledger.Option
	if m.clock != nil {
		opts = append(opts, ledger.WithClock(m.clock))
	}
	if m.ids != nil {
		opts = append(opts, ledger.WithIDSource(m.ids))
	}
	return opts
}

// Close tears down a live session: one final best-effort sync, then the
// session is detached. Closing an unknown session id is an error.
func (m *Manager) Close(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	sess, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("close session %s: not open", sessionID)
	}
	if err := sess.close(ctx); err != nil {
		m.log.Warn("final sync failed on close",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return err
	}
	m.log.Info("session closed", zap.String("session_id", sessionID))
	return nil
}

// CloseAll closes every live session, returning the first error.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := m.Close(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
