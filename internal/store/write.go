package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chartlog/chartlog/internal/syncer"
)

// timeLayout preserves sub-second precision across a persist/load cycle.
const timeLayout = time.RFC3339Nano

// Sync persists one delivery: upserts the encounter snapshot row and
// inserts the newly pending events, all in a single transaction.
//
// Event inserts use ON CONFLICT(id) DO NOTHING for idempotency - a retry
// that redelivers an already-acknowledged event id is silently ignored,
// so overlapping NewEvents across attempts never duplicate rows.
func (s *Store) Sync(ctx context.Context, p syncer.Payload) error {
	patientJSON, err := json.Marshal(p.Patient)
	if err != nil {
		return fmt.Errorf("sync: marshal patient: %w", err)
	}
	stateJSON, err := json.Marshal(p.State)
	if err != nil {
		return fmt.Errorf("sync: marshal state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sync: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO encounters
		(session_id, record_id, case_id, patient, current_state, started_at, last_updated_at, event_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			record_id = excluded.record_id,
			patient = excluded.patient,
			current_state = excluded.current_state,
			last_updated_at = excluded.last_updated_at,
			event_count = excluded.event_count
	`,
		p.SessionID,
		p.RecordID,
		p.Document.CaseID,
		string(patientJSON),
		string(stateJSON),
		p.Document.StartedAt.UTC().Format(timeLayout),
		p.Document.LastUpdatedAt.UTC().Format(timeLayout),
		p.EventCount,
	)
	if err != nil {
		return fmt.Errorf("sync: upsert encounter: %w", err)
	}

	// NewEvents are the unacknowledged tail of the log, so their positions
	// start at eventCount - len(newEvents). Redelivered events conflict on
	// id and keep their original seq.
	base := p.EventCount - len(p.NewEvents)
	for i, ev := range p.NewEvents {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("sync: marshal event %s: %w", ev.ID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO events (id, session_id, seq, time_min, verb, payload)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING
		`,
			ev.ID,
			p.SessionID,
			base+i,
			ev.Time,
			string(ev.Verb),
			string(payload),
		)
		if err != nil {
			return fmt.Errorf("sync: write event %s: %w", ev.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sync: commit: %w", err)
	}
	return nil
}

// Delete removes a session's durable copy: the encounter row and, via the
// cascading foreign key, its events. This is the explicit administrative
// deletion path; the in-memory ledger has no delete operation.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM encounters WHERE session_id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", sessionID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session %s: rows affected: %w", sessionID, err)
	}
	if n == 0 {
		return syncer.ErrNotFound
	}
	return nil
}

var _ syncer.Backend = (*Store)(nil)
