package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chartlog/chartlog/internal/ledger"
	"github.com/chartlog/chartlog/internal/syncer"
)

// Load reassembles the persisted document for a session: the encounter
// snapshot row plus every event ordered by seq ASC, id ASC. Returns
// syncer.ErrNotFound when no row exists.
func (s *Store) Load(ctx context.Context, sessionID string) (*ledger.Record, error) {
	var (
		recordID    string
		caseID      string
		patientJSON string
		stateJSON   string
		startedAt   string
		updatedAt   string
		eventCount  int
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT record_id, case_id, patient, current_state, started_at, last_updated_at, event_count
		FROM encounters
		WHERE session_id = ?
	`, sessionID).Scan(&recordID, &caseID, &patientJSON, &stateJSON, &startedAt, &updatedAt, &eventCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, syncer.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}

	rec := &ledger.Record{
		RecordID:  recordID,
		SessionID: sessionID,
		CaseID:    caseID,
	}
	if err := json.Unmarshal([]byte(patientJSON), &rec.Patient); err != nil {
		return nil, fmt.Errorf("load session %s: unmarshal patient: %w", sessionID, err)
	}
	if err := json.Unmarshal([]byte(stateJSON), &rec.State); err != nil {
		return nil, fmt.Errorf("load session %s: unmarshal state: %w", sessionID, err)
	}
	if rec.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("load session %s: parse started_at: %w", sessionID, err)
	}
	if rec.LastUpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return nil, fmt.Errorf("load session %s: parse last_updated_at: %w", sessionID, err)
	}

	events, err := s.readEvents(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	rec.Events = events
	return rec, nil
}

// readEvents returns all events for a session in replay order.
func (s *Store) readEvents(ctx context.Context, sessionID string) ([]ledger.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT payload FROM events
		WHERE session_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("read events for %s: %w", sessionID, err)
	}
	defer rows.Close()

	events := []ledger.Event{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev ledger.Event
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			return nil, fmt.Errorf("read events for %s: %w", sessionID, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events for %s: %w", sessionID, err)
	}
	return events, nil
}

// ListSessions returns all stored session ids, ordered alphabetically.
func (s *Store) ListSessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id FROM encounters ORDER BY session_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan session id: %w", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session ids: %w", err)
	}
	return sessions, nil
}

// EventCount returns the number of stored events for a session.
// Used for retry-safety checks and operator tooling.
func (s *Store) EventCount(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM events WHERE session_id = ?
	`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count events for %s: %w", sessionID, err)
	}
	return count, nil
}
