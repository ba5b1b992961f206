package syncer

import (
	"context"
	"errors"

	"github.com/chartlog/chartlog/internal/ledger"
)

// ErrNotFound is returned by Backend.Load when no document exists for the
// session. Resume falls back to a fresh record on this error.
var ErrNotFound = errors.New("encounter document not found")

// Payload is one durable-sync delivery: the newly pending events plus a
// full snapshot of the record they belong to.
//
// Delivery is at-least-once. The backend must tolerate redelivery of an
// event id it has already stored (treat it as a no-op), because a failed
// acknowledgment leaves events pending and the next attempt resends them.
type Payload struct {
	SessionID  string
	RecordID   string
	NewEvents  []ledger.Event
	Document   *ledger.Record
	Patient    ledger.Patient
	State      ledger.State
	EventCount int
}

// Backend is the durable store boundary. The transport behind it is out
// of this package's concern; the contract is idempotent-safe Sync retry
// and a Load that returns a document structurally identical to what Sync
// persisted.
type Backend interface {
	// Sync persists the payload. Partial application is not allowed: either
	// the whole payload lands or the call errors.
	Sync(ctx context.Context, p Payload) error

	// Load returns the persisted document for the session, or ErrNotFound.
	Load(ctx context.Context, sessionID string) (*ledger.Record, error)
}
