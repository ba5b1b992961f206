package ledger

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Patient is the immutable demographic snapshot captured at record creation.
type Patient struct {
	Name           string `json:"name"`
	Age            int    `json:"age"`
	Gender         string `json:"gender"`
	ID             string `json:"id"`
	ChiefComplaint string `json:"chief_complaint"`
}

// State is the derived current state of an encounter: last-known vitals
// and elapsed whole minutes since the encounter started.
type State struct {
	Vitals         Vitals `json:"vitals"`
	ElapsedMinutes int    `json:"elapsed_minutes"`
}

// Record is a consistent snapshot of a full encounter record. It is also
// the document shape exchanged with the durable store.
type Record struct {
	RecordID      string    `json:"record_id"`
	SessionID     string    `json:"session_id"`
	CaseID        string    `json:"case_id"`
	StartedAt     time.Time `json:"started_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	Patient       Patient   `json:"patient"`
	Events        []Event   `json:"events"`
	State         State     `json:"current_state"`
}

// Ledger owns the ordered event list for one encounter session and the
// state derived from it. All methods are safe for concurrent use; every
// append is atomic under the internal lock, so a racing reader sees either
// the whole new event or not yet, never a partial one.
//
// Recording methods never perform I/O and never block on anything but the
// lock. Durable persistence is the sync coordinator's job: each appended
// event is also placed on a pending buffer that the coordinator drains.
type Ledger struct {
	mu sync.Mutex

	recordID  string
	sessionID string
	caseID    string
	startedAt time.Time
	updatedAt time.Time
	patient   Patient

	events  []Event
	vitals  Vitals
	pending []Event

	clock Clock
	ids   IDSource
}

// Option configures a Ledger at construction.
type Option func(*Ledger)

// WithClock sets the time source. Default: WallClock.
func WithClock(c Clock) Option {
	return func(l *Ledger) { l.clock = c }
}

// WithIDSource sets the id generator. Default: UUIDSource.
func WithIDSource(s IDSource) Option {
	return func(l *Ledger) { l.ids = s }
}

// WithRecordID overrides the generated record id. Used on resume, where
// the id from the durable copy stays authoritative.
func WithRecordID(id string) Option {
	return func(l *Ledger) { l.recordID = id }
}

// WithStartedAt overrides the creation timestamp. Used on resume.
func WithStartedAt(t time.Time) Option {
	return func(l *Ledger) { l.startedAt = t }
}

// New creates a fresh encounter ledger with an empty event list.
func New(sessionID, caseID string, patient Patient, opts ...Option) *Ledger {
	l := &Ledger{
		sessionID: sessionID,
		caseID:    caseID,
		patient:   patient,
		clock:     WallClock{},
		ids:       UUIDSource{},
		vitals:    make(Vitals),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.recordID == "" {
		l.recordID = l.ids.NewID()
	}
	if l.startedAt.IsZero() {
		l.startedAt = l.clock.Now()
	}
	l.updatedAt = l.startedAt
	return l
}

// NewFromRecord reconstructs a ledger from a durable document: events are
// loaded verbatim and the persisted vitals are adopted as-is. After this,
// recording behaves identically to a fresh ledger.
func NewFromRecord(rec *Record, opts ...Option) *Ledger {
	base := []Option{WithRecordID(rec.RecordID), WithStartedAt(rec.StartedAt)}
	l := New(rec.SessionID, rec.CaseID, rec.Patient, append(base, opts...)...)
	l.LoadEvents(rec.Events)
	l.UpdateVitals(rec.State.Vitals)
	return l
}

// append is the single primitive shared by all eight recording methods:
// generate an id, stamp elapsed minutes, push to the log, refresh
// last-updated, and enqueue on the pending-sync buffer.
func (l *Ledger) append(verb Verb, fill func(*Event)) Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	ev := Event{
		ID:   l.ids.NewID(),
		Verb: verb,
		Time: elapsedMinutes(l.startedAt, now),
	}
	fill(&ev)

	l.events = append(l.events, ev)
	l.pending = append(l.pending, ev)
	l.updatedAt = now
	return ev
}

// RecordObtained records history or info elicited from an interview.
// An empty Source defaults to "patient".
func (l *Ledger) RecordObtained(p Obtained) Event {
	if p.Source == "" {
		p.Source = "patient"
	}
	return l.append(VerbObtained, func(ev *Event) { ev.Obtained = &p })
}

// RecordExamined records a physical-exam maneuver.
func (l *Ledger) RecordExamined(p Examined) Event {
	return l.append(VerbExamined, func(ev *Event) { ev.Examined = &p })
}

// RecordElicited records a concrete finding or result.
func (l *Ledger) RecordElicited(p Elicited) Event {
	return l.append(VerbElicited, func(ev *Event) { ev.Elicited = &p })
}

// RecordNoted records an observation acknowledged without being elicited.
func (l *Ledger) RecordNoted(p Noted) Event {
	return l.append(VerbNoted, func(ev *Event) { ev.Noted = &p })
}

// RecordOrdered records a test, treatment, or consult request.
// An empty Status defaults to "pending".
func (l *Ledger) RecordOrdered(p Ordered) Event {
	if p.Status == "" {
		p.Status = "pending"
	}
	return l.append(VerbOrdered, func(ev *Event) { ev.Ordered = &p })
}

// RecordAdministered records a treatment actually given.
func (l *Ledger) RecordAdministered(p Administered) Event {
	return l.append(VerbAdministered, func(ev *Event) { ev.Administered = &p })
}

// RecordChanged records a tracked value transitioning. Direction is
// derived here, once, from From/To; any caller-supplied value is ignored.
// When the event addresses a recognized vital key, the current vitals map
// is written through in the same atomic append.
func (l *Ledger) RecordChanged(p Changed) Event {
	p.Direction = deriveDirection(p.From, p.To)
	return l.append(VerbChanged, func(ev *Event) {
		ev.Changed = &p
		l.vitals = applyChanged(l.vitals, &p)
	})
}

// RecordExpressed records the patient communicating something unprompted.
func (l *Ledger) RecordExpressed(p Expressed) Event {
	return l.append(VerbExpressed, func(ev *Event) { ev.Expressed = &p })
}

// UpdateVitals merges the given values into current vitals without
// creating an event. Used for out-of-band state sync, e.g. pushes from the
// physiologic timeline. Unrecognized keys are dropped.
func (l *Ledger) UpdateVitals(v Vitals) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for k, val := range v {
		if knownVital(k) {
			l.vitals[k] = val
		}
	}
}

// SetInitialVitals merges the given vitals and then records one CHANGED
// baseline marker event so the log carries the session's starting point.
func (l *Ledger) SetInitialVitals(v Vitals) Event {
	l.UpdateVitals(v)
	return l.RecordChanged(Changed{
		Category:  VitalCategory,
		Parameter: "initial",
		From:      "N/A",
		To:        serializeVitals(v),
		Trigger:   "session_start",
	})
}

// serializeVitals renders a vitals map as "hr=88 bp=128/84" in fixed key
// order, for the baseline marker event.
func serializeVitals(v Vitals) string {
	var parts []string
	for _, k := range VitalKeys {
		if val, ok := v[k]; ok {
			parts = append(parts, fmt.Sprintf("%s=%s", k, val))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, " ")
}

// LoadEvents replaces the entire event list. Only for session resume from
// a trusted durable copy; it does not touch current vitals (the caller
// restores those separately) and refreshes last-updated.
func (l *Ledger) LoadEvents(events []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = make([]Event, len(events))
	copy(l.events, events)
	l.pending = nil
	l.updatedAt = l.clock.Now()
}

// Snapshot returns a consistent deep copy of the full record, including
// the read-time elapsed-minutes derivation.
func (l *Ledger) Snapshot() *Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// PendingSnapshot returns the record snapshot and the pending-sync buffer
// captured under one lock acquisition, so the pending events are exactly
// the unacknowledged tail of the returned record. Reading them separately
// would let an append land between the two reads and desynchronize the
// buffer from the record's event count.
func (l *Ledger) PendingSnapshot() (*Record, []Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pending := make([]Event, len(l.pending))
	copy(pending, l.pending)
	return l.snapshotLocked(), pending
}

// snapshotLocked builds the record copy; callers hold l.mu.
func (l *Ledger) snapshotLocked() *Record {
	events := make([]Event, len(l.events))
	copy(events, l.events)
	return &Record{
		RecordID:      l.recordID,
		SessionID:     l.sessionID,
		CaseID:        l.caseID,
		StartedAt:     l.startedAt,
		LastUpdatedAt: l.updatedAt,
		Patient:       l.patient,
		Events:        events,
		State: State{
			Vitals:         l.vitals.Clone(),
			ElapsedMinutes: elapsedMinutes(l.startedAt, l.clock.Now()),
		},
	}
}

// Events returns a copy of the log, optionally filtered to the given
// verbs. No verbs means all events.
func (l *Ledger) Events(verbs ...Verb) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(verbs) == 0 {
		out := make([]Event, len(l.events))
		copy(out, l.events)
		return out
	}
	want := make(map[Verb]bool, len(verbs))
	for _, v := range verbs {
		want[v] = true
	}
	var out []Event
	for _, ev := range l.events {
		if want[ev.Verb] {
			out = append(out, ev)
		}
	}
	return out
}

// State returns the derived current state.
func (l *Ledger) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Vitals:         l.vitals.Clone(),
		ElapsedMinutes: elapsedMinutes(l.startedAt, l.clock.Now()),
	}
}

// Patient returns the immutable patient snapshot.
func (l *Ledger) Patient() Patient {
	return l.patient
}

// EventCount returns the number of events in the log.
func (l *Ledger) EventCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.events)
}

// RecordID returns the record's immutable unique identifier.
func (l *Ledger) RecordID() string { return l.recordID }

// SessionID returns the owning session's identifier.
func (l *Ledger) SessionID() string { return l.sessionID }

// PendingSync returns a copy of the events appended since the last
// successful durable sync.
func (l *Ledger) PendingSync() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.pending))
	copy(out, l.pending)
	return out
}

// ClearPendingSync removes exactly the events with the given ids from the
// pending buffer. Events appended while a sync was in flight stay pending.
func (l *Ledger) ClearPendingSync(ids []string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(ids) == 0 {
		return
	}
	acked := make(map[string]bool, len(ids))
	for _, id := range ids {
		acked[id] = true
	}
	kept := l.pending[:0]
	for _, ev := range l.pending {
		if !acked[ev.ID] {
			kept = append(kept, ev)
		}
	}
	l.pending = kept
}
