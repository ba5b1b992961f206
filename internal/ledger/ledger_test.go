package ledger

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

func testLedger(t *testing.T) (*Ledger, *ManualClock) {
	t.Helper()
	clock := NewManualClock(testEpoch)
	l := New("sess-1", "case-1", Patient{
		Name:           "Maria Gomez",
		Age:            58,
		Gender:         "female",
		ID:             "pt-001",
		ChiefComplaint: "chest pain",
	},
		WithClock(clock),
		WithIDSource(NewSequenceIDs("evt")),
		WithRecordID("rec-1"),
	)
	return l, clock
}

func TestLedger_New_EmptyLog(t *testing.T) {
	l, _ := testLedger(t)

	assert.Equal(t, 0, l.EventCount())
	assert.Equal(t, "rec-1", l.RecordID())
	assert.Equal(t, "sess-1", l.SessionID())
	assert.Empty(t, l.State().Vitals)
	assert.Equal(t, 0, l.State().ElapsedMinutes)
}

func TestLedger_Record_AppendsInOrder(t *testing.T) {
	l, clock := testLedger(t)

	l.RecordObtained(Obtained{Category: "hpi", Content: "Pain started 2 hours ago"})
	clock.Advance(3 * time.Minute)
	l.RecordExamined(Examined{Region: "chest", Technique: "auscultation"})
	clock.Advance(2 * time.Minute)
	l.RecordOrdered(Ordered{Category: "lab", Item: "Troponin"})

	events := l.Events()
	require.Len(t, events, 3)
	assert.Equal(t, "evt-0001", events[0].ID)
	assert.Equal(t, "evt-0002", events[1].ID)
	assert.Equal(t, "evt-0003", events[2].ID)
	assert.Equal(t, []int{0, 3, 5}, []int{events[0].Time, events[1].Time, events[2].Time})
	assert.Equal(t, VerbObtained, events[0].Verb)
	assert.Equal(t, VerbExamined, events[1].Verb)
	assert.Equal(t, VerbOrdered, events[2].Verb)
}

func TestLedger_RecordObtained_DefaultSource(t *testing.T) {
	l, _ := testLedger(t)

	ev := l.RecordObtained(Obtained{Category: "hpi", Content: "no known allergies"})
	assert.Equal(t, "patient", ev.Obtained.Source)

	ev = l.RecordObtained(Obtained{Category: "hpi", Content: "fell at home", Source: "family"})
	assert.Equal(t, "family", ev.Obtained.Source)
}

func TestLedger_RecordOrdered_DefaultStatus(t *testing.T) {
	l, _ := testLedger(t)

	ev := l.RecordOrdered(Ordered{Category: "lab", Item: "CBC"})
	assert.Equal(t, "pending", ev.Ordered.Status)

	ev = l.RecordOrdered(Ordered{Category: "lab", Item: "BMP", Status: "collected"})
	assert.Equal(t, "collected", ev.Ordered.Status)
}

func TestLedger_RecordChanged_UpdatesVitals(t *testing.T) {
	l, _ := testLedger(t)

	l.RecordChanged(Changed{Category: "vital", Parameter: "hr", From: "80", To: "112"})
	l.RecordChanged(Changed{Category: "vital", Parameter: "bp", From: "128/84", To: "100/60"})

	vitals := l.State().Vitals
	assert.Equal(t, "112", vitals["hr"])
	assert.Equal(t, "100/60", vitals["bp"])
}

func TestLedger_RecordChanged_NonVitalLeavesVitalsAlone(t *testing.T) {
	l, _ := testLedger(t)

	// Wrong category: logged, not reduced.
	l.RecordChanged(Changed{Category: "equipment", Parameter: "hr", From: "off", To: "on"})
	// Right category, unknown parameter: logged, not reduced.
	l.RecordChanged(Changed{Category: "vital", Parameter: "gcs", From: "15", To: "13"})

	assert.Equal(t, 2, l.EventCount())
	assert.Empty(t, l.State().Vitals)
}

func TestLedger_RecordChanged_DerivesDirection(t *testing.T) {
	l, _ := testLedger(t)

	ev := l.RecordChanged(Changed{Category: "vital", Parameter: "hr", From: "80", To: "112", Direction: "decreased"})
	// Caller-supplied direction is ignored.
	assert.Equal(t, DirectionIncreased, ev.Changed.Direction)
}

func TestDeriveDirection(t *testing.T) {
	tests := []struct {
		from, to string
		want     string
	}{
		{"80", "112", DirectionIncreased},
		{"112", "80", DirectionDecreased},
		{"98.6", "98.6", DirectionUnchanged},
		{"98.6", "101.2", DirectionIncreased},
		{"abc", "5", ""},
		{"5", "abc", ""},
		{"128/84", "100/60", ""},
		{"", "112", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, deriveDirection(tt.from, tt.to), "deriveDirection(%q, %q)", tt.from, tt.to)
	}
}

func TestLedger_ElapsedMinutes_ReadTimeDerivation(t *testing.T) {
	l, clock := testLedger(t)

	assert.Equal(t, 0, l.State().ElapsedMinutes)

	clock.Advance(59 * time.Second)
	assert.Equal(t, 0, l.State().ElapsedMinutes, "floors to whole minutes")

	clock.Advance(time.Second)
	assert.Equal(t, 1, l.State().ElapsedMinutes)

	clock.Advance(41*time.Minute + 30*time.Second)
	assert.Equal(t, 42, l.State().ElapsedMinutes)
}

func TestElapsedMinutes_ClockSkew(t *testing.T) {
	// Now before start clamps to zero rather than going negative.
	assert.Equal(t, 0, elapsedMinutes(testEpoch, testEpoch.Add(-5*time.Minute)))
}

func TestLedger_SetInitialVitals(t *testing.T) {
	l, _ := testLedger(t)

	ev := l.SetInitialVitals(Vitals{"hr": "88", "bp": "128/84"})

	require.NotNil(t, ev.Changed)
	assert.Equal(t, VitalCategory, ev.Changed.Category)
	assert.Equal(t, "initial", ev.Changed.Parameter)
	assert.Equal(t, "N/A", ev.Changed.From)
	assert.Equal(t, "hr=88 bp=128/84", ev.Changed.To)
	assert.Equal(t, "session_start", ev.Changed.Trigger)

	vitals := l.State().Vitals
	assert.Equal(t, "88", vitals["hr"])
	assert.Equal(t, "128/84", vitals["bp"])
}

func TestLedger_SetInitialVitals_Empty(t *testing.T) {
	l, _ := testLedger(t)

	ev := l.SetInitialVitals(Vitals{})
	assert.Equal(t, "none", ev.Changed.To)
}

func TestLedger_UpdateVitals_DropsUnknownKeys(t *testing.T) {
	l, _ := testLedger(t)

	l.UpdateVitals(Vitals{"hr": "90", "gcs": "15"})

	vitals := l.State().Vitals
	assert.Equal(t, "90", vitals["hr"])
	assert.NotContains(t, vitals, "gcs")
	assert.Equal(t, 0, l.EventCount(), "UpdateVitals records no event")
}

func TestLedger_LoadEvents_Replaces(t *testing.T) {
	l, _ := testLedger(t)
	l.RecordObtained(Obtained{Category: "hpi", Content: "old"})

	loaded := []Event{
		{ID: "x-1", Verb: VerbExamined, Time: 2, Examined: &Examined{Region: "lungs", Technique: "auscultation"}},
		{ID: "x-2", Verb: VerbNoted, Time: 4, Noted: &Noted{Source: "monitor", Item: "alarm"}},
	}
	l.LoadEvents(loaded)

	events := l.Events()
	require.Len(t, events, 2)
	assert.Equal(t, "x-1", events[0].ID)
	assert.Equal(t, "x-2", events[1].ID)
	assert.Empty(t, l.PendingSync(), "load clears the pending buffer")
}

func TestLedger_NewFromRecord(t *testing.T) {
	orig, clock := testLedger(t)
	orig.SetInitialVitals(Vitals{"hr": "88"})
	clock.Advance(5 * time.Minute)
	orig.RecordChanged(Changed{Category: "vital", Parameter: "hr", From: "88", To: "112"})
	rec := orig.Snapshot()

	restored := NewFromRecord(rec, WithClock(clock), WithIDSource(NewSequenceIDs("new")))

	assert.Equal(t, rec.RecordID, restored.RecordID())
	assert.Equal(t, rec.SessionID, restored.SessionID())
	assert.Equal(t, rec.Events, restored.Events())
	assert.Equal(t, "112", restored.State().Vitals["hr"])
	assert.Equal(t, 5, restored.State().ElapsedMinutes, "elapsed derives from the original start time")
}

func TestLedger_PendingSync_ClearExact(t *testing.T) {
	l, _ := testLedger(t)

	ev1 := l.RecordObtained(Obtained{Category: "hpi", Content: "a"})
	ev2 := l.RecordObtained(Obtained{Category: "hpi", Content: "b"})
	require.Len(t, l.PendingSync(), 2)

	// Event appended while the sync was in flight.
	ev3 := l.RecordObtained(Obtained{Category: "hpi", Content: "c"})

	l.ClearPendingSync([]string{ev1.ID, ev2.ID})

	pending := l.PendingSync()
	require.Len(t, pending, 1)
	assert.Equal(t, ev3.ID, pending[0].ID)
}

func TestLedger_ClearPendingSync_Empty(t *testing.T) {
	l, _ := testLedger(t)
	l.RecordObtained(Obtained{Category: "hpi", Content: "a"})

	l.ClearPendingSync(nil)
	assert.Len(t, l.PendingSync(), 1)
}

func TestLedger_PendingSnapshot_TailOfRecord(t *testing.T) {
	l, _ := testLedger(t)

	ev1 := l.RecordObtained(Obtained{Category: "hpi", Content: "a"})
	ev2 := l.RecordObtained(Obtained{Category: "hpi", Content: "b"})
	l.ClearPendingSync([]string{ev1.ID})
	ev3 := l.RecordObtained(Obtained{Category: "hpi", Content: "c"})

	rec, pending := l.PendingSnapshot()
	require.Len(t, rec.Events, 3)
	require.Len(t, pending, 2)
	assert.Equal(t, ev2.ID, pending[0].ID)
	assert.Equal(t, ev3.ID, pending[1].ID)
	assert.Equal(t, rec.Events[len(rec.Events)-len(pending):], pending,
		"pending is exactly the unacknowledged tail of the record")
}

func TestLedger_PendingSnapshot_ConsistentUnderConcurrentAppends(t *testing.T) {
	l := New("sess-r", "case-r", Patient{Name: "X"}, WithClock(NewManualClock(testEpoch)))

	const appends = 500
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < appends; i++ {
			l.RecordNoted(Noted{Source: "monitor", Item: "beep"})
		}
	}()

	// Each capture must be internally consistent even while appends race:
	// pending equals the tail of the record, always.
	for {
		rec, pending := l.PendingSnapshot()
		require.LessOrEqual(t, len(pending), len(rec.Events))
		tail := rec.Events[len(rec.Events)-len(pending):]
		for i := range pending {
			require.Equal(t, tail[i].ID, pending[i].ID)
		}
		select {
		case <-done:
			return
		default:
		}
	}
}

func TestLedger_Snapshot_DeepCopy(t *testing.T) {
	l, _ := testLedger(t)
	l.SetInitialVitals(Vitals{"hr": "88"})

	snap := l.Snapshot()
	snap.State.Vitals["hr"] = "999"
	snap.Events = append(snap.Events, Event{ID: "extra", Verb: VerbNoted, Noted: &Noted{}})

	assert.Equal(t, "88", l.State().Vitals["hr"], "mutating the snapshot must not reach the ledger")
	assert.Equal(t, 1, l.EventCount())
}

func TestLedger_Events_Filtered(t *testing.T) {
	l, _ := testLedger(t)
	l.RecordObtained(Obtained{Category: "hpi", Content: "a"})
	l.RecordExamined(Examined{Region: "chest", Technique: "palpation"})
	l.RecordObtained(Obtained{Category: "meds", Content: "b"})

	got := l.Events(VerbObtained)
	require.Len(t, got, 2)
	assert.Equal(t, VerbObtained, got[0].Verb)
	assert.Equal(t, VerbObtained, got[1].Verb)

	assert.Len(t, l.Events(VerbAdministered), 0)
	assert.Len(t, l.Events(), 3)
}

func TestLedger_ConcurrentAppend(t *testing.T) {
	l := New("sess-c", "case-c", Patient{Name: "X"}, WithClock(NewManualClock(testEpoch)))

	const goroutines = 50
	const perGoroutine = 20

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				l.RecordNoted(Noted{Source: "monitor", Item: "beep"})
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines*perGoroutine, l.EventCount())

	// Every event fully formed, ids unique.
	seen := make(map[string]bool)
	for _, ev := range l.Events() {
		require.NotNil(t, ev.Noted)
		assert.False(t, seen[ev.ID], "id %s generated twice", ev.ID)
		seen[ev.ID] = true
	}
}
