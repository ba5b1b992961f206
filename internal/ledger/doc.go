// Package ledger implements the append-only event log for a simulated
// clinical encounter.
//
// The ledger is the sole writer of the event list and the sole source of
// truth for the derived current state (last-known vitals, elapsed time).
// Producers record exactly one event per clinical action through one of
// eight verb-specific recording methods; readers take consistent copies.
//
// # Invariants
//
//   - Events are append-only. No event is mutated or removed after it is
//     recorded. The only bulk operation is LoadEvents, a wholesale replace
//     used during session resume from a trusted durable copy.
//   - An event's Time (minutes elapsed since the encounter started) is
//     computed once at append and never recalculated.
//   - Current vitals change only through a CHANGED event addressing a
//     recognized vital key, or through the explicit out-of-band
//     UpdateVitals call. No other verb touches vitals.
//   - Every recording call appends exactly one event.
//
// All ordering within the log is insertion order. Event IDs are UUIDv7
// (time-sortable) in production; tests inject deterministic sources.
package ledger
