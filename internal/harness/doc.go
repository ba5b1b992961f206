// Package harness executes scripted encounters against a real ledger and
// compares the rendered narrative projections to golden files.
//
// Scripts are YAML files describing a patient, optional initial vitals,
// and a sequence of timed recording steps. The harness runs them with a
// manual clock and sequential event ids, so every run of the same script
// produces byte-identical projections - which is exactly what the golden
// comparison asserts.
package harness
