package narrative

import (
	"fmt"

	"github.com/chartlog/chartlog/internal/ledger"
)

// Style selects a projection.
type Style string

const (
	StyleTimeline Style = "timeline"
	StyleSummary  Style = "summary"
	StyleContext  Style = "context"
)

// ValidStyles lists the allowed styles.
var ValidStyles = []Style{StyleTimeline, StyleSummary, StyleContext}

// ParseStyle validates a style string.
func ParseStyle(s string) (Style, error) {
	st := Style(s)
	for _, v := range ValidStyles {
		if st == v {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid style %q: must be one of %v", s, ValidStyles)
}

// VerbSet is an allow-list of verbs.
type VerbSet map[ledger.Verb]bool

// NewVerbSet builds a set from the given verbs.
func NewVerbSet(verbs ...ledger.Verb) VerbSet {
	s := make(VerbSet, len(verbs))
	for _, v := range verbs {
		s[v] = true
	}
	return s
}

// Options controls a projection. A nil Allow means all verbs; a non-nil
// Allow restricts every style to events whose verb is in the set. The
// filter is an explicit parameter by design: there is no ambient
// permission state and no unfiltered fallback.
type Options struct {
	Allow VerbSet
}

// allows reports whether the verb passes the filter.
func (o Options) allows(v ledger.Verb) bool {
	return o.Allow == nil || o.Allow[v]
}

// filter returns the events whose verb passes the filter, in order.
func (o Options) filter(events []ledger.Event) []ledger.Event {
	if o.Allow == nil {
		return events
	}
	var out []ledger.Event
	for _, ev := range events {
		if o.Allow[ev.Verb] {
			out = append(out, ev)
		}
	}
	return out
}

// Input is the snapshot a projection renders from.
type Input struct {
	Patient        ledger.Patient
	Vitals         ledger.Vitals
	ElapsedMinutes int
	Events         []ledger.Event
}

// FromRecord builds an Input from a record snapshot.
func FromRecord(rec *ledger.Record) Input {
	return Input{
		Patient:        rec.Patient,
		Vitals:         rec.State.Vitals,
		ElapsedMinutes: rec.State.ElapsedMinutes,
		Events:         rec.Events,
	}
}

// Render dispatches to the projection named by style.
func Render(style Style, in Input, opt Options) (string, error) {
	switch style {
	case StyleTimeline:
		return Timeline(in.Events, opt), nil
	case StyleSummary:
		return Summary(in, opt), nil
	case StyleContext:
		return Context(in, opt), nil
	default:
		return "", fmt.Errorf("invalid style %q: must be one of %v", style, ValidStyles)
	}
}
