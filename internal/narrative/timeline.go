package narrative

import (
	"fmt"
	"strings"

	"github.com/chartlog/chartlog/internal/ledger"
)

// EmptyTimeline is returned for a log with no (visible) events.
const EmptyTimeline = "No events recorded yet."

// Timeline renders one line per event, in log order:
//
//	{time} min - {verb-specific one-liner}
func Timeline(events []ledger.Event, opt Options) string {
	visible := opt.filter(events)
	if len(visible) == 0 {
		return EmptyTimeline
	}
	var b strings.Builder
	for i, ev := range visible {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d min - %s", ev.Time, eventLine(ev))
	}
	return b.String()
}

// eventLine renders the verb-specific one-liner for a single event.
func eventLine(ev ledger.Event) string {
	switch ev.Verb {
	case ledger.VerbObtained:
		p := ev.Obtained
		text := p.Content
		if text == "" {
			text = p.Source
		}
		return fmt.Sprintf("Asked about %s. %s", p.Category, truncate(text, 100))
	case ledger.VerbExamined:
		p := ev.Examined
		line := fmt.Sprintf("Examined %s (%s).", p.Region, p.Technique)
		if p.Detail != "" {
			line += " " + p.Detail
		}
		return line
	case ledger.VerbElicited:
		p := ev.Elicited
		if p.Abnormal {
			return "ABNORMAL: " + p.Finding
		}
		return p.Finding
	case ledger.VerbNoted:
		p := ev.Noted
		action := p.Action
		if action == "" {
			action = "acknowledged"
		}
		return fmt.Sprintf("Noted %s - %s", p.Item, action)
	case ledger.VerbOrdered:
		p := ev.Ordered
		line := "Ordered " + p.Item
		if urgency := p.Details["urgency"]; urgency != "" {
			line += " (" + urgency + ")"
		}
		return line
	case ledger.VerbAdministered:
		p := ev.Administered
		line := "Administered " + p.Item
		if p.Dose != "" {
			line += " " + p.Dose
		}
		if p.Route != "" {
			line += " " + p.Route
		}
		return line
	case ledger.VerbChanged:
		p := ev.Changed
		line := fmt.Sprintf("%s changed: %s → %s", p.Parameter, p.From, p.To)
		if p.Unit != "" {
			line += " " + p.Unit
		}
		return line
	case ledger.VerbExpressed:
		p := ev.Expressed
		return fmt.Sprintf("Patient %s: \"%s\"", p.Type, truncate(p.Content, 80))
	default:
		return string(ev.Verb)
	}
}

// truncate enforces a hard length cap: strings longer than n characters
// are cut at n-3 with an ellipsis appended, so the result never exceeds n.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
