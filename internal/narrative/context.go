package narrative

import (
	"fmt"
	"strings"

	"github.com/chartlog/chartlog/internal/ledger"
)

// Context renders the compact, prompt-oriented projection: one short
// paragraph of optional clauses, each omitted when its source events are
// absent. No clause ever produces an empty bullet or dangling punctuation.
//
// Clause order: patient sentence, up to 5 history items, exam findings
// (abnormal preferred), labs (abnormal, then normal test names), pending
// orders, administered items with dose, last 3 changes, vitals, and a
// trailing encounter-time sentence.
func Context(in Input, opt Options) string {
	events := opt.filter(in.Events)

	var clauses []string
	add := func(c string) {
		if c != "" {
			clauses = append(clauses, c)
		}
	}

	add(patientSentence(in.Patient))
	add(historyClause(events))
	add(examClause(events))
	for _, c := range labClauses(events) {
		add(c)
	}
	add(orderedClause(events))
	add(givenClause(events))
	add(changesClause(events))
	if opt.allows(ledger.VerbChanged) {
		if line := vitalsLine(in.Vitals); line != "" {
			add("Vitals: " + line + ".")
		}
	}
	add(fmt.Sprintf("Encounter time: %d minutes.", in.ElapsedMinutes))

	return strings.Join(clauses, " ")
}

func patientSentence(p ledger.Patient) string {
	if p.Name == "" {
		return ""
	}
	s := p.Name
	if short := ageGenderShorthand(p); short != "" {
		s += " (" + short + ")"
	}
	if p.ChiefComplaint != "" {
		s += " presenting with " + p.ChiefComplaint
	}
	return s + "."
}

func historyClause(events []ledger.Event) string {
	var items []string
	for _, ev := range events {
		if ev.Verb == ledger.VerbObtained {
			items = append(items, ev.Obtained.Content)
			if len(items) == 5 {
				break
			}
		}
	}
	if len(items) == 0 {
		return ""
	}
	return "History: " + strings.Join(items, "; ") + "."
}

// examClause prefers abnormal findings: when any exist, only those are
// shown; otherwise up to 3 normal findings.
func examClause(events []ledger.Event) string {
	var abnormal, normal []string
	for _, ev := range events {
		if ev.Verb != ledger.VerbElicited || ev.Elicited.Source != "exam" {
			continue
		}
		if ev.Elicited.Abnormal {
			abnormal = append(abnormal, ev.Elicited.Finding)
		} else {
			normal = append(normal, ev.Elicited.Finding)
		}
	}
	if len(abnormal) > 0 {
		return "Abnormal findings: " + strings.Join(abnormal, "; ") + "."
	}
	if len(normal) > 0 {
		if len(normal) > 3 {
			normal = normal[:3]
		}
		return "Exam findings: " + strings.Join(normal, "; ") + "."
	}
	return ""
}

// labClauses returns the abnormal-lab clause (findings) and the normal-lab
// clause (test names), each present only when it has members.
func labClauses(events []ledger.Event) []string {
	var abnormal, normal []string
	for _, ev := range events {
		if ev.Verb != ledger.VerbElicited || ev.Elicited.Source != "lab" {
			continue
		}
		if ev.Elicited.Abnormal {
			abnormal = append(abnormal, ev.Elicited.Finding)
		} else {
			name := ev.Elicited.TestName
			if name == "" {
				name = ev.Elicited.Finding
			}
			normal = append(normal, name)
		}
	}
	var out []string
	if len(abnormal) > 0 {
		out = append(out, "Abnormal labs: "+strings.Join(abnormal, "; ")+".")
	}
	if len(normal) > 0 {
		out = append(out, "Normal labs: "+strings.Join(normal, ", ")+".")
	}
	return out
}

func orderedClause(events []ledger.Event) string {
	var items []string
	for _, ev := range events {
		if ev.Verb == ledger.VerbOrdered && ev.Ordered.Status == "pending" {
			items = append(items, ev.Ordered.Item)
		}
	}
	if len(items) == 0 {
		return ""
	}
	return "Ordered: " + strings.Join(items, ", ") + "."
}

func givenClause(events []ledger.Event) string {
	var items []string
	for _, ev := range events {
		if ev.Verb == ledger.VerbAdministered {
			item := ev.Administered.Item
			if ev.Administered.Dose != "" {
				item += " " + ev.Administered.Dose
			}
			items = append(items, item)
		}
	}
	if len(items) == 0 {
		return ""
	}
	return "Given: " + strings.Join(items, ", ") + "."
}

// changesClause summarizes only the last 3 CHANGED events.
func changesClause(events []ledger.Event) string {
	var changes []string
	for _, ev := range events {
		if ev.Verb == ledger.VerbChanged {
			p := ev.Changed
			changes = append(changes, fmt.Sprintf("%s %s→%s", p.Parameter, p.From, p.To))
		}
	}
	if len(changes) == 0 {
		return ""
	}
	if len(changes) > 3 {
		changes = changes[len(changes)-3:]
	}
	return "Changes: " + strings.Join(changes, "; ") + "."
}
