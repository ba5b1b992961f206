package narrative

import (
	"fmt"
	"strings"

	"github.com/chartlog/chartlog/internal/ledger"
)

// Summary renders a SOAP-like structured clinical summary. Sections appear
// in a fixed order and only when they have content: patient header,
// History, Examination, Labs/Studies, Interventions, Alerts/Notes,
// Current Vitals.
func Summary(in Input, opt Options) string {
	events := opt.filter(in.Events)

	var sections []string

	if header := patientHeader(in.Patient); header != "" {
		sections = append(sections, header)
	}
	if s := historySection(events); s != "" {
		sections = append(sections, s)
	}
	if s := examSection(events); s != "" {
		sections = append(sections, s)
	}
	if s := labsSection(events); s != "" {
		sections = append(sections, s)
	}
	if s := interventionsSection(events); s != "" {
		sections = append(sections, s)
	}
	if s := notesSection(events); s != "" {
		sections = append(sections, s)
	}
	// Current vitals are produced by CHANGED events; the line is suppressed
	// entirely when CHANGED is outside the allow-list.
	if opt.allows(ledger.VerbChanged) {
		if line := vitalsLine(in.Vitals); line != "" {
			sections = append(sections, "Current vitals: "+line)
		}
	}

	return strings.Join(sections, "\n\n")
}

// patientHeader renders "Patient: Name (58F)" plus the chief complaint.
func patientHeader(p ledger.Patient) string {
	if p.Name == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString("Patient: " + p.Name)
	if short := ageGenderShorthand(p); short != "" {
		b.WriteString(" (" + short + ")")
	}
	if p.ChiefComplaint != "" {
		b.WriteString("\nChief complaint: " + p.ChiefComplaint)
	}
	return b.String()
}

// ageGenderShorthand renders "58F" style shorthand from age and gender.
func ageGenderShorthand(p ledger.Patient) string {
	g := ""
	if p.Gender != "" {
		g = strings.ToUpper(p.Gender[:1])
	}
	if p.Age > 0 {
		return fmt.Sprintf("%d%s", p.Age, g)
	}
	return g
}

func historySection(events []ledger.Event) string {
	var lines []string
	for _, ev := range events {
		if ev.Verb == ledger.VerbObtained {
			lines = append(lines, fmt.Sprintf("- %s: %s", ev.Obtained.Category, ev.Obtained.Content))
		}
	}
	return section("History:", lines)
}

func examSection(events []ledger.Event) string {
	var lines []string
	for _, ev := range events {
		switch ev.Verb {
		case ledger.VerbExamined:
			lines = append(lines, fmt.Sprintf("- %s (%s)", ev.Examined.Region, ev.Examined.Technique))
		case ledger.VerbElicited:
			if ev.Elicited.Source == "exam" {
				lines = append(lines, findingLine(ev.Elicited))
			}
		}
	}
	return section("Examination:", lines)
}

func labsSection(events []ledger.Event) string {
	var ordered []string
	var lines []string
	for _, ev := range events {
		switch ev.Verb {
		case ledger.VerbOrdered:
			ordered = append(ordered, ev.Ordered.Item)
		case ledger.VerbElicited:
			if ev.Elicited.Source == "lab" {
				lines = append(lines, findingLine(ev.Elicited))
			}
		}
	}
	if len(ordered) > 0 {
		lines = append([]string{"- Ordered: " + strings.Join(ordered, ", ")}, lines...)
	}
	return section("Labs/Studies:", lines)
}

func interventionsSection(events []ledger.Event) string {
	var lines []string
	for _, ev := range events {
		switch ev.Verb {
		case ledger.VerbAdministered:
			p := ev.Administered
			lines = append(lines, strings.TrimRight(fmt.Sprintf("- Gave %s %s %s", p.Item, p.Dose, p.Route), " "))
		case ledger.VerbChanged:
			// Vital changes surface through the current-vitals line; only
			// non-vital changes read as interventions.
			p := ev.Changed
			if p.Category == ledger.VitalCategory {
				continue
			}
			line := fmt.Sprintf("- %s: %s → %s", p.Parameter, p.From, p.To)
			if p.Unit != "" {
				line += " " + p.Unit
			}
			lines = append(lines, line)
		}
	}
	return section("Interventions:", lines)
}

func notesSection(events []ledger.Event) string {
	var lines []string
	for _, ev := range events {
		if ev.Verb == ledger.VerbNoted {
			action := ev.Noted.Action
			if action == "" {
				action = "noted"
			}
			lines = append(lines, fmt.Sprintf("- %s: %s", ev.Noted.Item, action))
		}
	}
	return section("Alerts/Notes:", lines)
}

// findingLine renders an elicited finding, abnormal ones tagged.
func findingLine(p *ledger.Elicited) string {
	if p.Abnormal {
		return "- [ABNORMAL] " + p.Finding
	}
	return "- " + p.Finding
}

// section joins a header with its bulleted lines, or returns "" when empty.
func section(header string, lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return header + "\n" + strings.Join(lines, "\n")
}

// vitalsLine renders present vitals in fixed key order: "hr 112, bp 100/60".
func vitalsLine(v ledger.Vitals) string {
	var parts []string
	for _, k := range ledger.VitalKeys {
		if val, ok := v[k]; ok {
			parts = append(parts, k+" "+val)
		}
	}
	return strings.Join(parts, ", ")
}
