package ledger

import (
	"fmt"
	"strings"
)

// Verb classifies a recorded clinical action. The taxonomy is fixed:
// exactly eight verbs, one per kind of clinically meaningful action.
type Verb string

const (
	// VerbObtained records history or information elicited from an interview.
	VerbObtained Verb = "OBTAINED"
	// VerbExamined records that a physical-exam maneuver was performed.
	VerbExamined Verb = "EXAMINED"
	// VerbElicited records a concrete finding or result surfacing.
	VerbElicited Verb = "ELICITED"
	// VerbNoted records an observation acknowledged without being elicited.
	VerbNoted Verb = "NOTED"
	// VerbOrdered records a test, treatment, or consult request.
	VerbOrdered Verb = "ORDERED"
	// VerbAdministered records a treatment actually given.
	VerbAdministered Verb = "ADMINISTERED"
	// VerbChanged records a tracked value transitioning.
	VerbChanged Verb = "CHANGED"
	// VerbExpressed records the patient communicating something unprompted.
	VerbExpressed Verb = "EXPRESSED"
)

// KnownVerbs defines the allowed verb strings.
var KnownVerbs = map[Verb]bool{
	VerbObtained:     true,
	VerbExamined:     true,
	VerbElicited:     true,
	VerbNoted:        true,
	VerbOrdered:      true,
	VerbAdministered: true,
	VerbChanged:      true,
	VerbExpressed:    true,
}

// AllVerbs lists the taxonomy in its canonical order.
var AllVerbs = []Verb{
	VerbObtained,
	VerbExamined,
	VerbElicited,
	VerbNoted,
	VerbOrdered,
	VerbAdministered,
	VerbChanged,
	VerbExpressed,
}

// ParseVerb converts a string to a Verb, case-insensitively.
// Returns an error for anything outside the fixed taxonomy.
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToUpper(strings.TrimSpace(s)))
	if !KnownVerbs[v] {
		return "", fmt.Errorf("unknown verb %q", s)
	}
	return v, nil
}
