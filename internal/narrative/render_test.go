package narrative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartlog/chartlog/internal/ledger"
)

func TestSummary_VitalChangeShowsOnlyInVitals(t *testing.T) {
	in := Input{
		Patient: ledger.Patient{Name: "Maria Gomez", Age: 58, Gender: "female", ChiefComplaint: "chest pain"},
		Vitals:  ledger.Vitals{"hr": "112"},
		Events: []ledger.Event{
			{Verb: ledger.VerbObtained, Time: 0, Obtained: &ledger.Obtained{Category: "hpi", Content: "Chest pain 9/10, crushing"}},
			{Verb: ledger.VerbElicited, Time: 1, Elicited: &ledger.Elicited{Source: "exam", Finding: "Diaphoresis noted", Abnormal: true, Category: "general"}},
			{Verb: ledger.VerbChanged, Time: 2, Changed: &ledger.Changed{Category: "vital", Parameter: "hr", From: "80", To: "112", Trigger: "treatment_response", Direction: ledger.DirectionIncreased}},
		},
	}

	got := Summary(in, Options{})
	assert.Contains(t, got, "History:")
	assert.Contains(t, got, "Examination:")
	assert.Contains(t, got, "Current vitals: hr 112")
	assert.NotContains(t, got, "Labs/Studies:")
	assert.NotContains(t, got, "Interventions:")

	lines := strings.Split(Timeline(in.Events, Options{}), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "0 min - Asked about hpi. Chest pain 9/10, crushing", lines[0])
	assert.Equal(t, "1 min - ABNORMAL: Diaphoresis noted", lines[1])
	assert.Equal(t, "2 min - hr changed: 80 → 112", lines[2])
}

func TestSummary_NonVitalChangeInInterventions(t *testing.T) {
	in := Input{
		Patient: ledger.Patient{Name: "X", Age: 30, Gender: "male"},
		Events: []ledger.Event{
			{Verb: ledger.VerbChanged, Time: 3, Changed: &ledger.Changed{Category: "equipment", Parameter: "O2 flow", From: "2", To: "4", Unit: "L/min"}},
		},
	}

	got := Summary(in, Options{})
	assert.Contains(t, got, "Interventions:\n- O2 flow: 2 → 4 L/min")
}

func TestAllStyles_FilterHidesOrdersAndMeds(t *testing.T) {
	in := Input{
		Patient: ledger.Patient{Name: "Maria Gomez", Age: 58, Gender: "female", ChiefComplaint: "chest pain"},
		Events: []ledger.Event{
			{Verb: ledger.VerbObtained, Time: 0, Obtained: &ledger.Obtained{Category: "hpi", Content: "pain for 2 hours"}},
			{Verb: ledger.VerbExamined, Time: 2, Examined: &ledger.Examined{Region: "chest", Technique: "auscultation"}},
			{Verb: ledger.VerbOrdered, Time: 3, Ordered: &ledger.Ordered{Category: "lab", Item: "Troponin", Status: "pending"}},
			{Verb: ledger.VerbAdministered, Time: 4, Administered: &ledger.Administered{Category: "medication", Item: "Aspirin", Dose: "325 mg", Route: "PO"}},
		},
		ElapsedMinutes: 10,
	}
	opt := Options{Allow: NewVerbSet(ledger.VerbObtained, ledger.VerbExamined)}

	for _, style := range ValidStyles {
		text, err := Render(style, in, opt)
		require.NoError(t, err)
		for _, leaked := range []string{"Troponin", "Aspirin", "Ordered", "Administered", "Gave", "Given"} {
			assert.NotContains(t, text, leaked, "style %s leaks excluded-verb content", style)
		}
	}
}
