package narrative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chartlog/chartlog/internal/ledger"
)

func summaryInput() Input {
	return Input{
		Patient: ledger.Patient{Name: "Maria Gomez", Age: 58, Gender: "female", ID: "pt-001", ChiefComplaint: "chest pain"},
		Vitals:  ledger.Vitals{"hr": "112", "bp": "100/60"},
		Events: []ledger.Event{
			{Verb: ledger.VerbObtained, Time: 0, Obtained: &ledger.Obtained{Category: "hpi", Content: "Pressure-like pain for 2 hours", Source: "patient"}},
			{Verb: ledger.VerbExamined, Time: 3, Examined: &ledger.Examined{Region: "chest", Technique: "auscultation"}},
			{Verb: ledger.VerbElicited, Time: 4, Elicited: &ledger.Elicited{Source: "exam", Finding: "Crackles at both bases", Abnormal: true}},
			{Verb: ledger.VerbOrdered, Time: 5, Ordered: &ledger.Ordered{Category: "lab", Item: "Troponin", Status: "pending"}},
			{Verb: ledger.VerbElicited, Time: 20, Elicited: &ledger.Elicited{Source: "lab", Finding: "Troponin 0.8 ng/mL (elevated)", Abnormal: true, TestName: "Troponin"}},
			{Verb: ledger.VerbAdministered, Time: 8, Administered: &ledger.Administered{Category: "medication", Item: "Aspirin", Dose: "325 mg", Route: "PO"}},
			{Verb: ledger.VerbChanged, Time: 12, Changed: &ledger.Changed{Category: "vital", Parameter: "hr", From: "80", To: "112", Unit: "bpm"}},
			{Verb: ledger.VerbNoted, Time: 13, Noted: &ledger.Noted{Source: "monitor", Item: "tachycardia alarm", Action: "assessed"}},
		},
		ElapsedMinutes: 25,
	}
}

func TestSummary_FullSectionOrder(t *testing.T) {
	got := Summary(summaryInput(), Options{})

	want := strings.Join([]string{
		"Patient: Maria Gomez (58F)\nChief complaint: chest pain",
		"History:\n- hpi: Pressure-like pain for 2 hours",
		"Examination:\n- chest (auscultation)\n- [ABNORMAL] Crackles at both bases",
		"Labs/Studies:\n- Ordered: Troponin\n- [ABNORMAL] Troponin 0.8 ng/mL (elevated)",
		"Interventions:\n- Gave Aspirin 325 mg PO",
		"Alerts/Notes:\n- tachycardia alarm: assessed",
		"Current vitals: hr 112, bp 100/60",
	}, "\n\n")

	assert.Equal(t, want, got)
}

func TestSummary_EmptySectionsOmitted(t *testing.T) {
	in := Input{
		Patient: ledger.Patient{Name: "John Doe", Age: 40, Gender: "male", ChiefComplaint: "headache"},
		Events: []ledger.Event{
			{Verb: ledger.VerbObtained, Time: 0, Obtained: &ledger.Obtained{Category: "hpi", Content: "Throbbing for a day"}},
		},
	}

	got := Summary(in, Options{})
	assert.Equal(t, "Patient: John Doe (40M)\nChief complaint: headache\n\nHistory:\n- hpi: Throbbing for a day", got)
	assert.NotContains(t, got, "Examination:")
	assert.NotContains(t, got, "Current vitals:")
}

func TestSummary_FilterSuppressesVitalsLine(t *testing.T) {
	in := summaryInput()
	allow := NewVerbSet(ledger.VerbObtained, ledger.VerbExamined, ledger.VerbElicited,
		ledger.VerbNoted, ledger.VerbOrdered, ledger.VerbAdministered, ledger.VerbExpressed)

	got := Summary(in, Options{Allow: allow})
	// Vitals derive from CHANGED events; hiding CHANGED suppresses the
	// current-vitals line entirely.
	assert.NotContains(t, got, "Current vitals:")
	assert.NotContains(t, got, "112")
	assert.Contains(t, got, "Gave Aspirin")
}

func TestSummary_FilterContainment(t *testing.T) {
	in := summaryInput()
	got := Summary(in, Options{Allow: NewVerbSet(ledger.VerbObtained)})

	assert.Contains(t, got, "History:")
	for _, hidden := range []string{"Examination:", "Labs/Studies:", "Interventions:", "Alerts/Notes:", "Current vitals:"} {
		assert.NotContains(t, got, hidden)
	}
}

func TestSummary_ExamFindingsOnlyFromExamSource(t *testing.T) {
	in := Input{
		Patient: ledger.Patient{Name: "X", Age: 30, Gender: "male"},
		Events: []ledger.Event{
			{Verb: ledger.VerbElicited, Time: 1, Elicited: &ledger.Elicited{Source: "lab", Finding: "WBC normal", Abnormal: false, TestName: "CBC"}},
		},
	}

	got := Summary(in, Options{})
	assert.NotContains(t, got, "Examination:")
	assert.Contains(t, got, "Labs/Studies:\n- WBC normal")
}

func TestAgeGenderShorthand(t *testing.T) {
	assert.Equal(t, "58F", ageGenderShorthand(ledger.Patient{Age: 58, Gender: "female"}))
	assert.Equal(t, "40M", ageGenderShorthand(ledger.Patient{Age: 40, Gender: "male"}))
	assert.Equal(t, "12", ageGenderShorthand(ledger.Patient{Age: 12}))
	assert.Equal(t, "F", ageGenderShorthand(ledger.Patient{Gender: "female"}))
	assert.Equal(t, "", ageGenderShorthand(ledger.Patient{}))
}

func TestVitalsLine_FixedOrder(t *testing.T) {
	v := ledger.Vitals{"temp": "101.2", "hr": "112", "bp": "100/60"}
	assert.Equal(t, "hr 112, bp 100/60, temp 101.2", vitalsLine(v))
	assert.Equal(t, "", vitalsLine(ledger.Vitals{}))
}
