package harness

import (
	"fmt"
	"time"

	"github.com/chartlog/chartlog/internal/ledger"
)

// scriptEpoch is the fixed encounter start time for every script run.
// Elapsed minutes derive from it, so script output never depends on wall
// time.
var scriptEpoch = time.Date(2024, 1, 15, 8, 0, 0, 0, time.UTC)

// Result holds the ledger and clock after a script run.
type Result struct {
	Ledger *ledger.Ledger
	Clock  *ledger.ManualClock
}

// Run executes a script against a fresh ledger with a manual clock and
// sequential event ids. The same script always produces the same record.
func Run(script *Script) (*Result, error) {
	clock := ledger.NewManualClock(scriptEpoch)
	led := ledger.New(script.SessionID, "case-"+script.Name,
		ledger.Patient{
			Name:           script.Patient.Name,
			Age:            script.Patient.Age,
			Gender:         script.Patient.Gender,
			ID:             script.Patient.ID,
			ChiefComplaint: script.Patient.ChiefComplaint,
		},
		ledger.WithClock(clock),
		ledger.WithIDSource(ledger.NewSequenceIDs("evt")),
		ledger.WithRecordID("rec-"+script.Name),
	)

	if len(script.InitialVitals) > 0 {
		led.SetInitialVitals(ledger.Vitals(script.InitialVitals))
	}

	lastAt := 0
	for i, step := range script.Steps {
		if step.At < lastAt {
			return nil, fmt.Errorf("script %s: step %d goes back in time (at %d < %d)",
				script.Name, i, step.At, lastAt)
		}
		lastAt = step.At
		clock.Set(scriptEpoch.Add(time.Duration(step.At) * time.Minute))

		if err := applyStep(led, step); err != nil {
			return nil, fmt.Errorf("script %s: step %d: %w", script.Name, i, err)
		}
	}

	return &Result{Ledger: led, Clock: clock}, nil
}

// applyStep dispatches one step to the matching recording method.
func applyStep(led *ledger.Ledger, step Step) error {
	verb, err := ledger.ParseVerb(step.Verb)
	if err != nil {
		return err
	}
	args := step.Args

	switch verb {
	case ledger.VerbObtained:
		led.RecordObtained(ledger.Obtained{
			Category: argString(args, "category"),
			Content:  argString(args, "content"),
			Source:   argString(args, "source"),
		})
	case ledger.VerbExamined:
		led.RecordExamined(ledger.Examined{
			Region:    argString(args, "region"),
			Technique: argString(args, "technique"),
			Detail:    argString(args, "detail"),
		})
	case ledger.VerbElicited:
		led.RecordElicited(ledger.Elicited{
			Source:         argString(args, "source"),
			Finding:        argString(args, "finding"),
			Abnormal:       argBool(args, "abnormal"),
			Category:       argString(args, "category"),
			TestName:       argString(args, "test_name"),
			Value:          argString(args, "value"),
			Unit:           argString(args, "unit"),
			ReferenceRange: argString(args, "reference_range"),
			Significance:   argString(args, "significance"),
		})
	case ledger.VerbNoted:
		led.RecordNoted(ledger.Noted{
			Source:  argString(args, "source"),
			Item:    argString(args, "item"),
			Trigger: argString(args, "trigger"),
			Action:  argString(args, "action"),
		})
	case ledger.VerbOrdered:
		led.RecordOrdered(ledger.Ordered{
			Category: argString(args, "category"),
			Item:     argString(args, "item"),
			Details:  argStringMap(args, "details"),
			Status:   argString(args, "status"),
		})
	case ledger.VerbAdministered:
		led.RecordAdministered(ledger.Administered{
			Category: argString(args, "category"),
			Item:     argString(args, "item"),
			Dose:     argString(args, "dose"),
			Route:    argString(args, "route"),
			Response: argString(args, "response"),
		})
	case ledger.VerbChanged:
		led.RecordChanged(ledger.Changed{
			Category:  argString(args, "category"),
			Parameter: argString(args, "parameter"),
			From:      argString(args, "from"),
			To:        argString(args, "to"),
			Trigger:   argString(args, "trigger"),
			Unit:      argString(args, "unit"),
		})
	case ledger.VerbExpressed:
		led.RecordExpressed(ledger.Expressed{
			Type:      argString(args, "type"),
			Content:   argString(args, "content"),
			Context:   argString(args, "context"),
			Addressed: argBool(args, "addressed"),
		})
	}
	return nil
}
