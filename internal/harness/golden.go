package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/chartlog/chartlog/internal/narrative"
)

// RunWithGolden executes a script and compares each narrative projection
// against a golden file in testdata/golden/{script.Name}_{style}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Golden files are the source of truth for projection output; a rendering
// change must show up as a reviewed golden diff.
func RunWithGolden(t *testing.T, script *Script) error {
	t.Helper()

	result, err := Run(script)
	if err != nil {
		return err
	}

	in := narrative.FromRecord(result.Ledger.Snapshot())
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	for _, style := range narrative.ValidStyles {
		text, err := narrative.Render(style, in, narrative.Options{})
		if err != nil {
			return err
		}
		g.Assert(t, script.Name+"_"+string(style), []byte(text))
	}

	return nil
}
