package session

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/chartlog/chartlog/internal/ledger"
)

//go:embed document.cue
var documentSchema string

var (
	schemaOnce sync.Once
	schemaVal  cue.Value
	schemaErr  error
)

// compiledSchema compiles the embedded document schema once.
func compiledSchema() (cue.Value, error) {
	schemaOnce.Do(func() {
		ctx := cuecontext.New()
		v := ctx.CompileString(documentSchema, cue.Filename("document.cue"))
		if err := v.Err(); err != nil {
			schemaErr = fmt.Errorf("compile document schema: %w", err)
			return
		}
		def := v.LookupPath(cue.ParsePath("#Document"))
		if !def.Exists() {
			schemaErr = fmt.Errorf("document schema: #Document definition not found")
			return
		}
		schemaVal = def
	})
	return schemaVal, schemaErr
}

// ValidateDocument structurally checks a persisted document before it is
// adopted on resume. Any violation means the document is unusable as a
// whole; the caller falls back to a fresh record rather than building a
// partially-populated ledger.
func ValidateDocument(rec *ledger.Record) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	data, err := rec.MarshalCanonical()
	if err != nil {
		return fmt.Errorf("serialize document for validation: %w", err)
	}
	if err := cuejson.Validate(data, schema); err != nil {
		return fmt.Errorf("document failed structural validation: %w", err)
	}
	return nil
}
