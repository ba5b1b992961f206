package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Script defines a scripted encounter.
type Script struct {
	// Name uniquely identifies the script; golden files derive from it.
	Name string `yaml:"name"`

	// Description explains what this script exercises.
	Description string `yaml:"description,omitempty"`

	// SessionID is the fixed session id for deterministic output.
	// Defaults to "script-" + Name.
	SessionID string `yaml:"session_id,omitempty"`

	// Patient is the demographic snapshot for the encounter.
	Patient PatientSpec `yaml:"patient"`

	// InitialVitals, when present, are applied through the baseline-marker
	// path before any step runs.
	InitialVitals map[string]string `yaml:"initial_vitals,omitempty"`

	// Steps are the recording calls, in order.
	Steps []Step `yaml:"steps"`

	// Expect are optional substring assertions on rendered projections.
	Expect []Expectation `yaml:"expect,omitempty"`
}

// PatientSpec mirrors the ledger's patient snapshot in YAML form.
type PatientSpec struct {
	Name           string `yaml:"name"`
	Age            int    `yaml:"age"`
	Gender         string `yaml:"gender"`
	ID             string `yaml:"id,omitempty"`
	ChiefComplaint string `yaml:"chief_complaint,omitempty"`
}

// Step is one recording call.
type Step struct {
	// At sets the elapsed minutes at which the step happens. Steps must be
	// non-decreasing in At.
	At int `yaml:"at"`

	// Verb names the recording operation (case-insensitive).
	Verb string `yaml:"verb"`

	// Args carries the verb's payload fields as a map. String fields are
	// strings, abnormal/addressed are booleans, ordered details is a
	// nested string map.
	Args map[string]any `yaml:"args"`
}

// Expectation asserts that a rendered projection contains a substring.
type Expectation struct {
	Style    string   `yaml:"style"`
	Contains []string `yaml:"contains"`
}

// LoadScript reads and parses a script YAML file. Unknown fields are
// rejected to catch typos.
func LoadScript(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var script Script
	if err := dec.Decode(&script); err != nil {
		return nil, fmt.Errorf("parse script %s: %w", path, err)
	}

	if script.Name == "" {
		return nil, fmt.Errorf("script %s: name is required", path)
	}
	if script.SessionID == "" {
		script.SessionID = "script-" + script.Name
	}
	return &script, nil
}

// argString extracts a string arg, empty when absent.
func argString(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

// argBool extracts a bool arg, false when absent.
func argBool(args map[string]any, key string) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return false
}

// argStringMap extracts a nested string map arg, nil when absent.
func argStringMap(args map[string]any, key string) map[string]string {
	raw, ok := args[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
