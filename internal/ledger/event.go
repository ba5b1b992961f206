package ledger

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Event is one entry in the encounter log: a tagged union over the eight
// verbs. Exactly one payload pointer is non-nil, matching Verb.
//
// Time is the number of whole minutes elapsed since the encounter started,
// computed once when the event is appended and frozen thereafter.
type Event struct {
	ID   string
	Verb Verb
	Time int

	Obtained     *Obtained
	Examined     *Examined
	Elicited     *Elicited
	Noted        *Noted
	Ordered      *Ordered
	Administered *Administered
	Changed      *Changed
	Expressed    *Expressed
}

// Obtained is history or info elicited from an interview.
// Category and Content are required; Source defaults to "patient".
type Obtained struct {
	Category string
	Content  string
	Source   string
}

// Examined is a physical-exam maneuver that was performed (no finding yet).
// Region and Technique are required; Detail is optional.
type Examined struct {
	Region    string
	Technique string
	Detail    string
}

// Elicited is a concrete finding or result that surfaced (exam, lab,
// imaging, procedure). Source, Finding, and Abnormal are required.
type Elicited struct {
	Source         string
	Finding        string
	Abnormal       bool
	Category       string
	TestName       string
	Value          string
	Unit           string
	ReferenceRange string
	Significance   string
}

// Noted is something observed or acknowledged without being elicited.
// Source and Item are required.
type Noted struct {
	Source  string
	Item    string
	Trigger string
	Action  string
}

// Ordered is a test, treatment, or consult request.
// Category and Item are required; Status defaults to "pending".
type Ordered struct {
	Category string
	Item     string
	Details  map[string]string
	Status   string
}

// Administered is a treatment that was actually given.
// Category, Item, Dose, and Route are required.
type Administered struct {
	Category string
	Item     string
	Dose     string
	Route    string
	Response string
}

// Changed is a tracked value transitioning. Category, Parameter, From,
// and To are required. Direction is derived at append time by comparing
// From and To as numbers: "increased", "decreased", "unchanged", or empty
// when either side does not parse.
type Changed struct {
	Category  string
	Parameter string
	From      string
	To        string
	Trigger   string
	Unit      string
	Direction string
}

// Expressed is the patient communicating something unprompted.
// Type and Content are required; Addressed defaults to false.
type Expressed struct {
	Type      string
	Content   string
	Context   string
	Addressed bool
}

// Direction values for Changed events.
const (
	DirectionIncreased = "increased"
	DirectionDecreased = "decreased"
	DirectionUnchanged = "unchanged"
)

// deriveDirection compares from/to numerically. Either side failing to
// parse yields the empty string: a degraded-but-valid result, not an error.
func deriveDirection(from, to string) string {
	f, errF := strconv.ParseFloat(from, 64)
	t, errT := strconv.ParseFloat(to, 64)
	if errF != nil || errT != nil {
		return ""
	}
	switch {
	case t > f:
		return DirectionIncreased
	case t < f:
		return DirectionDecreased
	default:
		return DirectionUnchanged
	}
}

// eventJSON is the flat wire form shared by all verbs. Pointer fields
// distinguish "absent" from zero values across verbs that reuse a key.
type eventJSON struct {
	ID   string `json:"id"`
	Verb Verb   `json:"verb"`
	Time int    `json:"time"`

	Category string `json:"category,omitempty"`
	Content  string `json:"content,omitempty"`
	Source   string `json:"source,omitempty"`

	Region    string `json:"region,omitempty"`
	Technique string `json:"technique,omitempty"`
	Detail    string `json:"detail,omitempty"`

	Finding        string `json:"finding,omitempty"`
	Abnormal       *bool  `json:"abnormal,omitempty"`
	TestName       string `json:"test_name,omitempty"`
	Value          string `json:"value,omitempty"`
	Unit           string `json:"unit,omitempty"`
	ReferenceRange string `json:"reference_range,omitempty"`
	Significance   string `json:"significance,omitempty"`

	Item    string `json:"item,omitempty"`
	Trigger string `json:"trigger,omitempty"`
	Action  string `json:"action,omitempty"`

	Details map[string]string `json:"details,omitempty"`
	Status  string            `json:"status,omitempty"`

	Dose     string `json:"dose,omitempty"`
	Route    string `json:"route,omitempty"`
	Response string `json:"response,omitempty"`

	Parameter string `json:"parameter,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
	Direction string `json:"direction,omitempty"`

	Type      string `json:"type,omitempty"`
	Context   string `json:"context,omitempty"`
	Addressed *bool  `json:"addressed,omitempty"`
}

// MarshalJSON flattens the verb payload next to id/verb/time so the
// persisted document reads as one record per event.
func (e Event) MarshalJSON() ([]byte, error) {
	w := eventJSON{ID: e.ID, Verb: e.Verb, Time: e.Time}
	switch e.Verb {
	case VerbObtained:
		if e.Obtained == nil {
			return nil, fmt.Errorf("event %s: OBTAINED payload missing", e.ID)
		}
		w.Category = e.Obtained.Category
		w.Content = e.Obtained.Content
		w.Source = e.Obtained.Source
	case VerbExamined:
		if e.Examined == nil {
			return nil, fmt.Errorf("event %s: EXAMINED payload missing", e.ID)
		}
		w.Region = e.Examined.Region
		w.Technique = e.Examined.Technique
		w.Detail = e.Examined.Detail
	case VerbElicited:
		if e.Elicited == nil {
			return nil, fmt.Errorf("event %s: ELICITED payload missing", e.ID)
		}
		p := e.Elicited
		w.Source = p.Source
		w.Finding = p.Finding
		ab := p.Abnormal
		w.Abnormal = &ab
		w.Category = p.Category
		w.TestName = p.TestName
		w.Value = p.Value
		w.Unit = p.Unit
		w.ReferenceRange = p.ReferenceRange
		w.Significance = p.Significance
	case VerbNoted:
		if e.Noted == nil {
			return nil, fmt.Errorf("event %s: NOTED payload missing", e.ID)
		}
		w.Source = e.Noted.Source
		w.Item = e.Noted.Item
		w.Trigger = e.Noted.Trigger
		w.Action = e.Noted.Action
	case VerbOrdered:
		if e.Ordered == nil {
			return nil, fmt.Errorf("event %s: ORDERED payload missing", e.ID)
		}
		w.Category = e.Ordered.Category
		w.Item = e.Ordered.Item
		w.Details = e.Ordered.Details
		w.Status = e.Ordered.Status
	case VerbAdministered:
		if e.Administered == nil {
			return nil, fmt.Errorf("event %s: ADMINISTERED payload missing", e.ID)
		}
		w.Category = e.Administered.Category
		w.Item = e.Administered.Item
		w.Dose = e.Administered.Dose
		w.Route = e.Administered.Route
		w.Response = e.Administered.Response
	case VerbChanged:
		if e.Changed == nil {
			return nil, fmt.Errorf("event %s: CHANGED payload missing", e.ID)
		}
		p := e.Changed
		w.Category = p.Category
		w.Parameter = p.Parameter
		w.From = p.From
		w.To = p.To
		w.Trigger = p.Trigger
		w.Unit = p.Unit
		w.Direction = p.Direction
	case VerbExpressed:
		if e.Expressed == nil {
			return nil, fmt.Errorf("event %s: EXPRESSED payload missing", e.ID)
		}
		w.Type = e.Expressed.Type
		w.Content = e.Expressed.Content
		w.Context = e.Expressed.Context
		ad := e.Expressed.Addressed
		w.Addressed = &ad
	default:
		return nil, fmt.Errorf("event %s: unknown verb %q", e.ID, e.Verb)
	}
	return json.Marshal(w)
}

// UnmarshalJSON rebuilds the typed payload from the flat wire form.
func (e *Event) UnmarshalJSON(data []byte) error {
	var w eventJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("unmarshal event: %w", err)
	}
	if !KnownVerbs[w.Verb] {
		return fmt.Errorf("unmarshal event %s: unknown verb %q", w.ID, w.Verb)
	}

	*e = Event{ID: w.ID, Verb: w.Verb, Time: w.Time}
	switch w.Verb {
	case VerbObtained:
		e.Obtained = &Obtained{Category: w.Category, Content: w.Content, Source: w.Source}
	case VerbExamined:
		e.Examined = &Examined{Region: w.Region, Technique: w.Technique, Detail: w.Detail}
	case VerbElicited:
		abnormal := false
		if w.Abnormal != nil {
			abnormal = *w.Abnormal
		}
		e.Elicited = &Elicited{
			Source:         w.Source,
			Finding:        w.Finding,
			Abnormal:       abnormal,
			Category:       w.Category,
			TestName:       w.TestName,
			Value:          w.Value,
			Unit:           w.Unit,
			ReferenceRange: w.ReferenceRange,
			Significance:   w.Significance,
		}
	case VerbNoted:
		e.Noted = &Noted{Source: w.Source, Item: w.Item, Trigger: w.Trigger, Action: w.Action}
	case VerbOrdered:
		e.Ordered = &Ordered{Category: w.Category, Item: w.Item, Details: w.Details, Status: w.Status}
	case VerbAdministered:
		e.Administered = &Administered{
			Category: w.Category,
			Item:     w.Item,
			Dose:     w.Dose,
			Route:    w.Route,
			Response: w.Response,
		}
	case VerbChanged:
		e.Changed = &Changed{
			Category:  w.Category,
			Parameter: w.Parameter,
			From:      w.From,
			To:        w.To,
			Trigger:   w.Trigger,
			Unit:      w.Unit,
			Direction: w.Direction,
		}
	case VerbExpressed:
		addressed := false
		if w.Addressed != nil {
			addressed = *w.Addressed
		}
		e.Expressed = &Expressed{Type: w.Type, Content: w.Content, Context: w.Context, Addressed: addressed}
	}
	return nil
}

// canonicalMap converts the event to a map for canonical JSON output.
// Keys mirror the wire form; absent optional fields are omitted.
func (e Event) canonicalMap() map[string]any {
	m := map[string]any{
		"id":   e.ID,
		"verb": string(e.Verb),
		"time": e.Time,
	}
	put := func(k, v string) {
		if v != "" {
			m[k] = v
		}
	}
	switch e.Verb {
	case VerbObtained:
		put("category", e.Obtained.Category)
		put("content", e.Obtained.Content)
		put("source", e.Obtained.Source)
	case VerbExamined:
		put("region", e.Examined.Region)
		put("technique", e.Examined.Technique)
		put("detail", e.Examined.Detail)
	case VerbElicited:
		p := e.Elicited
		put("source", p.Source)
		put("finding", p.Finding)
		m["abnormal"] = p.Abnormal
		put("category", p.Category)
		put("test_name", p.TestName)
		put("value", p.Value)
		put("unit", p.Unit)
		put("reference_range", p.ReferenceRange)
		put("significance", p.Significance)
	case VerbNoted:
		put("source", e.Noted.Source)
		put("item", e.Noted.Item)
		put("trigger", e.Noted.Trigger)
		put("action", e.Noted.Action)
	case VerbOrdered:
		put("category", e.Ordered.Category)
		put("item", e.Ordered.Item)
		put("status", e.Ordered.Status)
		if len(e.Ordered.Details) > 0 {
			details := make(map[string]any, len(e.Ordered.Details))
			for k, v := range e.Ordered.Details {
				details[k] = v
			}
			m["details"] = details
		}
	case VerbAdministered:
		put("category", e.Administered.Category)
		put("item", e.Administered.Item)
		put("dose", e.Administered.Dose)
		put("route", e.Administered.Route)
		put("response", e.Administered.Response)
	case VerbChanged:
		p := e.Changed
		put("category", p.Category)
		put("parameter", p.Parameter)
		put("from", p.From)
		put("to", p.To)
		put("trigger", p.Trigger)
		put("unit", p.Unit)
		put("direction", p.Direction)
	case VerbExpressed:
		put("type", e.Expressed.Type)
		put("content", e.Expressed.Content)
		put("context", e.Expressed.Context)
		m["addressed"] = e.Expressed.Addressed
	}
	return m
}
