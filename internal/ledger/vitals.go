package ledger

// VitalCategory is the Changed category that addresses the vital-sign map.
const VitalCategory = "vital"

// VitalKeys is the fixed vital-sign key set, in display order.
var VitalKeys = []string{"hr", "bp", "rr", "spo2", "temp", "pain"}

// knownVital reports whether key is one of the fixed vital-sign keys.
func knownVital(key string) bool {
	for _, k := range VitalKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Vitals maps a vital-sign key to its last-known value. Unset keys are
// simply absent. Values are kept as recorded strings ("112", "128/84").
type Vitals map[string]string

// Clone returns an independent copy.
func (v Vitals) Clone() Vitals {
	if v == nil {
		return nil
	}
	out := make(Vitals, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// applyChanged is the reducer from a CHANGED event onto the vitals map.
// It writes through only when the event addresses the vitals category with
// a recognized key; anything else leaves the map untouched. Pure and total
// over its inputs: the returned map is the input map, possibly updated.
func applyChanged(vitals Vitals, c *Changed) Vitals {
	if c == nil || c.Category != VitalCategory || !knownVital(c.Parameter) {
		return vitals
	}
	if vitals == nil {
		vitals = make(Vitals)
	}
	vitals[c.Parameter] = c.To
	return vitals
}
