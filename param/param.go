// Package param describes and carries plugin parameters.
//
// Specs advertise what a plugin accepts so configuration surfaces can render
// forms; Values carry whatever a caller actually supplied. Values typically
// arrive from JSON or YAML decoding, so numeric entries may be float64 or int
// depending on the codec; the typed getters coerce tolerantly and fall back
// to the given default on missing or mistyped entries.
package param

// Type identifies the value type of a parameter.
type Type string

const (
	// TypeFloat is a floating-point parameter.
	TypeFloat Type = "float"
	// TypeInt is an integer parameter.
	TypeInt Type = "int"
	// TypeBool is a boolean parameter.
	TypeBool Type = "bool"
	// TypeString is a free-form string parameter.
	TypeString Type = "string"
	// TypeEnum is a string parameter restricted to Options.
	TypeEnum Type = "enum"
)

// Spec describes one configurable plugin parameter.
type Spec struct {
	Name        string
	Label       string
	Type        Type
	Default     any
	Description string
	Min         *float64 // optional numeric lower bound
	Max         *float64 // optional numeric upper bound
	Options     []string // allowed values for TypeEnum
	Suffix      string   // display unit, e.g. "Hz" or "samples"
}

// Bound returns a pointer suitable for Spec.Min / Spec.Max.
func Bound(v float64) *float64 {
	return &v
}

// Values holds runtime parameter values by name.
type Values map[string]any

// Has reports whether a value is present under name.
func (v Values) Has(name string) bool {
	_, ok := v[name]
	return ok
}

// Float returns the named value as float64, or def when missing or mistyped.
func (v Values) Float(name string, def float64) float64 {
	raw, ok := v[name]
	if !ok {
		return def
	}
	switch n := raw.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

// Int returns the named value as int, or def when missing or mistyped.
// Floating-point values are truncated toward zero.
func (v Values) Int(name string, def int) int {
	raw, ok := v[name]
	if !ok {
		return def
	}
	switch n := raw.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case float32:
		return int(n)
	default:
		return def
	}
}

// Bool returns the named value as bool, or def when missing or mistyped.
// Numeric values count as true when nonzero.
func (v Values) Bool(name string, def bool) bool {
	raw, ok := v[name]
	if !ok {
		return def
	}
	switch b := raw.(type) {
	case bool:
		return b
	case int:
		return b != 0
	case int64:
		return b != 0
	case float64:
		return b != 0
	default:
		return def
	}
}

// String returns the named value as string, or def when missing or mistyped.
func (v Values) String(name string, def string) string {
	raw, ok := v[name]
	if !ok {
		return def
	}
	if s, ok := raw.(string); ok {
		return s
	}
	return def
}

// Clone returns a shallow copy of the values. A nil receiver clones to an
// empty, non-nil map so callers can assign into the result.
func (v Values) Clone() Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// Without returns a copy of the values with the named keys removed.
func (v Values) Without(names ...string) Values {
	out := v.Clone()
	for _, n := range names {
		delete(out, n)
	}
	return out
}

// Merge layers over on top of base without mutating either. Keys present in
// over win.
func Merge(base, over Values) Values {
	out := base.Clone()
	for k, val := range over {
		out[k] = val
	}
	return out
}
