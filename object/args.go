package object

import "encoding/json"

// Args carries the positional and keyword arguments of a constructor or
// method call. Everything in it must survive a JSON round trip: on the far
// side of the transport numbers arrive as float64 and nested structures as
// map[string]any / []any. The typed accessors below absorb that.
type Args struct {
	Positional []any          `json:"args,omitempty"`
	Keyword    map[string]any `json:"kwargs,omitempty"`
}

// A builds positional-only Args.
func A(values ...any) Args {
	return Args{Positional: values}
}

// Kw returns a copy of the Args with an additional keyword argument.
func (a Args) Kw(key string, value any) Args {
	kw := make(map[string]any, len(a.Keyword)+1)
	for k, v := range a.Keyword {
		kw[k] = v
	}
	kw[key] = value
	a.Keyword = kw
	return a
}

// Len returns the number of positional arguments.
func (a Args) Len() int { return len(a.Positional) }

// At returns the i-th positional argument, or nil when out of range.
func (a Args) At(i int) any {
	if i < 0 || i >= len(a.Positional) {
		return nil
	}
	return a.Positional[i]
}

// String returns the i-th positional argument as a string.
func (a Args) String(i int) string {
	s, _ := a.At(i).(string)
	return s
}

// Int returns the i-th positional argument as an int, converting from
// float64 when the value crossed the wire.
func (a Args) Int(i int) int {
	return toInt(a.At(i))
}

// Float returns the i-th positional argument as a float64.
func (a Args) Float(i int) float64 {
	return toFloat(a.At(i))
}

// Bool returns the i-th positional argument as a bool.
func (a Args) Bool(i int) bool {
	b, _ := a.At(i).(bool)
	return b
}

// Get returns the named keyword argument and whether it was present.
func (a Args) Get(key string) (any, bool) {
	v, ok := a.Keyword[key]
	return v, ok
}

// validate reports whether the Args can cross the transport boundary.
func (a Args) validate() error {
	if _, err := json.Marshal(a); err != nil {
		return err
	}
	return nil
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}
