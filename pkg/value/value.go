// Package value models arbitrary JSON values as a closed tagged union.
// JMAP method arguments and results have no static schema, so every
// encode/decode boundary in this client goes through this type explicitly
// rather than through reflection or bare map[string]any plumbing.
package value

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Kind identifies which JSON kind a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindMapping
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	}
	return "unknown"
}

// Value is one JSON value of any kind. The set of implementations is closed:
// Null, Bool, Number, String, Sequence and Mapping, matching the six JSON
// kinds in decoding precedence order.
type Value interface {
	Kind() Kind
	// toGo converts to the encoding/json representation used for encoding.
	toGo() any
}

// Null is the JSON null value.
type Null struct{}

func (Null) Kind() Kind { return KindNull }
func (Null) toGo() any  { return nil }

// Bool is a JSON boolean.
type Bool bool

func (Bool) Kind() Kind  { return KindBool }
func (b Bool) toGo() any { return bool(b) }

// Number is a JSON number. The raw literal is kept verbatim so that integral
// values within 53 bits of precision round trip without drifting through
// float64. JMAP uses plain JSON numbers, never string-encoded big integers.
type Number string

func (Number) Kind() Kind  { return KindNumber }
func (n Number) toGo() any { return json.Number(n) }

// IsInt reports whether the number parses exactly as an int64.
func (n Number) IsInt() bool {
	_, err := strconv.ParseInt(string(n), 10, 64)
	return err == nil
}

// Int64 returns the number as an int64.
func (n Number) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// Float64 returns the number as a float64.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// String is a JSON string.
type String string

func (String) Kind() Kind  { return KindString }
func (s String) toGo() any { return string(s) }

// Sequence is an ordered JSON array.
type Sequence []Value

func (Sequence) Kind() Kind { return KindSequence }

func (s Sequence) toGo() any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v.toGo()
	}
	return out
}

// Mapping is a JSON object. Key order is not significant.
type Mapping map[string]Value

func (Mapping) Kind() Kind { return KindMapping }

func (m Mapping) toGo() any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v.toGo()
	}
	return out
}

// Get returns the value for key, or Null if absent.
func (m Mapping) Get(key string) Value {
	if v, ok := m[key]; ok {
		return v
	}
	return Null{}
}

// GetString returns the string at key, or "" if key is absent or not a string.
func (m Mapping) GetString(key string) string {
	if s, ok := m[key].(String); ok {
		return string(s)
	}
	return ""
}

// GetMapping returns the mapping at key, or nil if key is absent or not a mapping.
func (m Mapping) GetMapping(key string) Mapping {
	if sub, ok := m[key].(Mapping); ok {
		return sub
	}
	return nil
}

// GetSequence returns the sequence at key, or nil if key is absent or not a sequence.
func (m Mapping) GetSequence(key string) Sequence {
	if seq, ok := m[key].(Sequence); ok {
		return seq
	}
	return nil
}

// Keys returns the mapping's keys in sorted order.
func (m Mapping) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Int builds a Number from an int64.
func Int(i int64) Number {
	return Number(strconv.FormatInt(i, 10))
}

// Float builds a Number from a float64.
func Float(f float64) Number {
	return Number(strconv.FormatFloat(f, 'g', -1, 64))
}

// Str builds a String.
func Str(s string) String { return String(s) }

// Boolean builds a Bool.
func Boolean(b bool) Bool { return Bool(b) }

// Seq builds a Sequence.
func Seq(vs ...Value) Sequence { return Sequence(vs) }

// Strings builds a Sequence of String values.
func Strings(ss ...string) Sequence {
	seq := make(Sequence, len(ss))
	for i, s := range ss {
		seq[i] = String(s)
	}
	return seq
}

// Equal reports whether two values are the same kind with the same contents.
// Numbers compare by numeric value, not literal text.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Bool:
		return av == b.(Bool)
	case Number:
		bn := b.(Number)
		if av == bn {
			return true
		}
		af, aerr := av.Float64()
		bf, berr := bn.Float64()
		return aerr == nil && berr == nil && af == bf
	case String:
		return av == b.(String)
	case Sequence:
		bs := b.(Sequence)
		if len(av) != len(bs) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bs[i]) {
				return false
			}
		}
		return true
	case Mapping:
		bm := b.(Mapping)
		if len(av) != len(bm) {
			return false
		}
		for k, v := range av {
			bv, ok := bm[k]
			if !ok || !Equal(v, bv) {
				return false
			}
		}
		return true
	}
	return false
}
