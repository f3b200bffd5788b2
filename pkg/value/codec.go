package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MalformedJSONError is returned when bytes cannot be decoded as JSON.
type MalformedJSONError struct {
	Description string
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformedJSON: %s", e.Description)
}

// NewMalformedJSONError creates a MalformedJSONError.
func NewMalformedJSONError(description string) *MalformedJSONError {
	return &MalformedJSONError{Description: description}
}

// UnencodableValueError is returned when a Go value has no defined
// projection into a Value.
type UnencodableValueError struct {
	// Origin describes where in the input the offending value sits,
	// e.g. "key \"body\"" or "index 3".
	Origin      string
	Description string
}

func (e *UnencodableValueError) Error() string {
	if e.Origin == "" {
		return fmt.Sprintf("unencodableValue: %s", e.Description)
	}
	return fmt.Sprintf("unencodableValue at %s: %s", e.Origin, e.Description)
}

// Decode parses JSON bytes into a Value. Each token decodes to the most
// specific JSON kind actually present, attempted in a fixed precedence:
// null, bool, number, string, sequence, mapping. Numbers keep their raw
// literal so integral values survive the round trip.
func Decode(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, NewMalformedJSONError(err.Error())
	}
	// Reject trailing garbage after the first value
	if dec.More() {
		return nil, NewMalformedJSONError("unexpected data after JSON value")
	}
	return fromDecoded(raw), nil
}

// Encode serializes a Value back to JSON bytes.
func Encode(v Value) ([]byte, error) {
	if v == nil {
		v = Null{}
	}
	data, err := json.Marshal(v.toGo())
	if err != nil {
		return nil, &UnencodableValueError{Description: err.Error()}
	}
	return data, nil
}

// fromDecoded converts the output of a UseNumber json.Decoder. The decoder
// only produces nil, bool, json.Number, string, []any and map[string]any,
// so this conversion cannot fail.
func fromDecoded(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return Null{}
	case bool:
		return Bool(t)
	case json.Number:
		return Number(t)
	case string:
		return String(t)
	case []any:
		seq := make(Sequence, len(t))
		for i, item := range t {
			seq[i] = fromDecoded(item)
		}
		return seq
	case map[string]any:
		m := make(Mapping, len(t))
		for k, item := range t {
			m[k] = fromDecoded(item)
		}
		return m
	}
	// Unreachable for decoder output; keeps the conversion total.
	return Null{}
}

// FromGo converts an arbitrary Go value into a Value. Supported inputs are
// nil, bool, the integer and float kinds, string, json.Number, Value itself,
// []any and map[string]any (recursively). Anything else fails with
// UnencodableValueError naming the value's origin.
func FromGo(raw any) (Value, error) {
	return fromGo(raw, "")
}

func fromGo(raw any, origin string) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case int:
		return Int(int64(t)), nil
	case int32:
		return Int(int64(t)), nil
	case int64:
		return Int(t), nil
	case float32:
		return Float(float64(t)), nil
	case float64:
		return Float(t), nil
	case json.Number:
		return Number(t), nil
	case string:
		return String(t), nil
	case []any:
		seq := make(Sequence, len(t))
		for i, item := range t {
			v, err := fromGo(item, fmt.Sprintf("%s[%d]", origin, i))
			if err != nil {
				return nil, err
			}
			seq[i] = v
		}
		return seq, nil
	case map[string]any:
		m := make(Mapping, len(t))
		for k, item := range t {
			v, err := fromGo(item, fmt.Sprintf("%s.%s", origin, k))
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		return m, nil
	}
	where := origin
	if where == "" {
		where = "top level"
	}
	return nil, &UnencodableValueError{
		Origin:      where,
		Description: fmt.Sprintf("Go type %T has no JSON projection", raw),
	}
}

// ToGo converts a Value into the plain Go representation encoding/json
// would produce: nil, bool, json.Number, string, []any, map[string]any.
func ToGo(v Value) any {
	if v == nil {
		return nil
	}
	return v.toGo()
}
