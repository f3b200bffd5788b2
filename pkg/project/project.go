// Package project converts dynamic result mappings into strongly typed
// records on demand. Projection is opt-in and local to the caller: the
// batch layer never needs a schema to function, and nothing is projected
// eagerly.
package project

import (
	"encoding/json"
	"fmt"

	"github.com/qri-io/jsonpointer"

	"github.com/jarrod-lowe/jmap-client/pkg/value"
)

// ProjectionError is returned when a mapping does not fit the requested
// shape.
type ProjectionError struct {
	Description string
}

func (e *ProjectionError) Error() string {
	return fmt.Sprintf("projectionError: %s", e.Description)
}

// NewProjectionError creates a ProjectionError.
func NewProjectionError(description string) *ProjectionError {
	return &ProjectionError{Description: description}
}

// Project decodes a result mapping into T using T's JSON field tags.
func Project[T any](m value.Mapping) (T, error) {
	var out T
	if m == nil {
		return out, NewProjectionError("cannot project a nil mapping")
	}
	data, err := value.Encode(m)
	if err != nil {
		return out, NewProjectionError(err.Error())
	}
	// Unknown fields are tolerated: servers add properties over time and a
	// projection only claims the fields it declares.
	if err := json.Unmarshal(data, &out); err != nil {
		return out, NewProjectionError(
			fmt.Sprintf("mapping does not fit %T: %v", out, err))
	}
	return out, nil
}

// Seq decodes a sequence of mappings into a slice of T, e.g. the "list"
// field of a Foo/get response.
func Seq[T any](s value.Sequence) ([]T, error) {
	out := make([]T, 0, len(s))
	for i, item := range s {
		m, ok := item.(value.Mapping)
		if !ok {
			return nil, NewProjectionError(
				fmt.Sprintf("element %d is %s, not a mapping", i, item.Kind()))
		}
		record, err := Project[T](m)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, nil
}

// At extracts a sub-value by JSON Pointer before projecting, e.g.
// At(resp.Args, "/list") on a Mailbox/get response.
func At(v value.Value, path string) (value.Value, error) {
	if path == "" {
		return v, nil
	}
	ptr, err := jsonpointer.Parse(path)
	if err != nil {
		return nil, NewProjectionError(fmt.Sprintf("invalid JSON Pointer %q: %v", path, err))
	}
	result, err := ptr.Eval(value.ToGo(v))
	if err != nil || result == nil {
		return nil, NewProjectionError(fmt.Sprintf("path not found: %s", path))
	}
	out, err := value.FromGo(result)
	if err != nil {
		return nil, NewProjectionError(err.Error())
	}
	return out, nil
}
