// Package resultref constructs JMAP result references per RFC 8620
// Section 3.7. A reference is a placeholder in a later call's arguments,
// stored under a "#"-prefixed key, that the server substitutes with a value
// taken from an earlier call's result in the same batch. This package only
// builds and validates references; it never resolves them locally, because
// the server computes intermediate results the client does not have.
package resultref

import (
	"fmt"
	"strings"

	"github.com/qri-io/jsonpointer"

	"github.com/jarrod-lowe/jmap-client/pkg/value"
)

// Reference is a JMAP result reference.
type Reference struct {
	ResultOf string `json:"resultOf"` // Client ID of the method call to reference
	Name     string `json:"name"`     // Method name that must match the referenced call
	Path     string `json:"path"`     // JSON Pointer path to extract from the result
}

// InvalidPathError is returned when a reference path is not a valid JSON
// Pointer (with the JMAP wildcard extension).
type InvalidPathError struct {
	Path        string
	Description string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("invalidResultReference: path %q: %s", e.Path, e.Description)
}

// New builds a reference to an earlier call's result. The path is a JSON
// Pointer into that call's result mapping, e.g. "/ids", with "/*" wildcard
// segments allowed per the JMAP extension.
func New(resultOf, name, path string) (*Reference, error) {
	ref := &Reference{ResultOf: resultOf, Name: name, Path: path}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	return ref, nil
}

// Validate checks the reference's path grammar. The wildcard segments are
// stripped before standard JSON Pointer parsing, mirroring how the server
// splits the path at each "/*".
func (r *Reference) Validate() error {
	if r.ResultOf == "" {
		return &InvalidPathError{Path: r.Path, Description: "resultOf must not be empty"}
	}
	if r.Name == "" {
		return &InvalidPathError{Path: r.Path, Description: "name must not be empty"}
	}
	for _, segment := range strings.Split(r.Path, "/*") {
		if segment == "" {
			continue
		}
		if _, err := jsonpointer.Parse(segment); err != nil {
			return &InvalidPathError{Path: r.Path, Description: err.Error()}
		}
	}
	return nil
}

// ToValue converts the reference into the canonical wire mapping
// {"resultOf": ..., "name": ..., "path": ...}.
func (r *Reference) ToValue() value.Mapping {
	return value.Mapping{
		"resultOf": value.Str(r.ResultOf),
		"name":     value.Str(r.Name),
		"path":     value.Str(r.Path),
	}
}

// ArgKey returns the argument key a reference must be stored under: the
// target argument name prefixed with "#" (argument "ids" becomes "#ids").
func ArgKey(argName string) string {
	return "#" + argName
}

// IsRefKey reports whether an argument key names a result reference.
func IsRefKey(key string) bool {
	return strings.HasPrefix(key, "#")
}
