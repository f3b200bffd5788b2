// Package wire implements the JMAP wire shapes per RFC 8620: the positional
// three-element method call/response arrays and the batch request/response
// bodies. The array shape (not an object with named fields) is the
// interoperability contract and is reproduced exactly.
package wire

import (
	"encoding/json"
	"fmt"

	"github.com/jarrod-lowe/jmap-client/pkg/value"
)

// Capability URIs declared in a batch request's "using" list.
const (
	CapabilityCore       = "urn:ietf:params:jmap:core"
	CapabilityMail       = "urn:ietf:params:jmap:mail"
	CapabilitySubmission = "urn:ietf:params:jmap:submission"
)

// MalformedMethodCallError is returned when a method call or response does
// not have the [name, arguments, clientId] array shape.
type MalformedMethodCallError struct {
	Description string
}

func (e *MalformedMethodCallError) Error() string {
	return fmt.Sprintf("malformedMethodCall: %s", e.Description)
}

// NewMalformedMethodCallError creates a MalformedMethodCallError.
func NewMalformedMethodCallError(description string) *MalformedMethodCallError {
	return &MalformedMethodCallError{Description: description}
}

// MethodCall is a single JMAP method invocation. On the wire it is the JSON
// array ["Method/name", {<args>}, "<clientId>"]. Args may contain keys
// prefixed with "#" whose values are result references rather than literals.
type MethodCall struct {
	Name     string
	Args     value.Mapping
	ClientID string
}

// MarshalJSON encodes the call as its three-element array.
func (c MethodCall) MarshalJSON() ([]byte, error) {
	args := c.Args
	if args == nil {
		args = value.Mapping{}
	}
	return json.Marshal([]any{c.Name, value.ToGo(args), c.ClientID})
}

// UnmarshalJSON decodes the three-element array shape, rejecting anything
// else with MalformedMethodCallError.
func (c *MethodCall) UnmarshalJSON(data []byte) error {
	name, args, clientID, err := decodeTriple(data)
	if err != nil {
		return err
	}
	c.Name = name
	c.Args = args
	c.ClientID = clientID
	return nil
}

// MethodResponse is a single JMAP method result, using the same array shape
// as a call. A response whose Args mapping contains a top-level "type" key
// is a call-level error object, not a result.
type MethodResponse struct {
	Name     string
	Args     value.Mapping
	ClientID string
}

// MarshalJSON encodes the response as its three-element array.
func (r MethodResponse) MarshalJSON() ([]byte, error) {
	args := r.Args
	if args == nil {
		args = value.Mapping{}
	}
	return json.Marshal([]any{r.Name, value.ToGo(args), r.ClientID})
}

// UnmarshalJSON decodes the three-element array shape.
func (r *MethodResponse) UnmarshalJSON(data []byte) error {
	name, args, clientID, err := decodeTriple(data)
	if err != nil {
		return err
	}
	r.Name = name
	r.Args = args
	r.ClientID = clientID
	return nil
}

// IsError reports whether this response is a call-level error object.
func (r MethodResponse) IsError() bool {
	_, ok := r.Args["type"]
	return ok
}

// CallError extracts the error carried by an error response, or nil when the
// response is not an error.
func (r MethodResponse) CallError() *CallError {
	if !r.IsError() {
		return nil
	}
	return &CallError{
		Method:      r.Name,
		ClientID:    r.ClientID,
		Type:        r.Args.GetString("type"),
		Description: r.Args.GetString("description"),
	}
}

// CallError is a per-call failure reported inside an otherwise successful
// batch, distinct from a transport failure. It is recoverable: other calls
// in the batch may still have succeeded.
type CallError struct {
	Method      string
	ClientID    string
	Type        string
	Description string
}

func (e *CallError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s (call %q, clientId %q)", e.Type, e.Method, e.ClientID)
	}
	return fmt.Sprintf("%s: %s (call %q, clientId %q)", e.Type, e.Description, e.Method, e.ClientID)
}

// decodeTriple parses the shared [name, args, clientId] shape.
func decodeTriple(data []byte) (string, value.Mapping, string, error) {
	v, err := value.Decode(data)
	if err != nil {
		return "", nil, "", NewMalformedMethodCallError(err.Error())
	}
	seq, ok := v.(value.Sequence)
	if !ok {
		return "", nil, "", NewMalformedMethodCallError(
			fmt.Sprintf("expected a JSON array, got %s", v.Kind()))
	}
	if len(seq) != 3 {
		return "", nil, "", NewMalformedMethodCallError(
			fmt.Sprintf("expected a 3-element array, got %d elements", len(seq)))
	}
	name, ok := seq[0].(value.String)
	if !ok {
		return "", nil, "", NewMalformedMethodCallError(
			fmt.Sprintf("element 0 must be the method name string, got %s", seq[0].Kind()))
	}
	args, ok := seq[1].(value.Mapping)
	if !ok {
		return "", nil, "", NewMalformedMethodCallError(
			fmt.Sprintf("element 1 must be the arguments object, got %s", seq[1].Kind()))
	}
	clientID, ok := seq[2].(value.String)
	if !ok {
		return "", nil, "", NewMalformedMethodCallError(
			fmt.Sprintf("element 2 must be the clientId string, got %s", seq[2].Kind()))
	}
	return string(name), args, string(clientID), nil
}
