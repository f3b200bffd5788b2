// Package batch assembles ordered JMAP method calls into one request and
// runs the single request/response exchange. A batch is built fresh per
// logical operation and is never reused after being sent.
package batch

import (
	"fmt"
	"strconv"

	"github.com/jarrod-lowe/jmap-client/pkg/resultref"
	"github.com/jarrod-lowe/jmap-client/pkg/value"
	"github.com/jarrod-lowe/jmap-client/pkg/wire"
)

// DanglingReferenceError is a build-time logic error: a reference names a
// clientId that does not belong to any call already added to the batch.
// It is raised at build time, not at send time, so the mistake surfaces
// before any network traffic.
type DanglingReferenceError struct {
	ResultOf    string
	Description string
}

func (e *DanglingReferenceError) Error() string {
	return fmt.Sprintf("danglingReference: %s", e.Description)
}

// DuplicateClientIDError is raised when a caller-supplied clientId collides
// with one already in the batch.
type DuplicateClientIDError struct {
	ClientID string
}

func (e *DuplicateClientIDError) Error() string {
	return fmt.Sprintf("duplicateClientId: %q is already used in this batch", e.ClientID)
}

// Builder accumulates an ordered list of method calls. Not safe for
// concurrent use; build one batch per logical operation.
type Builder struct {
	using     []string
	calls     []wire.MethodCall
	clientIDs map[string]string // clientId -> method name
	next      int
	built     bool
}

// NewBuilder creates a Builder declaring the given capability URIs.
func NewBuilder(using ...string) *Builder {
	return &Builder{
		using:     using,
		clientIDs: make(map[string]string),
	}
}

// AddCall appends a call and assigns the next sequential integer as its
// clientId, guaranteeing uniqueness within the batch. Returns the assigned
// clientId.
func (b *Builder) AddCall(name string, args value.Mapping) string {
	clientID := strconv.Itoa(b.next)
	// Skip over any caller-supplied ids that happen to be integers.
	for {
		if _, taken := b.clientIDs[clientID]; !taken {
			break
		}
		b.next++
		clientID = strconv.Itoa(b.next)
	}
	b.next++
	b.append(name, args, clientID)
	return clientID
}

// AddCallWithID appends a call under a caller-chosen clientId.
func (b *Builder) AddCallWithID(name string, args value.Mapping, clientID string) (string, error) {
	if _, taken := b.clientIDs[clientID]; taken {
		return "", &DuplicateClientIDError{ClientID: clientID}
	}
	b.append(name, args, clientID)
	return clientID, nil
}

func (b *Builder) append(name string, args value.Mapping, clientID string) {
	if args == nil {
		args = value.Mapping{}
	}
	b.calls = append(b.calls, wire.MethodCall{Name: name, Args: args, ClientID: clientID})
	b.clientIDs[clientID] = name
}

// Reference builds a back-reference to an earlier call's result, for the
// caller to place under a "#"-prefixed argument key. The referenced call
// must already be in the batch: references only ever look backwards, never
// forward and never across batches.
func (b *Builder) Reference(resultOf, name, path string) (value.Mapping, error) {
	method, ok := b.clientIDs[resultOf]
	if !ok {
		return nil, &DanglingReferenceError{
			ResultOf:    resultOf,
			Description: fmt.Sprintf("no earlier call in this batch has clientId %q", resultOf),
		}
	}
	if method != name {
		return nil, &DanglingReferenceError{
			ResultOf: resultOf,
			Description: fmt.Sprintf("call %q has method name %q, expected %q",
				resultOf, method, name),
		}
	}
	ref, err := resultref.New(resultOf, name, path)
	if err != nil {
		return nil, err
	}
	return ref.ToValue(), nil
}

// Len reports the number of calls added so far.
func (b *Builder) Len() int {
	return len(b.calls)
}

// Build finalizes the ordered call list. A Builder is single-use: building
// twice is an error, and the returned request must not be mutated.
func (b *Builder) Build() (*wire.Request, error) {
	if b.built {
		return nil, fmt.Errorf("batch already built")
	}
	b.built = true
	return &wire.Request{
		Using:       b.using,
		MethodCalls: b.calls,
	}, nil
}
