package batch

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/jarrod-lowe/jmap-client/pkg/value"
	"github.com/jarrod-lowe/jmap-client/pkg/wire"
)

// fakeTransport records the last sent body and returns a canned reply.
type fakeTransport struct {
	sent   []byte
	calls  int
	body   string
	status int
	err    error
}

func (f *fakeTransport) Send(ctx context.Context, body []byte, header http.Header) ([]byte, int, error) {
	f.calls++
	f.sent = body
	if f.err != nil {
		return nil, 0, f.err
	}
	return []byte(f.body), f.status, nil
}

func TestBuilder_SequentialClientIDs(t *testing.T) {
	b := NewBuilder(wire.CapabilityCore)
	first := b.AddCall("Mailbox/get", nil)
	second := b.AddCall("Email/get", nil)
	if first != "0" || second != "1" {
		t.Errorf("clientIds = %q, %q, want 0, 1", first, second)
	}
}

func TestBuilder_ExplicitID_Collision(t *testing.T) {
	b := NewBuilder(wire.CapabilityCore)
	if _, err := b.AddCallWithID("A/get", nil, "mine"); err != nil {
		t.Fatalf("AddCallWithID returned error: %v", err)
	}
	_, err := b.AddCallWithID("B/get", nil, "mine")
	var dup *DuplicateClientIDError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateClientIDError, got %v", err)
	}
}

func TestBuilder_SequentialSkipsTakenIDs(t *testing.T) {
	b := NewBuilder(wire.CapabilityCore)
	if _, err := b.AddCallWithID("A/get", nil, "0"); err != nil {
		t.Fatalf("AddCallWithID returned error: %v", err)
	}
	next := b.AddCall("B/get", nil)
	if next == "0" {
		t.Error("sequential assignment reused a taken clientId")
	}
}

func TestBuilder_Reference_Dangling(t *testing.T) {
	b := NewBuilder(wire.CapabilityCore)
	b.AddCall("Email/query", nil)

	_, err := b.Reference("missing", "Email/query", "/ids")
	var dangling *DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingReferenceError, got %v", err)
	}
	if dangling.ResultOf != "missing" {
		t.Errorf("ResultOf = %q", dangling.ResultOf)
	}
}

func TestBuilder_Reference_NameMismatch(t *testing.T) {
	b := NewBuilder(wire.CapabilityCore)
	id := b.AddCall("Email/query", nil)

	_, err := b.Reference(id, "Mailbox/query", "/ids")
	var dangling *DanglingReferenceError
	if !errors.As(err, &dangling) {
		t.Fatalf("expected DanglingReferenceError, got %v", err)
	}
}

func TestBuilder_Reference_Backward(t *testing.T) {
	b := NewBuilder(wire.CapabilityCore)
	id := b.AddCall("Email/query", value.Mapping{"accountId": value.Str("a1")})

	ref, err := b.Reference(id, "Email/query", "/ids")
	if err != nil {
		t.Fatalf("Reference returned error: %v", err)
	}
	want := value.Mapping{
		"resultOf": value.Str("0"),
		"name":     value.Str("Email/query"),
		"path":     value.Str("/ids"),
	}
	if !value.Equal(ref, want) {
		t.Errorf("Reference = %v, want %v", ref, want)
	}
}

func TestRun_SerializesReferenceVerbatim(t *testing.T) {
	// B references A's result. The reference must be serialized under a
	// #-prefixed key exactly as constructed; the client never substitutes
	// it locally.
	b := NewBuilder(wire.CapabilityCore)
	idA := b.AddCall("A/name", value.Mapping{"accountId": value.Str("a1")})
	ref, err := b.Reference(idA, "A/name", "/ids")
	if err != nil {
		t.Fatalf("Reference returned error: %v", err)
	}
	b.AddCall("B/name", value.Mapping{
		"accountId": value.Str("a1"),
		"#ids":      ref,
	})

	req, err := b.Build()
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}

	ft := &fakeTransport{
		status: http.StatusOK,
		body:   `{"methodResponses":[["A/name",{},"0"],["B/name",{},"1"]],"sessionState":"s"}`,
	}
	if _, err := Run(context.Background(), ft, req); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	sent := string(ft.sent)
	if !strings.Contains(sent, `"#ids":{"name":"A/name","path":"/ids","resultOf":"0"}`) {
		t.Errorf("reference not serialized verbatim under #ids: %s", sent)
	}
	if strings.Contains(sent, `"ids":[`) {
		t.Errorf("client must not resolve references locally: %s", sent)
	}
}

func TestBuild_SingleUse(t *testing.T) {
	b := NewBuilder(wire.CapabilityCore)
	b.AddCall("A/get", nil)
	if _, err := b.Build(); err != nil {
		t.Fatalf("first Build returned error: %v", err)
	}
	if _, err := b.Build(); err == nil {
		t.Error("expected second Build to fail")
	}
}

func TestRun_ProtocolError(t *testing.T) {
	b := NewBuilder(wire.CapabilityCore)
	b.AddCall("A/get", nil)
	req, _ := b.Build()

	ft := &fakeTransport{status: http.StatusServiceUnavailable, body: `busy`}
	_, err := Run(context.Background(), ft, req)
	var protoErr *ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
	if protoErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", protoErr.StatusCode)
	}
}

func TestRun_MalformedResponse(t *testing.T) {
	b := NewBuilder(wire.CapabilityCore)
	b.AddCall("A/get", nil)
	req, _ := b.Build()

	ft := &fakeTransport{status: http.StatusOK, body: `{"unexpected":true}`}
	_, err := Run(context.Background(), ft, req)
	var malformed *wire.MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestRun_PreservesOrder(t *testing.T) {
	b := NewBuilder(wire.CapabilityCore)
	b.AddCall("A/get", nil)
	b.AddCall("B/get", nil)
	req, _ := b.Build()

	ft := &fakeTransport{
		status: http.StatusOK,
		body:   `{"methodResponses":[["A/get",{"n":1},"0"],["B/get",{"n":2},"1"]],"sessionState":"s"}`,
	}
	resp, err := Run(context.Background(), ft, req)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if resp.MethodResponses[0].Name != "A/get" || resp.MethodResponses[1].Name != "B/get" {
		t.Errorf("responses reordered: %+v", resp.MethodResponses)
	}
}
