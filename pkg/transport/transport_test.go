package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func TestHTTP_Send_Headers(t *testing.T) {
	var gotAuth, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	tr := NewHTTP(server.URL, staticToken("secret-token"))
	body, status, err := tr.Send(context.Background(), []byte(`{"using":[]}`), nil)
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d, want 200", status)
	}
	if string(body) != `{"ok":true}` {
		t.Errorf("body = %s", body)
	}
	if gotAuth != "Bearer secret-token" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q", gotContentType)
	}
	if string(gotBody) != `{"using":[]}` {
		t.Errorf("request body = %s", gotBody)
	}
}

func TestHTTP_Send_NoRetryOnStatus(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	tr := NewHTTP(server.URL, staticToken("t"))
	_, status, err := tr.Send(context.Background(), []byte(`{}`), nil)
	if err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if status != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", status)
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 request for an answered status, got %d", calls)
	}
}

func TestHTTP_Send_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening any more

	tr := NewHTTP(server.URL, staticToken("t"))
	tr.MaxElapsed = 50 * time.Millisecond
	_, _, err := tr.Send(context.Background(), []byte(`{}`), nil)
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestHTTP_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		if r.Header.Get("Authorization") != "Bearer t" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"apiUrl":"https://api.example.com/jmap"}`))
	}))
	defer server.Close()

	tr := NewHTTP("", staticToken("t"))
	body, status, err := tr.Get(context.Background(), server.URL+"/.well-known/jmap")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if status != http.StatusOK {
		t.Errorf("status = %d", status)
	}
	if string(body) == "" {
		t.Error("expected a body")
	}
}
