package main

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRootCmd_MissingRequiredFlags(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error without required flags")
	}
}

func TestRootCmd_MissingToken(t *testing.T) {
	t.Setenv("JMAP_TOKEN", "")
	t.Setenv("JMAP_SESSION_URL", "")
	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"--from", "john@example.com",
		"--to", "jane@example.com",
		"--body", "hello",
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.Execute()
	if err == nil {
		t.Fatal("expected an error without a token")
	}
	if !strings.Contains(err.Error(), "JMAP_TOKEN") {
		t.Errorf("error = %v, want it to mention JMAP_TOKEN", err)
	}
}

func TestRootCmd_EndToEnd(t *testing.T) {
	apiCalls := 0
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	defer server.Close()

	mux.HandleFunc("/session", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"primaryAccounts": {
				"urn:ietf:params:jmap:mail": "acc1",
				"urn:ietf:params:jmap:submission": "acc1"
			},
			"username": "john@example.com",
			"apiUrl": "%s/api",
			"state": "s0"
		}`, server.URL)
	})
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		apiCalls++
		switch {
		case strings.Contains(string(body), "Identity/get"):
			w.Write([]byte(`{"methodResponses":[["Identity/get",{"list":[{"id":"id1","email":"john@example.com"}]},"0"]],"sessionState":"s"}`))
		case strings.Contains(string(body), "Mailbox/get"):
			w.Write([]byte(`{"methodResponses":[["Mailbox/get",{"list":[{"id":"drafts","role":"drafts"}]},"0"]],"sessionState":"s"}`))
		default:
			// Echo the creation ids out of the request so the orchestrator
			// finds its submission in "created".
			draftID := extractCreationID(string(body), "Email/set")
			subID := extractCreationID(string(body), "EmailSubmission/set")
			fmt.Fprintf(w, `{"methodResponses":[
				["Email/set",{"created":{%q:{"id":"d1"}}},"0"],
				["EmailSubmission/set",{"created":{%q:{"id":"sub1","identityId":"id1","undoStatus":"final"}}},"1"]
			],"sessionState":"s"}`, draftID, subID)
		}
	})

	t.Setenv("JMAP_TOKEN", "tok")
	cmd := newRootCmd()
	cmd.SetArgs([]string{
		"--session-url", server.URL + "/session",
		"--from", "john@example.com",
		"--to", "jane@example.com",
		"--subject", "Test Email",
		"--body", "This is a test email body.",
	})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if apiCalls != 3 {
		t.Errorf("expected 3 batches (identity, mailbox, send), got %d", apiCalls)
	}
}

// extractCreationID pulls the single create key for the call with the given
// method name out of a raw request body.
func extractCreationID(body, method string) string {
	idx := strings.Index(body, method)
	if idx < 0 {
		return ""
	}
	marker := `"create":{"`
	rest := body[idx:]
	start := strings.Index(rest, marker)
	if start < 0 {
		return ""
	}
	rest = rest[start+len(marker):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return ""
	}
	return rest[:end]
}
