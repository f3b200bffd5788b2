// Package transport carries JMAP request bodies over HTTP. The Transport
// interface is the only network capability the rest of the client assumes:
// send bytes with headers, get bytes and a status code back.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// TransportError is returned when the exchange itself fails: connection
// refused, timeout, or an unreadable response body. It is distinct from a
// non-success HTTP status, which the batch layer reports as a protocol
// error because the server did answer.
type TransportError struct {
	Description string
	Err         error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transportError: %s", e.Description)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Transport exchanges one request body for one response body.
type Transport interface {
	Send(ctx context.Context, body []byte, header http.Header) ([]byte, int, error)
}

// TokenSource supplies the current bearer token. The session client owns
// the credential bytes; the transport never retains a copy.
type TokenSource interface {
	Token() string
}

// HTTP is a Transport that POSTs to a fixed endpoint with bearer
// authentication. Network-level failures are retried with exponential
// backoff; HTTP statuses are never retried here, since retry policy for
// answered requests belongs to the caller.
type HTTP struct {
	Endpoint string
	Tokens   TokenSource
	Client   *http.Client
	// MaxElapsed bounds the total retry window. Zero means DefaultMaxElapsed.
	MaxElapsed time.Duration
}

// DefaultMaxElapsed is the default total retry window for network failures.
const DefaultMaxElapsed = 30 * time.Second

// NewHTTP creates an HTTP transport for the given endpoint.
func NewHTTP(endpoint string, tokens TokenSource) *HTTP {
	return &HTTP{
		Endpoint: endpoint,
		Tokens:   tokens,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Send POSTs the body and returns the response body and status code.
func (t *HTTP) Send(ctx context.Context, body []byte, header http.Header) ([]byte, int, error) {
	maxElapsed := t.MaxElapsed
	if maxElapsed == 0 {
		maxElapsed = DefaultMaxElapsed
	}
	policy := backoff.WithContext(backoff.NewExponentialBackOff(
		backoff.WithMaxElapsedTime(maxElapsed),
	), ctx)

	var respBody []byte
	var status int
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		t.applyHeaders(req, header)

		resp, err := t.Client.Do(req)
		if err != nil {
			return err // retryable: the request never got an answer
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		respBody = data
		status = resp.StatusCode
		return nil
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, 0, &TransportError{
			Description: fmt.Sprintf("POST %s failed: %v", t.Endpoint, err),
			Err:         err,
		}
	}
	return respBody, status, nil
}

// Get performs a bearer-authenticated GET against url, used for session
// discovery, which lives on a different URL than the API endpoint.
func (t *HTTP) Get(ctx context.Context, url string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, &TransportError{
			Description: fmt.Sprintf("GET %s failed: %v", url, err),
			Err:         err,
		}
	}
	t.applyHeaders(req, nil)

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, 0, &TransportError{
			Description: fmt.Sprintf("GET %s failed: %v", url, err),
			Err:         err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, &TransportError{
			Description: fmt.Sprintf("GET %s: reading body failed: %v", url, err),
			Err:         err,
		}
	}
	return data, resp.StatusCode, nil
}

func (t *HTTP) applyHeaders(req *http.Request, extra http.Header) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.Tokens != nil {
		if token := t.Tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}
