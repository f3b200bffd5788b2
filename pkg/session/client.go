package session

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jarrod-lowe/jmap-client/pkg/batch"
	"github.com/jarrod-lowe/jmap-client/pkg/transport"
	"github.com/jarrod-lowe/jmap-client/pkg/wire"
)

// Client holds one authenticated JMAP session: the discovered Session
// object, the API transport, and a private copy of the credential.
//
// A Client is not safe for concurrent logical operations: it holds mutable
// session and credential state, so run one orchestration at a time per
// instance, or use one instance per operation.
type Client struct {
	session   *Session
	transport *transport.HTTP
	cred      []byte
}

// Connect performs the bearer-authenticated session discovery GET against
// sessionURL and returns an authenticated Client. The token is copied; the
// copy is zeroed on Logout and on every failed connect path.
func Connect(ctx context.Context, sessionURL, token string) (*Client, error) {
	tracer := otel.Tracer("jmap-client/session")
	ctx, span := tracer.Start(ctx, "Session.Connect")
	defer span.End()
	span.SetAttributes(attribute.String("jmap.session_url", sessionURL))

	c := &Client{cred: []byte(token)}
	c.transport = transport.NewHTTP("", c)

	body, status, err := c.transport.Get(ctx, sessionURL)
	if err != nil {
		c.zeroCredential()
		return nil, err
	}
	if status != http.StatusOK {
		c.zeroCredential()
		return nil, &batch.ProtocolError{StatusCode: status}
	}

	sess, err := decodeSession(body)
	if err != nil {
		c.zeroCredential()
		return nil, err
	}
	c.session = sess
	c.transport.Endpoint = sess.APIUrl
	return c, nil
}

// Token implements transport.TokenSource.
func (c *Client) Token() string {
	return string(c.cred)
}

// Session returns the discovered session object.
func (c *Client) Session() *Session {
	return c.session
}

// PrimaryAccount returns the session's primary account id for a capability.
func (c *Client) PrimaryAccount(capability string) (string, error) {
	if c.session == nil {
		return "", fmt.Errorf("not connected")
	}
	return c.session.PrimaryAccount(capability)
}

// Run sends a built batch request to the session's API endpoint.
func (c *Client) Run(ctx context.Context, req *wire.Request) (*wire.Response, error) {
	if c.session == nil || len(c.cred) == 0 {
		return nil, fmt.Errorf("not connected")
	}
	return batch.Run(ctx, c.transport, req)
}

// Logout discards the session and overwrites the credential bytes. The
// credential is zeroed, not merely dereferenced, so it does not linger
// until collection.
func (c *Client) Logout() {
	c.zeroCredential()
	c.session = nil
}

func (c *Client) zeroCredential() {
	for i := range c.cred {
		c.cred[i] = 0
	}
	c.cred = nil
}
