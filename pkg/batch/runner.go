package batch

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jarrod-lowe/jmap-client/pkg/transport"
	"github.com/jarrod-lowe/jmap-client/pkg/wire"
)

// ProtocolError is a transport-level non-success: the server answered the
// batch with an HTTP status outside 2xx. The whole batch is aborted; partial
// batch success is not modeled.
type ProtocolError struct {
	StatusCode int
	Body       string
}

func (e *ProtocolError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("protocolError: server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("protocolError: server returned status %d: %s", e.StatusCode, e.Body)
}

// Run sends the built request over the transport and decodes the ordered
// response list. Responses are returned exactly as the server ordered them;
// callers correlate by clientId via Response.ByClientID.
func Run(ctx context.Context, t transport.Transport, req *wire.Request) (*wire.Response, error) {
	tracer := otel.Tracer("jmap-client/batch")
	ctx, span := tracer.Start(ctx, "Batch.Run")
	defer span.End()

	span.SetAttributes(
		attribute.Int("jmap.call_count", len(req.MethodCalls)),
		attribute.StringSlice("jmap.methods", methodNames(req)),
	)

	body, err := req.Encode()
	if err != nil {
		return nil, err
	}

	respBody, status, err := t.Send(ctx, body, nil)
	if err != nil {
		return nil, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, &ProtocolError{StatusCode: status, Body: truncate(respBody, 512)}
	}

	resp, err := wire.DecodeResponse(respBody)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("jmap.session_state", resp.SessionState))
	return resp, nil
}

func methodNames(req *wire.Request) []string {
	names := make([]string, len(req.MethodCalls))
	for i, call := range req.MethodCalls {
		names[i] = call.Name
	}
	return names
}

func truncate(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
