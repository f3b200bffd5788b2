package wire

import (
	"encoding/json"
	"fmt"

	"github.com/jarrod-lowe/jmap-client/pkg/value"
)

// MalformedResponseError is returned when a batch response body does not
// have the expected top-level shape.
type MalformedResponseError struct {
	Description string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformedBatchResponse: %s", e.Description)
}

// NewMalformedResponseError creates a MalformedResponseError.
func NewMalformedResponseError(description string) *MalformedResponseError {
	return &MalformedResponseError{Description: description}
}

// Request is one JMAP batch request body. It is built fresh per logical
// operation and never reused or mutated after being sent.
type Request struct {
	Using       []string          `json:"using"`
	MethodCalls []MethodCall      `json:"methodCalls"`
	CreatedIDs  map[string]string `json:"createdIds,omitempty"`
}

// Encode serializes the request body.
func (r *Request) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// Response is one JMAP batch response body: the ordered method responses, a
// server state token, and the creation-id to server-id mapping when any
// objects were created.
type Response struct {
	MethodResponses []MethodResponse  `json:"methodResponses"`
	SessionState    string            `json:"sessionState"`
	CreatedIDs      map[string]string `json:"createdIds,omitempty"`
}

// DecodeResponse parses a batch response body. Any shape other than an
// object carrying a methodResponses array fails with
// MalformedResponseError.
func DecodeResponse(data []byte) (*Response, error) {
	v, err := value.Decode(data)
	if err != nil {
		return nil, NewMalformedResponseError(err.Error())
	}
	top, ok := v.(value.Mapping)
	if !ok {
		return nil, NewMalformedResponseError(
			fmt.Sprintf("expected a JSON object, got %s", v.Kind()))
	}
	rawResponses, ok := top["methodResponses"]
	if !ok {
		return nil, NewMalformedResponseError("missing methodResponses")
	}
	seq, ok := rawResponses.(value.Sequence)
	if !ok {
		return nil, NewMalformedResponseError(
			fmt.Sprintf("methodResponses must be an array, got %s", rawResponses.Kind()))
	}

	resp := &Response{
		MethodResponses: make([]MethodResponse, 0, len(seq)),
		SessionState:    top.GetString("sessionState"),
	}
	for i, item := range seq {
		encoded, err := value.Encode(item)
		if err != nil {
			return nil, NewMalformedResponseError(err.Error())
		}
		var mr MethodResponse
		if err := mr.UnmarshalJSON(encoded); err != nil {
			return nil, NewMalformedResponseError(
				fmt.Sprintf("methodResponses[%d]: %s", i, err.Error()))
		}
		resp.MethodResponses = append(resp.MethodResponses, mr)
	}

	if created := top.GetMapping("createdIds"); created != nil {
		resp.CreatedIDs = make(map[string]string, len(created))
		for k, cv := range created {
			if s, ok := cv.(value.String); ok {
				resp.CreatedIDs[k] = string(s)
			}
		}
	}
	return resp, nil
}

// ByClientID returns the response correlated with clientID. Position is
// tried first as an optimization when clientIds are the builder's sequential
// integers, but correlation is always confirmed by clientId, never assumed
// from order.
func (r *Response) ByClientID(clientID string) (MethodResponse, bool) {
	if idx, ok := sequentialIndex(clientID); ok && idx < len(r.MethodResponses) {
		if r.MethodResponses[idx].ClientID == clientID {
			return r.MethodResponses[idx], true
		}
	}
	for _, mr := range r.MethodResponses {
		if mr.ClientID == clientID {
			return mr, true
		}
	}
	return MethodResponse{}, false
}

func sequentialIndex(clientID string) (int, bool) {
	idx := 0
	if clientID == "" {
		return 0, false
	}
	for _, c := range clientID {
		if c < '0' || c > '9' {
			return 0, false
		}
		idx = idx*10 + int(c-'0')
		if idx > 1<<20 {
			return 0, false
		}
	}
	return idx, true
}
