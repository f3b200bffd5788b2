// Package session discovers the JMAP session object and owns the client's
// credential lifecycle. The session object (RFC 8620 Section 2) tells the
// client which capabilities the server offers, which accounts the user can
// reach, and the API endpoint for subsequent batch POSTs.
package session

import (
	"encoding/json"
	"fmt"

	"github.com/jarrod-lowe/jmap-client/pkg/value"
)

// Session is the JMAP Session object.
type Session struct {
	Capabilities    map[string]CoreCapability `json:"capabilities"`
	Accounts        map[string]Account        `json:"accounts"`
	PrimaryAccounts map[string]string         `json:"primaryAccounts"`
	Username        string                    `json:"username"`
	APIUrl          string                    `json:"apiUrl"`
	DownloadUrl     string                    `json:"downloadUrl"`
	UploadUrl       string                    `json:"uploadUrl"`
	EventSourceUrl  string                    `json:"eventSourceUrl"`
	State           string                    `json:"state"`
}

// CoreCapability describes the urn:ietf:params:jmap:core capability limits.
type CoreCapability struct {
	MaxSizeUpload         int64    `json:"maxSizeUpload"`
	MaxConcurrentUpload   int      `json:"maxConcurrentUpload"`
	MaxSizeRequest        int64    `json:"maxSizeRequest"`
	MaxConcurrentRequests int      `json:"maxConcurrentRequests"`
	MaxCallsInRequest     int      `json:"maxCallsInRequest"`
	MaxObjectsInGet       int      `json:"maxObjectsInGet"`
	MaxObjectsInSet       int      `json:"maxObjectsInSet"`
	CollationAlgorithms   []string `json:"collationAlgorithms"`
}

// Account is one account reachable through the session.
type Account struct {
	Name                string         `json:"name"`
	IsPersonal          bool           `json:"isPersonal"`
	IsReadOnly          bool           `json:"isReadOnly"`
	AccountCapabilities map[string]any `json:"accountCapabilities"`
}

// MalformedSessionError is returned when the discovery response cannot be
// decoded into a usable session object.
type MalformedSessionError struct {
	Description string
}

func (e *MalformedSessionError) Error() string {
	return fmt.Sprintf("malformedSession: %s", e.Description)
}

// decodeSession parses a session discovery body.
func decodeSession(data []byte) (*Session, error) {
	v, err := value.Decode(data)
	if err != nil {
		return nil, &MalformedSessionError{Description: err.Error()}
	}
	top, ok := v.(value.Mapping)
	if !ok {
		return nil, &MalformedSessionError{
			Description: fmt.Sprintf("expected a JSON object, got %s", v.Kind()),
		}
	}
	if top.GetString("apiUrl") == "" {
		return nil, &MalformedSessionError{Description: "missing apiUrl"}
	}

	s := &Session{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, &MalformedSessionError{Description: err.Error()}
	}
	return s, nil
}

// PrimaryAccount returns the primary account id for a capability URI.
func (s *Session) PrimaryAccount(capability string) (string, error) {
	id, ok := s.PrimaryAccounts[capability]
	if !ok || id == "" {
		return "", fmt.Errorf("no primary account for capability %q", capability)
	}
	return id, nil
}
