// Package mail orchestrates sending email over JMAP: resolving the sender
// identity and drafts mailbox in their own batches, then creating the draft
// and its submission in a single two-call batch where the submission
// references the draft by creation-id and the server destroys the draft
// only once the submission is confirmed created.
package mail

import (
	"fmt"
	"strings"
)

// Identity is a sending identity per RFC 8621 Section 6.
type Identity struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	ReplyTo []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"replyTo"`
	MayDelete bool `json:"mayDelete"`
}

// Mailbox is a mailbox record per RFC 8621 Section 2.
type Mailbox struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	ParentID     string `json:"parentId"`
	Role         string `json:"role"`
	TotalEmails  int64  `json:"totalEmails"`
	UnreadEmails int64  `json:"unreadEmails"`
}

// Submission is the created EmailSubmission record, the typed result of a
// successful send.
type Submission struct {
	ID         string `json:"id"`
	IdentityID string `json:"identityId"`
	EmailID    string `json:"emailId"`
	ThreadID   string `json:"threadId"`
	SendAt     string `json:"sendAt"`
	UndoStatus string `json:"undoStatus"`
}

// Address is one email address with an optional display name.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// SendRequest describes one email to send.
type SendRequest struct {
	From     string
	To       []string
	CC       []string
	BCC      []string
	Subject  string
	TextBody string
	HTMLBody string // optional; when set the email carries both parts
}

// IdentityNotFoundError is returned when no identity's address matches the
// requested sender.
type IdentityNotFoundError struct {
	Address string
}

func (e *IdentityNotFoundError) Error() string {
	return fmt.Sprintf("identityNotFound: no identity matches address %q", e.Address)
}

// MailboxNotFoundError is returned when no mailbox has the requested role.
type MailboxNotFoundError struct {
	Role string
}

func (e *MailboxNotFoundError) Error() string {
	return fmt.Sprintf("mailboxNotFound: no mailbox with role %q", e.Role)
}

// PartialCreationError is a per-object failure inside an otherwise
// successful set call: the response's notCreated mapping names the
// creation-id with an error type, description and any offending property
// names, surfaced here verbatim.
type PartialCreationError struct {
	CreationID  string
	Type        string
	Description string
	Properties  []string
}

func (e *PartialCreationError) Error() string {
	msg := fmt.Sprintf("notCreated %q: %s", e.CreationID, e.Type)
	if e.Description != "" {
		msg += ": " + e.Description
	}
	if len(e.Properties) > 0 {
		msg += " (properties: " + strings.Join(e.Properties, ", ") + ")"
	}
	return msg
}

// SendError is the terminal Failed outcome of a send orchestration. Reason
// is assembled from whichever error information was present so a caller can
// diagnose without inspecting raw JSON.
type SendError struct {
	Reason string
	Err    error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("sendFailed: %s", e.Reason)
}

func (e *SendError) Unwrap() error {
	return e.Err
}
