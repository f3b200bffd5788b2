package mail

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jarrod-lowe/jmap-client/pkg/batch"
	"github.com/jarrod-lowe/jmap-client/pkg/project"
	"github.com/jarrod-lowe/jmap-client/pkg/session"
	"github.com/jarrod-lowe/jmap-client/pkg/value"
	"github.com/jarrod-lowe/jmap-client/pkg/wire"
)

// sendState tracks the orchestration through its two build phases. The
// terminal outcomes are Sent (a Submission is returned) and Failed (a
// SendError is returned); neither is persisted anywhere.
type sendState int

const (
	stateComposing sendState = iota
	stateSubmitting
)

func (s sendState) String() string {
	if s == stateComposing {
		return "composing"
	}
	return "submitting"
}

// Sender runs send orchestrations against one session. The identity and
// drafts mailbox are resolved once, each in its own batch, before the first
// send; the extra round trips buy us not needing cross-batch references.
type Sender struct {
	client   *session.Client
	identity *Identity
	drafts   *Mailbox
}

// NewSender resolves the sending identity for fromAddress and the drafts
// mailbox, each in a separate batch.
func NewSender(ctx context.Context, c *session.Client, fromAddress string) (*Sender, error) {
	identity, err := ResolveIdentity(ctx, c, fromAddress)
	if err != nil {
		return nil, err
	}
	drafts, err := ResolveMailbox(ctx, c, RoleDrafts)
	if err != nil {
		return nil, err
	}
	return &Sender{client: c, identity: identity, drafts: drafts}, nil
}

// Identity returns the resolved sending identity.
func (s *Sender) Identity() *Identity {
	return s.identity
}

// Send creates the draft and its submission in one two-call batch. The
// submission's emailId is a creation-id reference ("#<draft>") to the draft
// created by the first call, and onSuccessDestroyEmail instructs the server
// to delete the draft once the submission is confirmed created. The commit
// of the transaction is server-side, not a separate delete call.
func (s *Sender) Send(ctx context.Context, req SendRequest) (*Submission, error) {
	tracer := otel.Tracer("jmap-client/mail")
	ctx, span := tracer.Start(ctx, "Mail.Send")
	defer span.End()
	span.SetAttributes(
		attribute.String("jmap.identity_id", s.identity.ID),
		attribute.Int("jmap.recipients", len(req.To)+len(req.CC)+len(req.BCC)),
	)

	accountID, err := s.client.PrimaryAccount(wire.CapabilitySubmission)
	if err != nil {
		return nil, err
	}

	draftCreationID := "draft-" + uuid.NewString()
	subCreationID := "sub-" + uuid.NewString()

	state := stateComposing
	span.SetAttributes(attribute.Stringer("jmap.send_state", state))
	b := batch.NewBuilder(wire.CapabilityCore, wire.CapabilityMail, wire.CapabilitySubmission)
	draftCallID := b.AddCall("Email/set", value.Mapping{
		"accountId": value.Str(accountID),
		"create": value.Mapping{
			draftCreationID: s.draftObject(req),
		},
	})

	state = stateSubmitting
	span.SetAttributes(attribute.Stringer("jmap.send_state", state))
	subCallID := b.AddCall("EmailSubmission/set", value.Mapping{
		"accountId": value.Str(accountID),
		"create": value.Mapping{
			subCreationID: value.Mapping{
				"emailId":    value.Str("#" + draftCreationID),
				"identityId": value.Str(s.identity.ID),
			},
		},
		"onSuccessDestroyEmail": value.Strings("#" + subCreationID),
	})

	built, err := b.Build()
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Run(ctx, built)
	if err != nil {
		return nil, err
	}

	return s.interpret(resp, draftCallID, subCallID, draftCreationID, subCreationID)
}

// draftObject builds the Email object for the draft: filed in the drafts
// mailbox, flagged $draft, with body parts as {partId, type} descriptors
// paired with a bodyValues mapping so one literal could back several parts.
func (s *Sender) draftObject(req SendRequest) value.Mapping {
	from := req.From
	if from == "" {
		from = s.identity.Email
	}
	bodyValues := value.Mapping{
		"text": value.Mapping{"value": value.Str(req.TextBody)},
	}
	draft := value.Mapping{
		"mailboxIds": value.Mapping{s.drafts.ID: value.Boolean(true)},
		"keywords":   value.Mapping{"$draft": value.Boolean(true)},
		"from":       addressList([]string{from}),
		"to":         addressList(req.To),
		"subject":    value.Str(req.Subject),
		"textBody": value.Seq(value.Mapping{
			"partId": value.Str("text"),
			"type":   value.Str("text/plain"),
		}),
	}
	if len(req.CC) > 0 {
		draft["cc"] = addressList(req.CC)
	}
	if len(req.BCC) > 0 {
		draft["bcc"] = addressList(req.BCC)
	}
	if req.HTMLBody != "" {
		bodyValues["html"] = value.Mapping{"value": value.Str(req.HTMLBody)}
		draft["htmlBody"] = value.Seq(value.Mapping{
			"partId": value.Str("html"),
			"type":   value.Str("text/html"),
		})
	}
	draft["bodyValues"] = bodyValues
	return draft
}

// interpret inspects both responses independently and decides the terminal
// outcome. An error object (a "type" key) in either response takes
// precedence over any notCreated inspection; the first notCreated failure
// is surfaced verbatim; Sent requires the submission's created mapping to
// hold exactly the expected creation-id.
func (s *Sender) interpret(resp *wire.Response, draftCallID, subCallID, draftCreationID, subCreationID string) (*Submission, error) {
	draftResp, ok := resp.ByClientID(draftCallID)
	if !ok {
		return nil, failed(fmt.Sprintf("no response for draft call %q", draftCallID), nil)
	}
	subResp, ok := resp.ByClientID(subCallID)
	if !ok {
		return nil, failed(fmt.Sprintf("no response for submission call %q", subCallID), nil)
	}

	for _, mr := range []wire.MethodResponse{draftResp, subResp} {
		if callErr := mr.CallError(); callErr != nil {
			return nil, failed(callErr.Error(), callErr)
		}
	}
	if err := notCreated(draftResp.Args, draftCreationID); err != nil {
		return nil, failed(err.Error(), err)
	}
	if err := notCreated(subResp.Args, subCreationID); err != nil {
		return nil, failed(err.Error(), err)
	}

	created := subResp.Args.GetMapping("created")
	record := created.GetMapping(subCreationID)
	if record == nil {
		return nil, failed(fmt.Sprintf("submission %q missing from created", subCreationID), nil)
	}
	submission, err := project.Project[Submission](record)
	if err != nil {
		return nil, failed(err.Error(), err)
	}
	if submission.IdentityID == "" {
		submission.IdentityID = s.identity.ID
	}
	return &submission, nil
}

// notCreated extracts a PartialCreationError for creationID, if present.
func notCreated(args value.Mapping, creationID string) error {
	entry := args.GetMapping("notCreated").GetMapping(creationID)
	if entry == nil {
		return nil
	}
	perr := &PartialCreationError{
		CreationID:  creationID,
		Type:        entry.GetString("type"),
		Description: entry.GetString("description"),
	}
	for _, p := range entry.GetSequence("properties") {
		if name, ok := p.(value.String); ok {
			perr.Properties = append(perr.Properties, string(name))
		}
	}
	return perr
}

func failed(reason string, cause error) *SendError {
	return &SendError{Reason: reason, Err: cause}
}

func addressList(addrs []string) value.Sequence {
	seq := make(value.Sequence, len(addrs))
	for i, a := range addrs {
		seq[i] = value.Mapping{"email": value.Str(a)}
	}
	return seq
}
