package mail

import (
	"context"
	"strings"

	"github.com/jarrod-lowe/jmap-client/pkg/batch"
	"github.com/jarrod-lowe/jmap-client/pkg/project"
	"github.com/jarrod-lowe/jmap-client/pkg/session"
	"github.com/jarrod-lowe/jmap-client/pkg/value"
	"github.com/jarrod-lowe/jmap-client/pkg/wire"
)

// RoleDrafts is the mailbox role the orchestrator files drafts under.
const RoleDrafts = "drafts"

// ResolveIdentity lists the account's sending identities in its own batch
// and returns the one whose address matches, comparing case-insensitively.
func ResolveIdentity(ctx context.Context, c *session.Client, address string) (*Identity, error) {
	accountID, err := c.PrimaryAccount(wire.CapabilitySubmission)
	if err != nil {
		return nil, err
	}

	b := batch.NewBuilder(wire.CapabilityCore, wire.CapabilitySubmission)
	clientID := b.AddCall("Identity/get", value.Mapping{
		"accountId": value.Str(accountID),
		"ids":       value.Null{},
	})
	req, err := b.Build()
	if err != nil {
		return nil, err
	}

	resp, err := c.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	mr, ok := resp.ByClientID(clientID)
	if !ok {
		return nil, wire.NewMalformedResponseError("no response for Identity/get")
	}
	if callErr := mr.CallError(); callErr != nil {
		return nil, callErr
	}

	identities, err := project.Seq[Identity](mr.Args.GetSequence("list"))
	if err != nil {
		return nil, err
	}
	for i := range identities {
		if strings.EqualFold(identities[i].Email, address) {
			return &identities[i], nil
		}
	}
	return nil, &IdentityNotFoundError{Address: address}
}

// ResolveMailbox lists the account's mailboxes in its own batch and returns
// the one with the given role.
func ResolveMailbox(ctx context.Context, c *session.Client, role string) (*Mailbox, error) {
	accountID, err := c.PrimaryAccount(wire.CapabilityMail)
	if err != nil {
		return nil, err
	}

	b := batch.NewBuilder(wire.CapabilityCore, wire.CapabilityMail)
	clientID := b.AddCall("Mailbox/get", value.Mapping{
		"accountId": value.Str(accountID),
		"ids":       value.Null{},
	})
	req, err := b.Build()
	if err != nil {
		return nil, err
	}

	resp, err := c.Run(ctx, req)
	if err != nil {
		return nil, err
	}
	mr, ok := resp.ByClientID(clientID)
	if !ok {
		return nil, wire.NewMalformedResponseError("no response for Mailbox/get")
	}
	if callErr := mr.CallError(); callErr != nil {
		return nil, callErr
	}

	mailboxes, err := project.Seq[Mailbox](mr.Args.GetSequence("list"))
	if err != nil {
		return nil, err
	}
	for i := range mailboxes {
		if mailboxes[i].Role == role {
			return &mailboxes[i], nil
		}
	}
	return nil, &MailboxNotFoundError{Role: role}
}
