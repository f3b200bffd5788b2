// Command jmap-send sends one email through a JMAP server: it discovers the
// session, resolves the sending identity and drafts mailbox, then creates
// the draft and its submission in a single batch.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jarrod-lowe/jmap-client/pkg/mail"
	"github.com/jarrod-lowe/jmap-client/pkg/session"
)

var (
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
)

type options struct {
	SessionURL string
	From       string
	To         []string
	CC         []string
	BCC        []string
	Subject    string
	Body       string
	HTMLBody   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:           "jmap-send",
		Short:         "Send an email via JMAP",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.SessionURL == "" {
				opts.SessionURL = viper.GetString("session_url")
			}
			token := viper.GetString("token")
			if opts.SessionURL == "" || token == "" {
				return fmt.Errorf("session URL and JMAP_TOKEN are required")
			}
			return run(cmd.Context(), opts, token)
		},
	}

	cmd.Flags().StringVar(&opts.SessionURL, "session-url", "", "JMAP session discovery URL (env JMAP_SESSION_URL)")
	cmd.Flags().StringVar(&opts.From, "from", "", "sender address; must match one of the account's identities")
	cmd.Flags().StringSliceVar(&opts.To, "to", nil, "recipient addresses")
	cmd.Flags().StringSliceVar(&opts.CC, "cc", nil, "cc addresses")
	cmd.Flags().StringSliceVar(&opts.BCC, "bcc", nil, "bcc addresses")
	cmd.Flags().StringVar(&opts.Subject, "subject", "", "subject line")
	cmd.Flags().StringVar(&opts.Body, "body", "", "plain-text body")
	cmd.Flags().StringVar(&opts.HTMLBody, "html-body", "", "optional HTML body")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("body")

	viper.SetEnvPrefix("jmap")
	viper.BindEnv("session_url")
	viper.BindEnv("token")

	return cmd
}

func run(ctx context.Context, opts *options, token string) error {
	requestID := uuid.NewString()

	client, err := session.Connect(ctx, opts.SessionURL, token)
	if err != nil {
		logger.ErrorContext(ctx, "Session discovery failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer client.Logout()

	logger.InfoContext(ctx, "Connected",
		slog.String("request_id", requestID),
		slog.String("username", client.Session().Username),
	)

	sender, err := mail.NewSender(ctx, client, opts.From)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to resolve identity or drafts mailbox",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return err
	}

	submission, err := sender.Send(ctx, mail.SendRequest{
		From:     opts.From,
		To:       opts.To,
		CC:       opts.CC,
		BCC:      opts.BCC,
		Subject:  opts.Subject,
		TextBody: opts.Body,
		HTMLBody: opts.HTMLBody,
	})
	if err != nil {
		logger.ErrorContext(ctx, "Send failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()),
		)
		return err
	}

	logger.InfoContext(ctx, "Email sent",
		slog.String("request_id", requestID),
		slog.String("submission_id", submission.ID),
		slog.String("identity_id", submission.IdentityID),
		slog.String("undo_status", submission.UndoStatus),
	)
	fmt.Println(submission.ID)
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
