package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/resend/resend-go/v2"
)

// ResendMailer delivers email through the Resend HTTP API.
type ResendMailer struct {
	client *resend.Client
	from   string
	log    *slog.Logger
}

// NewResendMailer creates a mailer. httpClient may be nil.
func NewResendMailer(apiKey, from string, httpClient *http.Client, log *slog.Logger) *ResendMailer {
	client := resend.NewClient(apiKey)
	if httpClient != nil {
		client = resend.NewCustomClient(httpClient, apiKey)
	}

	return &ResendMailer{
		client: client,
		from:   from,
		log:    log.With("component", "resend"),
	}
}

func (m *ResendMailer) Send(ctx context.Context, msg Message) error {
	req := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
	}

	sent, err := m.client.Emails.SendWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("send email via resend: %w", err)
	}

	m.log.Info("email sent", "to", msg.To, "id", sent.Id)

	return nil
}
