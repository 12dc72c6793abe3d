// Package email delivers registration decision mail. Dispatch is
// fire-and-forget: the workflow never fails or rolls back because mail could
// not be sent, so every sender here reports errors for logging only.
package email

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"github.com/wneessen/go-mail"

	id "orgportal/pkg/domain"
)

// Config holds SMTP settings for the outbound mail collaborator.
type Config struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	From     string
}

const acceptedTemplate = `Hello {{.UserName}},

Your registration request has been accepted.
Your user ID is {{.UserID}}. You can now sign in to the portal.
`

const rejectedTemplate = `Hello {{.UserName}},

Your registration request has been rejected.
Please contact your organization's manager for details.
`

var (
	acceptedTmpl = template.Must(template.New("accepted").Parse(acceptedTemplate))
	rejectedTmpl = template.Must(template.New("rejected").Parse(rejectedTemplate))
)

// Mailer sends decision mail over SMTP.
type Mailer struct {
	cfg    Config
	client *mail.Client
	logger *slog.Logger
}

// NewMailer creates an SMTP-backed mailer.
func NewMailer(cfg Config, logger *slog.Logger) (*Mailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}
	if cfg.Username != "" && cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create mail client: %w", err)
	}
	return &Mailer{cfg: cfg, client: client, logger: logger}, nil
}

// NotifyDecision informs a requester that their registration was decided.
// newUserID is set only on acceptance.
func (m *Mailer) NotifyDecision(ctx context.Context, address, userName string, accepted bool, newUserID id.UserID) error {
	subject := "Your registration request was rejected"
	tmpl := rejectedTmpl
	if accepted {
		subject = "Your registration request was accepted"
		tmpl = acceptedTmpl
	}

	var body bytes.Buffer
	err := tmpl.Execute(&body, struct {
		UserName string
		UserID   string
	}{UserName: userName, UserID: newUserID.String()})
	if err != nil {
		return fmt.Errorf("render decision mail: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return fmt.Errorf("set mail sender: %w", err)
	}
	if err := msg.To(address); err != nil {
		return fmt.Errorf("set mail recipient: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body.String())

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send decision mail: %w", err)
	}
	m.logger.InfoContext(ctx, "decision mail sent", "to", address, "accepted", accepted)
	return nil
}

// LogNotifier writes decision notices to the log instead of sending mail.
// Used in development and tests where no SMTP host is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) NotifyDecision(ctx context.Context, address, userName string, accepted bool, newUserID id.UserID) error {
	n.logger.InfoContext(ctx, "decision notice (mail disabled)",
		"to", address,
		"user_name", userName,
		"accepted", accepted,
		"new_user_id", newUserID,
	)
	return nil
}
