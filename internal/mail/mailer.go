package mail

import (
	"context"
	"fmt"

	gomail "github.com/wneessen/go-mail"

	"code404/api/internal/config"
)

// Mailer delivers generated member credentials over SMTP.
type Mailer struct {
	client *gomail.Client
	from   string
}

func New(cfg config.MailConfig) (*Mailer, error) {
	client, err := gomail.NewClient(cfg.Host,
		gomail.WithPort(cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(cfg.Username),
		gomail.WithPassword(cfg.Password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
	)
	if err != nil {
		return nil, fmt.Errorf("init mail client: %w", err)
	}

	return &Mailer{client: client, from: cfg.From}, nil
}

func (m *Mailer) SendCredentials(ctx context.Context, to, name, username, password string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.from); err != nil {
		return fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("set to: %w", err)
	}
	msg.Subject("Your Code404 member credentials")
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf(
		"Hi %s,\n\nYour login credentials have been updated.\n\nUsername: %s\nPassword: %s\n\nPlease sign in and keep these safe.\n",
		name, username, password,
	))

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send credentials mail: %w", err)
	}
	return nil
}
