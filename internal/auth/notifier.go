package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

const otpSubject = "Your verification code"

// Notifier delivers one-time passcodes to the account owner
type Notifier interface {
	SendOTP(ctx context.Context, email, code string) error
}

func otpBody(code string) string {
	return fmt.Sprintf("Your OTP is %s. It will expire in %d minutes.", code, int(otpExpiry/time.Minute))
}

// SMTPConfig holds the outbound mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTPNotifier sends passcodes over SMTP
type SMTPNotifier struct {
	cfg SMTPConfig
}

// NewSMTPNotifier creates a notifier; the connection is dialed per message.
func NewSMTPNotifier(cfg SMTPConfig) *SMTPNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &SMTPNotifier{cfg: cfg}
}

func (n *SMTPNotifier) SendOTP(ctx context.Context, email, code string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return fmt.Errorf("set from address: %w", err)
	}
	if err := msg.To(email); err != nil {
		return fmt.Errorf("set to address: %w", err)
	}
	msg.Subject(otpSubject)
	msg.SetBodyString(mail.TypeTextPlain, otpBody(code))

	opts := []mail.Option{
		mail.WithPort(n.cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(n.cfg.Timeout),
	}
	if n.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(n.cfg.Username),
			mail.WithPassword(n.cfg.Password),
		)
	}
	client, err := mail.NewClient(n.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("create mail client: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, n.cfg.Timeout)
	defer cancel()
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// LogNotifier writes the passcode to the log instead of sending it.
// Only for local development.
type LogNotifier struct{}

func (LogNotifier) SendOTP(ctx context.Context, email, code string) error {
	zerolog.Ctx(ctx).Warn().
		Str("email", maskEmail(email)).
		Str("otp", code).
		Msg("dev mode: otp not sent, " + otpBody(code))
	return nil
}
