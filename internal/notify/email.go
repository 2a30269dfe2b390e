package notify

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/wneessen/go-mail"
)

// EmailSubject is the subject line of every failure report.
const EmailSubject = "Meetup Announcer Script Error"

// EmailConfig holds SMTP settings.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	Timeout  time.Duration
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// EmailNotifier sends the report over SMTP with the log file and the
// screenshot attached when they exist.
type EmailNotifier struct {
	cfg    EmailConfig
	sender mailSender
}

// NewEmailNotifier builds an SMTP client. Port 465 uses implicit TLS;
// other ports require STARTTLS.
func NewEmailNotifier(cfg EmailConfig) (*EmailNotifier, error) {
	if len(cfg.To) == 0 {
		return nil, errors.New("email: no recipients")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	var opts []mail.Option
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
	}
	// The TLS policy option picks its own default port; the explicit port
	// must come after it.
	opts = append(opts, mail.WithPort(cfg.Port), mail.WithTimeout(cfg.Timeout))
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("email: client: %w", err)
	}
	return &EmailNotifier{cfg: cfg, sender: client}, nil
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Notify(ctx context.Context, r Report) error {
	msg, err := e.message(r)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	if err := e.sender.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("email: send: %w", err)
	}
	return nil
}

func (e *EmailNotifier) message(r Report) (*mail.Msg, error) {
	from := e.cfg.From
	if from == "" {
		from = e.cfg.Username
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("email: from: %w", err)
	}
	if err := msg.To(e.cfg.To...); err != nil {
		return nil, fmt.Errorf("email: to: %w", err)
	}
	msg.Subject(EmailSubject)
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, body(r))

	for _, path := range []string{r.LogPath, r.ScreenshotPath} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			log.Printf("notify: run=%s attachment %s skipped: %v", r.RunID, path, err)
			continue
		}
		msg.AttachFile(path)
	}
	return msg, nil
}

func body(r Report) string {
	return fmt.Sprintf("Group: %s\nRun: %s\n\n%s\nThe run log is attached.\n", r.GroupURL, r.RunID, r.Message)
}
