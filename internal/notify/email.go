package notify

import (
	"fmt"
	"os"

	"gopkg.in/gomail.v2"

	"github.com/yoyole123/gdrive-transcriber/internal/config"
)

// Emailer delivers transcript notifications over SMTP
type Emailer struct {
	cfg config.EmailConfig
}

// NewEmailer creates an Emailer from the email configuration
func NewEmailer(cfg config.EmailConfig) *Emailer {
	return &Emailer{cfg: cfg}
}

// Configured reports whether enough settings are present to send mail
func (e *Emailer) Configured() bool {
	return e.cfg.AppPassword != "" && e.cfg.SenderEmail != "" && e.cfg.To != ""
}

// SendTranscript sends the transcript email, attaching the transcript file
// when attachmentPath exists.
func (e *Emailer) SendTranscript(subject, body, attachmentPath string) error {
	if !e.Configured() {
		return fmt.Errorf("email configuration incomplete")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", e.cfg.SenderEmail)
	m.SetHeader("To", e.cfg.To)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if attachmentPath != "" {
		if _, err := os.Stat(attachmentPath); err == nil {
			m.Attach(attachmentPath)
		}
	}

	d := gomail.NewDialer(e.cfg.SMTPServer, e.cfg.SMTPPort, e.cfg.SenderEmail, e.cfg.AppPassword)
	d.SSL = e.cfg.SMTPPort == 465

	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	return nil
}
