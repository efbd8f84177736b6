package mail

import (
	"crypto/tls"

	"gopkg.in/gomail.v2"

	"github.com/vigilantes/alertmail/pkg/config"
)

// Message is the content of one alert email. The recipient is passed
// separately to Manager.Send.
type Message struct {
	Subject string
	Body    string
	HTML    bool
}

// Sender performs a single SMTP delivery attempt.
type Sender interface {
	Send(cfg *config.EmailConfig, recipient string, msg Message) error
}

// smtpSender delivers through gomail. One dial per attempt; the dialer
// negotiates STARTTLS on submission ports and implicit TLS on 465.
type smtpSender struct{}

// NewSMTPSender returns the production Sender.
func NewSMTPSender() Sender {
	return smtpSender{}
}

func (smtpSender) Send(cfg *config.EmailConfig, recipient string, msg Message) error {
	d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SenderEmail, cfg.SenderPassword)
	if cfg.UseTLS {
		d.SSL = cfg.SMTPPort == 465
		d.TLSConfig = &tls.Config{ServerName: cfg.SMTPServer}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", cfg.SenderEmail)
	m.SetHeader("To", recipient)
	m.SetHeader("Subject", msg.Subject)
	if msg.HTML {
		m.SetBody("text/html", msg.Body)
	} else {
		m.SetBody("text/plain", msg.Body)
	}

	return d.DialAndSend(m)
}

// dialSMTP opens and authenticates an SMTP session without sending anything,
// used by the configuration probe.
func dialSMTP(cfg *config.EmailConfig) (gomail.SendCloser, error) {
	d := gomail.NewDialer(cfg.SMTPServer, cfg.SMTPPort, cfg.SenderEmail, cfg.SenderPassword)
	if cfg.UseTLS {
		d.SSL = cfg.SMTPPort == 465
		d.TLSConfig = &tls.Config{ServerName: cfg.SMTPServer}
	}
	return d.Dial()
}
