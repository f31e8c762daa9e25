package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"net/smtp"
)

type SMTPConfig struct {
	Host string
	Port string
	User string
	Pass string
	From string
	Name string
}

// SMTPEmail sends plain-text mail, falling back to implicit TLS on port 465.
type SMTPEmail struct {
	cfg SMTPConfig
}

var (
	sendMail = smtp.SendMail
	sendTLS  = sendMailTLS
)

func NewSMTPEmail(cfg SMTPConfig) (*SMTPEmail, error) {
	if cfg.Host == "" {
		cfg.Host = "smtp.gmail.com"
	}
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	if cfg.User == "" || cfg.Pass == "" || cfg.From == "" {
		return nil, errors.New("SMTP not configured")
	}
	return &SMTPEmail{cfg: cfg}, nil
}

func (e *SMTPEmail) build(to, subject, body string) []byte {
	name := e.cfg.Name
	if name == "" {
		name = "BotoApp"
	}
	return []byte("From: \"" + name + "\" <" + e.cfg.From + ">\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n" +
		body + "\r\n")
}

func (e *SMTPEmail) Send(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	addr := e.cfg.Host + ":" + e.cfg.Port
	auth := smtp.PlainAuth("", e.cfg.User, e.cfg.Pass, e.cfg.Host)
	raw := e.build(msg.To, msg.Subject, msg.Body)

	err := sendMail(addr, auth, e.cfg.From, []string{msg.To}, raw)
	if err != nil && e.cfg.Port == "465" {
		return sendTLS(addr, e.cfg.Host, auth, e.cfg.From, msg.To, raw)
	}
	return err
}

func sendMailTLS(addr, host string, auth smtp.Auth, from, to string, raw []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: host})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, host)
	if err != nil {
		return err
	}
	defer c.Quit()
	if err = c.Auth(auth); err != nil {
		return err
	}
	if err = c.Mail(from); err != nil {
		return err
	}
	if err = c.Rcpt(to); err != nil {
		return err
	}
	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err = wc.Write(raw); err != nil {
		return err
	}
	return wc.Close()
}

// LogSender stands in for a provider that is not configured: it reports the
// message through Log and succeeds.
type LogSender struct {
	Log func(msg Message)
}

func (l LogSender) Send(_ context.Context, msg Message) error {
	if l.Log != nil {
		l.Log(msg)
	}
	return nil
}
