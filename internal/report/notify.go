package report

import (
	"fmt"
	"mime/quotedprintable"
	"net/smtp"
	"strings"
)

// Notifier delivers an assembled report.
type Notifier interface {
	Notify(r *Report) error
}

// SMTPNotifier sends the report as a multipart/alternative email over
// SMTP with STARTTLS. Built for Gmail app passwords but works with any
// server that accepts PLAIN auth after STARTTLS.
type SMTPNotifier struct {
	Host     string
	Port     int
	From     string
	To       string
	Password string
}

func (n *SMTPNotifier) Notify(r *Report) error {
	addr := fmt.Sprintf("%s:%d", n.Host, n.Port)
	auth := smtp.PlainAuth("", n.From, n.Password, n.Host)

	msg, err := n.buildMessage(r)
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}
	if err := smtp.SendMail(addr, auth, n.From, []string{n.To}, msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	return nil
}

// buildMessage assembles a multipart/alternative MIME message with the
// markdown as the plain-text part and the HTML rendering last, so
// clients that handle HTML prefer it.
func (n *SMTPNotifier) buildMessage(r *Report) ([]byte, error) {
	const boundary = "jobagent-report-boundary"
	var b strings.Builder

	fmt.Fprintf(&b, "From: Job Search Agent <%s>\r\n", n.From)
	fmt.Fprintf(&b, "To: %s\r\n", n.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", r.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", boundary)

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", r.Markdown},
		{"text/html; charset=utf-8", r.HTML},
	} {
		fmt.Fprintf(&b, "--%s\r\n", boundary)
		fmt.Fprintf(&b, "Content-Type: %s\r\n", part.contentType)
		b.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
		w := quotedprintable.NewWriter(&b)
		if _, err := w.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		b.WriteString("\r\n")
	}
	fmt.Fprintf(&b, "--%s--\r\n", boundary)
	return []byte(b.String()), nil
}
