package notifier

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net"
	"net/mail"
	"net/smtp"
	"net/textproto"
	"strconv"
	"time"
)

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers email through an SMTP relay with PLAIN auth.
type SMTPMailer struct {
	host     string
	addr     string
	user     string
	password string
	from     string
	log      *slog.Logger
	send     sendFunc
	now      func() time.Time
}

// NewSMTPMailer sends through host:port. PLAIN auth is used only when user
// is set.
func NewSMTPMailer(host string, port int, user, password, from string, log *slog.Logger) *SMTPMailer {
	return &SMTPMailer{
		host:     host,
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		user:     user,
		password: password,
		from:     from,
		log:      log.With("component", "smtp"),
		send:     smtp.SendMail,
		now:      time.Now,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	sender, err := mail.ParseAddress(m.from)
	if err != nil {
		return fmt.Errorf("parse sender %q: %w", m.from, err)
	}

	body, err := buildMessage(m.from, msg, m.now())
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}

	err = blocking(ctx, func() error {
		return m.send(m.addr, auth, sender.Address, []string{msg.To}, body)
	})
	if err != nil {
		return fmt.Errorf("send email via smtp %s: %w", m.addr, err)
	}

	m.log.Info("email sent", "to", msg.To)

	return nil
}

// buildMessage renders a multipart/alternative message with a plain-text
// part followed by the HTML part.
func buildMessage(from string, msg Message, date time.Time) ([]byte, error) {
	var (
		buf   bytes.Buffer
		parts bytes.Buffer
	)

	mw := multipart.NewWriter(&parts)

	for _, part := range []struct{ contentType, body string }{
		{"text/plain; charset=utf-8", msg.Text},
		{"text/html; charset=utf-8", msg.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, err
		}

		qp := quotedprintable.NewWriter(w)
		if _, err := qp.Write([]byte(part.body)); err != nil {
			return nil, err
		}
		if err := qp.Close(); err != nil {
			return nil, err
		}
	}

	if err := mw.Close(); err != nil {
		return nil, err
	}

	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", msg.To)
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", date.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", mw.Boundary())
	buf.Write(parts.Bytes())

	return buf.Bytes(), nil
}
