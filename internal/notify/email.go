package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"

	"go.uber.org/zap"

	"github.com/healthpass/healthpass/internal/config"
)

type EmailNotifier struct {
	host string
	port int
	from string
	log  *zap.Logger

	// send is swapped out in tests; smtp.SendMail otherwise.
	send func(addr, from string, to []string, msg []byte) error
}

var _ Notifier = (*EmailNotifier)(nil)

func NewEmailNotifier(cfg config.NotifyConfig, log *zap.Logger) *EmailNotifier {
	return &EmailNotifier{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		from: cfg.SMTPFrom,
		log:  log,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

func (n *EmailNotifier) Channel() config.NotifyChannel {
	return config.ChannelEmail
}

func (n *EmailNotifier) Send(ctx context.Context, to string, msg Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	addr := fmt.Sprintf("%s:%d", n.host, n.port)
	raw := buildMIME(n.from, to, msg)

	if err := n.send(addr, n.from, []string{to}, raw); err != nil {
		n.log.Error("email delivery failed", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	n.log.Info("email sent",
		zap.String("to", to),
		zap.Bool("attachment", len(msg.Attachment) > 0),
	)
	return nil
}

const mimeBoundary = "healthpass-mime-boundary"

func buildMIME(from, to string, msg Message) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")

	if len(msg.Attachment) == 0 {
		b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
		b.WriteString(msg.Body)
		return b.Bytes()
	}

	fmt.Fprintf(&b, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", mimeBoundary)

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(msg.Body)
	b.WriteString("\r\n")

	name := msg.AttachmentName
	if name == "" {
		name = "attachment.png"
	}
	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	fmt.Fprintf(&b, "Content-Type: image/png; name=%q\r\n", name)
	b.WriteString("Content-Transfer-Encoding: base64\r\n")
	fmt.Fprintf(&b, "Content-Disposition: attachment; filename=%q\r\n\r\n", name)

	enc := base64.StdEncoding.EncodeToString(msg.Attachment)
	for len(enc) > 76 {
		b.WriteString(enc[:76])
		b.WriteString("\r\n")
		enc = enc[76:]
	}
	b.WriteString(enc)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return b.Bytes()
}
