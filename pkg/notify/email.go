package notify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const sendgridEndpoint = "/v3/mail/send"

// SendgridMailer delivers messages through the SendGrid v3 API.
type SendgridMailer struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	baseURL    string
}

// NewSendgridMailer builds a mailer. baseURL is prefixed to relative links.
func NewSendgridMailer(key, host, appName, fromEmail, baseURL string) *SendgridMailer {
	if host == "" {
		host = "https://api.sendgrid.com"
	}
	return &SendgridMailer{
		key:        key,
		host:       host,
		from:       sgmail.NewEmail(appName, fromEmail),
		subjPrefix: "[" + appName + "] ",
		baseURL:    baseURL,
	}
}

func (m *SendgridMailer) prepare(msg Message) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = m.subjPrefix + msg.Title
	p.AddTos(sgmail.NewEmail(msg.Name, msg.Email))

	text := msg.Body
	if msg.Link != "" {
		text += "\n\n" + m.baseURL + msg.Link
	}

	mail := sgmail.NewV3Mail()
	mail.SetFrom(m.from)
	mail.AddPersonalizations(p)
	mail.AddContent(sgmail.NewContent("text/plain", text))
	return mail
}

// Dispatch sends msg to its recipient. Messages without an address are skipped.
func (m *SendgridMailer) Dispatch(_ context.Context, msg Message) error {
	if msg.Email == "" {
		return nil
	}
	req := sendgrid.GetRequest(m.key, sendgridEndpoint, m.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(m.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid responded %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// LogMailer writes emails to the logger instead of sending them. Used when no
// SendGrid key is configured.
type LogMailer struct {
	logger *zap.Logger
}

// NewLogMailer constructs a LogMailer.
func NewLogMailer(logger *zap.Logger) *LogMailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogMailer{logger: logger}
}

// Dispatch logs msg.
func (m *LogMailer) Dispatch(_ context.Context, msg Message) error {
	m.logger.Info("email notification",
		zap.String("to", msg.Email),
		zap.String("subject", msg.Title),
		zap.String("type", msg.Type),
		zap.String("link", msg.Link))
	return nil
}
