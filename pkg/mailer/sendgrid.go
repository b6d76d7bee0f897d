package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/pymesoft/comercio-backend/pkg/config"
	"github.com/pymesoft/comercio-backend/pkg/logger"
)

// Message is a single outbound email.
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	PlainBody string
	HTMLBody  string
}

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

type sendgridSender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Client sends mail through SendGrid.
type Client struct {
	sender   sendgridSender
	fromName string
	fromAddr string
}

// New builds a SendGrid-backed mailer from configuration.
func New(cfg config.SendgridConfig, logg *logger.Logger) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	fromAddr := strings.TrimSpace(cfg.DefaultFrom)
	if fromAddr == "" {
		return nil, errors.New("sendgrid default from address is required")
	}

	return &Client{
		sender:   sendgrid.NewSendClient(apiKey),
		fromName: cfg.FromName,
		fromAddr: fromAddr,
	}, nil
}

// Send delivers one message, returning an error on non-2xx responses.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if c == nil || c.sender == nil {
		return errors.New("mailer not initialized")
	}
	if strings.TrimSpace(msg.ToAddress) == "" {
		return errors.New("recipient address is required")
	}

	from := mail.NewEmail(c.fromName, c.fromAddr)
	to := mail.NewEmail(msg.ToName, msg.ToAddress)
	body := msg.PlainBody
	htmlBody := msg.HTMLBody
	if htmlBody == "" {
		htmlBody = body
	}
	email := mail.NewSingleEmail(from, msg.Subject, to, body, htmlBody)

	resp, err := c.sender.SendWithContext(ctx, email)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sendgrid responded %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
