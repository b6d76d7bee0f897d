package mailer

import (
	"context"
	"strings"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

type fakeSender struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, email)
	status := f.status
	if status == 0 {
		status = 202
	}
	return &rest.Response{StatusCode: status}, nil
}

func TestSendDeliversMessage(t *testing.T) {
	sender := &fakeSender{}
	client := &Client{sender: sender, fromName: "Comercio", fromAddr: "no-reply@comercio.test"}

	err := client.Send(context.Background(), Message{
		ToName:    "Ana",
		ToAddress: "ana@example.com",
		Subject:   "Pago recibido",
		PlainBody: "Tu pago fue aplicado.",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one email, got %d", len(sender.sent))
	}
	if got := sender.sent[0].Subject; got != "Pago recibido" {
		t.Fatalf("unexpected subject %q", got)
	}
}

func TestSendRejectsMissingRecipient(t *testing.T) {
	client := &Client{sender: &fakeSender{}, fromAddr: "no-reply@comercio.test"}
	err := client.Send(context.Background(), Message{Subject: "x"})
	if err == nil {
		t.Fatalf("expected error for missing recipient")
	}
}

func TestSendSurfacesProviderFailure(t *testing.T) {
	client := &Client{sender: &fakeSender{status: 500}, fromAddr: "no-reply@comercio.test"}
	err := client.Send(context.Background(), Message{ToAddress: "ana@example.com", Subject: "x"})
	if err == nil || !strings.Contains(err.Error(), "sendgrid responded") {
		t.Fatalf("expected provider failure error, got %v", err)
	}
}
