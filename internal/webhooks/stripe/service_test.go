package stripewebhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/pymesoft/comercio-backend/internal/notifications"
	"github.com/pymesoft/comercio-backend/internal/payments"
	"github.com/pymesoft/comercio-backend/pkg/db/models"
	"github.com/pymesoft/comercio-backend/pkg/enums"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
)

type fakeRecorder struct {
	inputs []payments.RecordPaymentInput
	result *payments.PaymentResult
	err    error
}

func (f *fakeRecorder) RecordPayment(ctx context.Context, input payments.RecordPaymentInput) (*payments.PaymentResult, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeNotifier struct {
	notices []notifications.OrderPaidNotice
	err     error
}

func (f *fakeNotifier) NotifyOrderPaid(ctx context.Context, notice notifications.OrderPaidNotice) error {
	f.notices = append(f.notices, notice)
	return f.err
}

func paymentIntentEvent(t *testing.T, id string, amount int64, description string) *stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":          id,
		"amount":      amount,
		"description": description,
	})
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	return &stripe.Event{
		ID:   "evt_" + id,
		Type: stripe.EventTypePaymentIntentSucceeded,
		Data: &stripe.EventData{Raw: raw},
	}
}

func paidResult(orderID int64) *payments.PaymentResult {
	email := "ana@example.com"
	ref := "pi_1"
	return &payments.PaymentResult{
		Order: &models.Order{
			ID:         orderID,
			Kind:       enums.OrderKindSale,
			Total:      decimal.RequireFromString("125.50"),
			TotalPaid:  decimal.RequireFromString("125.50"),
			Status:     enums.OrderStatusPaid,
			PaymentRef: &ref,
			Party:      &models.Party{Name: "Ana", Email: &email},
		},
		Applied:    decimal.RequireFromString("125.50"),
		BecamePaid: true,
	}
}

func newTestWebhookService(t *testing.T, recorder *fakeRecorder, notifier *fakeNotifier) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Payments: recorder, Notifier: notifier})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

func TestHandleEventAppliesPayment(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{result: paidResult(42)}
	notifier := &fakeNotifier{}
	svc := newTestWebhookService(t, recorder, notifier)

	event := paymentIntentEvent(t, "pi_1", 12550, "sale 42")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if len(recorder.inputs) != 1 {
		t.Fatalf("expected one recorded payment, got %d", len(recorder.inputs))
	}
	input := recorder.inputs[0]
	if input.OrderID != 42 {
		t.Fatalf("unexpected order id %d", input.OrderID)
	}
	if !input.Amount.Equal(decimal.RequireFromString("125.5")) {
		t.Fatalf("unexpected amount %s", input.Amount)
	}
	if input.Source != enums.PaymentSourceProvider {
		t.Fatalf("unexpected source %s", input.Source)
	}
	if input.ExternalRef == nil || *input.ExternalRef != "pi_1" {
		t.Fatalf("unexpected external ref %v", input.ExternalRef)
	}

	if len(notifier.notices) != 1 {
		t.Fatalf("expected one notification, got %d", len(notifier.notices))
	}
	notice := notifier.notices[0]
	if notice.OrderID != 42 || notice.PartyEmail == nil || *notice.PartyEmail != "ana@example.com" {
		t.Fatalf("unexpected notice %+v", notice)
	}
}

func TestHandleEventDuplicateSkipsNotification(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{result: &payments.PaymentResult{
		Order:          &models.Order{ID: 42},
		AlreadyApplied: true,
	}}
	notifier := &fakeNotifier{}
	svc := newTestWebhookService(t, recorder, notifier)

	event := paymentIntentEvent(t, "pi_1", 12550, "sale 42")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(notifier.notices) != 0 {
		t.Fatalf("duplicate should not notify")
	}
}

func TestHandleEventPartialPaymentSkipsNotification(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{result: &payments.PaymentResult{
		Order:      &models.Order{ID: 42, Status: enums.OrderStatusPending},
		Applied:    decimal.RequireFromString("10.00"),
		BecamePaid: false,
	}}
	notifier := &fakeNotifier{}
	svc := newTestWebhookService(t, recorder, notifier)

	event := paymentIntentEvent(t, "pi_1", 1000, "sale 42")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(notifier.notices) != 0 {
		t.Fatalf("partial payment should not notify")
	}
}

func TestHandleEventUndecodableDescriptionIsAcknowledged(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{}
	svc := newTestWebhookService(t, recorder, &fakeNotifier{})

	event := paymentIntentEvent(t, "pi_1", 1000, "manual top-up")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected acknowledgement, got %v", err)
	}
	if len(recorder.inputs) != 0 {
		t.Fatalf("recorder should not be called")
	}
}

func TestHandleEventMissingOrderIsAcknowledged(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	svc := newTestWebhookService(t, recorder, &fakeNotifier{})

	event := paymentIntentEvent(t, "pi_1", 1000, "sale 42")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("expected acknowledgement, got %v", err)
	}
}

func TestHandleEventTransientFailurePropagates(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{err: pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "update order")}
	svc := newTestWebhookService(t, recorder, &fakeNotifier{})

	event := paymentIntentEvent(t, "pi_1", 1000, "sale 42")
	if err := svc.HandleEvent(context.Background(), event); err == nil {
		t.Fatal("expected error so the delivery is retried")
	}
}

func TestHandleEventIgnoresOtherTypes(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{}
	svc := newTestWebhookService(t, recorder, &fakeNotifier{})

	event := &stripe.Event{
		Type: stripe.EventTypePaymentIntentCreated,
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	}
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recorder.inputs) != 0 {
		t.Fatalf("recorder should not be called")
	}
}

func TestHandleEventNotifierFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	recorder := &fakeRecorder{result: paidResult(42)}
	notifier := &fakeNotifier{err: errors.New("smtp down")}
	svc := newTestWebhookService(t, recorder, notifier)

	event := paymentIntentEvent(t, "pi_1", 12550, "sale 42")
	if err := svc.HandleEvent(context.Background(), event); err != nil {
		t.Fatalf("notification failure must not fail the webhook: %v", err)
	}
}
