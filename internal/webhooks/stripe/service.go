package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"

	"github.com/pymesoft/comercio-backend/internal/notifications"
	"github.com/pymesoft/comercio-backend/internal/payments"
	"github.com/pymesoft/comercio-backend/pkg/enums"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
	"github.com/pymesoft/comercio-backend/pkg/logger"
	"github.com/pymesoft/comercio-backend/pkg/metrics"
)

const (
	outcomeApplied   = "applied"
	outcomeDuplicate = "duplicate"
	outcomeIgnored   = "ignored"
	outcomeFailed    = "failed"
)

type paymentRecorder interface {
	RecordPayment(ctx context.Context, input payments.RecordPaymentInput) (*payments.PaymentResult, error)
}

type paidNotifier interface {
	NotifyOrderPaid(ctx context.Context, notice notifications.OrderPaidNotice) error
}

type ServiceParams struct {
	Payments paymentRecorder
	Notifier paidNotifier
	Metrics  *metrics.ReconciliationMetrics
	Logger   *logger.Logger
}

// Service reconciles provider webhook events against the payment ledger.
type Service struct {
	payments paymentRecorder
	notifier paidNotifier
	metrics  *metrics.ReconciliationMetrics
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service required")
	}
	return &Service{
		payments: params.Payments,
		notifier: params.Notifier,
		metrics:  params.Metrics,
		logg:     params.Logger,
	}, nil
}

// HandleEvent applies a verified Stripe event. Events that can never apply,
// such as unknown types or references to orders that no longer exist, are
// acknowledged without error so the provider stops retrying them. Transient
// failures return an error so the delivery is retried.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	eventType := string(event.Type)
	started := time.Now()
	defer func() {
		s.metrics.ObserveDuration(eventType, time.Since(started))
	}()

	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		outcome, err := s.applyPaymentIntent(ctx, event)
		s.metrics.IncOutcome(eventType, outcome)
		return err
	default:
		s.metrics.IncOutcome(eventType, outcomeIgnored)
		return nil
	}
}

func (s *Service) applyPaymentIntent(ctx context.Context, event *stripe.Event) (string, error) {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return outcomeFailed, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
	}

	orderID, err := payments.DecodeOrderRef(intent.Description)
	if err != nil {
		s.warn(ctx, fmt.Sprintf("payment intent %s has no decodable order reference", intent.ID), err)
		return outcomeIgnored, nil
	}

	ctx = s.withOrderID(ctx, orderID)
	amount := decimal.NewFromInt(intent.Amount).Div(decimal.NewFromInt(100))
	description := intent.Description

	result, err := s.payments.RecordPayment(ctx, payments.RecordPaymentInput{
		OrderID:     orderID,
		Amount:      amount,
		Source:      enums.PaymentSourceProvider,
		ExternalRef: &intent.ID,
		Description: &description,
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			switch typed.Code() {
			case pkgerrors.CodeNotFound, pkgerrors.CodeValidation, pkgerrors.CodeStateConflict:
				s.warn(ctx, fmt.Sprintf("payment intent %s cannot apply", intent.ID), err)
				return outcomeIgnored, nil
			}
		}
		return outcomeFailed, err
	}
	if result.AlreadyApplied {
		return outcomeDuplicate, nil
	}

	if result.BecamePaid {
		s.notifyPaid(ctx, result)
	}
	return outcomeApplied, nil
}

// notifyPaid runs after the payment has committed. Fan-out failures must not
// fail the webhook, so they are logged and dropped.
func (s *Service) notifyPaid(ctx context.Context, result *payments.PaymentResult) {
	if s.notifier == nil || result == nil || result.Order == nil {
		return
	}

	order := result.Order
	notice := notifications.OrderPaidNotice{
		OrderID:    order.ID,
		Kind:       order.Kind,
		Total:      order.Total,
		TotalPaid:  order.TotalPaid,
		PaymentRef: order.PaymentRef,
	}
	if order.Party != nil {
		notice.PartyName = order.Party.Name
		notice.PartyEmail = order.Party.Email
	}

	if err := s.notifier.NotifyOrderPaid(ctx, notice); err != nil {
		s.warn(ctx, fmt.Sprintf("order %d paid notification incomplete", order.ID), err)
	}
}

func (s *Service) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithField(ctx, "error", err.Error())
	s.logg.Warn(ctx, msg)
}

func (s *Service) withOrderID(ctx context.Context, orderID int64) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithOrderID(ctx, orderID)
}
