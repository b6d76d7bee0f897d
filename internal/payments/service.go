package payments

import (
	"context"
	stdErrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/pymesoft/comercio-backend/pkg/db"
	"github.com/pymesoft/comercio-backend/pkg/db/models"
	"github.com/pymesoft/comercio-backend/pkg/enums"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
)

const externalRefIndex = "idx_payment_events_external_ref"

var errDuplicateExternalRef = stdErrors.New("duplicate external ref")

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the payment ledger operations.
type Service interface {
	RecordPayment(ctx context.Context, input RecordPaymentInput) (*PaymentResult, error)
	ConfirmCash(ctx context.Context, input ConfirmCashInput) (*PaymentResult, error)
	CreateIntent(ctx context.Context, orderID int64) (*IntentDetails, error)
	ListEvents(ctx context.Context, orderID int64) ([]models.PaymentEvent, error)
}

type service struct {
	repo     Repository
	tx       txRunner
	stripe   StripeIntentClient
	currency string
}

// NewService builds a payment service with the required dependencies.
func NewService(repo Repository, tx txRunner, stripeClient StripeIntentClient, currency string) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if currency == "" {
		return nil, fmt.Errorf("currency required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		stripe:   stripeClient,
		currency: currency,
	}, nil
}

// RecordPayment applies one confirmed payment to an order. The order row is
// read under a lock so concurrent payments serialize instead of overwriting
// each other's totals. The paid total accumulates but never exceeds the order
// total; the ledger event keeps the full confirmed amount regardless. A
// repeated external reference is a no-op, whether caught by the read or by
// the unique index under a race.
func (s *service) RecordPayment(ctx context.Context, input RecordPaymentInput) (*PaymentResult, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment source %q", input.Source))
	}

	var result *PaymentResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		if input.ExternalRef != nil {
			if _, err := repo.FindPaymentEventByExternalRef(ctx, *input.ExternalRef); err == nil {
				return errDuplicateExternalRef
			} else if err != gorm.ErrRecordNotFound {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check external ref")
			}
		}

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransition(enums.OrderStatusPaid) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("%s orders cannot take payments", order.Status))
		}

		event := &models.PaymentEvent{
			OrderID:     order.ID,
			Source:      input.Source,
			Amount:      input.Amount,
			ExternalRef: input.ExternalRef,
			Description: input.Description,
		}
		if err := repo.CreatePaymentEvent(ctx, event); err != nil {
			if db.IsUniqueViolation(err, externalRefIndex) {
				return errDuplicateExternalRef
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment event")
		}

		newTotalPaid := order.TotalPaid.Add(input.Amount)
		if newTotalPaid.GreaterThan(order.Total) {
			newTotalPaid = order.Total
		}
		applied := newTotalPaid.Sub(order.TotalPaid)
		becamePaid := order.Status != enums.OrderStatusPaid && newTotalPaid.GreaterThanOrEqual(order.Total)

		updates := map[string]any{"total_paid": newTotalPaid}
		if input.PaymentMethodID != nil {
			updates["payment_method_id"] = *input.PaymentMethodID
		}
		if input.ExternalRef != nil {
			updates["payment_ref"] = *input.ExternalRef
			if input.Source == enums.PaymentSourceProvider {
				updates["stripe_payment_intent_id"] = *input.ExternalRef
			}
		}
		var paidAt *time.Time
		if becamePaid {
			now := time.Now().UTC()
			paidAt = &now
			updates["status"] = enums.OrderStatusPaid
			updates["paid_at"] = now
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}

		order.TotalPaid = newTotalPaid
		if becamePaid {
			order.Status = enums.OrderStatusPaid
			order.PaidAt = paidAt
		}
		if input.PaymentMethodID != nil {
			order.PaymentMethodID = input.PaymentMethodID
		}
		if input.ExternalRef != nil {
			order.PaymentRef = input.ExternalRef
			if input.Source == enums.PaymentSourceProvider {
				order.StripePaymentIntentID = input.ExternalRef
			}
		}
		result = &PaymentResult{
			Order:      order,
			Applied:    applied,
			BecamePaid: becamePaid,
		}
		return nil
	})
	if err == errDuplicateExternalRef {
		return s.duplicateResult(ctx, input.OrderID)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ConfirmCash settles the order's outstanding balance in a single cash
// payment under a generated reference. The payment method, when given, is
// written in the same transaction as the ledger event. An open provider
// intent on the order is voided after settlement, best effort.
func (s *service) ConfirmCash(ctx context.Context, input ConfirmCashInput) (*PaymentResult, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	order, err := s.repo.FindOrder(ctx, input.OrderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	outstanding := order.Outstanding()
	if outstanding.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no outstanding balance")
	}

	ref := cashRef()
	if input.Reference != nil && *input.Reference != "" {
		ref = *input.Reference
	}
	result, err := s.RecordPayment(ctx, RecordPaymentInput{
		OrderID:         order.ID,
		Amount:          outstanding,
		Source:          enums.PaymentSourceCash,
		ExternalRef:     &ref,
		PaymentMethodID: input.PaymentMethodID,
	})
	if err != nil {
		return nil, err
	}

	if s.stripe != nil && order.StripePaymentIntentID != nil && !result.AlreadyApplied {
		// Cash settled the order first; a failed void is fine, the intent expires.
		_, _ = s.stripe.Cancel(ctx, *order.StripePaymentIntentID, nil)
	}
	return result, nil
}

// CreateIntent opens a Stripe payment intent for the outstanding balance and
// tags it with the order reference the webhook later decodes.
func (s *service) CreateIntent(ctx context.Context, orderID int64) (*IntentDetails, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if s.stripe == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "stripe is not configured")
	}

	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if !order.Status.CanTransition(enums.OrderStatusPaid) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("%s orders cannot take payments", order.Status))
	}

	outstanding := order.Outstanding()
	if outstanding.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order has no outstanding balance")
	}

	amountMinor := outstanding.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	description := EncodeOrderRef(order.Kind, order.ID)
	intent, err := s.stripe.Create(ctx, &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(amountMinor),
		Currency:    stripe.String(s.currency),
		Description: stripe.String(description),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}

	if err := s.repo.UpdateOrder(ctx, order.ID, map[string]any{"stripe_payment_intent_id": intent.ID}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store payment intent id")
	}

	return &IntentDetails{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		AmountMinor:  amountMinor,
		Currency:     s.currency,
	}, nil
}

func (s *service) ListEvents(ctx context.Context, orderID int64) ([]models.PaymentEvent, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	events, err := s.repo.ListPaymentEvents(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payment events")
	}
	return events, nil
}

func (s *service) duplicateResult(ctx context.Context, orderID int64) (*PaymentResult, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	return &PaymentResult{
		Order:          order,
		Applied:        decimal.Zero,
		AlreadyApplied: true,
	}, nil
}

func cashRef() string {
	return "CASH-" + uuid.NewString()[:8]
}
