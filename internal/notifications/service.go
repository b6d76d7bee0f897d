package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
	"github.com/pymesoft/comercio-backend/pkg/enums"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
	"github.com/pymesoft/comercio-backend/pkg/mailer"
)

// OrderPaidNotice describes a fully paid order for fan-out.
type OrderPaidNotice struct {
	OrderID    int64
	Kind       enums.OrderKind
	Total      decimal.Decimal
	TotalPaid  decimal.Decimal
	PartyName  string
	PartyEmail *string
	PaymentRef *string
}

// ListParams configures the notification list.
type ListParams struct {
	Limit      int
	UnreadOnly bool
}

// Service persists order notifications and fans them out to email and the
// live channel.
type Service interface {
	NotifyOrderPaid(ctx context.Context, notice OrderPaidNotice) error
	List(ctx context.Context, params ListParams) ([]models.Notification, error)
	MarkRead(ctx context.Context, notificationID int64) error
}

type publisher interface {
	Publish(ctx context.Context, channel string, payload any) error
}

type service struct {
	repo      Repository
	mail      mailer.Mailer
	publisher publisher
	channel   string
}

// NewService wires notification dependencies. The mailer and publisher are
// optional; a nil dependency skips that channel.
func NewService(repo Repository, mail mailer.Mailer, pub publisher, channel string) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifications repository required")
	}
	if pub != nil && channel == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "broadcast channel required")
	}
	return &service{
		repo:      repo,
		mail:      mail,
		publisher: pub,
		channel:   channel,
	}, nil
}

// NotifyOrderPaid stores the in-app notification, emails the counterparty and
// broadcasts the update. Every channel is attempted; failures are aggregated
// so callers can log them without losing the payment itself.
func (s *service) NotifyOrderPaid(ctx context.Context, notice OrderPaidNotice) error {
	if notice.OrderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	title := fmt.Sprintf("Order %d paid", notice.OrderID)
	message := fmt.Sprintf("%s %d was paid in full (%s).", notice.Kind, notice.OrderID, notice.Total.StringFixed(2))

	var errs error

	if err := s.repo.Create(ctx, &models.Notification{
		OrderID: notice.OrderID,
		Title:   title,
		Message: message,
	}); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("store notification: %w", err))
	}

	if s.mail != nil && notice.PartyEmail != nil && *notice.PartyEmail != "" {
		err := s.mail.Send(ctx, mailer.Message{
			ToName:    notice.PartyName,
			ToAddress: *notice.PartyEmail,
			Subject:   title,
			PlainBody: message,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("send email: %w", err))
		}
	}

	if s.publisher != nil {
		payload, err := json.Marshal(map[string]any{
			"order_id":    notice.OrderID,
			"kind":        notice.Kind,
			"status":      enums.OrderStatusPaid,
			"total":       notice.Total.StringFixed(2),
			"total_paid":  notice.TotalPaid.StringFixed(2),
			"payment_ref": notice.PaymentRef,
			"at":          time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("encode broadcast: %w", err))
		} else if err := s.publisher.Publish(ctx, s.channel, payload); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("publish broadcast: %w", err))
		}
	}

	return errs
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Notification, error) {
	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return rows, nil
}

func (s *service) MarkRead(ctx context.Context, notificationID int64) error {
	if notificationID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	affected, err := s.repo.MarkRead(ctx, notificationID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found or already read")
	}
	return nil
}
