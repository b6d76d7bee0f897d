package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
)

// Repository defines persistence operations for the payment ledger.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOrder(ctx context.Context, orderID int64) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error)
	FindPaymentEventByExternalRef(ctx context.Context, externalRef string) (*models.PaymentEvent, error)
	ListPaymentEvents(ctx context.Context, orderID int64) ([]models.PaymentEvent, error)
	CreatePaymentEvent(ctx context.Context, event *models.PaymentEvent) error
	UpdateOrder(ctx context.Context, orderID int64, updates map[string]any) error
}
