package payments

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Party").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderForUpdate loads the order under a row lock so two concurrent
// payments cannot both read the same paid total and overwrite each other.
// Must run inside a transaction.
func (r *repository) FindOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Party").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindPaymentEventByExternalRef(ctx context.Context, externalRef string) (*models.PaymentEvent, error) {
	var event models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("external_ref = ?", externalRef).
		First(&event).Error
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *repository) ListPaymentEvents(ctx context.Context, orderID int64) ([]models.PaymentEvent, error) {
	var events []models.PaymentEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) CreatePaymentEvent(ctx context.Context, event *models.PaymentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) UpdateOrder(ctx context.Context, orderID int64, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(updates).Error
}
