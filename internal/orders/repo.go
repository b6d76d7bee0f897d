package orders

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (r *repository) CreateOrderLines(ctx context.Context, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

func (r *repository) FindOrder(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Party").
		Preload("PaymentEvents").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindOrderForUpdate loads the order under a row lock so the caller's
// read-modify-write of totals and lines is serialized with concurrent
// payments and edits. Must run inside a transaction.
func (r *repository) FindOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Lines").
		Preload("Party").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error) {
	var lines []models.OrderLine
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repository) DeleteOrderLines(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.OrderLine{}).Error
}

func (r *repository) DeleteOrderPaymentEvents(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Delete(&models.PaymentEvent{}).Error
}

func (r *repository) DeleteOrder(ctx context.Context, orderID int64) error {
	return r.db.WithContext(ctx).
		Where("id = ?", orderID).
		Delete(&models.Order{}).Error
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

func (r *repository) ListOrders(ctx context.Context, filters OrderFilters) ([]models.Order, error) {
	query := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Party")
	if filters.Kind != nil {
		query = query.Where("kind = ?", *filters.Kind)
	}
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.PartyID != nil {
		query = query.Where("party_id = ?", *filters.PartyID)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at <= ?", *filters.DateTo)
	}

	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	query = query.Limit(limit)
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) FindProducts(ctx context.Context, productIDs []int64) (map[int64]models.Product, error) {
	result := make(map[int64]models.Product, len(productIDs))
	if len(productIDs) == 0 {
		return result, nil
	}
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("id IN ?", productIDs).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	for _, product := range products {
		result[product.ID] = product
	}
	return result, nil
}

func (r *repository) ListLowStockProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND stock <= min_stock", true).
		Order("stock ASC").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
