package orders

import (
	"context"

	"gorm.io/gorm"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
)

// Repository defines persistence operations for orders and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderLines(ctx context.Context, lines []models.OrderLine) error
	FindOrder(ctx context.Context, orderID int64) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID int64) (*models.Order, error)
	FindOrderLines(ctx context.Context, orderID int64) ([]models.OrderLine, error)
	DeleteOrderLines(ctx context.Context, orderID int64) error
	DeleteOrderPaymentEvents(ctx context.Context, orderID int64) error
	DeleteOrder(ctx context.Context, orderID int64) error
	UpdateOrder(ctx context.Context, orderID int64, updates map[string]any) error
	ListOrders(ctx context.Context, filters OrderFilters) ([]models.Order, error)
	FindProducts(ctx context.Context, productIDs []int64) (map[int64]models.Product, error)
	ListLowStockProducts(ctx context.Context) ([]models.Product, error)
}
