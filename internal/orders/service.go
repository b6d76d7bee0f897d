package orders

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pymesoft/comercio-backend/pkg/db/models"
	"github.com/pymesoft/comercio-backend/pkg/enums"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines order lifecycle operations.
type Service interface {
	Create(ctx context.Context, input CreateOrderInput) (*models.Order, error)
	Get(ctx context.Context, orderID int64) (*models.Order, error)
	List(ctx context.Context, filters OrderFilters) ([]models.Order, error)
	ReplaceLines(ctx context.Context, input ReplaceLinesInput) (*models.Order, error)
	Delete(ctx context.Context, orderID int64) error
	LowStockReport(ctx context.Context) ([]LowStockItem, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid order kind %q", input.Kind))
	}
	if input.PartyID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "party id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		products, err := repo.FindProducts(ctx, productIDs(input.Lines))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		replacement, err := ComputeReplacement(input.Kind, nil, input.Lines, products)
		if err != nil {
			return err
		}
		if err := ApplyStockDeltas(ctx, tx, replacement.Deltas); err != nil {
			return err
		}

		order := &models.Order{
			Kind:            input.Kind,
			PartyID:         input.PartyID,
			Total:           replacement.Total,
			Status:          enums.OrderStatusPending,
			PaymentMethodID: input.PaymentMethodID,
			Notes:           input.Notes,
		}
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		for i := range replacement.Lines {
			replacement.Lines[i].OrderID = order.ID
		}
		if err := repo.CreateOrderLines(ctx, replacement.Lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order lines")
		}

		order.Lines = replacement.Lines
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	if orderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) List(ctx context.Context, filters OrderFilters) ([]models.Order, error) {
	orders, err := s.repo.ListOrders(ctx, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return orders, nil
}

// ReplaceLines swaps an order's line set for the desired one in a single
// transaction. The order row is locked for the duration so a racing payment
// or edit cannot interleave with the totals write. Stock moves by the
// difference per product, never by the full amounts. The paid total is
// clamped to the new total and the status is re-derived from it.
func (s *service) ReplaceLines(ctx context.Context, input ReplaceLinesInput) (*models.Order, error) {
	if input.OrderID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one line is required")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransition(enums.OrderStatusPending) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("%s orders cannot be edited", order.Status))
		}

		ids := productIDs(input.Lines)
		for _, line := range order.Lines {
			ids = append(ids, line.ProductID)
		}
		products, err := repo.FindProducts(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}

		replacement, err := ComputeReplacement(order.Kind, order.Lines, input.Lines, products)
		if err != nil {
			return err
		}
		if err := ApplyStockDeltas(ctx, tx, replacement.Deltas); err != nil {
			return err
		}

		if err := repo.DeleteOrderLines(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order lines")
		}
		for i := range replacement.Lines {
			replacement.Lines[i].OrderID = order.ID
		}
		if err := repo.CreateOrderLines(ctx, replacement.Lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order lines")
		}

		totalPaid := order.TotalPaid
		if totalPaid.GreaterThan(replacement.Total) {
			totalPaid = replacement.Total
		}
		status := enums.OrderStatusPending
		paidAt := order.PaidAt
		if totalPaid.GreaterThanOrEqual(replacement.Total) {
			status = enums.OrderStatusPaid
			if paidAt == nil {
				now := time.Now().UTC()
				paidAt = &now
			}
		} else {
			paidAt = nil
		}

		updates := map[string]any{
			"total":      replacement.Total,
			"total_paid": totalPaid,
			"status":     status,
			"paid_at":    paidAt,
		}
		if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order totals")
		}

		order.Total = replacement.Total
		order.TotalPaid = totalPaid
		order.Status = status
		order.PaidAt = paidAt
		order.Lines = replacement.Lines
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes an order together with its lines and payment events, and
// returns its stock. Paid orders are refused; an edit has to reopen the
// balance first.
func (s *service) Delete(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, orderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if !order.Status.CanTransition(enums.OrderStatusCancelled) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("%s orders cannot be deleted", order.Status))
		}

		if err := ApplyStockDeltas(ctx, tx, ReversalDeltas(order.Kind, order.Lines)); err != nil {
			return err
		}
		if err := repo.DeleteOrderPaymentEvents(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment events")
		}
		if err := repo.DeleteOrderLines(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order lines")
		}
		if err := repo.DeleteOrder(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}
		return nil
	})
}

func (s *service) LowStockReport(ctx context.Context) ([]LowStockItem, error) {
	products, err := s.repo.ListLowStockProducts(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock products")
	}
	items := make([]LowStockItem, 0, len(products))
	for _, product := range products {
		items = append(items, LowStockItem{
			ProductID: product.ID,
			SKU:       product.SKU,
			Name:      product.Name,
			Stock:     product.Stock,
			MinStock:  product.MinStock,
		})
	}
	return items, nil
}

func productIDs(lines []LineInput) []int64 {
	seen := make(map[int64]struct{}, len(lines))
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	return ids
}
