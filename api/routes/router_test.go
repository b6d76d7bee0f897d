package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	internalnotifications "github.com/pymesoft/comercio-backend/internal/notifications"
	internalorders "github.com/pymesoft/comercio-backend/internal/orders"
	internalpayments "github.com/pymesoft/comercio-backend/internal/payments"
	stripewebhook "github.com/pymesoft/comercio-backend/internal/webhooks/stripe"
	"github.com/pymesoft/comercio-backend/pkg/db/models"
	"github.com/pymesoft/comercio-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(ctx context.Context) error {
	return nil
}

type stubOrdersService struct{}

func (stubOrdersService) Create(ctx context.Context, input internalorders.CreateOrderInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	return &models.Order{ID: orderID}, nil
}

func (stubOrdersService) List(ctx context.Context, filters internalorders.OrderFilters) ([]models.Order, error) {
	return []models.Order{{ID: 1}}, nil
}

func (stubOrdersService) ReplaceLines(ctx context.Context, input internalorders.ReplaceLinesInput) (*models.Order, error) {
	panic("unimplemented")
}

func (stubOrdersService) Delete(ctx context.Context, orderID int64) error {
	return nil
}

func (stubOrdersService) LowStockReport(ctx context.Context) ([]internalorders.LowStockItem, error) {
	return []internalorders.LowStockItem{}, nil
}

type stubPaymentsService struct{}

func (stubPaymentsService) RecordPayment(ctx context.Context, input internalpayments.RecordPaymentInput) (*internalpayments.PaymentResult, error) {
	panic("unimplemented")
}

func (stubPaymentsService) ConfirmCash(ctx context.Context, input internalpayments.ConfirmCashInput) (*internalpayments.PaymentResult, error) {
	panic("unimplemented")
}

func (stubPaymentsService) CreateIntent(ctx context.Context, orderID int64) (*internalpayments.IntentDetails, error) {
	panic("unimplemented")
}

func (stubPaymentsService) ListEvents(ctx context.Context, orderID int64) ([]models.PaymentEvent, error) {
	return []models.PaymentEvent{}, nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) NotifyOrderPaid(ctx context.Context, notice internalnotifications.OrderPaidNotice) error {
	return nil
}

func (stubNotificationsService) List(ctx context.Context, params internalnotifications.ListParams) ([]models.Notification, error) {
	return []models.Notification{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, notificationID int64) error {
	return nil
}

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data == nil {
		s.data = map[string]string{}
	}
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("comercio:idempotency:%s:%s", scope, id)
}

func (s *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}

func newTestRouter(t *testing.T, registry *prometheus.Registry) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Payments: stubPaymentsService{},
	})
	if err != nil {
		t.Fatalf("webhook service: %v", err)
	}
	guard, err := stripewebhook.NewIdempotencyGuard(&memoryIdempotencyStore{}, time.Minute, "stripe")
	if err != nil {
		t.Fatalf("guard: %v", err)
	}

	return NewRouter(
		logg,
		stubPinger{},
		nil,
		stubOrdersService{},
		stubPaymentsService{},
		stubNotificationsService{},
		nil,
		webhookService,
		guard,
		registry,
	)
}

func TestRouterServesHealthLive(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterServesOrderRoutes(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for order list got %d", resp.Code)
	}

	var envelope struct {
		Data []models.Order `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 {
		t.Fatalf("unexpected order list payload")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders/7/payments", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for payment events got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/reports/low-stock", nil)
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for low stock report got %d", resp.Code)
	}
}

func TestRouterServesMetricsWhenRegistryProvided(t *testing.T) {
	registry := prometheus.NewRegistry()
	router := newTestRouter(t, registry)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for metrics got %d", resp.Code)
	}
}

func TestRouterRejectsUnsignedWebhook(t *testing.T) {
	router := newTestRouter(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unsigned webhook got %d", resp.Code)
	}
}
