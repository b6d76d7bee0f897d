package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pymesoft/comercio-backend/api/controllers"
	notificationcontrollers "github.com/pymesoft/comercio-backend/api/controllers/notifications"
	ordercontrollers "github.com/pymesoft/comercio-backend/api/controllers/orders"
	paymentcontrollers "github.com/pymesoft/comercio-backend/api/controllers/payments"
	webhookcontrollers "github.com/pymesoft/comercio-backend/api/controllers/webhooks"
	"github.com/pymesoft/comercio-backend/api/middleware"
	"github.com/pymesoft/comercio-backend/internal/notifications"
	"github.com/pymesoft/comercio-backend/internal/orders"
	"github.com/pymesoft/comercio-backend/internal/payments"
	stripewebhook "github.com/pymesoft/comercio-backend/internal/webhooks/stripe"
	"github.com/pymesoft/comercio-backend/pkg/db"
	"github.com/pymesoft/comercio-backend/pkg/logger"
	"github.com/pymesoft/comercio-backend/pkg/redis"
	"github.com/pymesoft/comercio-backend/pkg/stripe"
)

func NewRouter(
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	ordersService orders.Service,
	paymentsService payments.Service,
	notificationsService notifications.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
	registry *prometheus.Registry,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(dbP, redisClient, logg))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", ordercontrollers.List(ordersService, logg))
			r.Post("/", ordercontrollers.Create(ordersService, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Get("/", ordercontrollers.Detail(ordersService, logg))
				r.Put("/lines", ordercontrollers.ReplaceLines(ordersService, logg))
				r.Delete("/", ordercontrollers.Delete(ordersService, logg))
				r.Route("/payments", func(r chi.Router) {
					r.Get("/", paymentcontrollers.ListEvents(paymentsService, logg))
					r.Post("/cash", paymentcontrollers.ConfirmCash(paymentsService, logg))
					r.Post("/intent", paymentcontrollers.CreateIntent(paymentsService, logg))
				})
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", notificationcontrollers.List(notificationsService, logg))
			r.Post("/{notificationId}/read", notificationcontrollers.MarkRead(notificationsService, logg))
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/low-stock", ordercontrollers.LowStockReport(ordersService, logg))
		})
	})

	return r
}
