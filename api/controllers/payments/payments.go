package payments

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pymesoft/comercio-backend/api/responses"
	"github.com/pymesoft/comercio-backend/api/validators"
	"github.com/pymesoft/comercio-backend/internal/payments"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
	"github.com/pymesoft/comercio-backend/pkg/logger"
)

// ConfirmCash settles the order's outstanding balance in cash.
func ConfirmCash(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := validators.ParsePathID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input payments.ConfirmCashInput
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &input); err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}
		}
		input.OrderID = orderID

		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}

		result, err := svc.ConfirmCash(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("cash payment of %s confirmed", result.Applied.StringFixed(2)))
		}
		responses.WriteSuccess(w, result)
	}
}

// CreateIntent opens a provider payment intent for the outstanding balance.
func CreateIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := validators.ParsePathID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}

		intent, err := svc.CreateIntent(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, fmt.Sprintf("payment intent %s created", intent.IntentID))
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, intent)
	}
}

// ListEvents returns the order's payment ledger.
func ListEvents(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		orderID, err := validators.ParsePathID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		events, err := svc.ListEvents(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, events)
	}
}
