package orders

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pymesoft/comercio-backend/api/responses"
	"github.com/pymesoft/comercio-backend/api/validators"
	"github.com/pymesoft/comercio-backend/internal/orders"
	"github.com/pymesoft/comercio-backend/pkg/enums"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
	"github.com/pymesoft/comercio-backend/pkg/logger"
)

// Create opens a new order and moves stock for its lines.
func Create(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var input orders.CreateOrderInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithOrderID(ctx, order.ID)
			logg.Info(ctx, fmt.Sprintf("%s order created", order.Kind))
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// List returns orders matching the optional kind/status/party filters.
func List(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		filters, err := filtersFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		rows, err := svc.List(ctx, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// Detail returns one order with its lines and counterparty.
func Detail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParsePathID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		order, err := svc.Get(ctx, orderID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// ReplaceLines swaps the order's line set, moving stock by the differences.
func ReplaceLines(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := validators.ParsePathID(chi.URLParam(r, "orderId"), "order id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var input orders.ReplaceLinesInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input.OrderID = orderID

		if logg != nil {
			ctx = logg.WithOrderID(ctx, orderID)
		}

		order, err := svc.ReplaceLines(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "order lines replaced")
		}
		responses.WriteSuccess(w, order)
	}
}

// Delete removes the order and restores its stock.
func Delete(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
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

		if err := svc.Delete(ctx, orderID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			logg.Info(ctx, "order deleted")
		}
		responses.WriteSuccess(w, map[string]any{"deleted": true})
	}
}

// LowStockReport lists active products at or below their minimum stock.
func LowStockReport(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		items, err := svc.LowStockReport(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func filtersFromQuery(r *http.Request) (orders.OrderFilters, error) {
	var filters orders.OrderFilters
	query := r.URL.Query()

	if raw := strings.TrimSpace(query.Get("kind")); raw != "" {
		kind, err := enums.ParseOrderKind(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind filter")
		}
		filters.Kind = &kind
	}
	if raw := strings.TrimSpace(query.Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(query.Get("party_id")); raw != "" {
		partyID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || partyID <= 0 {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid party_id filter")
		}
		filters.PartyID = &partyID
	}
	if raw := strings.TrimSpace(query.Get("date_from")); raw != "" {
		from, err := parseDate(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid date_from filter")
		}
		filters.DateFrom = &from
	}
	if raw := strings.TrimSpace(query.Get("date_to")); raw != "" {
		to, err := parseDate(raw)
		if err != nil {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "invalid date_to filter")
		}
		filters.DateTo = &to
	}

	limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 200)
	if err != nil {
		return filters, err
	}
	filters.Limit = limit

	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return filters, err
	}
	filters.Offset = offset

	return filters, nil
}

func parseDate(raw string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", raw)
}
