package notifications

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pymesoft/comercio-backend/api/responses"
	"github.com/pymesoft/comercio-backend/api/validators"
	"github.com/pymesoft/comercio-backend/internal/notifications"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
	"github.com/pymesoft/comercio-backend/pkg/logger"
)

// List returns recent in-app notifications, optionally unread only.
func List(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		params := notifications.ListParams{
			Limit:      limit,
			UnreadOnly: strings.EqualFold(r.URL.Query().Get("unread_only"), "true"),
		}

		rows, err := svc.List(ctx, params)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// MarkRead marks one notification as read.
func MarkRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notifications service unavailable"))
			return
		}

		notificationID, err := validators.ParsePathID(chi.URLParam(r, "notificationId"), "notification id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.MarkRead(ctx, notificationID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"read": true})
	}
}
