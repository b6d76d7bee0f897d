package controllers

import (
	"net/http"

	"github.com/pymesoft/comercio-backend/api/responses"
	"github.com/pymesoft/comercio-backend/pkg/db"
	pkgerrors "github.com/pymesoft/comercio-backend/pkg/errors"
	"github.com/pymesoft/comercio-backend/pkg/logger"
	"github.com/pymesoft/comercio-backend/pkg/redis"
)

func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"status": "ok"})
	}
}

// HealthReady reports whether the datastore and cache are reachable.
func HealthReady(database db.Pinger, cache redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if database == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "database unavailable"))
			return
		}
		if err := database.Ping(ctx); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database ping failed"))
			return
		}

		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis ping failed"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
