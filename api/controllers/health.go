package controllers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/multierr"

	"github.com/tillpoint/pos-engine/api/responses"
	"github.com/tillpoint/pos-engine/pkg/config"
	pkgerrors "github.com/tillpoint/pos-engine/pkg/errors"
	"github.com/tillpoint/pos-engine/pkg/logger"
)

// Pinger is anything whose connectivity gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tillpoint-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, db, cache Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tillpoint-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{}
		var errs error

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				checks["db"] = "down"
				errs = multierr.Append(errs, fmt.Errorf("db: %w", err))
			} else {
				checks["db"] = "up"
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				checks["redis"] = "down"
				errs = multierr.Append(errs, fmt.Errorf("redis: %w", err))
			} else {
				checks["redis"] = "up"
			}
		}

		if errs != nil {
			logg.Error(ctx, "readiness checks failed", errs)
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "dependencies unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
