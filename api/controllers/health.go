package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/vistore-backend/api/responses"
	"github.com/angelmondragon/vistore-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/vistore-backend/pkg/errors"
	"github.com/angelmondragon/vistore-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

// Pinger is a dependency the readiness probe checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Vistore-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every named dependency answers a ping.
// The live catalog state is reported but does not fail readiness, since the
// storefront serves the seed list until it connects.
func HealthReady(cfg *config.Config, logg *logger.Logger, live liveState, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Vistore-Env", cfg.App.Env)
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		failed := false
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				failed = true
				if logg != nil {
					logg.WarnErr(logg.WithField(ctx, "dependency", name), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}
		if failed {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}

		catalogState := "seed"
		if live != nil && live.IsLive() {
			catalogState = "live"
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks, "catalog": catalogState})
	}
}

type liveState interface {
	IsLive() bool
}
