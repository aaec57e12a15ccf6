package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/userservice/internal/kvstore"
	"github.com/keyxmakerx/userservice/internal/metrics"
	"github.com/keyxmakerx/userservice/internal/plugins/auth"
	"github.com/keyxmakerx/userservice/internal/plugins/sessions"
)

// healthTimeout bounds each dependency ping in /healthz.
const healthTimeout = 2 * time.Second

// RegisterRoutes builds the plugins from the shared infrastructure and
// registers every route. This is the single place where all routes are
// aggregated.
func (a *App) RegisterRoutes() error {
	e := a.Echo

	hasher, err := auth.NewPasswordHasher(a.Config.Auth.PasswordScheme)
	if err != nil {
		return err
	}

	store := kvstore.NewRedisStore(a.Redis)
	sessionManager := sessions.NewManager(store)
	repo := auth.NewUserRepository(a.DB)

	authService := auth.NewService(repo, sessionManager, hasher, store, auth.ServiceConfig{
		SessionTTL: a.Config.Auth.SessionTTL,
		ProfileTTL: a.Config.Cache.ProfileTTL,
	})

	// --- Public Routes (no session required) ---

	e.GET("/healthz", a.healthz(repo, store))
	if a.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics.Handler(a.Metrics)))
	}

	// --- Plugin Routes ---

	auth.RegisterRoutes(e, auth.NewHandler(authService),
		sessions.RequireSession(sessionManager, a.Config.Auth.TokenHeader),
		auth.RouteConfig{
			LoginPerMinute:    a.Config.RateLimit.LoginPerMinute,
			RegisterPerMinute: a.Config.RateLimit.RegisterPerMinute,
		},
	)

	return nil
}

// pinger is anything /healthz can check.
type pinger interface {
	Ping(ctx context.Context) error
}

// healthz reports whether MariaDB and Redis answer. Dependency errors are
// reported by name only.
func (a *App) healthz(db, cache pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		checks := map[string]pinger{"database": db, "redis": cache}
		result := make(map[string]string, len(checks))
		healthy := true

		for name, p := range checks {
			ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
			err := p.Ping(ctx)
			cancel()
			if err != nil {
				slog.Warn("health check failed",
					slog.String("dependency", name),
					slog.Any("error", err),
				)
				healthy = false
				result[name] = "down"
				continue
			}
			result[name] = "up"
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.JSON(status, map[string]any{
			"status": healthy,
			"checks": result,
		})
	}
}
