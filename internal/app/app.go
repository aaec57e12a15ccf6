// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, metrics
// registry, Echo instance) and wires the plugins together.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/userservice/internal/apperror"
	"github.com/keyxmakerx/userservice/internal/config"
	"github.com/keyxmakerx/userservice/internal/middleware"
	"github.com/keyxmakerx/userservice/internal/response"
	"github.com/keyxmakerx/userservice/internal/validation"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup by the serve command and used to register routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB connection pool holding accounts.
	DB *sql.DB

	// Redis backs sessions and the profile cache.
	Redis redis.UniversalClient

	// Metrics is the registry served on /metrics.
	Metrics *prometheus.Registry

	// Echo is the HTTP server instance.
	Echo *echo.Echo
}

// New creates a new App instance with the given dependencies and configures
// the Echo server with global middleware, validation and error handling.
func New(cfg *config.Config, db *sql.DB, rdb redis.UniversalClient, reg *prometheus.Registry) *App {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	// c.RealIP() must resolve the client, not the proxy, for rate limiting.
	middleware.TrustedProxies(e, cfg.TrustedProxies)

	e.Validator = validation.New()

	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Metrics: reg,
		Echo:    e,
	}

	app.setupMiddleware()

	// Register the custom error handler that maps AppErrors to envelopes.
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: outermost runs first.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.Metrics())
	a.Echo.Use(middleware.RequestLogger())

	// Panic recovery sits inside metrics and logging so a recovered panic is
	// still counted and logged as a 500.
	a.Echo.Use(middleware.Recovery())

	a.Echo.Use(middleware.SecurityHeaders())

	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{a.Config.BaseURL},
		TokenHeader:    a.Config.Auth.TokenHeader,
	}))
}

// errorHandler is the custom Echo error handler. Every error becomes the
// response envelope. AppErrors keep their code and status. echo's own 4xx
// errors (unknown route, bad method) become request-rejected errors with
// echo's status. Anything else is an internal failure whose detail is logged
// but never sent.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError

	switch {
	case errors.As(err, &appErr):
		if appErr.Kind == apperror.KindInternal {
			slog.Error("internal error",
				slog.String("code", appErr.Code),
				slog.Any("internal", appErr.Internal),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Request().URL.Path),
			)
		}

	case errors.As(err, &echoErr) && echoErr.Code < http.StatusInternalServerError:
		appErr = apperror.NewRequestRejected(echoErr.Code, echoMessage(echoErr))

	case errors.As(err, &echoErr):
		slog.Error("echo error",
			slog.Int("status", echoErr.Code),
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
		appErr = apperror.NewInternal(err)
		appErr.Status = echoErr.Code

	default:
		// Truly unexpected error -- log it.
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
		appErr = apperror.NewInternal(err)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(appErr.Status)
		return
	}
	if werr := response.Fail(c, appErr); werr != nil {
		slog.Error("writing error response", slog.Any("error", werr))
	}
}

// echoMessage returns the client message for an echo.HTTPError.
func echoMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	if text := http.StatusText(he.Code); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", he.Code)
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting user service",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
