package auth

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/userservice/internal/middleware"
)

// RouteConfig holds per-route settings for the auth routes.
type RouteConfig struct {
	// LoginPerMinute and RegisterPerMinute cap attempts per client IP.
	LoginPerMinute    int
	RegisterPerMinute int
}

// RegisterRoutes sets up all account routes on the given Echo instance.
// Register and login are public and rate-limited to slow down credential
// stuffing. Password change and profile lookup require a session.
func RegisterRoutes(e *echo.Echo, h *Handler, requireSession echo.MiddlewareFunc, cfg RouteConfig) {
	// Public routes -- no session required.
	e.POST("/user/register", h.Register, middleware.RateLimit(cfg.RegisterPerMinute, time.Minute))
	e.POST("/user/login", h.Login, middleware.RateLimit(cfg.LoginPerMinute, time.Minute))

	// Session-protected routes.
	e.GET("/user", h.GetProfile, requireSession)
	e.PUT("/user/password", h.ChangePassword, requireSession)
}
