// Package middleware provides HTTP middleware for the user service.
// ratelimit.go limits requests per client IP with echo's token-bucket
// limiter. Used on the login and register endpoints.
package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/keyxmakerx/userservice/internal/apperror"
)

// RateLimit returns middleware that lets each client IP make maxRequests
// requests in a burst, refilled evenly over window. Rejected requests get
// the too-many-requests envelope with HTTP 429. A non-positive maxRequests
// disables the limit.
//
// The client IP is c.RealIP(), so the echo instance's IPExtractor decides
// which forwarding headers are believed (see TrustedProxies).
func RateLimit(maxRequests int, window time.Duration) echo.MiddlewareFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(maxRequests) / window.Seconds()),
		Burst:     maxRequests,
		ExpiresIn: window,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			return apperror.NewInternal(err)
		},
		DenyHandler: func(_ echo.Context, _ string, _ error) error {
			return apperror.NewTooManyRequests()
		},
	})
}
