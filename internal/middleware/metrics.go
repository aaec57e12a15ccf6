package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/userservice/internal/metrics"
)

// unmatchedRoute labels requests no route matched, so scanners probing random
// paths cannot grow label cardinality.
const unmatchedRoute = "unmatched"

// Metrics returns middleware that records request count and latency per
// route pattern. Errors are handed to the echo error handler first so the
// recorded status matches the response.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			if err := next(c); err != nil {
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = unmatchedRoute
			}

			metrics.RecordHTTPRequest(
				c.Request().Method,
				route,
				strconv.Itoa(c.Response().Status),
				time.Since(start),
			)
			return nil
		}
	}
}
