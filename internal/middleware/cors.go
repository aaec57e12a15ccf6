package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds configuration for the CORS middleware.
type CORSConfig struct {
	// AllowedOrigins is the list of origins permitted to make cross-origin
	// requests. Use ["*"] to allow all (not recommended for production).
	AllowedOrigins []string

	// TokenHeader is the session token request header. Browsers only send it
	// cross-origin if the preflight lists it.
	TokenHeader string
}

// CORS returns middleware that handles Cross-Origin Resource Sharing headers
// for browser clients served from another origin. Sessions travel in a
// request header rather than a cookie, so credentials are never allowed.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	allowAll := false
	originSet := make(map[string]bool)
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			allowAll = true
		}
		originSet[o] = true
	}
	if allowAll {
		slog.Warn("CORS allows every origin; set BASE_URL to restrict it")
	}

	allowHeaders := []string{"Content-Type", "X-Requested-With"}
	if cfg.TokenHeader != "" {
		allowHeaders = append(allowHeaders, cfg.TokenHeader)
	}
	allowHeadersValue := strings.Join(allowHeaders, ", ")

	allowMethodsValue := strings.Join([]string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodOptions,
	}, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			origin := req.Header.Get("Origin")

			// No Origin header means same-origin request -- skip CORS.
			if origin == "" {
				return next(c)
			}

			if !allowAll && !originSet[origin] {
				// The browser will block the response on the client side.
				return next(c)
			}

			res.Header().Set("Access-Control-Allow-Origin", origin)
			res.Header().Add("Vary", "Origin")

			if req.Method == http.MethodOptions {
				res.Header().Set("Access-Control-Allow-Methods", allowMethodsValue)
				res.Header().Set("Access-Control-Allow-Headers", allowHeadersValue)
				res.Header().Set("Access-Control-Max-Age", "3600")
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}
