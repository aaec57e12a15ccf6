package sessions

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/userservice/internal/apperror"
	"github.com/keyxmakerx/userservice/internal/response"
)

// contextKeySession is the echo context key for the validated session. Other
// plugins read it through FromContext.
const contextKeySession = "sessions_session"

// RequireSession returns middleware that reads the session token from the
// given request header and validates it. Invalid or expired tokens get the
// SessionInvalid envelope and the handler is never called. Valid sessions
// are stored in the echo context for downstream handlers.
func RequireSession(manager Manager, header string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := c.Request().Header.Get(header)

			session, err := manager.Validate(c.Request().Context(), token)
			if err != nil {
				if !apperror.HasCode(err, apperror.CodeSessionInvalid) {
					// Infrastructure failure: let the error handler log it.
					return err
				}
				slog.Debug("rejected request without valid session",
					slog.String("path", c.Request().URL.Path),
					slog.Bool("token_present", token != ""),
				)
				return response.Fail(c, err)
			}

			c.Set(contextKeySession, session)
			return next(c)
		}
	}
}

// FromContext returns the session stored by RequireSession, or nil if the
// route is not protected.
func FromContext(c echo.Context) *Session {
	session, ok := c.Get(contextKeySession).(*Session)
	if !ok {
		return nil
	}
	return session
}
