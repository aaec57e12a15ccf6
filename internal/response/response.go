// Package response writes the JSON envelope every endpoint returns:
//
//	{"status": true, "code": "2000", "message": "ok", "data": {...}}
//
// Business failures travel in the same envelope with status=false, so clients
// branch on code rather than on the HTTP status.
package response

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/userservice/internal/apperror"
)

// Envelope is the response body shape.
type Envelope struct {
	Status  bool   `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK writes a success envelope with optional data.
func OK(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, Envelope{
		Status:  true,
		Code:    apperror.CodeSuccess,
		Message: apperror.MessageSuccess,
		Data:    data,
	})
}

// Fail writes the failure envelope for err. Validation failures put the
// field list in data.
func Fail(c echo.Context, err error) error {
	appErr := apperror.From(err)

	env := Envelope{
		Status:  false,
		Code:    appErr.Code,
		Message: appErr.Message,
	}
	if len(appErr.Fields) > 0 {
		env.Data = appErr.Fields
	}

	return c.JSON(appErr.Status, env)
}
