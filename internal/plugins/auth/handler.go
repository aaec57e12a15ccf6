package auth

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/userservice/internal/apperror"
	"github.com/keyxmakerx/userservice/internal/plugins/sessions"
	"github.com/keyxmakerx/userservice/internal/response"
)

// Handler handles HTTP requests for accounts. Handlers are thin: they bind
// the request, validate it, call the service, and write the envelope. Errors
// are returned to the echo error handler, which writes the failure envelope.
type Handler struct {
	service Service
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Register creates an account (POST /user/register).
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	req.Username = strings.TrimSpace(req.Username)

	if err := c.Validate(&req); err != nil {
		return err
	}

	_, err := h.service.Register(c.Request().Context(), RegisterInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return response.OK(c, nil)
}

// Login authenticates and returns a session token (POST /user/login).
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	result, err := h.service.Login(c.Request().Context(), LoginInput{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return response.OK(c, result)
}

// ChangePassword changes the caller's password (PUT /user/password). The
// caller is the account bound to the session, never an id from the body.
func (h *Handler) ChangePassword(c echo.Context) error {
	session := sessions.FromContext(c)
	if session == nil {
		return apperror.NewSessionInvalid()
	}

	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	err := h.service.ChangePassword(c.Request().Context(), session.UserID, ChangePasswordInput{
		OldPassword: req.OldPassword,
		NewPassword: req.NewPassword,
	})
	if err != nil {
		return err
	}

	return response.OK(c, nil)
}

// GetProfile returns the public profile of an account (GET /user?id=N).
func (h *Handler) GetProfile(c echo.Context) error {
	var req ProfileRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewValidation([]apperror.FieldError{
			{Field: "id", Message: "id must be a number"},
		})
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	profile, err := h.service.GetProfile(c.Request().Context(), req.ID)
	if err != nil {
		return err
	}

	return response.OK(c, profile)
}
