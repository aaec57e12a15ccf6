// Package auth is the credential side of the user service: registration,
// login, password change and profile lookup. It owns the salting and hashing
// scheme and the username uniqueness invariant. Sessions are delegated to the
// sessions plugin.
package auth

import (
	"time"
)

// Account represents a registered user. Database scanning uses this struct
// directly; the secret fields never serialize.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Never expose in JSON responses.
	Salt         string    `json:"-"` // Never expose.
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Profile is the public projection of an Account.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the registration form.
type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=64"`
	Password string `json:"password" form:"password" validate:"min=8,max=20"`
}

// LoginRequest holds the login form. Credentials are checked by the service,
// not by validation rules.
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// ChangePasswordRequest holds the password change body.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"min=8,max=20"`
	NewPassword string `json:"new_password" validate:"min=8,max=20"`
}

// ProfileRequest holds the profile lookup query.
type ProfileRequest struct {
	ID int64 `query:"id" validate:"required,gt=0"`
}

// --- Service Input DTOs (passed from handler to service) ---

// RegisterInput is the validated input for creating an account.
type RegisterInput struct {
	Username string
	Password string
}

// LoginInput is the input for authenticating an account.
type LoginInput struct {
	Username string
	Password string
}

// ChangePasswordInput is the validated input for a password change.
type ChangePasswordInput struct {
	OldPassword string
	NewPassword string
}

// --- Results ---

// LoginResult is returned to the client after a successful login.
type LoginResult struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}
