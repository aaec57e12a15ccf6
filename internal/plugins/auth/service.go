package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/userservice/internal/apperror"
	"github.com/keyxmakerx/userservice/internal/kvstore"
	"github.com/keyxmakerx/userservice/internal/metrics"
	"github.com/keyxmakerx/userservice/internal/plugins/sessions"
)

// Event labels for metrics.AuthEvents.
const (
	eventRegister       = "register"
	eventLogin          = "login"
	eventChangePassword = "change_password"
)

// profileKeyPrefix is the key/value store prefix for cached profiles.
const profileKeyPrefix = "profile:"

// Service defines the business logic contract for credentials.
// Handlers call these methods -- they never touch the repository directly.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Account, error)
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)
	ChangePassword(ctx context.Context, accountID int64, input ChangePasswordInput) error
	GetProfile(ctx context.Context, accountID int64) (*Profile, error)
}

// ServiceConfig carries the tunables of the credential service.
type ServiceConfig struct {
	// SessionTTL is the lifetime of a session minted at login.
	SessionTTL time.Duration

	// ProfileTTL is how long a profile stays cached. Zero disables caching.
	ProfileTTL time.Duration
}

// authService implements Service with salted hashing and delegated sessions.
type authService struct {
	repo     UserRepository
	sessions sessions.Manager
	hasher   PasswordHasher
	cache    kvstore.Store // nil disables the profile cache
	cfg      ServiceConfig
	now      func() time.Time
	newSalt  func() string
}

// NewService creates a new credential service with the given dependencies.
func NewService(repo UserRepository, sm sessions.Manager, hasher PasswordHasher, cache kvstore.Store, cfg ServiceConfig) Service {
	return &authService{
		repo:     repo,
		sessions: sm,
		hasher:   hasher,
		cache:    cache,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		newSalt:  uuid.NewString,
	}
}

// Register creates a new account. The existence check runs first so the
// common duplicate case never reaches the insert; the unique index on
// user_name catches the concurrent case and the repository maps it to the
// same error.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*Account, error) {
	username := strings.TrimSpace(input.Username)

	_, err := s.repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		metrics.RecordAuthEvent(eventRegister, metrics.OutcomeDuplicateUsername)
		return nil, apperror.NewDuplicateUsername()
	case !apperror.HasCode(err, apperror.CodeUserNotFound):
		metrics.RecordAuthEvent(eventRegister, metrics.OutcomeError)
		return nil, apperror.NewInternal(fmt.Errorf("checking username: %w", err))
	}

	salt := s.newSalt()
	now := s.now()
	account := &Account{
		Username:     username,
		PasswordHash: s.hasher.Hash(input.Password, salt),
		Salt:         salt,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	n, err := s.repo.Create(ctx, account)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeDuplicateUsername) {
			metrics.RecordAuthEvent(eventRegister, metrics.OutcomeDuplicateUsername)
			return nil, apperror.NewDuplicateUsername()
		}
		metrics.RecordAuthEvent(eventRegister, metrics.OutcomeError)
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}
	if n != 1 {
		metrics.RecordAuthEvent(eventRegister, metrics.OutcomeError)
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %d rows affected", n))
	}

	metrics.RecordAuthEvent(eventRegister, metrics.OutcomeSuccess)
	slog.Info("user registered",
		slog.Int64("user_id", account.ID),
		slog.String("username", account.Username),
	)

	return account, nil
}

// Login authenticates by username and password and mints a new session.
// Every successful login gets a fresh token; existing sessions are untouched.
func (s *authService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)

	account, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, s.credentialFailure(eventLogin, err, "finding user")
	}

	if !s.hasher.Verify(input.Password, account.Salt, account.PasswordHash) {
		metrics.RecordAuthEvent(eventLogin, metrics.OutcomePasswordMismatch)
		return nil, apperror.NewPasswordMismatch()
	}

	if s.hasher.NeedsUpgrade(account.PasswordHash) {
		s.upgradeHash(ctx, account, input.Password)
	}

	token, err := s.sessions.Issue(ctx, sessions.Snapshot{
		UserID:   account.ID,
		Username: account.Username,
		Salt:     account.Salt,
	}, s.cfg.SessionTTL)
	if err != nil {
		metrics.RecordAuthEvent(eventLogin, metrics.OutcomeError)
		return nil, err
	}

	metrics.RecordAuthEvent(eventLogin, metrics.OutcomeSuccess)
	slog.Info("user logged in",
		slog.Int64("user_id", account.ID),
		slog.String("username", account.Username),
	)

	return &LoginResult{Username: account.Username, Token: token}, nil
}

// upgradeHash replaces a legacy digest with the current scheme, keeping the
// salt. Failure is logged and does not fail the login.
func (s *authService) upgradeHash(ctx context.Context, account *Account, password string) {
	hash := s.hasher.Hash(password, account.Salt)
	if _, err := s.repo.UpdatePassword(ctx, account.ID, hash); err != nil {
		slog.Warn("failed to upgrade password hash",
			slog.Int64("user_id", account.ID),
			slog.Any("error", err),
		)
		return
	}
	account.PasswordHash = hash
	slog.Info("password hash upgraded", slog.Int64("user_id", account.ID))
}

// ChangePassword verifies the old password against the stored salt and hash,
// then stores the new hash under the same salt. The account is reloaded so a
// session that outlived its account fails with UserNotFound.
func (s *authService) ChangePassword(ctx context.Context, accountID int64, input ChangePasswordInput) error {
	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		return s.credentialFailure(eventChangePassword, err, "finding user")
	}

	if !s.hasher.Verify(input.OldPassword, account.Salt, account.PasswordHash) {
		metrics.RecordAuthEvent(eventChangePassword, metrics.OutcomePasswordMismatch)
		return apperror.NewPasswordMismatch()
	}

	hash := s.hasher.Hash(input.NewPassword, account.Salt)
	n, err := s.repo.UpdatePassword(ctx, account.ID, hash)
	if err != nil {
		metrics.RecordAuthEvent(eventChangePassword, metrics.OutcomeError)
		return apperror.NewInternal(fmt.Errorf("updating password: %w", err))
	}
	if n == 0 {
		// The row vanished between the read and the update.
		metrics.RecordAuthEvent(eventChangePassword, metrics.OutcomeUserNotFound)
		return apperror.NewUserNotFound()
	}

	metrics.RecordAuthEvent(eventChangePassword, metrics.OutcomeSuccess)
	slog.Info("password changed", slog.Int64("user_id", account.ID))

	return nil
}

// GetProfile returns the public view of an account, read through the cache.
func (s *authService) GetProfile(ctx context.Context, accountID int64) (*Profile, error) {
	key := profileKeyPrefix + strconv.FormatInt(accountID, 10)

	if s.cachingProfiles() {
		cached, err := kvstore.GetJSON[Profile](ctx, s.cache, key)
		switch {
		case err == nil:
			return cached, nil
		case !errors.Is(err, kvstore.ErrNotFound):
			slog.Warn("profile cache read failed",
				slog.Int64("user_id", accountID),
				slog.Any("error", err),
			)
		}
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeUserNotFound) {
			return nil, apperror.NewUserNotFound()
		}
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	profile := &Profile{ID: account.ID, Username: account.Username}

	if s.cachingProfiles() {
		if err := kvstore.SetJSON(ctx, s.cache, key, profile, s.cfg.ProfileTTL); err != nil {
			slog.Warn("profile cache write failed",
				slog.Int64("user_id", accountID),
				slog.Any("error", err),
			)
		}
	}

	return profile, nil
}

func (s *authService) cachingProfiles() bool {
	return s.cache != nil && s.cfg.ProfileTTL > 0
}

// credentialFailure maps a repository lookup error to the client-facing error
// and records the outcome.
func (s *authService) credentialFailure(event string, err error, action string) error {
	if apperror.HasCode(err, apperror.CodeUserNotFound) {
		metrics.RecordAuthEvent(event, metrics.OutcomeUserNotFound)
		return apperror.NewUserNotFound()
	}
	metrics.RecordAuthEvent(event, metrics.OutcomeError)
	return apperror.NewInternal(fmt.Errorf("%s: %w", action, err))
}
