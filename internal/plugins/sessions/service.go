package sessions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/keyxmakerx/userservice/internal/apperror"
	"github.com/keyxmakerx/userservice/internal/kvstore"
	"github.com/keyxmakerx/userservice/internal/metrics"
)

// Manager defines the session contract. The credential service calls Issue
// at login; the RequireSession middleware calls Validate on every protected
// request.
type Manager interface {
	Issue(ctx context.Context, snap Snapshot, ttl time.Duration) (token string, err error)
	Validate(ctx context.Context, token string) (*Session, error)
}

// manager implements Manager on a kvstore.Store.
type manager struct {
	store kvstore.Store
	now   func() time.Time
}

// NewManager creates a session manager backed by the given store.
func NewManager(store kvstore.Store) Manager {
	return &manager{
		store: store,
		now:   time.Now,
	}
}

// Issue mints a fresh random token and stores the snapshot under it with the
// given TTL. Every call produces a new token; existing sessions for the same
// account are left alone. Token collisions are not retried: a v4 UUID has 122
// random bits.
func (m *manager) Issue(ctx context.Context, snap Snapshot, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", apperror.NewInternal(fmt.Errorf("session ttl must be positive, got %s", ttl))
	}

	token := uuid.NewString()
	session := Session{
		Snapshot: snap,
		IssuedAt: m.now().UTC(),
	}

	if err := kvstore.SetJSON(ctx, m.store, storageKey(token), session, ttl); err != nil {
		return "", apperror.NewInternal(fmt.Errorf("storing session: %w", err))
	}

	metrics.SessionsIssued.Inc()
	slog.Debug("session issued",
		slog.Int64("user_id", snap.UserID),
		slog.Duration("ttl", ttl),
	)

	return token, nil
}

// Validate looks the token up in the store. A missing key, whether never
// issued or expired, is SessionInvalid. Store failures are internal errors
// and must not be reported as an invalid session.
func (m *manager) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		metrics.RecordSessionValidation(metrics.ResultInvalid)
		return nil, apperror.NewSessionInvalid()
	}

	session, err := kvstore.GetJSON[Session](ctx, m.store, storageKey(token))
	if errors.Is(err, kvstore.ErrNotFound) {
		metrics.RecordSessionValidation(metrics.ResultInvalid)
		return nil, apperror.NewSessionInvalid()
	}
	if err != nil {
		metrics.RecordSessionValidation(metrics.ResultError)
		return nil, apperror.NewInternal(fmt.Errorf("reading session: %w", err))
	}

	session.Token = token
	metrics.RecordSessionValidation(metrics.ResultValid)
	return session, nil
}
