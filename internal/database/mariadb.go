// Package database provides connection setup for MariaDB and Redis.
// Both connections are created once at startup and shared across the
// application via dependency injection. This package owns the connection
// lifecycle (open, configure pool, ping, close).
package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	// MariaDB driver -- imported for side effect of registering the driver.
	_ "github.com/go-sql-driver/mysql"
	"github.com/sethvargo/go-retry"

	"github.com/keyxmakerx/userservice/internal/config"
)

// maxPingRetries bounds how long startup waits for MariaDB.
const maxPingRetries = 9

// NewMariaDB creates a new MariaDB connection pool configured with the
// settings from the provided config. It pings the database to verify
// connectivity before returning.
func NewMariaDB(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening mariadb connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// MariaDB may still be starting when the service container launches.
	// Back off exponentially instead of crash-looping.
	backoff := retry.NewExponential(time.Second)
	backoff = retry.WithCappedDuration(30*time.Second, backoff)
	backoff = retry.WithMaxRetries(maxPingRetries, backoff)

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		if pingErr := db.PingContext(pingCtx); pingErr != nil {
			slog.Warn("mariadb not ready, retrying...",
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", maxPingRetries+1),
				slog.Any("error", pingErr),
			)
			return retry.RetryableError(pingErr)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging mariadb after %d attempts: %w", attempt, err)
	}

	return db, nil
}
