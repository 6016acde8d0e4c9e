package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// PostgreSQL error codes that abort a transaction without it being wrong.
const (
	pgErrDeadlock             = "40P01"
	pgErrSerializationFailure = "40001"
	pgErrLockNotAvailable     = "55P03"
	// Two transactions inserting the same new transfer or fulfillment.
	pgErrUniqueViolation = "23505"
)

// RetrierConfig bounds the retry loop. Zero fields take the defaults.
type RetrierConfig struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// Retrier implements usecase.Retrier with exponential backoff. The operation
// must be a whole transaction, so that a retry starts from scratch.
type Retrier struct {
	cfg    RetrierConfig
	logger zerolog.Logger
}

// NewRetrier creates a retrier with the default bounds.
func NewRetrier(logger zerolog.Logger) *Retrier {
	return NewRetrierWithConfig(logger, RetrierConfig{})
}

// NewRetrierWithConfig creates a retrier with explicit bounds.
func NewRetrierWithConfig(logger zerolog.Logger, cfg RetrierConfig) *Retrier {
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 50 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = time.Second
	}
	if cfg.MaxElapsedTime == 0 {
		cfg.MaxElapsedTime = 10 * time.Second
	}
	return &Retrier{cfg: cfg, logger: logger}
}

// Retry runs operation until it succeeds, fails with a non-retryable error,
// or the bounds are exhausted. The last error is returned unwrapped.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.cfg.InitialInterval
	b.MaxInterval = r.cfg.MaxInterval
	b.MaxElapsedTime = r.cfg.MaxElapsedTime

	attempt := 0
	notify := func(err error, wait time.Duration) {
		r.logger.Warn().Err(err).
			Str("pg_code", pgCode(err)).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("transaction aborted, retrying")
	}

	return backoff.RetryNotify(func() error {
		attempt++
		err := operation()
		if err != nil && !isRetryableError(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, r.cfg.MaxRetries), ctx), notify)
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isRetryableError(err error) bool {
	switch pgCode(err) {
	case pgErrDeadlock, pgErrSerializationFailure, pgErrLockNotAvailable, pgErrUniqueViolation:
		return true
	}
	return false
}
