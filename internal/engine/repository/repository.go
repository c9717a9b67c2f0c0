package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrNotFound marks a missing record.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate marks a second prediction for the same symbol and
	// calendar date under the reject policy.
	ErrDuplicate = errors.New("prediction already exists for symbol and date")

	// ErrLeakage marks a feature snapshot timestamped after the decision
	// point plus tolerance. The write is refused and nothing is stored.
	ErrLeakage = errors.New("feature snapshot newer than prediction timestamp")

	// ErrTransientStore marks a storage failure worth retrying: lock
	// contention, serialization conflicts, dropped connections.
	ErrTransientStore = errors.New("transient storage error")

	// ErrPersistentStore marks a storage failure that retrying will not fix.
	ErrPersistentStore = errors.New("persistent storage error")

	// ErrPriceUnavailable marks a price source miss. Evaluation is deferred
	// to the next scan, not failed.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrSnapshotUnavailable marks a feature source miss for a symbol.
	ErrSnapshotUnavailable = errors.New("feature snapshot unavailable")
)

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransientStore)
}

// classifyStoreError tags a gorm/pgx error as transient or persistent so
// callers can apply the retry policy uniformly.
func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == "40001", // serialization_failure
			pgErr.Code == "40P01",              // deadlock_detected
			pgErr.Code == "55P03",              // lock_not_available
			strings.HasPrefix(pgErr.Code, "53"), // insufficient_resources
			strings.HasPrefix(pgErr.Code, "08"): // connection_exception
			return fmt.Errorf("%w: %v", ErrTransientStore, err)
		}
		return fmt.Errorf("%w: %v", ErrPersistentStore, err)
	}

	// Driver-level failures surface without a pg error code.
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "connection") || strings.Contains(msg, "timeout") || strings.Contains(msg, "broken pipe") {
		return fmt.Errorf("%w: %v", ErrTransientStore, err)
	}

	return fmt.Errorf("%w: %v", ErrPersistentStore, err)
}
