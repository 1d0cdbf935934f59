package uow

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/yungbote/ledger-backend/internal/domain/aggregates"
)

var (
	// ErrNotReady means the database never became reachable within the readiness timeout.
	ErrNotReady = errors.New("uow: database connection not ready")
	// ErrTransactionNotActive means events were marked against a transaction that is
	// unknown, already settled, or reclaimed by the watchdog.
	ErrTransactionNotActive = errors.New("uow: transaction not active")
	ErrDuplicateTransaction = errors.New("uow: duplicate transaction id")
	// ErrUndeclaredEvent means an aggregate raised an event missing from its contract.
	ErrUndeclaredEvent = errors.New("uow: event not declared by aggregate contract")
	ErrNilCallback          = errors.New("uow: nil transaction callback")
	// ErrCallbackPanic wraps a panic raised inside a transaction callback.
	ErrCallbackPanic = errors.New("uow: transaction callback panicked")
)

// MapCommitError classifies a commit failure. The driver error stays reachable
// through errors.Is / errors.As.
func MapCommitError(op string, err error) error {
	if err == nil {
		return nil
	}
	var aggErr *aggregates.Error
	if errors.As(err, &aggErr) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return aggregates.Wrap(aggregates.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return aggregates.Wrap(aggregates.CodeConflict, op, err) // unique_violation
		case "23503", "23514":
			return aggregates.Wrap(aggregates.CodePreconditionFailed, op, err) // foreign_key / check
		case "40001", "40P01", "55P03":
			return aggregates.Wrap(aggregates.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"):
		return aggregates.Wrap(aggregates.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "could not serialize"):
		return aggregates.Wrap(aggregates.CodeRetryable, op, err)
	default:
		return aggregates.Wrap(aggregates.CodeInternal, op, err)
	}
}
