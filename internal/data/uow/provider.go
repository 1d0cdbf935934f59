package uow

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/domain/events"
)

// Tx is a native transaction handle checked out from a ConnectionProvider.
type Tx interface {
	// DB is the transaction-scoped GORM handle repositories write through.
	DB() *gorm.DB
}

// ConnectionProvider owns the connection pool. Release must be safe to call
// after Commit or Rollback and returns the handle's connection to the pool.
type ConnectionProvider interface {
	Ready() bool
	Begin(ctx context.Context, level IsolationLevel) (Tx, error)
	Commit(tx Tx) error
	Rollback(tx Tx) error
	Release(tx Tx) error
}

// Publisher receives committed events, one call per event.
type Publisher interface {
	Emit(evt events.Event)
}

// IDGenerator supplies transaction ids. It must be safe for concurrent use.
type IDGenerator func() string

func defaultIDGenerator() string { return uuid.NewString() }
