package db

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/data/uow"
	"github.com/yungbote/ledger-backend/internal/data/uow/testutil"
)

// settleOncePool settles at most once, like *sql.Tx.
type settleOncePool struct {
	commitDelay time.Duration

	done       atomic.Bool
	committed  atomic.Bool
	rolledBack atomic.Bool
	rollbacks  atomic.Int32
}

func (p *settleOncePool) PrepareContext(context.Context, string) (*sql.Stmt, error) {
	return nil, errors.New("not supported")
}

func (p *settleOncePool) ExecContext(context.Context, string, ...interface{}) (sql.Result, error) {
	return nil, errors.New("not supported")
}

func (p *settleOncePool) QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error) {
	return nil, errors.New("not supported")
}

func (p *settleOncePool) QueryRowContext(context.Context, string, ...interface{}) *sql.Row {
	return nil
}

func (p *settleOncePool) Commit() error {
	if !p.done.CompareAndSwap(false, true) {
		return sql.ErrTxDone
	}
	time.Sleep(p.commitDelay)
	p.committed.Store(true)
	return nil
}

func (p *settleOncePool) Rollback() error {
	p.rollbacks.Add(1)
	if !p.done.CompareAndSwap(false, true) {
		return sql.ErrTxDone
	}
	p.rolledBack.Store(true)
	return nil
}

func newPoolTx(pool *settleOncePool) (*pgTx, *atomic.Bool) {
	var cancelled atomic.Bool
	db := &gorm.DB{Config: &gorm.Config{}, Statement: &gorm.Statement{ConnPool: pool}}
	return &pgTx{db: db, cancel: func() { cancelled.Store(true) }}, &cancelled
}

func TestReleaseDuringCommitKeepsCommitResult(t *testing.T) {
	s := NewPostgresService(PostgresConfig{}, nil)
	pool := &settleOncePool{commitDelay: 50 * time.Millisecond}
	tx, cancelled := newPoolTx(pool)

	commitErr := make(chan error, 1)
	go func() { commitErr <- s.Commit(tx) }()

	time.Sleep(10 * time.Millisecond)
	if err := s.Release(tx); err != nil {
		t.Fatalf("Release during commit: %v", err)
	}
	if err := <-commitErr; err != nil {
		t.Fatalf("Commit returned %v, want nil", err)
	}
	if !pool.committed.Load() || pool.rolledBack.Load() {
		t.Fatalf("want committed only, got committed=%v rolledBack=%v", pool.committed.Load(), pool.rolledBack.Load())
	}
	if !cancelled.Load() {
		t.Fatalf("Release did not cancel the transaction context")
	}
	if tx.db.Error != nil {
		t.Fatalf("shared gorm error was written: %v", tx.db.Error)
	}
}

func TestReleaseBeforeCommitRollsBack(t *testing.T) {
	s := NewPostgresService(PostgresConfig{}, nil)
	pool := &settleOncePool{}
	tx, _ := newPoolTx(pool)

	if err := s.Release(tx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := s.Release(tx); err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if got := pool.rollbacks.Load(); got != 1 {
		t.Fatalf("rollbacks: want=1 got=%d", got)
	}
	if err := s.Commit(tx); !errors.Is(err, sql.ErrTxDone) {
		t.Fatalf("Commit after release: want sql.ErrTxDone, got %v", err)
	}
	if err := s.Rollback(tx); err != nil {
		t.Fatalf("Rollback after release should absorb ErrTxDone, got %v", err)
	}
}

func TestForeignHandleIsRejected(t *testing.T) {
	s := NewPostgresService(PostgresConfig{}, nil)
	foreign := testutil.NewFakeProvider()
	tx, err := foreign.Begin(context.Background(), uow.ReadCommitted)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.Commit(tx); !errors.Is(err, errForeignTx) {
		t.Fatalf("Commit: want errForeignTx, got %v", err)
	}
	if err := s.Release(tx); !errors.Is(err, errForeignTx) {
		t.Fatalf("Release: want errForeignTx, got %v", err)
	}
}
