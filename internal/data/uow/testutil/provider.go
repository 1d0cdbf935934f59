package testutil

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/data/uow"
)

// FakeTx is the handle FakeProvider hands out.
type FakeTx struct {
	Seq   int
	Level uow.IsolationLevel
	db    *gorm.DB

	mu         sync.Mutex
	committed  bool
	rolledBack bool
	releases   []time.Time
}

func (t *FakeTx) DB() *gorm.DB { return t.db }

func (t *FakeTx) Committed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.committed
}

func (t *FakeTx) RolledBack() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rolledBack
}

// Releases returns the times Release was called on this handle.
func (t *FakeTx) Releases() []time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]time.Time, len(t.releases))
	copy(out, t.releases)
	return out
}

// FakeProvider is an in-memory ConnectionProvider with failure injection.
// It never touches a database. DB is returned from every handle; the default
// is an unconnected *gorm.DB so callbacks see a bound transaction.
type FakeProvider struct {
	DB *gorm.DB

	FailBegin   error
	FailCommit  error
	CommitDelay time.Duration

	ready atomic.Bool

	mu            sync.Mutex
	txs           []*FakeTx
	beginCalls    int
	commitCalls   int
	rollbackCalls int
	releaseCalls  int
}

var _ uow.ConnectionProvider = (*FakeProvider)(nil)

// NewFakeProvider returns a provider that is already ready.
func NewFakeProvider() *FakeProvider {
	p := &FakeProvider{DB: &gorm.DB{Config: &gorm.Config{}}}
	p.ready.Store(true)
	return p
}

func (p *FakeProvider) SetReady(ready bool) { p.ready.Store(ready) }

func (p *FakeProvider) Ready() bool { return p.ready.Load() }

func (p *FakeProvider) Begin(_ context.Context, level uow.IsolationLevel) (uow.Tx, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.beginCalls++
	if p.FailBegin != nil {
		return nil, p.FailBegin
	}
	tx := &FakeTx{Seq: len(p.txs) + 1, Level: level, db: p.DB}
	p.txs = append(p.txs, tx)
	return tx, nil
}

func (p *FakeProvider) Commit(tx uow.Tx) error {
	p.mu.Lock()
	p.commitCalls++
	failCommit := p.FailCommit
	delay := p.CommitDelay
	p.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if failCommit != nil {
		return failCommit
	}
	ft := tx.(*FakeTx)
	ft.mu.Lock()
	ft.committed = true
	ft.mu.Unlock()
	return nil
}

func (p *FakeProvider) Rollback(tx uow.Tx) error {
	p.mu.Lock()
	p.rollbackCalls++
	p.mu.Unlock()
	ft := tx.(*FakeTx)
	ft.mu.Lock()
	ft.rolledBack = true
	ft.mu.Unlock()
	return nil
}

func (p *FakeProvider) Release(tx uow.Tx) error {
	p.mu.Lock()
	p.releaseCalls++
	p.mu.Unlock()
	ft := tx.(*FakeTx)
	ft.mu.Lock()
	ft.releases = append(ft.releases, time.Now())
	ft.mu.Unlock()
	return nil
}

// Counts is a snapshot of provider calls.
type Counts struct {
	Begin    int
	Commit   int
	Rollback int
	Release  int
}

func (p *FakeProvider) Counts() Counts {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Counts{
		Begin:    p.beginCalls,
		Commit:   p.commitCalls,
		Rollback: p.rollbackCalls,
		Release:  p.releaseCalls,
	}
}

// Txs returns every handle begun so far, oldest first.
func (p *FakeProvider) Txs() []*FakeTx {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*FakeTx, len(p.txs))
	copy(out, p.txs)
	return out
}
