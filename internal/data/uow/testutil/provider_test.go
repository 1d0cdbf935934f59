package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/yungbote/ledger-backend/internal/data/uow"
)

func TestFakeProvider_RecordsCalls(t *testing.T) {
	p := NewFakeProvider()
	if !p.Ready() {
		t.Fatalf("new provider should be ready")
	}
	tx, err := p.Begin(context.Background(), uow.RepeatableRead)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := p.Commit(tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := p.Release(tx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	c := p.Counts()
	if c.Begin != 1 || c.Commit != 1 || c.Release != 1 || c.Rollback != 0 {
		t.Fatalf("unexpected counts: %+v", c)
	}
	if tx.DB() == nil {
		t.Fatalf("handle has no DB; callbacks would not see a transaction")
	}
	ft := p.Txs()[0]
	if !ft.Committed() || ft.Level != uow.RepeatableRead || len(ft.Releases()) != 1 {
		t.Fatalf("unexpected tx state: %+v", ft)
	}
}

func TestFakeProvider_InjectsFailures(t *testing.T) {
	p := NewFakeProvider()
	p.FailBegin = errors.New("begin failed")
	if _, err := p.Begin(context.Background(), uow.ReadCommitted); err != p.FailBegin {
		t.Fatalf("expected begin failure, got %v", err)
	}
	p.FailBegin = nil
	p.FailCommit = errors.New("commit failed")
	tx, _ := p.Begin(context.Background(), uow.ReadCommitted)
	if err := p.Commit(tx); err != p.FailCommit {
		t.Fatalf("expected commit failure, got %v", err)
	}
	p.SetReady(false)
	if p.Ready() {
		t.Fatalf("SetReady(false) ignored")
	}
}

func TestHooksRecorder_CapturesSignals(t *testing.T) {
	h := &HooksRecorder{}
	h.ObserveTransaction(uow.OutcomeCommitted, 0)
	h.IncTimeout()
	h.ObserveDispatch(3)
	if got := h.Outcomes(); len(got) != 1 || got[0] != uow.OutcomeCommitted {
		t.Fatalf("outcomes: %v", got)
	}
	if h.TimeoutCount() != 1 || len(h.Dispatched) != 1 || h.Dispatched[0] != 3 {
		t.Fatalf("unexpected recorder state: %+v", h)
	}
}
