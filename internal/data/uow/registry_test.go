package uow

import (
	"errors"
	"sync"
	"testing"

	"github.com/yungbote/ledger-backend/internal/domain/events"
)

func mustEvent(t *testing.T, id string) events.Event {
	t.Helper()
	evt, err := events.NewWithID(id, "test.event", nil)
	if err != nil {
		t.Fatalf("NewWithID: %v", err)
	}
	return evt
}

func TestRegistryRejectsDuplicateIDs(t *testing.T) {
	reg := NewRegistry()
	if err := reg.register(newTxRecord("tx-1", nil)); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.register(newTxRecord("tx-1", nil)); !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("len: %d", reg.Len())
	}
}

func TestRegistryRemoveOnlyMatchingRecord(t *testing.T) {
	reg := NewRegistry()
	live := newTxRecord("tx-1", nil)
	stale := newTxRecord("tx-1", nil)
	if err := reg.register(live); err != nil {
		t.Fatalf("register: %v", err)
	}
	reg.remove("tx-1", stale)
	if reg.Len() != 1 {
		t.Fatalf("stale remove dropped the live record")
	}
	reg.remove("tx-1", live)
	if reg.Len() != 0 {
		t.Fatalf("live remove kept the record")
	}
}

func TestRegistryAppendDeduplicatesAcrossCalls(t *testing.T) {
	reg := NewRegistry()
	rec := newTxRecord("tx-1", nil)
	if err := reg.register(rec); err != nil {
		t.Fatalf("register: %v", err)
	}
	a, b := mustEvent(t, "a"), mustEvent(t, "b")
	if err := reg.Append("tx-1", []events.Event{a, b, a}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := reg.Append("tx-1", []events.Event{b, {}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if got := reg.Pending("tx-1"); got != 2 {
		t.Fatalf("pending: want=2 got=%d", got)
	}
	if !rec.beginSettle() {
		t.Fatalf("beginSettle on active record")
	}
	got := rec.finishSettle()
	if len(got) != 2 || got[0].ID() != "a" || got[1].ID() != "b" {
		t.Fatalf("unexpected events: %v", got)
	}
}

func TestRegistryAppendUnknownOrClosed(t *testing.T) {
	reg := NewRegistry()
	if err := reg.Append("", nil); !errors.Is(err, ErrTransactionNotActive) {
		t.Fatalf("empty id: %v", err)
	}
	if err := reg.Append("missing", nil); !errors.Is(err, ErrTransactionNotActive) {
		t.Fatalf("missing id: %v", err)
	}
	rec := newTxRecord("tx-1", nil)
	_ = reg.register(rec)
	rec.beginSettle()
	if err := reg.Append("tx-1", []events.Event{mustEvent(t, "late")}); !errors.Is(err, ErrTransactionNotActive) {
		t.Fatalf("settling record accepted an append: %v", err)
	}
	if reg.Active("tx-1") {
		t.Fatalf("settling record reported active")
	}
}

func TestTxRecordExpireRaces(t *testing.T) {
	t.Run("expire before settle", func(t *testing.T) {
		rec := newTxRecord("tx", nil)
		_ = rec.append([]events.Event{mustEvent(t, "a")})
		if !rec.expire() {
			t.Fatalf("expire on active record")
		}
		if rec.beginSettle() {
			t.Fatalf("settle after expire must lose")
		}
		if rec.pending() != 0 {
			t.Fatalf("expired record kept events")
		}
		if rec.expire() {
			t.Fatalf("second expire must be a no-op")
		}
	})
	t.Run("expire during commit keeps events", func(t *testing.T) {
		rec := newTxRecord("tx", nil)
		_ = rec.append([]events.Event{mustEvent(t, "a")})
		rec.beginSettle()
		if !rec.expire() {
			t.Fatalf("expire during commit should reclaim the connection")
		}
		if got := rec.finishSettle(); len(got) != 1 {
			t.Fatalf("acknowledged commit lost its events: %v", got)
		}
	})
	t.Run("expire after settle", func(t *testing.T) {
		rec := newTxRecord("tx", nil)
		rec.beginSettle()
		rec.finishSettle()
		if rec.expire() {
			t.Fatalf("expire after settlement must be a no-op")
		}
	})
}

func TestRegistryConcurrentRegisterRemove(t *testing.T) {
	reg := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := newTxRecord(defaultIDGenerator(), nil)
			if err := reg.register(rec); err != nil {
				t.Errorf("register: %v", err)
				return
			}
			_ = reg.Append(rec.id, []events.Event{events.New("x", i)})
			_ = reg.IDs()
			reg.remove(rec.id, rec)
		}(i)
	}
	wg.Wait()
	if reg.Len() != 0 {
		t.Fatalf("len after concurrent churn: %d", reg.Len())
	}
}
