package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/ledger-backend/internal/domain/events"
	"github.com/yungbote/ledger-backend/internal/domain/user"
	"github.com/yungbote/ledger-backend/internal/platform/eventbus"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
	"github.com/yungbote/ledger-backend/internal/realtime"
)

func observedLogger() (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

type recordingRealtimeBus struct {
	mu   sync.Mutex
	msgs []realtime.Message
	err  error
}

func (b *recordingRealtimeBus) Publish(_ context.Context, msg realtime.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.msgs = append(b.msgs, msg)
	return nil
}

func (b *recordingRealtimeBus) Close() error { return nil }

func (b *recordingRealtimeBus) messages() []realtime.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]realtime.Message, len(b.msgs))
	copy(out, b.msgs)
	return out
}

func waitBus(t *testing.T, b *eventbus.Bus) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("bus did not drain: %v", err)
	}
}

func TestBalanceNotifierLogsNewBalance(t *testing.T) {
	log, logs := observedLogger()
	b := eventbus.New(logger.NewNop())
	RegisterSubscribers(b, NewBalanceNotifier(log))

	b.Emit(events.New(user.BalanceUpdatedEventName, user.BalanceUpdated{ID: 7, NewBalance: 150}))
	waitBus(t, b)

	entries := logs.FilterMessage("user balance updated").All()
	if len(entries) != 1 {
		t.Fatalf("want one log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["user_id"] != int64(7) || fields["new_balance"] != int64(150) {
		t.Fatalf("unexpected fields: %v", fields)
	}
}

func TestBalanceRelayPublishesCommittedEvent(t *testing.T) {
	rt := &recordingRealtimeBus{}
	relay := NewBalanceRelay(logger.NewNop(), rt, time.Second)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	relay.now = func() time.Time { return fixed }

	b := eventbus.New(logger.NewNop())
	RegisterSubscribers(b, relay)

	evt := events.New(user.BalanceUpdatedEventName, user.BalanceUpdated{ID: 7, NewBalance: 150})
	b.Emit(evt)
	waitBus(t, b)

	msgs := rt.messages()
	if len(msgs) != 1 {
		t.Fatalf("want one relayed message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.EventID != evt.ID() || m.EventName != user.BalanceUpdatedEventName || !m.RelayedAt.Equal(fixed) {
		t.Fatalf("unexpected envelope: %+v", m)
	}
	var payload user.BalanceUpdated
	if err := json.Unmarshal(m.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload != (user.BalanceUpdated{ID: 7, NewBalance: 150}) {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestBalanceRelayPublishErrorIsReturned(t *testing.T) {
	down := errors.New("redis down")
	relay := NewBalanceRelay(logger.NewNop(), &recordingRealtimeBus{err: down}, 0)
	err := relay.Relay(context.Background(), user.BalanceUpdated{ID: 1, NewBalance: 1})
	if !errors.Is(err, down) {
		t.Fatalf("want publish error, got %v", err)
	}
}

func TestBalanceRelayWithoutBusSubscribesNothing(t *testing.T) {
	b := eventbus.New(logger.NewNop())
	RegisterSubscribers(b, NewBalanceRelay(logger.NewNop(), nil, 0))
	if n := b.Subscribers(user.BalanceUpdatedEventName); n != 0 {
		t.Fatalf("want no subscribers, got %d", n)
	}
}

func TestRelayFailureDoesNotStopOtherSubscribers(t *testing.T) {
	log, logs := observedLogger()
	b := eventbus.New(logger.NewNop())
	RegisterSubscribers(b,
		NewBalanceRelay(logger.NewNop(), &recordingRealtimeBus{err: errors.New("redis down")}, 0),
		NewBalanceNotifier(log),
	)
	b.Emit(events.New(user.BalanceUpdatedEventName, user.BalanceUpdated{ID: 2, NewBalance: 9}))
	waitBus(t, b)
	if n := logs.FilterMessage("user balance updated").Len(); n != 1 {
		t.Fatalf("notifier should still run, got %d entries", n)
	}
}
