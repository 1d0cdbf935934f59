package bus

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/ledger-backend/internal/platform/logger"
	"github.com/yungbote/ledger-backend/internal/realtime"
)

func TestNewRedisBusRequiresAddr(t *testing.T) {
	_, err := NewRedisBus(context.Background(), logger.NewNop(), RedisConfig{})
	if err == nil || !strings.Contains(err.Error(), "missing redis addr") {
		t.Fatalf("want missing addr error, got %v", err)
	}
}

func TestNewRedisBusFromClientRequiresClient(t *testing.T) {
	if _, err := NewRedisBusFromClient(logger.NewNop(), nil, ""); !errors.Is(err, errNotInitialized) {
		t.Fatalf("want errNotInitialized, got %v", err)
	}
}

func TestNilBusMethods(t *testing.T) {
	var b *redisBus
	if err := b.Publish(context.Background(), realtime.Message{}); !errors.Is(err, errNotInitialized) {
		t.Fatalf("Publish: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestRedisBusRoundTrip(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("TEST_REDIS_ADDR"))
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channel := "ledger.test." + time.Now().UTC().Format("150405.000000")
	b, err := NewRedisBus(ctx, logger.NewNop(), RedisConfig{Addr: addr, Channel: channel})
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	defer b.Close()

	sub := Client(b).Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	want := realtime.Message{
		EventID:   "evt-1",
		EventName: "user.balance.updated",
		RelayedAt: time.Now().UTC().Truncate(time.Millisecond),
		Data:      json.RawMessage(`{"id":7,"newBalance":150}`),
	}
	if err := b.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case raw := <-sub.Channel():
		var m realtime.Message
		if err := json.Unmarshal([]byte(raw.Payload), &m); err != nil {
			t.Fatalf("decode relayed payload: %v", err)
		}
		if m.EventID != want.EventID || m.EventName != want.EventName {
			t.Fatalf("unexpected message: %+v", m)
		}
		if string(m.Data) != string(want.Data) {
			t.Fatalf("data: got %s want %s", m.Data, want.Data)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for relayed message")
	}
}
