package eventbus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yungbote/ledger-backend/internal/domain/events"
	"github.com/yungbote/ledger-backend/internal/platform/ctxutil"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

var ErrPayloadType = errors.New("eventbus: unexpected payload type")

// Handler reacts to one event. ctx carries the event id and name but no
// request identity.
type Handler func(ctx context.Context, payload any) error

// Typed adapts a handler that expects payloads of type T.
func Typed[T any](fn func(ctx context.Context, payload T) error) Handler {
	return func(ctx context.Context, payload any) error {
		v, ok := payload.(T)
		if !ok {
			var want T
			return fmt.Errorf("%w: want %T, got %T", ErrPayloadType, want, payload)
		}
		return fn(ctx, v)
	}
}

// Observer receives one signal per handler invocation.
type Observer interface {
	ObserveEventHandler(event, status string, dur time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveEventHandler(string, string, time.Duration) {}

type Option func(*Bus)

func WithObserver(obs Observer) Option {
	return func(b *Bus) {
		if obs != nil {
			b.obs = obs
		}
	}
}

type delivery struct {
	evt      events.Event
	handlers []Handler
}

type topic struct {
	queue   []delivery
	running bool
}

// Bus is an in-process publish/subscribe table keyed by exact event name.
// Emit never blocks: each name with pending events has one goroutine that
// runs deliveries in emit order and handlers in subscription order, so a
// name's events stay ordered while different names run concurrently.
type Bus struct {
	log *logger.Logger
	obs Observer

	mu       sync.Mutex
	handlers map[string][]Handler
	topics   map[string]*topic
	closed   bool
	pending  int
	idle     chan struct{}
}

func New(log *logger.Logger, opts ...Option) *Bus {
	if log == nil {
		log = logger.NewNop()
	}
	idle := make(chan struct{})
	close(idle)
	b := &Bus{
		log:      log.With("component", "EventBus"),
		obs:      noopObserver{},
		handlers: map[string][]Handler{},
		topics:   map[string]*topic{},
		idle:     idle,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe appends h to name's handlers. Subscribing the same handler twice
// makes it run twice.
func (b *Bus) Subscribe(name string, h Handler) {
	name = strings.TrimSpace(name)
	if name == "" || h == nil {
		b.log.Warn("ignoring invalid subscription", "event", name, "nil_handler", h == nil)
		return
	}
	b.mu.Lock()
	b.handlers[name] = append(b.handlers[name], h)
	b.mu.Unlock()
}

// Subscribers returns how many handlers are registered under name.
func (b *Bus) Subscribers(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers[strings.TrimSpace(name)])
}

// Emit queues evt for its current subscribers and returns immediately.
func (b *Bus) Emit(evt events.Event) {
	if evt.IsZero() {
		return
	}
	name := evt.Name()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.log.Warn("event dropped: bus closed", "event", name, "event_id", evt.ID())
		return
	}
	subs := b.handlers[name]
	if len(subs) == 0 {
		b.mu.Unlock()
		return
	}
	hs := make([]Handler, len(subs))
	copy(hs, subs)

	if b.pending == 0 {
		b.idle = make(chan struct{})
	}
	b.pending++
	t, ok := b.topics[name]
	if !ok {
		t = &topic{}
		b.topics[name] = t
	}
	t.queue = append(t.queue, delivery{evt: evt, handlers: hs})
	start := !t.running
	t.running = true
	b.mu.Unlock()

	if start {
		go b.drain(name)
	}
}

func (b *Bus) drain(name string) {
	for {
		b.mu.Lock()
		t := b.topics[name]
		if len(t.queue) == 0 {
			t.running = false
			delete(b.topics, name)
			b.mu.Unlock()
			return
		}
		next := t.queue[0]
		t.queue[0] = delivery{}
		t.queue = t.queue[1:]
		b.mu.Unlock()

		b.deliver(next)

		b.mu.Lock()
		b.pending--
		if b.pending == 0 {
			close(b.idle)
		}
		b.mu.Unlock()
	}
}

func (b *Bus) deliver(d delivery) {
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{
		EventID:   d.evt.ID(),
		EventName: d.evt.Name(),
	})
	for i, h := range d.handlers {
		b.invoke(ctx, d.evt, i, h)
	}
}

func (b *Bus) invoke(ctx context.Context, evt events.Event, idx int, h Handler) {
	start := time.Now()
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			b.log.Error("event handler panicked", "event", evt.Name(), "event_id", evt.ID(), "handler", idx, "panic", fmt.Sprint(r))
		}
		b.obs.ObserveEventHandler(evt.Name(), status, time.Since(start))
	}()
	if err := h(ctx, evt.Payload()); err != nil {
		status = "error"
		b.log.Error("event handler failed", "event", evt.Name(), "event_id", evt.ID(), "handler", idx, "error", err)
	}
}

// Wait blocks until every queued event has been handled or ctx ends.
func (b *Bus) Wait(ctx context.Context) error {
	ctx = ctxutil.Default(ctx)
	b.mu.Lock()
	idle := b.idle
	b.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events and waits for the queue to drain.
func (b *Bus) Close(ctx context.Context) error {
	b.mu.Lock()
	b.closed = true
	b.mu.Unlock()
	if err := b.Wait(ctx); err != nil {
		return fmt.Errorf("eventbus: close: %w", err)
	}
	return nil
}
