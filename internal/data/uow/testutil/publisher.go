package testutil

import (
	"sync"

	"github.com/yungbote/ledger-backend/internal/data/uow"
	"github.com/yungbote/ledger-backend/internal/domain/events"
)

// PublisherRecorder records every event the manager emits.
type PublisherRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

var _ uow.Publisher = (*PublisherRecorder)(nil)

func (p *PublisherRecorder) Emit(evt events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

func (p *PublisherRecorder) Events() []events.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *PublisherRecorder) IDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, evt := range p.events {
		out = append(out, evt.ID())
	}
	return out
}
