package events

import "sync"

// Aggregate is implemented by anything that buffers domain events and lets a
// unit of work claim them.
type Aggregate interface {
	DrainEvents() []Event
}

// Buffer accumulates the events raised by one aggregate instance. The zero
// value is ready to use. A Buffer must not be shared between aggregates.
type Buffer struct {
	mu      sync.Mutex
	pending []Event
}

// Record appends evt. It never blocks and never fails.
func (b *Buffer) Record(evt Event) {
	b.mu.Lock()
	b.pending = append(b.pending, evt)
	b.mu.Unlock()
}

// Pending returns a copy of the buffered events without claiming them.
func (b *Buffer) Pending() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Event, len(b.pending))
	copy(out, b.pending)
	return out
}

// Drain claims every buffered event in the order it was recorded and leaves
// the buffer empty.
func (b *Buffer) Drain() []Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	b.pending = nil
	return out
}

func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending)
}
