package events

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidEvent = errors.New("invalid domain event")

// Event is an immutable record of something that happened to an aggregate.
// Name routes the event to subscribers; Payload is opaque to the dispatch
// machinery.
type Event struct {
	id         string
	name       string
	payload    any
	occurredAt time.Time
}

// New builds an event with a fresh random id.
func New(name string, payload any) Event {
	return Event{
		id:         uuid.NewString(),
		name:       strings.TrimSpace(name),
		payload:    payload,
		occurredAt: time.Now().UTC(),
	}
}

// NewWithID builds an event with a caller-provided id.
func NewWithID(id, name string, payload any) (Event, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return Event{}, ErrInvalidEvent
	}
	return Event{
		id:         id,
		name:       name,
		payload:    payload,
		occurredAt: time.Now().UTC(),
	}, nil
}

func (e Event) ID() string            { return e.id }
func (e Event) Name() string          { return e.name }
func (e Event) Payload() any          { return e.payload }
func (e Event) OccurredAt() time.Time { return e.occurredAt }

// IsZero reports whether e was never constructed.
func (e Event) IsZero() bool { return e.id == "" }
