package realtime

import (
	"encoding/json"
	"time"
)

// Message is the wire shape of a committed domain event relayed to other
// processes.
type Message struct {
	EventID   string          `json:"event_id"`
	EventName string          `json:"event_name"`
	RelayedAt time.Time       `json:"relayed_at"`
	Data      json.RawMessage `json:"data"`
}
