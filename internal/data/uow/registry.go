package uow

import (
	"sort"
	"sync"
	"time"

	"github.com/yungbote/ledger-backend/internal/domain/events"
)

type txState int

const (
	stateActive txState = iota
	stateSettling
	stateSettled
	stateExpired
)

// txRecord is the live bookkeeping for one open transaction.
type txRecord struct {
	id      string
	tx      Tx
	started time.Time

	mu     sync.Mutex
	state  txState
	events []events.Event
	seen   map[string]struct{}

	releaseOnce sync.Once
}

func newTxRecord(id string, tx Tx) *txRecord {
	return &txRecord{
		id:      id,
		tx:      tx,
		started: time.Now(),
		seen:    map[string]struct{}{},
	}
}

// append adds evts in order, skipping ids already queued on this transaction.
func (r *txRecord) append(evts []events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateActive {
		return ErrTransactionNotActive
	}
	for _, evt := range evts {
		if evt.IsZero() {
			continue
		}
		if _, dup := r.seen[evt.ID()]; dup {
			continue
		}
		r.seen[evt.ID()] = struct{}{}
		r.events = append(r.events, evt)
	}
	return nil
}

// beginSettle closes the record to appends. It returns false when the
// watchdog already reclaimed the transaction.
func (r *txRecord) beginSettle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateActive {
		return false
	}
	r.state = stateSettling
	return true
}

// finishSettle ends settlement and hands back the queued events.
func (r *txRecord) finishSettle() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != stateSettling {
		return nil
	}
	r.state = stateSettled
	evts := r.events
	r.events = nil
	return evts
}

// expire reports whether the watchdog should reclaim the record. A record
// still running its callback is closed and its events dropped; a record whose
// commit is in flight keeps its events so an acknowledged commit still
// dispatches them.
func (r *txRecord) expire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch r.state {
	case stateActive:
		r.state = stateExpired
		r.events = nil
		return true
	case stateSettling:
		return true
	default:
		return false
	}
}

func (r *txRecord) discard() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func (r *txRecord) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// Registry maps live transaction ids to their records. Each Manager owns one.
type Registry struct {
	mu      sync.RWMutex
	records map[string]*txRecord
}

func NewRegistry() *Registry {
	return &Registry{records: map[string]*txRecord{}}
}

func (r *Registry) register(rec *txRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.records[rec.id]; exists {
		return ErrDuplicateTransaction
	}
	r.records[rec.id] = rec
	return nil
}

func (r *Registry) get(id string) (*txRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[id]
	return rec, ok
}

// remove deletes id only while it still points at rec.
func (r *Registry) remove(id string, rec *txRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.records[id]; ok && cur == rec {
		delete(r.records, id)
	}
}

// Append queues evts on the live transaction id.
func (r *Registry) Append(id string, evts []events.Event) error {
	if id == "" {
		return ErrTransactionNotActive
	}
	rec, ok := r.get(id)
	if !ok {
		return ErrTransactionNotActive
	}
	return rec.append(evts)
}

// Active reports whether id names a transaction that still accepts events.
func (r *Registry) Active(id string) bool {
	rec, ok := r.get(id)
	if !ok {
		return false
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.state == stateActive
}

// Pending returns how many events are queued on id.
func (r *Registry) Pending(id string) int {
	rec, ok := r.get(id)
	if !ok {
		return 0
	}
	return rec.pending()
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// IDs lists live transaction ids in sorted order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.records))
	for id := range r.records {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
