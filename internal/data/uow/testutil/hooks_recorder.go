package testutil

import (
	"sync"
	"time"

	"github.com/yungbote/ledger-backend/internal/data/uow"
)

// HooksRecorder captures unit-of-work hook signals in tests.
type HooksRecorder struct {
	mu sync.Mutex

	Transactions []TransactionEvent
	Timeouts     int
	Dispatched   []int
}

type TransactionEvent struct {
	Outcome  string
	Duration time.Duration
}

var _ uow.Hooks = (*HooksRecorder)(nil)

func (h *HooksRecorder) ObserveTransaction(outcome string, dur time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Transactions = append(h.Transactions, TransactionEvent{Outcome: outcome, Duration: dur})
}

func (h *HooksRecorder) IncTimeout() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Timeouts++
}

func (h *HooksRecorder) ObserveDispatch(n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Dispatched = append(h.Dispatched, n)
}

// Outcomes returns the recorded outcomes in order.
func (h *HooksRecorder) Outcomes() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.Transactions))
	for _, tx := range h.Transactions {
		out = append(out, tx.Outcome)
	}
	return out
}

func (h *HooksRecorder) TimeoutCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.Timeouts
}
