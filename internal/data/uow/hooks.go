package uow

import (
	"time"

	"github.com/yungbote/ledger-backend/internal/observability"
)

// Transaction outcomes reported to Hooks and recorded on the span.
const (
	OutcomeCommitted   = "committed"
	OutcomeRolledBack  = "rolled_back"
	OutcomeCommitError = "commit_failed"
	OutcomeBeginError  = "begin_failed"
	OutcomeExpired     = "expired"
)

// Hooks captures unit-of-work observability signals.
type Hooks interface {
	ObserveTransaction(outcome string, dur time.Duration)
	IncTimeout()
	ObserveDispatch(n int)
}

type noopHooks struct{}

func (noopHooks) ObserveTransaction(string, time.Duration) {}
func (noopHooks) IncTimeout()                              {}
func (noopHooks) ObserveDispatch(int)                      {}

type observabilityHooks struct {
	metrics *observability.Metrics
}

// NewObservabilityHooks creates hooks backed by observability metrics.
func NewObservabilityHooks(metrics *observability.Metrics) Hooks {
	if metrics == nil {
		return noopHooks{}
	}
	return &observabilityHooks{metrics: metrics}
}

func (h *observabilityHooks) ObserveTransaction(outcome string, dur time.Duration) {
	h.metrics.ObserveTransaction(outcome, dur)
}

func (h *observabilityHooks) IncTimeout() {
	h.metrics.IncTransactionTimeout()
}

func (h *observabilityHooks) ObserveDispatch(n int) {
	h.metrics.AddEventsDispatched(n)
}
