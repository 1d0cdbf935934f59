package uow

import "time"

const (
	DefaultIsolationLevel   = ReadCommitted
	DefaultMaxExecutionTime = 10 * time.Second
)

// Options tune a single unit of work. The zero value means READ COMMITTED and
// a 10s watchdog.
type Options struct {
	IsolationLevel   IsolationLevel
	MaxExecutionTime time.Duration
	// OnSettled, when set, receives the final outcome (Outcome* constants)
	// before RunInTransaction returns. It is the only way a caller can tell a
	// successful callback from one whose transaction the watchdog reclaimed.
	OnSettled func(outcome string)
}

func (o Options) withDefaults() Options {
	if o.IsolationLevel == "" {
		o.IsolationLevel = DefaultIsolationLevel
	}
	if o.MaxExecutionTime <= 0 {
		o.MaxExecutionTime = DefaultMaxExecutionTime
	}
	return o
}
