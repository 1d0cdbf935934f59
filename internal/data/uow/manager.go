package uow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/ledger-backend/internal/domain/events"
	"github.com/yungbote/ledger-backend/internal/platform/ctxutil"
	"github.com/yungbote/ledger-backend/internal/platform/dbctx"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

const (
	DefaultReadyTimeout      = 5 * time.Second
	DefaultReadyPollInterval = 50 * time.Millisecond

	tracerName = "github.com/yungbote/ledger-backend/internal/data/uow"
)

var ErrShuttingDown = errors.New("uow: manager is shutting down")

// TxFunc is the body of a unit of work. dbc carries the transaction handle
// and id; repositories must write through dbc.Tx.
type TxFunc func(dbc dbctx.Context) (any, error)

type ManagerDeps struct {
	Provider ConnectionProvider
	Bus      Publisher
	Log      *logger.Logger
	Hooks    Hooks
	IDGen    IDGenerator
	Tracer   trace.Tracer
	Registry *Registry

	ReadyTimeout      time.Duration
	ReadyPollInterval time.Duration
}

func (d ManagerDeps) withDefaults() ManagerDeps {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Hooks == nil {
		d.Hooks = noopHooks{}
	}
	if d.IDGen == nil {
		d.IDGen = defaultIDGenerator
	}
	if d.Tracer == nil {
		d.Tracer = otel.Tracer(tracerName)
	}
	if d.Registry == nil {
		d.Registry = NewRegistry()
	}
	if d.ReadyTimeout <= 0 {
		d.ReadyTimeout = DefaultReadyTimeout
	}
	if d.ReadyPollInterval <= 0 {
		d.ReadyPollInterval = DefaultReadyPollInterval
	}
	return d
}

// Manager runs units of work: one native transaction per call, events
// dispatched to the bus only after the commit is acknowledged, and the
// connection returned exactly once (normally or by the watchdog).
type Manager struct {
	deps     ManagerDeps
	registry *Registry
	log      *logger.Logger

	mu       sync.Mutex
	closing  bool
	inflight sync.WaitGroup
	active   atomic.Int64
}

func NewManager(deps ManagerDeps) (*Manager, error) {
	if deps.Provider == nil {
		return nil, errors.New("uow: connection provider is required")
	}
	if deps.Bus == nil {
		return nil, errors.New("uow: event publisher is required")
	}
	deps = deps.withDefaults()
	return &Manager{
		deps:     deps,
		registry: deps.Registry,
		log:      deps.Log.With("component", "uow.Manager"),
	}, nil
}

func (m *Manager) Registry() *Registry { return m.registry }

// InFlight is the number of transactions that have begun and not yet settled.
func (m *Manager) InFlight() int { return int(m.active.Load()) }

// AddDomainEvents queues evts on the open transaction txID. Events already
// queued under the same id are ignored.
func (m *Manager) AddDomainEvents(txID string, evts ...events.Event) error {
	return m.registry.Append(txID, evts)
}

// RunInTransaction opens a transaction at opts.IsolationLevel, runs fn inside
// it and settles it. The error returned by fn reaches the caller unchanged.
func (m *Manager) RunInTransaction(ctx context.Context, fn TxFunc, opts Options) (any, error) {
	if fn == nil {
		return nil, ErrNilCallback
	}
	ctx = ctxutil.Default(ctx)
	opts = opts.withDefaults()

	if err := m.waitReady(ctx); err != nil {
		return nil, err
	}
	if !m.enter() {
		return nil, ErrShuttingDown
	}
	defer m.leave()

	txID := m.deps.IDGen()
	ctx = ctxutil.WithTxID(ctx, txID)
	ctx, span := m.deps.Tracer.Start(ctx, "uow.transaction", trace.WithAttributes(
		attribute.String("uow.tx_id", txID),
		attribute.String("uow.isolation_level", opts.IsolationLevel.String()),
	))
	defer span.End()
	log := m.log.WithCtx(ctx)

	start := time.Now()
	outcome := OutcomeRolledBack
	defer func() {
		span.SetAttributes(attribute.String("uow.outcome", outcome))
		m.deps.Hooks.ObserveTransaction(outcome, time.Since(start))
		if opts.OnSettled != nil {
			opts.OnSettled(outcome)
		}
	}()

	tx, err := m.deps.Provider.Begin(ctx, opts.IsolationLevel)
	if err != nil {
		outcome = OutcomeBeginError
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin failed")
		return nil, fmt.Errorf("uow: begin transaction: %w", err)
	}
	rec := newTxRecord(txID, tx)
	if err := m.registry.register(rec); err != nil {
		outcome = OutcomeBeginError
		if rbErr := m.deps.Provider.Rollback(tx); rbErr != nil {
			log.Warn("rollback after failed registration", "error", rbErr)
		}
		m.release(log, rec)
		return nil, err
	}

	watchdog := time.AfterFunc(opts.MaxExecutionTime, func() {
		m.expire(log, rec, opts.MaxExecutionTime)
	})
	defer watchdog.Stop()

	log.Debug("transaction started", "isolation_level", opts.IsolationLevel.String())

	result, cbErr := invoke(fn, dbctx.Context{Ctx: ctx, Tx: tx.DB(), TxID: txID})
	settling := rec.beginSettle()

	if cbErr != nil {
		if settling {
			if rbErr := m.deps.Provider.Rollback(tx); rbErr != nil {
				log.Warn("rollback failed", "error", rbErr)
			}
			rec.finishSettle()
		} else {
			outcome = OutcomeExpired
		}
		rec.discard()
		m.release(log, rec)
		span.RecordError(cbErr)
		span.SetStatus(codes.Error, "callback failed")
		log.Debug("transaction rolled back", "error", cbErr)
		return result, cbErr
	}

	if !settling {
		// The watchdog already returned the connection; there is nothing to commit.
		outcome = OutcomeExpired
		log.Warn("transaction callback finished after its connection was reclaimed; nothing committed",
			"elapsed", time.Since(start).String(),
			"max_execution_time", opts.MaxExecutionTime.String(),
		)
		return result, nil
	}

	if err := m.deps.Provider.Commit(tx); err != nil {
		outcome = OutcomeCommitError
		rec.finishSettle()
		m.release(log, rec)
		mapped := MapCommitError("uow.commit", err)
		span.RecordError(mapped)
		span.SetStatus(codes.Error, "commit failed")
		log.Warn("transaction commit failed", "error", err)
		return result, mapped
	}

	outcome = OutcomeCommitted
	committed := rec.finishSettle()
	m.dispatch(log, committed)
	m.release(log, rec)
	log.Debug("transaction committed", "events", len(committed), "elapsed", time.Since(start).String())
	return result, nil
}

// Run is RunInTransaction with a typed result.
func Run[T any](ctx context.Context, m *Manager, fn func(dbc dbctx.Context) (T, error), opts Options) (T, error) {
	var zero T
	if fn == nil {
		return zero, ErrNilCallback
	}
	res, err := m.RunInTransaction(ctx, func(dbc dbctx.Context) (any, error) {
		return fn(dbc)
	}, opts)
	out, ok := res.(T)
	if !ok {
		return zero, err
	}
	return out, err
}

// Shutdown stops accepting new transactions and waits for in-flight ones to
// settle, or for ctx to end.
func (m *Manager) Shutdown(ctx context.Context) error {
	ctx = ctxutil.Default(ctx)
	m.mu.Lock()
	m.closing = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("uow: shutdown with %d transactions in flight: %w", m.InFlight(), ctx.Err())
	}
}

func (m *Manager) enter() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closing {
		return false
	}
	m.inflight.Add(1)
	m.active.Add(1)
	return true
}

func (m *Manager) leave() {
	m.active.Add(-1)
	m.inflight.Done()
}

func (m *Manager) waitReady(ctx context.Context) error {
	if m.deps.Provider.Ready() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.log.Debug("database not ready; waiting", "timeout", m.deps.ReadyTimeout.String())
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if m.deps.Provider.Ready() {
			return struct{}{}, nil
		}
		return struct{}{}, ErrNotReady
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(m.deps.ReadyPollInterval)),
		backoff.WithMaxElapsedTime(m.deps.ReadyTimeout),
	)
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return fmt.Errorf("%w after %s", ErrNotReady, m.deps.ReadyTimeout)
}

func (m *Manager) dispatch(log *logger.Logger, evts []events.Event) {
	for _, evt := range evts {
		m.deps.Bus.Emit(evt)
	}
	if len(evts) > 0 {
		m.deps.Hooks.ObserveDispatch(len(evts))
		log.Debug("domain events dispatched", "count", len(evts))
	}
}

// expire is the watchdog path.
func (m *Manager) expire(log *logger.Logger, rec *txRecord, limit time.Duration) {
	if !rec.expire() {
		return
	}
	m.deps.Hooks.IncTimeout()
	log.Warn("transaction exceeded max execution time; releasing connection",
		"max_execution_time", limit.String(),
		"elapsed", time.Since(rec.started).String(),
	)
	m.release(log, rec)
}

// release returns the connection and drops the registry entry, once.
func (m *Manager) release(log *logger.Logger, rec *txRecord) {
	rec.releaseOnce.Do(func() {
		if err := m.deps.Provider.Release(rec.tx); err != nil {
			log.Warn("transaction release failed", "error", err)
		}
		m.registry.remove(rec.id, rec)
	})
}

func invoke(fn TxFunc, dbc dbctx.Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: %v", ErrCallbackPanic, r)
		}
	}()
	return fn(dbc)
}
