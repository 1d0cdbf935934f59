package uow

import (
	"context"
	"fmt"

	"github.com/yungbote/ledger-backend/internal/domain/aggregates"
	"github.com/yungbote/ledger-backend/internal/domain/events"
	"github.com/yungbote/ledger-backend/internal/platform/dbctx"
)

// Helper is the use-case facing side of the unit of work.
type Helper struct {
	mgr *Manager
}

func NewHelper(mgr *Manager) *Helper {
	return &Helper{mgr: mgr}
}

func (h *Helper) Manager() *Manager { return h.mgr }

// RunTransactional runs fn in a new transaction, READ COMMITTED and 10s unless
// opts says otherwise.
func (h *Helper) RunTransactional(ctx context.Context, fn TxFunc, opts Options) (any, error) {
	return h.mgr.RunInTransaction(ctx, fn, opts.withDefaults())
}

// Transactional is RunTransactional with a typed result.
func Transactional[T any](ctx context.Context, h *Helper, fn func(dbc dbctx.Context) (T, error), opts Options) (T, error) {
	return Run(ctx, h.mgr, fn, opts.withDefaults())
}

// MarkAggregatesForEventDispatch claims the buffered events of every aggregate,
// in argument order, and queues them on the transaction behind dbc. They are
// published only if that transaction commits. An aggregate that publishes a
// contract may only queue the events it declares; nothing is queued otherwise.
func (h *Helper) MarkAggregatesForEventDispatch(dbc dbctx.Context, aggs ...events.Aggregate) error {
	if dbc.TxID == "" || !h.mgr.registry.Active(dbc.TxID) {
		return ErrTransactionNotActive
	}
	var claimed []events.Event
	for _, agg := range aggs {
		if agg == nil {
			continue
		}
		drained := agg.DrainEvents()
		if err := checkContract(agg, drained); err != nil {
			return err
		}
		claimed = append(claimed, drained...)
	}
	if len(claimed) == 0 {
		return nil
	}
	return h.mgr.AddDomainEvents(dbc.TxID, claimed...)
}

func checkContract(agg events.Aggregate, evts []events.Event) error {
	withContract, ok := agg.(aggregates.Aggregate)
	if !ok {
		return nil
	}
	contract := withContract.Contract()
	for _, evt := range evts {
		if !contract.Emits(evt.Name()) {
			return aggregates.NewError(
				aggregates.CodeInvariantViolation,
				"uow.MarkAggregatesForEventDispatch",
				fmt.Sprintf("%s does not declare %q", contract.Name, evt.Name()),
				ErrUndeclaredEvent,
			)
		}
	}
	return nil
}
