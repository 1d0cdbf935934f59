package services

import (
	"context"

	"github.com/yungbote/ledger-backend/internal/domain/user"
	"github.com/yungbote/ledger-backend/internal/platform/eventbus"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

// Subscriber attaches its handlers to the event bus.
type Subscriber interface {
	Register(b *eventbus.Bus)
}

func RegisterSubscribers(b *eventbus.Bus, subs ...Subscriber) {
	if b == nil {
		return
	}
	for _, s := range subs {
		if s != nil {
			s.Register(b)
		}
	}
}

// =========================
// Balance notifier
// =========================

type BalanceNotifier struct {
	log *logger.Logger
}

func NewBalanceNotifier(log *logger.Logger) *BalanceNotifier {
	if log == nil {
		log = logger.NewNop()
	}
	return &BalanceNotifier{log: log.With("subscriber", "NotifyBalanceUpdated")}
}

func (n *BalanceNotifier) Register(b *eventbus.Bus) {
	b.Subscribe(user.BalanceUpdatedEventName, eventbus.Typed(n.NotifyBalanceUpdated))
}

func (n *BalanceNotifier) NotifyBalanceUpdated(ctx context.Context, evt user.BalanceUpdated) error {
	n.log.WithCtx(ctx).Info("user balance updated", "user_id", int64(evt.ID), "new_balance", evt.NewBalance)
	return nil
}
