package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yungbote/ledger-backend/internal/domain/user"
	"github.com/yungbote/ledger-backend/internal/platform/ctxutil"
	"github.com/yungbote/ledger-backend/internal/platform/eventbus"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
	"github.com/yungbote/ledger-backend/internal/realtime"
	rtbus "github.com/yungbote/ledger-backend/internal/realtime/bus"
)

const defaultRelayTimeout = 3 * time.Second

// BalanceRelay republishes committed balance updates to the realtime bus so
// other processes can observe them.
type BalanceRelay struct {
	log     *logger.Logger
	bus     rtbus.Bus
	timeout time.Duration
	now     func() time.Time
}

func NewBalanceRelay(log *logger.Logger, b rtbus.Bus, timeout time.Duration) *BalanceRelay {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultRelayTimeout
	}
	return &BalanceRelay{
		log:     log.With("subscriber", "BalanceRelay"),
		bus:     b,
		timeout: timeout,
		now:     time.Now,
	}
}

func (r *BalanceRelay) Register(b *eventbus.Bus) {
	if r == nil || r.bus == nil {
		return
	}
	b.Subscribe(user.BalanceUpdatedEventName, eventbus.Typed(r.Relay))
}

func (r *BalanceRelay) Relay(ctx context.Context, evt user.BalanceUpdated) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("relay: encode payload: %w", err)
	}
	msg := realtime.Message{
		EventName: user.BalanceUpdatedEventName,
		RelayedAt: r.now().UTC(),
		Data:      raw,
	}
	if td := ctxutil.GetTraceData(ctx); td != nil {
		msg.EventID = td.EventID
		if td.EventName != "" {
			msg.EventName = td.EventName
		}
	}

	pubCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	if err := r.bus.Publish(pubCtx, msg); err != nil {
		return fmt.Errorf("relay: publish %s: %w", msg.EventID, err)
	}
	r.log.WithCtx(ctx).Debug("balance update relayed", "user_id", int64(evt.ID))
	return nil
}
