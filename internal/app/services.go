package app

import (
	"github.com/yungbote/ledger-backend/internal/data/uow"
	"github.com/yungbote/ledger-backend/internal/platform/eventbus"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
	"github.com/yungbote/ledger-backend/internal/services"
)

type Services struct {
	Balance  services.BalanceService
	Notifier *services.BalanceNotifier
	Relay    *services.BalanceRelay
}

func wireServices(log *logger.Logger, cfg Config, helper *uow.Helper, reposet Repos, clients Clients, bus *eventbus.Bus) Services {
	log.Info("Wiring services...")
	out := Services{
		Balance: services.NewBalanceService(log, helper, reposet.User, services.BalanceServiceOptions{
			MaxExecutionTime: cfg.UOW.MaxExecutionTime,
		}),
		Notifier: services.NewBalanceNotifier(log),
	}
	if clients.EventRelay != nil {
		out.Relay = services.NewBalanceRelay(log, clients.EventRelay, 0)
	}

	subs := []services.Subscriber{out.Notifier}
	if out.Relay != nil {
		subs = append(subs, out.Relay)
	}
	services.RegisterSubscribers(bus, subs...)
	return out
}
