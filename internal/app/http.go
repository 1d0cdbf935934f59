package app

import (
	apphttp "github.com/yungbote/ledger-backend/internal/http"
	httpH "github.com/yungbote/ledger-backend/internal/http/handlers"
	"github.com/yungbote/ledger-backend/internal/observability"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

type Handlers struct {
	Health *httpH.HealthHandler
	User   *httpH.UserHandler
}

func wireHandlers(log *logger.Logger, services Services, db httpH.ReadinessChecker) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(db),
		User:   httpH.NewUserHandler(services.Balance),
	}
}

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers) *apphttp.Server {
	return apphttp.NewServer(cfg.HTTPAddr, apphttp.RouterConfig{
		Log:           log,
		Metrics:       metrics,
		ServiceName:   cfg.ServiceName,
		CORSOrigins:   cfg.CORSOrigins,
		HealthHandler: handlers.Health,
		UserHandler:   handlers.User,
	})
}
