package app

import (
	"context"
	"fmt"

	"github.com/yungbote/ledger-backend/internal/platform/logger"
	rtbus "github.com/yungbote/ledger-backend/internal/realtime/bus"
)

type Clients struct {
	// EventRelay is nil when no redis addr is configured.
	EventRelay rtbus.Bus
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	var relay rtbus.Bus
	if cfg.Redis.Enabled() {
		b, err := rtbus.NewRedisBus(ctx, log, rtbus.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
		})
		if err != nil {
			return Clients{}, fmt.Errorf("init redis event relay: %w", err)
		}
		relay = b
	}

	return Clients{EventRelay: relay}, nil
}

func (c Clients) Close() error {
	if c.EventRelay == nil {
		return nil
	}
	return c.EventRelay.Close()
}
