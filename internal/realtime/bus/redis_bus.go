package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/ledger-backend/internal/platform/logger"
	"github.com/yungbote/ledger-backend/internal/realtime"
)

const DefaultChannel = "ledger.events"

var errNotInitialized = errors.New("redis event bus not initialized")

type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	Channel     string
	DialTimeout time.Duration
}

type redisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	owned   bool
}

// NewRedisBus dials cfg.Addr and pings it before returning.
func NewRedisBus(ctx context.Context, log *logger.Logger, cfg RedisConfig) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 5 * time.Second
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: dialTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	b := newRedisBus(log, rdb, cfg.Channel)
	b.owned = true
	return b, nil
}

// NewRedisBusFromClient wraps an existing client. Close leaves the client open.
func NewRedisBusFromClient(log *logger.Logger, rdb *goredis.Client, channel string) (Bus, error) {
	if rdb == nil {
		return nil, errNotInitialized
	}
	if log == nil {
		log = logger.NewNop()
	}
	return newRedisBus(log, rdb, channel), nil
}

func newRedisBus(log *logger.Logger, rdb *goredis.Client, channel string) *redisBus {
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = DefaultChannel
	}
	return &redisBus{
		log:     log.With("service", "RedisEventBus", "channel", channel),
		rdb:     rdb,
		channel: channel,
	}
}

// Client exposes the underlying redis client for health checks and pool metrics.
func Client(b Bus) *goredis.Client {
	if rb, ok := b.(*redisBus); ok && rb != nil {
		return rb.rdb
	}
	return nil
}

func (b *redisBus) Publish(ctx context.Context, msg realtime.Message) error {
	if b == nil || b.rdb == nil {
		return errNotInitialized
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	receivers, err := b.rdb.Publish(ctx, b.channel, raw).Result()
	if err != nil {
		return err
	}
	b.log.Debug("event published", "event_id", msg.EventID, "event_name", msg.EventName, "receivers", receivers)
	return nil
}

func (b *redisBus) Close() error {
	if b == nil || b.rdb == nil || !b.owned {
		return nil
	}
	return b.rdb.Close()
}
