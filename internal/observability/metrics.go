package observability

import (
	"context"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests *CounterVec
	apiLatency  *HistogramVec
	apiInflight *Gauge
	apiReqTotal *Counter
	apiReqError *Counter

	txTotal      *CounterVec
	txLatency    *HistogramVec
	txTimeouts   *Counter
	evtDispatch  *Counter
	evtHandled   *CounterVec
	evtHandlerMs *HistogramVec

	pgStats   *GaugeVec
	redisUp   *Gauge
	redisPing *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

// Init builds the process-wide metrics set when METRICS_ENABLED is on and
// returns nil otherwise. Every Metrics method is nil-safe.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = New()
		if log != nil {
			log.Info("Observability metrics enabled")
		}
	})
	return instance
}

// New builds an unregistered metrics set.
func New() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("ledger_api_requests_total", "Total API requests by method/route/status.", []string{"method", "route", "status"}),
		apiLatency: NewHistogramVec(
			"ledger_api_request_duration_seconds",
			"API request latency in seconds by method/route/status.",
			[]string{"method", "route", "status"},
			[]float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		),
		apiInflight: NewGauge("ledger_api_inflight_requests", "In-flight API requests."),
		apiReqTotal: NewCounter("ledger_api_requests_total_all", "Total API requests (all)."),
		apiReqError: NewCounter("ledger_api_requests_error_total", "Total API requests with 5xx status."),

		txTotal: NewCounterVec("ledger_uow_transactions_total", "Units of work by outcome.", []string{"outcome"}),
		txLatency: NewHistogramVec(
			"ledger_uow_transaction_duration_seconds",
			"Unit-of-work duration in seconds by outcome.",
			[]string{"outcome"},
			[]float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		),
		txTimeouts:  NewCounter("ledger_uow_watchdog_releases_total", "Transactions whose connection was reclaimed by the watchdog."),
		evtDispatch: NewCounter("ledger_uow_events_dispatched_total", "Domain events published after commit."),
		evtHandled:  NewCounterVec("ledger_event_handler_total", "Event handler invocations by event/status.", []string{"event", "status"}),
		evtHandlerMs: NewHistogramVec(
			"ledger_event_handler_duration_seconds",
			"Event handler duration in seconds by event.",
			[]string{"event"},
			[]float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		),

		pgStats:   NewGaugeVec("ledger_postgres_stats", "Postgres connection stats.", []string{"metric"}),
		redisUp:   NewGauge("ledger_redis_up", "Redis connectivity (1=up, 0=down)."),
		redisPing: NewGauge("ledger_redis_ping_seconds", "Redis ping latency in seconds."),
	}
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           http.HandlerFunc(m.WriteHTTP),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, r *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

type promWriter interface {
	WritePrometheus(w io.Writer) error
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	all := []promWriter{
		m.apiRequests, m.apiLatency, m.apiInflight, m.apiReqTotal, m.apiReqError,
		m.txTotal, m.txLatency, m.txTimeouts, m.evtDispatch, m.evtHandled, m.evtHandlerMs,
		m.pgStats, m.redisUp, m.redisPing,
	}
	for _, pw := range all {
		if err := pw.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.apiRequests.Inc(method, route, status)
	m.apiLatency.Observe(dur.Seconds(), method, route, status)
	m.apiReqTotal.Inc()
	if isServerErrorStatus(status) {
		m.apiReqError.Inc()
	}
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

func (m *Metrics) ObserveTransaction(outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	outcome = strings.TrimSpace(outcome)
	m.txTotal.Inc(outcome)
	m.txLatency.Observe(dur.Seconds(), outcome)
}

func (m *Metrics) IncTransactionTimeout() {
	if m == nil {
		return
	}
	m.txTimeouts.Inc()
}

func (m *Metrics) AddEventsDispatched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.evtDispatch.Add(float64(n))
}

func (m *Metrics) ObserveEventHandler(event, status string, dur time.Duration) {
	if m == nil {
		return
	}
	m.evtHandled.Inc(event, status)
	m.evtHandlerMs.Observe(dur.Seconds(), event)
}

// TransactionCount returns how many units of work ended with outcome.
func (m *Metrics) TransactionCount(outcome string) float64 {
	if m == nil {
		return 0
	}
	return m.txTotal.Value(outcome)
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: postgres stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.Set(float64(stats.OpenConnections), "open_connections")
				m.pgStats.Set(float64(stats.InUse), "in_use")
				m.pgStats.Set(float64(stats.Idle), "idle")
				m.pgStats.Set(float64(stats.WaitCount), "wait_count")
				m.pgStats.Set(stats.WaitDuration.Seconds(), "wait_duration_seconds")
				m.pgStats.Set(float64(stats.MaxOpenConnections), "max_open_connections")
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}
