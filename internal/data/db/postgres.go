package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/ledger-backend/internal/data/repos"
	"github.com/yungbote/ledger-backend/internal/data/uow"
	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

var (
	ErrNotConnected = errors.New("postgres: not connected")
	errForeignTx    = errors.New("postgres: transaction handle from another provider")
)

type PostgresConfig struct {
	// URL, when set, is used verbatim and the discrete fields are ignored.
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectTimeout bounds the whole retrying connect, not a single dial.
	ConnectTimeout     time.Duration
	SlowQueryThreshold time.Duration
	// AutoMigrate runs schema migration after connecting and before Ready
	// reports true.
	AutoMigrate bool
}

func (c PostgresConfig) DSN() string {
	if strings.TrimSpace(c.URL) != "" {
		return strings.TrimSpace(c.URL)
	}
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": []string{sslMode}}.Encode(),
	}
	return u.String()
}

// PostgresService owns the GORM pool and hands out native transactions to
// the unit-of-work manager.
type PostgresService struct {
	cfg PostgresConfig
	log *logger.Logger

	mu    sync.RWMutex
	db    *gorm.DB
	ready atomic.Bool
}

var _ uow.ConnectionProvider = (*PostgresService)(nil)

func NewPostgresService(cfg PostgresConfig, logg *logger.Logger) *PostgresService {
	if logg == nil {
		logg = logger.NewNop()
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = time.Second
	}
	return &PostgresService{cfg: cfg, log: logg.With("service", "PostgresService")}
}

// Connect opens the pool, retrying with exponential backoff until it pings or
// ConnectTimeout elapses. Ready flips to true on success.
func (s *PostgresService) Connect(ctx context.Context) error {
	dsn := s.cfg.DSN()
	gormLog := NewGormLogger(s.log, s.cfg.SlowQueryThreshold)

	attempt := 0
	db, err := backoff.Retry(ctx, func() (*gorm.DB, error) {
		attempt++
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLog,
		})
		if err != nil {
			if db != nil {
				if sqlDB, dbErr := db.DB(); dbErr == nil {
					_ = sqlDB.Close()
				}
			}
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		s.configurePool(sqlDB)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := sqlDB.PingContext(pingCtx); err != nil {
			_ = sqlDB.Close()
			return nil, err
		}
		return db, nil
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(s.cfg.ConnectTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.log.Warn("postgres not reachable; retrying", "attempt", attempt, "retry_in", next.String(), "error", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to Postgres: %w", err)
	}

	if s.cfg.AutoMigrate {
		if err := db.WithContext(ctx).AutoMigrate(repos.Models()...); err != nil {
			if sqlDB, dbErr := db.DB(); dbErr == nil {
				_ = sqlDB.Close()
			}
			return fmt.Errorf("postgres automigrate: %w", err)
		}
	}

	s.mu.Lock()
	s.db = db
	s.mu.Unlock()
	s.ready.Store(true)
	s.log.Info("postgres connected", "host", s.cfg.Host, "database", s.cfg.Name, "attempts", attempt)
	return nil
}

// ConnectAsync runs Connect in the background so that requests arriving
// before the pool is up wait on readiness instead of failing.
func (s *PostgresService) ConnectAsync(ctx context.Context) <-chan error {
	done := make(chan error, 1)
	go func() {
		err := s.Connect(ctx)
		if err != nil {
			s.log.Error("postgres connect failed", "error", err)
		}
		done <- err
		close(done)
	}()
	return done
}

func (s *PostgresService) configurePool(sqlDB *sql.DB) {
	if s.cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(s.cfg.MaxOpenConns)
	}
	if s.cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(s.cfg.MaxIdleConns)
	}
	if s.cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)
	}
}

func (s *PostgresService) Ready() bool { return s.ready.Load() }

// DB is nil until Connect succeeds.
func (s *PostgresService) DB() *gorm.DB {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db
}

// AutoMigrate creates or updates every table the service owns.
func (s *PostgresService) AutoMigrate(ctx context.Context) error {
	db := s.DB()
	if db == nil {
		return ErrNotConnected
	}
	return db.WithContext(ctx).AutoMigrate(repos.Models()...)
}

func (s *PostgresService) Close() error {
	s.ready.Store(false)
	db := s.DB()
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// pgTx ends its transaction through the driver committer directly. gorm's
// Commit/Rollback report through the shared db.Error, which the watchdog's
// Release would race with an in-flight Commit.
type pgTx struct {
	db       *gorm.DB
	cancel   context.CancelFunc
	released atomic.Bool
}

func (t *pgTx) DB() *gorm.DB { return t.db }

func (t *pgTx) committer() (gorm.TxCommitter, error) {
	if t.db == nil || t.db.Statement == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	c, ok := t.db.Statement.ConnPool.(gorm.TxCommitter)
	if !ok || c == nil {
		return nil, gorm.ErrInvalidTransaction
	}
	return c, nil
}

// Begin starts a transaction whose lifetime is detached from ctx cancellation;
// only Commit, Rollback or Release end it.
func (s *PostgresService) Begin(ctx context.Context, level uow.IsolationLevel) (uow.Tx, error) {
	db := s.DB()
	if db == nil {
		return nil, ErrNotConnected
	}
	txCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	tx := db.WithContext(txCtx).Begin(&sql.TxOptions{Isolation: level.SQL()})
	if tx.Error != nil {
		cancel()
		return nil, tx.Error
	}
	return &pgTx{db: tx, cancel: cancel}, nil
}

func (s *PostgresService) Commit(tx uow.Tx) error {
	pt, ok := tx.(*pgTx)
	if !ok {
		return errForeignTx
	}
	c, err := pt.committer()
	if err != nil {
		return err
	}
	return c.Commit()
}

func (s *PostgresService) Rollback(tx uow.Tx) error {
	pt, ok := tx.(*pgTx)
	if !ok {
		return errForeignTx
	}
	c, err := pt.committer()
	if err != nil {
		return err
	}
	if err := c.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}

// Release cancels the transaction context, which makes database/sql roll the
// transaction back if it is still open and return its connection. A commit
// already under way is not affected: database/sql settles a transaction once.
// Any later use of the handle fails with sql.ErrTxDone or context.Canceled.
func (s *PostgresService) Release(tx uow.Tx) error {
	pt, ok := tx.(*pgTx)
	if !ok {
		return errForeignTx
	}
	if !pt.released.CompareAndSwap(false, true) {
		return nil
	}
	pt.cancel()
	c, err := pt.committer()
	if err != nil {
		return err
	}
	if err := c.Rollback(); err != nil &&
		!errors.Is(err, sql.ErrTxDone) &&
		!errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
