package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/ledger-backend/internal/platform/logger"
)

// gormLog routes GORM output through the service logger so SQL diagnostics
// carry the same request and transaction fields as everything else.
type gormLog struct {
	log   *logger.Logger
	level gormLogger.LogLevel
	slow  time.Duration
}

func NewGormLogger(log *logger.Logger, slow time.Duration) gormLogger.Interface {
	if log == nil {
		log = logger.NewNop()
	}
	return &gormLog{log: log.With("component", "gorm"), level: gormLogger.Warn, slow: slow}
}

func (l *gormLog) LogMode(level gormLogger.LogLevel) gormLogger.Interface {
	next := *l
	next.level = level
	return &next
}

func (l *gormLog) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Info {
		l.log.WithCtx(ctx).Info(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLog) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Warn {
		l.log.WithCtx(ctx).Warn(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLog) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.level >= gormLogger.Error {
		l.log.WithCtx(ctx).Error(fmt.Sprintf(msg, data...))
	}
}

func (l *gormLog) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormLogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && l.level >= gormLogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		query, rows := fc()
		l.log.WithCtx(ctx).Error("query failed", "error", err, "elapsed_ms", elapsed.Milliseconds(), "rows", rows, "query", query)
	case l.slow > 0 && elapsed > l.slow && l.level >= gormLogger.Warn:
		query, rows := fc()
		l.log.WithCtx(ctx).Warn("slow query", "elapsed_ms", elapsed.Milliseconds(), "threshold_ms", l.slow.Milliseconds(), "rows", rows, "query", query)
	case l.level >= gormLogger.Info:
		query, rows := fc()
		l.log.WithCtx(ctx).Debug("query", "elapsed_ms", elapsed.Milliseconds(), "rows", rows, "query", query)
	}
}
