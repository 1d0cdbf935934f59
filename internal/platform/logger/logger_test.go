package logger

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yungbote/ledger-backend/internal/platform/ctxutil"
)

func newObserved() (*Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return &Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestSanitizeRedactsSecrets(t *testing.T) {
	log, logs := newObserved()
	log.Info("connecting", "password", "hunter2", "host", "db.local")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("entries: want=1 got=%d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["password"] != "[REDACTED]" {
		t.Fatalf("password not redacted: %v", fields["password"])
	}
	if fields["host"] != "db.local" {
		t.Fatalf("host mangled: %v", fields["host"])
	}
}

func TestWithCtxAddsRequestIdentity(t *testing.T) {
	log, logs := newObserved()
	ctx := ctxutil.WithTraceData(context.Background(), &ctxutil.TraceData{RequestID: "req-1"})
	ctx = ctxutil.WithTxID(ctx, "tx-1")

	log.WithCtx(ctx).Debug("tx started")

	fields := logs.All()[0].ContextMap()
	if fields["request_id"] != "req-1" {
		t.Fatalf("request_id: got=%v", fields["request_id"])
	}
	if fields["tx_id"] != "tx-1" {
		t.Fatalf("tx_id: got=%v", fields["tx_id"])
	}
}

func TestWithCtxWithoutTraceDataIsIdentity(t *testing.T) {
	log, _ := newObserved()
	if got := log.WithCtx(context.Background()); got != log {
		t.Fatalf("expected same logger when ctx has no trace data")
	}
}

func TestNewTestModeIsNop(t *testing.T) {
	log, err := New("test")
	if err != nil {
		t.Fatalf("New(test): %v", err)
	}
	log.Info("discarded")
}

func TestSanitizeScrubsConnectionStrings(t *testing.T) {
	cases := map[string]string{
		"postgres://ledger:s3cret@db:5432/ledger":          "postgres://ledger:xxxxx@db:5432/ledger",
		"dial redis://:pw@cache:6379 failed":               "dial redis://:xxxxx@cache:6379 failed",
		"see https://docs.local/path?user=a@b for details": "see https://docs.local/path?user=a@b for details",
		"no url here":                                      "no url here",
	}
	for in, want := range cases {
		if got := scrubURLCredentials(in); got != want {
			t.Fatalf("scrub(%q) = %q, want %q", in, got, want)
		}
	}

	log, logs := newObserved()
	log.Warn("connect failed", "error", errors.New("dial postgres://app:pw@db/ledger: refused"))
	if got := logs.All()[0].ContextMap()["error"]; got != "dial postgres://app:xxxxx@db/ledger: refused" {
		t.Fatalf("error not scrubbed: %v", got)
	}
}
