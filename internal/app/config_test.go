package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("http addr: got %q", cfg.HTTPAddr)
	}
	if cfg.UOW.MaxExecutionTime != 10*time.Second || cfg.UOW.ReadyTimeout != 5*time.Second {
		t.Fatalf("uow defaults: %+v", cfg.UOW)
	}
	if cfg.Redis.Enabled() {
		t.Fatalf("redis relay should be off without an addr")
	}
}

func TestLoadConfigFileThenEnv(t *testing.T) {
	path := writeConfig(t, `
service:
  http_addr: ":9000"
  shutdown_timeout: 3s
postgres:
  host: db.internal
  password: from-file
  max_open_conns: 7
  auto_migrate: false
uow:
  max_execution_time: 2s
redis:
  addr: redis:6379
  channel: balances
`)
	t.Setenv("HTTP_ADDR", ":9100")
	t.Setenv("UOW_READY_TIMEOUT", "750ms")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.HTTPAddr != ":9100" {
		t.Fatalf("env should override file: got %q", cfg.HTTPAddr)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Fatalf("shutdown timeout: got %s", cfg.ShutdownTimeout)
	}
	if cfg.Postgres.Host != "db.internal" || cfg.Postgres.MaxOpenConns != 7 {
		t.Fatalf("postgres from file: %+v", cfg.Postgres)
	}
	if cfg.Postgres.AutoMigrate {
		t.Fatalf("auto_migrate false in file was ignored")
	}
	if cfg.UOW.MaxExecutionTime != 2*time.Second || cfg.UOW.ReadyTimeout != 750*time.Millisecond {
		t.Fatalf("uow: %+v", cfg.UOW)
	}
	if !cfg.Redis.Enabled() || cfg.Redis.Channel != "balances" {
		t.Fatalf("redis: %+v", cfg.Redis)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("missing explicit config file should fail")
	}
	if _, err := LoadConfig(writeConfig(t, "service: [")); err == nil {
		t.Fatalf("malformed yaml should fail")
	}
	if _, err := LoadConfig(writeConfig(t, "uow:\n  max_execution_time: soon\n")); err == nil {
		t.Fatalf("bad duration should fail")
	}
	t.Setenv("UOW_MAX_EXECUTION_TIME", "-5")
	if _, err := LoadConfig(""); err == nil || !strings.Contains(err.Error(), "max execution time") {
		t.Fatalf("negative max execution time should fail, got %v", err)
	}
}

func TestLogFieldsMaskSecrets(t *testing.T) {
	t.Setenv("POSTGRES_PASSWORD", "hunter2")
	t.Setenv("REDIS_PASSWORD", "s3cret")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	for _, v := range cfg.LogFields() {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if strings.Contains(s, "hunter2") || strings.Contains(s, "s3cret") {
			t.Fatalf("secret leaked in log fields: %q", s)
		}
	}
}

func TestMaskDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://app:pw@db:5432/ledger?sslmode=disable": "postgres://app:****@db:5432/ledger?sslmode=disable",
		"host=db user=app password=pw dbname=ledger":       "host=db user=app password=**** dbname=ledger",
		"postgres://db:5432/ledger":                        "postgres://db:5432/ledger",
	}
	for in, want := range cases {
		if got := maskDSN(in); got != want {
			t.Fatalf("maskDSN(%q) = %q, want %q", in, got, want)
		}
	}
}
