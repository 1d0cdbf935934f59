package app

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/ledger-backend/internal/data/db"
	"github.com/yungbote/ledger-backend/internal/data/uow"
	"github.com/yungbote/ledger-backend/internal/observability"
	"github.com/yungbote/ledger-backend/internal/platform/envutil"
)

type UOWConfig struct {
	MaxExecutionTime  time.Duration
	ReadyTimeout      time.Duration
	ReadyPollInterval time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

// Enabled reports whether the balance relay should run.
func (c RedisConfig) Enabled() bool { return strings.TrimSpace(c.Addr) != "" }

type Config struct {
	Env         string
	ServiceName string
	Version     string
	LogMode     string

	HTTPAddr        string
	CORSOrigins     []string
	ShutdownTimeout time.Duration

	Postgres db.PostgresConfig

	UOW   UOWConfig
	Redis RedisConfig

	Otel        observability.OtelConfig
	MetricsAddr string
}

// configFile is the YAML schema read from CONFIG_PATH.
type configFile struct {
	Service struct {
		Env      string   `yaml:"env"`
		Name     string   `yaml:"name"`
		Version  string   `yaml:"version"`
		LogMode  string   `yaml:"log_mode"`
		HTTPAddr string   `yaml:"http_addr"`
		Shutdown string   `yaml:"shutdown_timeout"`
		CORS     []string `yaml:"cors_origins"`
	} `yaml:"service"`
	Postgres struct {
		URL             string `yaml:"url"`
		Host            string `yaml:"host"`
		Port            string `yaml:"port"`
		User            string `yaml:"user"`
		Password        string `yaml:"password"`
		Name            string `yaml:"name"`
		SSLMode         string `yaml:"sslmode"`
		MaxOpenConns    int    `yaml:"max_open_conns"`
		MaxIdleConns    int    `yaml:"max_idle_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		ConnectTimeout  string `yaml:"connect_timeout"`
		SlowQuery       string `yaml:"slow_query_threshold"`
		AutoMigrate     *bool  `yaml:"auto_migrate"`
	} `yaml:"postgres"`
	UOW struct {
		MaxExecutionTime  string `yaml:"max_execution_time"`
		ReadyTimeout      string `yaml:"ready_timeout"`
		ReadyPollInterval string `yaml:"ready_poll_interval"`
	} `yaml:"uow"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`
	Otel struct {
		Enabled     *bool   `yaml:"enabled"`
		Endpoint    string  `yaml:"endpoint"`
		Insecure    *bool   `yaml:"insecure"`
		SampleRatio float64 `yaml:"sample_ratio"`
	} `yaml:"otel"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

func defaultConfig() Config {
	return Config{
		Env:             "development",
		ServiceName:     "ledger",
		LogMode:         "development",
		HTTPAddr:        ":8080",
		ShutdownTimeout: 15 * time.Second,
		Postgres: db.PostgresConfig{
			Host:               "localhost",
			Port:               "5432",
			User:               "postgres",
			Name:               "ledger",
			SSLMode:            "disable",
			MaxOpenConns:       20,
			MaxIdleConns:       10,
			ConnMaxLifetime:    30 * time.Minute,
			ConnectTimeout:     30 * time.Second,
			SlowQueryThreshold: 200 * time.Millisecond,
			AutoMigrate:        true,
		},
		UOW: UOWConfig{
			MaxExecutionTime:  uow.DefaultMaxExecutionTime,
			ReadyTimeout:      uow.DefaultReadyTimeout,
			ReadyPollInterval: uow.DefaultReadyPollInterval,
		},
		Redis: RedisConfig{Channel: "ledger.events"},
		Otel: observability.OtelConfig{
			ServiceName: "ledger",
			SampleRatio: 0.1,
		},
	}
}

// LoadConfig resolves configuration as defaults, then the YAML file at path
// (when path is non-empty), then environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := defaultConfig()

	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		var f configFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
		if err := applyFile(&cfg, f); err != nil {
			return Config{}, err
		}
	}

	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) error {
	setString(&cfg.Env, f.Service.Env)
	setString(&cfg.ServiceName, f.Service.Name)
	setString(&cfg.Version, f.Service.Version)
	setString(&cfg.LogMode, f.Service.LogMode)
	setString(&cfg.HTTPAddr, f.Service.HTTPAddr)
	if len(f.Service.CORS) > 0 {
		cfg.CORSOrigins = f.Service.CORS
	}

	pg := &cfg.Postgres
	setString(&pg.URL, f.Postgres.URL)
	setString(&pg.Host, f.Postgres.Host)
	setString(&pg.Port, f.Postgres.Port)
	setString(&pg.User, f.Postgres.User)
	setString(&pg.Password, f.Postgres.Password)
	setString(&pg.Name, f.Postgres.Name)
	setString(&pg.SSLMode, f.Postgres.SSLMode)
	if f.Postgres.MaxOpenConns > 0 {
		pg.MaxOpenConns = f.Postgres.MaxOpenConns
	}
	if f.Postgres.MaxIdleConns > 0 {
		pg.MaxIdleConns = f.Postgres.MaxIdleConns
	}
	if f.Postgres.AutoMigrate != nil {
		pg.AutoMigrate = *f.Postgres.AutoMigrate
	}

	setString(&cfg.Redis.Addr, f.Redis.Addr)
	setString(&cfg.Redis.Password, f.Redis.Password)
	setString(&cfg.Redis.Channel, f.Redis.Channel)
	if f.Redis.DB > 0 {
		cfg.Redis.DB = f.Redis.DB
	}

	if f.Otel.Enabled != nil {
		cfg.Otel.Enabled = *f.Otel.Enabled
	}
	if f.Otel.Insecure != nil {
		cfg.Otel.Insecure = *f.Otel.Insecure
	}
	setString(&cfg.Otel.Endpoint, f.Otel.Endpoint)
	if f.Otel.SampleRatio > 0 {
		cfg.Otel.SampleRatio = f.Otel.SampleRatio
	}
	setString(&cfg.MetricsAddr, f.Metrics.Addr)

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"service.shutdown_timeout", f.Service.Shutdown, &cfg.ShutdownTimeout},
		{"postgres.conn_max_lifetime", f.Postgres.ConnMaxLifetime, &pg.ConnMaxLifetime},
		{"postgres.connect_timeout", f.Postgres.ConnectTimeout, &pg.ConnectTimeout},
		{"postgres.slow_query_threshold", f.Postgres.SlowQuery, &pg.SlowQueryThreshold},
		{"uow.max_execution_time", f.UOW.MaxExecutionTime, &cfg.UOW.MaxExecutionTime},
		{"uow.ready_timeout", f.UOW.ReadyTimeout, &cfg.UOW.ReadyTimeout},
		{"uow.ready_poll_interval", f.UOW.ReadyPollInterval, &cfg.UOW.ReadyPollInterval},
	}
	for _, d := range durations {
		raw := strings.TrimSpace(d.raw)
		if raw == "" {
			continue
		}
		v, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("config %s: %w", d.key, err)
		}
		*d.dst = v
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("APP_ENV", cfg.Env)
	cfg.ServiceName = envutil.String("SERVICE_NAME", cfg.ServiceName)
	cfg.Version = envutil.String("APP_VERSION", cfg.Version)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)
	cfg.CORSOrigins = envutil.CSV("CORS_ALLOWED_ORIGINS", cfg.CORSOrigins)
	cfg.ShutdownTimeout = envutil.Duration("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)

	pg := &cfg.Postgres
	pg.URL = envutil.String("POSTGRES_URL", pg.URL)
	pg.Host = envutil.String("POSTGRES_HOST", pg.Host)
	pg.Port = envutil.String("POSTGRES_PORT", pg.Port)
	pg.User = envutil.String("POSTGRES_USER", pg.User)
	pg.Password = envutil.String("POSTGRES_PASSWORD", pg.Password)
	pg.Name = envutil.String("POSTGRES_NAME", pg.Name)
	pg.SSLMode = envutil.String("POSTGRES_SSLMODE", pg.SSLMode)
	pg.MaxOpenConns = envutil.Int("POSTGRES_MAX_OPEN_CONNS", pg.MaxOpenConns)
	pg.MaxIdleConns = envutil.Int("POSTGRES_MAX_IDLE_CONNS", pg.MaxIdleConns)
	pg.ConnMaxLifetime = envutil.Duration("POSTGRES_CONN_MAX_LIFETIME", pg.ConnMaxLifetime)
	pg.ConnectTimeout = envutil.Duration("POSTGRES_CONNECT_TIMEOUT", pg.ConnectTimeout)
	pg.SlowQueryThreshold = envutil.Duration("POSTGRES_SLOW_QUERY_THRESHOLD", pg.SlowQueryThreshold)
	pg.AutoMigrate = envutil.Bool("DB_AUTO_MIGRATE", pg.AutoMigrate)

	cfg.UOW.MaxExecutionTime = envutil.Duration("UOW_MAX_EXECUTION_TIME", cfg.UOW.MaxExecutionTime)
	cfg.UOW.ReadyTimeout = envutil.Duration("UOW_READY_TIMEOUT", cfg.UOW.ReadyTimeout)
	cfg.UOW.ReadyPollInterval = envutil.Duration("UOW_READY_POLL_INTERVAL", cfg.UOW.ReadyPollInterval)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.Otel.Enabled = envutil.Bool("OTEL_ENABLED", cfg.Otel.Enabled)
	cfg.Otel.Endpoint = envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Otel.Endpoint)
	cfg.Otel.Insecure = envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", cfg.Otel.Insecure)
	cfg.Otel.SampleRatio = envutil.Float("OTEL_SAMPLE_RATIO", cfg.Otel.SampleRatio)
	if h := observability.ParseHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")); h != nil {
		cfg.Otel.Headers = h
	}
	cfg.Otel.ServiceName = envutil.String("OTEL_SERVICE_NAME", cfg.ServiceName)
	cfg.Otel.Environment = cfg.Env
	cfg.Otel.Version = cfg.Version

	cfg.MetricsAddr = envutil.String("METRICS_ADDR", cfg.MetricsAddr)
}

func (c Config) validate() error {
	var errs []error
	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http addr is required"))
	}
	if strings.TrimSpace(c.Postgres.URL) == "" && strings.TrimSpace(c.Postgres.Host) == "" {
		errs = append(errs, errors.New("postgres url or host is required"))
	}
	if c.UOW.MaxExecutionTime <= 0 {
		errs = append(errs, errors.New("uow max execution time must be positive"))
	}
	if c.UOW.ReadyTimeout <= 0 {
		errs = append(errs, errors.New("uow ready timeout must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// LogFields flattens the config for a startup log line with secrets masked.
func (c Config) LogFields() []interface{} {
	return []interface{}{
		"env", c.Env,
		"service", c.ServiceName,
		"version", c.Version,
		"http_addr", c.HTTPAddr,
		"postgres_dsn", maskDSN(c.Postgres.DSN()),
		"postgres_max_open_conns", c.Postgres.MaxOpenConns,
		"auto_migrate", c.Postgres.AutoMigrate,
		"uow_max_execution_time", c.UOW.MaxExecutionTime.String(),
		"uow_ready_timeout", c.UOW.ReadyTimeout.String(),
		"redis_addr", c.Redis.Addr,
		"redis_channel", c.Redis.Channel,
		"redis_password", mask(c.Redis.Password),
		"otel_enabled", c.Otel.Enabled,
		"otel_endpoint", c.Otel.Endpoint,
		"metrics_addr", c.MetricsAddr,
	}
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "****"
}

// maskDSN hides the password in a postgres URL or key/value DSN.
func maskDSN(dsn string) string {
	if at := strings.LastIndex(dsn, "@"); at > 0 {
		if scheme := strings.Index(dsn, "://"); scheme >= 0 && scheme < at {
			userinfo := dsn[scheme+3 : at]
			if colon := strings.Index(userinfo, ":"); colon >= 0 {
				return dsn[:scheme+3] + userinfo[:colon] + ":****" + dsn[at:]
			}
		}
	}
	fields := strings.Fields(dsn)
	for i, f := range fields {
		if strings.HasPrefix(strings.ToLower(f), "password=") {
			fields[i] = "password=****"
		}
	}
	if len(fields) > 1 {
		return strings.Join(fields, " ")
	}
	return dsn
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}
