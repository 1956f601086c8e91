// Package config loads process configuration from config.toml and
// SALESOS_* environment variables through viper.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SALESOS_XERO_WEBHOOK_KEY
const EnvPrefix = "SALESOS"

// configFileEnv points at an explicit config file instead of the search path
const configFileEnv = EnvPrefix + "_CONFIG_FILE"

// Config is the root configuration shared by the server, refresher and
// migrate commands
type Config struct {
	App            AppConfig            `mapstructure:"app"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	JWT            JWTConfig            `mapstructure:"jwt"`
	Log            LogConfig            `mapstructure:"log"`
	HTTP           HTTPConfig           `mapstructure:"http"`
	Xero           XeroConfig           `mapstructure:"xero"`
	Credential     CredentialConfig     `mapstructure:"credential"`
	Reconciliation ReconciliationConfig `mapstructure:"reconciliation"`
	Storage        StorageConfig        `mapstructure:"storage"`
	Scheduler      SchedulerConfig      `mapstructure:"scheduler"`
	Swagger        SwaggerConfig        `mapstructure:"swagger"`
	Telemetry      TelemetryConfig      `mapstructure:"telemetry"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// LogConfig feeds logger.New; Output is stdout, stderr or a file path
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN renders a postgres URL with user info escaped
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

// RedisConfig backs the webhook delivery store and the writer lock. When
// disabled both fall back to process memory outside production.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// JWTConfig validates the ops API bearer tokens
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Issuer string `mapstructure:"issuer"`
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"`
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
	// The limiter guards the authenticated ops API only
	RateLimitEnabled  bool          `mapstructure:"rate_limit_enabled"`
	RateLimitRequests int           `mapstructure:"rate_limit_requests"`
	RateLimitWindow   time.Duration `mapstructure:"rate_limit_window"`
}

// XeroConfig addresses the accounting platform
type XeroConfig struct {
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	WebhookKey     string `mapstructure:"webhook_key"`
	APIBaseURL     string `mapstructure:"api_base_url"`
	TokenURL       string `mapstructure:"token_url"`
	ConnectionsURL string `mapstructure:"connections_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	// IntegrationIdentity keys the one credential row every process shares
	IntegrationIdentity string `mapstructure:"integration_identity"`
}

type CredentialConfig struct {
	RefreshMargin   time.Duration `mapstructure:"refresh_margin"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	// TokenKey seals stored OAuth tokens; empty stores them in plaintext
	TokenKey string `mapstructure:"token_key"`
}

type ReconciliationConfig struct {
	IdempotencyTTL  time.Duration `mapstructure:"idempotency_ttl"`
	ArchiveEnabled  bool          `mapstructure:"archive_enabled"`
	MaxPayloadBytes int64         `mapstructure:"max_payload_bytes"`
}

// StorageConfig addresses the S3-compatible webhook archive
type StorageConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	Region       string `mapstructure:"region"`
	Bucket       string `mapstructure:"bucket"`
	AccessKey    string `mapstructure:"access_key"`
	SecretKey    string `mapstructure:"secret_key"`
	UseSSL       bool   `mapstructure:"use_ssl"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
	Prefix       string `mapstructure:"prefix"`
}

// SchedulerConfig sizes the refresher's job pool
type SchedulerConfig struct {
	Workers       int           `mapstructure:"workers"`
	JobTimeout    time.Duration `mapstructure:"job_timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryDelay    time.Duration `mapstructure:"retry_delay"`
}

type SwaggerConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	RequireAuth bool     `mapstructure:"require_auth"`
	AllowedIPs  []string `mapstructure:"allowed_ips"`
}

// TelemetryConfig drives the OTLP exporters and gorm instrumentation
type TelemetryConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRatio     float64 `mapstructure:"sampling_ratio"`
	ServiceName       string  `mapstructure:"service_name"`
	// Insecure dials the collector without TLS
	Insecure          bool          `mapstructure:"insecure"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// defaults registers every key, including empty ones, so environment
// overrides reach Unmarshal even when no config file mentions the key
var defaults = map[string]any{
	"app.name": "salesos",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "salesos",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  time.Hour,
	"database.conn_max_idle_time": 30 * time.Minute,

	"redis.enabled":  false,
	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"jwt.secret": "",
	"jwt.issuer": "salesos",

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    15 * time.Second,
	"http.idle_timeout":     time.Minute,
	"http.max_header_bytes": 1 << 20,
	"http.max_body_size":    2 << 20,
	// no origin is allowed until one is configured
	"http.cors_allow_origins":  []string{},
	"http.cors_allow_methods":  []string{"GET", "POST", "OPTIONS"},
	"http.cors_allow_headers":  []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":     []string{},
	"http.rate_limit_enabled":  false,
	"http.rate_limit_requests": 120,
	"http.rate_limit_window":   time.Minute,

	"xero.client_id":            "",
	"xero.client_secret":        "",
	"xero.webhook_key":          "",
	"xero.api_base_url":         "",
	"xero.token_url":            "",
	"xero.connections_url":      "",
	"xero.timeout_seconds":      20,
	"xero.integration_identity": "default",

	"credential.refresh_margin":   10 * time.Minute,
	"credential.refresh_interval": 10 * time.Minute,
	"credential.lock_ttl":         2 * time.Minute,
	"credential.token_key":        "",

	"reconciliation.idempotency_ttl":   24 * time.Hour,
	"reconciliation.archive_enabled":   false,
	"reconciliation.max_payload_bytes": 1 << 20,

	"storage.endpoint":       "",
	"storage.region":         "us-east-1",
	"storage.bucket":         "",
	"storage.access_key":     "",
	"storage.secret_key":     "",
	"storage.use_ssl":        false,
	"storage.use_path_style": false,
	"storage.prefix":         "webhooks",

	"scheduler.workers":        1,
	"scheduler.job_timeout":    2 * time.Minute,
	"scheduler.retry_attempts": 3,
	"scheduler.retry_delay":    30 * time.Second,

	"swagger.enabled":      false,
	"swagger.require_auth": false,
	"swagger.allowed_ips":  []string{},

	"telemetry.enabled":                 false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "salesos",
	"telemetry.insecure":                false,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
}

// Load resolves configuration with environment variables over config.toml
// (from ., /app or $SALESOS_CONFIG_FILE) over built-in defaults, then
// validates it
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if path := os.Getenv(configFileEnv); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(".")
		v.AddConfigPath("/app")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// validate reports every problem at once
func (c *Config) validate() error {
	var problems []error
	check := func(failed bool, format string, args ...any) {
		if failed {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	db := c.Database
	check(db.MaxOpenConns <= 0, "database.max_open_conns must be positive")
	check(db.MaxIdleConns < 0, "database.max_idle_conns cannot be negative")
	check(db.MaxIdleConns > db.MaxOpenConns,
		"database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	check(c.Credential.RefreshMargin < 0, "credential.refresh_margin cannot be negative")
	check(c.Credential.RefreshInterval <= 0, "credential.refresh_interval must be positive")
	check(c.Credential.TokenKey != "" && len(c.Credential.TokenKey) < 16, "credential.token_key must be at least 16 characters")
	check(c.Reconciliation.MaxPayloadBytes < 0, "reconciliation.max_payload_bytes cannot be negative")
	check(c.Reconciliation.ArchiveEnabled && c.Storage.Bucket == "",
		"storage.bucket is required when reconciliation.archive_enabled is set")
	check(c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1,
		"telemetry.sampling_ratio must be between 0.0 and 1.0, got %g", c.Telemetry.SamplingRatio)

	if c.IsProduction() {
		check(c.JWT.Secret == "", "jwt.secret is required in production")
		check(c.JWT.Secret != "" && len(c.JWT.Secret) < 32, "jwt.secret must be at least 32 characters in production")
		check(db.Password == "", "database.password is required in production")
		check(db.SSLMode == "disable", "database.sslmode cannot be 'disable' in production")
		check(c.Xero.WebhookKey == "", "xero.webhook_key is required in production")
		check(slices.Contains(c.HTTP.CORSAllowOrigins, "*"), "http.cors_allow_origins cannot be '*' in production")
		check(c.Telemetry.DBLogFullSQL, "telemetry.db_log_full_sql must be false in production")
	}
	return errors.Join(problems...)
}
