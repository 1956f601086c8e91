package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvKeys = []string{
	"SALESOS_APP_NAME",
	"SALESOS_APP_ENV",
	"SALESOS_APP_PORT",
	"SALESOS_DATABASE_HOST",
	"SALESOS_DATABASE_PORT",
	"SALESOS_DATABASE_USER",
	"SALESOS_DATABASE_PASSWORD",
	"SALESOS_DATABASE_DBNAME",
	"SALESOS_DATABASE_SSLMODE",
	"SALESOS_DATABASE_MAX_OPEN_CONNS",
	"SALESOS_DATABASE_MAX_IDLE_CONNS",
	"SALESOS_JWT_SECRET",
	"SALESOS_XERO_WEBHOOK_KEY",
	"SALESOS_XERO_INTEGRATION_IDENTITY",
	"SALESOS_CREDENTIAL_REFRESH_MARGIN",
	"SALESOS_RECONCILIATION_ARCHIVE_ENABLED",
	"SALESOS_STORAGE_BUCKET",
	"SALESOS_TELEMETRY_SAMPLING_RATIO",
	"SALESOS_TELEMETRY_DB_LOG_FULL_SQL",
	"SALESOS_HTTP_CORS_ALLOW_ORIGINS",
	"SALESOS_CONFIG_FILE",
	"SALESOS_CREDENTIAL_TOKEN_KEY",
}

// isolateEnv clears every config variable for the duration of the test
func isolateEnv(t *testing.T) {
	t.Helper()
	original := make(map[string]string, len(configEnvKeys))
	for _, k := range configEnvKeys {
		original[k] = os.Getenv(k)
		os.Unsetenv(k)
	}
	t.Cleanup(func() {
		for k, v := range original {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		isolateEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "salesos", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "salesos", cfg.Database.DBName)
		assert.Equal(t, "disable", cfg.Database.SSLMode)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.Equal(t, 5, cfg.Database.MaxIdleConns)
		assert.Equal(t, "localhost:6379", cfg.Redis.Addr())

		assert.Equal(t, 20, cfg.Xero.TimeoutSeconds)
		assert.Equal(t, "default", cfg.Xero.IntegrationIdentity)
		assert.Equal(t, 10*time.Minute, cfg.Credential.RefreshMargin)
		assert.Equal(t, 10*time.Minute, cfg.Credential.RefreshInterval)
		assert.Equal(t, 2*time.Minute, cfg.Credential.LockTTL)
		assert.Equal(t, 24*time.Hour, cfg.Reconciliation.IdempotencyTTL)
		assert.Equal(t, int64(1<<20), cfg.Reconciliation.MaxPayloadBytes)
		assert.Equal(t, "webhooks", cfg.Storage.Prefix)
		assert.Equal(t, 1, cfg.Scheduler.Workers)
		assert.Equal(t, time.Hour, cfg.Database.ConnMaxLifetime)
		assert.Empty(t, cfg.HTTP.CORSAllowOrigins)
		assert.Equal(t, 1.0, cfg.Telemetry.SamplingRatio)
	})

	t.Run("loads values from environment variables with SALESOS prefix", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("SALESOS_APP_NAME", "salesos-test")
		os.Setenv("SALESOS_APP_PORT", "9000")
		os.Setenv("SALESOS_DATABASE_HOST", "testdb.local")
		os.Setenv("SALESOS_DATABASE_PORT", "5433")
		os.Setenv("SALESOS_DATABASE_PASSWORD", "testpass")
		os.Setenv("SALESOS_DATABASE_MAX_OPEN_CONNS", "50")
		os.Setenv("SALESOS_DATABASE_MAX_IDLE_CONNS", "10")
		os.Setenv("SALESOS_XERO_WEBHOOK_KEY", "hook-key")
		os.Setenv("SALESOS_XERO_INTEGRATION_IDENTITY", "club19")
		os.Setenv("SALESOS_CREDENTIAL_REFRESH_MARGIN", "5m")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "salesos-test", cfg.App.Name)
		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.Equal(t, "testpass", cfg.Database.Password)
		assert.Equal(t, 50, cfg.Database.MaxOpenConns)
		assert.Equal(t, 10, cfg.Database.MaxIdleConns)
		assert.Equal(t, "hook-key", cfg.Xero.WebhookKey)
		assert.Equal(t, "club19", cfg.Xero.IntegrationIdentity)
		assert.Equal(t, 5*time.Minute, cfg.Credential.RefreshMargin)
	})

	t.Run("decodes lists from comma separated env values", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("SALESOS_HTTP_CORS_ALLOW_ORIGINS", "https://ops.club19.example,https://admin.club19.example")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{"https://ops.club19.example", "https://admin.club19.example"}, cfg.HTTP.CORSAllowOrigins)
	})

	t.Run("reads an explicit config file", func(t *testing.T) {
		isolateEnv(t)
		path := filepath.Join(t.TempDir(), "salesos.toml")
		require.NoError(t, os.WriteFile(path, []byte(`
[xero]
integration_identity = "club19-file"

[credential]
refresh_interval = "3m"
`), 0o600))
		os.Setenv("SALESOS_CONFIG_FILE", path)
		os.Setenv("SALESOS_XERO_WEBHOOK_KEY", "from-env")

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "club19-file", cfg.Xero.IntegrationIdentity)
		assert.Equal(t, 3*time.Minute, cfg.Credential.RefreshInterval)
		assert.Equal(t, "from-env", cfg.Xero.WebhookKey)
	})

	t.Run("missing explicit config file is an error", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("SALESOS_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.toml"))

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("SALESOS_DATABASE_MAX_OPEN_CONNS", "10")
		os.Setenv("SALESOS_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})

	t.Run("validates MaxIdleConns cannot be negative", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("SALESOS_DATABASE_MAX_IDLE_CONNS", "-1")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns cannot be negative")
	})

	t.Run("archive requires a bucket", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("SALESOS_RECONCILIATION_ARCHIVE_ENABLED", "true")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "storage.bucket")

		os.Setenv("SALESOS_STORAGE_BUCKET", "deliveries")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Reconciliation.ArchiveEnabled)
	})

	t.Run("rejects a short token key", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("SALESOS_CREDENTIAL_TOKEN_KEY", "short")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "credential.token_key")
	})

	t.Run("reports every problem together", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("SALESOS_DATABASE_MAX_IDLE_CONNS", "-1")
		os.Setenv("SALESOS_TELEMETRY_SAMPLING_RATIO", "-0.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "max_idle_conns")
		assert.Contains(t, err.Error(), "sampling_ratio")
	})

	t.Run("rejects sampling ratio out of range", func(t *testing.T) {
		isolateEnv(t)
		os.Setenv("SALESOS_TELEMETRY_SAMPLING_RATIO", "1.5")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sampling_ratio")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func() {
		os.Setenv("SALESOS_APP_ENV", "production")
		os.Setenv("SALESOS_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		os.Setenv("SALESOS_DATABASE_PASSWORD", "secure-password")
		os.Setenv("SALESOS_DATABASE_SSLMODE", "require")
		os.Setenv("SALESOS_XERO_WEBHOOK_KEY", "webhook-signing-key")
	}

	tests := []struct {
		name    string
		unset   string
		set     map[string]string
		wantErr string
	}{
		{name: "requires jwt.secret", unset: "SALESOS_JWT_SECRET", wantErr: "jwt.secret is required in production"},
		{name: "requires long jwt.secret", set: map[string]string{"SALESOS_JWT_SECRET": "short-secret"}, wantErr: "at least 32 characters"},
		{name: "requires database.password", unset: "SALESOS_DATABASE_PASSWORD", wantErr: "database.password is required in production"},
		{name: "requires ssl", set: map[string]string{"SALESOS_DATABASE_SSLMODE": "disable"}, wantErr: "database.sslmode cannot be 'disable'"},
		{name: "requires webhook key", unset: "SALESOS_XERO_WEBHOOK_KEY", wantErr: "xero.webhook_key is required in production"},
		{name: "rejects full SQL logging", set: map[string]string{"SALESOS_TELEMETRY_DB_LOG_FULL_SQL": "true"}, wantErr: "db_log_full_sql"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			setValidProductionBase()
			if tt.unset != "" {
				os.Unsetenv(tt.unset)
			}
			for k, v := range tt.set {
				os.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		isolateEnv(t)
		setValidProductionBase()

		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.IsProduction())
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	t.Run("generates valid DSN", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "testuser",
			Password: "testpass",
			DBName:   "testdb",
			SSLMode:  "disable",
		}

		dsn := cfg.DSN()
		assert.Contains(t, dsn, "localhost:5432")
		assert.Contains(t, dsn, "testuser")
		assert.Contains(t, dsn, "testdb")
		assert.Contains(t, dsn, "sslmode=disable")
	})

	t.Run("escapes special characters in password", func(t *testing.T) {
		cfg := DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "user",
			Password: "pass@word#123",
			DBName:   "db",
			SSLMode:  "disable",
		}

		assert.Contains(t, cfg.DSN(), "pass%40word%23123")
	})
}
