package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PHFOLIO_ENV_FILE", "")
	t.Setenv("MINIO_ACCESS_KEY_ID", "minio")
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "minio-secret")
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, "portfolios", cfg.MinIO.Bucket)
	assert.Equal(t, "default", cfg.Theme.DefaultID)
	assert.Equal(t, 10, cfg.Export.RateLimitPerHour)
	assert.Equal(t, 5*time.Minute, cfg.Export.PresignTTL)
	assert.Equal(t, 10, cfg.Worker.Concurrency)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Empty(t, cfg.API.AllowedOrigins)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)
	t.Setenv("API_PORT", "9090")
	t.Setenv("API_ALLOWED_ORIGINS", "https://a.dev, https://b.dev")
	t.Setenv("THEME_CATALOG_PATH", "/etc/phfolio/themes.yaml")
	t.Setenv("EXPORT_PRESIGN_TTL", "15m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.API.Port)
	assert.Equal(t, []string{"https://a.dev", "https://b.dev"}, cfg.API.AllowedOrigins)
	assert.Equal(t, "/etc/phfolio/themes.yaml", cfg.Theme.CatalogPath)
	assert.Equal(t, 15*time.Minute, cfg.Export.PresignTTL)
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("PHFOLIO_ENV_FILE", "")
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("MINIO_ACCESS_KEY_ID=from-file\nMINIO_SECRET_ACCESS_KEY=secret\nWORKER_CONCURRENCY=3\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("MINIO_ACCESS_KEY_ID")
		os.Unsetenv("MINIO_SECRET_ACCESS_KEY")
		os.Unsetenv("WORKER_CONCURRENCY")
	})

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.MinIO.AccessKeyID)
	assert.Equal(t, 3, cfg.Worker.Concurrency)
}

func TestLoadMissingEnvFile(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)
	t.Setenv("PHFOLIO_ENV_FILE", "does-not-exist.env")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	setRequiredEnv(t)
	t.Setenv("MINIO_SECRET_ACCESS_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio.secret_access_key")

	t.Setenv("MINIO_SECRET_ACCESS_KEY", "x")
	t.Setenv("WORKER_CONCURRENCY", "0")
	_, err = Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "worker.concurrency")
}

func TestValidateCollectsAllErrors(t *testing.T) {
	var cfg Config
	err := cfg.Validate()
	require.Error(t, err)
	for _, key := range []string{"api.port", "database.host", "redis.port", "minio.bucket", "theme.default_id", "export.presign_ttl"} {
		assert.Contains(t, err.Error(), key)
	}
	assert.NotContains(t, err.Error(), "export.rate_limit_per_hour")
}
