package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config aggregates application settings that may be sourced from files or environment variables.
type Config struct {
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Theme    ThemeConfig    `mapstructure:"theme"`
	Export   ExportConfig   `mapstructure:"export"`
	Worker   WorkerConfig   `mapstructure:"worker"`
}

// APIConfig contains HTTP server settings.
type APIConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MaxPortfolios  int      `mapstructure:"max_portfolios"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
	LogLevel string `mapstructure:"log_level"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// Addr 返回 host:port。
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
type MinIOConfig struct {
	Endpoint         string `mapstructure:"endpoint"`
	AccessKeyID      string `mapstructure:"access_key_id"`
	SecretAccessKey  string `mapstructure:"secret_access_key"`
	UseSSL           bool   `mapstructure:"use_ssl"`
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	// PublicEndpoint 是浏览器可访问的地址，用于生成预签名链接。
	PublicEndpoint   string `mapstructure:"public_endpoint"`
	BucketLookup     string `mapstructure:"bucket_lookup"`
	AutoCreateBucket bool   `mapstructure:"auto_create_bucket"`
}

// AuthConfig 指向外部身份服务签发令牌所用的公钥。
type AuthConfig struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
	Issuer        string `mapstructure:"issuer"`
}

// ThemeConfig 控制主题目录。CatalogPath 为空时只使用内置主题。
type ThemeConfig struct {
	CatalogPath string `mapstructure:"catalog_path"`
	DefaultID   string `mapstructure:"default_id"`
}

// ExportConfig 控制导出任务的限流与下载链接有效期。
type ExportConfig struct {
	RateLimitPerHour int           `mapstructure:"rate_limit_per_hour"`
	PresignTTL       time.Duration `mapstructure:"presign_ttl"`
	MaxRetry         int           `mapstructure:"max_retry"`
}

// WorkerConfig contains asynq server settings.
type WorkerConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	BrowserBin  string `mapstructure:"browser_bin"`
}

// DSN builds a lib/pq compatible connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

// Load reads configuration from environment variables (with optional defaults).
// A .env file in the working directory, or the file named by PHFOLIO_ENV_FILE, is loaded first;
// variables already set in the process environment win.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	for _, s := range settings {
		if s.def != nil {
			v.SetDefault(s.key, s.def)
		}
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, fmt.Errorf("bind %s to %s: %w", s.key, s.env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.API.AllowedOrigins = splitList(cfg.API.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad wraps Load and panics on failure.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

func loadDotEnv() error {
	path := os.Getenv("PHFOLIO_ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// setting 描述一个配置项：viper key、对应的环境变量与默认值（nil 表示无默认值）。
type setting struct {
	key string
	env string
	def any
}

var settings = []setting{
	{"api.port", "API_PORT", 8080},
	{"api.allowed_origins", "API_ALLOWED_ORIGINS", nil},
	{"api.max_portfolios", "API_MAX_PORTFOLIOS", 20},

	{"database.host", "DATABASE_HOST", "localhost"},
	{"database.port", "DATABASE_PORT", 5432},
	{"database.name", "POSTGRES_DB", "phfolio"},
	{"database.user", "POSTGRES_USER", "phfolio"},
	{"database.password", "POSTGRES_PASSWORD", "phfolio"},
	{"database.sslmode", "DATABASE_SSLMODE", "disable"},
	{"database.log_level", "DATABASE_LOG_LEVEL", "warn"},

	{"redis.host", "REDIS_HOST", "localhost"},
	{"redis.port", "REDIS_PORT", 6379},

	{"minio.endpoint", "MINIO_ENDPOINT", "localhost:9000"},
	{"minio.access_key_id", "MINIO_ACCESS_KEY_ID", nil},
	{"minio.secret_access_key", "MINIO_SECRET_ACCESS_KEY", nil},
	{"minio.use_ssl", "MINIO_USE_SSL", false},
	{"minio.bucket", "MINIO_BUCKET", "portfolios"},
	{"minio.region", "MINIO_REGION", nil},
	{"minio.public_endpoint", "MINIO_PUBLIC_ENDPOINT", "http://localhost:9000"},
	{"minio.bucket_lookup", "MINIO_BUCKET_LOOKUP", "auto"},
	{"minio.auto_create_bucket", "MINIO_AUTO_CREATE_BUCKET", true},

	{"auth.public_key_path", "JWT_PUBLIC_KEY_PATH", "keys/public.pem"},
	{"auth.issuer", "JWT_ISSUER", nil},

	{"theme.catalog_path", "THEME_CATALOG_PATH", nil},
	{"theme.default_id", "THEME_DEFAULT_ID", "default"},

	{"export.rate_limit_per_hour", "EXPORT_RATE_LIMIT_PER_HOUR", 10},
	{"export.presign_ttl", "EXPORT_PRESIGN_TTL", 5 * time.Minute},
	{"export.max_retry", "EXPORT_MAX_RETRY", 5},

	{"worker.concurrency", "WORKER_CONCURRENCY", 10},
	{"worker.browser_bin", "WORKER_BROWSER_BIN", nil},
}

// splitList 兼容环境变量中以逗号分隔的列表。
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate 校验启动所需的配置项，错误按 "section.key" 汇总。
func (c Config) Validate() error {
	return validation.Errors{
		"api.port":                   validation.Validate(c.API.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		"api.max_portfolios":         validation.Validate(c.API.MaxPortfolios, validation.Min(0)),
		"database.host":              validation.Validate(c.Database.Host, validation.Required),
		"database.port":              validation.Validate(c.Database.Port, validation.Required, validation.Min(1)),
		"database.name":              validation.Validate(c.Database.Name, validation.Required),
		"database.user":              validation.Validate(c.Database.User, validation.Required),
		"database.password":          validation.Validate(c.Database.Password, validation.Required),
		"database.sslmode":           validation.Validate(c.Database.SSLMode, validation.Required),
		"redis.host":                 validation.Validate(c.Redis.Host, validation.Required),
		"redis.port":                 validation.Validate(c.Redis.Port, validation.Required, validation.Min(1)),
		"minio.endpoint":             validation.Validate(c.MinIO.Endpoint, validation.Required),
		"minio.access_key_id":        validation.Validate(c.MinIO.AccessKeyID, validation.Required),
		"minio.secret_access_key":    validation.Validate(c.MinIO.SecretAccessKey, validation.Required),
		"minio.bucket":               validation.Validate(c.MinIO.Bucket, validation.Required),
		"minio.public_endpoint":      validation.Validate(c.MinIO.PublicEndpoint, validation.Required),
		"auth.public_key_path":       validation.Validate(c.Auth.PublicKeyPath, validation.Required),
		"theme.default_id":           validation.Validate(c.Theme.DefaultID, validation.Required),
		"export.rate_limit_per_hour": validation.Validate(c.Export.RateLimitPerHour, validation.Min(0)),
		"export.presign_ttl":         validation.Validate(c.Export.PresignTTL, validation.Required, validation.Min(time.Second)),
		"worker.concurrency":         validation.Validate(c.Worker.Concurrency, validation.Required, validation.Min(1)),
	}.Filter()
}
