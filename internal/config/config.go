package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config aggregates application settings sourced from environment variables.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Store    StoreConfig    `mapstructure:"store"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Export   ExportConfig   `mapstructure:"export"`
	Assets   AssetsConfig   `mapstructure:"assets"`
	Clamd    ClamdConfig    `mapstructure:"clamd"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
	// AllowedOrigins 为逗号分隔的 WebSocket Origin 白名单，空表示仅同源。
	AllowedOrigins string `mapstructure:"allowed_origins"`
}

// Origins splits AllowedOrigins into a list, dropping empty entries.
func (s ServerConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(s.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// StoreConfig 选择文档持久化后端。
type StoreConfig struct {
	Driver      string `mapstructure:"driver"`
	Key         string `mapstructure:"key"`
	SettingsKey string `mapstructure:"settings_key"`
	SQLitePath  string `mapstructure:"sqlite_path"`
}

// DatabaseConfig contains connection options for PostgreSQL.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig 包含 Redis 连接配置。
type RedisConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	DB   int    `mapstructure:"db"`
}

// MinIOConfig contains connection options for MinIO/S3-compatible storage.
// Storage is disabled when Endpoint is empty.
type MinIOConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UseSSL          bool   `mapstructure:"use_ssl"`
	Bucket          string `mapstructure:"bucket"`
	ArchiveExports  bool   `mapstructure:"archive_exports"`
}

// BrowserConfig 控制无头浏览器与预览缩放。
type BrowserConfig struct {
	Driver       string        `mapstructure:"driver"`
	Bin          string        `mapstructure:"bin"`
	PreviewScale float64       `mapstructure:"preview_scale"`
	SettleDelay  time.Duration `mapstructure:"settle_delay"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type ExportConfig struct {
	Supersample float64 `mapstructure:"supersample"`
	JPEGQuality int     `mapstructure:"jpeg_quality"`
}

type AssetsConfig struct {
	MaxWidth int   `mapstructure:"max_width"`
	MaxBytes int64 `mapstructure:"max_bytes"`
}

type ClamdConfig struct {
	Addr string `mapstructure:"addr"`
}

// NotifyConfig 选择通知的分发方式：进程内或 Redis Pub/Sub。
type NotifyConfig struct {
	Driver  string `mapstructure:"driver"`
	Channel string `mapstructure:"channel"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

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

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Enabled reports whether object storage is configured.
func (m MinIOConfig) Enabled() bool {
	return strings.TrimSpace(m.Endpoint) != ""
}

// Load reads configuration solely from environment variables (with optional defaults).
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if err := bindEnv(v); err != nil {
		return nil, fmt.Errorf("bind env: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Store.Driver = strings.ToLower(strings.TrimSpace(cfg.Store.Driver))
	cfg.Browser.Driver = strings.ToLower(strings.TrimSpace(cfg.Browser.Driver))
	cfg.Notify.Driver = strings.ToLower(strings.TrimSpace(cfg.Notify.Driver))

	if err := validate(cfg); err != nil {
		return nil, err
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

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", "127.0.0.1:8080")
	v.SetDefault("server.allowed_origins", "")
	v.SetDefault("store.driver", StoreSQLite)
	v.SetDefault("store.key", "cv-data")
	v.SetDefault("store.settings_key", "cv-settings")
	v.SetDefault("store.sqlite_path", "data/cvbuilder.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "cvbuilder")
	v.SetDefault("database.user", "cvbuilder")
	v.SetDefault("database.password", "cvbuilder")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("minio.endpoint", "")
	v.SetDefault("minio.use_ssl", false)
	v.SetDefault("minio.bucket", "cvbuilder")
	v.SetDefault("minio.archive_exports", false)
	v.SetDefault("browser.driver", "rod")
	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.preview_scale", 0.7)
	v.SetDefault("browser.settle_delay", 100*time.Millisecond)
	v.SetDefault("browser.timeout", 90*time.Second)
	v.SetDefault("export.supersample", 2.0)
	v.SetDefault("export.jpeg_quality", 98)
	v.SetDefault("assets.max_width", 1200)
	v.SetDefault("assets.max_bytes", 10<<20)
	v.SetDefault("clamd.addr", "")
	v.SetDefault("notify.driver", "local")
	v.SetDefault("notify.channel", "cvbuilder:notices")
	v.SetDefault("log.level", "info")
}

func bindEnv(v *viper.Viper) error {
	mappings := map[string]string{
		"server.addr":             "SERVER_ADDR",
		"server.allowed_origins":  "WS_ALLOWED_ORIGINS",
		"store.driver":            "STORE_DRIVER",
		"store.key":               "STORE_KEY",
		"store.settings_key":      "STORE_SETTINGS_KEY",
		"store.sqlite_path":       "SQLITE_PATH",
		"database.host":           "DATABASE_HOST",
		"database.port":           "DATABASE_PORT",
		"database.name":           "POSTGRES_DB",
		"database.user":           "POSTGRES_USER",
		"database.password":       "POSTGRES_PASSWORD",
		"database.sslmode":        "DATABASE_SSLMODE",
		"redis.host":              "REDIS_HOST",
		"redis.port":              "REDIS_PORT",
		"redis.db":                "REDIS_DB",
		"minio.endpoint":          "MINIO_ENDPOINT",
		"minio.access_key_id":     "MINIO_ACCESS_KEY_ID",
		"minio.secret_access_key": "MINIO_SECRET_ACCESS_KEY",
		"minio.use_ssl":           "MINIO_USE_SSL",
		"minio.bucket":            "MINIO_BUCKET",
		"minio.archive_exports":   "MINIO_ARCHIVE_EXPORTS",
		"browser.driver":          "BROWSER_DRIVER",
		"browser.bin":             "CHROME_PATH",
		"browser.preview_scale":   "PREVIEW_SCALE",
		"browser.settle_delay":    "EXPORT_SETTLE_DELAY",
		"browser.timeout":         "BROWSER_TIMEOUT",
		"export.supersample":      "EXPORT_SUPERSAMPLE",
		"export.jpeg_quality":     "EXPORT_JPEG_QUALITY",
		"assets.max_width":        "ASSET_MAX_WIDTH",
		"assets.max_bytes":        "ASSET_MAX_BYTES",
		"clamd.addr":              "CLAMD_ADDR",
		"notify.driver":           "NOTIFY_DRIVER",
		"notify.channel":          "NOTIFY_CHANNEL",
		"log.level":               "LOG_LEVEL",
	}

	for key, env := range mappings {
		if err := v.BindEnv(key, env); err != nil {
			return fmt.Errorf("bind %s to %s: %w", key, env, err)
		}
	}

	return nil
}

func validate(cfg Config) error {
	if cfg.Server.Addr == "" {
		return errors.New("server addr is required")
	}
	switch cfg.Store.Driver {
	case StoreSQLite:
		if cfg.Store.SQLitePath == "" {
			return errors.New("sqlite path is required")
		}
	case StorePostgres:
		if cfg.Database.Host == "" {
			return errors.New("database host is required")
		}
		if cfg.Database.Port <= 0 {
			return errors.New("database port must be positive")
		}
		if cfg.Database.Name == "" {
			return errors.New("database name is required")
		}
		if cfg.Database.User == "" {
			return errors.New("database user is required")
		}
	case StoreRedis:
		if cfg.Redis.Host == "" {
			return errors.New("redis host is required")
		}
		if cfg.Redis.Port <= 0 {
			return errors.New("redis port must be positive")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if cfg.Store.Key == "" || cfg.Store.SettingsKey == "" {
		return errors.New("store keys are required")
	}
	if cfg.MinIO.Enabled() {
		if cfg.MinIO.AccessKeyID == "" {
			return errors.New("minio access key id is required")
		}
		if cfg.MinIO.SecretAccessKey == "" {
			return errors.New("minio secret access key is required")
		}
		if cfg.MinIO.Bucket == "" {
			return errors.New("minio bucket is required")
		}
	}
	switch cfg.Browser.Driver {
	case "rod", "chromedp":
	default:
		return fmt.Errorf("unknown browser driver %q", cfg.Browser.Driver)
	}
	if cfg.Browser.PreviewScale <= 0 || cfg.Browser.PreviewScale > 1 {
		return errors.New("preview scale must be in (0, 1]")
	}
	if cfg.Browser.SettleDelay < 0 {
		return errors.New("settle delay must not be negative")
	}
	if cfg.Export.Supersample <= 0 {
		return errors.New("export supersample must be positive")
	}
	if cfg.Export.JPEGQuality < 1 || cfg.Export.JPEGQuality > 100 {
		return errors.New("export jpeg quality must be between 1 and 100")
	}
	switch cfg.Notify.Driver {
	case "local":
	case "redis":
		if cfg.Redis.Host == "" || cfg.Redis.Port <= 0 {
			return errors.New("redis notify requires redis host and port")
		}
	default:
		return fmt.Errorf("unknown notify driver %q", cfg.Notify.Driver)
	}
	if cfg.Assets.MaxWidth <= 0 {
		return errors.New("asset max width must be positive")
	}
	if _, err := parseLevel(cfg.Log.Level); err != nil {
		return err
	}
	return nil
}

// SlogLevel 返回配置的日志级别，未知值按 info 处理。
func (l LogConfig) SlogLevel() slog.Level {
	level, err := parseLevel(l.Level)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if strings.TrimSpace(s) == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
