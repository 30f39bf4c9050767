package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the runtime configuration of the site API.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Events   EventsConfig   `mapstructure:"events"`
	Contact  ContactConfig  `mapstructure:"contact"`
	Email    EmailConfig    `mapstructure:"email"`
	Limits   LimitsConfig   `mapstructure:"limits"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	LogLevel       string   `mapstructure:"log_level"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	MetricsPath    string   `mapstructure:"metrics_path"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"` // sqlite | postgres
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig holds the freshness/retention windows of the query caches.
type CacheConfig struct {
	Settings      WindowConfig `mapstructure:"settings"`
	Blog          WindowConfig `mapstructure:"blog"`
	PurgeSchedule string       `mapstructure:"purge_schedule"`
	// RewarmSettings re-runs the settings prefetch after every purge.
	RewarmSettings bool `mapstructure:"rewarm_settings"`
}

// WindowConfig pairs a freshness window with a retention window.
type WindowConfig struct {
	Fresh  time.Duration `mapstructure:"fresh"`
	Retain time.Duration `mapstructure:"retain"`
}

// AuthConfig configures admin login and JWTs.
type AuthConfig struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	Issuer            string        `mapstructure:"issuer"`
	Audience          string        `mapstructure:"audience"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	AdminEmail        string        `mapstructure:"admin_email"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
}

// StorageConfig points at the S3-compatible bucket used for images.
type StorageConfig struct {
	Bucket        string `mapstructure:"bucket"`
	Region        string `mapstructure:"region"`
	Endpoint      string `mapstructure:"endpoint"`
	PublicBaseURL string `mapstructure:"public_base_url"`
	MaxImageBytes int64  `mapstructure:"max_image_bytes"`
}

// EventsConfig selects the cross-replica invalidation bus.
type EventsConfig struct {
	Driver    string `mapstructure:"driver"` // none | nats | redis
	NATSURL   string `mapstructure:"nats_url"`
	RedisAddr string `mapstructure:"redis_addr"`
	Topic     string `mapstructure:"topic"`
}

// ContactConfig configures the contact form.
type ContactConfig struct {
	Recipient string `mapstructure:"recipient"`
}

// LimitsConfig sets per-IP request rates for abuse-prone endpoints.
type LimitsConfig struct {
	ContactPerSecond float64 `mapstructure:"contact_per_second"`
	LoginPerSecond   float64 `mapstructure:"login_per_second"`
	// ClientIPHeader names a header set by a trusted reverse proxy. Empty means
	// the connection's remote address identifies the client.
	ClientIPHeader string `mapstructure:"client_ip_header"`
}

// EmailConfig configures outbound SMTP.
type EmailConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// DevJWTSecret is the default signing secret. It is public, so the server only
// accepts it at debug log level.
const DevJWTSecret = "development-insecure-secret-change-me"

// InsecureSecret reports whether the JWT secret is empty or the public default.
func (a AuthConfig) InsecureSecret() bool {
	return a.JWTSecret == "" || a.JWTSecret == DevJWTSecret
}

// Load reads .env (if present), an optional config.yaml and PORTFOLIO_* env vars.
func Load(paths ...string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	setDefaults(v)

	v.SetEnvPrefix("PORTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8008)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.metrics_path", "/metrics")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "portfolio-site.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("cache.settings.fresh", "10m")
	v.SetDefault("cache.settings.retain", "1h")
	v.SetDefault("cache.blog.fresh", "5m")
	v.SetDefault("cache.blog.retain", "30m")
	v.SetDefault("cache.purge_schedule", "@every 1m")
	v.SetDefault("cache.rewarm_settings", false)

	v.SetDefault("auth.jwt_secret", DevJWTSecret)
	v.SetDefault("auth.issuer", "portfolio-site-api")
	v.SetDefault("auth.audience", "portfolio-site-admin")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.admin_email", "")
	v.SetDefault("auth.admin_password_hash", "")

	v.SetDefault("storage.bucket", "site-images")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.public_base_url", "")
	v.SetDefault("storage.max_image_bytes", 5*1024*1024)

	v.SetDefault("events.driver", "none")
	v.SetDefault("events.nats_url", "nats://127.0.0.1:4222")
	v.SetDefault("events.redis_addr", "127.0.0.1:6379")
	v.SetDefault("events.topic", "portfolio.cache")

	v.SetDefault("contact.recipient", "")
	v.SetDefault("limits.contact_per_second", 0.2)
	v.SetDefault("limits.login_per_second", 1)
	v.SetDefault("limits.client_ip_header", "")

	v.SetDefault("email.enabled", false)
	v.SetDefault("email.port", 587)
	v.SetDefault("email.timeout", "10s")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
