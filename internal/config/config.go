package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application settings.
type Config struct {
	Environment string `mapstructure:"environment"`
	Server      ServerConfig
	Log         LogConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	OTP         OTPConfig
	SMS         SMSConfig
	Email       EmailConfig
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Locks       LocksConfig
	CORS        CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`

	// TrustedProxies is passed to gin so c.ClientIP() honours X-Forwarded-For
	// only from these addresses.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// LogConfig holds zap logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	// MigrationsPath is a golang-migrate source URL, e.g. file://migrations.
	MigrationsPath string `mapstructure:"migrations_path"`
}

// RedisConfig holds Redis connection settings. Modes: single, sentinel, cluster.
type RedisConfig struct {
	Mode       string   `mapstructure:"mode"`
	Addrs      []string `mapstructure:"addrs"`
	Addr       string   `mapstructure:"addr"`
	Password   string   `mapstructure:"password"`
	DB         int      `mapstructure:"db"`
	MasterName string   `mapstructure:"master_name"`
	MaxRetries int      `mapstructure:"max_retries"`
}

// Enabled reports whether any Redis address is configured.
func (r RedisConfig) Enabled() bool {
	return len(r.Addrs) > 0 || r.Addr != ""
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret          string        `mapstructure:"secret"`
	Issuer          string        `mapstructure:"issuer"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	VerificationTTL time.Duration `mapstructure:"verification_token_ttl"`
}

// OTPConfig holds one-time code settings.
type OTPConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

// SMSConfig holds the SMS gateway settings. With DryRun messages are logged
// with digits masked instead of sent.
type SMSConfig struct {
	APIURL  string        `mapstructure:"api_url"`
	APIKey  string        `mapstructure:"api_key"`
	Sender  string        `mapstructure:"sender"`
	DryRun  bool          `mapstructure:"dry_run"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// EmailConfig holds Resend settings for transactional email.
type EmailConfig struct {
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
	DashboardURL string `mapstructure:"dashboard_url"`
}

// RateLimitConfig selects the counter store. Backend "redis" is required when
// more than one instance serves traffic.
type RateLimitConfig struct {
	Backend       string        `mapstructure:"backend"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// LocksConfig holds vehicle lock settings.
type LocksConfig struct {
	Backend    string        `mapstructure:"backend"`
	DefaultTTL time.Duration `mapstructure:"default_ttl"`
	MaxTTL     time.Duration `mapstructure:"max_ttl"`
}

// CORSConfig lists dashboard origins.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// PostgresConnectionString builds a libpq-style DSN.
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

var envBindings = map[string]string{
	"environment": "APP_ENV",

	"server.port": "SERVER_PORT",

	"log.level":  "LOG_LEVEL",
	"log.format": "LOG_FORMAT",

	"database.host":     "DATABASE_HOST",
	"database.port":     "DATABASE_PORT",
	"database.user":     "DATABASE_USER",
	"database.password": "DATABASE_PASSWORD",
	"database.dbname":   "DATABASE_DBNAME",
	"database.sslmode":  "DATABASE_SSLMODE",

	"redis.mode":        "REDIS_MODE",
	"redis.addrs":       "REDIS_ADDRS",
	"redis.addr":        "REDIS_ADDR",
	"redis.password":    "REDIS_PASSWORD",
	"redis.db":          "REDIS_DB",
	"redis.master_name": "REDIS_MASTER_NAME",

	"jwt.secret": "JWT_SECRET",

	"sms.api_url": "SMS_API_URL",
	"sms.api_key": "SMS_API_KEY",
	"sms.sender":  "SMS_SENDER",
	"sms.dry_run": "SMS_DRY_RUN",

	"email.resend_api_key": "RESEND_API_KEY",
	"email.from":           "EMAIL_FROM",

	"rate_limit.backend": "RATE_LIMIT_BACKEND",
	"locks.backend":      "LOCKS_BACKEND",
}

func setDefaults(vip *viper.Viper) {
	vip.SetDefault("environment", "development")
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("server.read_timeout", 15)
	vip.SetDefault("server.write_timeout", 15)
	vip.SetDefault("log.level", "info")
	vip.SetDefault("log.format", "console")
	vip.SetDefault("database.port", "5432")
	vip.SetDefault("database.sslmode", "require")
	vip.SetDefault("database.migrations_path", "file://migrations")
	vip.SetDefault("redis.mode", "single")
	vip.SetDefault("jwt.issuer", "dealership-api")
	vip.SetDefault("jwt.access_token_ttl", 12*time.Hour)
	vip.SetDefault("jwt.verification_token_ttl", 15*time.Minute)
	vip.SetDefault("otp.ttl", 15*time.Minute)
	vip.SetDefault("sms.timeout", 10*time.Second)
	vip.SetDefault("rate_limit.backend", "memory")
	vip.SetDefault("rate_limit.sweep_interval", 5*time.Minute)
	vip.SetDefault("locks.backend", "memory")
	vip.SetDefault("locks.default_ttl", 2*time.Minute)
	vip.SetDefault("locks.max_ttl", 10*time.Minute)
}

// Load reads configuration from configPath (optional) and the environment.
// Explicit env bindings win over the file.
func Load(configPath string) (*Config, error) {
	vip := viper.New()
	setDefaults(vip)

	for key, env := range envBindings {
		if err := vip.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configPath != "" {
		vip.SetConfigFile(configPath)
		if err := vip.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
		}
	}

	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// REDIS_ADDRS arrives as one comma separated string.
	if len(cfg.Redis.Addrs) == 1 && strings.Contains(cfg.Redis.Addrs[0], ",") {
		cfg.Redis.Addrs = strings.Split(cfg.Redis.Addrs[0], ",")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required settings and backend choices.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required (check JWT_SECRET env var)")
	}
	if c.IsProduction() && len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 characters in production")
	}
	if c.Database.Host == "" || c.Database.DBName == "" || c.Database.User == "" {
		return fmt.Errorf("database configuration (host, dbname, user) is incomplete (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if c.IsProduction() && c.Database.Password == "" {
		return fmt.Errorf("database password is required in production (check DATABASE_PASSWORD env var)")
	}

	if c.IsProduction() && !c.SMS.DryRun && c.SMS.APIKey == "" {
		return fmt.Errorf("sms api key is required in production unless sms.dry_run is set (check SMS_API_KEY env var)")
	}

	for name, backend := range map[string]string{"rate_limit.backend": c.RateLimit.Backend, "locks.backend": c.Locks.Backend} {
		switch backend {
		case "memory":
		case "redis":
			if !c.Redis.Enabled() {
				return fmt.Errorf("%s is redis but no redis address is configured", name)
			}
		default:
			return fmt.Errorf("unsupported %s: %q", name, backend)
		}
	}

	if c.Locks.DefaultTTL <= 0 || c.Locks.MaxTTL < c.Locks.DefaultTTL {
		return fmt.Errorf("locks.default_ttl must be positive and not exceed locks.max_ttl")
	}
	return nil
}
