package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is used when no secret is configured. It is refused in
// production by Validate.
const DefaultJWTSecret = "nextgenrdp-insecure-development-secret"

const (
	EnvProduction  = "production"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type HTTPConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	Driver string
}

type PostgresConfig struct {
	DSN             string
	MaxOpen         int
	MaxIdle         int
	ConnMaxLifetime time.Duration
	AutoMigrate     bool
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SecurityConfig struct {
	JWTSecret         string
	SessionTTL        time.Duration
	RememberMeTTL     time.Duration
	LockoutThreshold  int
	Revocation        bool
	LockoutReportSpec string
}

type AppConfig struct {
	Environment      string
	HTTP             HTTPConfig
	Database         DatabaseConfig
	Postgres         PostgresConfig
	SQLite           SQLiteConfig
	Redis            RedisConfig
	Security         SecurityConfig
	AllowCORSOrigins []string
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

func (c *AppConfig) UsingFallbackSecret() bool {
	return c.Security.JWTSecret == DefaultJWTSecret
}

func (c *AppConfig) Validate() error {
	var errs []error
	if c.Security.JWTSecret == "" {
		errs = append(errs, errors.New("security.jwtsecret is empty"))
	}
	if c.IsProduction() && c.UsingFallbackSecret() {
		errs = append(errs, errors.New("security.jwtsecret must be set in production"))
	}
	if c.Security.SessionTTL <= 0 || c.Security.RememberMeTTL <= 0 {
		errs = append(errs, errors.New("session ttls must be positive"))
	}
	if c.Security.LockoutThreshold < 1 {
		errs = append(errs, fmt.Errorf("security.lockoutthreshold must be >= 1, got %d", c.Security.LockoutThreshold))
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	return errors.Join(errs...)
}

// Load reads defaults, an optional config.yaml, an optional .env file and the
// NEXTGENRDP_ prefixed environment, in increasing precedence.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	return load(v)
}

func load(v *viper.Viper) (*AppConfig, error) {
	v.SetEnvPrefix("NEXTGENRDP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.readtimeout", "10s")
	v.SetDefault("http.writetimeout", "15s")
	v.SetDefault("http.idletimeout", "60s")

	v.SetDefault("database.driver", DriverPostgres)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.maxopen", 30)
	v.SetDefault("postgres.maxidle", 10)
	v.SetDefault("postgres.connmaxlifetime", "30m")
	v.SetDefault("postgres.automigrate", false)

	v.SetDefault("sqlite.path", "file::memory:?cache=shared")

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("security.jwtsecret", DefaultJWTSecret)
	v.SetDefault("security.sessionttl", "24h")
	v.SetDefault("security.remembermettl", "720h") // 30 days
	v.SetDefault("security.lockoutthreshold", 5)
	v.SetDefault("security.revocation", false)
	v.SetDefault("security.lockoutreportspec", "0 0 * * * *")

	v.SetDefault("allowcorsorigins", []string{})
}
