package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ErrMissingJWTSecret is returned by Load when AUTH_JWT_SECRET is unset.
var ErrMissingJWTSecret = errors.New("AUTH_JWT_SECRET is required")

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Audit    AuditConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig selects level and encoding (json or console).
type LoggerConfig struct {
	Level  string
	Format string
}

// AuthConfig defines token verification parameters.
type AuthConfig struct {
	JWTSecret       string
	CookieName      string
	TokenTTLMinutes int
}

// AuditConfig controls where auth decision events are shipped.
type AuditConfig struct {
	Stream       string
	StreamMaxLen int64
	QueueSize    int
}

var defaults = map[string]any{
	"app.name":                       "farmer-dashboard-api",
	"app.env":                        "development",
	"app.host":                       "0.0.0.0",
	"app.port":                       "8800",
	"app.version":                    "dev",
	"http.request_timeout_seconds":   30,
	"postgres.max_conns":             10,
	"postgres.min_conns":             2,
	"postgres.run_migrations":        true,
	"postgres.migrations_dir":        "migrations",
	"postgres.conn_max_idle_seconds": 30,
	"postgres.conn_max_life_seconds": 300,
	"redis.addr":                     "127.0.0.1:6379",
	"redis.db":                       "0",
	"log.level":                      "info",
	"log.format":                     "json",
	"auth.cookie_name":               "token",
	"auth.token_ttl_minutes":         60,
	"audit.stream":                   "auth:decisions",
	"audit.stream_maxlen":            10000,
	"audit.queue_size":               1024,
	"postgres.dsn":                   "",
	"redis.password":                 "",
	"auth.jwt_secret":                "",
}

// Load reads configuration from an optional .env file, an optional file named
// by CONFIG_FILE and the environment. Environment keys are the upper-snake form
// of the dotted keys, e.g. postgres.dsn is POSTGRES_DSN. A missing signing
// secret is fatal.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	redisCfg, err := getRedisConfig(v)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		App:      getAppConfig(v),
		Postgres: getPostgresConfig(v),
		Redis:    redisCfg,
		Logger: LoggerConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Auth: AuthConfig{
			JWTSecret:       v.GetString("auth.jwt_secret"),
			CookieName:      v.GetString("auth.cookie_name"),
			TokenTTLMinutes: v.GetInt("auth.token_ttl_minutes"),
		},
		Audit: AuditConfig{
			Stream:       v.GetString("audit.stream"),
			StreamMaxLen: v.GetInt64("audit.stream_maxlen"),
			QueueSize:    v.GetInt("audit.queue_size"),
		},
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, ErrMissingJWTSecret
	}
	return cfg, nil
}

func getAppConfig(v *viper.Viper) AppConfig {
	return AppConfig{
		Name:                  v.GetString("app.name"),
		Env:                   v.GetString("app.env"),
		Host:                  v.GetString("app.host"),
		Port:                  v.GetString("app.port"),
		Version:               v.GetString("app.version"),
		RequestTimeoutSeconds: v.GetInt("http.request_timeout_seconds"),
	}
}

func getPostgresConfig(v *viper.Viper) PostgresConfig {
	return PostgresConfig{
		DSN:            v.GetString("postgres.dsn"),
		MaxConns:       v.GetInt32("postgres.max_conns"),
		MinConns:       v.GetInt32("postgres.min_conns"),
		RunMigrations:  v.GetBool("postgres.run_migrations"),
		MigrationsDir:  v.GetString("postgres.migrations_dir"),
		ConnMaxIdleSec: v.GetInt32("postgres.conn_max_idle_seconds"),
		ConnMaxLifeSec: v.GetInt32("postgres.conn_max_life_seconds"),
	}
}

// getRedisConfig rejects a non-numeric REDIS_DB.
func getRedisConfig(v *viper.Viper) (RedisConfig, error) {
	db, err := strconv.Atoi(v.GetString("redis.db"))
	if err != nil {
		return RedisConfig{}, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	return RedisConfig{
		Addr:     v.GetString("redis.addr"),
		Password: v.GetString("redis.password"),
		DB:       db,
	}, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}
