package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Ticketing TicketingConfig
	Broker    BrokerConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret        string
	TokenTTLMinutes  int
	ProvisionKeyHash string
	BcryptCost       int
}

// TicketingConfig tunes the ticket lifecycle per deployment. It replaces the
// process-wide mutable state the bot equivalents keep in globals.
type TicketingConfig struct {
	BufferTimeMinutes     int
	InactivePeriodMinutes int
	RoomMode              bool
	DispatchSurface       string
	SweepSchedule         string
	RoutingFile           string
}

// BrokerConfig holds the optional AMQP event bridge endpoint.
type BrokerConfig struct {
	URL      string
	Exchange string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "hackdesk"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:        getEnv("AUTH_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes:  getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 720),
			ProvisionKeyHash: os.Getenv("AUTH_PROVISION_KEY_HASH"),
			BcryptCost:       getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Ticketing: TicketingConfig{
			BufferTimeMinutes:     getEnvAsInt("TICKET_BUFFER_TIME_MINUTES", 5),
			InactivePeriodMinutes: getEnvAsInt("TICKET_INACTIVE_PERIOD_MINUTES", 10),
			RoomMode:              getEnvAsBool("TICKET_ROOM_MODE", true),
			DispatchSurface:       getEnv("TICKET_DISPATCH_SURFACE", "dispatch"),
			SweepSchedule:         getEnv("TICKET_SWEEP_SCHEDULE", "@every 30m"),
			RoutingFile:           getEnv("TICKET_ROUTING_FILE", "routing.yaml"),
		},
		Broker: BrokerConfig{
			URL:      os.Getenv("BROKER_AMQP_URL"),
			Exchange: getEnv("BROKER_AMQP_EXCHANGE", "hackdesk.tickets"),
		},
	}

	return cfg, nil
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

// BufferTime returns the GC prompt response window.
func (t TicketingConfig) BufferTime() time.Duration {
	return time.Duration(t.BufferTimeMinutes) * time.Minute
}

// InactivePeriod returns the idle window and recheck period.
func (t TicketingConfig) InactivePeriod() time.Duration {
	return time.Duration(t.InactivePeriodMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
