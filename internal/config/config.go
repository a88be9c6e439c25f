package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Bridge   BridgeConfig
	Social   SocialConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Environment    string // "development", "production", "test"
	Debug          bool
	MigrationsPath string
}

type DatabaseConfig struct {
	// URL is the connection descriptor. Its scheme selects the transport:
	// postgres:// and postgresql:// connect directly, http:// and https://
	// go through the bridge.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxConns     int
	MinConns     int
	QueryTimeout time.Duration
	BridgeToken  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type BridgeConfig struct {
	Host          string
	Port          int
	Token         string
	RateLimit     float64
	RateBurst     int
	TxTimeout     time.Duration
	RunMigrations bool
}

type SocialConfig struct {
	FriendRequestRateLimit int64
}

// DSN returns the configured descriptor, falling back to one assembled from
// the individual DB_* settings.
func (d DatabaseConfig) DSN() string {
	if strings.TrimSpace(d.URL) != "" {
		return d.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (b BridgeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			Environment:    getEnv("APP_ENV", "development"),
			Debug:          getEnvBool("DEBUG", false),
			MigrationsPath: getEnvNonEmpty("MIGRATIONS_PATH", "migrations"),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "playhub"),
			Password:     getEnv("DB_PASSWORD", "playhub"),
			DBName:       getEnv("DB_NAME", "playhub"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxConns:     getEnvInt("DB_MAX_CONNS", 25),
			MinConns:     getEnvInt("DB_MIN_CONNS", 5),
			QueryTimeout: getEnvDuration("DB_QUERY_TIMEOUT", 10*time.Second),
			BridgeToken:  getEnv("BRIDGE_TOKEN", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Bridge: BridgeConfig{
			Host:          getEnv("BRIDGE_HOST", "0.0.0.0"),
			Port:          getEnvInt("BRIDGE_PORT", 8090),
			Token:         getEnv("BRIDGE_TOKEN", ""),
			RateLimit:     getEnvFloat64("BRIDGE_RATE_LIMIT", 0),
			RateBurst:     getEnvInt("BRIDGE_RATE_BURST", 50),
			TxTimeout:     getEnvDuration("BRIDGE_TX_TIMEOUT", 30*time.Second),
			RunMigrations: getEnvBool("BRIDGE_RUN_MIGRATIONS", true),
		},
		Social: SocialConfig{
			FriendRequestRateLimit: int64(getEnvInt("FRIEND_REQUEST_RATE_LIMIT", 30)),
		},
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvNonEmpty(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		if strings.TrimSpace(value) != "" {
			return value
		}
		return defaultValue
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
