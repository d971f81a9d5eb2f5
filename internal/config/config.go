package config

import (
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type Config struct {
	// Storage
	StoreDriver string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Session tokens
	TokenSecret string
	TokenTTL    time.Duration
	TokenLeeway time.Duration

	// OAuth providers
	FacebookSecret    string
	FacebookGraphURL  string
	GoogleSecret      string
	GoogleTokenURL    string
	GoogleUserInfoURL string
	ProviderTimeout   time.Duration

	// Server
	Port        string
	CORSOrigins string
	SentryDSN   string
	AppEnv      string
}

var (
	ErrMissingTokenSecret = errors.New("TOKEN_SECRET environment variable is required")
	ErrMissingDBPassword  = errors.New("DB_PASSWORD environment variable is required")
	ErrUnknownStoreDriver = errors.New("STORE_DRIVER must be postgres or memory")
)

func Load() *Config {
	// .env is optional; real deployments inject the environment directly.
	if err := godotenv.Load(); err == nil {
		slog.Info("loaded .env file")
	}

	return &Config{
		StoreDriver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		DBHost:      getEnv("DB_HOST", "localhost"),
		DBPort:      getEnv("DB_PORT", "5432"),
		DBUser:      getEnv("DB_USER", "postgres"),
		DBPassword:  getEnv("DB_PASSWORD", ""),
		DBName:      getEnv("DB_NAME", "identity_db"),
		DBSSLMode:   getEnv("DB_SSLMODE", "disable"),

		TokenSecret: getEnv("TOKEN_SECRET", ""),
		TokenTTL:    parseDuration(getEnv("TOKEN_TTL", "336h"), 14*24*time.Hour),
		TokenLeeway: parseDuration(getEnv("TOKEN_LEEWAY", "30s"), 30*time.Second),

		FacebookSecret:    getEnv("FACEBOOK_SECRET", ""),
		FacebookGraphURL:  getEnv("FACEBOOK_GRAPH_URL", "https://graph.facebook.com/v2.5"),
		GoogleSecret:      getEnv("GOOGLE_SECRET", ""),
		GoogleTokenURL:    getEnv("GOOGLE_TOKEN_URL", "https://accounts.google.com/o/oauth2/token"),
		GoogleUserInfoURL: getEnv("GOOGLE_USERINFO_URL", "https://openidconnect.googleapis.com/v1/userinfo"),
		ProviderTimeout:   parseDuration(getEnv("PROVIDER_TIMEOUT", "10s"), 10*time.Second),

		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		SentryDSN:   getEnv("SENTRY_DSN", ""),
		AppEnv:      getEnv("APP_ENV", "development"),
	}
}

// Validate reports configuration that must stop the process at startup.
func (c *Config) Validate() error {
	var errs []error
	if c.TokenSecret == "" {
		errs = append(errs, ErrMissingTokenSecret)
	}
	switch c.StoreDriver {
	case StoreDriverPostgres:
		if c.DBPassword == "" {
			errs = append(errs, ErrMissingDBPassword)
		}
	case StoreDriverMemory:
	default:
		errs = append(errs, ErrUnknownStoreDriver)
	}
	return errors.Join(errs...)
}

func (c *Config) DSN() string {
	return "host=" + c.DBHost +
		" user=" + c.DBUser +
		" password=" + c.DBPassword +
		" dbname=" + c.DBName +
		" port=" + c.DBPort +
		" sslmode=" + c.DBSSLMode +
		" TimeZone=UTC"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
