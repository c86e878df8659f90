package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// minSecretLength is the smallest HS256 key accepted for either signing secret.
const minSecretLength = 32

type Config struct {
	AppEnv                   string
	LogLevel                 slog.Level
	ApiServicePort           string
	ApiGrpcPort              string
	PostgreSQLHost           string
	PostgreSQLPort           int64
	PostgreSQLUser           string
	PostgreSQLPassword       string
	PostgreSQLDatabase       string
	JWTAccessSecret          string
	JWTRefreshSecret         string
	JWTIssuer                string
	AccessTokenExpiration    int64 // Access token TTL in seconds
	RefreshTokenExpiration   int64 // Refresh token TTL in seconds
	RevokeFamilyOnContention bool
	RedisHost                string
	RedisPort                int64
	RedisPassword            string
	RedisDB                  int64
	TokenCleanupInterval     time.Duration
	TokenRetention           time.Duration
	AuthRateLimit            int64 // Requests per window per client IP on auth routes
	AuthRateWindow           time.Duration
	CORSAllowedOrigins       []string
}

// LoadDotEnv reads variables from the given .env files (".env" when none are
// given) without overriding variables already set in the environment
func LoadDotEnv(filenames ...string) error {
	return godotenv.Load(filenames...)
}

func LoadConfig() *Config {
	return &Config{
		AppEnv:                   getEnv("APP_ENV", "development"),                        // Default development
		LogLevel:                 getLogLevel(),                                           // Default INFO
		ApiServicePort:           getEnv("API_SERVICE_PORT", "8080"),                      // Default 8080
		ApiGrpcPort:              getEnv("API_GRPC_PORT", "50052"),                        // Default 50052
		PostgreSQLHost:           getEnv("POSTGRESQL_HOST", "db"),                         // Default db
		PostgreSQLPort:           getEnvAsInt64("POSTGRESQL_PORT", 5432),                  // Default 5432
		PostgreSQLUser:           getEnv("POSTGRESQL_USER", "sessionkeeper_user"),         // Default user
		PostgreSQLPassword:       getEnv("POSTGRESQL_PASSWORD", "sessionkeeper_password"), // Default password
		PostgreSQLDatabase:       getEnv("POSTGRESQL_DATABASE", "sessionkeeper_db"),       // Default database name
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),                         // Required, no fallback
		JWTRefreshSecret:         getEnv("JWT_REFRESH_SECRET", ""),                        // Required, no fallback
		JWTIssuer:                getEnv("JWT_ISSUER", "sessionkeeper"),                   // Default sessionkeeper
		AccessTokenExpiration:    getEnvAsInt64("ACCESS_TOKEN_EXPIRATION", 900),           // Default 15 minutes
		RefreshTokenExpiration:   getEnvAsInt64("REFRESH_TOKEN_EXPIRATION", 604800),       // Default 7 days
		RevokeFamilyOnContention: getEnvAsBool("REVOKE_FAMILY_ON_CONTENTION", false),      // Default false
		RedisHost:                getEnv("REDIS_HOST", "redis"),                           // Default redis
		RedisPort:                getEnvAsInt64("REDIS_PORT", 6379),                       // Default 6379
		RedisPassword:            getEnv("REDIS_PASSWORD", ""),                            // Default empty
		RedisDB:                  getEnvAsInt64("REDIS_DATABASE", 0),                      // Default 0
		TokenCleanupInterval:     getEnvAsDuration("TOKEN_CLEANUP_INTERVAL", time.Hour),   // Default 1 hour
		TokenRetention:           getEnvAsDuration("TOKEN_RETENTION", 72*time.Hour),       // Default 3 days past expiry
		AuthRateLimit:            getEnvAsInt64("AUTH_RATE_LIMIT", 20),                    // Default 20 requests
		AuthRateWindow:           getEnvAsDuration("AUTH_RATE_WINDOW", time.Minute),       // Default 1 minute
		CORSAllowedOrigins:       getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),     // Default any origin
	}
}

// Validate reports configuration that must stop the process at startup.
// Signing secrets have no default: a missing secret is an error, never a guessable literal.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTAccessSecret == "" {
		errs = append(errs, ErrMissingAccessSecret)
	} else if len(c.JWTAccessSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_ACCESS_SECRET: %w", ErrWeakSecret))
	}

	if c.JWTRefreshSecret == "" {
		errs = append(errs, ErrMissingRefreshSecret)
	} else if len(c.JWTRefreshSecret) < minSecretLength {
		errs = append(errs, fmt.Errorf("JWT_REFRESH_SECRET: %w", ErrWeakSecret))
	}

	if c.JWTAccessSecret != "" && c.JWTAccessSecret == c.JWTRefreshSecret {
		errs = append(errs, ErrSharedSecret)
	}

	if c.AccessTokenExpiration <= 0 || c.RefreshTokenExpiration <= 0 {
		errs = append(errs, ErrInvalidTTL)
	}

	return errors.Join(errs...)
}

// AccessTokenTTL returns the access token lifetime as a duration
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpiration) * time.Second
}

// RefreshTokenTTL returns the refresh token lifetime as a duration
func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpiration) * time.Second
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.ParseBool(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

// getEnvAsList splits a comma-separated variable, dropping empty entries
func getEnvAsList(key string, fallback []string) []string {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}

func getLogLevel() slog.Level {
	levelStr := getEnv("LOG_LEVEL", "INFO")

	switch strings.ToUpper(levelStr) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Configuration errors
var (
	ErrMissingAccessSecret  = errors.New("JWT_ACCESS_SECRET is required")
	ErrMissingRefreshSecret = errors.New("JWT_REFRESH_SECRET is required")
	ErrWeakSecret           = fmt.Errorf("secret must be at least %d bytes", minSecretLength)
	ErrSharedSecret         = errors.New("access and refresh secrets must differ")
	ErrInvalidTTL           = errors.New("token expirations must be positive")
)
