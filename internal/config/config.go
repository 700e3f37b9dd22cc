package config // package config loads application configuration from environment variables

import (
	"fmt"
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Required variables have no default; everything
// else falls back to a value suitable for local development.
type Config struct {
	Env             string        // APP_ENV (dev, test, prod)
	Port            string        // APP_PORT
	DBUser          string        // DB_USER
	DBPass          string        // DB_PASS (empty allowed)
	DBHost          string        // DB_HOST
	DBPort          string        // DB_PORT
	DBName          string        // DB_NAME
	DBAutoMigrate   bool          // DB_AUTO_MIGRATE applies the embedded schema at startup
	JWTSecret       string        // JWT_SECRET signs access tokens
	AccessTTLMin    int           // ACCESS_TOKEN_TTL_MIN
	RefreshTTLDays  int           // REFRESH_TOKEN_TTL_DAYS
	BcryptCost      int           // BCRYPT_COST
	AutoVerifyUsers bool          // AUTO_VERIFY_USERS marks new accounts verified
	AdminEmail      string        // ADMIN_EMAIL bootstrap admin (optional)
	AdminPassword   string        // ADMIN_PASSWORD
	RabbitURL       string        // RABBITMQ_URL; empty disables events
	EventsEnabled   bool          // EVENTS_ENABLED
	EventsLogDir    string        // EVENTS_LOG_DIR for the consumer's events.log
	LogLevel        string        // LOG_LEVEL
	ShutdownTimeout time.Duration // SHUTDOWN_TIMEOUT
}

// required lists the variables that have no default.
var required = []string{"DB_USER", "DB_HOST", "DB_PORT", "DB_NAME", "JWT_SECRET"}

// FromEnv builds a Config from the process environment.  All missing
// required variables are reported together.
func FromEnv() (Config, error) {
	var missing []string
	for _, k := range required {
		if strings.TrimSpace(os.Getenv(k)) == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env var(s): %s", strings.Join(missing, ", "))
	}
	cfg := Config{
		Env:             envStr("APP_ENV", "dev"),
		Port:            envStr("APP_PORT", "8080"),
		DBUser:          os.Getenv("DB_USER"),
		DBPass:          os.Getenv("DB_PASS"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          os.Getenv("DB_PORT"),
		DBName:          os.Getenv("DB_NAME"),
		DBAutoMigrate:   envBool("DB_AUTO_MIGRATE", false),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		AccessTTLMin:    envInt("ACCESS_TOKEN_TTL_MIN", 30),
		RefreshTTLDays:  envInt("REFRESH_TOKEN_TTL_DAYS", 7),
		BcryptCost:      envInt("BCRYPT_COST", 12),
		AutoVerifyUsers: envBool("AUTO_VERIFY_USERS", false),
		AdminEmail:      os.Getenv("ADMIN_EMAIL"),
		AdminPassword:   os.Getenv("ADMIN_PASSWORD"),
		RabbitURL:       os.Getenv("RABBITMQ_URL"),
		EventsEnabled:   envBool("EVENTS_ENABLED", true),
		EventsLogDir:    envStr("EVENTS_LOG_DIR", "logs"),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
	if cfg.AccessTTLMin < 1 {
		return Config{}, fmt.Errorf("invalid ACCESS_TOKEN_TTL_MIN: %d", cfg.AccessTTLMin)
	}
	if cfg.RefreshTTLDays < 1 {
		return Config{}, fmt.Errorf("invalid REFRESH_TOKEN_TTL_DAYS: %d", cfg.RefreshTTLDays)
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return Config{}, fmt.Errorf("invalid BCRYPT_COST: %d", cfg.BcryptCost)
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return Config{}, fmt.Errorf("invalid APP_PORT: %q", cfg.Port)
	}
	return cfg, nil
}

// Load is FromEnv for main: a bad configuration logs a fatal error and
// exits.
func Load() Config {
	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// EventsOn reports whether events should be published and consumed.
func (c Config) EventsOn() bool { return c.EventsEnabled && c.RabbitURL != "" }
