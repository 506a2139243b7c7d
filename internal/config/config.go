package config // package config loads application configuration from environment variables

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values. Each field corresponds to
// an environment variable; required variables are enforced by must() and a
// missing value halts startup.
type Config struct {
	Env              string        // application environment (dev/test/prod)
	Port             string        // HTTP port to listen on
	DBUser           string        // database username
	DBPass           string        // database password (optional)
	DBHost           string        // database host address
	DBPort           string        // database port number
	DBName           string        // database name
	JWTSecret        string        // secret used to sign JWTs (optional: generated when empty)
	AccessTTL        time.Duration // access token time-to-live
	RefreshTTL       time.Duration // web refresh token time-to-live
	MobileRefreshTTL time.Duration // mobile refresh token time-to-live
	BcryptCost       int           // bcrypt cost for password hashing
	AMQPURL          string        // RabbitMQ URL for auth events (optional)
	LoginRateLimit   int           // allowed credential attempts per window (0 disables)
	LoginRateWindow  time.Duration // credential attempt window
}

// Load reads the environment (after a best-effort .env load) and returns a
// Config.
func Load() Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("config: no .env file found")
	}
	return Config{
		Env:              must("APP_ENV"),
		Port:             must("APP_PORT"),
		DBUser:           must("DB_USER"),
		DBPass:           os.Getenv("DB_PASS"),
		DBHost:           must("DB_HOST"),
		DBPort:           must("DB_PORT"),
		DBName:           must("DB_NAME"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AccessTTL:        seconds("ACCESS_TOKEN_TTL_SECS", 3600),
		RefreshTTL:       days("REFRESH_TOKEN_TTL_DAYS", 30),
		MobileRefreshTTL: days("MOBILE_REFRESH_TOKEN_TTL_DAYS", 180),
		BcryptCost:       intOr("BCRYPT_COST", 12),
		AMQPURL:          os.Getenv("RABBITMQ_URL"),
		LoginRateLimit:   intOr("LOGIN_RATE_LIMIT", 10),
		LoginRateWindow:  seconds("LOGIN_RATE_WINDOW_SECS", 60),
	}
}

// must retrieves a required environment variable or halts.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logrus.Fatalf("missing required env var: %s", key)
	}
	return v
}

// intOr retrieves an integer variable, falling back to a default when unset.
func intOr(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		logrus.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func seconds(key string, def int) time.Duration {
	return time.Duration(intOr(key, def)) * time.Second
}

func days(key string, def int) time.Duration {
	return time.Duration(intOr(key, def)) * 24 * time.Hour
}
