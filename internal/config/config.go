package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wb-go/wbf/logger"
)

// AuthPolicy decides what the authentication gate does when a request
// carries no usable token chain.
type AuthPolicy string

const (
	// PolicyLenient lets the request through anonymously; route-level
	// permission checks decide whether anonymous access is allowed.
	PolicyLenient AuthPolicy = "lenient"
	// PolicyStrict rejects the request with 401 at the gate.
	PolicyStrict AuthPolicy = "strict"
)

// Session store backends for refresh tokens.
const (
	SessionStoreMySQL = "mysql"
	SessionStoreMongo = "mongo"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Secrets and database coordinates are required;
// everything else has a default.
type Config struct {
	Env  string // application environment (dev/test/prod)
	Port string // HTTP port to listen on

	DBUser    string
	DBPass    string // may be empty
	DBHost    string
	DBPort    string
	DBName    string
	DBMigrate bool // apply embedded migrations on start

	AccessSecret  string        // signs access tokens
	RefreshSecret string        // signs refresh tokens; must differ from AccessSecret
	AccessTTL     time.Duration // access token lifetime
	RefreshTTL    time.Duration // refresh token lifetime
	BcryptCost    int
	AuthPolicy    AuthPolicy
	CookieSecure  bool   // Secure flag on auth cookies; disable only for plain-http local runs
	SessionStore  string // mysql | mongo

	SeatCapacity int // default capacity of a showtime when the admin does not give one

	AdminName     string // optional seeded admin account
	AdminEmail    string
	AdminPassword string

	Logger    LoggerConfig
	Mongo     MongoConfig
	AMQP      AMQPConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
}

// LoggerConfig selects the wbf logging engine and level.
type LoggerConfig struct {
	Engine string // slog | zap | zerolog | logrus
	Level  string // debug | info | warn | error
}

// LogLevel converts the configured level into a wbf logger level.
func (c LoggerConfig) LogLevel() logger.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return logger.DebugLevel
	case "warn":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

func (c LoggerConfig) LogEngine() logger.Engine {
	return logger.Engine(c.Engine)
}

// MongoConfig is only read when SESSION_STORE=mongo.
type MongoConfig struct {
	URI      string
	Database string
}

// AMQPConfig points at the broker used for booking events.  An empty URL
// disables publishing and the consumer.
type AMQPConfig struct {
	URL           string
	StartConsumer bool
	LogDir        string
}

// Load reads configuration values from environment variables.  Missing
// required variables are collected and reported together.
func Load() (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || v == "" {
			missing = append(missing, key)
		}
		return v
	}

	cfg := Config{
		Env:       envStr("APP_ENV", "dev"),
		Port:      envStr("APP_PORT", "8080"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"),
		DBHost:    must("DB_HOST"),
		DBPort:    envStr("DB_PORT", "3306"),
		DBName:    must("DB_NAME"),
		DBMigrate: envBool("DB_MIGRATE", true),

		AccessSecret:  must("ACCESS_TOKEN_SECRET"),
		RefreshSecret: must("REFRESH_TOKEN_SECRET"),
		AccessTTL:     envDur("ACCESS_TOKEN_TTL", 5*time.Minute),
		RefreshTTL:    envDur("REFRESH_TOKEN_TTL", 10*time.Minute),
		BcryptCost:    envInt("BCRYPT_COST", 10),
		AuthPolicy:    AuthPolicy(strings.ToLower(envStr("AUTH_POLICY", string(PolicyLenient)))),
		CookieSecure:  envBool("COOKIE_SECURE", true),
		SessionStore:  strings.ToLower(envStr("SESSION_STORE", SessionStoreMySQL)),

		SeatCapacity: envInt("SEAT_CAPACITY", 100),

		AdminName:     envStr("ADMIN_NAME", "Administrator"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),

		Logger: LoggerConfig{
			Engine: envStr("LOG_ENGINE", "slog"),
			Level:  envStr("LOG_LEVEL", "info"),
		},
		Mongo: MongoConfig{
			URI:      envStr("MONGODB_URI", "mongodb://localhost:27017"),
			Database: envStr("MONGODB_DATABASE", "cinema"),
		},
		AMQP: AMQPConfig{
			URL:           amqpURL(),
			StartConsumer: envBool("BOOKING_CONSUMER_ENABLED", true),
			LogDir:        envStr("BOOKING_LOG_DIR", "logs"),
		},
		Redis:     LoadRedisConfig(),
		RateLimit: LoadRateLimitConfig(),
		Cache:     LoadCacheConfig(),
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// MustLoad is Load for main: it panics on invalid configuration.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c Config) validate() error {
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.AuthPolicy != PolicyLenient && c.AuthPolicy != PolicyStrict {
		return fmt.Errorf("invalid AUTH_POLICY %q (want lenient or strict)", c.AuthPolicy)
	}
	if c.SessionStore != SessionStoreMySQL && c.SessionStore != SessionStoreMongo {
		return fmt.Errorf("invalid SESSION_STORE %q (want mysql or mongo)", c.SessionStore)
	}
	if c.SeatCapacity < 1 {
		return fmt.Errorf("invalid SEAT_CAPACITY %d", c.SeatCapacity)
	}
	return nil
}

// amqpURL keeps the two variable names the booking queue has always accepted.
func amqpURL() string {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		return v
	}
	return os.Getenv("AMQP_URL")
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
