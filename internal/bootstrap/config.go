package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Persistence modes for CodeDocument writes
const (
	PersistInline = "inline"
	PersistQueue  = "queue"
)

// Config holds settings read from the environment (and .env when present)
type Config struct {
	ServerPort string
	AppEnv     string
	LogLevel   string

	DBDriver   string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	SQLitePath string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string

	RateLimitMax    int
	RateLimitWindow time.Duration
	EventRateLimit  int

	CORSAllowedOrigin string

	Judge0URL     string
	RapidAPIKey   string
	RapidAPIHost  string
	ExecPoll      time.Duration
	ExecAttempts  int
	ExecTimeout   time.Duration

	PersistMode     string
	PersistLanguage bool

	AMQPURL   string
	AMQPQueue string
}

// LoadConfig reads the configuration. Variables already set in the environment win over .env.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	return loadFromEnv()
}

func loadFromEnv() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_PORT", "5000")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")

	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("DB_HOST", "127.0.0.1")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_NAME", "codybuddy")
	v.SetDefault("SQLITE_PATH", "data/codybuddy.db")

	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "cb:")

	v.SetDefault("RATE_LIMIT_MAX", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "1s")
	v.SetDefault("EVENT_RATE_LIMIT", 50)

	v.SetDefault("CORS_ALLOWED_ORIGIN", "http://localhost:5173")

	v.SetDefault("JUDGE0_URL", "https://judge0-ce.p.rapidapi.com/submissions")
	v.SetDefault("RAPIDAPI_HOST", "judge0-ce.p.rapidapi.com")
	v.SetDefault("EXEC_POLL_INTERVAL", "1s")
	v.SetDefault("EXEC_MAX_ATTEMPTS", 30)
	v.SetDefault("EXEC_TIMEOUT", "45s")

	v.SetDefault("PERSIST_MODE", PersistInline)
	v.SetDefault("PERSIST_LANGUAGE_CHANGES", false)
	v.SetDefault("AMQP_QUEUE", "codybuddy.room-events")

	v.AutomaticEnv()

	cfg := &Config{
		ServerPort: v.GetString("SERVER_PORT"),
		AppEnv:     v.GetString("APP_ENV"),
		LogLevel:   v.GetString("LOG_LEVEL"),

		DBDriver:   strings.ToLower(v.GetString("DB_DRIVER")),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBName:     v.GetString("DB_NAME"),
		SQLitePath: v.GetString("SQLITE_PATH"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),
		KeyPrefix:     v.GetString("REDIS_KEY_PREFIX"),

		RateLimitMax:    v.GetInt("RATE_LIMIT_MAX"),
		RateLimitWindow: v.GetDuration("RATE_LIMIT_WINDOW"),
		EventRateLimit:  v.GetInt("EVENT_RATE_LIMIT"),

		CORSAllowedOrigin: v.GetString("CORS_ALLOWED_ORIGIN"),

		Judge0URL:    v.GetString("JUDGE0_URL"),
		RapidAPIKey:  v.GetString("RAPIDAPI_KEY"),
		RapidAPIHost: v.GetString("RAPIDAPI_HOST"),
		ExecPoll:     v.GetDuration("EXEC_POLL_INTERVAL"),
		ExecAttempts: v.GetInt("EXEC_MAX_ATTEMPTS"),
		ExecTimeout:  v.GetDuration("EXEC_TIMEOUT"),

		PersistMode:     strings.ToLower(v.GetString("PERSIST_MODE")),
		PersistLanguage: v.GetBool("PERSIST_LANGUAGE_CHANGES"),

		AMQPURL:   v.GetString("AMQP_URL"),
		AMQPQueue: v.GetString("AMQP_QUEUE"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DBDriver {
	case "sqlite":
	case "mysql":
		if c.DBUser == "" {
			return fmt.Errorf("environment variable DB_USER must be set when DB_DRIVER=mysql")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}

	switch c.PersistMode {
	case PersistInline:
	case PersistQueue:
		if c.RedisAddr == "" {
			return fmt.Errorf("environment variable REDIS_ADDR must be set when PERSIST_MODE=queue")
		}
	default:
		return fmt.Errorf("unsupported PERSIST_MODE %q", c.PersistMode)
	}

	if c.RateLimitMax <= 0 || c.RateLimitWindow <= 0 {
		return fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}
	if c.EventRateLimit < 0 {
		return fmt.Errorf("EVENT_RATE_LIMIT must not be negative")
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", c.LogLevel)
		c.LogLevel = "info"
	}
	return nil
}
