// Package config loads pocketmoney settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"8081"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	SQLiteDBPath string `env:"SQLITE_DB_PATH" envDefault:"./data/pocketmoney.db"`

	// An empty AMQP_URL disables event publishing.
	AMQPURL      string `env:"AMQP_URL"`
	AMQPExchange string `env:"AMQP_EXCHANGE" envDefault:"pocketmoney"`
	AMQPQueue    string `env:"AMQP_QUEUE" envDefault:"ledger_events"`

	// Without GEMINI_API_KEY the offline content set is served.
	GeminiAPIKey    string        `env:"GEMINI_API_KEY"`
	GeminiModel     string        `env:"GEMINI_MODEL" envDefault:"gemini-2.5-flash"`
	ContentTimeout  time.Duration `env:"CONTENT_TIMEOUT" envDefault:"8s"`
	LessonCacheSize int           `env:"LESSON_CACHE_SIZE" envDefault:"64"`
	LessonCacheTTL  time.Duration `env:"LESSON_CACHE_TTL" envDefault:"24h"`

	AllowanceInterval time.Duration `env:"ALLOWANCE_INTERVAL" envDefault:"1h"`

	RejectOverdraft      bool `env:"GOAL_REJECT_OVERDRAFT" envDefault:"false"`
	RejectOverWithdrawal bool `env:"GOAL_REJECT_OVER_WITHDRAWAL" envDefault:"false"`

	RequestsPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`
}

// Load parses the environment. Call Validate on the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		problems = append(problems, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if c.SQLiteDBPath == "" {
		problems = append(problems, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.GeminiAPIKey != "" && c.GeminiModel == "" {
		problems = append(problems, "Gemini model cannot be empty when an API key is provided")
	}
	if c.ContentTimeout < 100*time.Millisecond || c.ContentTimeout > time.Minute {
		problems = append(problems, fmt.Sprintf("invalid content timeout %v: must be between 100ms and 1m", c.ContentTimeout))
	}
	if c.LessonCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid lesson cache size %d: must be at least 1", c.LessonCacheSize))
	}

	if c.AllowanceInterval < time.Second {
		problems = append(problems, fmt.Sprintf("invalid allowance interval %v: must be at least 1 second", c.AllowanceInterval))
	} else if c.AllowanceInterval > 24*time.Hour {
		problems = append(problems, fmt.Sprintf("invalid allowance interval %v: must be at most 24 hours", c.AllowanceInterval))
	}

	if c.RequestsPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1", c.RequestsPerMinute))
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

// ContentEnabled reports whether a remote content generator is configured.
func (c *Config) ContentEnabled() bool {
	return c.GeminiAPIKey != ""
}

// AMQPEnabled reports whether ledger events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}
