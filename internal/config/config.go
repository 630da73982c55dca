package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/currency"

	"gnucashboard/internal/core"
	"gnucashboard/internal/log"
)

// DateLayout is the layout of SERVER_DATE, EXAMPLE_START and EXAMPLE_END.
const DateLayout = "2006-01-02"

type Config struct {
	// HTTP Server
	Port           string
	AllowedOrigins []string

	// Book
	BookPath          string
	MonthFormat       string
	CategorySeparator string
	// ServerDate pins the dashboard clock, used for the default overview
	// month. Empty means the wall clock.
	ServerDate string
	// BookPollInterval is how often the server checks the book file for
	// changes. Zero disables polling.
	BookPollInterval time.Duration

	// Sessions
	SessionTTL  time.Duration
	MaxSessions int

	// Logging
	LogLevel  string
	LogFormat string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Example book
	ExampleCurrency string
	ExampleSeed     int64
	ExampleStart    string
	ExampleEnd      string
}

func Load() *Config {
	cfg := &Config{
		Port:           getEnv("PORT", "5006"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", nil),

		BookPath:          getEnv("GNUCASH_BOOK_PATH", "./data/example.gnucash"),
		MonthFormat:       getEnv("MONTH_FORMAT", core.DefaultMonthPattern),
		CategorySeparator: getEnv("CATEGORY_SEPARATOR", core.DefaultSeparator),
		ServerDate:        getEnv("SERVER_DATE", ""),
		BookPollInterval:  getEnvDuration("BOOK_POLL_INTERVAL", 0),

		SessionTTL:  getEnvDuration("SESSION_TTL", 30*time.Minute),
		MaxSessions: getEnvInt("MAX_SESSIONS", 100),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "gnucashboard"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "book_updates"),

		ExampleCurrency: getEnv("EXAMPLE_CURRENCY", "PLN"),
		ExampleSeed:     int64(getEnvInt("EXAMPLE_SEED", 1010)),
		ExampleStart:    getEnv("EXAMPLE_START", "2019-01-01"),
		ExampleEnd:      getEnv("EXAMPLE_END", "2020-12-31"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.BookPath == "" {
		errors = append(errors, "GnuCash book path cannot be empty")
	}

	if _, err := core.NewMonthFormat(c.MonthFormat); err != nil {
		errors = append(errors, fmt.Sprintf("invalid month format '%s': %v", c.MonthFormat, err))
	}

	if c.CategorySeparator == "" {
		errors = append(errors, "category separator cannot be empty")
	}

	if c.ServerDate != "" {
		if _, err := time.Parse(DateLayout, c.ServerDate); err != nil {
			errors = append(errors, fmt.Sprintf("invalid server date '%s': must be YYYY-MM-DD", c.ServerDate))
		}
	}

	if c.BookPollInterval < 0 {
		errors = append(errors, fmt.Sprintf("invalid book poll interval %v: must not be negative", c.BookPollInterval))
	}

	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			continue
		}
		if u, err := url.Parse(origin); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid allowed origin '%s': must be '*' or scheme://host", origin))
		}
	}

	// Validate sessions
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 24 hours", c.SessionTTL))
	}
	if c.MaxSessions < 1 {
		errors = append(errors, fmt.Sprintf("invalid max sessions %d: must be at least 1", c.MaxSessions))
	}

	// Validate logging
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate example book
	if _, err := currency.ParseISO(c.ExampleCurrency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid example currency '%s': %v", c.ExampleCurrency, err))
	}
	start, errStart := time.Parse(DateLayout, c.ExampleStart)
	if errStart != nil {
		errors = append(errors, fmt.Sprintf("invalid example start date '%s': must be YYYY-MM-DD", c.ExampleStart))
	}
	end, errEnd := time.Parse(DateLayout, c.ExampleEnd)
	if errEnd != nil {
		errors = append(errors, fmt.Sprintf("invalid example end date '%s': must be YYYY-MM-DD", c.ExampleEnd))
	}
	if errStart == nil && errEnd == nil && end.Before(start) {
		errors = append(errors, fmt.Sprintf("example end date %s is before start date %s", c.ExampleEnd, c.ExampleStart))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Now returns the dashboard clock: SERVER_DATE when set, otherwise
// time.Now. Call after Validate.
func (c *Config) Now() func() time.Time {
	if c.ServerDate == "" {
		return time.Now
	}
	t, err := time.Parse(DateLayout, c.ServerDate)
	if err != nil {
		return time.Now
	}
	return func() time.Time { return t }
}

// AMQPEnabled reports whether book update messages are used.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
