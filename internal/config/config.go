package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileEnv names the optional TOML file read before the environment.
const ConfigFileEnv = "EXPENSES_CONFIG_FILE"

type Config struct {
	// Logging
	LogLevel string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string

	// AMQP (empty URL disables publishing)
	AMQPURL          string
	AMQPExchange     string
	AMQPExpenseQueue string
	AMQPAlertQueue   string

	// Recurring processor
	RecurringInterval time.Duration

	// Reports
	ReportMonths      int
	ReportWeeks       int
	CategoryCacheSize int
	CategoryCacheTTL  time.Duration
}

// fileConfig mirrors Config in the TOML file layout.
type fileConfig struct {
	LogLevel     string `toml:"log_level"`
	DataBackend  string `toml:"data_backend"`
	SQLiteDBPath string `toml:"sqlite_db_path"`

	AMQP struct {
		URL          string `toml:"url"`
		Exchange     string `toml:"exchange"`
		ExpenseQueue string `toml:"expense_queue"`
		AlertQueue   string `toml:"alert_queue"`
	} `toml:"amqp"`

	Recurring struct {
		Interval string `toml:"interval"`
	} `toml:"recurring"`

	Reports struct {
		Months    int    `toml:"months"`
		Weeks     int    `toml:"weeks"`
		CacheSize int    `toml:"category_cache_size"`
		CacheTTL  string `toml:"category_cache_ttl"`
	} `toml:"reports"`
}

func defaults() *Config {
	return &Config{
		LogLevel:          "info",
		DataBackend:       "memory",
		SQLiteDBPath:      "./data/expenses.db",
		AMQPExchange:      "expenses",
		AMQPExpenseQueue:  "expense_created",
		AMQPAlertQueue:    "budget_alerts",
		RecurringInterval: 24 * time.Hour,
		ReportMonths:      6,
		ReportWeeks:       4,
		CategoryCacheSize: 256,
		CategoryCacheTTL:  10 * time.Minute,
	}
}

// Load builds the configuration from defaults, then the TOML file named by
// EXPENSES_CONFIG_FILE if any, then environment variables. Later sources win.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DataBackend = getEnv("DATA_BACKEND", cfg.DataBackend)
	cfg.SQLiteDBPath = getEnv("SQLITE_DB_PATH", cfg.SQLiteDBPath)

	cfg.AMQPURL = getEnv("AMQP_URL", cfg.AMQPURL)
	cfg.AMQPExchange = getEnv("AMQP_EXCHANGE", cfg.AMQPExchange)
	cfg.AMQPExpenseQueue = getEnv("AMQP_EXPENSE_QUEUE", cfg.AMQPExpenseQueue)
	cfg.AMQPAlertQueue = getEnv("AMQP_ALERT_QUEUE", cfg.AMQPAlertQueue)

	cfg.RecurringInterval = getEnvDuration("RECURRING_PROCESSOR_INTERVAL", cfg.RecurringInterval)

	cfg.ReportMonths = getEnvInt("REPORT_MONTHS", cfg.ReportMonths)
	cfg.ReportWeeks = getEnvInt("REPORT_WEEKS", cfg.ReportWeeks)
	cfg.CategoryCacheSize = getEnvInt("CATEGORY_CACHE_SIZE", cfg.CategoryCacheSize)
	cfg.CategoryCacheTTL = getEnvDuration("CATEGORY_CACHE_TTL", cfg.CategoryCacheTTL)

	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	var f fileConfig
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	setString(&c.LogLevel, f.LogLevel)
	setString(&c.DataBackend, f.DataBackend)
	setString(&c.SQLiteDBPath, f.SQLiteDBPath)
	setString(&c.AMQPURL, f.AMQP.URL)
	setString(&c.AMQPExchange, f.AMQP.Exchange)
	setString(&c.AMQPExpenseQueue, f.AMQP.ExpenseQueue)
	setString(&c.AMQPAlertQueue, f.AMQP.AlertQueue)
	if f.Reports.Months != 0 {
		c.ReportMonths = f.Reports.Months
	}
	if f.Reports.Weeks != 0 {
		c.ReportWeeks = f.Reports.Weeks
	}
	if f.Reports.CacheSize != 0 {
		c.CategoryCacheSize = f.Reports.CacheSize
	}

	var err error
	if f.Recurring.Interval != "" {
		if c.RecurringInterval, err = time.ParseDuration(f.Recurring.Interval); err != nil {
			return fmt.Errorf("config file %s: recurring.interval: %w", path, err)
		}
	}
	if f.Reports.CacheTTL != "" {
		if c.CategoryCacheTTL, err = time.ParseDuration(f.Reports.CacheTTL); err != nil {
			return fmt.Errorf("config file %s: reports.category_cache_ttl: %w", path, err)
		}
	}
	return nil
}

// Validate validates the configuration and returns an error listing every problem
func (c *Config) Validate() error {
	var errors []string

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLevels))
	}

	validBackends := []string{"memory", "sqlite"}
	if !slices.Contains(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == "sqlite" && c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPExpenseQueue == "" || c.AMQPAlertQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	if c.RecurringInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 minute", c.RecurringInterval))
	} else if c.RecurringInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at most 168 hours", c.RecurringInterval))
	}

	if c.ReportMonths < 1 || c.ReportMonths > 60 {
		errors = append(errors, fmt.Sprintf("invalid report months %d: must be between 1 and 60", c.ReportMonths))
	}
	if c.ReportWeeks < 1 || c.ReportWeeks > 104 {
		errors = append(errors, fmt.Sprintf("invalid report weeks %d: must be between 1 and 104", c.ReportWeeks))
	}
	if c.CategoryCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid category cache size %d: must be at least 1", c.CategoryCacheSize))
	}
	if c.CategoryCacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid category cache TTL %v: must be positive", c.CategoryCacheTTL))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
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
