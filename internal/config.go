package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"http_server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Security  SecurityConfig  `mapstructure:"security" validate:"required"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Invoicing InvoicingConfig `mapstructure:"invoicing"`
	Documents DocumentsConfig `mapstructure:"documents"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" validate:"min=1,max=65535"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source" validate:"required"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

type SecurityConfig struct {
	JWTSecret           string        `mapstructure:"jwt_secret" validate:"required,min=32"`
	JWTIssuer           string        `mapstructure:"jwt_issuer"`
	AccessTokenDuration time.Duration `mapstructure:"access_token_duration" validate:"required,min=1m"`
}

type LoggingConfig struct {
	Env    string `mapstructure:"env" validate:"omitempty,oneof=development production"`
	Level  string `mapstructure:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"omitempty,oneof=json text"`
}

// ClassPolicyConfig overrides the numbering and due-date policy of a class.
type ClassPolicyConfig struct {
	Prefix  string `mapstructure:"prefix"`
	Width   int    `mapstructure:"width" validate:"min=1,max=9"`
	DueDays int    `mapstructure:"due_days" validate:"min=0"`
}

type InvoicingConfig struct {
	Timezone             string                       `mapstructure:"timezone"`
	VATRate              string                       `mapstructure:"vat_rate"`
	TransactionTaxRate   string                       `mapstructure:"transaction_tax_rate"`
	DueSoonDays          int                          `mapstructure:"due_soon_days" validate:"min=0"`
	MaxAllocationRetries int                          `mapstructure:"max_allocation_retries" validate:"min=0,max=20"`
	RetainerHours        string                       `mapstructure:"retainer_hours"`
	RetainerRate         string                       `mapstructure:"retainer_rate"`
	RetainerNames        []string                     `mapstructure:"retainer_names"`
	Classes              map[string]ClassPolicyConfig `mapstructure:"classes" validate:"dive"`
}

type DocumentsConfig struct {
	StorageDir        string        `mapstructure:"storage_dir"`
	CustomerName      string        `mapstructure:"customer_name"`
	CustomerAddress   string        `mapstructure:"customer_address"`
	Currency          string        `mapstructure:"currency"`
	GenerationTimeout time.Duration `mapstructure:"generation_timeout"`
	MaxWorkers        int           `mapstructure:"max_workers" validate:"min=0"`
	JobQueueSize      int           `mapstructure:"job_queue_size" validate:"min=0"`
	WorkerPoolSize    int           `mapstructure:"worker_pool_size" validate:"min=0"`
}

// LoadConfigFromEnv builds the configuration from plain environment
// variables, for container deployments without a config file.
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Port:              getEnvAsInt("HTTP_PORT", 8080),
			BaseURL:           getEnv("HTTP_BASE_URL", ""),
			AllowedOrigins:    getEnv("HTTP_ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("HTTP_READ_TIMEOUT", 15*time.Second),
			IdleTimeout:       getEnvAsDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
			WriteTimeout:      getEnvAsDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DB_SOURCE", ""),
		},
		Security: SecurityConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			JWTIssuer:           getEnv("JWT_ISSUER", "timesheet-invoicing"),
			AccessTokenDuration: getEnvAsDuration("JWT_ACCESS_TOKEN_DURATION", 15*time.Minute),
		},
		Logging: LoggingConfig{
			Env:    getEnv("APP_ENV", "production"),
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Invoicing: InvoicingConfig{
			Timezone:             getEnv("INVOICING_TIMEZONE", "Europe/Bratislava"),
			VATRate:              getEnv("INVOICING_VAT_RATE", "0.20"),
			TransactionTaxRate:   getEnv("INVOICING_TRANSACTION_TAX_RATE", "0.4"),
			DueSoonDays:          getEnvAsInt("INVOICING_DUE_SOON_DAYS", 3),
			MaxAllocationRetries: getEnvAsInt("INVOICING_MAX_ALLOCATION_RETRIES", 3),
			RetainerHours:        getEnv("INVOICING_RETAINER_HOURS", "50"),
			RetainerRate:         getEnv("INVOICING_RETAINER_RATE", "20"),
			RetainerNames:        splitList(getEnv("INVOICING_RETAINER_NAMES", "")),
		},
		Documents: DocumentsConfig{
			StorageDir:        getEnv("DOCUMENTS_STORAGE_DIR", "/var/lib/timesheet-invoicing/documents"),
			CustomerName:      getEnv("DOCUMENTS_CUSTOMER_NAME", ""),
			CustomerAddress:   getEnv("DOCUMENTS_CUSTOMER_ADDRESS", ""),
			Currency:          getEnv("DOCUMENTS_CURRENCY", "EUR"),
			GenerationTimeout: getEnvAsDuration("DOCUMENTS_GENERATION_TIMEOUT", 30*time.Second),
			MaxWorkers:        getEnvAsInt("DOCUMENTS_MAX_WORKERS", 4),
			JobQueueSize:      getEnvAsInt("DOCUMENTS_JOB_QUEUE_SIZE", 100),
			WorkerPoolSize:    getEnvAsInt("DOCUMENTS_WORKER_POOL_SIZE", 4),
		},
	}
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := validator.New().Struct(c); err != nil {
		errs = append(errs, err.Error())
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Invoicing.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("invoicing config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *InvoicingConfig) Validate() error {
	if _, err := c.Location(); err != nil {
		return err
	}
	for name, raw := range map[string]string{
		"vat_rate":             c.VATRate,
		"transaction_tax_rate": c.TransactionTaxRate,
		"retainer_hours":       c.RetainerHours,
		"retainer_rate":        c.RetainerRate,
	} {
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

func (c *InvoicingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Decimal reads one of the decimal settings, falling back to def when the
// setting is empty.
func (c *InvoicingConfig) Decimal(raw string, def decimal.Decimal) decimal.Decimal {
	if raw == "" {
		return def
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return def
	}
	return d
}
