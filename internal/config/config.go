package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	RabbitMQ    RabbitMQConfig    `yaml:"rabbitmq"`
	Ledger      LedgerConfig      `yaml:"ledger"`
	ObjectStore ObjectStoreConfig `yaml:"object_store"`
	Hub         HubConfig         `yaml:"hub"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Lifecycle   LifecycleConfig   `yaml:"lifecycle"`
	Reconciler  ReconcilerConfig  `yaml:"reconciler"`
	Logging     LoggingConfig     `yaml:"logging"`
	App         AppConfig         `yaml:"app"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int  `yaml:"prefetch_count"`
	AutoAck       bool `yaml:"auto_ack"`
	Exclusive     bool `yaml:"exclusive"`
}

// LedgerConfig holds the escrow ledger ("Keeper") client configuration
type LedgerConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	ServiceToken string        `yaml:"service_token"`
}

// ObjectStoreConfig holds deliverable blob storage configuration
type ObjectStoreConfig struct {
	Root string `yaml:"root"`
}

// HubConfig holds the notification fan-out settings
type HubConfig struct {
	PingInterval time.Duration `yaml:"ping_interval"`
	StaleAfter   time.Duration `yaml:"stale_after"`
}

// RateLimitConfig holds sliding-window rate limiter settings. Quotas
// are per category name, counted within one window.
type RateLimitConfig struct {
	Window time.Duration  `yaml:"window"`
	Quotas map[string]int `yaml:"quotas"`
}

// LifecycleConfig holds the job state machine business settings
type LifecycleConfig struct {
	MinPaymentCents           int64 `yaml:"min_payment_cents"`
	CancelCompensationPercent int   `yaml:"cancel_compensation_percent"`
}

// ReconcilerConfig holds the escrow reconciliation worker settings
type ReconcilerConfig struct {
	Concurrency     int           `yaml:"concurrency"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	LedgerTimeout   time.Duration `yaml:"ledger_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	EnableCaller     bool   `yaml:"enable_caller"`
	EnableStackTrace bool   `yaml:"enable_stack_trace"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

// applyDefaults fills settings a deployment rarely needs to tune.
func (c *Config) applyDefaults() {
	if c.Lifecycle.MinPaymentCents == 0 {
		c.Lifecycle.MinPaymentCents = 500
	}
	if c.Lifecycle.CancelCompensationPercent == 0 {
		c.Lifecycle.CancelCompensationPercent = 50
	}
	if c.Hub.PingInterval == 0 {
		c.Hub.PingInterval = 30 * time.Second
	}
	if c.Hub.StaleAfter == 0 {
		c.Hub.StaleAfter = 90 * time.Second
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Ledger.Timeout == 0 {
		c.Ledger.Timeout = 5 * time.Second
	}
}

// ValidateAPIConfig checks the configuration needed by the API service.
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.Ledger.BaseURL == "" {
		return fmt.Errorf("ledger base_url is required")
	}

	if c.ObjectStore.Root == "" {
		return fmt.Errorf("object store root is required")
	}

	if c.Hub.StaleAfter <= c.Hub.PingInterval {
		return fmt.Errorf("hub stale_after (%s) must exceed ping_interval (%s)", c.Hub.StaleAfter, c.Hub.PingInterval)
	}

	if c.Lifecycle.CancelCompensationPercent < 0 || c.Lifecycle.CancelCompensationPercent > 100 {
		return fmt.Errorf("cancel_compensation_percent must be between 0 and 100, got %d", c.Lifecycle.CancelCompensationPercent)
	}

	return nil
}

// ValidateReconcilerConfig checks the configuration needed by the
// escrow reconciliation worker.
func (c *Config) ValidateReconcilerConfig() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	if c.Ledger.BaseURL == "" {
		return fmt.Errorf("ledger base_url is required")
	}

	if c.Reconciler.Concurrency <= 0 {
		return fmt.Errorf("reconciler concurrency must be greater than 0")
	}

	if c.Reconciler.LedgerTimeout <= 0 {
		return fmt.Errorf("reconciler ledger_timeout must be greater than 0")
	}

	if c.Reconciler.ShutdownTimeout <= 0 {
		return fmt.Errorf("reconciler shutdown_timeout must be greater than 0")
	}

	return nil
}
