package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)

				// Verify some key fields are populated
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "localhost", cfg.Database.Host)
				assert.Equal(t, 5432, cfg.Database.Port)
				assert.Equal(t, "taskpin", cfg.Database.Database)
				assert.Equal(t, "escrow.reconcile", cfg.RabbitMQ.Exchange.Name)
				assert.Equal(t, "escrow.reconcile.intents", cfg.RabbitMQ.Queue.Name)
				assert.Equal(t, "http://localhost:9090", cfg.Ledger.BaseURL)
				assert.Equal(t, "taskpin-api-service", cfg.App.Name)
				assert.Equal(t, 30, cfg.RateLimit.Quotas["job_create"])
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("testdata/valid_config.yaml")
	require.NoError(t, err)

	// Explicit values survive
	assert.Equal(t, 10*time.Second, cfg.Hub.PingInterval)
	assert.Equal(t, 30*time.Second, cfg.Hub.StaleAfter)

	// Defaults fill in what the file omits
	empty := &Config{}
	empty.applyDefaults()
	assert.Equal(t, int64(500), empty.Lifecycle.MinPaymentCents)
	assert.Equal(t, 50, empty.Lifecycle.CancelCompensationPercent)
	assert.Equal(t, 30*time.Second, empty.Hub.PingInterval)
	assert.Equal(t, 90*time.Second, empty.Hub.StaleAfter)
	assert.Equal(t, time.Minute, empty.RateLimit.Window)
	assert.Equal(t, 5*time.Second, empty.Ledger.Timeout)
}

func validAPIConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "taskpin",
		},
		RabbitMQ: RabbitMQConfig{
			Host: "localhost",
			Port: 5672,
			Exchange: ExchangeConfig{
				Name: "escrow.reconcile",
			},
			Queue: QueueConfig{
				Name: "escrow.reconcile.intents",
			},
		},
		Ledger:      LedgerConfig{BaseURL: "http://localhost:9090"},
		ObjectStore: ObjectStoreConfig{Root: "/tmp/deliverables"},
	}
	cfg.applyDefaults()
	return cfg
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errString string
	}{
		{
			name:    "valid config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:      "invalid server port - too low",
			mutate:    func(c *Config) { c.Server.Port = 0 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "invalid server port - too high",
			mutate:    func(c *Config) { c.Server.Port = 70000 },
			wantErr:   true,
			errString: "invalid server port",
		},
		{
			name:      "missing database host",
			mutate:    func(c *Config) { c.Database.Host = "" },
			wantErr:   true,
			errString: "database host is required",
		},
		{
			name:      "missing database name",
			mutate:    func(c *Config) { c.Database.Database = "" },
			wantErr:   true,
			errString: "database name is required",
		},
		{
			name:      "missing rabbitmq host",
			mutate:    func(c *Config) { c.RabbitMQ.Host = "" },
			wantErr:   true,
			errString: "rabbitmq host is required",
		},
		{
			name:      "missing exchange name",
			mutate:    func(c *Config) { c.RabbitMQ.Exchange.Name = "" },
			wantErr:   true,
			errString: "rabbitmq exchange name is required",
		},
		{
			name:      "missing ledger base url",
			mutate:    func(c *Config) { c.Ledger.BaseURL = "" },
			wantErr:   true,
			errString: "ledger base_url is required",
		},
		{
			name:      "missing object store root",
			mutate:    func(c *Config) { c.ObjectStore.Root = "" },
			wantErr:   true,
			errString: "object store root is required",
		},
		{
			name: "stale_after not beyond ping_interval",
			mutate: func(c *Config) {
				c.Hub.PingInterval = 30 * time.Second
				c.Hub.StaleAfter = 30 * time.Second
			},
			wantErr:   true,
			errString: "stale_after",
		},
		{
			name:      "compensation percent out of range",
			mutate:    func(c *Config) { c.Lifecycle.CancelCompensationPercent = 101 },
			wantErr:   true,
			errString: "cancel_compensation_percent",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAPIConfig()
			tt.mutate(cfg)

			err := cfg.ValidateAPIConfig()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateReconcilerConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			RabbitMQ: RabbitMQConfig{
				Host:  "localhost",
				Queue: QueueConfig{Name: "escrow.reconcile.intents"},
			},
			Ledger: LedgerConfig{BaseURL: "http://localhost:9090"},
			Reconciler: ReconcilerConfig{
				Concurrency:     4,
				LedgerTimeout:   10 * time.Second,
				ShutdownTimeout: 30 * time.Second,
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, valid().ValidateReconcilerConfig())
	})

	t.Run("zero concurrency", func(t *testing.T) {
		cfg := valid()
		cfg.Reconciler.Concurrency = 0
		err := cfg.ValidateReconcilerConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "concurrency")
	})

	t.Run("missing queue name", func(t *testing.T) {
		cfg := valid()
		cfg.RabbitMQ.Queue.Name = ""
		err := cfg.ValidateReconcilerConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "queue name")
	})
}
