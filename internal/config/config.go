// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"brokerage-ledger/internal/domain"
	"brokerage-ledger/pkg/db" // Import db package for its Config struct
)

// EnvPrefix prefixes every environment override, e.g. LEDGER_DATABASE_HOST.
const EnvPrefix = "LEDGER"

// AppConfig holds all application-wide configurations.
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Rates    RatesConfig    `mapstructure:"rates"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// DatabaseConfig selects the store. Driver "memory" keeps everything in process
// and is meant for development and tests.
type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"`
	URL       string `mapstructure:"url"` // overrides the discrete fields when set
	db.Config `mapstructure:",squash"`
}

type LedgerConfig struct {
	LockTimeout      time.Duration     `mapstructure:"lock_timeout"`
	PublishTimeout   time.Duration     `mapstructure:"publish_timeout"`
	DepositAddresses map[string]string `mapstructure:"deposit_addresses"`
}

// RatesConfig configures the price feed. Provider "static" never refreshes.
type RatesConfig struct {
	Provider        string        `mapstructure:"provider"`
	BaseURL         string        `mapstructure:"base_url"`
	APIKey          string        `mapstructure:"api_key"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
}

// RedisConfig locates the shared rate snapshot. An empty Addr disables it.
type RedisConfig struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	SnapshotKey string        `mapstructure:"snapshot_key"`
	SnapshotTTL time.Duration `mapstructure:"snapshot_ttl"`
}

// KafkaConfig locates the ledger event topic. No brokers disables publishing.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Production bool   `mapstructure:"production"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ledger")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("ledger.lock_timeout", 2*time.Second)
	v.SetDefault("ledger.publish_timeout", 500*time.Millisecond)
	v.SetDefault("ledger.deposit_addresses", map[string]string{
		"btc":  "1EwSeZbK8RW5EgRc96RnhjcLmGQA6zZ2RV",
		"eth":  "0x4c2bba6f32aa4b804c43dd25c4c3c311dd8016cf",
		"usdt": "TFBXLYCcuDLJqkN7ggxzfKMHmW64L7u9AA",
		"usdc": "TFBXLYCcuDLJqkN7ggxzfKMHmW64L7u9AA",
	})

	v.SetDefault("rates.provider", "coingecko")
	v.SetDefault("rates.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("rates.api_key", "")
	v.SetDefault("rates.timeout", 10*time.Second)
	v.SetDefault("rates.refresh_interval", 30*time.Second)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.snapshot_key", "ledger:rates:snapshot")
	v.SetDefault("redis.snapshot_ttl", 24*time.Hour)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "ledger.events")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.production", true)
}

// LoadConfig loads configuration from .env, an optional config.yaml and
// LEDGER_* environment variables, in increasing order of precedence.
// LEDGER_CONFIG_FILE points at a config file outside the search path.
func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := os.Getenv(EnvPrefix + "_CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the application cannot start with.
func (c *AppConfig) Validate() error {
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("invalid database.driver %q: want postgres or memory", c.Database.Driver)
	}
	switch c.Rates.Provider {
	case "coingecko", "static":
	default:
		return fmt.Errorf("invalid rates.provider %q: want coingecko or static", c.Rates.Provider)
	}
	if c.Ledger.LockTimeout <= 0 {
		return fmt.Errorf("ledger.lock_timeout must be positive")
	}
	if c.Rates.Provider != "static" && c.Rates.RefreshInterval <= 0 {
		return fmt.Errorf("rates.refresh_interval must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if _, err := c.Ledger.Addresses(); err != nil {
		return err
	}
	return nil
}

// Addresses returns the platform deposit addresses keyed by currency.
func (l LedgerConfig) Addresses() (map[domain.Currency]string, error) {
	out := make(map[domain.Currency]string, len(l.DepositAddresses))
	for code, address := range l.DepositAddresses {
		c, err := domain.ParseCurrency(code)
		if err != nil || !c.IsCrypto() {
			return nil, fmt.Errorf("invalid ledger.deposit_addresses key %q", code)
		}
		out[c] = address
	}
	return out, nil
}
