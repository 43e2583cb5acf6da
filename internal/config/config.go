package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/marketlens/marketlens/internal/core"
)

type Config struct {
	Server     Server               `mapstructure:"server"`
	Storage    Storage              `mapstructure:"storage"`
	Collectors map[string]Collector `mapstructure:"collectors"`
	Backtest   Backtest             `mapstructure:"backtest"`
	Metrics    Metrics              `mapstructure:"metrics"`
	Logging    Logging              `mapstructure:"logging"`
}

type Server struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	JobTTLHours int    `mapstructure:"job_ttl_hours"`
	MaxJobs     int    `mapstructure:"max_jobs"`
}

type Storage struct {
	Hot  HotStorage  `mapstructure:"hot"`
	Cold ColdStorage `mapstructure:"cold"`
}

// HotStorage is the SQLite run history.
type HotStorage struct {
	DSN           string `mapstructure:"dsn"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// ColdStorage is the report archive.
type ColdStorage struct {
	Type string `mapstructure:"type"` // "localfs" or "s3"
	Path string `mapstructure:"path"` // for localfs
	S3   S3     `mapstructure:"s3"`
}

type S3 struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

type Collector struct {
	Enabled  bool   `mapstructure:"enabled"`
	Interval string `mapstructure:"interval"`
	Path     string `mapstructure:"path"` // for csvfile
}

// Backtest holds the engine parameters applied when a request does not
// override them.
type Backtest struct {
	InitialCapital float64 `mapstructure:"initial_capital"`
	Commission     float64 `mapstructure:"commission"`
	Strategy       string  `mapstructure:"strategy"`
}

type Metrics struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type Logging struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Server: Server{
			Host:        "0.0.0.0",
			Port:        8080,
			JobTTLHours: 1,
			MaxJobs:     100,
		},
		Storage: Storage{
			Hot: HotStorage{
				DSN:           "marketlens.db",
				RetentionDays: 90,
			},
			Cold: ColdStorage{
				Type: "localfs",
				Path: "archive",
			},
		},
		Backtest: Backtest{
			InitialCapital: 1_000_000,
			Commission:     0.002,
			Strategy:       "macd_crossover",
		},
		Metrics: Metrics{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: Logging{
			Level: "info",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if c.Backtest.InitialCapital <= 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("initial_capital must be positive, got %f", c.Backtest.InitialCapital))
	}
	if c.Backtest.Commission < 0 || c.Backtest.Commission >= 1 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("commission must be in [0, 1), got %f", c.Backtest.Commission))
	}

	switch c.Storage.Cold.Type {
	case "", "localfs":
	case "s3":
		if c.Storage.Cold.S3.Bucket == "" {
			return core.WrapError(core.ErrConfigMissing,
				fmt.Errorf("s3 bucket required when cold storage type is s3"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("unknown cold storage type: %s", c.Storage.Cold.Type))
	}

	return nil
}
