package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CRAWLER_DATABASE_URL
// for database.url.
const EnvPrefix = "CRAWLER"

// Config holds the application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Store     StoreConfig     `mapstructure:"store"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Dedup     DedupConfig     `mapstructure:"dedup"`
	Processor ProcessorConfig `mapstructure:"processor"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Server    ServerConfig    `mapstructure:"server"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int32  `mapstructure:"max_conns"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"` // postgres or memory
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DedupConfig struct {
	Backend string        `mapstructure:"backend"` // memory or redis
	TTL     time.Duration `mapstructure:"ttl"`
}

type ProcessorConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`
	JobDelay       time.Duration `mapstructure:"job_delay"`
	SleepInterval  time.Duration `mapstructure:"sleep_interval"`
	MaxStoreErrors int           `mapstructure:"max_store_errors"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
}

type ExtractorConfig struct {
	Mode      string        `mapstructure:"mode"` // http or chromedp
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("dedup.backend", "memory")
	v.SetDefault("dedup.ttl", 24*time.Hour)
	v.SetDefault("processor.batch_size", 10)
	v.SetDefault("processor.job_delay", 2*time.Second)
	v.SetDefault("processor.sleep_interval", 60*time.Second)
	v.SetDefault("processor.max_store_errors", 5)
	v.SetDefault("processor.retry_backoff", 5*time.Second)
	v.SetDefault("extractor.mode", "http")
	v.SetDefault("extractor.timeout", 30*time.Second)
	v.SetDefault("extractor.user_agent", "")
	v.SetDefault("server.port", "8080")
}

// Load reads configuration from an optional file and from CRAWLER_*
// environment variables, which take precedence. An empty path skips the
// file.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "postgres":
		if c.Database.URL == "" {
			errs = append(errs, errors.New("database.url is required with the postgres store"))
		}
	case "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown store.driver %q", c.Store.Driver))
	}
	switch c.Dedup.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required with the redis dedup backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dedup.backend %q", c.Dedup.Backend))
	}
	switch c.Extractor.Mode {
	case "http", "chromedp":
	default:
		errs = append(errs, fmt.Errorf("unknown extractor.mode %q", c.Extractor.Mode))
	}
	if c.Processor.BatchSize <= 0 {
		errs = append(errs, errors.New("processor.batch_size must be positive"))
	}
	return errors.Join(errs...)
}
