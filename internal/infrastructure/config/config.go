package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "msgdeck/internal/shared/config"
)

type Config struct {
	Server     sharedConfig.ServerConfig     `mapstructure:"server"`
	Database   sharedConfig.DatabaseConfig   `mapstructure:"database"`
	Logger     sharedConfig.LoggerConfig     `mapstructure:"logger"`
	Auth       sharedConfig.AuthConfig       `mapstructure:"auth"`
	Redis      sharedConfig.RedisConfig      `mapstructure:"redis"`
	Cache      sharedConfig.CacheConfig      `mapstructure:"cache"`
	Billing    sharedConfig.BillingConfig    `mapstructure:"billing"`
	Events     sharedConfig.EventsConfig     `mapstructure:"events"`
	Scheduler  sharedConfig.SchedulerConfig  `mapstructure:"scheduler"`
	Metrics    sharedConfig.MetricsConfig    `mapstructure:"metrics"`
	Permission sharedConfig.PermissionConfig `mapstructure:"permission"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml (or configPath when set) and overlays MSGDECK_* env vars.
// A missing config file is tolerated; defaults and env vars still apply.
func Load(env string, configPath ...string) (*Config, error) {
	v := viper.New()

	if len(configPath) > 0 && configPath[0] != "" {
		v.SetConfigFile(configPath[0])
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix("MSGDECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Billing.Currency = strings.ToUpper(cfg.Billing.Currency)

	appConfigMu.Lock()
	appConfig = &cfg
	appConfigMu.Unlock()

	return &cfg, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.timezone", "UTC")
	v.SetDefault("server.request_timeout_ms", 15000)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.database", "msgdeck_dev")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)
	v.SetDefault("database.slow_query_ms", 200)
	v.SetDefault("database.retry.max_attempts", 3)
	v.SetDefault("database.retry.initial_delay_ms", 100)
	v.SetDefault("database.retry.max_delay_ms", 2000)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 7)
	v.SetDefault("logger.max_age_days", 30)

	v.SetDefault("auth.jwt.secret", "change-me-in-production")
	v.SetDefault("auth.jwt.issuer", "msgdeck")
	v.SetDefault("auth.jwt.access_exp_minutes", 60)

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.min_retry_backoff_ms", 8)
	v.SetDefault("redis.max_retry_backoff_ms", 512)
	v.SetDefault("redis.dial_timeout_ms", 2000)

	v.SetDefault("cache.driver", "redis")
	v.SetDefault("cache.key_prefix", "msgdeck:")
	v.SetDefault("cache.plan_ttl_seconds", 600)
	v.SetDefault("cache.promo_ttl_seconds", 300)
	v.SetDefault("cache.usage_ttl_seconds", 300)
	v.SetDefault("cache.subscription_ttl_seconds", 300)

	v.SetDefault("billing.currency", "USD")
	v.SetDefault("billing.subscribe_timeout_ms", 10000)
	v.SetDefault("billing.payment_confirmation", "immediate")

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.nats_url", "nats://localhost:4222")
	v.SetDefault("events.subject_prefix", "msgdeck.billing")

	v.SetDefault("scheduler.expire_spec", "@every 1h")
	v.SetDefault("scheduler.monthly_reset_spec", "5 0 1 * *")
	v.SetDefault("scheduler.plan_warm_spec", "@every 10m")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "msgdeck")

	v.SetDefault("permission.seed_defaults", true)
}
