package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host             string   `mapstructure:"host"`
	Port             int      `mapstructure:"port"`
	Mode             string   `mapstructure:"mode"`
	Timezone         string   `mapstructure:"timezone"`
	RequestTimeoutMS int      `mapstructure:"request_timeout_ms"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RequestTimeout is the per-request deadline applied by the timeout middleware.
func (s *ServerConfig) RequestTimeout() time.Duration {
	if s.RequestTimeoutMS <= 0 {
		return 15 * time.Second
	}
	return time.Duration(s.RequestTimeoutMS) * time.Millisecond
}

// DatabaseConfig selects a gorm dialector by Driver: mysql, postgres or sqlite.
// For sqlite, Database is the file path (":memory:" is allowed).
type DatabaseConfig struct {
	Driver          string      `mapstructure:"driver"`
	Host            string      `mapstructure:"host"`
	Port            int         `mapstructure:"port"`
	Username        string      `mapstructure:"username"`
	Password        string      `mapstructure:"password"`
	Database        string      `mapstructure:"database"`
	SSLMode         string      `mapstructure:"ssl_mode"`
	MaxIdleConns    int         `mapstructure:"max_idle_conns"`
	MaxOpenConns    int         `mapstructure:"max_open_conns"`
	ConnMaxLifetime int         `mapstructure:"conn_max_lifetime"`
	SlowQueryMS     int         `mapstructure:"slow_query_ms"`
	Retry           RetryConfig `mapstructure:"retry"`
}

func (d *DatabaseConfig) GetDSN() string {
	switch d.Driver {
	case "postgres":
		sslMode := d.SSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			d.Host, d.Port, d.Username, d.Password, d.Database, sslMode)
	case "sqlite":
		return d.Database
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&collation=utf8mb4_general_ci&parseTime=true&loc=UTC",
			d.Username, d.Password, d.Host, d.Port, d.Database)
	}
}

// RetryConfig bounds the backoff used for transient infrastructure failures.
type RetryConfig struct {
	MaxAttempts    int `mapstructure:"max_attempts"`
	InitialDelayMS int `mapstructure:"initial_delay_ms"`
	MaxDelayMS     int `mapstructure:"max_delay_ms"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type JWTConfig struct {
	Secret           string `mapstructure:"secret"`
	Issuer           string `mapstructure:"issuer"`
	AccessExpMinutes int    `mapstructure:"access_exp_minutes"`
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type RedisConfig struct {
	Host              string `mapstructure:"host"`
	Port              int    `mapstructure:"port"`
	Password          string `mapstructure:"password"`
	DB                int    `mapstructure:"db"`
	MaxRetries        int    `mapstructure:"max_retries"`
	MinRetryBackoffMS int    `mapstructure:"min_retry_backoff_ms"`
	MaxRetryBackoffMS int    `mapstructure:"max_retry_backoff_ms"`
	DialTimeoutMS     int    `mapstructure:"dial_timeout_ms"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// CacheConfig chooses the cache backend ("redis" or "memory") and entry lifetimes.
type CacheConfig struct {
	Driver             string `mapstructure:"driver"`
	KeyPrefix          string `mapstructure:"key_prefix"`
	PlanTTLSeconds     int    `mapstructure:"plan_ttl_seconds"`
	PromoTTLSeconds    int    `mapstructure:"promo_ttl_seconds"`
	UsageTTLSeconds    int    `mapstructure:"usage_ttl_seconds"`
	SubscriptionTTLSec int    `mapstructure:"subscription_ttl_seconds"`
}

func seconds(n, fallback int) time.Duration {
	if n <= 0 {
		n = fallback
	}
	return time.Duration(n) * time.Second
}

func (c *CacheConfig) PlanTTL() time.Duration         { return seconds(c.PlanTTLSeconds, 600) }
func (c *CacheConfig) PromoTTL() time.Duration        { return seconds(c.PromoTTLSeconds, 300) }
func (c *CacheConfig) UsageTTL() time.Duration        { return seconds(c.UsageTTLSeconds, 300) }
func (c *CacheConfig) SubscriptionTTL() time.Duration { return seconds(c.SubscriptionTTLSec, 300) }

type BillingConfig struct {
	Currency            string `mapstructure:"currency"`
	SubscribeTimeoutMS  int    `mapstructure:"subscribe_timeout_ms"`
	PaymentConfirmation string `mapstructure:"payment_confirmation"`
}

func (b *BillingConfig) SubscribeTimeout() time.Duration {
	if b.SubscribeTimeoutMS <= 0 {
		return 10 * time.Second
	}
	return time.Duration(b.SubscribeTimeoutMS) * time.Millisecond
}

type EventsConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	NatsURL       string `mapstructure:"nats_url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type SchedulerConfig struct {
	ExpireSpec       string `mapstructure:"expire_spec"`
	MonthlyResetSpec string `mapstructure:"monthly_reset_spec"`
	PlanWarmSpec     string `mapstructure:"plan_warm_spec"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
}

type PermissionConfig struct {
	SeedDefaults bool `mapstructure:"seed_defaults"`
}
