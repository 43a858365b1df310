// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type HTTPConfig struct {
	Port         int           `yaml:"port"`
	FinalURL     string        `yaml:"final_url"` // frontend page that renders the checkout result
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	// Upper bound for a whole request, including gateway calls and the commit.
	RequestTimeout time.Duration `yaml:"request_timeout"`
	// CreateRateLimit caps checkout creations per user per minute; 0 disables it.
	CreateRateLimit int `yaml:"create_rate_limit"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // host:port; empty disables the callback guard and plan cache
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type WebpayConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKeyID     string        `yaml:"api_key_id"`
	APIKeySecret string        `yaml:"api_key_secret"`
	ReturnURL    string        `yaml:"return_url"` // our /checkout/return as seen by the gateway
	Timeout      time.Duration `yaml:"timeout"`
	// Fake swaps the REST client for an in-process gateway that approves everything.
	Fake bool `yaml:"fake"`
}

type CheckoutConfig struct {
	DefaultAmount int64         `yaml:"default_amount"`
	AmountPolicy  string        `yaml:"amount_policy"` // trust_gateway | reject_mismatch
	DuplicateWait time.Duration `yaml:"duplicate_wait"`
	OutcomeTTL    time.Duration `yaml:"outcome_ttl"`
	CommitTimeout time.Duration `yaml:"commit_timeout"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type KafkaConfig struct {
	Brokers []string `yaml:"brokers"` // empty disables event publishing
	Topic   string   `yaml:"topic"`
	Workers int      `yaml:"workers"`
}

type AlertsConfig struct {
	Language string `yaml:"language"` // en|es, alert message language
	Telegram struct {
		Token   string  `yaml:"token"`
		ChatIDs []int64 `yaml:"chat_ids"`
	} `yaml:"telegram"`
}

type ReconcilerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Batch    int           `yaml:"batch"`
}

type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Webpay     WebpayConfig     `yaml:"webpay"`
	Checkout   CheckoutConfig   `yaml:"checkout"`
	Auth       AuthConfig       `yaml:"auth"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

const (
	AmountPolicyTrustGateway   = "trust_gateway"
	AmountPolicyRejectMismatch = "reject_mismatch"

	// Transbank integration environment.
	DefaultWebpayBaseURL = "https://webpay3gint.transbank.cl"
)

// LoadConfig reads the YAML file at path, applies environment overrides
// (an optional .env file is loaded first), fills defaults and validates.
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// .env is optional; a missing file is not an error.
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	override(&cfg.Database.URL, "DATABASE_URL")
	override(&cfg.Redis.URL, "REDIS_URL")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	override(&cfg.Webpay.APIKeyID, "WEBPAY_API_KEY_ID")
	override(&cfg.Webpay.APIKeySecret, "WEBPAY_API_KEY_SECRET")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Alerts.Telegram.Token, "TELEGRAM_BOT_TOKEN")
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 10 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 40 * time.Second
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Webpay.BaseURL == "" {
		cfg.Webpay.BaseURL = DefaultWebpayBaseURL
	}
	if cfg.Webpay.Timeout <= 0 {
		cfg.Webpay.Timeout = 10 * time.Second
	}
	if cfg.Checkout.DefaultAmount <= 0 {
		cfg.Checkout.DefaultAmount = 1000
	}
	if cfg.Checkout.AmountPolicy == "" {
		cfg.Checkout.AmountPolicy = AmountPolicyTrustGateway
	}
	if cfg.Checkout.DuplicateWait <= 0 {
		cfg.Checkout.DuplicateWait = 3 * time.Second
	}
	if cfg.Checkout.OutcomeTTL <= 0 {
		cfg.Checkout.OutcomeTTL = 24 * time.Hour
	}
	if cfg.Checkout.CommitTimeout <= 0 {
		cfg.Checkout.CommitTimeout = 15 * time.Second
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "checkout-events"
	}
	if cfg.Kafka.Workers <= 0 {
		cfg.Kafka.Workers = 2
	}
	if cfg.Alerts.Language == "" {
		cfg.Alerts.Language = "en"
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.Batch <= 0 {
		cfg.Reconciler.Batch = 100
	}
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if !c.Webpay.Fake && (c.Webpay.APIKeyID == "" || c.Webpay.APIKeySecret == "") {
		return errors.New("webpay.api_key_id and webpay.api_key_secret are required")
	}
	if c.Webpay.ReturnURL == "" {
		return errors.New("webpay.return_url is required")
	}
	if c.HTTP.FinalURL == "" {
		return errors.New("http.final_url is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch c.Checkout.AmountPolicy {
	case AmountPolicyTrustGateway, AmountPolicyRejectMismatch:
	default:
		return fmt.Errorf("checkout.amount_policy must be %q or %q", AmountPolicyTrustGateway, AmountPolicyRejectMismatch)
	}
	return nil
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
