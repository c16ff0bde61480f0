// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port int `yaml:"port"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"` // empty disables the dedupe fast path
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

// MpesaConfig holds Daraja credentials. Leaving any of them empty selects the
// sandbox gateway for M-Pesa at startup.
type MpesaConfig struct {
	ConsumerKey    string `yaml:"consumer_key"`
	ConsumerSecret string `yaml:"consumer_secret"`
	Shortcode      string `yaml:"shortcode"`
	Passkey        string `yaml:"passkey"`
	BaseURL        string `yaml:"base_url"`
}

// AirtelConfig holds Airtel Money OpenAPI credentials. Leaving them empty
// selects the sandbox gateway for Airtel at startup.
type AirtelConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	BaseURL      string `yaml:"base_url"`
	Country      string `yaml:"country"`
	Currency     string `yaml:"currency"`
}

type PaymentConfig struct {
	// CallbackBaseURL is the public base of this service; providers deliver
	// asynchronous results to CallbackBaseURL + the callback route.
	CallbackBaseURL string       `yaml:"callback_base_url"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	Mpesa           MpesaConfig  `yaml:"mpesa"`
	Airtel          AirtelConfig `yaml:"airtel"`
}

// SweeperConfig controls the stale-pending sweeper. Off by default: an
// unanswered phone prompt legitimately leaves a transaction pending, and
// expiring those is operational hygiene, not ledger correctness.
type SweeperConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Interval   time.Duration `yaml:"interval"`
	StaleAfter time.Duration `yaml:"stale_after"`
}

type AdminConfig struct {
	APIKey string `yaml:"api_key"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Payment  PaymentConfig  `yaml:"payment"`
	Sweeper  SweeperConfig  `yaml:"sweeper"`
	Admin    AdminConfig    `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Payment.CallbackBaseURL == "" {
		return nil, errors.New("payment.callback_base_url is required")
	}
	cfg.Payment.CallbackBaseURL = strings.TrimRight(cfg.Payment.CallbackBaseURL, "/")

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = time.Hour
	}
	if cfg.Payment.RequestTimeout <= 0 {
		cfg.Payment.RequestTimeout = 15 * time.Second
	}
	if cfg.Payment.Mpesa.BaseURL == "" {
		cfg.Payment.Mpesa.BaseURL = "https://sandbox.safaricom.co.ke"
	}
	if cfg.Payment.Airtel.BaseURL == "" {
		cfg.Payment.Airtel.BaseURL = "https://openapiuat.airtel.africa"
	}
	if cfg.Payment.Airtel.Country == "" {
		cfg.Payment.Airtel.Country = "KE"
	}
	if cfg.Payment.Airtel.Currency == "" {
		cfg.Payment.Airtel.Currency = "KES"
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Minute
	}
	if cfg.Sweeper.StaleAfter <= 0 {
		cfg.Sweeper.StaleAfter = 30 * time.Minute
	}
}

// MpesaConfigured reports whether live Daraja credentials are present.
func (cfg *Config) MpesaConfigured() bool {
	m := cfg.Payment.Mpesa
	return m.ConsumerKey != "" && m.ConsumerSecret != "" && m.Shortcode != "" && m.Passkey != ""
}

// AirtelConfigured reports whether live Airtel credentials are present.
func (cfg *Config) AirtelConfigured() bool {
	a := cfg.Payment.Airtel
	return a.ClientID != "" && a.ClientSecret != ""
}
