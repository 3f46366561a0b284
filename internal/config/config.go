package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/marconicastro/zeropragas-sub000/internal/retry"
)

const (
	DefaultConfigFileName = "zeropragas.yaml"
	DefaultListenAddr     = ":8080"
)

type AdsConfig struct {
	PixelID       string `yaml:"pixel_id"`
	AccessToken   string `yaml:"access_token"`
	APIBase       string `yaml:"api_base"`
	TestEventCode string `yaml:"test_event_code"`
}

func (c AdsConfig) Enabled() bool {
	return c.PixelID != "" && c.AccessToken != ""
}

type AnalyticsConfig struct {
	MeasurementID string `yaml:"measurement_id"`
	APISecret     string `yaml:"api_secret"`
	APIBase       string `yaml:"api_base"`
}

func (c AnalyticsConfig) Enabled() bool {
	return c.MeasurementID != "" && c.APISecret != ""
}

type DedupConfig struct {
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

// UnmarshalYAML accepts Go duration strings ("5m") for the TTL and keeps the
// defaults for fields the file omits.
func (c *DedupConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		TTL        string `yaml:"ttl"`
		MaxEntries int    `yaml:"max_entries"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.TTL != "" {
		d, err := time.ParseDuration(raw.TTL)
		if err != nil {
			return fmt.Errorf("dedup.ttl: %w", err)
		}
		c.TTL = d
	}
	if raw.MaxEntries != 0 {
		c.MaxEntries = raw.MaxEntries
	}
	return nil
}

type DeliveryConfig struct {
	EventDeadline time.Duration `yaml:"event_deadline"`
	HTTPTimeout   time.Duration `yaml:"http_timeout"`
}

func (c *DeliveryConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		EventDeadline string `yaml:"event_deadline"`
		HTTPTimeout   string `yaml:"http_timeout"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.EventDeadline != "" {
		d, err := time.ParseDuration(raw.EventDeadline)
		if err != nil {
			return fmt.Errorf("delivery.event_deadline: %w", err)
		}
		c.EventDeadline = d
	}
	if raw.HTTPTimeout != "" {
		d, err := time.ParseDuration(raw.HTTPTimeout)
		if err != nil {
			return fmt.Errorf("delivery.http_timeout: %w", err)
		}
		c.HTTPTimeout = d
	}
	return nil
}

type Config struct {
	ListenAddr    string   `yaml:"listen_addr"`
	WebhookSecret string   `yaml:"webhook_secret"`
	APIKeys       []string `yaml:"api_keys"`
	NATSURL       string   `yaml:"nats_url"`
	DatabaseURL   string   `yaml:"database_url"`
	LogFile       string   `yaml:"log_file"`

	Ads       AdsConfig       `yaml:"ads"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Dedup     DedupConfig     `yaml:"dedup"`
	Delivery  DeliveryConfig  `yaml:"delivery"`

	// Retry overrides per operation name; unset operations keep defaults.
	Retry map[string]retry.Profile `yaml:"retry"`
}

func DefaultConfig() *Config {
	return &Config{
		ListenAddr: DefaultListenAddr,
		LogFile:    "zeropragas.log",
		Dedup: DedupConfig{
			TTL:        5 * time.Minute,
			MaxEntries: 50_000,
		},
		Delivery: DeliveryConfig{
			EventDeadline: 15 * time.Second,
			HTTPTimeout:   10 * time.Second,
		},
	}
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("webhook_secret is required")
	}
	if !c.Ads.Enabled() && !c.Analytics.Enabled() {
		return fmt.Errorf("at least one downstream (ads or analytics) must be configured")
	}
	return nil
}

// Profiles merges the configured retry overrides over the defaults. Override
// fields left at zero keep the operation's default, so a file can adjust a
// single knob without restating the whole budget.
func (c *Config) Profiles() map[string]retry.Profile {
	profiles := retry.DefaultProfiles()
	for op, override := range c.Retry {
		base, ok := profiles[op]
		if !ok {
			base = retry.DefaultProfile()
		}
		profiles[op] = base.Override(override)
	}
	return profiles
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = DefaultConfigFileName
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	if addr := os.Getenv("ZP_LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if secret := os.Getenv("ZP_WEBHOOK_SECRET"); secret != "" {
		cfg.WebhookSecret = secret
	}
	if url := os.Getenv("ZP_NATS_URL"); url != "" {
		cfg.NATSURL = url
	}
	if url := os.Getenv("ZP_DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	if v := os.Getenv("ZP_ADS_PIXEL_ID"); v != "" {
		cfg.Ads.PixelID = v
	}
	if v := os.Getenv("ZP_ADS_ACCESS_TOKEN"); v != "" {
		cfg.Ads.AccessToken = v
	}
	if v := os.Getenv("ZP_GA_MEASUREMENT_ID"); v != "" {
		cfg.Analytics.MeasurementID = v
	}
	if v := os.Getenv("ZP_GA_API_SECRET"); v != "" {
		cfg.Analytics.APISecret = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
