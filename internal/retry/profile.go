package retry

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Operation names for the configured downstreams. Browser-origin variants
// carry smaller budgets.
const (
	OpSendToAdsAPI              = "send-to-ads-api"
	OpSendToAnalyticsAPI        = "send-to-analytics-api"
	OpBrowserSendToAdsAPI       = "browser-send-to-ads-api"
	OpBrowserSendToAnalyticsAPI = "browser-send-to-analytics-api"
)

// Profile is the per-operation retry and circuit-breaking budget.
type Profile struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	InitialBackoff    time.Duration `yaml:"initial_backoff"`
	MaxBackoff        time.Duration `yaml:"max_backoff"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	JitterFactor      float64       `yaml:"jitter_factor"` // 0.0-1.0, fraction of delay added as jitter
	FailureThreshold  int           `yaml:"failure_threshold"`
	Cooldown          time.Duration `yaml:"cooldown"`
}

// UnmarshalYAML accepts Go duration strings ("500ms", "60s") for the backoff
// and cooldown fields.
func (p *Profile) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		MaxAttempts       int     `yaml:"max_attempts"`
		InitialBackoff    string  `yaml:"initial_backoff"`
		MaxBackoff        string  `yaml:"max_backoff"`
		BackoffMultiplier float64 `yaml:"backoff_multiplier"`
		JitterFactor      float64 `yaml:"jitter_factor"`
		FailureThreshold  int     `yaml:"failure_threshold"`
		Cooldown          string  `yaml:"cooldown"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	p.MaxAttempts = raw.MaxAttempts
	p.BackoffMultiplier = raw.BackoffMultiplier
	p.JitterFactor = raw.JitterFactor
	p.FailureThreshold = raw.FailureThreshold

	var err error
	if p.InitialBackoff, err = parseDuration(raw.InitialBackoff); err != nil {
		return fmt.Errorf("initial_backoff: %w", err)
	}
	if p.MaxBackoff, err = parseDuration(raw.MaxBackoff); err != nil {
		return fmt.Errorf("max_backoff: %w", err)
	}
	if p.Cooldown, err = parseDuration(raw.Cooldown); err != nil {
		return fmt.Errorf("cooldown: %w", err)
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// Override returns p with o's non-zero fields applied. A sparse override
// adjusts single knobs; everything it leaves at zero keeps p's value.
func (p Profile) Override(o Profile) Profile {
	if o.MaxAttempts != 0 {
		p.MaxAttempts = o.MaxAttempts
	}
	if o.InitialBackoff != 0 {
		p.InitialBackoff = o.InitialBackoff
	}
	if o.MaxBackoff != 0 {
		p.MaxBackoff = o.MaxBackoff
	}
	if o.BackoffMultiplier != 0 {
		p.BackoffMultiplier = o.BackoffMultiplier
	}
	if o.JitterFactor != 0 {
		p.JitterFactor = o.JitterFactor
	}
	if o.FailureThreshold != 0 {
		p.FailureThreshold = o.FailureThreshold
	}
	if o.Cooldown != 0 {
		p.Cooldown = o.Cooldown
	}
	return p
}

func (p Profile) backoff() *Backoff {
	return &Backoff{
		BaseDelay: p.InitialBackoff,
		MaxDelay:  p.MaxBackoff,
		Factor:    p.BackoffMultiplier,
		Jitter:    p.JitterFactor,
	}
}

// DefaultProfile is used for operation names with no configured profile.
func DefaultProfile() Profile {
	return Profile{
		MaxAttempts:       3,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor:      0.1,
		FailureThreshold:  5,
		Cooldown:          60 * time.Second,
	}
}

// DefaultProfiles returns the budgets for every known operation.
func DefaultProfiles() map[string]Profile {
	ads := DefaultProfile()

	analytics := Profile{
		MaxAttempts:       2,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		JitterFactor:      0.1,
		FailureThreshold:  5,
		Cooldown:          60 * time.Second,
	}

	browserAds := ads
	browserAds.MaxAttempts = ads.MaxAttempts - 1
	browserAnalytics := analytics
	browserAnalytics.MaxAttempts = analytics.MaxAttempts - 1

	return map[string]Profile{
		OpSendToAdsAPI:              ads,
		OpSendToAnalyticsAPI:        analytics,
		OpBrowserSendToAdsAPI:       browserAds,
		OpBrowserSendToAnalyticsAPI: browserAnalytics,
	}
}
