package retry

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestOverrideKeepsUnsetFields(t *testing.T) {
	base := DefaultProfile()

	got := base.Override(Profile{Cooldown: 2 * time.Minute})
	if got.Cooldown != 2*time.Minute {
		t.Errorf("cooldown override not applied: %v", got.Cooldown)
	}
	if got.MaxAttempts != base.MaxAttempts {
		t.Errorf("max attempts must survive a sparse override, got %d", got.MaxAttempts)
	}
	if got.InitialBackoff != base.InitialBackoff || got.BackoffMultiplier != base.BackoffMultiplier {
		t.Errorf("backoff fields must survive a sparse override: %+v", got)
	}
	if got.FailureThreshold != base.FailureThreshold {
		t.Errorf("failure threshold must survive a sparse override, got %d", got.FailureThreshold)
	}
}

func TestOverrideFullReplacement(t *testing.T) {
	o := Profile{
		MaxAttempts:       5,
		InitialBackoff:    2 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 3.0,
		JitterFactor:      0.2,
		FailureThreshold:  10,
		Cooldown:          2 * time.Minute,
	}
	if got := DefaultProfile().Override(o); got != o {
		t.Errorf("full override must replace every field: %+v", got)
	}
}

func TestProfilePartialYAMLDecodesSparse(t *testing.T) {
	var p Profile
	if err := yaml.Unmarshal([]byte("cooldown: 120s\n"), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.Cooldown != 2*time.Minute {
		t.Errorf("cooldown = %v", p.Cooldown)
	}

	// The decoded profile is sparse on purpose; merging over the default
	// budget restores everything the file did not mention.
	merged := DefaultProfile().Override(p)
	if merged.MaxAttempts != 3 || merged.InitialBackoff != time.Second {
		t.Errorf("merged profile lost defaults: %+v", merged)
	}
	if merged.Cooldown != 2*time.Minute {
		t.Errorf("merged profile lost the override: %+v", merged)
	}
}

func TestProfileYAMLRejectsBadDuration(t *testing.T) {
	var p Profile
	if err := yaml.Unmarshal([]byte("initial_backoff: fast\n"), &p); err == nil {
		t.Fatal("expected a duration parse error")
	}
}
