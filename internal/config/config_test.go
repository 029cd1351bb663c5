package config

import "testing"

func TestValidate_DefaultsPass(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	if err := Validate(cfg); err != nil {
		t.Fatalf("defaults should validate, got: %v", err)
	}
}

func TestValidate_CooldownOutOfRange(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Matching.CooldownSec = 5 // valid range is 10-20
	if err := Validate(cfg); err == nil {
		t.Fatal("expected ConfigInvalid for cooldown_sec=5")
	}
}

func TestValidate_ThresholdPlusBumpExceedsOne(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Matching.MatchThreshold = 0.97
	cfg.Matching.RushHourThresholdBump = 0.05
	if err := Validate(cfg); err == nil {
		t.Fatal("expected ConfigInvalid when threshold+bump exceeds 1.0")
	}
}

func TestValidate_ZeroWorkerCount(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)
	cfg.Matching.WorkerCount = 0
	// setDefaults would normally fill this in; simulate a post-default
	// mutation to exercise the guard directly.
	if err := Validate(cfg); err == nil {
		t.Fatal("expected ConfigInvalid for worker_count=0")
	}
}
