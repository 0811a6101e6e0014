package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty cache path", func(c *Config) { c.Cache.Path = "" }},
		{"zero ephemeral ttl", func(c *Config) { c.Cache.EphemeralTTL = 0 }},
		{"negative durable ttl", func(c *Config) { c.Cache.DurableTTL = -1 }},
		{"zero concurrency", func(c *Config) { c.Executor.MaxConcurrentStages = 0 }},
		{"negative deadline", func(c *Config) { c.Executor.RunDeadline = Duration(-time.Second) }},
		{"zero attempts", func(c *Config) { c.Adapters.MaxAttempts = 0 }},
		{"negative rate limit", func(c *Config) { c.Adapters.RateLimitPerSecond = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestValidate_ZeroDeadlineDisables(t *testing.T) {
	cfg := Default()
	cfg.Executor.RunDeadline = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("a zero deadline is valid (disabled): %v", err)
	}
}

func TestDuration_YAMLRoundtrip(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`"90s"`), &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if d.Std() != 90*time.Second {
		t.Fatalf("expected 90s, got %s", d)
	}

	out, err := yaml.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if strings.TrimSpace(string(out)) != "1m30s" {
		t.Fatalf("unexpected marshaled form: %q", out)
	}
}

func TestDuration_JSONRoundtrip(t *testing.T) {
	var d Duration
	if err := json.Unmarshal([]byte(`"250ms"`), &d); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if d.Std() != 250*time.Millisecond {
		t.Fatalf("expected 250ms, got %s", d)
	}

	out, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `"250ms"` {
		t.Fatalf("unexpected marshaled form: %s", out)
	}
}

func TestDuration_RejectsGarbage(t *testing.T) {
	var d Duration
	if err := yaml.Unmarshal([]byte(`"soon"`), &d); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
	if err := json.Unmarshal([]byte(`"later"`), &d); err == nil {
		t.Fatal("expected an error for an unparseable duration")
	}
}
