package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Monitor.Interval != 30*time.Second {
		t.Fatalf("monitor.interval = %s", cfg.Monitor.Interval)
	}
	if cfg.Monitor.Cooldown != 10*time.Minute {
		t.Fatalf("monitor.cooldown = %s", cfg.Monitor.Cooldown)
	}
	if cfg.Storage.HistoryLimit != 500 {
		t.Fatalf("storage.history_limit = %d", cfg.Storage.HistoryLimit)
	}
	if cfg.Risk.ModelHigh != "gpt-4o" || cfg.Risk.ModelLow != "gpt-4o-mini" {
		t.Fatalf("risk models = %q / %q", cfg.Risk.ModelHigh, cfg.Risk.ModelLow)
	}
	if cfg.Demo.DefaultTTL != 3*time.Minute {
		t.Fatalf("demo.default_ttl = %s", cfg.Demo.DefaultTTL)
	}
}

func TestLoadFileOverridesAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := []byte("monitor:\n  interval: 45s\nrisk:\n  model_high: gpt-4.1\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("VIBEGUARD_MONITOR_COOLDOWN", "5m")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Monitor.Interval != 45*time.Second {
		t.Fatalf("monitor.interval = %s", cfg.Monitor.Interval)
	}
	if cfg.Risk.ModelHigh != "gpt-4.1" {
		t.Fatalf("risk.model_high = %q", cfg.Risk.ModelHigh)
	}
	if cfg.Monitor.Cooldown != 5*time.Minute {
		t.Fatalf("环境变量未覆盖 cooldown: %s", cfg.Monitor.Cooldown)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg.Monitor.Interval = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero interval must fail validation")
	}

	cfg, _ = Load("")
	cfg.Risk.BadSentimentThreshold = 150
	if err := cfg.Validate(); err == nil {
		t.Fatal("out-of-range sentiment threshold must fail validation")
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 1000}}
	if got := cfg.ResolveMaxPoints(0); got != 1000 {
		t.Fatalf("ResolveMaxPoints(0) = %d", got)
	}
	if got := cfg.ResolveMaxPoints(25); got != 25 {
		t.Fatalf("ResolveMaxPoints(25) = %d", got)
	}
}
