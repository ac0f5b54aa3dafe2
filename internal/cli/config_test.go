package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/policyvoice/corroborate/internal/model"
)

func newTestViper(t *testing.T) *viper.Viper {
	t.Helper()
	v := viper.New()
	if err := registerDefaults(v, model.DefaultConfig()); err != nil {
		t.Fatalf("registerDefaults: %v", err)
	}
	setupEnv(v)
	return v
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	want := model.DefaultConfig()
	if cfg.HTTP.Timeout != want.HTTP.Timeout {
		t.Errorf("HTTP.Timeout = %v, want %v", cfg.HTTP.Timeout, want.HTTP.Timeout)
	}
	if cfg.Scoring.Baselines[model.AdapterEmergency] != 70 {
		t.Errorf("emergency baseline = %d, want 70", cfg.Scoring.Baselines[model.AdapterEmergency])
	}
	if cfg.Accounts[model.AccountCensus].Window != 24*time.Hour {
		t.Errorf("census window = %v", cfg.Accounts[model.AccountCensus].Window)
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("CORROBORATE_HTTP_TIMEOUT", "10s")
	t.Setenv("CORROBORATE_CONCURRENCY_WORKERS", "12")
	t.Setenv("CORROBORATE_SOURCES_CLIMATE_ENABLED", "false")

	cfg, err := loadConfig(newTestViper(t))
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.HTTP.Timeout != 10*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 10s", cfg.HTTP.Timeout)
	}
	if cfg.Concurrency.Workers != 12 {
		t.Errorf("Workers = %d, want 12", cfg.Concurrency.Workers)
	}
	climate := cfg.Sources[model.AdapterClimate]
	if climate.Enabled {
		t.Error("climate should be disabled by environment")
	}
	if climate.BaseURL == "" {
		t.Error("climate base URL should keep its default")
	}
}

func TestLoadConfig_FileMergesOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
concurrency:
  workers: 9
sources:
  energy:
    enabled: false
quota:
  backend: redis
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	v := newTestViper(t)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := loadConfig(v)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Concurrency.Workers != 9 {
		t.Errorf("Workers = %d, want 9", cfg.Concurrency.Workers)
	}
	if cfg.Concurrency.RequestsPerSecond != 5 {
		t.Errorf("RequestsPerSecond = %v, want default 5", cfg.Concurrency.RequestsPerSecond)
	}
	energy := cfg.Sources[model.AdapterEnergy]
	if energy.Enabled || energy.BaseURL != "https://api.eia.gov/v2" {
		t.Errorf("energy = %+v", energy)
	}
	if cfg.Quota.Backend != "redis" || cfg.Quota.RedisAddr != "localhost:6379" {
		t.Errorf("quota = %+v", cfg.Quota)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	if err := writeDefaultConfig(path); err != nil {
		t.Fatalf("writeDefaultConfig: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "verified_threshold: 60") {
		t.Errorf("config missing scoring defaults:\n%s", data)
	}

	if err := writeDefaultConfig(path); err == nil {
		t.Error("expected error when the file already exists")
	}
}

func TestRedactKeys(t *testing.T) {
	cfg := model.DefaultConfig()
	src := cfg.Sources[model.AdapterEnergy]
	src.APIKey = "secret"
	cfg.Sources[model.AdapterEnergy] = src

	redacted := redactKeys(cfg)
	if redacted.Sources[model.AdapterEnergy].APIKey == "secret" {
		t.Error("API key not redacted")
	}
	if cfg.Sources[model.AdapterEnergy].APIKey != "secret" {
		t.Error("original config was modified")
	}
}
