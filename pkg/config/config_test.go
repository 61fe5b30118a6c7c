package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Success(t *testing.T) {
	setMinimalEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.App.Env != "prod" {
		t.Fatalf("expected App.Env to be prod, got %q", cfg.App.Env)
	}
	if cfg.App.Port != "8088" {
		t.Fatalf("expected default port 8088, got %q", cfg.App.Port)
	}
	if cfg.API.MaxAttempts != 3 {
		t.Fatalf("expected 3 attempts by default, got %d", cfg.API.MaxAttempts)
	}
	if cfg.Polling.GridInterval != 10*time.Second {
		t.Fatalf("expected grid interval 10s, got %v", cfg.Polling.GridInterval)
	}
	if got := cfg.Polling.BillInterval; got != 5*time.Second {
		t.Fatalf("expected bill interval 5s, got %v", got)
	}
	if cfg.Polling.PageSize != 100 {
		t.Fatalf("expected page size 100, got %d", cfg.Polling.PageSize)
	}
	if cfg.Fiscal.Model != "65" || cfg.Fiscal.Series != 1 {
		t.Fatalf("unexpected fiscal defaults %+v", cfg.Fiscal)
	}
	if !cfg.Store.UsesSQL() || cfg.DB.DSN != cfg.Store.DSN {
		t.Fatalf("expected sqlite store mirrored into DB config, got %+v / %+v", cfg.Store, cfg.DB)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setMinimalEnv(t)
	if err := os.Unsetenv(EnvAPIBaseURL); err != nil {
		t.Fatalf("failed to unset %s: %v", EnvAPIBaseURL, err)
	}

	if _, err := Load(); err == nil {
		t.Fatal("expected missing required env to return an error")
	}
}

func TestLoad_RejectsUnknownStoreDriver(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvStoreDriver, "localstorage")

	if _, err := Load(); err == nil {
		t.Fatal("expected unsupported driver to fail")
	}
}

func TestLoad_RejectsNonHTTPBaseURL(t *testing.T) {
	setMinimalEnv(t)
	t.Setenv(EnvAPIBaseURL, "ftp://erp.local")

	if _, err := Load(); err == nil {
		t.Fatal("expected non-http base url to fail")
	}
}

func setMinimalEnv(t *testing.T) {
	t.Helper()

	t.Setenv(EnvAppEnv, "prod")
	t.Setenv(EnvAPIBaseURL, "https://erp.example.com/api")
	t.Setenv(EnvAPITenant, "restaurante-centro")
	t.Setenv(EnvAPIAccessToken, "token")
}

func TestAppConfigEnvHelpers(t *testing.T) {
	devConfig := AppConfig{Env: "DEV"}
	if !devConfig.IsDev() {
		t.Fatalf("expected IsDev true for %q", devConfig.Env)
	}
	if devConfig.IsProd() {
		t.Fatalf("expected IsProd false for %q", devConfig.Env)
	}

	prodConfig := AppConfig{Env: "prod"}
	if !prodConfig.IsProd() {
		t.Fatalf("expected IsProd true for %q", prodConfig.Env)
	}
	if prodConfig.IsDev() {
		t.Fatalf("expected IsDev false for %q", prodConfig.Env)
	}
}
