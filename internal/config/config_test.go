package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("EXTRACTION_PROVIDER", "")
	t.Setenv("KINTONE_BASE_URL", "")
	t.Setenv("KINTONE_SUBDOMAIN", "")
	t.Setenv("APP_TIMEZONE", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ExtractionProvider != "gemini" {
		t.Fatalf("expected gemini provider by default, got %s", cfg.ExtractionProvider)
	}
	if cfg.Timezone != "Asia/Tokyo" {
		t.Fatalf("expected Asia/Tokyo timezone, got %s", cfg.Timezone)
	}
	if cfg.ExtractionTimeout != 120*time.Second {
		t.Fatalf("expected default extraction timeout, got %s", cfg.ExtractionTimeout)
	}
	if cfg.ExtractionRatePerMin != 10 || cfg.ExtractionRateBurst != 5 {
		t.Fatalf("expected default extraction rate 10/min burst 5, got %d/%d", cfg.ExtractionRatePerMin, cfg.ExtractionRateBurst)
	}
	if cfg.KintoneBaseURL != "" {
		t.Fatalf("expected empty kintone base url, got %s", cfg.KintoneBaseURL)
	}
	if cfg.KintoneConfigured() {
		t.Fatalf("expected kintone to be unconfigured")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EXTRACTION_PROVIDER", " Bedrock ")
	t.Setenv("EXTRACTION_TIMEOUT", "45s")
	t.Setenv("KINTONE_SUBDOMAIN", "example")
	t.Setenv("KINTONE_APP_ID", "12")
	t.Setenv("KINTONE_API_TOKEN", "tok-a")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("EXTRACTION_RATE_PER_MINUTE", "0")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.ExtractionProvider != "bedrock" {
		t.Fatalf("expected normalized provider, got %q", cfg.ExtractionProvider)
	}
	if cfg.ExtractionTimeout != 45*time.Second {
		t.Fatalf("expected timeout override, got %s", cfg.ExtractionTimeout)
	}
	if cfg.KintoneBaseURL != "https://example.cybozu.com" {
		t.Fatalf("expected derived base url, got %s", cfg.KintoneBaseURL)
	}
	if !cfg.KintoneConfigured() {
		t.Fatalf("expected kintone to be configured")
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 cors origins, got %v", cfg.CORSAllowedOrigins)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if cfg.ExtractionRatePerMin != 0 {
		t.Fatalf("expected rate limit disabled, got %d", cfg.ExtractionRatePerMin)
	}
}

func TestKintoneBaseURLPrefersExplicit(t *testing.T) {
	t.Setenv("KINTONE_BASE_URL", "http://localhost:9999/")
	t.Setenv("KINTONE_SUBDOMAIN", "ignored")
	cfg := Load()
	if cfg.KintoneBaseURL != "http://localhost:9999" {
		t.Fatalf("expected explicit base url, got %s", cfg.KintoneBaseURL)
	}
}

func TestKintoneSubmitToken(t *testing.T) {
	cfg := &Config{KintoneAPIToken: "main"}
	if got := cfg.KintoneSubmitToken(); got != "main" {
		t.Fatalf("expected single token, got %s", got)
	}
	cfg.KintoneClientAPIToken = "client"
	if got := cfg.KintoneSubmitToken(); got != "main,client" {
		t.Fatalf("expected combined token, got %s", got)
	}
}
