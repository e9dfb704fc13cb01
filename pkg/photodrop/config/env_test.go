package config

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("ENVIRONMENT", "testing")
	t.Setenv("EVENT_SECRET", "from-env")
	t.Setenv("TOKEN_DEFAULT_TTL", "2h")
	t.Setenv("ENABLE_DEV_TOKEN", "true")
	t.Setenv("STORAGE_URL", "s3://photos?region=eu-west-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("MAX_FILES_PER_REQUEST", "5")
	t.Setenv("REQUIRE_IMAGE_CONTENT_TYPE", "false")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("TRUSTED_PROXY_CIDRS", "10.0.0.0/8, 192.168.0.0/16")

	cfg, err := Load(WithEnv())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8081" || cfg.Environment != EnvTesting {
		t.Errorf("server settings not applied: %q %q", cfg.Port, cfg.Environment)
	}
	if cfg.EventSecret != "from-env" {
		t.Errorf("expected secret from env, got %q", cfg.EventSecret)
	}
	if cfg.TokenDefaultTTL != 2*time.Hour {
		t.Errorf("expected 2h ttl, got %s", cfg.TokenDefaultTTL)
	}
	if !cfg.EnableDevToken {
		t.Error("expected dev token enabled")
	}
	if cfg.S3.AccessKeyID != "AKIA" {
		t.Errorf("expected access key from env, got %q", cfg.S3.AccessKeyID)
	}
	if cfg.Upload.MaxFiles != 5 || cfg.Upload.RequireImageType || cfg.Upload.RateLimitPerMinute != 0 {
		t.Errorf("upload settings not applied: %+v", cfg.Upload)
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, want) {
		t.Errorf("expected origins %v, got %v", want, cfg.CORSAllowedOrigins)
	}
	wantProxies := []string{"10.0.0.0/8", "192.168.0.0/16"}
	if !reflect.DeepEqual(cfg.TrustedProxyCIDRs, wantProxies) {
		t.Errorf("expected trusted proxies %v, got %v", wantProxies, cfg.TrustedProxyCIDRs)
	}
}

func TestEnvProductionRefusesDevToken(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("EVENT_SECRET", "a-real-secret")
	t.Setenv("ENABLE_DEV_TOKEN", "true")

	_, err := Load(WithEnv())
	if !errors.Is(err, ErrDevTokenInProduction) {
		t.Errorf("expected ErrDevTokenInProduction, got %v", err)
	}
}

func TestEnvProgrammaticOverride(t *testing.T) {
	t.Setenv("EVENT_SECRET", "from-env")

	cfg, err := Load(WithEnv(), WithPort("9090"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("options after WithEnv should win, got %q", cfg.Port)
	}
}
