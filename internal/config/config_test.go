package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		os.Unsetenv(env)
	}
	t.Setenv("CONFIG_FILE", "")
	os.Unsetenv("CONFIG_FILE")
}

func TestLoad(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.JWTSecret != "your-secret-key-change-in-production" {
		t.Errorf("Expected default JWT_SECRET, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "it-inventory-api" {
		t.Errorf("Expected default JWT_ISS, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "it-inventory-api" {
		t.Errorf("Expected default JWT_AUD, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 8*time.Hour {
		t.Errorf("Expected default JWT_EXPIRY, got %v", cfg.JWTExpiry)
	}
	if cfg.Sweep.Schedule != "0 8 * * *" {
		t.Errorf("Expected default sweep schedule, got %q", cfg.Sweep.Schedule)
	}
	if cfg.SMTP.Port != 587 {
		t.Errorf("Expected default SMTP port, got %d", cfg.SMTP.Port)
	}
	if cfg.SMTP.Configured() {
		t.Error("SMTP should not be configured without credentials")
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("JWT_ISS", "test-issuer")
	t.Setenv("JWT_AUD", "test-audience")
	t.Setenv("JWT_EXPIRY", "2h")
	t.Setenv("SMTP_HOST", "mail.internal")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("SWEEP_SCHEDULE", "30 6 * * *")
	t.Setenv("IMPORT_MAPPING_FILE", "/etc/inventory/mapping.yaml")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.JWTSecret != "test-secret-key" {
		t.Errorf("Expected JWT_SECRET from env, got %s", cfg.JWTSecret)
	}
	if cfg.JWTIssuer != "test-issuer" {
		t.Errorf("Expected JWT_ISS from env, got %s", cfg.JWTIssuer)
	}
	if cfg.JWTAudience != "test-audience" {
		t.Errorf("Expected JWT_AUD from env, got %s", cfg.JWTAudience)
	}
	if cfg.JWTExpiry != 2*time.Hour {
		t.Errorf("Expected JWT_EXPIRY from env, got %v", cfg.JWTExpiry)
	}
	if cfg.SMTP.Addr() != "mail.internal:2525" {
		t.Errorf("Expected SMTP address from env, got %s", cfg.SMTP.Addr())
	}
	if cfg.Sweep.Schedule != "30 6 * * *" {
		t.Errorf("Expected SWEEP_SCHEDULE from env, got %s", cfg.Sweep.Schedule)
	}
	if cfg.ImportMapping != "/etc/inventory/mapping.yaml" {
		t.Errorf("Expected IMPORT_MAPPING_FILE from env, got %s", cfg.ImportMapping)
	}
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("http_addr: \":9090\"\nsmtp:\n  host: smtp.example.org\nsweep:\n  timezone: UTC\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SMTP_HOST", "override.example.org")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("Expected http_addr from file, got %s", cfg.HTTPAddr)
	}
	if cfg.SMTP.Host != "override.example.org" {
		t.Errorf("Expected env to override file, got %s", cfg.SMTP.Host)
	}
	if cfg.Sweep.TimeZone != "UTC" {
		t.Errorf("Expected timezone from file, got %s", cfg.Sweep.TimeZone)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	if _, err := Load(); err == nil {
		t.Error("Load() should fail when CONFIG_FILE does not exist")
	}
}

func validConfig() *Config {
	return &Config{
		JWTSecret:   "valid-secret-that-is-long-enough-for-testing",
		JWTIssuer:   "test-issuer",
		JWTAudience: "test-audience",
		JWTExpiry:   time.Hour,
		Sweep:       SweepConfig{Schedule: "0 8 * * *", TimeZone: "UTC"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "empty secret", mutate: func(c *Config) { c.JWTSecret = "" }, expectError: true},
		{name: "secret too short", mutate: func(c *Config) { c.JWTSecret = "short" }, expectError: true},
		{name: "empty issuer", mutate: func(c *Config) { c.JWTIssuer = "" }, expectError: true},
		{name: "empty audience", mutate: func(c *Config) { c.JWTAudience = "" }, expectError: true},
		{name: "negative expiry", mutate: func(c *Config) { c.JWTExpiry = -time.Hour }, expectError: true},
		{name: "zero expiry", mutate: func(c *Config) { c.JWTExpiry = 0 }, expectError: true},
		{name: "expiry too short", mutate: func(c *Config) { c.JWTExpiry = 30 * time.Second }, expectError: true},
		{name: "expiry too long", mutate: func(c *Config) { c.JWTExpiry = 31 * 24 * time.Hour }, expectError: true},
		{name: "bad cron schedule", mutate: func(c *Config) { c.Sweep.Schedule = "every morning" }, expectError: true},
		{name: "unknown time zone", mutate: func(c *Config) { c.Sweep.TimeZone = "Mars/Olympus" }, expectError: true},
		{name: "negative rate limit", mutate: func(c *Config) { c.LoginRateLimit = -1 }, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.expectError {
				t.Errorf("Validate() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestLoadAndValidate(t *testing.T) {
	clearEnv(t)
	t.Setenv("JWT_SECRET", "test-secret-key-that-is-long-enough-for-testing")
	t.Setenv("JWT_ISS", "test-issuer")
	t.Setenv("JWT_AUD", "test-audience")
	t.Setenv("JWT_EXPIRY", "1h")

	cfg, err := LoadAndValidate()
	if err != nil {
		t.Errorf("LoadAndValidate() failed with valid config: %v", err)
	}
	if cfg == nil {
		t.Error("LoadAndValidate() returned nil config with valid config")
	}

	t.Setenv("JWT_SECRET", "short")

	_, err = LoadAndValidate()
	if err == nil {
		t.Error("LoadAndValidate() should fail with invalid config")
	}
}

func TestProductionSecretValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("JWT_SECRET", "your-secret-key-change-in-production")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("Production validation should fail with default secret")
	}

	t.Setenv("JWT_SECRET", "proper-production-secret-that-is-long-enough")

	cfg, err = Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Production validation should pass with proper secret: %v", err)
	}
}
