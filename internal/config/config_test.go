package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Port:                "8000",
		Env:                 "production",
		DatabaseURL:         "postgres://localhost:5432/clinicore",
		Timezone:            "America/Sao_Paulo",
		GraceMinutes:        30,
		PollIntervalSeconds: 60,
	}
}

func TestValidate_OK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_MissingDatabaseURLInProduction(t *testing.T) {
	cfg := validConfig()
	cfg.DatabaseURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing DATABASE_URL in production")
	}
}

func TestValidate_MissingDatabaseURLInDevelopment(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "development"
	cfg.DatabaseURL = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("development should allow empty DATABASE_URL, got %v", err)
	}
}

func TestValidate_BadTimezone(t *testing.T) {
	cfg := validConfig()
	cfg.Timezone = "Mars/Olympus_Mons"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid timezone")
	}
}

func TestValidate_NegativeGrace(t *testing.T) {
	cfg := validConfig()
	cfg.GraceMinutes = -5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative GRACE_MINUTES")
	}
}

func TestValidate_ZeroPollInterval(t *testing.T) {
	cfg := validConfig()
	cfg.PollIntervalSeconds = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for zero POLL_INTERVAL_SECONDS")
	}
}

func TestValidate_TLSRequiresFiles(t *testing.T) {
	cfg := validConfig()
	cfg.TLSEnabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when TLS enabled without cert/key")
	}
	cfg.TLSCertFile = "server.crt"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error when TLS enabled without key")
	}
	cfg.TLSKeyFile = "server.key"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLocation(t *testing.T) {
	cfg := validConfig()
	loc, err := cfg.Location()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loc.String() != "America/Sao_Paulo" {
		t.Errorf("expected America/Sao_Paulo, got %s", loc)
	}
}

func TestDurations(t *testing.T) {
	cfg := validConfig()
	if cfg.GracePeriod() != 30*time.Minute {
		t.Errorf("expected 30m grace, got %s", cfg.GracePeriod())
	}
	if cfg.PollInterval() != time.Minute {
		t.Errorf("expected 1m poll interval, got %s", cfg.PollInterval())
	}
}
