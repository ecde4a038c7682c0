package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv(EnvDBConnection, ":memory:")
	t.Setenv(EnvAPIKeySecret, "api-secret")
	t.Setenv(EnvSessionTokenSecret, "session-secret")
	t.Setenv(EnvDownloadTokenSecret, "download-secret")
}

func TestLoadEnvOnly(t *testing.T) {
	setRequiredEnv(t)

	cfg, errLoad := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if errLoad != nil {
		t.Fatalf("expected load ok without file, got %v", errLoad)
	}
	if cfg.DatabaseDSN != ":memory:" {
		t.Fatalf("expected env dsn, got %q", cfg.DatabaseDSN)
	}
	if cfg.Port != DefaultPort {
		t.Fatalf("expected default port %d, got %d", DefaultPort, cfg.Port)
	}
	if cfg.SessionTTL != DefaultSessionTTL {
		t.Fatalf("expected default session ttl, got %v", cfg.SessionTTL)
	}
	if cfg.DownloadTokenTTL != DefaultDownloadTokenTTL {
		t.Fatalf("expected default download token ttl, got %v", cfg.DownloadTokenTTL)
	}
	if cfg.MaxFileSizeMB != DefaultMaxFileSizeMB {
		t.Fatalf("expected default file size cap, got %d", cfg.MaxFileSizeMB)
	}
}

func TestLoadJWTSecretDefaultsToSessionSecret(t *testing.T) {
	setRequiredEnv(t)

	cfg, errLoad := Load("")
	if errLoad != nil {
		t.Fatalf("expected load ok, got %v", errLoad)
	}
	if cfg.JWTSecret != "session-secret" {
		t.Fatalf("expected jwt secret to fall back to session secret, got %q", cfg.JWTSecret)
	}

	t.Setenv(EnvJWTSecret, "own-jwt-secret")
	cfg, errLoad = Load("")
	if errLoad != nil {
		t.Fatalf("expected load ok, got %v", errLoad)
	}
	if cfg.JWTSecret != "own-jwt-secret" {
		t.Fatalf("expected explicit jwt secret, got %q", cfg.JWTSecret)
	}
}

func TestLoadMissingSecretFails(t *testing.T) {
	t.Setenv(EnvDBConnection, ":memory:")
	t.Setenv(EnvAPIKeySecret, "api-secret")
	t.Setenv(EnvSessionTokenSecret, "")
	t.Setenv(EnvDownloadTokenSecret, "download-secret")

	if _, errLoad := Load(""); errLoad == nil {
		t.Fatalf("expected error for missing session secret")
	}
}

func TestLoadMissingDSNFails(t *testing.T) {
	t.Setenv(EnvDBConnection, "")
	t.Setenv(EnvAPIKeySecret, "api-secret")
	t.Setenv(EnvSessionTokenSecret, "session-secret")
	t.Setenv(EnvDownloadTokenSecret, "download-secret")

	if _, errLoad := Load(""); errLoad != ErrMissingDatabaseDSN {
		t.Fatalf("expected missing dsn error, got %v", errLoad)
	}
}

func TestLoadTTLOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvSessionTTLSeconds, "120")
	t.Setenv(EnvDownloadTTLSeconds, "30")
	t.Setenv(EnvDownloadBindIP, "true")

	cfg, errLoad := Load("")
	if errLoad != nil {
		t.Fatalf("expected load ok, got %v", errLoad)
	}
	if cfg.SessionTTL != 2*time.Minute {
		t.Fatalf("expected 2m session ttl, got %v", cfg.SessionTTL)
	}
	if cfg.DownloadTokenTTL != 30*time.Second {
		t.Fatalf("expected 30s download ttl, got %v", cfg.DownloadTokenTTL)
	}
	if !cfg.DownloadBindIP {
		t.Fatalf("expected ip binding enabled")
	}
}

func TestLoadYAMLFileWithEnvOverride(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv(EnvR2AccountID, "acct123")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("port: 9000\nmax-rows: 1000\nlimits:\n  general:\n    - name: minute\n      max: 5\n      window-seconds: 60\n")
	if errWrite := os.WriteFile(path, content, 0o600); errWrite != nil {
		t.Fatalf("expected write ok, got %v", errWrite)
	}

	cfg, errLoad := Load(path)
	if errLoad != nil {
		t.Fatalf("expected load ok, got %v", errLoad)
	}
	if cfg.Port != 9000 {
		t.Fatalf("expected file port 9000, got %d", cfg.Port)
	}
	if cfg.MaxRows != 1000 {
		t.Fatalf("expected file max rows 1000, got %d", cfg.MaxRows)
	}
	if got := cfg.Limits["general"][0].Max; got != 5 {
		t.Fatalf("expected limit max 5, got %d", got)
	}
	if cfg.Storage.Endpoint != "https://acct123.r2.cloudflarestorage.com" {
		t.Fatalf("expected derived r2 endpoint, got %q", cfg.Storage.Endpoint)
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	if got := ResolveConfigPath(""); got != "./config.yaml" {
		t.Fatalf("expected default path, got %q", got)
	}
	if got := ResolveConfigPath(" /etc/datavault.yaml "); got != "/etc/datavault.yaml" {
		t.Fatalf("expected trimmed path, got %q", got)
	}
	t.Setenv(EnvConfigPath, "/srv/cfg.yaml")
	if got := ResolveConfigPath(""); got != "/srv/cfg.yaml" {
		t.Fatalf("expected env path, got %q", got)
	}
}
