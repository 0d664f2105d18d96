package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", tmpDir)
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg, err := LoadConfig(filepath.Join(tmpDir, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("loading missing config: %v", err)
	}

	if cfg.FetchInterval.Duration != 6*time.Hour {
		t.Errorf("expected default fetch interval 6h, got %v", cfg.FetchInterval.Duration)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL.Duration != 24*time.Hour {
		t.Errorf("expected default token ttl 24h, got %v", cfg.Auth.TokenTTL.Duration)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
storage_dir = "` + tmpDir + `"
fetch_interval = "30m"

[server]
host = "0.0.0.0"
port = 9090

[auth]
jwt_secret = "from-file"
token_ttl = "1h"

[sources.hlj_main]
type = "hlj"
owner = "user-1"
interval = "12h"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}

	if cfg.FetchInterval.Duration != 30*time.Minute {
		t.Errorf("fetch_interval = %v, want 30m", cfg.FetchInterval.Duration)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9090 {
		t.Errorf("server = %+v, want 0.0.0.0:9090", cfg.Server)
	}
	if cfg.Auth.JWTSecret != "from-file" {
		t.Errorf("jwt_secret = %q", cfg.Auth.JWTSecret)
	}

	info, err := cfg.GetSourceConfig("hlj_main")
	if err != nil {
		t.Fatalf("getting source config: %v", err)
	}
	if info.Type != "hlj" || info.Owner != "user-1" {
		t.Errorf("source info = %+v", info)
	}
	if got := cfg.GetSourceInterval("hlj_main"); got != 12*time.Hour {
		t.Errorf("source interval = %v, want 12h", got)
	}
	if got := cfg.GetSourceInterval("missing"); got != 30*time.Minute {
		t.Errorf("fallback interval = %v, want 30m", got)
	}
}

func TestJWTSecretEnvOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")
	content := `
storage_dir = "` + tmpDir + `"

[auth]
jwt_secret = "from-file"
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	t.Setenv("VITRINA_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Auth.JWTSecret != "from-env" {
		t.Errorf("jwt_secret = %q, want env override", cfg.Auth.JWTSecret)
	}
}

func TestSaveAndReloadConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{
		StorageDir:    tmpDir,
		FetchInterval: Duration{time.Hour},
		Server:        ServerConfig{Host: "localhost", Port: 8081},
		Auth:          AuthConfig{TokenTTL: Duration{2 * time.Hour}},
		Sources:       make(map[string]SourceInfo),
	}
	cfg.AddSource("dump1", "dump", "user-1", nil, &Duration{0})

	if err := cfg.SaveConfig(configPath); err != nil {
		t.Fatalf("saving config: %v", err)
	}

	reloaded, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("reloading config: %v", err)
	}
	if reloaded.Server.Port != 8081 {
		t.Errorf("port = %d, want 8081", reloaded.Server.Port)
	}
	if len(reloaded.ListSources()) != 1 {
		t.Errorf("sources = %v, want one entry", reloaded.ListSources())
	}
}
