package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("ACCESS_PIN", "")
	t.Setenv("BANGUNANPRO_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
	if cfg.AccessPIN != "" {
		t.Fatalf("expected empty ACCESS_PIN when unset, got %q", cfg.AccessPIN)
	}
}

func TestLoadReadsAdvisorKeyAlias(t *testing.T) {
	t.Setenv("BANGUNANPRO_CONFIG", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "legacy-key")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GeminiAPIKey != "legacy-key" {
		t.Fatalf("expected API_KEY fallback, got %q", cfg.GeminiAPIKey)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", cfg.KafkaBrokers)
	}
}

func TestLoadOverlaysTOMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bangunanpro.toml")
	content := `
port = "9090"

[redis]
addr = "localhost:6380"
db = 2

[advisor]
model = "gemini-2.5-pro"
cache_ttl_seconds = 30

[kafka]
brokers = ["localhost:9092"]
topic = "pos.events"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BANGUNANPRO_CONFIG", path)
	t.Setenv("PORT", "8080")
	t.Setenv("REDIS_DB", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.Address() != ":9090" {
		t.Fatalf("expected file port to win, got %q", cfg.Port)
	}
	if cfg.RedisAddr != "localhost:6380" || cfg.RedisDB != 2 {
		t.Fatalf("unexpected redis config %q db=%d", cfg.RedisAddr, cfg.RedisDB)
	}
	if cfg.GeminiModel != "gemini-2.5-pro" || cfg.AdvisorCacheTTLSeconds != 30 {
		t.Fatalf("unexpected advisor config %+v", cfg)
	}
	if cfg.KafkaTopic != "pos.events" || len(cfg.KafkaBrokers) != 1 {
		t.Fatalf("unexpected kafka config %v %q", cfg.KafkaBrokers, cfg.KafkaTopic)
	}
}

func TestLoadRejectsBrokenTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.toml")
	if err := os.WriteFile(path, []byte("port = "), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BANGUNANPRO_CONFIG", path)

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed config file")
	}
}
