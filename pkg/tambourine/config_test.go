package tambourine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 7860 {
		t.Fatalf("port = %d, want 7860", cfg.Port)
	}
	if cfg.STT.TimeoutSeconds != 1.0 {
		t.Fatalf("timeout = %v, want 1.0", cfg.STT.TimeoutSeconds)
	}
	if cfg.STT.SampleRate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", cfg.STT.SampleRate)
	}
	if cfg.Addr() != "0.0.0.0:7860" {
		t.Fatalf("addr = %s", cfg.Addr())
	}
}

func TestLoadConfigCredentialsFromEnv(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-test")
	t.Setenv("OPENAI_API_KEY", "oa-test")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Credentials.DeepgramAPIKey != "dg-test" {
		t.Fatalf("deepgram key = %q", cfg.Credentials.DeepgramAPIKey)
	}
	if cfg.Credentials.OpenAIAPIKey != "oa-test" {
		t.Fatalf("openai key = %q", cfg.Credentials.OpenAIAPIKey)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "port: 9000\nstt:\n  timeout_seconds: 2.5\ndefaults:\n  stt_provider: deepgram\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9000 {
		t.Fatalf("port = %d", cfg.Port)
	}
	if cfg.STT.TimeoutSeconds != 2.5 {
		t.Fatalf("timeout = %v", cfg.STT.TimeoutSeconds)
	}
	if cfg.Defaults.STTProvider != "deepgram" {
		t.Fatalf("default stt = %q", cfg.Defaults.STTProvider)
	}
}

func TestLoadConfigRejectsTimeoutOutOfRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("stt:\n  timeout_seconds: 0.05\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("out-of-range timeout accepted")
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := &Config{LogLevel: "debug"}
	if cfg.SlogLevel().String() != "DEBUG" {
		t.Fatalf("level = %s", cfg.SlogLevel())
	}
	cfg.LogLevel = "nonsense"
	if cfg.SlogLevel().String() != "INFO" {
		t.Fatalf("fallback level = %s", cfg.SlogLevel())
	}
}
