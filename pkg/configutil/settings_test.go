package configutil

import "testing"

func TestDecodePayloadKeyNormalization(t *testing.T) {
	var out struct {
		TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
	}
	err := DecodePayload(map[string]any{"timeout-seconds": 2.5}, &out)
	if err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if out.TimeoutSeconds != 2.5 {
		t.Fatalf("expected 2.5, got %v", out.TimeoutSeconds)
	}
}

func TestDecodePayloadWeakTyping(t *testing.T) {
	var out struct {
		Provider string `mapstructure:"provider"`
	}
	if err := DecodePayload(map[string]any{"provider": "deepgram"}, &out); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if out.Provider != "deepgram" {
		t.Fatalf("expected deepgram, got %q", out.Provider)
	}
}

func TestDecodeStrictRejectsStrayKeys(t *testing.T) {
	var out struct {
		Type string `mapstructure:"type"`
	}
	err := DecodeStrict(map[string]any{"type": "client-message", "extra": 1}, &out)
	if err == nil {
		t.Fatalf("expected error on stray key")
	}
}
