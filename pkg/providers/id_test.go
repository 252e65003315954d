package providers

import (
	"testing"

	"github.com/tambourinehq/tambourine/pkg/errorsx"
)

func TestParseSTTProviderIDRoundTrip(t *testing.T) {
	for _, id := range AllSTT() {
		parsed, err := ParseSTTProviderID(string(id))
		if err != nil {
			t.Fatalf("parse %s: %v", id, err)
		}
		if parsed != id {
			t.Fatalf("expected %s, got %s", id, parsed)
		}
	}
}

func TestParseLLMProviderIDRejectsUnknown(t *testing.T) {
	_, err := ParseLLMProviderID("skynet")
	if !errorsx.HasReason(err, errorsx.ReasonUnknownProvider) {
		t.Fatalf("expected unknown_provider, got %v", err)
	}
}

func TestAvailabilitySnapshot(t *testing.T) {
	avail := NewAvailability(Credentials{
		DeepgramAPIKey: "dg-key",
		OpenAIAPIKey:   "oa-key",
		OllamaBaseURL:  "http://localhost:11434",
	})
	if !avail.STTAvailable(STTDeepgram) {
		t.Fatalf("deepgram should be available")
	}
	if avail.STTAvailable(STTAssemblyAI) {
		t.Fatalf("assemblyai should be unavailable without a key")
	}
	// ollama needs both base URL and model
	if avail.LLMAvailable(LLMOllama) {
		t.Fatalf("ollama requires base url and model")
	}
	if got := avail.AvailableLLM(); len(got) != 1 || got[0] != LLMOpenAI {
		t.Fatalf("unexpected llm availability: %v", got)
	}
	if def, ok := avail.DefaultSTT(); !ok || def != STTDeepgram {
		t.Fatalf("unexpected default stt: %v %v", def, ok)
	}
}
