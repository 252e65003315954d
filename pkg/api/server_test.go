package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tambourinehq/tambourine/pkg/prompt"
	"github.com/tambourinehq/tambourine/pkg/providers"
	"github.com/tambourinehq/tambourine/pkg/transports"
)

func newTestServer() *Server {
	avail := providers.NewAvailability(providers.Credentials{
		DeepgramAPIKey: "dg-key",
		OpenAIAPIKey:   "oa-key",
	})
	attach := func(t transports.Transport) (string, error) { return "session-1", nil }
	return NewServer("127.0.0.1:0", attach, avail)
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.srv.Handler.ServeHTTP(rec, req)
	return rec
}

func TestProvidersEndpointUsesValueLabelEntries(t *testing.T) {
	rec := get(t, newTestServer(), "/api/providers/available")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body struct {
		STT []map[string]string `json:"stt"`
		LLM []map[string]string `json:"llm"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.STT) != 1 || len(body.LLM) != 1 {
		t.Fatalf("entries = stt:%d llm:%d, want 1/1", len(body.STT), len(body.LLM))
	}
	entry := body.STT[0]
	if entry["value"] != "deepgram" {
		t.Fatalf("stt entry value = %q, want deepgram", entry["value"])
	}
	if entry["label"] == "" {
		t.Fatalf("stt entry missing label")
	}
	if _, ok := entry["id"]; ok {
		t.Fatalf("stt entry carries an id key: %v", entry)
	}
	if body.LLM[0]["value"] != "openai" {
		t.Fatalf("llm entry value = %q, want openai", body.LLM[0]["value"])
	}
}

func TestDefaultSectionsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(), "/api/prompt/sections/default")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["main"] != prompt.DefaultMain {
		t.Fatalf("main section does not match the built-in default")
	}
	if body["advanced"] != prompt.DefaultAdvanced || body["dictionary"] != prompt.DefaultDictionary {
		t.Fatalf("advanced or dictionary section does not match the built-in default")
	}
}

func TestHealthEndpoint(t *testing.T) {
	rec := get(t, newTestServer(), "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %q", body["status"])
	}
}
