package tambourine

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/tambourinehq/tambourine/pkg/adapters/stt"
	"github.com/tambourinehq/tambourine/pkg/frames"
	"github.com/tambourinehq/tambourine/pkg/llm"
	"github.com/tambourinehq/tambourine/pkg/providers"
	providermock "github.com/tambourinehq/tambourine/pkg/providers/mock"
	transportmock "github.com/tambourinehq/tambourine/pkg/transports/mock"
)

type engineFixture struct {
	engine *Engine
	mu     sync.Mutex
	stts   []*providermock.StreamingSTT
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	fx := &engineFixture{}

	cfg := &Config{}
	cfg.STT.TimeoutSeconds = 0.2
	cfg.STT.SampleRate = 16000
	cfg.Credentials.DeepgramAPIKey = "test-key"
	cfg.Credentials.CartesiaAPIKey = "test-key"
	cfg.Credentials.OpenAIAPIKey = "test-key"

	registry := providers.NewRegistry()
	sttFactory := func(creds providers.Credentials, c stt.Config) (stt.StreamingSTT, error) {
		s := providermock.NewSTT(providermock.STTConfig{StreamID: c.StreamID})
		fx.mu.Lock()
		fx.stts = append(fx.stts, s)
		fx.mu.Unlock()
		return s, nil
	}
	registry.RegisterSTT(providers.STTDeepgram, sttFactory)
	registry.RegisterSTT(providers.STTCartesia, sttFactory)
	registry.RegisterLLM(providers.LLMOpenAI, func(creds providers.Credentials) (llm.Adapter, error) {
		return providermock.NewLLMAdapter(providermock.LLMConfig{}), nil
	})

	engine, err := NewEngine(cfg, registry, nil)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	fx.engine = engine
	t.Cleanup(func() { _ = engine.Drain() })
	return fx
}

func (fx *engineFixture) sttBackends() []*providermock.StreamingSTT {
	fx.mu.Lock()
	defer fx.mu.Unlock()
	out := make([]*providermock.StreamingSTT, len(fx.stts))
	copy(out, fx.stts)
	return out
}

func waitSent(t *testing.T, tr *transportmock.Transport, want func(frames.Frame) bool) frames.Frame {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case f, ok := <-tr.Sent():
			if !ok {
				t.Fatalf("transport closed before the expected frame arrived")
			}
			if want(f) {
				return f
			}
		case <-deadline:
			t.Fatalf("expected frame never sent")
		}
	}
}

func serverData(f frames.Frame) map[string]any {
	mf, ok := f.(frames.MessageFrame)
	if !ok {
		return nil
	}
	data, _ := mf.Payload()["data"].(map[string]any)
	return data
}

func TestEngineEndToEndUtterance(t *testing.T) {
	fx := newEngineFixture(t)
	tr := transportmock.New()

	sessionID, err := fx.engine.Attach(tr)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if sessionID == "" {
		t.Fatalf("empty session id")
	}
	if fx.engine.Sessions().Count() != 1 {
		t.Fatalf("session count = %d", fx.engine.Sessions().Count())
	}

	// revisions of one utterance arriving from the active backend
	for _, backend := range fx.sttBackends() {
		backend.Push("he", false)
		backend.Push("hello world", true)
	}
	// an audio frame makes the stt stage drain whatever the backend queued
	tr.Push(frames.NewAudioFrame("stream-1", 1, []byte{0, 0}, 16000, 1, nil))

	sent := waitSent(t, tr, func(f frames.Frame) bool {
		data := serverData(f)
		return data != nil && data["type"] == "cleaned-text"
	})
	if text := serverData(sent)["text"]; text != "hello world" {
		t.Fatalf("cleaned text = %v, want %q", text, "hello world")
	}
}

func TestEngineHandlesConfigCommands(t *testing.T) {
	fx := newEngineFixture(t)
	tr := transportmock.New()

	if _, err := fx.engine.Attach(tr); err != nil {
		t.Fatalf("attach: %v", err)
	}

	payload := map[string]any{
		"type": "client-message",
		"data": map[string]any{
			"t": "set-stt-provider",
			"d": map[string]any{"provider": "cartesia"},
		},
	}
	raw, _ := json.Marshal(payload)
	tr.Push(frames.NewMessageFrame("stream-1", 1, payload, raw, nil))

	ack := waitSent(t, tr, func(f frames.Frame) bool {
		data := serverData(f)
		return data != nil && data["setting"] == "stt-provider"
	})
	data := serverData(ack)
	if data["type"] != "config-updated" || data["value"] != "cartesia" || data["success"] != true {
		t.Fatalf("ack = %v", data)
	}
}

func TestEngineForwardsUnknownMessages(t *testing.T) {
	fx := newEngineFixture(t)
	tr := transportmock.New()

	if _, err := fx.engine.Attach(tr); err != nil {
		t.Fatalf("attach: %v", err)
	}

	payload := map[string]any{"type": "ping", "id": "42"}
	raw, _ := json.Marshal(payload)
	tr.Push(frames.NewMessageFrame("stream-1", 1, payload, raw, nil))

	passed := waitSent(t, tr, func(f frames.Frame) bool {
		mf, ok := f.(frames.MessageFrame)
		return ok && mf.Payload()["type"] == "ping"
	})
	if string(passed.(frames.MessageFrame).Raw()) != string(raw) {
		t.Fatalf("pass-through mutated raw bytes")
	}
}

func TestEngineTearsDownOnTransportClose(t *testing.T) {
	fx := newEngineFixture(t)
	tr := transportmock.New()

	if _, err := fx.engine.Attach(tr); err != nil {
		t.Fatalf("attach: %v", err)
	}
	_ = tr.Stop()

	deadline := time.After(3 * time.Second)
	for fx.engine.Sessions().Count() != 0 {
		select {
		case <-deadline:
			t.Fatalf("session never removed after transport close")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestEngineStampsTransportIdentity(t *testing.T) {
	fx := newEngineFixture(t)
	tr := transportmock.New()

	sessionID, err := fx.engine.Attach(tr)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	gotSession, gotStream := tr.Identity()
	if gotSession != sessionID {
		t.Fatalf("transport session id = %q, want %q", gotSession, sessionID)
	}
	if gotStream == "" {
		t.Fatalf("transport stream id not stamped")
	}
}

func TestEngineDrainStopsTransport(t *testing.T) {
	fx := newEngineFixture(t)
	tr := transportmock.New()

	if _, err := fx.engine.Attach(tr); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := fx.engine.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}

	deadline := time.After(3 * time.Second)
	for {
		select {
		case _, ok := <-tr.Recv():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("transport still open after drain")
		}
	}
}

func TestEngineRejectsAttachWhileDraining(t *testing.T) {
	fx := newEngineFixture(t)
	if err := fx.engine.Drain(); err != nil {
		t.Fatalf("drain: %v", err)
	}
	if _, err := fx.engine.Attach(transportmock.New()); err == nil {
		t.Fatalf("attach succeeded while draining")
	}
}

func TestEngineRequiresConfiguredProviders(t *testing.T) {
	cfg := &Config{}
	cfg.STT.TimeoutSeconds = 1.0
	if _, err := NewEngine(cfg, providers.NewRegistry(), nil); err == nil {
		t.Fatalf("engine built without any provider")
	}
}
