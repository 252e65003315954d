package tambourine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tambourinehq/tambourine/pkg/adapters/stt"
	"github.com/tambourinehq/tambourine/pkg/errorsx"
	"github.com/tambourinehq/tambourine/pkg/frames"
	"github.com/tambourinehq/tambourine/pkg/llm"
	"github.com/tambourinehq/tambourine/pkg/logging"
	"github.com/tambourinehq/tambourine/pkg/metrics"
	"github.com/tambourinehq/tambourine/pkg/pipeline"
	"github.com/tambourinehq/tambourine/pkg/processors"
	"github.com/tambourinehq/tambourine/pkg/prompt"
	"github.com/tambourinehq/tambourine/pkg/providers"
	"github.com/tambourinehq/tambourine/pkg/transports"
)

// Engine owns the session registry and builds one isolated pipeline per
// client connection: dispatcher, STT routing, transcription buffer, LLM
// rewrite. Every configured and registered provider is instantiated at
// session start so runtime switches are pure routing changes.
type Engine struct {
	cfg      *Config
	registry *providers.Registry
	avail    *providers.Availability
	sessions *pipeline.SessionRegistry
	obs      metrics.Observer
	logger   *slog.Logger

	defaultSTT providers.STTProviderID
	defaultLLM providers.LLMProviderID
}

func NewEngine(cfg *Config, registry *providers.Registry, obs metrics.Observer) (*Engine, error) {
	if obs == nil {
		obs = metrics.NoopObserver{}
	}
	e := &Engine{
		cfg:      cfg,
		registry: registry,
		avail:    providers.NewAvailability(cfg.Credentials),
		obs:      obs,
		logger:   logging.NewComponentLogger(slog.Default(), "engine"),
	}
	e.sessions = pipeline.NewSessionRegistry(e.buildSession)

	var err error
	if e.defaultSTT, err = e.pickDefaultSTT(); err != nil {
		return nil, err
	}
	if e.defaultLLM, err = e.pickDefaultLLM(); err != nil {
		return nil, err
	}
	e.logger.Info("engine_ready",
		slog.String("default_stt", string(e.defaultSTT)),
		slog.String("default_llm", string(e.defaultLLM)),
		slog.Int("stt_providers", len(e.instantiableSTT())),
		slog.Int("llm_providers", len(e.instantiableLLM())))
	return e, nil
}

// Availability exposes the credential snapshot for the HTTP API.
func (e *Engine) Availability() *providers.Availability { return e.avail }

// Sessions exposes the live session registry.
func (e *Engine) Sessions() *pipeline.SessionRegistry { return e.sessions }

func (e *Engine) pickDefaultSTT() (providers.STTProviderID, error) {
	ids := e.instantiableSTT()
	if len(ids) == 0 {
		return "", errorsx.New(errorsx.ReasonProviderUnavailable, "no stt provider configured")
	}
	if want := e.cfg.Defaults.STTProvider; want != "" {
		id, err := providers.ParseSTTProviderID(want)
		if err != nil {
			return "", err
		}
		for _, have := range ids {
			if have == id {
				return id, nil
			}
		}
		return "", errorsx.New(errorsx.ReasonProviderUnavailable,
			fmt.Sprintf("default stt provider %s has no credentials", want))
	}
	return ids[0], nil
}

func (e *Engine) pickDefaultLLM() (providers.LLMProviderID, error) {
	ids := e.instantiableLLM()
	if len(ids) == 0 {
		return "", errorsx.New(errorsx.ReasonProviderUnavailable, "no llm provider configured")
	}
	if want := e.cfg.Defaults.LLMProvider; want != "" {
		id, err := providers.ParseLLMProviderID(want)
		if err != nil {
			return "", err
		}
		for _, have := range ids {
			if have == id {
				return id, nil
			}
		}
		return "", errorsx.New(errorsx.ReasonProviderUnavailable,
			fmt.Sprintf("default llm provider %s has no credentials", want))
	}
	return ids[0], nil
}

// instantiableSTT lists providers that both have credentials and a factory.
func (e *Engine) instantiableSTT() []providers.STTProviderID {
	var out []providers.STTProviderID
	for _, id := range e.avail.AvailableSTT() {
		if e.registry.HasSTT(id) {
			out = append(out, id)
		}
	}
	return out
}

func (e *Engine) instantiableLLM() []providers.LLMProviderID {
	var out []providers.LLMProviderID
	for _, id := range e.avail.AvailableLLM() {
		if e.registry.HasLLM(id) {
			out = append(out, id)
		}
	}
	return out
}

// buildSession assembles the stage graph for one connection.
func (e *Engine) buildSession(ctx context.Context, sessionID, streamID string) (pipeline.Orchestrator, error) {
	orch := pipeline.New(pipeline.Config{Buffer: 256})
	orch.SetContext(ctx)
	orch.SetObserver(e.obs)

	backends := make(map[providers.STTProviderID]stt.StreamingSTT)
	for _, id := range e.instantiableSTT() {
		backend, err := e.registry.BuildSTT(id, e.cfg.Credentials, stt.Config{
			StreamID:   streamID,
			SessionID:  sessionID,
			SampleRate: e.cfg.STT.SampleRate,
			Language:   e.cfg.STT.Language,
		})
		if err != nil {
			e.logger.Warn("stt_build_failed",
				slog.String("provider", string(id)),
				slog.String("error", err.Error()))
			continue
		}
		if err := backend.Start(ctx); err != nil {
			e.logger.Warn("stt_start_failed",
				slog.String("provider", string(id)),
				slog.String("error", errorsx.Wrap(err, errorsx.ReasonSTTConnect).Error()))
			continue
		}
		backends[id] = backend
	}
	if _, ok := backends[e.defaultSTT]; !ok {
		closeBackends(backends)
		return nil, errorsx.New(errorsx.ReasonSTTConnect,
			fmt.Sprintf("default stt provider %s failed to start", e.defaultSTT))
	}

	adapters := make(map[providers.LLMProviderID]llm.Adapter)
	for _, id := range e.instantiableLLM() {
		adapter, err := e.registry.BuildLLM(id, e.cfg.Credentials)
		if err != nil {
			e.logger.Warn("llm_build_failed",
				slog.String("provider", string(id)),
				slog.String("error", err.Error()))
			continue
		}
		adapters[id] = adapter
	}
	if _, ok := adapters[e.defaultLLM]; !ok {
		closeBackends(backends)
		return nil, errorsx.New(errorsx.ReasonProviderUnavailable,
			fmt.Sprintf("default llm provider %s failed to build", e.defaultLLM))
	}

	prompts := prompt.NewHolder()
	buffer := processors.NewTranscriptionBuffer(
		time.Duration(e.cfg.STT.TimeoutSeconds*float64(time.Second)),
		func(f frames.Frame) {
			select {
			case orch.In() <- f:
			case <-ctx.Done():
			}
		})

	sttProc := processors.NewSTTProcessor(backends, e.defaultSTT)
	llmProc := processors.NewLLMProcessor(adapters, e.defaultLLM, prompts)

	sttCtl := providers.NewController(providers.KindSTT, string(e.defaultSTT), sttIDs(backends),
		func(v string) (string, error) {
			id, err := providers.ParseSTTProviderID(v)
			return string(id), err
		}, sttProc)
	llmCtl := providers.NewController(providers.KindLLM, string(e.defaultLLM), llmIDs(adapters),
		func(v string) (string, error) {
			id, err := providers.ParseLLMProviderID(v)
			return string(id), err
		}, llmProc)

	for _, p := range []pipeline.FrameProcessor{
		processors.NewConfigProcessor(sttCtl, llmCtl, prompts, buffer),
		sttProc,
		buffer,
		llmProc,
	} {
		if err := orch.AddProcessor(p); err != nil {
			closeBackends(backends)
			return nil, err
		}
	}

	e.logger.Info("session_pipeline_built",
		slog.String("session_id", sessionID),
		slog.String("stream_id", streamID),
		slog.Int("stt_backends", len(backends)),
		slog.Int("llm_adapters", len(adapters)))
	return orch, nil
}

// Attach binds a transport to a fresh session and starts pumping frames.
// It returns the session id; the session tears down when the transport's
// receive channel closes.
func (e *Engine) Attach(t transports.Transport) (string, error) {
	if e.sessions.Draining() {
		return "", errorsx.New(errorsx.ReasonPipelineNotReady, "server is draining")
	}
	sessionID := uuid.NewString()
	streamID := uuid.NewString()

	sess, created, err := e.sessions.GetOrCreate(sessionID, streamID)
	if err != nil {
		return "", err
	}
	if !created {
		return "", fmt.Errorf("session id collision: %s", sessionID)
	}

	if setter, ok := t.(transports.IdentitySetter); ok {
		setter.SetIdentity(sessionID, streamID)
	}

	sess.Orch.SetSink(func(f frames.Frame) {
		if err := t.Send(f); err != nil {
			e.logger.Warn("transport_send_failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
		}
	})
	if err := t.Start(sess.Ctx); err != nil {
		e.sessions.Remove(sessionID)
		return "", err
	}
	// session teardown, including Drain, must close the transport too
	go func() {
		<-sess.Ctx.Done()
		_ = t.Stop()
	}()

	start := frames.NewSystemFrame(streamID, time.Now().UnixNano(), frames.SystemPipelineStart, map[string]string{
		frames.MetaSessionID: sessionID,
	})
	select {
	case sess.Orch.In() <- start:
	case <-sess.Ctx.Done():
	}

	go e.pump(sess, t)
	e.logger.Info("session_attached",
		slog.String("session_id", sessionID),
		slog.String("transport", t.Name()))
	return sessionID, nil
}

func (e *Engine) pump(sess *pipeline.Session, t transports.Transport) {
	for f := range t.Recv() {
		select {
		case sess.Orch.In() <- f:
		case <-sess.Ctx.Done():
			return
		}
	}
	end := frames.NewSystemFrame(sess.StreamID, time.Now().UnixNano(), frames.SystemSessionEnd, nil)
	select {
	case sess.Orch.In() <- end:
	case <-sess.Ctx.Done():
	}
	// give the loop a moment to run teardown stages before hard stop
	time.Sleep(10 * time.Millisecond)
	e.sessions.Remove(sess.ID)
	e.logger.Info("session_detached", slog.String("session_id", sess.ID))
}

// Drain stops accepting sessions and waits for live ones to finish.
func (e *Engine) Drain() error {
	e.sessions.SetDraining(true)
	e.sessions.CloseAll()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if !e.sessions.WaitForEmpty(ctx, 100*time.Millisecond) {
		return fmt.Errorf("sessions still live after drain timeout")
	}
	return nil
}

func closeBackends(backends map[providers.STTProviderID]stt.StreamingSTT) {
	for _, b := range backends {
		_ = b.Close()
	}
}

func sttIDs(m map[providers.STTProviderID]stt.StreamingSTT) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, string(id))
	}
	return out
}

func llmIDs(m map[providers.LLMProviderID]llm.Adapter) []string {
	out := make([]string, 0, len(m))
	for id := range m {
		out = append(out, string(id))
	}
	return out
}
