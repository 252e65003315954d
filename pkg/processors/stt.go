package processors

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tambourinehq/tambourine/pkg/adapters/stt"
	"github.com/tambourinehq/tambourine/pkg/errorsx"
	"github.com/tambourinehq/tambourine/pkg/frames"
	"github.com/tambourinehq/tambourine/pkg/logging"
	"github.com/tambourinehq/tambourine/pkg/pipeline"
	"github.com/tambourinehq/tambourine/pkg/providers"
)

// STTProcessor routes session audio to the active transcription backend.
// All configured backends are instantiated up front; switching providers is
// a routing change, not a teardown, so audio that arrives mid-switch goes to
// exactly one backend and none is dropped.
type STTProcessor struct {
	mu       sync.Mutex
	backends map[providers.STTProviderID]stt.StreamingSTT
	active   providers.STTProviderID
	ctx      context.Context
	logger   *slog.Logger
}

func NewSTTProcessor(backends map[providers.STTProviderID]stt.StreamingSTT, active providers.STTProviderID) *STTProcessor {
	return &STTProcessor{
		backends: backends,
		active:   active,
		ctx:      context.Background(),
		logger:   logging.NewComponentLogger(slog.Default(), "stt_processor"),
	}
}

func (p *STTProcessor) Name() string { return "stt_processor" }

func (p *STTProcessor) SetContext(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
}

// Activate switches audio routing to the given backend. The id has already
// been validated by the switch controller.
func (p *STTProcessor) Activate(id string) error {
	pid := providers.STTProviderID(id)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.backends[pid]; !ok {
		return errorsx.New(errorsx.ReasonProviderUnavailable,
			fmt.Sprintf("stt backend %s not instantiated", id))
	}
	p.active = pid
	p.logger.Info("stt_backend_activated", slog.String("provider", id))
	return nil
}

// Active returns the id of the backend currently receiving audio.
func (p *STTProcessor) Active() providers.STTProviderID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *STTProcessor) Process(f frames.Frame) ([]frames.Frame, error) {
	switch f.Kind() {
	case frames.KindAudio:
		af := f.(frames.AudioFrame)
		backend := p.activeBackend()
		if backend == nil {
			frames.ReleaseAudioFrame(f)
			return nil, nil
		}
		if err := backend.SendAudio(af); err != nil {
			p.logger.Warn("stt_send_failed",
				slog.String("provider", string(p.Active())),
				slog.String("error", err.Error()))
			// the orchestrator releases the frame on a stage error;
			// releasing here too would double-put the pooled buffer
			return nil, errorsx.Wrap(err, errorsx.ReasonSTTSend)
		}
		out := p.drain(backend)
		frames.ReleaseAudioFrame(f)
		return out, nil
	case frames.KindSystem:
		sf := f.(frames.SystemFrame)
		if sf.Name() == frames.SystemSessionEnd {
			_ = p.Close()
		}
		return []frames.Frame{f}, nil
	default:
		return []frames.Frame{f}, nil
	}
}

func (p *STTProcessor) activeBackend() stt.StreamingSTT {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backends[p.active]
}

// drain collects whatever results the backend has ready without blocking.
// Results arriving later ride out on the next audio frame.
func (p *STTProcessor) drain(backend stt.StreamingSTT) []frames.Frame {
	var out []frames.Frame
	for {
		select {
		case rf, ok := <-backend.Results():
			if !ok {
				return out
			}
			out = append(out, rf)
		default:
			return out
		}
	}
}

// Close shuts down every instantiated backend.
func (p *STTProcessor) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for id, backend := range p.backends {
		if err := backend.Close(); err != nil && firstErr == nil {
			firstErr = errorsx.Wrap(err, errorsx.ReasonSTTConnect)
			p.logger.Warn("stt_close_failed",
				slog.String("provider", string(id)),
				slog.String("error", err.Error()))
		}
	}
	return firstErr
}

var _ pipeline.FrameProcessor = (*STTProcessor)(nil)
var _ pipeline.ContextSetter = (*STTProcessor)(nil)
var _ pipeline.Closer = (*STTProcessor)(nil)
var _ providers.Switcher = (*STTProcessor)(nil)
