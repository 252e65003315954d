package mock

import (
	"context"
	"sync"
	"time"

	"github.com/tambourinehq/tambourine/pkg/adapters/stt"
	"github.com/tambourinehq/tambourine/pkg/frames"
)

type STTConfig struct {
	StreamID string
	// Transcript, when set, is emitted as a final result after the first
	// audio frame arrives.
	Transcript string
}

// StreamingSTT is an in-memory STT session for tests and keyless local runs.
type StreamingSTT struct {
	cfg     STTConfig
	out     chan frames.Frame
	mu      sync.Mutex
	started bool
	closed  bool
	sent    int
	emitted bool
}

func NewSTT(cfg STTConfig) *StreamingSTT {
	return &StreamingSTT{cfg: cfg, out: make(chan frames.Frame, 16)}
}

func (s *StreamingSTT) Name() string { return "mock_stt" }

func (s *StreamingSTT) Start(ctx context.Context) error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	return nil
}

func (s *StreamingSTT) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.out)
	}
	return nil
}

func (s *StreamingSTT) SendAudio(frame frames.AudioFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent++
	if s.cfg.Transcript != "" && !s.emitted {
		s.emitted = true
		tf := frames.NewTranscriptionFrame(s.cfg.StreamID, time.Now().UnixNano(), s.cfg.Transcript, true, nil)
		select {
		case s.out <- tf:
		default:
		}
	}
	return nil
}

func (s *StreamingSTT) Results() <-chan frames.Frame { return s.out }

// Push injects a scripted transcription result.
func (s *StreamingSTT) Push(text string, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	tf := frames.NewTranscriptionFrame(s.cfg.StreamID, time.Now().UnixNano(), text, final, nil)
	select {
	case s.out <- tf:
	default:
	}
}

// SentFrames reports how many audio frames reached the session.
func (s *StreamingSTT) SentFrames() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sent
}

// Started reports whether Start was called.
func (s *StreamingSTT) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

var _ stt.StreamingSTT = (*StreamingSTT)(nil)
