package processors

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tambourinehq/tambourine/pkg/errorsx"
	"github.com/tambourinehq/tambourine/pkg/frames"
	"github.com/tambourinehq/tambourine/pkg/pipeline"
)

// Debounce timeout bounds accepted by set-stt-timeout.
const (
	MinTranscriptionTimeout = 100 * time.Millisecond
	MaxTranscriptionTimeout = 10 * time.Second
)

// DeadlineEmitter re-injects a frame into the session loop. The buffer never
// flushes from the timer goroutine directly; expiry becomes a control frame
// sequenced like any other, so a fragment that arrives first wins the race
// by superseding the generation the callback carries.
type DeadlineEmitter func(frames.Frame)

// TranscriptionBuffer smooths rapid partial-transcription revisions into one
// merged utterance event. Interim results replace each other; final results
// accumulate. An utterance flushes when the debounce deadline passes with no
// newer fragment, or immediately on the speech-stopped signal.
type TranscriptionBuffer struct {
	mu         sync.Mutex
	timeout    time.Duration
	parts      []string
	interim    string
	streamID   string
	firstPTS   int64
	generation int64
	timer      *time.Timer
	emit       DeadlineEmitter
	closed     bool
}

func NewTranscriptionBuffer(timeout time.Duration, emit DeadlineEmitter) *TranscriptionBuffer {
	if timeout < MinTranscriptionTimeout || timeout > MaxTranscriptionTimeout {
		timeout = time.Second
	}
	return &TranscriptionBuffer{timeout: timeout, emit: emit}
}

func (b *TranscriptionBuffer) Name() string { return "transcription_buffer" }

// SetTimeoutSeconds updates the debounce timeout. The new value applies to
// the next armed deadline; a deadline already pending keeps its expiry.
func (b *TranscriptionBuffer) SetTimeoutSeconds(seconds float64) error {
	if seconds < 0.1 || seconds > 10.0 {
		return errorsx.New(errorsx.ReasonOutOfRange, "timeout must be between 0.1 and 10.0 seconds")
	}
	d := time.Duration(seconds * float64(time.Second))
	b.mu.Lock()
	b.timeout = d
	b.mu.Unlock()
	return nil
}

// Timeout returns the current debounce timeout.
func (b *TranscriptionBuffer) Timeout() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.timeout
}

func (b *TranscriptionBuffer) Process(f frames.Frame) ([]frames.Frame, error) {
	switch f.Kind() {
	case frames.KindTranscription:
		tf := f.(frames.TranscriptionFrame)
		b.add(tf)
		return nil, nil
	case frames.KindControl:
		cf := f.(frames.ControlFrame)
		if cf.Code() != frames.ControlFlushDeadline {
			return []frames.Frame{f}, nil
		}
		gen, _ := strconv.ParseInt(cf.Meta()[frames.MetaGeneration], 10, 64)
		if merged := b.flushIfCurrent(gen); merged != nil {
			return []frames.Frame{*merged}, nil
		}
		return nil, nil
	case frames.KindSystem:
		sf := f.(frames.SystemFrame)
		if sf.Name() == frames.SystemSpeechStopped {
			if merged := b.Flush(); merged != nil {
				return []frames.Frame{*merged, f}, nil
			}
		}
		return []frames.Frame{f}, nil
	default:
		return []frames.Frame{f}, nil
	}
}

func (b *TranscriptionBuffer) add(tf frames.TranscriptionFrame) {
	text := strings.TrimSpace(tf.Text())
	if text == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	if len(b.parts) == 0 && b.interim == "" {
		b.streamID = tf.Meta()[frames.MetaStreamID]
		b.firstPTS = tf.PTS()
	}
	if tf.Final() {
		b.parts = append(b.parts, text)
		b.interim = ""
	} else {
		b.interim = text
	}
	b.armLocked()
}

// armLocked schedules a fresh deadline from now, superseding any pending
// one via the generation counter.
func (b *TranscriptionBuffer) armLocked() {
	b.generation++
	gen := b.generation
	streamID := b.streamID
	if b.timer != nil {
		b.timer.Stop()
	}
	if b.emit == nil {
		return
	}
	timeout := b.timeout
	b.timer = time.AfterFunc(timeout, func() {
		meta := map[string]string{frames.MetaGeneration: strconv.FormatInt(gen, 10)}
		b.emit(frames.NewControlFrame(streamID, time.Now().UnixNano(), frames.ControlFlushDeadline, meta))
	})
}

// flushIfCurrent flushes only when the deadline generation has not been
// superseded by a later fragment.
func (b *TranscriptionBuffer) flushIfCurrent(gen int64) *frames.TextFrame {
	b.mu.Lock()
	if gen != b.generation {
		b.mu.Unlock()
		return nil
	}
	merged := b.flushLocked()
	b.mu.Unlock()
	return merged
}

// Flush emits the accumulated utterance immediately, if any.
func (b *TranscriptionBuffer) Flush() *frames.TextFrame {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked()
}

func (b *TranscriptionBuffer) flushLocked() *frames.TextFrame {
	text := strings.TrimSpace(strings.Join(b.parts, " "))
	if text == "" {
		text = b.interim
	}
	// invalidate any pending deadline
	b.generation++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	if text == "" {
		return nil
	}
	tf := frames.NewTextFrame(b.streamID, b.firstPTS, text, map[string]string{
		frames.MetaSource: "transcription_buffer",
	})
	b.parts = b.parts[:0]
	b.interim = ""
	b.firstPTS = 0
	slog.Debug("utterance_flushed",
		"stream_id", b.streamID,
		"length", len(text))
	return &tf
}

// Close cancels any pending deadline. Called on session teardown.
func (b *TranscriptionBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.generation++
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	return nil
}

var _ pipeline.FrameProcessor = (*TranscriptionBuffer)(nil)
var _ pipeline.Closer = (*TranscriptionBuffer)(nil)
