package frames

import (
	"sync"
	"time"
)

type Kind string

const (
	KindAudio         Kind = "audio"
	KindTranscription Kind = "transcription"
	KindText          Kind = "text"
	KindMessage       Kind = "message"
	KindControl       Kind = "control"
	KindSystem        Kind = "system"
)

type ControlCode string

const (
	ControlCancel        ControlCode = "cancel"
	ControlFlushDeadline ControlCode = "flush_deadline"
)

// System frame names emitted by the transport and session lifecycle.
const (
	SystemPipelineStart = "pipeline_start"
	SystemSpeechStarted = "speech_started"
	SystemSpeechStopped = "speech_stopped"
	SystemSessionEnd    = "session_end"
)

type Frame interface {
	Kind() Kind
	PTS() int64
	Meta() map[string]string
}

type AudioFrame struct {
	pts    int64
	data   []byte
	rate   int
	ch     int
	meta   map[string]string
	pooled bool
}

func NewAudioFrame(streamID string, pts int64, data []byte, rate, ch int, meta map[string]string) AudioFrame {
	return AudioFrame{
		pts:  pts,
		data: data,
		rate: rate,
		ch:   ch,
		meta: mergeMeta(streamID, meta),
	}
}

func NewAudioFrameFromPool(streamID string, pts int64, data []byte, rate, ch int, meta map[string]string) AudioFrame {
	buf := AcquireAudioBuf(len(data))
	copy(buf, data)
	return AudioFrame{
		pts:    pts,
		data:   buf,
		rate:   rate,
		ch:     ch,
		meta:   mergeMeta(streamID, meta),
		pooled: true,
	}
}

func (a AudioFrame) Kind() Kind              { return KindAudio }
func (a AudioFrame) PTS() int64              { return a.pts }
func (a AudioFrame) Meta() map[string]string { return cloneMeta(a.meta) }
func (a AudioFrame) Data() []byte            { return append([]byte(nil), a.data...) }
func (a AudioFrame) RawPayload() []byte      { return a.data }
func (a AudioFrame) Rate() int               { return a.rate }
func (a AudioFrame) Channels() int           { return a.ch }

func ReleaseAudioFrame(f Frame) bool {
	af, ok := f.(AudioFrame)
	if !ok {
		if ap, ok := f.(*AudioFrame); ok {
			af = *ap
		} else {
			return false
		}
	}
	if af.pooled {
		ReleaseAudioBuf(af.data)
		return true
	}
	return false
}

// TranscriptionFrame carries one STT result. Non-final frames are revisions
// of the utterance currently in flight; final frames are committed fragments.
type TranscriptionFrame struct {
	pts   int64
	text  string
	final bool
	meta  map[string]string
}

func NewTranscriptionFrame(streamID string, pts int64, text string, final bool, meta map[string]string) TranscriptionFrame {
	return TranscriptionFrame{
		pts:   pts,
		text:  text,
		final: final,
		meta:  mergeMeta(streamID, meta),
	}
}

func (t TranscriptionFrame) Kind() Kind              { return KindTranscription }
func (t TranscriptionFrame) PTS() int64              { return t.pts }
func (t TranscriptionFrame) Meta() map[string]string { return cloneMeta(t.meta) }
func (t TranscriptionFrame) Text() string            { return t.text }
func (t TranscriptionFrame) Final() bool             { return t.final }

// TextFrame carries utterance-level text: the merged output of the
// transcription buffer, or the rewritten text coming back from the LLM stage.
type TextFrame struct {
	pts  int64
	text string
	meta map[string]string
}

func NewTextFrame(streamID string, pts int64, text string, meta map[string]string) TextFrame {
	return TextFrame{
		pts:  pts,
		text: text,
		meta: mergeMeta(streamID, meta),
	}
}

func (t TextFrame) Kind() Kind              { return KindText }
func (t TextFrame) PTS() int64              { return t.pts }
func (t TextFrame) Meta() map[string]string { return cloneMeta(t.meta) }
func (t TextFrame) Text() string            { return t.text }

// MessageFrame carries one decoded data-channel payload. Raw preserves the
// original bytes so that unhandled messages can be forwarded byte-for-byte.
type MessageFrame struct {
	pts     int64
	payload map[string]any
	raw     []byte
	meta    map[string]string
}

func NewMessageFrame(streamID string, pts int64, payload map[string]any, raw []byte, meta map[string]string) MessageFrame {
	return MessageFrame{
		pts:     pts,
		payload: payload,
		raw:     raw,
		meta:    mergeMeta(streamID, meta),
	}
}

func (m MessageFrame) Kind() Kind              { return KindMessage }
func (m MessageFrame) PTS() int64              { return m.pts }
func (m MessageFrame) Meta() map[string]string { return cloneMeta(m.meta) }
func (m MessageFrame) Payload() map[string]any { return m.payload }
func (m MessageFrame) Raw() []byte             { return m.raw }

type ControlFrame struct {
	pts  int64
	code ControlCode
	meta map[string]string
}

func NewControlFrame(streamID string, pts int64, code ControlCode, meta map[string]string) ControlFrame {
	return ControlFrame{
		pts:  pts,
		code: code,
		meta: mergeMeta(streamID, meta),
	}
}

func (c ControlFrame) Kind() Kind              { return KindControl }
func (c ControlFrame) PTS() int64              { return c.pts }
func (c ControlFrame) Meta() map[string]string { return cloneMeta(c.meta) }
func (c ControlFrame) Code() ControlCode       { return c.code }

type SystemFrame struct {
	pts  int64
	name string
	meta map[string]string
}

func NewSystemFrame(streamID string, pts int64, name string, meta map[string]string) SystemFrame {
	return SystemFrame{
		pts:  pts,
		name: name,
		meta: mergeMeta(streamID, meta),
	}
}

func (s SystemFrame) Kind() Kind              { return KindSystem }
func (s SystemFrame) PTS() int64              { return s.pts }
func (s SystemFrame) Meta() map[string]string { return cloneMeta(s.meta) }
func (s SystemFrame) Name() string            { return s.name }

type PTSGen struct {
	mu    sync.Mutex
	value map[string]int64
}

func NewPTSGen() *PTSGen {
	return &PTSGen{value: make(map[string]int64)}
}

func (g *PTSGen) Next(streamID string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := g.value[streamID] + time.Millisecond.Nanoseconds()
	g.value[streamID] = v
	return v
}

var audioBufPool = sync.Pool{
	New: func() any {
		return make([]byte, 0, 4096)
	},
}

func AcquireAudioBuf(size int) []byte {
	b := audioBufPool.Get().([]byte)
	if cap(b) < size {
		return make([]byte, size)
	}
	return b[:size]
}

func ReleaseAudioBuf(b []byte) {
	audioBufPool.Put(b[:0])
}

func mergeMeta(streamID string, meta map[string]string) map[string]string {
	out := make(map[string]string, 2+len(meta))
	if streamID != "" {
		out[MetaStreamID] = streamID
	}
	for k, v := range meta {
		out[k] = v
	}
	return out
}

func cloneMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
