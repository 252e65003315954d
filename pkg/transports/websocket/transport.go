package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tambourinehq/tambourine/pkg/errorsx"
	"github.com/tambourinehq/tambourine/pkg/frames"
	"github.com/tambourinehq/tambourine/pkg/logging"
	"github.com/tambourinehq/tambourine/pkg/transports"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 20 * time.Second
)

type Config struct {
	StreamID   string
	SessionID  string
	SampleRate int
	Channels   int
}

// Transport adapts one upgraded websocket connection to the frame channel.
// Binary messages are raw audio; text messages are JSON payloads that become
// message frames with their original bytes preserved, so the dispatcher can
// forward unrecognized ones untouched.
type Transport struct {
	conn   *websocket.Conn
	cfg    Config
	recvCh chan frames.Frame
	ptsGen *frames.PTSGen
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger

	writeMu  sync.Mutex
	closed   atomic.Bool
	recvOnce sync.Once
}

func New(conn *websocket.Conn, cfg Config) *Transport {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	if cfg.Channels == 0 {
		cfg.Channels = 1
	}
	return &Transport{
		conn:   conn,
		cfg:    cfg,
		recvCh: make(chan frames.Frame, 256),
		ptsGen: frames.NewPTSGen(),
		logger: logging.NewComponentLogger(slog.Default(), "ws_transport"),
	}
}

func (t *Transport) Name() string { return "websocket" }

// SetIdentity stamps the engine-minted ids onto the transport. Must be
// called before Start; the read loop snapshots the config.
func (t *Transport) SetIdentity(sessionID, streamID string) {
	t.cfg.SessionID = sessionID
	t.cfg.StreamID = streamID
}

func (t *Transport) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t.ctx, t.cancel = context.WithCancel(ctx)
	go t.readLoop()
	go t.pingLoop()
	return nil
}

func (t *Transport) Stop() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t.cancel != nil {
		t.cancel()
	}
	return t.conn.Close()
}

func (t *Transport) Recv() <-chan frames.Frame { return t.recvCh }

func (t *Transport) Send(f frames.Frame) error {
	if t.closed.Load() {
		return nil
	}
	switch f.Kind() {
	case frames.KindMessage:
		mf := f.(frames.MessageFrame)
		raw := mf.Raw()
		if raw == nil {
			var err error
			raw, err = json.Marshal(mf.Payload())
			if err != nil {
				return errorsx.Wrap(err, errorsx.ReasonTransportSend)
			}
		}
		return t.write(websocket.TextMessage, raw)
	case frames.KindText:
		tf := f.(frames.TextFrame)
		raw, err := json.Marshal(map[string]any{"type": "text", "text": tf.Text()})
		if err != nil {
			return errorsx.Wrap(err, errorsx.ReasonTransportSend)
		}
		return t.write(websocket.TextMessage, raw)
	case frames.KindAudio:
		af := f.(frames.AudioFrame)
		return t.write(websocket.BinaryMessage, af.RawPayload())
	default:
		return nil
	}
}

func (t *Transport) write(messageType int, data []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := t.conn.WriteMessage(messageType, data); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonTransportSend)
	}
	return nil
}

func (t *Transport) readLoop() {
	// recvCh closes only here, after the final push, so a racing Stop
	// can never close it out from under an in-flight send
	defer t.recvOnce.Do(func() { close(t.recvCh) })
	defer func() { _ = t.Stop() }()
	for {
		messageType, data, err := t.conn.ReadMessage()
		if err != nil {
			if t.ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				t.logger.Info("ws_read_closed",
					slog.String("stream_id", t.cfg.StreamID),
					slog.String("error", err.Error()))
			}
			return
		}
		switch messageType {
		case websocket.BinaryMessage:
			pts := t.ptsGen.Next(t.cfg.StreamID)
			af := frames.NewAudioFrameFromPool(t.cfg.StreamID, pts, data, t.cfg.SampleRate, t.cfg.Channels, nil)
			t.push(af)
		case websocket.TextMessage:
			t.pushText(data)
		}
	}
}

func (t *Transport) pushText(data []byte) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.logger.Debug("ws_unparseable_text_dropped",
			slog.String("stream_id", t.cfg.StreamID))
		return
	}
	pts := t.ptsGen.Next(t.cfg.StreamID)
	raw := append([]byte(nil), data...)
	t.push(frames.NewMessageFrame(t.cfg.StreamID, pts, payload, raw, map[string]string{
		frames.MetaSessionID: t.cfg.SessionID,
	}))
}

func (t *Transport) push(f frames.Frame) {
	if t.closed.Load() {
		return
	}
	select {
	case t.recvCh <- f:
	case <-t.ctx.Done():
	}
}

func (t *Transport) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			t.writeMu.Lock()
			_ = t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			err := t.conn.WriteMessage(websocket.PingMessage, nil)
			t.writeMu.Unlock()
			if err != nil {
				return
			}
		}
	}
}

var _ transports.Transport = (*Transport)(nil)
var _ transports.IdentitySetter = (*Transport)(nil)
