package pipeline

import (
	"context"

	"github.com/tambourinehq/tambourine/pkg/frames"
	"github.com/tambourinehq/tambourine/pkg/metrics"
)

// FrameProcessor is one stage of a session's pipeline. Process receives a
// single frame and returns the frames to hand to the next stage; returning
// nil consumes the frame.
type FrameProcessor interface {
	Process(frames.Frame) ([]frames.Frame, error)
	Name() string
}

// ContextSetter is implemented by processors that need the session context.
type ContextSetter interface {
	SetContext(ctx context.Context)
}

// Closer is implemented by processors holding external resources
// (provider sessions, pending timers). Called once on session teardown.
type Closer interface {
	Close() error
}

type Config struct {
	// Buffer is the capacity of the inbound frame channel.
	Buffer int
}

// Orchestrator runs a session's stage graph. Frames are processed strictly
// in arrival order on a single cooperative loop; stages never see two frames
// of the same session concurrently.
type Orchestrator interface {
	Start() error
	Stop() error
	In() chan frames.Frame
	AddProcessor(p FrameProcessor) error
	SetContext(ctx context.Context)
	SetSink(sink func(frames.Frame))
	SetObserver(obs metrics.Observer)
}
