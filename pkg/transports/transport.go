package transports

import (
	"context"

	"github.com/tambourinehq/tambourine/pkg/frames"
)

// Transport is the vendor-agnostic boundary carrying audio, control messages
// and text replies over one multiplexed channel. Implementations own their
// network lifecycle.
type Transport interface {
	Name() string
	Start(ctx context.Context) error
	Stop() error
	Recv() <-chan frames.Frame
	Send(frames.Frame) error
}

// IdentitySetter is implemented by transports that accept the session and
// stream ids minted by the engine. Attach stamps them before Start so every
// frame the transport emits carries the session's identifiers.
type IdentitySetter interface {
	SetIdentity(sessionID, streamID string)
}
