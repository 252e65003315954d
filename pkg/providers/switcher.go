package providers

import (
	"fmt"
	"sync"

	"github.com/tambourinehq/tambourine/pkg/errorsx"
)

// Switcher is the collaborator that performs the stream-level hand-off when
// the active provider changes. Draining in-flight audio or tokens is the
// switcher's problem; the controller only decides whether a switch is legal.
type Switcher interface {
	Activate(id string) error
}

// ParseFunc validates a wire-level provider string against a closed identity
// set and returns the canonical id.
type ParseFunc func(value string) (string, error)

// Controller is the per-session switch state machine for one provider kind.
// The swap is atomic from the controller's perspective: there is no visible
// intermediate state, only the active id before and after.
type Controller struct {
	mu        sync.Mutex
	kind      Kind
	active    string
	available map[string]bool
	parse     ParseFunc
	switcher  Switcher
	started   bool
}

// NewController builds a controller over the session's instantiated
// providers. defaultActive must be one of the available ids.
func NewController(kind Kind, defaultActive string, available []string, parse ParseFunc, sw Switcher) *Controller {
	avail := make(map[string]bool, len(available))
	for _, id := range available {
		avail[id] = true
	}
	return &Controller{
		kind:      kind,
		active:    defaultActive,
		available: avail,
		parse:     parse,
		switcher:  sw,
	}
}

// OnStart marks the pipeline stage graph as initialized. Switch requests
// before this point fail with pipeline_not_ready.
func (c *Controller) OnStart() {
	c.mu.Lock()
	c.started = true
	c.mu.Unlock()
}

// Active returns the currently active provider id.
func (c *Controller) Active() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Switch validates the requested id and hands the swap to the switcher.
// Re-switching to the already-active provider is a success no-op and does
// not re-notify the switcher. Error messages are client-facing; they go out
// verbatim in config-error acknowledgements.
func (c *Controller) Switch(requested string) (string, error) {
	id, err := c.parse(requested)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	if !c.available[id] {
		c.mu.Unlock()
		return "", errorsx.New(errorsx.ReasonProviderUnavailable,
			fmt.Sprintf("Provider '%s' not available (no API key configured)", requested))
	}
	if !c.started {
		c.mu.Unlock()
		return "", errorsx.New(errorsx.ReasonPipelineNotReady, "Pipeline not ready - please try again")
	}
	if c.active == id {
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	if err := c.switcher.Activate(id); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.active = id
	c.mu.Unlock()
	return id, nil
}
