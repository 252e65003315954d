package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/tambourinehq/tambourine/pkg/frames"
	"github.com/tambourinehq/tambourine/pkg/metrics"
)

// The orchestrator is deliberately synchronous: the dispatcher's pass-through
// contract requires that non-control payloads reach downstream stages in the
// exact order they arrived, so there is no priority lane and no per-stage
// goroutine. Deadline callbacks re-enter through In() and are sequenced like
// any other frame.
type orchestrator struct {
	in     chan frames.Frame
	procs  []FrameProcessor
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc
	sink   func(frames.Frame)
	obs    metrics.Observer
	wg     sync.WaitGroup
	once   sync.Once
}

func New(cfg Config) Orchestrator {
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	o := &orchestrator{
		in:  make(chan frames.Frame, cfg.Buffer),
		cfg: cfg,
	}
	o.ctx, o.cancel = context.WithCancel(context.Background())
	return o
}

func (o *orchestrator) SetContext(ctx context.Context) {
	if ctx == nil {
		return
	}
	o.ctx, o.cancel = context.WithCancel(ctx)
}

func (o *orchestrator) In() chan frames.Frame           { return o.in }
func (o *orchestrator) SetSink(sink func(frames.Frame)) { o.sink = sink }
func (o *orchestrator) SetObserver(obs metrics.Observer) {
	o.obs = obs
}

func (o *orchestrator) AddProcessor(p FrameProcessor) error {
	o.procs = append(o.procs, p)
	return nil
}

func (o *orchestrator) Start() error {
	for _, p := range o.procs {
		if cs, ok := p.(ContextSetter); ok {
			cs.SetContext(o.ctx)
		}
	}
	o.wg.Add(1)
	go o.loop()
	return nil
}

func (o *orchestrator) Stop() error {
	o.once.Do(func() {
		o.cancel()
		o.wg.Wait()
		for _, p := range o.procs {
			if c, ok := p.(Closer); ok {
				if err := c.Close(); err != nil {
					slog.Warn("processor_close_error", "processor", p.Name(), "error", err)
				}
			}
		}
	})
	return nil
}

func (o *orchestrator) loop() {
	defer o.wg.Done()
	for {
		select {
		case <-o.ctx.Done():
			return
		case f := <-o.in:
			o.dispatch(f)
		}
	}
}

func (o *orchestrator) dispatch(f frames.Frame) {
	out := []frames.Frame{f}
	for _, p := range o.procs {
		var next []frames.Frame
		for _, cur := range out {
			start := time.Now()
			r, err := p.Process(cur)
			if err != nil {
				slog.Warn("stage_error", "processor", p.Name(), "error", err)
				frames.ReleaseAudioFrame(cur)
				continue
			}
			o.recordStage(p.Name(), cur, start)
			next = append(next, r...)
		}
		out = next
		if len(out) == 0 {
			return
		}
	}
	for _, e := range out {
		if o.sink != nil {
			o.sink(e)
		}
		frames.ReleaseAudioFrame(e)
	}
}

func (o *orchestrator) recordStage(name string, f frames.Frame, start time.Time) {
	if o.obs == nil {
		return
	}
	o.obs.RecordEvent(metrics.MetricsEvent{
		Name:  "stage_process",
		Time:  time.Now(),
		Value: float64(time.Since(start).Microseconds()),
		Tags: map[string]string{
			"stage":             name,
			"kind":              string(f.Kind()),
			frames.MetaStreamID: f.Meta()[frames.MetaStreamID],
		},
	})
}
