package processors

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tambourinehq/tambourine/pkg/errorsx"
	"github.com/tambourinehq/tambourine/pkg/frames"
	"github.com/tambourinehq/tambourine/pkg/llm"
	"github.com/tambourinehq/tambourine/pkg/logging"
	"github.com/tambourinehq/tambourine/pkg/pipeline"
	"github.com/tambourinehq/tambourine/pkg/prompt"
	"github.com/tambourinehq/tambourine/pkg/providers"
)

const rewriteTimeout = 30 * time.Second

// LLMProcessor rewrites each merged utterance with the session's composed
// instruction and emits the cleaned text as a server message. The instruction
// is read fresh on every utterance, so prompt updates apply from the next
// flush onward.
type LLMProcessor struct {
	mu       sync.Mutex
	adapters map[providers.LLMProviderID]llm.Adapter
	active   providers.LLMProviderID
	prompts  *prompt.Holder
	ctx      context.Context
	logger   *slog.Logger
}

func NewLLMProcessor(adapters map[providers.LLMProviderID]llm.Adapter, active providers.LLMProviderID, prompts *prompt.Holder) *LLMProcessor {
	return &LLMProcessor{
		adapters: adapters,
		active:   active,
		prompts:  prompts,
		ctx:      context.Background(),
		logger:   logging.NewComponentLogger(slog.Default(), "llm_processor"),
	}
}

func (p *LLMProcessor) Name() string { return "llm_processor" }

func (p *LLMProcessor) SetContext(ctx context.Context) {
	p.mu.Lock()
	p.ctx = ctx
	p.mu.Unlock()
}

// Activate switches rewriting to the given adapter. The id has already been
// validated by the switch controller.
func (p *LLMProcessor) Activate(id string) error {
	pid := providers.LLMProviderID(id)
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.adapters[pid]; !ok {
		return errorsx.New(errorsx.ReasonProviderUnavailable,
			fmt.Sprintf("llm adapter %s not instantiated", id))
	}
	p.active = pid
	p.logger.Info("llm_adapter_activated", slog.String("provider", id))
	return nil
}

// Active returns the id of the adapter currently rewriting utterances.
func (p *LLMProcessor) Active() providers.LLMProviderID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func (p *LLMProcessor) Process(f frames.Frame) ([]frames.Frame, error) {
	if f.Kind() != frames.KindText {
		return []frames.Frame{f}, nil
	}
	tf := f.(frames.TextFrame)

	p.mu.Lock()
	adapter := p.adapters[p.active]
	ctx := p.ctx
	p.mu.Unlock()

	cleaned := tf.Text()
	if adapter != nil {
		rctx, cancel := context.WithTimeout(ctx, rewriteTimeout)
		out, err := adapter.Rewrite(rctx, p.prompts.Current(), tf.Text())
		cancel()
		if err != nil {
			// fall back to the raw utterance so the client still gets text
			p.logger.Warn("llm_rewrite_failed",
				slog.String("provider", adapter.Name()),
				slog.String("error", errorsx.Wrap(err, errorsx.ReasonLLMRewrite).Error()))
		} else {
			cleaned = out
		}
	}

	meta := tf.Meta()
	payload := map[string]any{
		"label": serverMessageLabel,
		"type":  "server-message",
		"data": map[string]any{
			"type": "cleaned-text",
			"text": cleaned,
		},
	}
	mf := frames.NewMessageFrame(meta[frames.MetaStreamID], tf.PTS(), payload, nil, map[string]string{
		frames.MetaSource:   "llm_processor",
		frames.MetaProvider: string(p.Active()),
	})
	return []frames.Frame{mf}, nil
}

var _ pipeline.FrameProcessor = (*LLMProcessor)(nil)
var _ pipeline.ContextSetter = (*LLMProcessor)(nil)
var _ providers.Switcher = (*LLMProcessor)(nil)
