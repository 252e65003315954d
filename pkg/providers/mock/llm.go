package mock

import (
	"context"
	"sync"

	"github.com/tambourinehq/tambourine/pkg/llm"
)

type LLMConfig struct {
	// Response, when set, is returned verbatim for every rewrite.
	// Otherwise the input text is echoed back.
	Response string
	Err      error
}

// LLMAdapter is a deterministic rewrite backend for tests.
type LLMAdapter struct {
	cfg   LLMConfig
	mu    sync.Mutex
	calls []RewriteCall
}

type RewriteCall struct {
	Instruction string
	Text        string
}

func NewLLMAdapter(cfg LLMConfig) *LLMAdapter {
	return &LLMAdapter{cfg: cfg}
}

func (a *LLMAdapter) Name() string { return "mock_llm" }

func (a *LLMAdapter) Rewrite(ctx context.Context, instruction, text string) (string, error) {
	a.mu.Lock()
	a.calls = append(a.calls, RewriteCall{Instruction: instruction, Text: text})
	a.mu.Unlock()
	if a.cfg.Err != nil {
		return "", a.cfg.Err
	}
	if a.cfg.Response != "" {
		return a.cfg.Response, nil
	}
	return text, nil
}

// Calls returns a copy of the recorded rewrite invocations.
func (a *LLMAdapter) Calls() []RewriteCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]RewriteCall, len(a.calls))
	copy(out, a.calls)
	return out
}

var _ llm.Adapter = (*LLMAdapter)(nil)
