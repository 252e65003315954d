package llm

import "context"

// Adapter is the contract for a text-rewriting LLM backend. The instruction
// is the composed prompt for the session; text is one merged utterance.
type Adapter interface {
	Name() string
	Rewrite(ctx context.Context, instruction, text string) (string, error)
}
