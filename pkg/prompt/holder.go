package prompt

import "sync"

// SectionInput carries one section's wire-level configuration. Enabled is a
// pointer so that an absent flag can fall back to the section's default.
type SectionInput struct {
	Enabled *bool  `mapstructure:"enabled"`
	Content string `mapstructure:"content"`
}

// Sections is the set of sections accepted by set-prompt-sections.
type Sections struct {
	Main       SectionInput `mapstructure:"main"`
	Advanced   SectionInput `mapstructure:"advanced"`
	Dictionary SectionInput `mapstructure:"dictionary"`
}

// Holder stores the last composed instruction for one session. The LLM stage
// reads Current on every rewrite, so a successful Set takes effect for the
// next utterance.
type Holder struct {
	mu      sync.Mutex
	current string
}

// NewHolder returns a holder primed with the application default
// configuration: main and advanced on, dictionary off, no custom text.
func NewHolder() *Holder {
	h := &Holder{}
	h.Reset()
	return h
}

// Set recomposes the instruction from the given sections. Advanced defaults
// to enabled and dictionary to disabled when the flag is absent.
func (h *Holder) Set(s Sections) error {
	composed := Compose(
		s.Main.Content,
		boolOr(s.Advanced.Enabled, true),
		s.Advanced.Content,
		boolOr(s.Dictionary.Enabled, false),
		s.Dictionary.Content,
	)
	h.mu.Lock()
	h.current = composed
	h.mu.Unlock()
	return nil
}

// Reset restores the built-in default instruction.
func (h *Holder) Reset() {
	h.mu.Lock()
	h.current = Compose("", true, "", false, "")
	h.mu.Unlock()
}

// Current returns the active instruction text.
func (h *Holder) Current() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current
}

func boolOr(v *bool, fallback bool) bool {
	if v == nil {
		return fallback
	}
	return *v
}
