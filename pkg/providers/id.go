package providers

import (
	"fmt"
	"strings"

	"github.com/tambourinehq/tambourine/pkg/errorsx"
)

// Kind distinguishes the two independently switchable provider families.
type Kind string

const (
	KindSTT Kind = "stt"
	KindLLM Kind = "llm"
)

// STTProviderID identifies a speech-to-text backend. The set is closed:
// wire-level strings outside it are rejected, never silently ignored.
type STTProviderID string

const (
	STTAssemblyAI STTProviderID = "assemblyai"
	STTCartesia   STTProviderID = "cartesia"
	STTDeepgram   STTProviderID = "deepgram"
	STTAWS        STTProviderID = "aws"
	STTAzure      STTProviderID = "azure"
	STTGoogle     STTProviderID = "google"
	STTWhisper    STTProviderID = "whisper"
)

// LLMProviderID identifies a text-rewriting backend.
type LLMProviderID string

const (
	LLMOpenAI     LLMProviderID = "openai"
	LLMGoogle     LLMProviderID = "google"
	LLMAnthropic  LLMProviderID = "anthropic"
	LLMCerebras   LLMProviderID = "cerebras"
	LLMGroq       LLMProviderID = "groq"
	LLMOllama     LLMProviderID = "ollama"
	LLMOpenRouter LLMProviderID = "openrouter"
)

// AllSTT lists STT providers in presentation order.
func AllSTT() []STTProviderID {
	return []STTProviderID{STTAssemblyAI, STTCartesia, STTDeepgram, STTAWS, STTAzure, STTGoogle, STTWhisper}
}

// AllLLM lists LLM providers in presentation order.
func AllLLM() []LLMProviderID {
	return []LLMProviderID{LLMOpenAI, LLMGoogle, LLMAnthropic, LLMCerebras, LLMGroq, LLMOllama, LLMOpenRouter}
}

var sttLabels = map[STTProviderID]string{
	STTAssemblyAI: "AssemblyAI",
	STTCartesia:   "Cartesia",
	STTDeepgram:   "Deepgram",
	STTAWS:        "AWS Transcribe",
	STTAzure:      "Azure Speech",
	STTGoogle:     "Google Speech",
	STTWhisper:    "Whisper (local)",
}

var llmLabels = map[LLMProviderID]string{
	LLMOpenAI:     "OpenAI",
	LLMGoogle:     "Google Gemini",
	LLMAnthropic:  "Anthropic",
	LLMCerebras:   "Cerebras",
	LLMGroq:       "Groq",
	LLMOllama:     "Ollama",
	LLMOpenRouter: "OpenRouter",
}

// Label returns the human-readable name for a provider id.
func (id STTProviderID) Label() string {
	if l, ok := sttLabels[id]; ok {
		return l
	}
	return string(id)
}

func (id LLMProviderID) Label() string {
	if l, ok := llmLabels[id]; ok {
		return l
	}
	return string(id)
}

// ParseSTTProviderID validates a wire-level provider string against the
// closed STT set.
func ParseSTTProviderID(value string) (STTProviderID, error) {
	id := STTProviderID(normalize(value))
	if _, ok := sttLabels[id]; !ok {
		return "", errorsx.New(errorsx.ReasonUnknownProvider, fmt.Sprintf("Unknown provider: %s", value))
	}
	return id, nil
}

// ParseLLMProviderID validates a wire-level provider string against the
// closed LLM set.
func ParseLLMProviderID(value string) (LLMProviderID, error) {
	id := LLMProviderID(normalize(value))
	if _, ok := llmLabels[id]; !ok {
		return "", errorsx.New(errorsx.ReasonUnknownProvider, fmt.Sprintf("Unknown provider: %s", value))
	}
	return id, nil
}

func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
