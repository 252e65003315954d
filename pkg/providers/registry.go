package providers

import (
	"fmt"
	"strings"

	"github.com/tambourinehq/tambourine/pkg/adapters/stt"
	"github.com/tambourinehq/tambourine/pkg/llm"
)

// Credentials holds the vendor secrets configured at process start. A
// provider is available for switching only when its credentials are present.
type Credentials struct {
	AssemblyAIAPIKey   string `mapstructure:"assemblyai_api_key"`
	CartesiaAPIKey     string `mapstructure:"cartesia_api_key"`
	DeepgramAPIKey     string `mapstructure:"deepgram_api_key"`
	AWSAccessKeyID     string `mapstructure:"aws_access_key_id"`
	AWSSecretAccessKey string `mapstructure:"aws_secret_access_key"`
	AWSRegion          string `mapstructure:"aws_region"`
	AzureSpeechKey     string `mapstructure:"azure_speech_key"`
	AzureSpeechRegion  string `mapstructure:"azure_speech_region"`
	GoogleCredentials  string `mapstructure:"google_application_credentials"`
	WhisperEnabled     bool   `mapstructure:"whisper_enabled"`

	OpenAIAPIKey     string `mapstructure:"openai_api_key"`
	OpenAIBaseURL    string `mapstructure:"openai_base_url"`
	GoogleAPIKey     string `mapstructure:"google_api_key"`
	AnthropicAPIKey  string `mapstructure:"anthropic_api_key"`
	CerebrasAPIKey   string `mapstructure:"cerebras_api_key"`
	GroqAPIKey       string `mapstructure:"groq_api_key"`
	OllamaBaseURL    string `mapstructure:"ollama_base_url"`
	OllamaModel      string `mapstructure:"ollama_model"`
	OpenRouterAPIKey string `mapstructure:"openrouter_api_key"`
}

// Availability is a read-only snapshot of which providers have credentials,
// computed once at startup and shared by reference. It replaces mutable
// module-level provider state.
type Availability struct {
	stt map[STTProviderID]bool
	llm map[LLMProviderID]bool
}

// NewAvailability derives the snapshot from configured credentials.
func NewAvailability(creds Credentials) *Availability {
	a := &Availability{
		stt: make(map[STTProviderID]bool),
		llm: make(map[LLMProviderID]bool),
	}
	set := func(v string) bool { return strings.TrimSpace(v) != "" }

	a.stt[STTAssemblyAI] = set(creds.AssemblyAIAPIKey)
	a.stt[STTCartesia] = set(creds.CartesiaAPIKey)
	a.stt[STTDeepgram] = set(creds.DeepgramAPIKey)
	a.stt[STTAWS] = set(creds.AWSAccessKeyID) && set(creds.AWSSecretAccessKey) && set(creds.AWSRegion)
	a.stt[STTAzure] = set(creds.AzureSpeechKey) && set(creds.AzureSpeechRegion)
	a.stt[STTGoogle] = set(creds.GoogleCredentials)
	a.stt[STTWhisper] = creds.WhisperEnabled

	a.llm[LLMOpenAI] = set(creds.OpenAIAPIKey)
	a.llm[LLMGoogle] = set(creds.GoogleAPIKey)
	a.llm[LLMAnthropic] = set(creds.AnthropicAPIKey)
	a.llm[LLMCerebras] = set(creds.CerebrasAPIKey)
	a.llm[LLMGroq] = set(creds.GroqAPIKey)
	a.llm[LLMOllama] = set(creds.OllamaBaseURL) && set(creds.OllamaModel)
	a.llm[LLMOpenRouter] = set(creds.OpenRouterAPIKey)
	return a
}

func (a *Availability) STTAvailable(id STTProviderID) bool { return a.stt[id] }
func (a *Availability) LLMAvailable(id LLMProviderID) bool { return a.llm[id] }

// AvailableSTT lists configured STT providers in presentation order.
func (a *Availability) AvailableSTT() []STTProviderID {
	var out []STTProviderID
	for _, id := range AllSTT() {
		if a.stt[id] {
			out = append(out, id)
		}
	}
	return out
}

// AvailableLLM lists configured LLM providers in presentation order.
func (a *Availability) AvailableLLM() []LLMProviderID {
	var out []LLMProviderID
	for _, id := range AllLLM() {
		if a.llm[id] {
			out = append(out, id)
		}
	}
	return out
}

// DefaultSTT returns the first configured STT provider.
func (a *Availability) DefaultSTT() (STTProviderID, bool) {
	ids := a.AvailableSTT()
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

// DefaultLLM returns the first configured LLM provider.
func (a *Availability) DefaultLLM() (LLMProviderID, bool) {
	ids := a.AvailableLLM()
	if len(ids) == 0 {
		return "", false
	}
	return ids[0], true
}

type STTFactory func(creds Credentials, cfg stt.Config) (stt.StreamingSTT, error)
type LLMFactory func(creds Credentials) (llm.Adapter, error)

// Registry maps provider identities to instantiation factories. Factories
// are registered once at startup; sessions build concrete handles from them.
type Registry struct {
	stt map[STTProviderID]STTFactory
	llm map[LLMProviderID]LLMFactory
}

func NewRegistry() *Registry {
	return &Registry{
		stt: make(map[STTProviderID]STTFactory),
		llm: make(map[LLMProviderID]LLMFactory),
	}
}

func (r *Registry) RegisterSTT(id STTProviderID, factory STTFactory) {
	r.stt[id] = factory
}

func (r *Registry) RegisterLLM(id LLMProviderID, factory LLMFactory) {
	r.llm[id] = factory
}

func (r *Registry) BuildSTT(id STTProviderID, creds Credentials, cfg stt.Config) (stt.StreamingSTT, error) {
	fn := r.stt[id]
	if fn == nil {
		return nil, fmt.Errorf("stt provider not registered: %s", id)
	}
	return fn(creds, cfg)
}

func (r *Registry) BuildLLM(id LLMProviderID, creds Credentials) (llm.Adapter, error) {
	fn := r.llm[id]
	if fn == nil {
		return nil, fmt.Errorf("llm provider not registered: %s", id)
	}
	return fn(creds)
}

// HasSTT reports whether a factory is registered for the id.
func (r *Registry) HasSTT(id STTProviderID) bool { return r.stt[id] != nil }

// HasLLM reports whether a factory is registered for the id.
func (r *Registry) HasLLM(id LLMProviderID) bool { return r.llm[id] != nil }
