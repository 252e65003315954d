package tambourine

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/tambourinehq/tambourine/pkg/providers"
)

// Config is the process-level configuration loaded once at startup. Vendor
// credentials come from the environment; everything else can also come from
// an optional YAML file.
type Config struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`

	STT struct {
		// TimeoutSeconds is the initial transcription debounce timeout.
		// Clients can change it per session at runtime.
		TimeoutSeconds float64 `mapstructure:"timeout_seconds"`
		Language       string  `mapstructure:"language"`
		SampleRate     int     `mapstructure:"sample_rate"`
	} `mapstructure:"stt"`

	Defaults struct {
		STTProvider string `mapstructure:"stt_provider"`
		LLMProvider string `mapstructure:"llm_provider"`
	} `mapstructure:"defaults"`

	Credentials providers.Credentials `mapstructure:"credentials"`
}

// credentialEnvVars maps credential config keys to their conventional
// environment variable names.
var credentialEnvVars = map[string]string{
	"credentials.assemblyai_api_key":             "ASSEMBLYAI_API_KEY",
	"credentials.cartesia_api_key":               "CARTESIA_API_KEY",
	"credentials.deepgram_api_key":               "DEEPGRAM_API_KEY",
	"credentials.aws_access_key_id":              "AWS_ACCESS_KEY_ID",
	"credentials.aws_secret_access_key":          "AWS_SECRET_ACCESS_KEY",
	"credentials.aws_region":                     "AWS_REGION",
	"credentials.azure_speech_key":               "AZURE_SPEECH_API_KEY",
	"credentials.azure_speech_region":            "AZURE_SPEECH_REGION",
	"credentials.google_application_credentials": "GOOGLE_APPLICATION_CREDENTIALS",
	"credentials.whisper_enabled":                "WHISPER_ENABLED",
	"credentials.openai_api_key":                 "OPENAI_API_KEY",
	"credentials.openai_base_url":                "OPENAI_BASE_URL",
	"credentials.google_api_key":                 "GOOGLE_API_KEY",
	"credentials.anthropic_api_key":              "ANTHROPIC_API_KEY",
	"credentials.cerebras_api_key":               "CEREBRAS_API_KEY",
	"credentials.groq_api_key":                   "GROQ_API_KEY",
	"credentials.ollama_base_url":                "OLLAMA_BASE_URL",
	"credentials.ollama_model":                   "OLLAMA_MODEL",
	"credentials.openrouter_api_key":             "OPENROUTER_API_KEY",
}

// LoadConfig reads configuration from the optional file at path, the
// TAMBOURINE_* environment, and the credential environment variables.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("port", 7860)
	v.SetDefault("log_level", "info")
	v.SetDefault("stt.timeout_seconds", 1.0)
	v.SetDefault("stt.language", "en")
	v.SetDefault("stt.sample_rate", 16000)

	v.SetEnvPrefix("TAMBOURINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envVar := range credentialEnvVars {
		if err := v.BindEnv(key, envVar); err != nil {
			return nil, fmt.Errorf("bind %s: %w", envVar, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.STT.TimeoutSeconds < 0.1 || cfg.STT.TimeoutSeconds > 10.0 {
		return nil, fmt.Errorf("stt.timeout_seconds %v out of range [0.1, 10.0]", cfg.STT.TimeoutSeconds)
	}
	return &cfg, nil
}

// SlogLevel maps the configured level string to a slog level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
