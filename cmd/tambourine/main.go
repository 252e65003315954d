package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tambourinehq/tambourine/pkg/adapters/stt"
	"github.com/tambourinehq/tambourine/pkg/api"
	"github.com/tambourinehq/tambourine/pkg/llm"
	"github.com/tambourinehq/tambourine/pkg/logging"
	"github.com/tambourinehq/tambourine/pkg/metrics"
	"github.com/tambourinehq/tambourine/pkg/observers"
	"github.com/tambourinehq/tambourine/pkg/providers"
	"github.com/tambourinehq/tambourine/pkg/providers/deepgram"
	"github.com/tambourinehq/tambourine/pkg/providers/openai"
	"github.com/tambourinehq/tambourine/pkg/runner"
	"github.com/tambourinehq/tambourine/pkg/tambourine"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := tambourine.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config_load_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := logging.InitLogger(cfg.SlogLevel())

	registry := providers.NewRegistry()
	registerProviders(registry, cfg)

	obs := metrics.NewAsyncObserver(observers.NewLoggerObserver(logger), 1024)
	defer obs.Close()

	engine, err := tambourine.NewEngine(cfg, registry, obs)
	if err != nil {
		slog.Error("engine_init_failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	server := api.NewServer(cfg.Addr(), engine.Attach, engine.Availability())

	lc := runner.NewLifecycleRunner(engine, runner.Hooks{
		OnStart: func() {
			go func() {
				if err := server.Start(); err != nil {
					slog.Error("http_server_failed", slog.String("error", err.Error()))
					os.Exit(1)
				}
			}()
		},
		OnStop: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				slog.Warn("http_shutdown_error", slog.String("error", err.Error()))
			}
		},
	}, 15*time.Second)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := lc.Run(ctx); err != nil {
		slog.Error("shutdown_error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// registerProviders wires every credentialed vendor into the registry. The
// OpenAI-compatible family shares one adapter with different base URLs.
func registerProviders(registry *providers.Registry, cfg *tambourine.Config) {
	registry.RegisterSTT(providers.STTDeepgram, func(creds providers.Credentials, c stt.Config) (stt.StreamingSTT, error) {
		return deepgram.New(deepgram.Config{
			APIKey:     creds.DeepgramAPIKey,
			Language:   c.Language,
			SampleRate: c.SampleRate,
			StreamID:   c.StreamID,
			SessionID:  c.SessionID,
		}), nil
	})

	registry.RegisterLLM(providers.LLMOpenAI, func(creds providers.Credentials) (llm.Adapter, error) {
		a := openai.NewAdapter(creds.OpenAIAPIKey, "gpt-4o-mini")
		if creds.OpenAIBaseURL != "" {
			a.BaseURL = creds.OpenAIBaseURL
		}
		return a, nil
	})
	registry.RegisterLLM(providers.LLMCerebras, func(creds providers.Credentials) (llm.Adapter, error) {
		return openai.NewCompatibleAdapter("cerebras", creds.CerebrasAPIKey, "llama-3.3-70b", "https://api.cerebras.ai/v1"), nil
	})
	registry.RegisterLLM(providers.LLMGroq, func(creds providers.Credentials) (llm.Adapter, error) {
		return openai.NewCompatibleAdapter("groq", creds.GroqAPIKey, "llama-3.3-70b-versatile", "https://api.groq.com/openai/v1"), nil
	})
	registry.RegisterLLM(providers.LLMOpenRouter, func(creds providers.Credentials) (llm.Adapter, error) {
		return openai.NewCompatibleAdapter("openrouter", creds.OpenRouterAPIKey, "openai/gpt-4o-mini", "https://openrouter.ai/api/v1"), nil
	})
	registry.RegisterLLM(providers.LLMOllama, func(creds providers.Credentials) (llm.Adapter, error) {
		return openai.NewCompatibleAdapter("ollama", "", creds.OllamaModel, creds.OllamaBaseURL+"/v1"), nil
	})
}
