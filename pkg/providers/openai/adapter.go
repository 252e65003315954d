package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/tambourinehq/tambourine/pkg/llm"
)

// Adapter rewrites utterances through an OpenAI-compatible chat completions
// endpoint. Cerebras, Groq, OpenRouter and Ollama expose the same surface,
// so they reuse this adapter with a different name and base URL.
type Adapter struct {
	APIKey   string
	Model    string
	BaseURL  string
	Provider string
	Client   *http.Client
}

func NewAdapter(apiKey, model string) *Adapter {
	return &Adapter{
		APIKey:   apiKey,
		Model:    model,
		BaseURL:  "https://api.openai.com/v1",
		Provider: "openai",
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// NewCompatibleAdapter targets any OpenAI-compatible endpoint.
func NewCompatibleAdapter(provider, apiKey, model, baseURL string) *Adapter {
	a := NewAdapter(apiKey, model)
	a.Provider = provider
	if baseURL != "" {
		a.BaseURL = baseURL
	}
	return a
}

func (a *Adapter) Name() string { return a.Provider }

func (a *Adapter) Rewrite(ctx context.Context, instruction, text string) (string, error) {
	payload := map[string]any{
		"model": a.Model,
		"messages": []map[string]any{
			{"role": "system", "content": instruction},
			{"role": "user", "content": text},
		},
		"temperature": 0,
	}
	buf, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/chat/completions", bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if a.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.APIKey)
	}
	resp, err := a.client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.New(string(body))
	}
	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", err
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

func (a *Adapter) client() *http.Client {
	if a.Client != nil {
		return a.Client
	}
	return http.DefaultClient
}

var _ llm.Adapter = (*Adapter)(nil)
