package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OllamaConfig struct {
	BaseURL string
	Model   string
	Params  Params
	Timeout time.Duration
	Client  *http.Client
}

type OllamaOracle struct {
	baseURL string
	model   string
	params  Params
	timeout time.Duration
	client  *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

func NewOllamaOracle(cfg OllamaConfig) (*OllamaOracle, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaOracle{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:   model,
		params:  cfg.Params,
		timeout: timeout,
		client:  client,
	}, nil
}

func (o *OllamaOracle) Generate(ctx context.Context, prompt string, purpose Purpose) (string, error) {
	params := o.params.For(purpose)
	body, err := json.Marshal(ollamaChatRequest{
		Model: o.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: params.System},
			{Role: "user", Content: prompt},
		},
		Stream:  false,
		Options: ollamaOptions{Temperature: params.Temperature},
	})
	if err != nil {
		return "", &Failure{Purpose: purpose, Kind: KindMalformed, Err: fmt.Errorf("marshal ollama payload: %w", err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", &Failure{Purpose: purpose, Kind: KindTransport, Err: fmt.Errorf("build ollama request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", &Failure{Purpose: purpose, Kind: classifyTransport(err), Err: fmt.Errorf("request ollama chat: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Failure{Purpose: purpose, Kind: classifyTransport(err), Err: fmt.Errorf("read ollama response body: %w", err)}
	}
	if resp.StatusCode >= 400 {
		return "", &Failure{
			Purpose: purpose,
			Kind:    classifyStatus(resp.StatusCode),
			Err:     fmt.Errorf("ollama chat failed status=%d body=%s", resp.StatusCode, truncateBody(raw)),
		}
	}

	var parsed ollamaChatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &Failure{Purpose: purpose, Kind: KindMalformed, Err: fmt.Errorf("decode ollama response: %w", err)}
	}
	if parsed.Error != "" {
		return "", &Failure{Purpose: purpose, Kind: KindUpstream, Err: fmt.Errorf("ollama error: %s", parsed.Error)}
	}
	content := strings.TrimSpace(parsed.Message.Content)
	if content == "" {
		return "", &Failure{Purpose: purpose, Kind: KindEmpty, Err: fmt.Errorf("ollama returned empty content")}
	}
	return content, nil
}
