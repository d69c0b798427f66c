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

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Params  Params
	Timeout time.Duration
	Client  *http.Client
}

type OpenAIOracle struct {
	baseURL string
	apiKey  string
	model   string
	params  Params
	timeout time.Duration
	client  *http.Client
}

func NewOpenAIOracle(cfg OpenAIConfig) (*OpenAIOracle, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "gpt-5"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAIOracle{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		model:   model,
		params:  cfg.Params,
		timeout: timeout,
		client:  client,
	}, nil
}

func (o *OpenAIOracle) Generate(ctx context.Context, prompt string, purpose Purpose) (string, error) {
	params := o.params.For(purpose)
	body, err := json.Marshal(map[string]any{
		"model": o.model,
		"messages": []map[string]string{
			{"role": "system", "content": params.System},
			{"role": "user", "content": prompt},
		},
		"temperature": params.Temperature,
	})
	if err != nil {
		return "", &Failure{Purpose: purpose, Kind: KindMalformed, Err: fmt.Errorf("marshal chat payload: %w", err)}
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, o.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &Failure{Purpose: purpose, Kind: KindTransport, Err: fmt.Errorf("build chat request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(httpReq)
	if err != nil {
		return "", &Failure{Purpose: purpose, Kind: classifyTransport(err), Err: fmt.Errorf("request chat completion: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	rawRespBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &Failure{Purpose: purpose, Kind: classifyTransport(err), Err: fmt.Errorf("read chat response body: %w", err)}
	}
	if resp.StatusCode >= 400 {
		return "", &Failure{
			Purpose: purpose,
			Kind:    classifyStatus(resp.StatusCode),
			Err:     fmt.Errorf("chat completion failed status=%d body=%s", resp.StatusCode, truncateBody(rawRespBody)),
		}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawRespBody, &parsed); err != nil {
		return "", &Failure{Purpose: purpose, Kind: KindMalformed, Err: fmt.Errorf("decode chat completion response: %w", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &Failure{Purpose: purpose, Kind: KindEmpty, Err: fmt.Errorf("empty chat completion choices")}
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", &Failure{Purpose: purpose, Kind: KindEmpty, Err: fmt.Errorf("model returned empty content")}
	}
	return content, nil
}

func truncateBody(body []byte) string {
	const max = 512
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
