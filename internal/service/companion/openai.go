package companion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	applog "github.com/janisto/duo-journal/internal/platform/logging"
)

const (
	DefaultBaseURL     = "https://api-inference.modelscope.cn/v1"
	DefaultModel       = "Qwen/Qwen3-8B"
	defaultTemperature = 0.7
	defaultMaxTokens   = 500
	userAgent          = "duo-journal"
	maxErrorBody       = 4 << 10
)

// OpenAIModel calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIModel struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
}

// OpenAIOption configures an OpenAIModel.
type OpenAIOption func(*OpenAIModel)

// WithBaseURL sets the API root, for example a test server.
func WithBaseURL(url string) OpenAIOption {
	return func(m *OpenAIModel) {
		m.baseURL = strings.TrimRight(url, "/")
	}
}

// WithModel selects the model id.
func WithModel(model string) OpenAIOption {
	return func(m *OpenAIModel) {
		m.model = model
	}
}

// NewOpenAIModel creates a client authenticated with apiKey.
func NewOpenAIModel(httpClient *http.Client, apiKey string, opts ...OpenAIOption) *OpenAIModel {
	m := &OpenAIModel{
		httpClient: httpClient,
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		model:      DefaultModel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Wire types (snake_case JSON matching the chat completions API).

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float64       `json:"temperature"`
	MaxTokens      int           `json:"max_tokens"`
	EnableThinking bool          `json:"enable_thinking"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Complete sends the conversation and returns the first choice's text.
func (m *OpenAIModel) Complete(ctx context.Context, messages []Message) (string, error) {
	body := chatRequest{
		Model:          m.model,
		Messages:       make([]chatMessage, len(messages)),
		Temperature:    defaultTemperature,
		MaxTokens:      defaultMaxTokens,
		EnableThinking: false,
	}
	for i, msg := range messages {
		body.Messages[i] = chatMessage{Role: string(msg.Role), Content: msg.Content}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling chat completions: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		applog.LogWarn(ctx, "companion model request failed",
			zap.Int("status", resp.StatusCode),
			zap.String("model", m.model),
			zap.String("body", string(snippet)),
		)
		return "", newUpstreamError(resp.StatusCode, strings.TrimSpace(resp.Header.Get("Retry-After")))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return FallbackReply, nil
	}
	return out.Choices[0].Message.Content, nil
}

// Compile-time interface check
var _ Model = (*OpenAIModel)(nil)
