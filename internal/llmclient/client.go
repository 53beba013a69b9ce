// Package llmclient is the Tier-1 path: an OpenAI-compatible chat
// completion and embedding client. This package only talks to the wire:
// it makes no retries and sets no deadline beyond the HTTP client's
// timeout. Ingestion routes its chat calls through tier.WithFallback and
// popupgen bounds its call with errs.DeadlineCall; no caller wraps a
// call in errs.Retry.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/argus-assistant/argus/internal/errs"
)

// Config configures a Client. BaseURL defaults to the OpenAI
// Chat Completions API root when empty.
type Config struct {
	APIKey       string
	BaseURL      string
	ChatModel    string
	EmbedModel   string
	Organization string
	HTTPTimeout  time.Duration
}

const defaultBaseURL = "https://api.openai.com/v1"

// ChatTurn is one message in a chat history.
type ChatTurn struct {
	Role    string // "system", "user", "assistant"
	Content string
}

// Client is a thin OpenAI-compatible wire client.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client. logger may be nil.
func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 45 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.HTTPTimeout},
		logger: logger,
	}
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Usage reports token accounting for a completed call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
}

// ChatCompletion sends a synchronous chat request and returns the
// assistant's reply text.
func (c *Client) ChatCompletion(ctx context.Context, turns []ChatTurn) (string, Usage, error) {
	wireMsgs := make([]wireMessage, 0, len(turns))
	for _, t := range turns {
		wireMsgs = append(wireMsgs, wireMessage{Role: t.Role, Content: t.Content})
	}

	reqBody := chatCompletionRequest{
		Model:       c.cfg.ChatModel,
		Messages:    wireMsgs,
		Temperature: 0.3,
		MaxTokens:   800,
	}

	var resp chatCompletionResponse
	if err := c.doJSON(ctx, "/chat/completions", reqBody, &resp); err != nil {
		return "", Usage{}, err
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, errs.NewUpstreamError(502, "no choices returned")
	}

	usage := Usage{PromptTokens: resp.Usage.PromptTokens, CompletionTokens: resp.Usage.CompletionTokens}
	return resp.Choices[0].Message.Content, usage, nil
}

type embeddingRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns a fixed-length embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := embeddingRequest{Model: c.cfg.EmbedModel, Input: text}

	var resp embeddingResponse
	if err := c.doJSON(ctx, "/embeddings", reqBody, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, errs.NewUpstreamError(502, "no embedding data returned")
	}
	return resp.Data[0].Embedding, nil
}

// HealthCheck performs a minimal completion request, used as the tier
// orchestrator's re-escalation probe.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, _, err := c.ChatCompletion(ctx, []ChatTurn{{Role: "user", Content: "ping"}})
	return err
}

func (c *Client) doJSON(ctx context.Context, path string, reqBody, respBody any) error {
	buf, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.Organization != "" {
		httpReq.Header.Set("OpenAI-Organization", c.cfg.Organization)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBuf, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("llm upstream error", zap.Int("status", resp.StatusCode), zap.String("path", path))
		return errs.NewUpstreamError(resp.StatusCode, string(respBuf))
	}

	if err := json.Unmarshal(respBuf, respBody); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
