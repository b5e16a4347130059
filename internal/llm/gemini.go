// Package llm provides the text-generation oracle used for task extraction
// and conversational replies.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	merrors "github.com/scrum-maestro/agent/internal/errors"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 60 * time.Second
)

// Oracle is the narrow interface the rest of the system consumes. Any
// non-success is treated by callers as "no usable output".
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// GeminiClient calls the Gemini generateContent API.
type GeminiClient struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  zerolog.Logger
}

// GeminiOption configures the client.
type GeminiOption func(*GeminiClient)

func WithModel(model string) GeminiOption {
	return func(c *GeminiClient) { c.model = model }
}

func WithBaseURL(url string) GeminiOption {
	return func(c *GeminiClient) { c.baseURL = url }
}

func WithTimeout(d time.Duration) GeminiOption {
	return func(c *GeminiClient) { c.client.Timeout = d }
}

func WithHTTPClient(hc *http.Client) GeminiOption {
	return func(c *GeminiClient) { c.client = hc }
}

// NewGeminiClient constructs a Gemini oracle client.
func NewGeminiClient(apiKey string, logger zerolog.Logger, opts ...GeminiOption) *GeminiClient {
	c := &GeminiClient{
		apiKey:  apiKey,
		model:   defaultModel,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  logger.With().Str("component", "llm").Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---- Gemini wire types ----

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

// Complete sends a blocking single-turn completion request and returns the
// first candidate's concatenated text.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("gemini http: %w", ctx.Err())
		}
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return "", fmt.Errorf("gemini http: %w: %v", merrors.ErrTimeout, err)
		}
		return "", fmt.Errorf("gemini http: %w: %v", merrors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", merrors.NewAPIError("gemini", resp.StatusCode, truncate(string(raw), 200))
	}

	var gr geminiResponse
	if err := json.Unmarshal(raw, &gr); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if gr.Error != nil {
		return "", merrors.NewAPIError("gemini", gr.Error.Code, gr.Error.Message)
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: empty response")
	}

	var text string
	for _, part := range gr.Candidates[0].Content.Parts {
		text += part.Text
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("prompt_len", len(prompt)).
		Int("reply_len", len(text)).
		Dur("duration", time.Since(start).Round(time.Millisecond)).
		Msg("gemini complete")
	return text, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
