// internal/common/llm/client.go
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"marketplace-assistant/internal/common/config"
	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/common/metrics"
)

var (
	ErrNotConfigured   = errors.New("MODEL_NOT_CONFIGURED")
	ErrModelTimeout    = errors.New("MODEL_TIMEOUT")
	ErrModelCallFailed = errors.New("MODEL_CALL_FAILED")
)

// Message is one turn of model input.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single completion call.
type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string
}

// Completion is the model's reply plus accounting.
type Completion struct {
	Text       string
	TokensUsed int
}

// Client is the injected model-call abstraction. Orchestrators depend on this
// interface so tests can substitute a double.
type Client interface {
	Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error)
	IsConfigured() bool
}

// HTTPClient talks to an OpenAI-compatible chat completions endpoint.
type HTTPClient struct {
	config *config.GenAIConfig
	client *http.Client
	logger logger.Logger
}

func NewHTTPClient(cfg *config.GenAIConfig, log logger.Logger) *HTTPClient {
	return &HTTPClient{
		config: cfg,
		// No client timeout, the per-call context bounds the request.
		client: &http.Client{},
		logger: log.With(map[string]interface{}{
			"component": "llm-client",
		}),
	}
}

func (c *HTTPClient) IsConfigured() bool {
	return c.config.IsConfigured()
}

func (c *HTTPClient) Complete(ctx context.Context, messages []Message, opts Options) (*Completion, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	model := opts.Model
	if model == "" {
		model = c.config.Model
	}

	requestBody := map[string]interface{}{
		"model":       model,
		"messages":    messages,
		"temperature": opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		requestBody["max_tokens"] = opts.MaxTokens
	}
	body, _ := json.Marshal(requestBody)

	start := time.Now()
	var resp *http.Response
	var lastErr error

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(100*(1<<(attempt-1))) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				metrics.ModelCallsTotal.WithLabelValues("timeout").Inc()
				return nil, ErrModelTimeout
			}
		}

		req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/v1/chat/completions", bytes.NewBuffer(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelCallFailed, err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

		resp, lastErr = c.client.Do(req)

		if ctx.Err() != nil ||
			errors.Is(lastErr, context.DeadlineExceeded) ||
			errors.Is(lastErr, context.Canceled) {
			metrics.ModelCallsTotal.WithLabelValues("timeout").Inc()
			return nil, ErrModelTimeout
		}

		if lastErr == nil {
			if resp.StatusCode == http.StatusOK {
				break
			}
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			resp = nil
		}
	}

	if lastErr != nil {
		if ctx.Err() == context.DeadlineExceeded {
			metrics.ModelCallsTotal.WithLabelValues("timeout").Inc()
			return nil, ErrModelTimeout
		}
		metrics.ModelCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrModelCallFailed, lastErr)
	}

	if resp == nil {
		metrics.ModelCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: no successful response after retries", ErrModelCallFailed)
	}
	defer resp.Body.Close()

	var apiResponse struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		metrics.ModelCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: decode error: %v", ErrModelCallFailed, err)
	}

	if len(apiResponse.Choices) == 0 || strings.TrimSpace(apiResponse.Choices[0].Message.Content) == "" {
		metrics.ModelCallsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: empty completion", ErrModelCallFailed)
	}

	metrics.ModelCallsTotal.WithLabelValues("ok").Inc()
	metrics.ModelCallDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())

	c.logger.Debug("model call completed", map[string]interface{}{
		"tokensUsed": apiResponse.Usage.TotalTokens,
		"durationMs": time.Since(start).Milliseconds(),
	})

	return &Completion{
		Text:       strings.TrimSpace(apiResponse.Choices[0].Message.Content),
		TokensUsed: apiResponse.Usage.TotalTokens,
	}, nil
}
