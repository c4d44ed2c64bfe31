package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Azure is a chat-completions client for an Azure OpenAI deployment.
type Azure struct {
	cfg    ModelConfig
	http   *http.Client
	logger *slog.Logger
	wait   time.Duration
}

// NewAzure builds an Azure client. cfg is expected to be validated.
func NewAzure(cfg ModelConfig, logger *slog.Logger) *Azure {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Azure{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
		wait:   500 * time.Millisecond,
	}
}

type azureTool struct {
	Type     string        `json:"type"`
	Function azureFunction `json:"function"`
}

type azureFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type azureRequest struct {
	Messages    []Message   `json:"messages"`
	Temperature float32     `json:"temperature"`
	MaxTokens   int         `json:"max_tokens"`
	Tools       []azureTool `json:"tools,omitempty"`
	ToolChoice  string      `json:"tool_choice,omitempty"`
}

type azureToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type azureResponse struct {
	Choices []struct {
		Message struct {
			Role      string          `json:"role"`
			Content   string          `json:"content"`
			ToolCalls []azureToolCall `json:"tool_calls"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Azure) url() string {
	return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		strings.TrimRight(c.cfg.Endpoint, "/"),
		url.PathEscape(c.cfg.Deployment),
		url.QueryEscape(c.cfg.APIVersion))
}

// Complete sends msgs to the deployment. Rate-limit and server errors are
// retried up to cfg.Retries times.
func (c *Azure) Complete(ctx context.Context, msgs []Message, opts Options) (*Response, error) {
	reqBody := azureRequest{
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.maxTokens(),
	}
	for _, t := range opts.Tools {
		reqBody.Tools = append(reqBody.Tools, azureTool{
			Type:     "function",
			Function: azureFunction{Name: t.Name, Description: t.Description, Parameters: t.Parameters},
		})
	}
	if len(reqBody.Tools) > 0 {
		reqBody.ToolChoice = opts.ToolChoice
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(backoff.WithInitialInterval(c.wait)),
			uint64(c.cfg.Retries),
		),
		ctx,
	)
	start := time.Now()
	resp, err := backoff.RetryNotifyWithData(func() (*azureResponse, error) {
		return c.post(ctx, payload)
	}, b, func(err error, wait time.Duration) {
		c.logger.Debug("llm retry", "wait", wait, "error", err)
	})
	if err != nil {
		c.logger.Warn("llm completion failed", "error", err, "elapsed", time.Since(start))
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("llm api: no choices in response")
	}

	msg := resp.Choices[0].Message
	out := &Response{Text: strings.TrimSpace(msg.Content), TotalTokens: resp.Usage.TotalTokens}
	for _, tc := range msg.ToolCalls {
		if tc.Type != "" && tc.Type != "function" {
			continue
		}
		args := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(args) {
			return nil, fmt.Errorf("llm api: tool %s: arguments are not valid JSON", tc.Function.Name)
		}
		out.ToolCalls = append(out.ToolCalls, ToolCall{ID: tc.ID, Name: tc.Function.Name, Arguments: args})
	}
	c.logger.Debug("llm completion",
		"tool_calls", len(out.ToolCalls),
		"tokens", out.TotalTokens,
		"finish", resp.Choices[0].FinishReason,
		"elapsed", time.Since(start))
	return out, nil
}

func (c *Azure) post(ctx context.Context, payload []byte) (*azureResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), bytes.NewReader(payload))
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var ar azureResponse
	decodeErr := json.Unmarshal(body, &ar)

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
		if decodeErr == nil && ar.Error != nil {
			apiErr.Message = ar.Error.Message
		}
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, apiErr
		}
		return nil, backoff.Permanent(apiErr)
	}
	if decodeErr != nil {
		return nil, backoff.Permanent(fmt.Errorf("decode response: %w", decodeErr))
	}
	return &ar, nil
}
