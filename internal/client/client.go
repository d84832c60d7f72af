// Package client calls a running completion gateway over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"mindful-assistant/internal/prompt"
	"mindful-assistant/internal/types"
)

const (
	completionPath    = "/api/openai"
	defaultPromptPath = "/api/prompts/default"
)

// StatusError is a non-2xx answer from the gateway.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.Status, e.Message)
}

type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	return NewWithResty(resty.New(), baseURL)
}

// NewWithResty lets callers (and tests) supply a preconfigured resty client.
func NewWithResty(rc *resty.Client, baseURL string) *Client {
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json")
	return &Client{http: rc}
}

// Complete posts req to the gateway and returns its result.
func (c *Client) Complete(ctx context.Context, req types.PromptRequest) (types.CompletionResult, error) {
	var out types.CompletionResult
	res, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post(completionPath)
	if err != nil {
		return out, fmt.Errorf("call gateway: %w", err)
	}
	if !res.IsSuccess() {
		return out, statusError(res)
	}
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return out, fmt.Errorf("decode gateway response: %w", err)
	}
	return out, nil
}

// DefaultPrompt fetches the template the gateway is configured with.
func (c *Client) DefaultPrompt(ctx context.Context) (prompt.Template, error) {
	var out prompt.Template
	res, err := c.http.R().SetContext(ctx).Get(defaultPromptPath)
	if err != nil {
		return out, fmt.Errorf("call gateway: %w", err)
	}
	if !res.IsSuccess() {
		return out, statusError(res)
	}
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return out, fmt.Errorf("decode prompt template: %w", err)
	}
	if err := out.Validate(); err != nil {
		return out, fmt.Errorf("gateway prompt template: %w", err)
	}
	return out, nil
}

func statusError(res *resty.Response) error {
	var body types.ErrorResponse
	msg := ""
	if err := json.Unmarshal(res.Body(), &body); err == nil {
		msg = body.Error
	}
	if msg == "" {
		msg = http.StatusText(res.StatusCode())
	}
	if msg == "" {
		msg = "Failed to generate response"
	}
	return &StatusError{Status: res.StatusCode(), Message: msg}
}
