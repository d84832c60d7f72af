// Package gateway turns a PromptRequest into exactly one chat-completion call
// and maps the outcome to a CompletionResult or a typed *Error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"mindful-assistant/internal/types"
)

const (
	// FallbackResult replaces a completion with no usable content.
	FallbackResult = types.FallbackResult

	genericUpstreamMessage = "Failed to generate response"
)

// ChatCompleter is the slice of *openai.Client the gateway needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Options struct {
	// DefaultTemperature applies when a request carries none (or zero).
	DefaultTemperature float32
	// Timeout bounds the provider call; zero means no bound beyond ctx.
	Timeout time.Duration
}

type Gateway struct {
	client      ChatCompleter
	defaultTemp float32
	timeout     time.Duration
}

func New(client ChatCompleter, opts Options) *Gateway {
	return &Gateway{
		client:      client,
		defaultTemp: opts.DefaultTemperature,
		timeout:     opts.Timeout,
	}
}

// NewOpenAIClient builds the process-wide provider client.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return openai.NewClientWithConfig(cfg)
}

// Complete validates req, dispatches it once, and extracts the first choice.
// Invalid requests never reach the provider.
func (g *Gateway) Complete(ctx context.Context, req types.PromptRequest) (types.CompletionResult, error) {
	log.Info().
		Str("model", req.Model).
		Interface("temperature", req.Temperature).
		Int("system_prompt_len", len(req.SystemPrompt)).
		Int("user_prompt_len", len(req.UserPrompt)).
		Bool("response_format", req.ResponseFormat != nil).
		Str("mood", req.Mood).
		Msg("[gateway] received request")
	log.Debug().
		Str("system_prompt", req.SystemPrompt).
		Str("user_prompt", req.UserPrompt).
		Msg("[gateway] request prompts")

	if err := Validate(req); err != nil {
		return types.CompletionResult{}, err
	}

	chatReq := g.chatRequest(req)

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	resp, err := g.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		log.Error().Err(err).Str("model", req.Model).Msg("[gateway] provider call failed")
		return types.CompletionResult{}, &Error{Kind: UpstreamFailure, Message: upstreamMessage(err), Err: err}
	}

	ev := log.Info().
		Str("id", resp.ID).
		Str("model", resp.Model).
		Int("choices", len(resp.Choices)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens)
	if len(resp.Choices) > 0 {
		ev = ev.Str("finish_reason", string(resp.Choices[0].FinishReason))
	}
	ev.Msg("[gateway] provider response")
	log.Debug().Interface("response", resp).Msg("[gateway] raw provider response")

	return types.CompletionResult{Result: extract(resp)}, nil
}

// Validate reports every required field that is missing or blank.
func Validate(req types.PromptRequest) error {
	var missing []string
	if strings.TrimSpace(req.Model) == "" {
		missing = append(missing, "model")
	}
	if strings.TrimSpace(req.SystemPrompt) == "" {
		missing = append(missing, "systemPrompt")
	}
	if strings.TrimSpace(req.UserPrompt) == "" {
		missing = append(missing, "userPrompt")
	}
	if rf := req.ResponseFormat; rf != nil && rf.Type == string(openai.ChatCompletionResponseFormatTypeJSONSchema) {
		if rf.JSONSchema == nil || strings.TrimSpace(rf.JSONSchema.Name) == "" {
			missing = append(missing, "responseFormat.json_schema.name")
		}
		if rf.JSONSchema == nil || !hasSchema(rf.JSONSchema.Schema) {
			missing = append(missing, "responseFormat.json_schema.schema")
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &Error{
		Kind:    InvalidRequest,
		Message: "Missing required fields: " + strings.Join(missing, ", "),
	}
}

func hasSchema(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func (g *Gateway) chatRequest(req types.PromptRequest) openai.ChatCompletionRequest {
	temp := g.defaultTemp
	// go-openai drops a zero temperature on the wire, so zero counts as unset.
	if req.Temperature != nil && *req.Temperature != 0 {
		temp = *req.Temperature
	}
	user := req.UserPrompt
	if req.Mood != "" {
		user = fmt.Sprintf("%s\n\n%s", user, req.Mood)
	}
	out := openai.ChatCompletionRequest{
		Model:       req.Model,
		Temperature: temp,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}
	if rf := req.ResponseFormat; rf != nil {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatType(rf.Type),
		}
		if js := rf.JSONSchema; js != nil {
			out.ResponseFormat.JSONSchema = &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        js.Name,
				Description: js.Description,
				Strict:      js.Strict,
				Schema:      js.Schema,
			}
		}
	}
	return out
}

func extract(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return FallbackResult
	}
	if content := resp.Choices[0].Message.Content; content != "" {
		return content
	}
	return FallbackResult
}

func upstreamMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return genericUpstreamMessage
}
