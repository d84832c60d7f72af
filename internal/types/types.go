package types

import "encoding/json"

// PromptRequest is the body of POST /api/openai.
type PromptRequest struct {
	Model string `json:"model"`
	// nil means "use the gateway's default temperature"
	Temperature    *float32        `json:"temperature,omitempty"`
	SystemPrompt   string          `json:"systemPrompt"`
	UserPrompt     string          `json:"userPrompt"`
	ResponseFormat *ResponseFormat `json:"responseFormat,omitempty"`
	// Mood is optional context sent by the floating widget.
	Mood string `json:"mood,omitempty"`
}

// ResponseFormat mirrors the provider's response_format object. A nil
// *ResponseFormat requests a plain-text completion. Only the fields below are
// forwarded; unknown keys are dropped.
type ResponseFormat struct {
	Type       string      `json:"type"`
	JSONSchema *JSONSchema `json:"json_schema,omitempty"`
}

// JSONSchema describes structured output for Type == "json_schema".
type JSONSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Strict      bool            `json:"strict"`
	Schema      json.RawMessage `json:"schema"`
}

// FallbackResult is shown when a completion carries no usable text.
const FallbackResult = "No valid response received."

type CompletionResult struct {
	Result string `json:"result"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
