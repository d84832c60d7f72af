package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindful-assistant/internal/prompt"
	"mindful-assistant/internal/types"
)

type fakeCompleter struct {
	calls []openai.ChatCompletionRequest
	resp  openai.ChatCompletionResponse
	err   error
	// deadline observed on the last call
	hadDeadline bool
}

func (f *fakeCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls = append(f.calls, req)
	_, f.hadDeadline = ctx.Deadline()
	return f.resp, f.err
}

func reply(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		ID:    "chatcmpl-1",
		Model: "gpt-4o",
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: content}},
		},
	}
}

func validRequest() types.PromptRequest {
	return types.PromptRequest{
		Model:        "gpt-4o",
		SystemPrompt: "You are a compassionate assistant.",
		UserPrompt:   "Provide advice or support for: I feel anxious.",
	}
}

func temp(v float32) *float32 { return &v }

func TestMissingFieldsNeverReachProvider(t *testing.T) {
	cases := map[string]func(*types.PromptRequest){
		"model":        func(r *types.PromptRequest) { r.Model = "" },
		"systemPrompt": func(r *types.PromptRequest) { r.SystemPrompt = "" },
		"userPrompt":   func(r *types.PromptRequest) { r.UserPrompt = "  " },
		"all": func(r *types.PromptRequest) {
			*r = types.PromptRequest{}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			fc := &fakeCompleter{resp: reply("unused")}
			g := New(fc, Options{DefaultTemperature: 0.7})
			req := validRequest()
			mutate(&req)

			_, err := g.Complete(context.Background(), req)

			require.Error(t, err)
			assert.True(t, IsKind(err, InvalidRequest))
			assert.Equal(t, http.StatusBadRequest, StatusOf(err))
			assert.Empty(t, fc.calls)
		})
	}
}

func TestValidateNamesMissingFields(t *testing.T) {
	err := Validate(types.PromptRequest{SystemPrompt: "s"})
	require.Error(t, err)
	assert.Equal(t, "Missing required fields: model, userPrompt", err.Error())
}

func TestDispatchShape(t *testing.T) {
	fc := &fakeCompleter{resp: reply("ok")}
	g := New(fc, Options{DefaultTemperature: 0.7})

	_, err := g.Complete(context.Background(), validRequest())
	require.NoError(t, err)
	require.Len(t, fc.calls, 1)

	call := fc.calls[0]
	assert.Equal(t, "gpt-4o", call.Model)
	require.Len(t, call.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, call.Messages[0].Role)
	assert.Equal(t, "You are a compassionate assistant.", call.Messages[0].Content)
	assert.Equal(t, openai.ChatMessageRoleUser, call.Messages[1].Role)
	assert.Equal(t, "Provide advice or support for: I feel anxious.", call.Messages[1].Content)
	assert.False(t, fc.hadDeadline)
}

func TestDefaultTemperature(t *testing.T) {
	for _, def := range []float32{0.7, 1} {
		fc := &fakeCompleter{resp: reply("ok")}
		g := New(fc, Options{DefaultTemperature: def})

		_, err := g.Complete(context.Background(), validRequest())
		require.NoError(t, err)
		assert.Equal(t, def, fc.calls[0].Temperature)
	}
}

func TestExplicitTemperature(t *testing.T) {
	fc := &fakeCompleter{resp: reply("ok")}
	g := New(fc, Options{DefaultTemperature: 0.7})
	req := validRequest()
	req.Temperature = temp(1.3)

	_, err := g.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, float32(1.3), fc.calls[0].Temperature)
}

func TestResponseFormatOmittedWhenAbsent(t *testing.T) {
	fc := &fakeCompleter{resp: reply("ok")}
	g := New(fc, Options{DefaultTemperature: 0.7})

	_, err := g.Complete(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Nil(t, fc.calls[0].ResponseFormat)

	b, err := json.Marshal(fc.calls[0])
	require.NoError(t, err)
	assert.NotContains(t, string(b), "response_format")
}

func TestResponseFormatPassedThrough(t *testing.T) {
	fc := &fakeCompleter{resp: reply(`{"advice":"Breathe."}`)}
	g := New(fc, Options{DefaultTemperature: 0.7})

	req := prompt.Default().Build("I feel anxious")
	_, err := g.Complete(context.Background(), req)
	require.NoError(t, err)

	rf := fc.calls[0].ResponseFormat
	require.NotNil(t, rf)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, rf.Type)
	require.NotNil(t, rf.JSONSchema)
	assert.Equal(t, "mentalHealthResponse", rf.JSONSchema.Name)
	assert.True(t, rf.JSONSchema.Strict)

	schema, err := rf.JSONSchema.Schema.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, string(req.ResponseFormat.JSONSchema.Schema), string(schema))
	assert.Equal(t, float32(1), fc.calls[0].Temperature)
}

func TestJSONSchemaFormatRequiresSchema(t *testing.T) {
	cases := map[string]*types.JSONSchema{
		"no json_schema": nil,
		"no schema":      {Name: "x"},
		"null schema":    {Name: "x", Schema: json.RawMessage(" null ")},
	}
	for name, js := range cases {
		t.Run(name, func(t *testing.T) {
			fc := &fakeCompleter{resp: reply("unused")}
			g := New(fc, Options{DefaultTemperature: 0.7})
			req := validRequest()
			req.ResponseFormat = &types.ResponseFormat{Type: "json_schema", JSONSchema: js}

			_, err := g.Complete(context.Background(), req)

			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, StatusOf(err))
			assert.Contains(t, err.Error(), "responseFormat.json_schema.schema")
			assert.Empty(t, fc.calls)
		})
	}
}

func TestJSONObjectFormatNeedsNoSchema(t *testing.T) {
	fc := &fakeCompleter{resp: reply("{}")}
	g := New(fc, Options{DefaultTemperature: 0.7})
	req := validRequest()
	req.ResponseFormat = &types.ResponseFormat{Type: "json_object"}

	_, err := g.Complete(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, fc.calls[0].ResponseFormat)
	assert.Nil(t, fc.calls[0].ResponseFormat.JSONSchema)
}

func TestMoodAppendedToUserMessage(t *testing.T) {
	fc := &fakeCompleter{resp: reply("ok")}
	g := New(fc, Options{DefaultTemperature: 0.7})
	req := validRequest()
	req.Mood = "Mood: tired"

	_, err := g.Complete(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Provide advice or support for: I feel anxious.\n\nMood: tired", fc.calls[0].Messages[1].Content)
}

func TestResultIsVerbatim(t *testing.T) {
	content := "  Try deep breathing exercises.\n"
	g := New(&fakeCompleter{resp: reply(content)}, Options{DefaultTemperature: 0.7})

	res, err := g.Complete(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, content, res.Result)
}

func TestFallbackResult(t *testing.T) {
	cases := map[string]openai.ChatCompletionResponse{
		"no choices":    {ID: "x"},
		"empty content": reply(""),
	}
	for name, resp := range cases {
		t.Run(name, func(t *testing.T) {
			g := New(&fakeCompleter{resp: resp}, Options{DefaultTemperature: 0.7})
			res, err := g.Complete(context.Background(), validRequest())
			require.NoError(t, err)
			assert.Equal(t, FallbackResult, res.Result)
		})
	}
}

func TestProviderErrorIsUpstreamFailure(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	g := New(&fakeCompleter{err: cause}, Options{DefaultTemperature: 0.7})

	_, err := g.Complete(context.Background(), validRequest())

	require.Error(t, err)
	assert.True(t, IsKind(err, UpstreamFailure))
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "dial tcp: connection refused", err.Error())
}

func TestProviderAPIErrorMessage(t *testing.T) {
	apiErr := &openai.APIError{HTTPStatusCode: 401, Message: "Incorrect API key provided"}
	g := New(&fakeCompleter{err: apiErr}, Options{DefaultTemperature: 0.7})

	_, err := g.Complete(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, "Incorrect API key provided", err.Error())
}

type emptyErr struct{}

func (emptyErr) Error() string { return "" }

func TestProviderErrorGenericMessage(t *testing.T) {
	g := New(&fakeCompleter{err: emptyErr{}}, Options{DefaultTemperature: 0.7})

	_, err := g.Complete(context.Background(), validRequest())
	require.Error(t, err)
	assert.Equal(t, "Failed to generate response", err.Error())
}

func TestTimeoutApplied(t *testing.T) {
	fc := &fakeCompleter{resp: reply("ok")}
	g := New(fc, Options{DefaultTemperature: 0.7, Timeout: time.Minute})

	_, err := g.Complete(context.Background(), validRequest())
	require.NoError(t, err)
	assert.True(t, fc.hadDeadline)
}

func TestStatusOfPlainError(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
	assert.Equal(t, "invalid_request", InvalidRequest.String())
	assert.Equal(t, "upstream_failure", UpstreamFailure.String())
}
