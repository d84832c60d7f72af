// Package prompt holds the static prompt templates the front ends merge with
// user text before calling the gateway.
package prompt

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mindful-assistant/internal/types"
)

// QueryPlaceholder marks where the user's text goes in Template.UserPrompt.
const QueryPlaceholder = "{query}"

//go:embed health.yaml
var healthYAML []byte

// Template is a named prompt bundle. Temperature is optional; nil leaves the
// choice to the gateway.
type Template struct {
	Name           string                `json:"name"`
	Model          string                `json:"model"`
	Temperature    *float32              `json:"temperature,omitempty"`
	SystemPrompt   string                `json:"systemPrompt"`
	UserPrompt     string                `json:"userPrompt"`
	ResponseFormat *types.ResponseFormat `json:"responseFormat,omitempty"`
}

type templateFile struct {
	Name           string   `yaml:"name"`
	Model          string   `yaml:"model"`
	Temperature    *float32 `yaml:"temperature"`
	SystemPrompt   string   `yaml:"system_prompt"`
	UserPrompt     string   `yaml:"user_prompt"`
	ResponseFormat *struct {
		Type       string `yaml:"type"`
		JSONSchema *struct {
			Name        string         `yaml:"name"`
			Description string         `yaml:"description"`
			Strict      bool           `yaml:"strict"`
			Schema      map[string]any `yaml:"schema"`
		} `yaml:"json_schema"`
	} `yaml:"response_format"`
}

// Default returns the embedded HealthPrompt.
func Default() Template {
	t, err := Parse(healthYAML)
	if err != nil {
		panic("prompt: invalid embedded health.yaml: " + err.Error())
	}
	return t
}

// Load reads a YAML template from path.
func Load(path string) (Template, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Template{}, err
	}
	t, err := Parse(b)
	if err != nil {
		return Template{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func Parse(b []byte) (Template, error) {
	var doc templateFile
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return Template{}, err
	}
	t := Template{
		Name:         doc.Name,
		Model:        doc.Model,
		Temperature:  doc.Temperature,
		SystemPrompt: strings.TrimSpace(doc.SystemPrompt),
		UserPrompt:   strings.TrimSpace(doc.UserPrompt),
	}
	if rf := doc.ResponseFormat; rf != nil {
		t.ResponseFormat = &types.ResponseFormat{Type: rf.Type}
		if js := rf.JSONSchema; js != nil {
			schema, err := json.Marshal(js.Schema)
			if err != nil {
				return Template{}, fmt.Errorf("response_format schema: %w", err)
			}
			t.ResponseFormat.JSONSchema = &types.JSONSchema{
				Name:        js.Name,
				Description: js.Description,
				Strict:      js.Strict,
				Schema:      schema,
			}
		}
	}
	if err := t.Validate(); err != nil {
		return Template{}, err
	}
	return t, nil
}

func (t Template) Validate() error {
	var missing []string
	if t.Name == "" {
		missing = append(missing, "name")
	}
	if t.Model == "" {
		missing = append(missing, "model")
	}
	if t.SystemPrompt == "" {
		missing = append(missing, "system_prompt")
	}
	if t.UserPrompt == "" {
		missing = append(missing, "user_prompt")
	}
	if len(missing) > 0 {
		return fmt.Errorf("template missing %s", strings.Join(missing, ", "))
	}
	if !strings.Contains(t.UserPrompt, QueryPlaceholder) {
		return fmt.Errorf("user_prompt must contain %s", QueryPlaceholder)
	}
	if rf := t.ResponseFormat; rf != nil {
		if rf.Type == "" {
			return errors.New("response_format.type is required")
		}
		if rf.Type == "json_schema" && (rf.JSONSchema == nil || rf.JSONSchema.Name == "") {
			return errors.New("response_format.json_schema.name is required for json_schema")
		}
	}
	return nil
}

// UserPromptFor interpolates query into the user prompt.
func (t Template) UserPromptFor(query string) string {
	return strings.ReplaceAll(t.UserPrompt, QueryPlaceholder, query)
}

// Build merges the template with the user's query into a fresh request. The
// returned request shares no memory with t.
func (t Template) Build(query string) types.PromptRequest {
	req := types.PromptRequest{
		Model:        t.Model,
		SystemPrompt: t.SystemPrompt,
		UserPrompt:   t.UserPromptFor(query),
	}
	if t.Temperature != nil {
		temp := *t.Temperature
		req.Temperature = &temp
	}
	if rf := t.ResponseFormat; rf != nil {
		cp := *rf
		if rf.JSONSchema != nil {
			js := *rf.JSONSchema
			js.Schema = append(json.RawMessage(nil), rf.JSONSchema.Schema...)
			cp.JSONSchema = &js
		}
		req.ResponseFormat = &cp
	}
	return req
}

// ParseAdvice unwraps a structured {"advice": "..."} reply. A blank advice
// becomes types.FallbackResult; anything else is returned unchanged.
func ParseAdvice(result string) string {
	trimmed := strings.TrimSpace(result)
	if !strings.HasPrefix(trimmed, "{") {
		return result
	}
	var out struct {
		Advice *string `json:"advice"`
	}
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil || out.Advice == nil {
		return result
	}
	if strings.TrimSpace(*out.Advice) == "" {
		return types.FallbackResult
	}
	return *out.Advice
}
