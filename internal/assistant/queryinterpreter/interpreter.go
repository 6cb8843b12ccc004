// internal/assistant/queryinterpreter/interpreter.go
package queryinterpreter

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"marketplace-assistant/internal/common/llm"
	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

const systemPrompt = `You are a search query parser for a local events and marketplace platform.
Convert the user's query into a JSON object with exactly these fields:
- dateRange: one of "today", "this_weekend", "next_week", "none"
- categories: array of category labels mentioned or implied (empty array if none)
- keywords: array of lowercase search terms extracted from the query
- priceRange: one of "free", "budget", "none"
Respond with ONLY the JSON object, no explanation and no markdown fences.`

// filterSchema rejects model output that drifts from the descriptor shape
// before it reaches the filter.
const filterSchema = `{
	"type": "object",
	"required": ["dateRange", "categories", "keywords", "priceRange"],
	"properties": {
		"dateRange": {"type": "string"},
		"categories": {"type": "array", "items": {"type": "string"}},
		"keywords": {"type": "array", "items": {"type": "string"}},
		"priceRange": {"type": "string"}
	}
}`

// minTokenLength drops stop-word noise in the fallback tokenizer.
const minTokenLength = 3

// Interpreter turns free text into a FilterDescriptor via a model call, with
// a deterministic tokenization fallback. Parse never returns an error.
type Interpreter struct {
	client llm.Client
	schema *gojsonschema.Schema
	logger logger.Logger
}

func New(client llm.Client, log logger.Logger) *Interpreter {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(filterSchema))
	if err != nil {
		// The schema is a compile-time constant, this only fires on a bad edit.
		panic("queryinterpreter: invalid filter schema: " + err.Error())
	}
	return &Interpreter{
		client: client,
		schema: schema,
		logger: log.With(map[string]interface{}{
			"component": "query-interpreter",
		}),
	}
}

// Parse converts a query into a normalized FilterDescriptor. Any model,
// transport, or validation failure degrades to the tokenization fallback.
func (i *Interpreter) Parse(ctx context.Context, query string) models.FilterDescriptor {
	if i.client == nil || !i.client.IsConfigured() {
		return i.fallback(query)
	}

	completion, err := i.client.Complete(ctx, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: query},
	}, llm.Options{Temperature: 0.1, MaxTokens: 200})
	if err != nil {
		i.logger.Warn("model parse failed, using fallback tokenization", map[string]interface{}{
			"error": err.Error(),
		})
		return i.fallback(query)
	}

	raw := stripCodeFences(completion.Text)

	result, err := i.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil || !result.Valid() {
		i.logger.Warn("model output failed schema validation, using fallback tokenization", nil)
		return i.fallback(query)
	}

	var descriptor models.FilterDescriptor
	if err := json.Unmarshal([]byte(raw), &descriptor); err != nil {
		return i.fallback(query)
	}

	return descriptor.Normalize()
}

// fallback builds a keywords-only descriptor from the raw query: lowercase,
// whitespace split, tokens shorter than minTokenLength dropped.
func (i *Interpreter) fallback(query string) models.FilterDescriptor {
	descriptor := models.NewFilterDescriptor()
	descriptor.Keywords = Tokenize(query)
	return descriptor
}

// Tokenize is the shared deterministic tokenization rule, exported so the
// search orchestrator can apply the same rule on its fallback path.
func Tokenize(query string) []string {
	tokens := []string{}
	for _, field := range strings.Fields(strings.ToLower(query)) {
		if len(field) >= minTokenLength {
			tokens = append(tokens, field)
		}
	}
	return tokens
}

// stripCodeFences unwraps responses the model insists on fencing anyway.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	return strings.TrimSpace(text)
}
