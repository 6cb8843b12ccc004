// internal/assistant/queryinterpreter/interpreter_test.go
package queryinterpreter

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-assistant/internal/common/llm"
	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

// ==========================================
// Test Doubles
// ==========================================

type stubClient struct {
	response   string
	err        error
	configured bool
	calls      int
}

func (s *stubClient) Complete(ctx context.Context, messages []llm.Message, opts llm.Options) (*llm.Completion, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llm.Completion{Text: s.response, TokensUsed: 10}, nil
}

func (s *stubClient) IsConfigured() bool { return s.configured }

// ==========================================
// Model Path
// ==========================================

func TestParse_ValidModelOutput(t *testing.T) {
	client := &stubClient{
		configured: true,
		response:   `{"dateRange":"this_weekend","categories":["music"],"keywords":["jazz","concert"],"priceRange":"free"}`,
	}
	interpreter := New(client, logger.NewNoOpLogger())

	descriptor := interpreter.Parse(context.Background(), "free jazz concerts this weekend")

	assert.Equal(t, models.DateRangeThisWeekend, descriptor.DateRange)
	assert.Equal(t, []string{"music"}, descriptor.Categories)
	assert.Equal(t, []string{"jazz", "concert"}, descriptor.Keywords)
	assert.Equal(t, models.PriceRangeFree, descriptor.PriceRange)
}

func TestParse_FencedModelOutput(t *testing.T) {
	client := &stubClient{
		configured: true,
		response:   "```json\n{\"dateRange\":\"today\",\"categories\":[],\"keywords\":[\"market\"],\"priceRange\":\"none\"}\n```",
	}
	interpreter := New(client, logger.NewNoOpLogger())

	descriptor := interpreter.Parse(context.Background(), "markets today")

	assert.Equal(t, models.DateRangeToday, descriptor.DateRange)
	assert.Equal(t, []string{"market"}, descriptor.Keywords)
}

func TestParse_UnknownEnumValuesNormalized(t *testing.T) {
	client := &stubClient{
		configured: true,
		response:   `{"dateRange":"sometime","categories":[],"keywords":["yoga"],"priceRange":"expensive"}`,
	}
	interpreter := New(client, logger.NewNoOpLogger())

	descriptor := interpreter.Parse(context.Background(), "yoga classes")

	assert.Equal(t, models.DateRangeNone, descriptor.DateRange)
	assert.Equal(t, models.PriceRangeNone, descriptor.PriceRange)
}

// ==========================================
// Fallback Path
// ==========================================

func TestParse_ModelErrorFallsBackToTokenization(t *testing.T) {
	client := &stubClient{configured: true, err: errors.New("boom")}
	interpreter := New(client, logger.NewNoOpLogger())

	descriptor := interpreter.Parse(context.Background(), "Free Weekend Events in TOWN")

	assert.Equal(t, models.DateRangeNone, descriptor.DateRange)
	assert.Equal(t, models.PriceRangeNone, descriptor.PriceRange)
	assert.Empty(t, descriptor.Categories)
	assert.Equal(t, []string{"free", "weekend", "events", "town"}, descriptor.Keywords)
}

func TestParse_NonJSONOutputFallsBack(t *testing.T) {
	client := &stubClient{configured: true, response: "I think you want free events!"}
	interpreter := New(client, logger.NewNoOpLogger())

	descriptor := interpreter.Parse(context.Background(), "free events")

	assert.Equal(t, []string{"free", "events"}, descriptor.Keywords)
}

func TestParse_SchemaMismatchFallsBack(t *testing.T) {
	// keywords as a string instead of an array.
	client := &stubClient{
		configured: true,
		response:   `{"dateRange":"none","categories":[],"keywords":"jazz","priceRange":"none"}`,
	}
	interpreter := New(client, logger.NewNoOpLogger())

	descriptor := interpreter.Parse(context.Background(), "jazz shows")

	assert.Equal(t, []string{"jazz", "shows"}, descriptor.Keywords)
}

func TestParse_UnconfiguredClientSkipsModelCall(t *testing.T) {
	client := &stubClient{configured: false}
	interpreter := New(client, logger.NewNoOpLogger())

	descriptor := interpreter.Parse(context.Background(), "weekend hikes")

	assert.Equal(t, 0, client.calls)
	assert.Equal(t, []string{"weekend", "hikes"}, descriptor.Keywords)
}

// ==========================================
// Tokenize
// ==========================================

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"drops short tokens", "go to a gig", []string{"gig"}},
		{"lowercases", "JAZZ Concert", []string{"jazz", "concert"}},
		{"all short tokens yields empty", "a to of in", []string{}},
		{"empty query", "", []string{}},
		{"collapses whitespace", "  farmers   market  ", []string{"farmers", "market"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Tokenize(tt.query))
		})
	}
}

func TestParse_FallbackNeverEmptyForLongTokens(t *testing.T) {
	client := &stubClient{configured: true, err: errors.New("down")}
	interpreter := New(client, logger.NewNoOpLogger())

	descriptor := interpreter.Parse(context.Background(), "ab cd events")

	require.NotEmpty(t, descriptor.Keywords)
	assert.Equal(t, []string{"events"}, descriptor.Keywords)
}
