// internal/assistant/contextbuilder/builder_test.go
package contextbuilder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

// ==========================================
// Test Doubles
// ==========================================

type stubLookup struct {
	upcoming   []models.EventRecord
	popular    []models.EventRecord
	businesses []models.BusinessRecord
	err        error
}

func (s *stubLookup) GetUpcomingEvents(ctx context.Context, days, limit int) ([]models.EventRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.upcoming, nil
}

func (s *stubLookup) GetPopularEvents(ctx context.Context, limit int) ([]models.EventRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.popular, nil
}

func (s *stubLookup) GetBusinessesByCategory(ctx context.Context, category string) ([]models.BusinessRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.businesses, nil
}

func testBusiness() models.BusinessRecord {
	return models.BusinessRecord{
		ID:          "biz-1",
		Name:        "Corner Bakery",
		Category:    "bakery",
		Description: "Sourdough and pastries since 1998",
		Address:     "12 Main St",
		Phone:       "555-0100",
		Email:       "hello@cornerbakery.test",
		Hours:       "Tue-Sun 7am-3pm",
	}
}

func minimalConfig() models.AgentConfig {
	return models.AgentConfig{
		BusinessID:        "biz-1",
		Active:            true,
		Personality:       models.PersonalityFriendly,
		MaxResponseLength: 400,
	}
}

// ==========================================
// Primary Sections
// ==========================================

func TestBuildPrompt_MinimalConfigHasPrimaryAndInstructions(t *testing.T) {
	builder := New(&stubLookup{}, DefaultLimits(), logger.NewNoOpLogger())

	prompt := builder.BuildPrompt(context.Background(), minimalConfig(), testBusiness())

	assert.Contains(t, prompt, "Corner Bakery")
	assert.Contains(t, prompt, "Sourdough and pastries since 1998")
	assert.Contains(t, prompt, primaryHeader)
	assert.Contains(t, prompt, "INSTRUCTIONS:")
	assert.Contains(t, prompt, "Never invent facts")

	assert.NotContains(t, prompt, "CATALOG:")
	assert.NotContains(t, prompt, "FREQUENTLY ASKED QUESTIONS:")
	assert.NotContains(t, prompt, "POLICIES:")
	assert.NotContains(t, prompt, secondaryHeader)
}

func TestBuildPrompt_PersonalityFraming(t *testing.T) {
	builder := New(&stubLookup{}, DefaultLimits(), logger.NewNoOpLogger())

	config := minimalConfig()
	config.Personality = models.PersonalityProfessional

	prompt := builder.BuildPrompt(context.Background(), config, testBusiness())

	assert.Contains(t, prompt, "professional, courteous tone")
	assert.Contains(t, prompt, "Stay in the professional tone")
}

func TestBuildPrompt_UnknownPersonalityDefaultsToFriendly(t *testing.T) {
	builder := New(&stubLookup{}, DefaultLimits(), logger.NewNoOpLogger())

	config := minimalConfig()
	config.Personality = "sassy"

	prompt := builder.BuildPrompt(context.Background(), config, testBusiness())

	assert.Contains(t, prompt, "warm and welcoming")
}

func TestBuildPrompt_ResponseLengthClamped(t *testing.T) {
	builder := New(&stubLookup{}, DefaultLimits(), logger.NewNoOpLogger())

	config := minimalConfig()
	config.MaxResponseLength = 5000

	prompt := builder.BuildPrompt(context.Background(), config, testBusiness())

	assert.Contains(t, prompt, "under 1000 characters")
}

func TestBuildPrompt_CatalogFAQAndPolicies(t *testing.T) {
	builder := New(&stubLookup{}, DefaultLimits(), logger.NewNoOpLogger())

	config := minimalConfig()
	config.KnowledgeBase = models.KnowledgeBase{
		MenuData: models.MenuData{Categories: []models.MenuCategory{
			{Name: "Breads", Items: []models.MenuItem{
				{Name: "Sourdough Loaf", Description: "24h fermented", Price: "$8"},
			}},
		}},
		FAQData: []models.FAQ{
			{Question: "Do you take orders?", Answer: "Yes, 48h ahead."},
		},
		Policies: models.Policies{ReturnPolicy: "No returns on baked goods."},
	}

	prompt := builder.BuildPrompt(context.Background(), config, testBusiness())

	assert.Contains(t, prompt, "CATALOG:\nBreads:\n  Sourdough Loaf: 24h fermented - $8")
	assert.Contains(t, prompt, "Q: Do you take orders?\nA: Yes, 48h ahead.")
	assert.Contains(t, prompt, "Returns: No returns on baked goods.")
	assert.NotContains(t, prompt, "Cancellations:")
}

// ==========================================
// Secondary Section
// ==========================================

func TestBuildPrompt_SecondarySectionWhenEnabled(t *testing.T) {
	lookup := &stubLookup{
		upcoming: []models.EventRecord{
			{Title: "Bread Festival", Location: "Town Square", StartDate: "2026-03-07", Category: "food", IsFree: true},
		},
		popular: []models.EventRecord{
			{Title: "Night Market", ViewCount: 420},
		},
		businesses: []models.BusinessRecord{
			{ID: "biz-1", Name: "Corner Bakery", Category: "bakery"},
			{ID: "biz-2", Name: "Rival Bakery", Category: "bakery"},
		},
	}
	builder := New(lookup, DefaultLimits(), logger.NewNoOpLogger())

	config := minimalConfig()
	config.IncludePlatformContext = true

	prompt := builder.BuildPrompt(context.Background(), config, testBusiness())

	assert.Contains(t, prompt, secondaryHeader)
	assert.Contains(t, prompt, "Bread Festival | Town Square | 2026-03-07 | food | free")
	assert.Contains(t, prompt, "Night Market (420 views)")
	assert.Contains(t, prompt, "Rival Bakery (bakery)")
	assert.NotContains(t, prompt, "- Corner Bakery (bakery)", "self must be excluded")
	assert.Contains(t, prompt, "General platform facts:")

	// Secondary content must come after primary, before instructions.
	assert.Less(t, strings.Index(prompt, primaryHeader), strings.Index(prompt, secondaryHeader))
	assert.Less(t, strings.Index(prompt, secondaryHeader), strings.Index(prompt, "INSTRUCTIONS:"))
}

func TestBuildPrompt_SecondaryLookupFailureDegrades(t *testing.T) {
	lookup := &stubLookup{err: errors.New("es down")}
	builder := New(lookup, DefaultLimits(), logger.NewNoOpLogger())

	config := minimalConfig()
	config.IncludePlatformContext = true

	prompt := builder.BuildPrompt(context.Background(), config, testBusiness())

	require.Contains(t, prompt, secondaryHeader)
	assert.Contains(t, prompt, unavailableNote)
	// Primary section still intact.
	assert.Contains(t, prompt, "Corner Bakery")
	assert.Contains(t, prompt, "INSTRUCTIONS:")
}

func TestBuildPrompt_BusinessLimitApplied(t *testing.T) {
	businesses := make([]models.BusinessRecord, 0, 8)
	for i := 0; i < 8; i++ {
		businesses = append(businesses, models.BusinessRecord{
			ID:       string(rune('a' + i)),
			Name:     "Bakery " + string(rune('A'+i)),
			Category: "bakery",
		})
	}
	builder := New(&stubLookup{businesses: businesses}, DefaultLimits(), logger.NewNoOpLogger())

	config := minimalConfig()
	config.IncludePlatformContext = true

	prompt := builder.BuildPrompt(context.Background(), config, testBusiness())

	assert.Equal(t, 5, strings.Count(prompt, "- Bakery "))
}
