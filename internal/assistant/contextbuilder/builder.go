// internal/assistant/contextbuilder/builder.go
package contextbuilder

import (
	"context"
	"fmt"
	"strings"

	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

const (
	primaryHeader   = "=== BUSINESS KNOWLEDGE (PRIMARY) ==="
	secondaryHeader = "=== PLATFORM CONTEXT (SECONDARY) ==="
	unavailableNote = "(platform data temporarily unavailable)"
)

// personalityFraming maps the personality enum to a fixed tone sentence.
var personalityFraming = map[models.Personality]string{
	models.PersonalityProfessional: "Maintain a professional, courteous tone. Be precise and respectful.",
	models.PersonalityFriendly:     "Be warm and welcoming. Use an upbeat, helpful tone.",
	models.PersonalityCasual:       "Keep it relaxed and conversational, like chatting with a regular.",
}

// localeFacts is the small fixed block of general platform facts appended to
// the secondary section.
var localeFacts = []string{
	"The platform lists local events, marketplace listings, and business pages for the metro area.",
	"Visitors can browse events by category, search listings, and message businesses directly.",
}

// PlatformLookup provides the secondary-context data. Implementations may
// fail; prompt construction degrades instead of aborting.
type PlatformLookup interface {
	GetUpcomingEvents(ctx context.Context, days int, limit int) ([]models.EventRecord, error)
	GetPopularEvents(ctx context.Context, limit int) ([]models.EventRecord, error)
	GetBusinessesByCategory(ctx context.Context, category string) ([]models.BusinessRecord, error)
}

// Limits bounds the secondary section.
type Limits struct {
	EventDays     int
	EventLimit    int
	BusinessLimit int
	PopularLimit  int
}

// DefaultLimits matches the platform defaults.
func DefaultLimits() Limits {
	return Limits{EventDays: 7, EventLimit: 10, BusinessLimit: 5, PopularLimit: 5}
}

type promptInput struct {
	ctx      context.Context
	config   models.AgentConfig
	business models.BusinessRecord
}

// section is one optional slice of the prompt: a presence predicate plus a
// renderer. Sections render in declaration order, so new knowledge sections
// slot in without touching control flow.
type section struct {
	present func(in promptInput) bool
	render  func(in promptInput, b *strings.Builder)
}

// Builder assembles the bounded system prompt for a business assistant.
type Builder struct {
	lookup   PlatformLookup
	limits   Limits
	sections []section
	logger   logger.Logger
}

func New(lookup PlatformLookup, limits Limits, log logger.Logger) *Builder {
	if limits == (Limits{}) {
		limits = DefaultLimits()
	}
	builder := &Builder{
		lookup: lookup,
		limits: limits,
		logger: log.With(map[string]interface{}{
			"component": "context-builder",
		}),
	}
	builder.sections = []section{
		{present: always, render: builder.renderIdentity},
		{present: always, render: builder.renderPrimary},
		{present: hasCatalog, render: builder.renderCatalog},
		{present: hasFAQ, render: builder.renderFAQ},
		{present: hasPolicies, render: builder.renderPolicies},
		{present: wantsPlatformContext, render: builder.renderSecondary},
		{present: always, render: builder.renderClosingInstructions},
	}
	return builder
}

// BuildPrompt renders every present section in fixed order. The primary
// sections depend only on the inputs; only the secondary section touches
// external lookups, and its failure never aborts construction.
func (b *Builder) BuildPrompt(ctx context.Context, config models.AgentConfig, business models.BusinessRecord) string {
	in := promptInput{ctx: ctx, config: config, business: business}
	var out strings.Builder
	for _, s := range b.sections {
		if s.present(in) {
			s.render(in, &out)
		}
	}
	return strings.TrimRight(out.String(), "\n")
}

// ==========================================
// Presence Predicates
// ==========================================

func always(promptInput) bool { return true }

func hasCatalog(in promptInput) bool {
	return len(in.config.KnowledgeBase.MenuData.Categories) > 0
}

func hasFAQ(in promptInput) bool {
	return len(in.config.KnowledgeBase.FAQData) > 0
}

func hasPolicies(in promptInput) bool {
	p := in.config.KnowledgeBase.Policies
	return p.ReturnPolicy != "" || p.CancellationPolicy != "" || p.PrivacyPolicy != ""
}

func wantsPlatformContext(in promptInput) bool {
	return in.config.IncludePlatformContext
}

// ==========================================
// Renderers
// ==========================================

func (b *Builder) renderIdentity(in promptInput, out *strings.Builder) {
	framing, ok := personalityFraming[in.config.Personality]
	if !ok {
		framing = personalityFraming[models.PersonalityFriendly]
	}
	fmt.Fprintf(out, "You are the virtual assistant for %s. %s\n\n", in.business.Name, framing)
}

func (b *Builder) renderPrimary(in promptInput, out *strings.Builder) {
	out.WriteString(primaryHeader + "\n")
	fmt.Fprintf(out, "Name: %s\n", in.business.Name)
	if in.business.Category != "" {
		fmt.Fprintf(out, "Category: %s\n", in.business.Category)
	}
	if in.business.Description != "" {
		fmt.Fprintf(out, "Description: %s\n", in.business.Description)
	}
	if in.business.Address != "" {
		fmt.Fprintf(out, "Address: %s\n", in.business.Address)
	}
	if in.business.Phone != "" {
		fmt.Fprintf(out, "Phone: %s\n", in.business.Phone)
	}
	if in.business.Email != "" {
		fmt.Fprintf(out, "Email: %s\n", in.business.Email)
	}
	if in.business.Hours != "" {
		fmt.Fprintf(out, "Hours: %s\n", in.business.Hours)
	}
	if in.config.KnowledgeBase.BusinessInfo != "" {
		fmt.Fprintf(out, "About: %s\n", in.config.KnowledgeBase.BusinessInfo)
	}
	out.WriteString("\n")
}

func (b *Builder) renderCatalog(in promptInput, out *strings.Builder) {
	out.WriteString("CATALOG:\n")
	for _, category := range in.config.KnowledgeBase.MenuData.Categories {
		fmt.Fprintf(out, "%s:\n", category.Name)
		for _, item := range category.Items {
			fmt.Fprintf(out, "  %s: %s - %s\n", item.Name, item.Description, item.Price)
		}
	}
	out.WriteString("\n")
}

func (b *Builder) renderFAQ(in promptInput, out *strings.Builder) {
	out.WriteString("FREQUENTLY ASKED QUESTIONS:\n")
	for _, faq := range in.config.KnowledgeBase.FAQData {
		fmt.Fprintf(out, "Q: %s\nA: %s\n", faq.Question, faq.Answer)
	}
	out.WriteString("\n")
}

func (b *Builder) renderPolicies(in promptInput, out *strings.Builder) {
	p := in.config.KnowledgeBase.Policies
	out.WriteString("POLICIES:\n")
	if p.ReturnPolicy != "" {
		fmt.Fprintf(out, "Returns: %s\n", p.ReturnPolicy)
	}
	if p.CancellationPolicy != "" {
		fmt.Fprintf(out, "Cancellations: %s\n", p.CancellationPolicy)
	}
	if p.PrivacyPolicy != "" {
		fmt.Fprintf(out, "Privacy: %s\n", p.PrivacyPolicy)
	}
	out.WriteString("\n")
}

func (b *Builder) renderSecondary(in promptInput, out *strings.Builder) {
	out.WriteString(secondaryHeader + "\n")
	if b.lookup == nil {
		out.WriteString(unavailableNote + "\n\n")
		return
	}

	failures := 0

	upcoming, err := b.lookup.GetUpcomingEvents(in.ctx, b.limits.EventDays, b.limits.EventLimit)
	if err != nil {
		failures++
		b.logger.Warn("upcoming events lookup failed", map[string]interface{}{"error": err.Error()})
	} else if len(upcoming) > 0 {
		out.WriteString("Upcoming local events:\n")
		for _, event := range upcoming {
			fmt.Fprintf(out, "- %s | %s | %s | %s | %s\n",
				event.Title, event.Location, event.StartDate, event.Category, eventPrice(event))
		}
	}

	nearby, err := b.lookup.GetBusinessesByCategory(in.ctx, in.business.Category)
	if err != nil {
		failures++
		b.logger.Warn("nearby businesses lookup failed", map[string]interface{}{"error": err.Error()})
	} else {
		count := 0
		var lines []string
		for _, other := range nearby {
			if other.ID == in.business.ID {
				continue
			}
			lines = append(lines, fmt.Sprintf("- %s (%s)", other.Name, other.Category))
			count++
			if count >= b.limits.BusinessLimit {
				break
			}
		}
		if len(lines) > 0 {
			fmt.Fprintf(out, "Other %s businesses nearby:\n%s\n", in.business.Category, strings.Join(lines, "\n"))
		}
	}

	popular, err := b.lookup.GetPopularEvents(in.ctx, b.limits.PopularLimit)
	if err != nil {
		failures++
		b.logger.Warn("popular events lookup failed", map[string]interface{}{"error": err.Error()})
	} else if len(popular) > 0 {
		out.WriteString("Currently popular events:\n")
		for _, event := range popular {
			fmt.Fprintf(out, "- %s (%d views)\n", event.Title, event.ViewCount)
		}
	}

	if failures == 3 {
		out.WriteString(unavailableNote + "\n")
	} else {
		out.WriteString("General platform facts:\n")
		for _, fact := range localeFacts {
			fmt.Fprintf(out, "- %s\n", fact)
		}
	}
	out.WriteString("\n")
}

func (b *Builder) renderClosingInstructions(in promptInput, out *strings.Builder) {
	out.WriteString("INSTRUCTIONS:\n")
	out.WriteString("- Answer from the PRIMARY business knowledge first; use platform context only when the question goes beyond the business.\n")
	fmt.Fprintf(out, "- Stay in the %s tone described above.\n", personalityOrDefault(in.config.Personality))
	fmt.Fprintf(out, "- Keep responses under %d characters.\n", in.config.ClampResponseLength())
	out.WriteString("- Never invent facts that are not listed above.\n")
	out.WriteString("- For time-sensitive questions or anything not covered here, suggest contacting the business directly.\n")
}

func personalityOrDefault(p models.Personality) models.Personality {
	if _, ok := personalityFraming[p]; ok {
		return p
	}
	return models.PersonalityFriendly
}

func eventPrice(event models.EventRecord) string {
	if event.IsFree {
		return "free"
	}
	if event.Cost > 0 {
		return fmt.Sprintf("$%.2f", event.Cost)
	}
	return "paid"
}
