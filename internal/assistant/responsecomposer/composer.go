// internal/assistant/responsecomposer/composer.go
package responsecomposer

import (
	"context"
	"fmt"
	"strings"

	"marketplace-assistant/internal/common/llm"
	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

// DefaultMaxSummaryItems bounds how many records per set reach the prompt
// and the fallback template.
const DefaultMaxSummaryItems = 5

// Composer turns matched records into a short conversational summary, with a
// deterministic bulleted template when the model is unavailable.
type Composer struct {
	client   llm.Client
	maxItems int
	logger   logger.Logger
}

func New(client llm.Client, maxItems int, log logger.Logger) *Composer {
	if maxItems <= 0 {
		maxItems = DefaultMaxSummaryItems
	}
	return &Composer{
		client:   client,
		maxItems: maxItems,
		logger: log.With(map[string]interface{}{
			"component": "response-composer",
		}),
	}
}

// Compose never returns an error: model failures degrade to the template.
func (c *Composer) Compose(ctx context.Context, events []models.EventRecord, listings []models.ListingRecord, query string) string {
	if len(events) == 0 && len(listings) == 0 {
		return fmt.Sprintf("Sorry, I couldn't find anything matching %q. Try different keywords or browse the categories.", query)
	}

	if c.client != nil && c.client.IsConfigured() {
		prompt := c.buildPrompt(events, listings, query)
		completion, err := c.client.Complete(ctx, []llm.Message{
			{Role: "system", Content: "You are a friendly local guide. Summarize the search results below in 2-3 conversational sentences. Mention only the listed items, never invent details."},
			{Role: "user", Content: prompt},
		}, llm.Options{Temperature: 0.7, MaxTokens: 250})
		if err == nil {
			return completion.Text
		}
		c.logger.Warn("model summary failed, using template fallback", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return c.template(events, listings)
}

func (c *Composer) buildPrompt(events []models.EventRecord, listings []models.ListingRecord, query string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The user searched for: %q\n\n", query)

	if len(events) > 0 {
		b.WriteString("Matching events:\n")
		for _, event := range capEvents(events, c.maxItems) {
			fmt.Fprintf(&b, "- %s | %s | %s | %s\n", event.Title, event.Location, event.StartDate, priceLabel(event.IsFree, event.Cost))
		}
		b.WriteString("\n")
	}
	if len(listings) > 0 {
		b.WriteString("Matching listings:\n")
		for _, listing := range capListings(listings, c.maxItems) {
			fmt.Fprintf(&b, "- %s | %s | %s\n", listing.Title, listing.Category, priceLabel(listing.IsFree, listing.Cost))
		}
	}
	return b.String()
}

// template renders the deterministic fallback: a count sentence followed by
// bullets built strictly from record fields.
func (c *Composer) template(events []models.EventRecord, listings []models.ListingRecord) string {
	total := len(events) + len(listings)
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s for you:\n", total, pluralize(total, "result", "results"))

	if len(events) > 0 {
		fmt.Fprintf(&b, "\n%s:\n", sectionLabel(len(events), "Event", "Events"))
		for _, event := range capEvents(events, c.maxItems) {
			fmt.Fprintf(&b, "• %s — %s", event.Title, event.Location)
			if event.StartDate != "" {
				fmt.Fprintf(&b, ", %s", event.StartDate)
			}
			fmt.Fprintf(&b, " (%s)\n", priceLabel(event.IsFree, event.Cost))
		}
	}
	if len(listings) > 0 {
		fmt.Fprintf(&b, "\n%s:\n", sectionLabel(len(listings), "Listing", "Listings"))
		for _, listing := range capListings(listings, c.maxItems) {
			fmt.Fprintf(&b, "• %s — %s (%s)\n", listing.Title, listing.Category, priceLabel(listing.IsFree, listing.Cost))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func capEvents(events []models.EventRecord, n int) []models.EventRecord {
	if len(events) > n {
		return events[:n]
	}
	return events
}

func capListings(listings []models.ListingRecord, n int) []models.ListingRecord {
	if len(listings) > n {
		return listings[:n]
	}
	return listings
}

func priceLabel(isFree bool, cost float64) string {
	if isFree {
		return "free"
	}
	if cost > 0 {
		return fmt.Sprintf("$%.2f", cost)
	}
	return "paid"
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

func sectionLabel(n int, singular, plural string) string {
	return pluralize(n, singular, plural)
}
