// internal/assistant/search/orchestrator.go
package search

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"marketplace-assistant/internal/assistant/queryinterpreter"
	"marketplace-assistant/internal/common/llm"
	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/common/metrics"
	"marketplace-assistant/internal/models"
)

// RecordSource supplies the candidate sets the filter runs over.
type RecordSource interface {
	GetEvents(ctx context.Context) ([]models.EventRecord, error)
	GetListings(ctx context.Context) ([]models.ListingRecord, error)
}

// AnalyticsRecorder persists one search interaction. Best effort: failures
// are logged, never surfaced.
type AnalyticsRecorder interface {
	RecordSearch(ctx context.Context, event models.SearchEvent) error
}

// QueryParser produces a filter descriptor from free text without erroring.
type QueryParser interface {
	Parse(ctx context.Context, query string) models.FilterDescriptor
}

// ContentFilter narrows candidate sets by a descriptor.
type ContentFilter interface {
	FilterEvents(events []models.EventRecord, filter models.FilterDescriptor) []models.EventRecord
	FilterListings(listings []models.ListingRecord, filter models.FilterDescriptor) []models.ListingRecord
}

// MessageComposer summarizes matched records without erroring.
type MessageComposer interface {
	Compose(ctx context.Context, events []models.EventRecord, listings []models.ListingRecord, query string) string
}

// Result is the non-throwing search outcome. A total model failure degrades
// precision, never the contract.
type Result struct {
	Message      string                 `json:"message"`
	Events       []models.EventRecord   `json:"events"`
	Listings     []models.ListingRecord `json:"listings"`
	TotalResults int                    `json:"totalResults"`
}

// Orchestrator composes interpreter, filter, and composer into the general
// site search.
type Orchestrator struct {
	client    llm.Client
	parser    QueryParser
	filter    ContentFilter
	composer  MessageComposer
	source    RecordSource
	analytics AnalyticsRecorder
	logger    logger.Logger
}

func New(client llm.Client, parser QueryParser, filter ContentFilter, composer MessageComposer, source RecordSource, analytics AnalyticsRecorder, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		client:    client,
		parser:    parser,
		filter:    filter,
		composer:  composer,
		source:    source,
		analytics: analytics,
		logger: log.With(map[string]interface{}{
			"component": "search-orchestrator",
		}),
	}
}

// Search never returns an error: every failure inside degrades to the
// deterministic path and a best-effort message.
func (o *Orchestrator) Search(ctx context.Context, query string, userID string) Result {
	start := time.Now()

	events, listings := o.fetchCandidates(ctx)

	fallback := false
	var descriptor models.FilterDescriptor
	if o.client != nil && o.client.IsConfigured() {
		descriptor = o.parser.Parse(ctx, query)
	} else {
		fallback = true
		descriptor = models.NewFilterDescriptor()
		descriptor.Keywords = queryinterpreter.Tokenize(query)
	}

	matchedEvents := o.filter.FilterEvents(events, descriptor)
	matchedListings := o.filter.FilterListings(listings, descriptor)

	message := o.composer.Compose(ctx, matchedEvents, matchedListings, query)

	result := Result{
		Message:      message,
		Events:       matchedEvents,
		Listings:     matchedListings,
		TotalResults: len(matchedEvents) + len(matchedListings),
	}

	path := "model"
	if fallback {
		path = "fallback"
	}
	metrics.SearchesTotal.WithLabelValues(path).Inc()
	o.recordAnalytics(ctx, query, userID, result.TotalResults, fallback, time.Since(start))

	return result
}

// fetchCandidates pulls both record sets concurrently. A failed fetch yields
// an empty set for that side only.
func (o *Orchestrator) fetchCandidates(ctx context.Context) ([]models.EventRecord, []models.ListingRecord) {
	var (
		wg       sync.WaitGroup
		events   []models.EventRecord
		listings []models.ListingRecord
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		fetched, err := o.source.GetEvents(ctx)
		if err != nil {
			o.logger.Warn("event fetch failed", map[string]interface{}{"error": err.Error()})
			return
		}
		events = fetched
	}()
	go func() {
		defer wg.Done()
		fetched, err := o.source.GetListings(ctx)
		if err != nil {
			o.logger.Warn("listing fetch failed", map[string]interface{}{"error": err.Error()})
			return
		}
		listings = fetched
	}()
	wg.Wait()

	return events, listings
}

func (o *Orchestrator) recordAnalytics(ctx context.Context, query, userID string, resultCount int, fallback bool, latency time.Duration) {
	if o.analytics == nil {
		return
	}
	event := models.SearchEvent{
		ID:          uuid.NewString(),
		Query:       query,
		UserID:      userID,
		ResultCount: resultCount,
		Fallback:    fallback,
		LatencyMs:   int(latency.Milliseconds()),
		CreatedAt:   time.Now().UTC(),
	}
	if err := o.analytics.RecordSearch(ctx, event); err != nil {
		o.logger.Warn("search analytics write failed", map[string]interface{}{"error": err.Error()})
	}
}
