// internal/storage/elasticsearch/events.go
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"

	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

// EventIndex serves full-text candidate retrieval over the event index. It
// backs the search orchestrator's event fetch when the index is enabled,
// giving the keyword filter a pre-narrowed candidate set.
type EventIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func New(client *elasticsearch.Client, index string, log logger.Logger) *EventIndex {
	return &EventIndex{
		client: client,
		index:  index,
		logger: log.With(map[string]interface{}{
			"component": "event-index",
		}),
	}
}

// SearchEvents retrieves events matching the query text across title,
// description, category, and location. An empty query matches everything.
func (e *EventIndex) SearchEvents(ctx context.Context, query string, limit int) ([]models.EventRecord, error) {
	var body map[string]interface{}
	if strings.TrimSpace(query) == "" {
		body = map[string]interface{}{
			"query": map[string]interface{}{"match_all": map[string]interface{}{}},
			"size":  limit,
		}
	} else {
		body = map[string]interface{}{
			"query": map[string]interface{}{
				"multi_match": map[string]interface{}{
					"query":  query,
					"fields": []string{"title^2", "description", "category", "location"},
				},
			},
			"size": limit,
		}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding search body: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(payload)),
	)
	if err != nil {
		return nil, fmt.Errorf("searching event index: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("event index search error: %s", res.Status())
	}

	var response struct {
		Hits struct {
			Hits []struct {
				Source models.EventRecord `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	events := make([]models.EventRecord, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		events = append(events, hit.Source)
	}
	return events, nil
}

// IndexEvent writes one event document, keyed by its record id.
func (e *EventIndex) IndexEvent(ctx context.Context, event models.EventRecord) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding event document: %w", err)
	}

	res, err := e.client.Index(
		e.index,
		bytes.NewReader(payload),
		e.client.Index.WithContext(ctx),
		e.client.Index.WithDocumentID(event.ID),
	)
	if err != nil {
		return fmt.Errorf("indexing event %s: %w", event.ID, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("event index write error: %s", res.Status())
	}
	return nil
}
