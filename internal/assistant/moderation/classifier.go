// internal/assistant/moderation/classifier.go
package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"marketplace-assistant/internal/common/config"
	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

var ErrClassifierCallFailed = errors.New("CLASSIFIER_CALL_FAILED")

// HTTPClassifier calls an OpenAI-compatible moderations endpoint.
type HTTPClassifier struct {
	config *config.ModerationConfig
	client *http.Client
	logger logger.Logger
}

func NewHTTPClassifier(cfg *config.ModerationConfig, log logger.Logger) *HTTPClassifier {
	return &HTTPClassifier{
		config: cfg,
		client: &http.Client{Timeout: config.GetDuration(cfg.Timeout)},
		logger: log.With(map[string]interface{}{
			"component": "moderation-classifier",
		}),
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	body, _ := json.Marshal(map[string]string{"input": text})

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/v1/moderations", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierCallFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierCallFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrClassifierCallFailed, resp.StatusCode)
	}

	var apiResponse struct {
		Results []struct {
			Flagged        bool               `json:"flagged"`
			CategoryScores map[string]float64 `json:"category_scores"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrClassifierCallFailed, err)
	}
	if len(apiResponse.Results) == 0 {
		return nil, fmt.Errorf("%w: empty results", ErrClassifierCallFailed)
	}

	scores := make(map[models.ModerationCategory]float64, len(apiResponse.Results[0].CategoryScores))
	for category, score := range apiResponse.Results[0].CategoryScores {
		scores[models.ModerationCategory(category)] = score
	}

	return &Classification{
		Scores:  scores,
		Flagged: apiResponse.Results[0].Flagged,
	}, nil
}

// HTTPImageClassifier calls a safe-search style image annotation endpoint
// that returns per-dimension likelihood labels plus detected content labels.
type HTTPImageClassifier struct {
	config *config.VisionConfig
	client *http.Client
	logger logger.Logger
}

func NewHTTPImageClassifier(cfg *config.VisionConfig, log logger.Logger) *HTTPImageClassifier {
	return &HTTPImageClassifier{
		config: cfg,
		client: &http.Client{Timeout: config.GetDuration(cfg.Timeout)},
		logger: log.With(map[string]interface{}{
			"component": "image-classifier",
		}),
	}
}

func (c *HTTPImageClassifier) ClassifyImage(ctx context.Context, imageURL string) (*ImageClassification, error) {
	body, _ := json.Marshal(map[string]string{"imageUrl": imageURL})

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.BaseURL+"/v1/images:annotate", bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierCallFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierCallFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrClassifierCallFailed, resp.StatusCode)
	}

	var apiResponse struct {
		SafeSearch map[string]string `json:"safeSearch"`
		Labels     []struct {
			Description string `json:"description"`
		} `json:"labels"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, fmt.Errorf("%w: decode error: %v", ErrClassifierCallFailed, err)
	}

	likelihoods := make(map[string]models.ImageLikelihood, len(apiResponse.SafeSearch))
	for dimension, label := range apiResponse.SafeSearch {
		likelihoods[dimension] = models.ParseImageLikelihood(label)
	}
	labels := make([]string, 0, len(apiResponse.Labels))
	for _, label := range apiResponse.Labels {
		labels = append(labels, label.Description)
	}

	return &ImageClassification{
		Likelihoods: likelihoods,
		Labels:      labels,
	}, nil
}
