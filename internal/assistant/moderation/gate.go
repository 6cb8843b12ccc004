// internal/assistant/moderation/gate.go
package moderation

import (
	"context"
	"sort"

	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/common/metrics"
	"marketplace-assistant/internal/models"
)

// FailureMode controls what happens when the classifier call itself fails.
// Ephemeral chat turns fail open (approve), persisted or public content
// fails closed (manual review). The asymmetry is a policy choice and callers
// must pick a mode explicitly.
type FailureMode string

const (
	FailOpen   FailureMode = "open"
	FailClosed FailureMode = "closed"
)

// Classification is the raw text-classifier output before thresholds apply.
type Classification struct {
	Scores  map[models.ModerationCategory]float64
	Flagged bool
}

// Classifier is the injected external text classifier.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

// ImageClassification is the raw image-classifier output: a likelihood per
// safe-search dimension plus free-form content labels.
type ImageClassification struct {
	Likelihoods map[string]models.ImageLikelihood
	Labels      []string
}

// ImageClassifier is the injected external image classifier.
type ImageClassifier interface {
	ClassifyImage(ctx context.Context, imageURL string) (*ImageClassification, error)
}

// problematicLabels triggers manual review when detected on an image even if
// every safe-search dimension is under its threshold.
var problematicLabels = map[string]bool{
	"weapon":   true,
	"firearm":  true,
	"drug":     true,
	"gambling": true,
	"blood":    true,
}

// Gate applies reject thresholds to classifier output and decides
// approve / reject / hold-for-review.
type Gate struct {
	classifier      Classifier
	imageClassifier ImageClassifier
	thresholds      map[models.ModerationCategory]float64
	imageThresholds map[string]models.ImageLikelihood
	logger          logger.Logger
}

func New(classifier Classifier, imageClassifier ImageClassifier, thresholds map[string]float64, imageThresholds map[string]int, log logger.Logger) *Gate {
	categoryThresholds := make(map[models.ModerationCategory]float64, len(thresholds))
	for category, threshold := range thresholds {
		categoryThresholds[models.ModerationCategory(category)] = threshold
	}
	likelihoodThresholds := make(map[string]models.ImageLikelihood, len(imageThresholds))
	for dimension, likelihood := range imageThresholds {
		likelihoodThresholds[dimension] = models.ImageLikelihood(likelihood)
	}
	return &Gate{
		classifier:      classifier,
		imageClassifier: imageClassifier,
		thresholds:      categoryThresholds,
		imageThresholds: likelihoodThresholds,
		logger: log.With(map[string]interface{}{
			"component": "moderation-gate",
		}),
	}
}

// Classify evaluates free text. It never returns an error: classifier
// failures resolve through the given failure mode.
func (g *Gate) Classify(ctx context.Context, text string, mode FailureMode) models.ModerationVerdict {
	classification, err := g.classifier.Classify(ctx, text)
	if err != nil {
		g.logger.Warn("classifier call failed", map[string]interface{}{
			"error": err.Error(),
			"mode":  string(mode),
		})
		return g.failureVerdict(mode)
	}

	flagged := []models.ModerationCategory{}
	for category, score := range classification.Scores {
		if threshold, ok := g.thresholds[category]; ok && score > threshold {
			flagged = append(flagged, category)
		}
	}
	sort.Slice(flagged, func(i, j int) bool { return flagged[i] < flagged[j] })

	verdict := models.ModerationVerdict{
		FlaggedCategories: flagged,
		Scores:            classification.Scores,
	}
	switch {
	case len(flagged) > 0:
		verdict.Action = models.ActionRejected
	case classification.Flagged:
		verdict.Action = models.ActionManualReview
	default:
		verdict.Approved = true
		verdict.Action = models.ActionApproved
	}

	metrics.ModerationVerdicts.WithLabelValues(string(verdict.Action)).Inc()
	return verdict
}

// ClassifyImage evaluates an uploaded image by URL using the likelihood
// scale. A dimension at or above its threshold rejects; otherwise any
// problematic content label holds the image for review.
func (g *Gate) ClassifyImage(ctx context.Context, imageURL string, mode FailureMode) models.ModerationVerdict {
	classification, err := g.imageClassifier.ClassifyImage(ctx, imageURL)
	if err != nil {
		g.logger.Warn("image classifier call failed", map[string]interface{}{
			"error": err.Error(),
			"mode":  string(mode),
		})
		return g.failureVerdict(mode)
	}

	flagged := []models.ModerationCategory{}
	scores := make(map[models.ModerationCategory]float64, len(classification.Likelihoods))
	for dimension, likelihood := range classification.Likelihoods {
		scores[models.ModerationCategory(dimension)] = float64(likelihood) / float64(models.LikelihoodVeryLikely)
		if threshold, ok := g.imageThresholds[dimension]; ok && likelihood >= threshold {
			flagged = append(flagged, models.ModerationCategory(dimension))
		}
	}
	sort.Slice(flagged, func(i, j int) bool { return flagged[i] < flagged[j] })

	verdict := models.ModerationVerdict{
		FlaggedCategories: flagged,
		Scores:            scores,
	}
	switch {
	case len(flagged) > 0:
		verdict.Action = models.ActionRejected
	case hasProblematicLabel(classification.Labels):
		verdict.Action = models.ActionManualReview
	default:
		verdict.Approved = true
		verdict.Action = models.ActionApproved
	}

	metrics.ModerationVerdicts.WithLabelValues(string(verdict.Action)).Inc()
	return verdict
}

func (g *Gate) failureVerdict(mode FailureMode) models.ModerationVerdict {
	if mode == FailClosed {
		return models.ModerationVerdict{
			FlaggedCategories: []models.ModerationCategory{},
			Scores:            map[models.ModerationCategory]float64{},
			Action:            models.ActionManualReview,
		}
	}
	return models.ModerationVerdict{
		Approved:          true,
		FlaggedCategories: []models.ModerationCategory{},
		Scores:            map[models.ModerationCategory]float64{},
		Action:            models.ActionApproved,
	}
}

func hasProblematicLabel(labels []string) bool {
	for _, label := range labels {
		if problematicLabels[label] {
			return true
		}
	}
	return false
}
