// internal/assistant/moderation/gate_test.go
package moderation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"marketplace-assistant/internal/common/config"
	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

// ==========================================
// Test Doubles
// ==========================================

type stubClassifier struct {
	scores  map[models.ModerationCategory]float64
	flagged bool
	err     error
}

func (s *stubClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &Classification{Scores: s.scores, Flagged: s.flagged}, nil
}

type stubImageClassifier struct {
	likelihoods map[string]models.ImageLikelihood
	labels      []string
	err         error
}

func (s *stubImageClassifier) ClassifyImage(ctx context.Context, imageURL string) (*ImageClassification, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &ImageClassification{Likelihoods: s.likelihoods, Labels: s.labels}, nil
}

func newTestGate(classifier Classifier, imageClassifier ImageClassifier) *Gate {
	return New(
		classifier,
		imageClassifier,
		config.DefaultRejectThresholds(),
		config.DefaultRejectLikelihood(),
		logger.NewNoOpLogger(),
	)
}

// ==========================================
// Text Classification
// ==========================================

func TestClassify_AboveThresholdRejects(t *testing.T) {
	classifier := &stubClassifier{
		scores: map[models.ModerationCategory]float64{
			models.CategoryHate:   0.9,
			models.CategorySexual: 0.1,
		},
	}
	gate := newTestGate(classifier, nil)

	verdict := gate.Classify(context.Background(), "hateful text", FailOpen)

	assert.Equal(t, models.ActionRejected, verdict.Action)
	assert.False(t, verdict.Approved)
	assert.Equal(t, []models.ModerationCategory{models.CategoryHate}, verdict.FlaggedCategories)
}

func TestClassify_FlaggedBelowThresholdsNeedsReview(t *testing.T) {
	classifier := &stubClassifier{
		scores: map[models.ModerationCategory]float64{
			models.CategoryHate: 0.3,
		},
		flagged: true,
	}
	gate := newTestGate(classifier, nil)

	verdict := gate.Classify(context.Background(), "borderline text", FailOpen)

	assert.Equal(t, models.ActionManualReview, verdict.Action)
	assert.False(t, verdict.Approved)
	assert.Empty(t, verdict.FlaggedCategories)
}

func TestClassify_CleanTextApproved(t *testing.T) {
	classifier := &stubClassifier{
		scores: map[models.ModerationCategory]float64{
			models.CategoryHate:     0.01,
			models.CategoryViolence: 0.02,
		},
	}
	gate := newTestGate(classifier, nil)

	verdict := gate.Classify(context.Background(), "what time do you open", FailOpen)

	assert.Equal(t, models.ActionApproved, verdict.Action)
	assert.True(t, verdict.Approved)
}

func TestClassify_SelfHarmIntentLowThreshold(t *testing.T) {
	classifier := &stubClassifier{
		scores: map[models.ModerationCategory]float64{
			models.CategorySelfHarmIntent: 0.6,
		},
	}
	gate := newTestGate(classifier, nil)

	verdict := gate.Classify(context.Background(), "concerning text", FailOpen)

	assert.Equal(t, models.ActionRejected, verdict.Action)
}

func TestClassify_ExactThresholdDoesNotReject(t *testing.T) {
	classifier := &stubClassifier{
		scores: map[models.ModerationCategory]float64{
			models.CategoryHate: 0.7,
		},
	}
	gate := newTestGate(classifier, nil)

	verdict := gate.Classify(context.Background(), "edge case", FailOpen)

	assert.Equal(t, models.ActionApproved, verdict.Action)
}

// ==========================================
// Failure Modes
// ==========================================

func TestClassify_FailOpenApprovesOnError(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("classifier down")}
	gate := newTestGate(classifier, nil)

	verdict := gate.Classify(context.Background(), "anything", FailOpen)

	assert.Equal(t, models.ActionApproved, verdict.Action)
	assert.True(t, verdict.Approved)
}

func TestClassify_FailClosedHoldsOnError(t *testing.T) {
	classifier := &stubClassifier{err: errors.New("classifier down")}
	gate := newTestGate(classifier, nil)

	verdict := gate.Classify(context.Background(), "anything", FailClosed)

	assert.Equal(t, models.ActionManualReview, verdict.Action)
	assert.False(t, verdict.Approved)
}

// ==========================================
// Image Classification
// ==========================================

func TestClassifyImage_LikelihoodAtThresholdRejects(t *testing.T) {
	imageClassifier := &stubImageClassifier{
		likelihoods: map[string]models.ImageLikelihood{
			"adult": models.LikelihoodLikely,
			"racy":  models.LikelihoodUnlikely,
		},
	}
	gate := newTestGate(nil, imageClassifier)

	verdict := gate.ClassifyImage(context.Background(), "https://img.example/x.jpg", FailClosed)

	assert.Equal(t, models.ActionRejected, verdict.Action)
	assert.Equal(t, []models.ModerationCategory{"adult"}, verdict.FlaggedCategories)
}

func TestClassifyImage_ProblematicLabelNeedsReview(t *testing.T) {
	imageClassifier := &stubImageClassifier{
		likelihoods: map[string]models.ImageLikelihood{
			"adult": models.LikelihoodVeryUnlikely,
		},
		labels: []string{"outdoors", "weapon"},
	}
	gate := newTestGate(nil, imageClassifier)

	verdict := gate.ClassifyImage(context.Background(), "https://img.example/x.jpg", FailClosed)

	assert.Equal(t, models.ActionManualReview, verdict.Action)
}

func TestClassifyImage_CleanImageApproved(t *testing.T) {
	imageClassifier := &stubImageClassifier{
		likelihoods: map[string]models.ImageLikelihood{
			"adult":    models.LikelihoodVeryUnlikely,
			"violence": models.LikelihoodVeryUnlikely,
		},
		labels: []string{"park", "picnic"},
	}
	gate := newTestGate(nil, imageClassifier)

	verdict := gate.ClassifyImage(context.Background(), "https://img.example/x.jpg", FailClosed)

	assert.Equal(t, models.ActionApproved, verdict.Action)
	assert.True(t, verdict.Approved)
}

func TestClassifyImage_FailClosedHoldsOnError(t *testing.T) {
	imageClassifier := &stubImageClassifier{err: errors.New("vision down")}
	gate := newTestGate(nil, imageClassifier)

	verdict := gate.ClassifyImage(context.Background(), "https://img.example/x.jpg", FailClosed)

	assert.Equal(t, models.ActionManualReview, verdict.Action)
}
