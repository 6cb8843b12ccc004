// internal/models/moderation.go
package models

// ModerationCategory is one entry of the fixed unsafe-content taxonomy.
type ModerationCategory string

const (
	CategorySexual               ModerationCategory = "sexual"
	CategorySexualMinors         ModerationCategory = "sexual/minors"
	CategoryHate                 ModerationCategory = "hate"
	CategoryHateThreatening      ModerationCategory = "hate/threatening"
	CategorySelfHarm             ModerationCategory = "self-harm"
	CategorySelfHarmIntent       ModerationCategory = "self-harm/intent"
	CategorySelfHarmInstructions ModerationCategory = "self-harm/instructions"
	CategoryViolence             ModerationCategory = "violence"
	CategoryViolenceGraphic      ModerationCategory = "violence/graphic"
)

// ModerationAction is the gate's decision for a piece of content.
type ModerationAction string

const (
	ActionApproved     ModerationAction = "approved"
	ActionRejected     ModerationAction = "rejected"
	ActionManualReview ModerationAction = "manual_review"
)

// ModerationVerdict is the outcome of classifying one submission. Ephemeral,
// computed per submission.
type ModerationVerdict struct {
	Approved          bool                           `json:"approved"`
	FlaggedCategories []ModerationCategory           `json:"flaggedCategories"`
	Scores            map[ModerationCategory]float64 `json:"scores"`
	Action            ModerationAction               `json:"action"`
}

// ImageLikelihood is the 0-5 likelihood scale used by the image classifier.
type ImageLikelihood int

const (
	LikelihoodNone ImageLikelihood = iota
	LikelihoodVeryUnlikely
	LikelihoodUnlikely
	LikelihoodPossible
	LikelihoodLikely
	LikelihoodVeryLikely
)

// ParseImageLikelihood maps classifier labels onto the numeric scale.
// Unknown labels map to none so they never trip a threshold by accident.
func ParseImageLikelihood(label string) ImageLikelihood {
	switch label {
	case "VERY_UNLIKELY":
		return LikelihoodVeryUnlikely
	case "UNLIKELY":
		return LikelihoodUnlikely
	case "POSSIBLE":
		return LikelihoodPossible
	case "LIKELY":
		return LikelihoodLikely
	case "VERY_LIKELY":
		return LikelihoodVeryLikely
	default:
		return LikelihoodNone
	}
}
