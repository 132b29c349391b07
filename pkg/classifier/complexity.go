package classifier

import (
	"strings"

	"github.com/smartquery/qrouter/pkg/models"
)

// Complexity score weights. The score is a sum of additive contributions;
// labels are cut at 0.6 (complex) and 0.3 (moderate).
const (
	weightLength        = 0.15
	weightQuestionWord  = 0.20
	weightMultiDocument = 0.25
	weightExternalData  = 0.20
	weightEntityExtract = 0.10
	weightReasoning     = 0.10

	complexityComplexMin  = 0.6
	complexityModerateMin = 0.3
)

// questionWords trigger the question-word contribution when present as a
// standalone token.
var questionWords = []string{"why", "how", "explain", "analyze", "compare"}

// ComplexityScore computes the weighted complexity score for a query.
// The length contribution requires strictly more than 50 words for full
// weight and strictly more than 20 for half weight.
func ComplexityScore(normalized string, features models.FeatureSet) float64 {
	score := 0.0

	words := WordCount(normalized)
	switch {
	case words > 50:
		score += weightLength
	case words > 20:
		score += weightLength / 2
	}

	if hasQuestionWord(normalized) {
		score += weightQuestionWord
	}
	if features.Has(models.FeatureMultiDocument) {
		score += weightMultiDocument
	}
	if features.Has(models.FeatureExternalDataNeeded) {
		score += weightExternalData
	}
	if features.Has(models.FeatureEntityExtraction) {
		score += weightEntityExtract
	}
	if features.Has(models.FeatureComplexReasoning) {
		score += weightReasoning
	}

	return score
}

// ComplexityLabel maps a score to its ordered label.
func ComplexityLabel(score float64) models.Complexity {
	switch {
	case score >= complexityComplexMin:
		return models.ComplexityComplex
	case score >= complexityModerateMin:
		return models.ComplexityModerate
	default:
		return models.ComplexitySimple
	}
}

// hasQuestionWord checks for a standalone question-word token, ignoring
// trailing punctuation ("why?" counts).
func hasQuestionWord(normalized string) bool {
	for _, token := range strings.Fields(normalized) {
		token = strings.TrimRight(token, ".,!?:;")
		for _, qw := range questionWords {
			if token == qw {
				return true
			}
		}
	}
	return false
}
