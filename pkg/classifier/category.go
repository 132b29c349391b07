package classifier

import "github.com/smartquery/qrouter/pkg/models"

// Categorize maps detected features and word count to a query category.
// Rules apply in strict priority order; the first match wins:
//
//  1. conversational feature and under 10 words
//  2. external data needed        -> research
//  3. multi document              -> document_analysis
//  4. entity extraction           -> entity_extraction
//  5. complex reasoning, >15 words -> multi_step
//  6. anything else               -> document_lookup
//
// Rule 3 deliberately outranks rule 4: a query that both spans documents and
// extracts entities is the multi-document task.
func Categorize(features models.FeatureSet, wordCount int) models.Category {
	switch {
	case features.Has(models.FeatureConversational) && wordCount < 10:
		return models.CategoryConversational
	case features.Has(models.FeatureExternalDataNeeded):
		return models.CategoryResearch
	case features.Has(models.FeatureMultiDocument):
		return models.CategoryDocumentAnalysis
	case features.Has(models.FeatureEntityExtraction):
		return models.CategoryEntityExtraction
	case features.Has(models.FeatureComplexReasoning) && wordCount > 15:
		return models.CategoryMultiStep
	default:
		return models.CategoryDocumentLookup
	}
}

// RuleClassification is the deterministic classifier output for one query.
// Confidence is assigned later by the selector; categories carry no
// independent per-rule confidence.
type RuleClassification struct {
	Category   models.Category
	Features   models.FeatureSet
	Complexity models.Complexity
	WordCount  int
	Score      float64
}

// Classify runs the full rule-based pipeline: normalize, detect features,
// score complexity, categorize. Classifying the same query twice returns
// identical results.
func Classify(query string) RuleClassification {
	normalized := Normalize(query)
	features := DetectFeatures(normalized)
	words := WordCount(normalized)
	score := ComplexityScore(normalized, features)

	return RuleClassification{
		Category:   Categorize(features, words),
		Features:   features,
		Complexity: ComplexityLabel(score),
		WordCount:  words,
		Score:      score,
	}
}
