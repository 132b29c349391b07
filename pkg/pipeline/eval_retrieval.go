package pipeline

import (
	"strings"

	"github.com/smartquery/qrouter/pkg/models"
)

// Retrieval evaluation composite weights: mean relevance carries half the
// score, the best passage a third, query-term coverage the rest.
const (
	retrievalWeightMean     = 0.5
	retrievalWeightTop      = 0.3
	retrievalWeightCoverage = 0.2
)

// EvaluateRetrieval scores a retrieval attempt for query relevance. The
// overall score is in [0, 1]; an empty result set scores 0.
func EvaluateRetrieval(query string, docs []models.RetrievedDocument) *models.RetrievalMetrics {
	metrics := &models.RetrievalMetrics{Documents: len(docs)}
	if len(docs) == 0 {
		return metrics
	}

	var sum, top float64
	for _, doc := range docs {
		score := clamp01(doc.Score)
		sum += score
		if score > top {
			top = score
		}
	}
	metrics.MeanScore = sum / float64(len(docs))
	metrics.TopScore = top
	metrics.Coverage = termCoverage(query, docs)
	metrics.OverallScore = retrievalWeightMean*metrics.MeanScore +
		retrievalWeightTop*metrics.TopScore +
		retrievalWeightCoverage*metrics.Coverage
	return metrics
}

// termCoverage is the fraction of distinct query terms that appear in at
// least one retrieved passage. Short stop-like terms are ignored.
func termCoverage(query string, docs []models.RetrievedDocument) float64 {
	terms := contentTerms(query)
	if len(terms) == 0 {
		return 1
	}

	var joined strings.Builder
	for _, doc := range docs {
		joined.WriteString(strings.ToLower(doc.Content))
		joined.WriteByte(' ')
	}
	corpus := joined.String()

	covered := 0
	for term := range terms {
		if strings.Contains(corpus, term) {
			covered++
		}
	}
	return float64(covered) / float64(len(terms))
}

// contentTerms extracts the distinct lowercase terms of four or more
// characters from the text, stripped of surrounding punctuation.
func contentTerms(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,!?:;\"'()[]")
		if len(token) >= 4 {
			terms[token] = struct{}{}
		}
	}
	return terms
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
