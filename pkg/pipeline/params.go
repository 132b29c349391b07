package pipeline

import "github.com/smartquery/qrouter/pkg/models"

const (
	fallbackTopKCap        = 30
	fallbackRerankFloor    = 0.3
	fallbackRerankStep     = 0.1
	fallbackTopKMultiplier = 2
	fallbackDepthStep      = 1
)

// DefaultRetrievalParams are used when parameter derivation fails or the
// stage is disabled.
func DefaultRetrievalParams() models.RetrievalParams {
	return models.RetrievalParams{
		DenseWeight:         0.6,
		SparseWeight:        0.3,
		FuzzyWeight:         0.1,
		TopK:                10,
		RerankThreshold:     0.5,
		GraphExpansionDepth: 0,
	}
}

// DeriveRetrievalParams tunes the retrieval knobs for the classified intent.
// Dense-heavy weighting for semantic tasks, sparse-heavy for extraction,
// wider and deeper retrieval as complexity grows.
func DeriveRetrievalParams(c *models.Classification) models.RetrievalParams {
	params := DefaultRetrievalParams()
	if c == nil {
		return params
	}

	switch c.Category {
	case models.CategoryResearch:
		params.DenseWeight, params.SparseWeight, params.FuzzyWeight = 0.7, 0.2, 0.1
		params.TopK = 15
		params.GraphExpansionDepth = 1
	case models.CategoryDocumentAnalysis:
		params.TopK = 20
		params.GraphExpansionDepth = 1
	case models.CategoryEntityExtraction:
		params.DenseWeight, params.SparseWeight, params.FuzzyWeight = 0.4, 0.5, 0.1
		params.RerankThreshold = 0.4
	case models.CategoryMultiStep:
		params.TopK = 15
		params.GraphExpansionDepth = 1
	case models.CategoryConversational:
		params.TopK = 3
		params.RerankThreshold = 0.3
	}

	if c.Complexity == models.ComplexityComplex && params.TopK < 20 {
		params.TopK += 5
	}
	return params
}

// ExpandForFallback widens the parameters for the single low-quality retry:
// doubled top_k capped at 30, rerank threshold lowered by 0.1 floored at
// 0.3, graph expansion one level deeper.
func ExpandForFallback(params models.RetrievalParams) models.RetrievalParams {
	params.TopK *= fallbackTopKMultiplier
	if params.TopK > fallbackTopKCap {
		params.TopK = fallbackTopKCap
	}
	params.RerankThreshold -= fallbackRerankStep
	if params.RerankThreshold < fallbackRerankFloor {
		params.RerankThreshold = fallbackRerankFloor
	}
	params.GraphExpansionDepth += fallbackDepthStep
	return params
}
