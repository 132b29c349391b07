package models

// Backend identifies one of the three downstream execution strategies the
// router dispatches to. The router never looks inside a backend; it only
// picks one.
type Backend string

const (
	// BackendAdaptiveIterative refines retrieval and generation over
	// multiple passes. Best for research and complex analysis.
	BackendAdaptiveIterative Backend = "adaptive_iterative"
	// BackendMultiAgentSequential runs a fixed chain of specialized workers.
	// Best for multi-document and extraction tasks.
	BackendMultiAgentSequential Backend = "multi_agent_sequential"
	// BackendDirectRetrieval is a single retrieval + generation pass.
	// Best for lookups and conversational queries.
	BackendDirectRetrieval Backend = "direct_retrieval"
)

// IsValid checks if the backend is one of the three known targets.
func (b Backend) IsValid() bool {
	switch b {
	case BackendAdaptiveIterative, BackendMultiAgentSequential, BackendDirectRetrieval:
		return true
	default:
		return false
	}
}

// Category is the query category produced by the rule-based classifier.
type Category string

const (
	CategoryDocumentLookup   Category = "document_lookup"
	CategoryDocumentAnalysis Category = "document_analysis"
	CategoryResearch         Category = "research"
	CategoryConversational   Category = "conversational"
	CategoryMultiStep        Category = "multi_step"
	CategoryEntityExtraction Category = "entity_extraction"
)

// IsValid checks if the category is known.
func (c Category) IsValid() bool {
	switch c {
	case CategoryDocumentLookup, CategoryDocumentAnalysis, CategoryResearch,
		CategoryConversational, CategoryMultiStep, CategoryEntityExtraction:
		return true
	default:
		return false
	}
}

// Complexity is the ordered complexity label derived from query features.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// IsValid checks if the complexity label is known.
func (c Complexity) IsValid() bool {
	return c == ComplexitySimple || c == ComplexityModerate || c == ComplexityComplex
}

// Feature is one linguistic feature from the closed detection vocabulary.
type Feature string

const (
	FeatureMultiDocument      Feature = "multi_document"
	FeatureExternalDataNeeded Feature = "external_data_needed"
	FeatureComplexReasoning   Feature = "complex_reasoning"
	FeatureEntityExtraction   Feature = "entity_extraction"
	FeatureConversational     Feature = "conversational"
	FeatureSimpleLookup       Feature = "simple_lookup"
)

// ConfidenceLevel buckets a [0,1] confidence scalar for reporting.
type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

// LevelForConfidence maps a confidence scalar to its reporting bucket.
// high >= 0.8, medium >= 0.5, low otherwise.
func LevelForConfidence(confidence float64) ConfidenceLevel {
	switch {
	case confidence >= 0.8:
		return ConfidenceHigh
	case confidence >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// Verdict is the polarity of user feedback on a routing decision.
type Verdict string

const (
	VerdictPositive Verdict = "positive"
	VerdictNegative Verdict = "negative"
)

// IsValid checks if the verdict is known.
func (v Verdict) IsValid() bool {
	return v == VerdictPositive || v == VerdictNegative
}
