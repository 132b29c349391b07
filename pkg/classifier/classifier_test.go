package classifier

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartquery/qrouter/pkg/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercase", "What Is THE Policy", "what is the policy"},
		{"collapse whitespace", "what\t is \n  the policy", "what is the policy"},
		{"trim", "  hello  ", "hello"},
		{"empty", "", ""},
		{"only whitespace", " \t\n ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestExactHash_StableAcrossCaseAndWhitespace(t *testing.T) {
	a := ExactHash(Normalize("What is our  vacation policy?"))
	b := ExactHash(Normalize("what IS our vacation\tpolicy?"))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded SHA-256

	c := ExactHash(Normalize("a different query"))
	assert.NotEqual(t, a, c)
}

func TestDetectFeatures(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []models.Feature
	}{
		{
			name:  "simple lookup",
			query: "What is our vacation policy?",
			want:  []models.Feature{models.FeatureSimpleLookup},
		},
		{
			name:  "external data",
			query: "What are the current California insurance regulations?",
			want:  []models.Feature{models.FeatureExternalDataNeeded},
		},
		{
			name:  "multi document and entity extraction together",
			query: "Compare all these contracts and identify differences",
			want:  []models.Feature{models.FeatureMultiDocument, models.FeatureEntityExtraction},
		},
		{
			name:  "conversational greeting",
			query: "Hello",
			want:  []models.Feature{models.FeatureConversational},
		},
		{
			name:  "entity extraction",
			query: "Extract the names and phone numbers from this contract",
			want:  []models.Feature{models.FeatureEntityExtraction},
		},
		{
			name:  "word boundary protects short tokens",
			query: "the history of the company",
			want:  nil, // "history" must not match " hi "
		},
		{
			name:  "hi with punctuation",
			query: "Hi, can you help me?",
			want:  []models.Feature{models.FeatureConversational},
		},
		{
			name:  "no features",
			query: "vacation days carryover rules",
			want:  nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectFeatures(Normalize(tt.query))
			assert.ElementsMatch(t, tt.want, got.List())
		})
	}
}

func TestComplexityScore_LengthBoundaries(t *testing.T) {
	features := models.FeatureSet{}

	// Exactly 50 words: no length contribution (strict >50), but >20 gives half.
	assert.InDelta(t, weightLength/2, ComplexityScore(nWords(50), features), 1e-9)
	// 51 words: full length weight.
	assert.InDelta(t, weightLength, ComplexityScore(nWords(51), features), 1e-9)
	// Exactly 20 words: nothing.
	assert.InDelta(t, 0, ComplexityScore(nWords(20), features), 1e-9)
	// 21 words: half weight.
	assert.InDelta(t, weightLength/2, ComplexityScore(nWords(21), features), 1e-9)
}

func TestComplexityScore_Contributions(t *testing.T) {
	features := models.FeatureSet{
		models.FeatureMultiDocument:      true,
		models.FeatureExternalDataNeeded: true,
		models.FeatureEntityExtraction:   true,
		models.FeatureComplexReasoning:   true,
	}
	score := ComplexityScore("why does this matter", features)
	// 0.20 question word + 0.25 + 0.20 + 0.10 + 0.10 features
	assert.InDelta(t, 0.85, score, 1e-9)
	assert.Equal(t, models.ComplexityComplex, ComplexityLabel(score))
}

func TestComplexityLabel_Thresholds(t *testing.T) {
	assert.Equal(t, models.ComplexityComplex, ComplexityLabel(0.6))
	assert.Equal(t, models.ComplexityModerate, ComplexityLabel(0.59))
	assert.Equal(t, models.ComplexityModerate, ComplexityLabel(0.3))
	assert.Equal(t, models.ComplexitySimple, ComplexityLabel(0.29))
}

func TestCategorize_PriorityOrder(t *testing.T) {
	tests := []struct {
		name      string
		features  []models.Feature
		wordCount int
		want      models.Category
	}{
		{
			name:      "conversational short query",
			features:  []models.Feature{models.FeatureConversational},
			wordCount: 3,
			want:      models.CategoryConversational,
		},
		{
			name:      "conversational at exactly 10 words falls through",
			features:  []models.Feature{models.FeatureConversational},
			wordCount: 10,
			want:      models.CategoryDocumentLookup,
		},
		{
			name:      "external data beats multi document",
			features:  []models.Feature{models.FeatureExternalDataNeeded, models.FeatureMultiDocument},
			wordCount: 12,
			want:      models.CategoryResearch,
		},
		{
			name:      "multi document beats entity extraction",
			features:  []models.Feature{models.FeatureMultiDocument, models.FeatureEntityExtraction},
			wordCount: 7,
			want:      models.CategoryDocumentAnalysis,
		},
		{
			name:      "entity extraction",
			features:  []models.Feature{models.FeatureEntityExtraction},
			wordCount: 9,
			want:      models.CategoryEntityExtraction,
		},
		{
			name:      "complex reasoning long query",
			features:  []models.Feature{models.FeatureComplexReasoning},
			wordCount: 16,
			want:      models.CategoryMultiStep,
		},
		{
			name:      "complex reasoning at exactly 15 words falls through",
			features:  []models.Feature{models.FeatureComplexReasoning},
			wordCount: 15,
			want:      models.CategoryDocumentLookup,
		},
		{
			name:      "no features",
			features:  nil,
			wordCount: 4,
			want:      models.CategoryDocumentLookup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			features := make(models.FeatureSet)
			for _, f := range tt.features {
				features[f] = true
			}
			assert.Equal(t, tt.want, Categorize(features, tt.wordCount))
		})
	}
}

func TestClassify_Scenarios(t *testing.T) {
	tests := []struct {
		query      string
		category   models.Category
		complexity models.Complexity
	}{
		{"What is our vacation policy?", models.CategoryDocumentLookup, models.ComplexitySimple},
		{"What are the current California insurance regulations?", models.CategoryResearch, models.ComplexitySimple},
		{"Compare all these contracts and identify differences", models.CategoryDocumentAnalysis, models.ComplexityModerate},
		{"Hello", models.CategoryConversational, models.ComplexitySimple},
		{"Extract the names and phone numbers from this contract", models.CategoryEntityExtraction, models.ComplexitySimple},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := Classify(tt.query)
			assert.Equal(t, tt.category, got.Category)
			assert.Equal(t, tt.complexity, got.Complexity)
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	query := "Compare all these contracts and identify the differences between them"
	first := Classify(query)
	second := Classify(query)

	assert.Equal(t, first.Category, second.Category)
	assert.Equal(t, first.Complexity, second.Complexity)
	assert.Equal(t, first.Features.List(), second.Features.List())
	assert.Equal(t, first.Score, second.Score)
}

type fakeEmbedder struct {
	vec []float64
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float64, error) {
	return f.vec, f.err
}

func TestFingerprinter(t *testing.T) {
	t.Run("with embedding", func(t *testing.T) {
		fp := NewFingerprinter(&fakeEmbedder{vec: []float64{0.1, 0.2}})
		got := fp.Fingerprint(context.Background(), "Hello  World", true)

		assert.Equal(t, "hello world", got.NormalizedText)
		assert.Equal(t, ExactHash("hello world"), got.ExactHash)
		assert.Equal(t, []float64{0.1, 0.2}, got.Embedding)
	})

	t.Run("embedder failure is non-fatal", func(t *testing.T) {
		fp := NewFingerprinter(&fakeEmbedder{err: errors.New("connection refused")})
		got := fp.Fingerprint(context.Background(), "hello", true)

		require.NotEmpty(t, got.ExactHash)
		assert.Nil(t, got.Embedding)
	})

	t.Run("embedding not requested", func(t *testing.T) {
		fp := NewFingerprinter(&fakeEmbedder{vec: []float64{1}})
		got := fp.Fingerprint(context.Background(), "hello", false)
		assert.Nil(t, got.Embedding)
	})

	t.Run("nil embedder", func(t *testing.T) {
		fp := NewFingerprinter(nil)
		got := fp.Fingerprint(context.Background(), "hello", true)
		assert.Nil(t, got.Embedding)
		assert.NotEmpty(t, got.ExactHash)
	})
}

func TestParseLLMClassification(t *testing.T) {
	t.Run("clean JSON", func(t *testing.T) {
		out, err := ParseLLMClassification(`{"backend":"adaptive_iterative","confidence":0.92,"reasoning":"needs research","suggested_tools":["web_search"]}`)
		require.NoError(t, err)
		assert.Equal(t, models.BackendAdaptiveIterative, out.Backend)
		assert.Equal(t, 0.92, out.Confidence)
		assert.Equal(t, []string{"web_search"}, out.SuggestedTools)
	})

	t.Run("JSON wrapped in prose and fences", func(t *testing.T) {
		raw := "Sure! Here is the classification:\n```json\n" +
			`{"backend":"direct_retrieval","confidence":0.8,"reasoning":"simple lookup","suggested_tools":[]}` +
			"\n```\nLet me know if you need anything else."
		out, err := ParseLLMClassification(raw)
		require.NoError(t, err)
		assert.Equal(t, models.BackendDirectRetrieval, out.Backend)
	})

	t.Run("braces inside string values", func(t *testing.T) {
		raw := `{"backend":"direct_retrieval","confidence":0.7,"reasoning":"matches pattern {x}","suggested_tools":[]}`
		out, err := ParseLLMClassification(raw)
		require.NoError(t, err)
		assert.Equal(t, "matches pattern {x}", out.Reasoning)
	})

	errCases := []struct {
		name string
		raw  string
	}{
		{"no JSON at all", "I could not classify this query."},
		{"unbalanced object", `{"backend":"direct_retrieval"`},
		{"unknown backend", `{"backend":"mystery","confidence":0.5,"reasoning":"r","suggested_tools":[]}`},
		{"confidence out of range", `{"backend":"direct_retrieval","confidence":1.5,"reasoning":"r","suggested_tools":[]}`},
		{"missing reasoning", `{"backend":"direct_retrieval","confidence":0.5,"suggested_tools":[]}`},
		{"not an object for confidence", `{"backend":"direct_retrieval","confidence":"high","reasoning":"r","suggested_tools":[]}`},
	}

	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLLMClassification(tt.raw)
			assert.Error(t, err)
		})
	}
}

// nWords builds a query with exactly n words.
func nWords(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}
