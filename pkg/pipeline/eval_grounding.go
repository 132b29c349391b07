package pipeline

import (
	"strings"

	"github.com/smartquery/qrouter/pkg/models"
)

// groundingOverlapMin is the fraction of a claim's content terms that must
// appear in the retrieved passages for the claim to count as grounded.
const groundingOverlapMin = 0.5

// EvaluateGrounding splits the answer into atomic claims and checks each
// against the retrieved passages by content-term overlap. The overall score
// is the grounded fraction; an answer with no claims scores 1.
func EvaluateGrounding(answer string, docs []models.RetrievedDocument) *models.GroundingResult {
	result := &models.GroundingResult{OverallGroundingScore: 1}

	claims := splitClaims(answer)
	if len(claims) == 0 {
		return result
	}

	var joined strings.Builder
	for _, doc := range docs {
		joined.WriteString(strings.ToLower(doc.Content))
		joined.WriteByte(' ')
	}
	corpus := joined.String()

	for _, claim := range claims {
		if claimGrounded(claim, corpus) {
			result.GroundedClaims = append(result.GroundedClaims, claim)
		} else {
			result.UngroundedClaims = append(result.UngroundedClaims, claim)
		}
	}
	result.OverallGroundingScore = float64(len(result.GroundedClaims)) / float64(len(claims))
	return result
}

// claimGrounded checks whether enough of the claim's content terms occur in
// the passage corpus. Claims without content terms (greetings, connectives)
// count as grounded.
func claimGrounded(claim, corpus string) bool {
	terms := contentTerms(claim)
	if len(terms) == 0 {
		return true
	}
	found := 0
	for term := range terms {
		if strings.Contains(corpus, term) {
			found++
		}
	}
	return float64(found)/float64(len(terms)) >= groundingOverlapMin
}

// splitClaims breaks the answer into sentence-level claims on terminal
// punctuation and newlines, dropping fragments too short to verify.
func splitClaims(answer string) []string {
	var claims []string
	var current strings.Builder

	flush := func() {
		claim := strings.TrimSpace(current.String())
		current.Reset()
		if len(strings.Fields(claim)) >= 3 {
			claims = append(claims, claim)
		}
	}

	for _, r := range answer {
		switch r {
		case '.', '!', '?', '\n':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return claims
}
