// Package classifier implements deterministic query analysis: fingerprinting
// for cache lookup, linguistic feature detection, complexity scoring, and
// rule-based category classification, plus parsing of LLM-assisted
// classification responses.
package classifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"regexp"
	"strings"

	"github.com/smartquery/qrouter/pkg/models"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// Normalize lowercases the query, collapses whitespace runs to single
// spaces, and trims leading/trailing spaces. Two queries differing only in
// letter case or internal whitespace normalize identically.
func Normalize(query string) string {
	s := strings.ToLower(query)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// ExactHash returns the hex-encoded SHA-256 digest of the UTF-8 bytes of
// the normalized text.
func ExactHash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Embedder produces a fixed-length embedding vector for a text.
// Implementations are external services; failures are expected and
// non-fatal for fingerprinting.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Fingerprinter computes cache lookup keys for queries. The embedder may be
// nil, in which case fingerprints never carry embeddings.
type Fingerprinter struct {
	embedder Embedder
}

// NewFingerprinter creates a fingerprinter. embedder may be nil
// (similarity-tier lookups disabled).
func NewFingerprinter(embedder Embedder) *Fingerprinter {
	return &Fingerprinter{embedder: embedder}
}

// Fingerprint normalizes and hashes the query. When withEmbedding is true
// and an embedder is configured, it also computes the embedding; embedder
// failure leaves the fingerprint valid without one.
func (f *Fingerprinter) Fingerprint(ctx context.Context, query string, withEmbedding bool) models.Fingerprint {
	normalized := Normalize(query)
	fp := models.Fingerprint{
		NormalizedText: normalized,
		ExactHash:      ExactHash(normalized),
	}

	if withEmbedding && f.embedder != nil {
		embedding, err := f.embedder.Embed(ctx, normalized)
		if err != nil {
			slog.Warn("Embedder unavailable, fingerprint has no embedding", "error", err)
		} else {
			fp.Embedding = embedding
		}
	}

	return fp
}
