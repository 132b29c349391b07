package classifier

import (
	"strings"

	"github.com/smartquery/qrouter/pkg/models"
)

// featurePatterns maps each feature to its detection patterns. Patterns are
// matched as substrings against the normalized text padded with one space on
// each side; patterns carrying explicit spaces therefore enforce word
// boundaries (" hi " must be the standalone token, so "history" never
// matches).
var featurePatterns = map[models.Feature][]string{
	models.FeatureMultiDocument: {
		"compare", "multiple", "several", " all ", "across", "between",
		"documents", "files", "contracts", "policies", "analyze together",
	},
	models.FeatureExternalDataNeeded: {
		"current", "recent", "latest", "today", "news", "regulation",
		"industry", "market", "trend", "outside", "external", "web",
	},
	models.FeatureComplexReasoning: {
		"why ", " how ", "explain", "analyze", "evaluate", "assess",
		"recommend", "suggest", "strategy", "impact", "implications",
	},
	models.FeatureEntityExtraction: {
		"extract", "find all", " list ", "identify", " names", " dates",
		"numbers", "entities", "metadata", "structured",
	},
	models.FeatureConversational: {
		"hello", " hi ", "hi,", "hi!", "thanks", "help me", "what can you",
		"tell me about yourself", "who are you",
	},
	models.FeatureSimpleLookup: {
		"what is", "show me", " find ", "where is", "when was", "how much",
		"policy on", "document about",
	},
}

// DetectFeatures matches the normalized query text against the closed
// feature vocabulary. The same phrase may satisfy multiple features.
// Detection is deterministic and locale-independent.
func DetectFeatures(normalized string) models.FeatureSet {
	padded := " " + normalized + " "
	features := make(models.FeatureSet)
	for feature, patterns := range featurePatterns {
		for _, pattern := range patterns {
			if strings.Contains(padded, pattern) {
				features[feature] = true
				break
			}
		}
	}
	return features
}

// WordCount returns the number of whitespace-separated words in the
// normalized text.
func WordCount(normalized string) int {
	if normalized == "" {
		return 0
	}
	return len(strings.Fields(normalized))
}
