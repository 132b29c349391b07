package pipeline

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/smartquery/qrouter/pkg/models"
)

var (
	excessBlankLines = regexp.MustCompile(`\n{3,}`)
	trailingSpaces   = regexp.MustCompile(`[ \t]+\n`)
)

// ValidateOutput checks the generated answer for format problems and
// applies the safe auto-corrections: whitespace cleanup, forbidden pattern
// removal, closing an unclosed code fence. CorrectedOutput is set when any
// correction changed the text. Problems that cannot be corrected are
// reported as errors and leave Valid false.
func ValidateOutput(answer string, forbiddenPatterns []string) *models.ValidationResult {
	result := &models.ValidationResult{Valid: true}

	if strings.TrimSpace(answer) == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "answer is empty")
		return result
	}
	if !utf8.ValidString(answer) {
		result.Valid = false
		result.Errors = append(result.Errors, "answer contains invalid UTF-8")
		return result
	}

	corrected := answer

	for _, pattern := range forbiddenPatterns {
		if pattern == "" || !strings.Contains(corrected, pattern) {
			continue
		}
		corrected = strings.ReplaceAll(corrected, pattern, "")
		result.Corrections = append(result.Corrections, "removed forbidden pattern "+pattern)
	}

	if cleaned := collapseWhitespace(corrected); cleaned != corrected {
		corrected = cleaned
		result.Corrections = append(result.Corrections, "collapsed excess whitespace")
	}

	if strings.Count(corrected, "```")%2 != 0 {
		corrected = strings.TrimRight(corrected, "\n") + "\n```"
		result.Corrections = append(result.Corrections, "closed unclosed code fence")
	}

	if strings.TrimSpace(corrected) == "" {
		result.Valid = false
		result.Errors = append(result.Errors, "answer is empty after corrections")
		return result
	}

	if corrected != answer {
		result.CorrectedOutput = corrected
	}
	return result
}

func collapseWhitespace(s string) string {
	s = trailingSpaces.ReplaceAllString(s, "\n")
	s = excessBlankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimRight(s, " \t\n")
}
