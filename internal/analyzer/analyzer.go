// Package analyzer holds the pure classification functions run over
// transcript segments. Every function here is deterministic, keeps no state
// between calls, and is safe to run concurrently across sessions.
package analyzer

import (
	"strings"
	"unicode"

	"github.com/talkcircle/sentinel/internal/repository"
)

const contextSnippetLimit = 100

// Finding is a classification result not yet bound to a session. The caller
// turns findings into repository.FlaggedContent rows.
type Finding struct {
	FlagType    repository.FlagType
	FlaggedWord string
	Context     string
	TimestampMs int64
	Speaker     string
}

// tokenize splits on whitespace, keeping the raw tokens for context windows.
func tokenize(text string) []string {
	return strings.Fields(text)
}

// normalizeToken strips non-word runes and lowercases, so "Damn!" and "damn"
// compare equal while "class" never matches "ass".
func normalizeToken(token string) string {
	var b strings.Builder
	for _, r := range token {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

func truncateSnippet(text string) string {
	runes := []rune(text)
	if len(runes) <= contextSnippetLimit {
		return text
	}
	return string(runes[:contextSnippetLimit])
}

func startTimestampMs(seg repository.Segment) int64 {
	return int64(seg.StartTime * 1000)
}
