package analyzer

import (
	"strings"

	"github.com/talkcircle/sentinel/internal/repository"
)

// AnalyzeLanguagePolicy flags segments whose detected language differs from
// the allowed one. Segments without a detected language are skipped.
func AnalyzeLanguagePolicy(segments []repository.Segment, allowedLanguage string) []Finding {
	allowed := strings.ToLower(strings.TrimSpace(allowedLanguage))
	if allowed == "" {
		return nil
	}
	var findings []Finding
	for _, seg := range segments {
		detected := strings.TrimSpace(seg.Language)
		if detected == "" {
			continue
		}
		if strings.EqualFold(detected, allowed) {
			continue
		}
		findings = append(findings, Finding{
			FlagType:    repository.FlagTypeLanguagePolicy,
			FlaggedWord: detected,
			Context:     truncateSnippet(seg.Text),
			TimestampMs: startTimestampMs(seg),
			Speaker:     seg.Speaker,
		})
	}
	return findings
}
