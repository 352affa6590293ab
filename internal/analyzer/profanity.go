package analyzer

import (
	"strings"

	"github.com/talkcircle/sentinel/internal/repository"
)

// baseDenylist is the built-in profanity vocabulary. Deployments extend it
// via ProfanityConfig.ExtraWords; matches are exact after normalization.
var baseDenylist = []string{
	"damn", "shit", "fuck", "fucking", "bitch", "ass", "asshole",
	"bastard", "crap", "dick", "piss", "prick", "slut", "whore",
}

type ProfanityConfig struct {
	ExtraWords []string
}

func (c ProfanityConfig) denylist() map[string]struct{} {
	set := make(map[string]struct{}, len(baseDenylist)+len(c.ExtraWords))
	for _, w := range baseDenylist {
		set[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range c.ExtraWords {
		w = normalizeToken(w)
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

// AnalyzeProfanity tests every whitespace token of every segment against the
// denylist. The timestamp of a match is interpolated linearly across the
// segment's duration by token index.
func AnalyzeProfanity(segments []repository.Segment, cfg ProfanityConfig) []Finding {
	denylist := cfg.denylist()
	var findings []Finding
	for _, seg := range segments {
		tokens := tokenize(seg.Text)
		if len(tokens) == 0 {
			continue
		}
		durationMs := seg.Duration() * 1000
		if durationMs < 0 {
			durationMs = 0
		}
		msPerToken := durationMs / float64(len(tokens))
		for i, token := range tokens {
			normalized := normalizeToken(token)
			if normalized == "" {
				continue
			}
			if _, ok := denylist[normalized]; !ok {
				continue
			}
			findings = append(findings, Finding{
				FlagType:    repository.FlagTypeProfanity,
				FlaggedWord: normalized,
				Context:     contextWindow(tokens, i),
				TimestampMs: startTimestampMs(seg) + int64(float64(i)*msPerToken),
				Speaker:     seg.Speaker,
			})
		}
	}
	return findings
}

// contextWindow returns the matched token with up to three raw tokens of
// surrounding text on each side.
func contextWindow(tokens []string, index int) string {
	lo := index - 3
	if lo < 0 {
		lo = 0
	}
	hi := index + 4
	if hi > len(tokens) {
		hi = len(tokens)
	}
	return truncateSnippet(strings.Join(tokens[lo:hi], " "))
}
