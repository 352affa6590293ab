package analyzer

import (
	"github.com/talkcircle/sentinel/internal/repository"
)

// defaultOnTopicKeywords is a generic discussion vocabulary used when a
// session configures no topic keywords of its own.
var defaultOnTopicKeywords = []string{
	"think", "because", "agree", "disagree", "question", "idea", "point",
	"example", "reason", "evidence", "understand", "explain", "topic",
	"discuss", "opinion", "believe", "important", "consider", "argument",
	"suggest", "conclusion", "perspective",
}

// defaultOffTopicIndicators is a generic distraction vocabulary; a segment
// needs at least one of these AND zero on-topic hits to count as off-topic.
var defaultOffTopicIndicators = []string{
	"game", "games", "gaming", "movie", "movies", "party", "weekend",
	"lunch", "dinner", "instagram", "tiktok", "youtube", "snapchat",
	"meme", "memes", "netflix", "shopping", "vacation", "gossip",
}

type TopicConfig struct {
	OnTopicKeywords    []string
	OffTopicIndicators []string
}

// NewTopicConfig builds the analyzer config for a session. Non-empty session
// keywords replace the generic on-topic vocabulary; the distraction
// indicators always come from the defaults.
func NewTopicConfig(sessionKeywords []string) TopicConfig {
	cfg := TopicConfig{
		OnTopicKeywords:    defaultOnTopicKeywords,
		OffTopicIndicators: defaultOffTopicIndicators,
	}
	if len(sessionKeywords) > 0 {
		cfg.OnTopicKeywords = sessionKeywords
	}
	return cfg
}

// AnalyzeTopicAdherence scores the transcript as the fraction of segments
// that are not off-topic, and returns an off_topic finding per offending
// segment. An empty transcript scores 1.0: no evidence of drift. Run only at
// finalization; per-batch topic judgments flip-flop as sentences build up.
func AnalyzeTopicAdherence(segments []repository.Segment, cfg TopicConfig) (float64, []Finding) {
	if len(segments) == 0 {
		return 1.0, nil
	}
	onTopic := normalizedSet(cfg.OnTopicKeywords)
	offTopic := normalizedSet(cfg.OffTopicIndicators)

	var findings []Finding
	offTopicCount := 0
	for _, seg := range segments {
		indicator, isOff := classifySegmentTopic(seg.Text, onTopic, offTopic)
		if !isOff {
			continue
		}
		offTopicCount++
		findings = append(findings, Finding{
			FlagType:    repository.FlagTypeOffTopic,
			FlaggedWord: indicator,
			Context:     truncateSnippet(seg.Text),
			TimestampMs: startTimestampMs(seg),
			Speaker:     seg.Speaker,
		})
	}
	score := float64(len(segments)-offTopicCount) / float64(len(segments))
	return score, findings
}

// classifySegmentTopic reports whether the text is off-topic: zero on-topic
// keywords and at least one off-topic indicator. Returns the first indicator
// hit for the flag record.
func classifySegmentTopic(text string, onTopic, offTopic map[string]struct{}) (string, bool) {
	indicator := ""
	for _, token := range tokenize(text) {
		normalized := normalizeToken(token)
		if normalized == "" {
			continue
		}
		if _, ok := onTopic[normalized]; ok {
			return "", false
		}
		if indicator == "" {
			if _, ok := offTopic[normalized]; ok {
				indicator = normalized
			}
		}
	}
	return indicator, indicator != ""
}

func normalizedSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		normalized := normalizeToken(w)
		if normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}
