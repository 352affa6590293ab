package webhook

import "context"

const SummaryWebhookSchemaVersion = 1

type SummarySpeaker struct {
	SpeakerID    string  `json:"speakerId"`
	TalkTime     float64 `json:"talkTimeSeconds"`
	SegmentCount int     `json:"segmentCount"`
	Percentage   float64 `json:"percentage"`
}

// SummaryPayload is posted once per session after finalization completes.
type SummaryPayload struct {
	SchemaVersion          int              `json:"schemaVersion"`
	SessionID              string           `json:"sessionId"`
	OwnerID                string           `json:"ownerId"`
	OwnerDisplayName       string           `json:"ownerDisplayName"`
	DurationSeconds        float64          `json:"durationSeconds"`
	SegmentCount           int              `json:"segmentCount"`
	ProfanityCount         int              `json:"profanityCount"`
	LanguageViolationCount int              `json:"languageViolationCount"`
	FlagCountsByType       map[string]int   `json:"flagCountsByType"`
	TopicAdherenceScore    float64          `json:"topicAdherenceScore"`
	IsBalanced             bool             `json:"isBalanced"`
	DominantSpeaker        string           `json:"dominantSpeaker,omitempty"`
	SilentSpeakers         []string         `json:"silentSpeakers,omitempty"`
	Speakers               []SummarySpeaker `json:"speakers"`
}

type Sender interface {
	SendSummary(ctx context.Context, payload SummaryPayload) error
}
