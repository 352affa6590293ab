package repository

import "time"

type SessionStatus string

const (
	SessionStatusDraft    SessionStatus = "draft"
	SessionStatusComplete SessionStatus = "complete"
)

type FlagType string

const (
	FlagTypeProfanity      FlagType = "profanity"
	FlagTypeLanguagePolicy FlagType = "language_policy"
	FlagTypeOffTopic       FlagType = "off_topic"
	FlagTypeParticipation  FlagType = "participation"
)

// Segment is a contiguous same-speaker span of transcribed speech.
// Immutable once committed; finalization may replace a session's whole
// sequence but never edits entries in place.
type Segment struct {
	Speaker   string  `json:"speaker"`
	Text      string  `json:"text"`
	StartTime float64 `json:"startTime"`
	EndTime   float64 `json:"endTime"`
	Language  string  `json:"language,omitempty"`
}

func (s Segment) Duration() float64 {
	return s.EndTime - s.StartTime
}

type ParticipationConfig struct {
	DominanceThreshold *float64 `json:"dominanceThreshold,omitempty"`
	SilenceThreshold   *float64 `json:"silenceThreshold,omitempty"`
}

type SpeakerStat struct {
	SpeakerID    string  `json:"speakerId"`
	TalkTime     float64 `json:"talkTime"`
	SegmentCount int     `json:"segmentCount"`
	Percentage   float64 `json:"percentage"`
}

type ParticipationBalance struct {
	Speakers        []SpeakerStat `json:"speakers"`
	DominantSpeaker string        `json:"dominantSpeaker,omitempty"`
	SilentSpeakers  []string      `json:"silentSpeakers,omitempty"`
	IsBalanced      bool          `json:"isBalanced"`
}

type Session struct {
	ID                     string                `json:"id"`
	OwnerID                string                `json:"ownerId"`
	OwnerDisplayName       string                `json:"ownerDisplayName"`
	Status                 SessionStatus         `json:"status"`
	Language               string                `json:"language"`
	TopicPrompt            string                `json:"topicPrompt,omitempty"`
	TopicKeywords          []string              `json:"topicKeywords,omitempty"`
	ParticipationConfig    *ParticipationConfig  `json:"participationConfig,omitempty"`
	Segments               []Segment             `json:"segments"`
	Cursor                 int                   `json:"cursor"`
	ProfanityCount         int                   `json:"profanityCount"`
	LanguageViolationCount int                   `json:"languageViolationCount"`
	ParticipationBalance   *ParticipationBalance `json:"participationBalance,omitempty"`
	TopicAdherenceScore    *float64              `json:"topicAdherenceScore,omitempty"`
	DurationSeconds        float64               `json:"durationSeconds"`
	CreatedAt              time.Time             `json:"createdAt"`
	UpdatedAt              time.Time             `json:"updatedAt"`
}

type FlaggedContent struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"sessionId"`
	FlagType    FlagType  `json:"flagType"`
	FlaggedWord string    `json:"flaggedWord"`
	Context     string    `json:"context"`
	TimestampMs int64     `json:"timestampMs"`
	Speaker     string    `json:"speaker,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
