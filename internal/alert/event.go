package alert

import "github.com/talkcircle/sentinel/internal/repository"

type EventType string

const (
	EventTypeConnected      EventType = "CONNECTED"
	EventTypeProfanity      EventType = "PROFANITY_ALERT"
	EventTypeLanguagePolicy EventType = "LANGUAGE_POLICY_ALERT"
	EventTypeParticipation  EventType = "PARTICIPATION_ALERT"
	EventTypeTopicAdherence EventType = "TOPIC_ADHERENCE_ALERT"
)

// Event is the transient observer notification. It is not persisted here;
// the underlying FlaggedContent row remains queryable through the flag store.
type Event struct {
	Type             EventType           `json:"type"`
	SessionID        string              `json:"sessionId,omitempty"`
	OwnerDisplayName string              `json:"ownerDisplayName,omitempty"`
	FlaggedWord      string              `json:"flaggedWord,omitempty"`
	TimestampMs      int64               `json:"timestampMs,omitempty"`
	Speaker          string              `json:"speaker,omitempty"`
	Context          string              `json:"context,omitempty"`
	FlagType         repository.FlagType `json:"flagType,omitempty"`
	UserID           string              `json:"userId,omitempty"`
}

// EventTypeForFlag maps a persisted flag type to its notification type.
func EventTypeForFlag(flagType repository.FlagType) EventType {
	switch flagType {
	case repository.FlagTypeProfanity:
		return EventTypeProfanity
	case repository.FlagTypeLanguagePolicy:
		return EventTypeLanguagePolicy
	case repository.FlagTypeParticipation:
		return EventTypeParticipation
	case repository.FlagTypeOffTopic:
		return EventTypeTopicAdherence
	default:
		return EventType(flagType)
	}
}
