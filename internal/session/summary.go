package session

import (
	"github.com/talkcircle/sentinel/internal/repository"
	"github.com/talkcircle/sentinel/internal/webhook"
)

// buildSessionSummary assembles the post-finalization webhook payload from
// the persisted session and its flags.
func buildSessionSummary(sess *repository.Session, flags []repository.FlaggedContent) webhook.SummaryPayload {
	counts := make(map[string]int, 4)
	for _, f := range flags {
		counts[string(f.FlagType)]++
	}

	payload := webhook.SummaryPayload{
		SchemaVersion:          webhook.SummaryWebhookSchemaVersion,
		SessionID:              sess.ID,
		OwnerID:                sess.OwnerID,
		OwnerDisplayName:       sess.OwnerDisplayName,
		DurationSeconds:        sess.DurationSeconds,
		SegmentCount:           len(sess.Segments),
		ProfanityCount:         sess.ProfanityCount,
		LanguageViolationCount: sess.LanguageViolationCount,
		FlagCountsByType:       counts,
		IsBalanced:             true,
	}
	if sess.TopicAdherenceScore != nil {
		payload.TopicAdherenceScore = *sess.TopicAdherenceScore
	}
	if balance := sess.ParticipationBalance; balance != nil {
		payload.IsBalanced = balance.IsBalanced
		payload.DominantSpeaker = balance.DominantSpeaker
		payload.SilentSpeakers = balance.SilentSpeakers
		payload.Speakers = make([]webhook.SummarySpeaker, 0, len(balance.Speakers))
		for _, s := range balance.Speakers {
			payload.Speakers = append(payload.Speakers, webhook.SummarySpeaker{
				SpeakerID:    s.SpeakerID,
				TalkTime:     s.TalkTime,
				SegmentCount: s.SegmentCount,
				Percentage:   s.Percentage,
			})
		}
	}
	return payload
}
