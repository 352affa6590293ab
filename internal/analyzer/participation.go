package analyzer

import (
	"fmt"

	"github.com/talkcircle/sentinel/internal/repository"
)

const (
	FlaggedWordDominance = "participation_dominance"
	FlaggedWordSilence   = "participation_silence"

	dominanceThresholdCap   = 0.6
	silenceThresholdFloor   = 0.05
	minSpeakersForDominance = 2
	minSpeakersForSilence   = 3
)

type thresholds struct {
	dominance float64
	silence   float64
}

// participationThresholds derives the fair-share thresholds for the given
// speaker count. Explicit config values always win over the dynamic defaults.
func participationThresholds(speakerCount int, cfg *repository.ParticipationConfig) thresholds {
	fairShare := 1.0 / float64(speakerCount)
	t := thresholds{
		dominance: min(1.5*fairShare, dominanceThresholdCap),
		silence:   max(0.3*fairShare, silenceThresholdFloor),
	}
	if cfg != nil {
		if cfg.DominanceThreshold != nil {
			t.dominance = *cfg.DominanceThreshold
		}
		if cfg.SilenceThreshold != nil {
			t.silence = *cfg.SilenceThreshold
		}
	}
	return t
}

// ComputeParticipation aggregates per-speaker talk time over the full
// segment history and evaluates dominance/silence against the thresholds.
// Dominance needs at least two distinct speakers; silence at least three,
// so naturally asymmetric two-person exchanges are never flagged.
func ComputeParticipation(segments []repository.Segment, cfg *repository.ParticipationConfig) *repository.ParticipationBalance {
	stats, total := speakerStats(segments)
	balance := &repository.ParticipationBalance{
		Speakers:   stats,
		IsBalanced: true,
	}
	if len(stats) == 0 || total <= 0 {
		return balance
	}
	t := participationThresholds(len(stats), cfg)
	if len(stats) >= minSpeakersForDominance {
		dominant := ""
		best := 0.0
		for _, s := range stats {
			if s.Percentage > t.dominance && s.Percentage > best {
				dominant = s.SpeakerID
				best = s.Percentage
			}
		}
		balance.DominantSpeaker = dominant
	}
	if len(stats) >= minSpeakersForSilence {
		for _, s := range stats {
			if s.Percentage < t.silence {
				balance.SilentSpeakers = append(balance.SilentSpeakers, s.SpeakerID)
			}
		}
	}
	balance.IsBalanced = balance.DominantSpeaker == "" && len(balance.SilentSpeakers) == 0
	return balance
}

// EvaluateSpeakerParticipation is the real-time mode: given the cumulative
// history (which already includes the incoming segment), it flags only the
// incoming segment's speaker when that speaker currently crosses a threshold.
func EvaluateSpeakerParticipation(history []repository.Segment, incoming repository.Segment, cfg *repository.ParticipationConfig) []Finding {
	stats, total := speakerStats(history)
	if total <= 0 {
		return nil
	}
	var speaker *repository.SpeakerStat
	for i := range stats {
		if stats[i].SpeakerID == incoming.Speaker {
			speaker = &stats[i]
			break
		}
	}
	if speaker == nil {
		return nil
	}
	t := participationThresholds(len(stats), cfg)

	var findings []Finding
	if len(stats) >= minSpeakersForDominance && speaker.Percentage > t.dominance {
		findings = append(findings, Finding{
			FlagType:    repository.FlagTypeParticipation,
			FlaggedWord: FlaggedWordDominance,
			Context:     participationContext(speaker.SpeakerID, speaker.Percentage),
			TimestampMs: startTimestampMs(incoming),
			Speaker:     incoming.Speaker,
		})
	}
	if len(stats) >= minSpeakersForSilence && speaker.Percentage < t.silence {
		findings = append(findings, Finding{
			FlagType:    repository.FlagTypeParticipation,
			FlaggedWord: FlaggedWordSilence,
			Context:     participationContext(speaker.SpeakerID, speaker.Percentage),
			TimestampMs: startTimestampMs(incoming),
			Speaker:     incoming.Speaker,
		})
	}
	return findings
}

// speakerStats returns per-speaker aggregates in first-appearance order.
// Segments with inverted timing are skipped rather than aborting the batch.
func speakerStats(segments []repository.Segment) ([]repository.SpeakerStat, float64) {
	order := make([]string, 0)
	byID := make(map[string]*repository.SpeakerStat)
	total := 0.0
	for _, seg := range segments {
		if seg.Speaker == "" || seg.Duration() < 0 {
			continue
		}
		stat, ok := byID[seg.Speaker]
		if !ok {
			stat = &repository.SpeakerStat{SpeakerID: seg.Speaker}
			byID[seg.Speaker] = stat
			order = append(order, seg.Speaker)
		}
		stat.TalkTime += seg.Duration()
		stat.SegmentCount++
		total += seg.Duration()
	}
	stats := make([]repository.SpeakerStat, 0, len(order))
	for _, id := range order {
		stat := *byID[id]
		if total > 0 {
			stat.Percentage = stat.TalkTime / total
		}
		stats = append(stats, stat)
	}
	return stats, total
}

func participationContext(speakerID string, percentage float64) string {
	return fmt.Sprintf("%s holds %.1f%% of total talk time", speakerID, percentage*100)
}
