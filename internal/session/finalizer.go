package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/talkcircle/sentinel/internal/alert"
	"github.com/talkcircle/sentinel/internal/analyzer"
	"github.com/talkcircle/sentinel/internal/cache"
	"github.com/talkcircle/sentinel/internal/config"
	"github.com/talkcircle/sentinel/internal/provider"
	"github.com/talkcircle/sentinel/internal/repository"
	"github.com/talkcircle/sentinel/internal/webhook"
)

// topicAdherenceAlertBar is the fixed quality bar below which a
// TOPIC_ADHERENCE_ALERT is broadcast at finalization.
const topicAdherenceAlertBar = 0.7

// Finalizer reconciles a draft session into its terminal complete state:
// optional authoritative-transcript replacement, full-session re-analysis,
// aggregate persistence, and summary alerts.
type Finalizer struct {
	cfg         *config.Config
	repo        repository.Repository
	provider    provider.TranscriptProvider
	broadcaster alert.Broadcaster
	cache       cache.SessionCache
	webhook     webhook.Sender
}

func NewFinalizer(cfg *config.Config, repo repository.Repository, transcripts provider.TranscriptProvider, broadcaster alert.Broadcaster, sessionCache cache.SessionCache, summaries webhook.Sender) *Finalizer {
	return &Finalizer{
		cfg:         cfg,
		repo:        repo,
		provider:    transcripts,
		broadcaster: broadcaster,
		cache:       sessionCache,
		webhook:     summaries,
	}
}

// FinalizeSession drives the session to complete. Re-finalizing an already
// complete session is a no-op returning the existing final state: the
// authoritative fetch is not an idempotent call, so side effects must not
// re-run on client retry.
func (f *Finalizer) FinalizeSession(ctx context.Context, callerID, sessionID string, durationSeconds float64, externalRef string) (*repository.Session, error) {
	sess, err := f.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.OwnerID != callerID {
		return nil, ErrAccessDenied
	}
	if sess.Status == repository.SessionStatusComplete {
		slog.Info("session already complete; finalize is a no-op", "session_id", sessionID)
		return sess, nil
	}

	segments := sess.Segments
	replaced := false
	if externalRef != "" {
		if authoritative, fetchErr := f.fetchAuthoritativeSegments(ctx, externalRef); fetchErr != nil {
			// Graceful degradation: the accumulated transcript stands and the
			// live profanity/language flags stay valid.
			slog.Warn("authoritative transcript unavailable; using accumulated segments", "error", fetchErr, "session_id", sessionID)
		} else {
			if err := f.repo.ReplaceSegments(ctx, sessionID, authoritative); err != nil {
				return nil, fmt.Errorf("failed to replace segments: %w", err)
			}
			segments = authoritative
			replaced = true
			slog.Info("segments replaced from authoritative transcript", "session_id", sessionID, "segments", len(segments))
		}
	}

	// Aggregate-only flags always derive from the final transcript. When the
	// transcript itself was replaced, the live profanity/language flags
	// reference superseded text and fall with it.
	staleTypes := []repository.FlagType{repository.FlagTypeParticipation, repository.FlagTypeOffTopic}
	if replaced {
		staleTypes = append(staleTypes, repository.FlagTypeProfanity, repository.FlagTypeLanguagePolicy)
	}
	if err := f.repo.DeleteFlagsByTypes(ctx, sessionID, staleTypes); err != nil {
		return nil, fmt.Errorf("failed to delete stale flags: %w", err)
	}

	balance, score, findings := f.analyzeFinalTranscript(sess, segments, replaced)
	if len(findings) > 0 {
		if err := f.repo.InsertFlags(ctx, flagsFromFindings(sessionID, findings)); err != nil {
			return nil, fmt.Errorf("failed to persist final flags: %w", err)
		}
	}
	if replaced {
		profanityCount, languageCount := violationCounts(findings)
		if err := f.repo.AddViolationCounts(ctx, sessionID, profanityCount-sess.ProfanityCount, languageCount-sess.LanguageViolationCount); err != nil {
			slog.Error("failed to reset violation counters", "error", err, "session_id", sessionID)
		}
	}

	applied, err := f.repo.FinalizeSession(ctx, repository.FinalizeSessionInput{
		SessionID:            sessionID,
		DurationSeconds:      durationSeconds,
		ParticipationBalance: balance,
		TopicAdherenceScore:  score,
	})
	if err != nil {
		return nil, err
	}
	f.cache.Invalidate(ctx, sessionID)

	final, err := f.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !applied {
		// A concurrent finalize won the status guard; its state stands.
		slog.Info("finalize lost the completion race; returning winner's state", "session_id", sessionID)
		return final, nil
	}

	f.broadcastSummaryAlerts(final, balance, score)
	f.sendSummaryWebhook(ctx, final)
	slog.Info("session finalized", "session_id", sessionID, "duration_seconds", durationSeconds, "topic_score", score, "balanced", balance.IsBalanced)
	return final, nil
}

func (f *Finalizer) fetchAuthoritativeSegments(ctx context.Context, externalRef string) ([]repository.Segment, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.ProviderFetchTimeout)
	defer cancel()
	tokens, err := f.provider.FetchTranscript(ctx, externalRef)
	if err != nil {
		return nil, err
	}
	return provider.MergeTokens(tokens), nil
}

// analyzeFinalTranscript runs the full analyzer set over the final segment
// list. Participation and topic adherence always recompute; profanity and
// language policy re-run only when the transcript was replaced, since
// otherwise their live flags still describe the stored segments.
func (f *Finalizer) analyzeFinalTranscript(sess *repository.Session, segments []repository.Segment, replaced bool) (*repository.ParticipationBalance, float64, []analyzer.Finding) {
	var (
		wg                sync.WaitGroup
		balance           *repository.ParticipationBalance
		score             float64
		topicFindings     []analyzer.Finding
		profanityFindings []analyzer.Finding
		languageFindings  []analyzer.Finding
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		balance = analyzer.ComputeParticipation(segments, sess.ParticipationConfig)
	}()
	go func() {
		defer wg.Done()
		score, topicFindings = analyzer.AnalyzeTopicAdherence(segments, analyzer.NewTopicConfig(sess.TopicKeywords))
	}()
	if replaced {
		wg.Add(2)
		go func() {
			defer wg.Done()
			profanityFindings = analyzer.AnalyzeProfanity(segments, analyzer.ProfanityConfig{ExtraWords: f.cfg.ExtraProfanityWords})
		}()
		go func() {
			defer wg.Done()
			languageFindings = analyzer.AnalyzeLanguagePolicy(segments, sess.Language)
		}()
	}
	wg.Wait()

	findings := make([]analyzer.Finding, 0, len(topicFindings)+len(profanityFindings)+len(languageFindings)+1)
	findings = append(findings, profanityFindings...)
	findings = append(findings, languageFindings...)
	findings = append(findings, topicFindings...)
	if !balance.IsBalanced {
		findings = append(findings, participationSummaryFinding(balance))
	}
	return balance, score, findings
}

func participationSummaryFinding(balance *repository.ParticipationBalance) analyzer.Finding {
	if balance.DominantSpeaker != "" {
		dominant := speakerStatByID(balance, balance.DominantSpeaker)
		return analyzer.Finding{
			FlagType:    repository.FlagTypeParticipation,
			FlaggedWord: analyzer.FlaggedWordDominance,
			Context:     fmt.Sprintf("%s holds %.1f%% of total talk time", dominant.SpeakerID, dominant.Percentage*100),
			Speaker:     balance.DominantSpeaker,
		}
	}
	return analyzer.Finding{
		FlagType:    repository.FlagTypeParticipation,
		FlaggedWord: analyzer.FlaggedWordSilence,
		Context:     fmt.Sprintf("silent speakers: %v", balance.SilentSpeakers),
	}
}

func speakerStatByID(balance *repository.ParticipationBalance, id string) repository.SpeakerStat {
	for _, s := range balance.Speakers {
		if s.SpeakerID == id {
			return s
		}
	}
	return repository.SpeakerStat{SpeakerID: id}
}

func (f *Finalizer) broadcastSummaryAlerts(sess *repository.Session, balance *repository.ParticipationBalance, score float64) {
	if !balance.IsBalanced {
		finding := participationSummaryFinding(balance)
		f.broadcaster.Publish(alert.Event{
			Type:             alert.EventTypeParticipation,
			SessionID:        sess.ID,
			OwnerDisplayName: sess.OwnerDisplayName,
			FlaggedWord:      finding.FlaggedWord,
			Speaker:          finding.Speaker,
			Context:          finding.Context,
			FlagType:         repository.FlagTypeParticipation,
		})
	}
	if score < topicAdherenceAlertBar {
		f.broadcaster.Publish(alert.Event{
			Type:             alert.EventTypeTopicAdherence,
			SessionID:        sess.ID,
			OwnerDisplayName: sess.OwnerDisplayName,
			FlaggedWord:      "topic_adherence",
			Context:          fmt.Sprintf("topic adherence score %.2f below %.2f", score, topicAdherenceAlertBar),
			FlagType:         repository.FlagTypeOffTopic,
		})
	}
}

func (f *Finalizer) sendSummaryWebhook(ctx context.Context, sess *repository.Session) {
	flags, err := f.repo.ListFlagsBySessionID(ctx, sess.ID)
	if err != nil {
		slog.Error("failed to list flags for summary webhook", "error", err, "session_id", sess.ID)
		flags = nil
	}
	if err := f.webhook.SendSummary(ctx, buildSessionSummary(sess, flags)); err != nil {
		slog.Error("failed to send summary webhook", "error", err, "session_id", sess.ID)
	}
}
