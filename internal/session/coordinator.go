package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/talkcircle/sentinel/internal/alert"
	"github.com/talkcircle/sentinel/internal/analyzer"
	"github.com/talkcircle/sentinel/internal/cache"
	"github.com/talkcircle/sentinel/internal/config"
	"github.com/talkcircle/sentinel/internal/repository"
)

// Coordinator owns the append protocol: it applies the conditional append,
// classifies the new segments, persists the resulting flags, and notifies
// observers. All per-session serialization happens at the store's cursor
// compare-and-set; the coordinator itself holds no per-session state.
type Coordinator struct {
	cfg         *config.Config
	repo        repository.Repository
	broadcaster alert.Broadcaster
	cache       cache.SessionCache
}

func NewCoordinator(cfg *config.Config, repo repository.Repository, broadcaster alert.Broadcaster, sessionCache cache.SessionCache) *Coordinator {
	return &Coordinator{
		cfg:         cfg,
		repo:        repo,
		broadcaster: broadcaster,
		cache:       sessionCache,
	}
}

type CreateSessionInput struct {
	Language            string
	TopicPrompt         string
	TopicKeywords       []string
	ParticipationConfig *repository.ParticipationConfig
}

// SessionDetail is the full read model: session plus its flags ordered by
// timestamp. It is also the payload shape stored in the session cache.
type SessionDetail struct {
	Session *repository.Session         `json:"session"`
	Flags   []repository.FlaggedContent `json:"flaggedContent"`
}

func (c *Coordinator) CreateSession(ctx context.Context, ownerID, ownerDisplayName string, input CreateSessionInput) (*repository.Session, error) {
	if err := validateParticipationConfig(input.ParticipationConfig); err != nil {
		return nil, err
	}
	language := input.Language
	if language == "" {
		language = c.cfg.DefaultAllowedLanguage
	}
	if ownerDisplayName == "" {
		ownerDisplayName = ownerID
	}
	created, err := c.repo.CreateSession(ctx, repository.CreateSessionInput{
		OwnerID:             ownerID,
		OwnerDisplayName:    ownerDisplayName,
		Language:            language,
		TopicPrompt:         input.TopicPrompt,
		TopicKeywords:       input.TopicKeywords,
		ParticipationConfig: input.ParticipationConfig,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	slog.Info("session created", "session_id", created.ID, "owner_id", ownerID)
	return created, nil
}

// AppendSegments applies one batch through the cursor protocol. A
// *repository.CursorConflictError carries the authoritative cursor back to
// the client, which re-reads its unsent buffer and retries.
func (c *Coordinator) AppendSegments(ctx context.Context, callerID, sessionID string, fromIndex int, segments []repository.Segment) (*repository.Session, error) {
	if fromIndex < 0 {
		return nil, &InvalidSegmentError{Index: 0, Reason: "fromIndex must be non-negative"}
	}
	if err := validateSegments(segments); err != nil {
		return nil, err
	}

	current, err := c.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.OwnerID != callerID {
		return nil, ErrAccessDenied
	}

	updated, err := c.repo.AppendSegments(ctx, sessionID, fromIndex, segments)
	if err != nil {
		return nil, err
	}
	slog.Info("segments appended", "session_id", sessionID, "from_index", fromIndex, "count", len(segments), "cursor", updated.Cursor)

	findings := c.classifyNewSegments(updated, fromIndex, segments)
	profanityCount, languageCount := violationCounts(findings)
	if len(findings) > 0 {
		if err := c.repo.InsertFlags(ctx, flagsFromFindings(sessionID, findings)); err != nil {
			// Segments are already committed; losing a flag row is less bad
			// than failing the append and forcing a conflicting retry.
			slog.Error("failed to persist flags", "error", err, "session_id", sessionID, "flags", len(findings))
		} else if err := c.repo.AddViolationCounts(ctx, sessionID, profanityCount, languageCount); err != nil {
			slog.Error("failed to update violation counters", "error", err, "session_id", sessionID)
		} else {
			updated.ProfanityCount += profanityCount
			updated.LanguageViolationCount += languageCount
		}
		publishFindings(c.broadcaster, updated, findings)
	}

	c.cache.Invalidate(ctx, sessionID)
	return updated, nil
}

// classifyNewSegments runs the per-batch analyzers. Profanity and language
// policy classify only the incoming segments; the real-time participation
// check evaluates each incoming segment's speaker against the cumulative
// history up to and including that segment.
func (c *Coordinator) classifyNewSegments(updated *repository.Session, fromIndex int, segments []repository.Segment) []analyzer.Finding {
	var (
		wg                 sync.WaitGroup
		profanityFindings  []analyzer.Finding
		languageFindings   []analyzer.Finding
		engagementFindings []analyzer.Finding
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		profanityFindings = analyzer.AnalyzeProfanity(segments, analyzer.ProfanityConfig{ExtraWords: c.cfg.ExtraProfanityWords})
	}()
	go func() {
		defer wg.Done()
		languageFindings = analyzer.AnalyzeLanguagePolicy(segments, updated.Language)
	}()
	go func() {
		defer wg.Done()
		for i, seg := range segments {
			history := updated.Segments[:fromIndex+i+1]
			engagementFindings = append(engagementFindings,
				analyzer.EvaluateSpeakerParticipation(history, seg, updated.ParticipationConfig)...)
		}
	}()
	wg.Wait()

	findings := make([]analyzer.Finding, 0, len(profanityFindings)+len(languageFindings)+len(engagementFindings))
	findings = append(findings, profanityFindings...)
	findings = append(findings, languageFindings...)
	findings = append(findings, engagementFindings...)
	return findings
}

// GetSession returns the session with its flags, reading through the cache.
func (c *Coordinator) GetSession(ctx context.Context, callerID, sessionID string) (*SessionDetail, error) {
	if payload, ok := c.cache.Get(ctx, sessionID); ok {
		var detail SessionDetail
		if err := json.Unmarshal(payload, &detail); err == nil && detail.Session != nil {
			if detail.Session.OwnerID != callerID {
				return nil, ErrAccessDenied
			}
			return &detail, nil
		}
		slog.Warn("discarding undecodable cached session", "session_id", sessionID)
	}

	sess, err := c.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.OwnerID != callerID {
		return nil, ErrAccessDenied
	}
	flags, err := c.repo.ListFlagsBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	detail := &SessionDetail{Session: sess, Flags: flags}
	if payload, err := json.Marshal(detail); err == nil {
		c.cache.Set(ctx, sessionID, payload)
	}
	return detail, nil
}

func violationCounts(findings []analyzer.Finding) (profanity, languagePolicy int) {
	for _, f := range findings {
		switch f.FlagType {
		case repository.FlagTypeProfanity:
			profanity++
		case repository.FlagTypeLanguagePolicy:
			languagePolicy++
		}
	}
	return profanity, languagePolicy
}

func flagsFromFindings(sessionID string, findings []analyzer.Finding) []repository.FlaggedContent {
	flags := make([]repository.FlaggedContent, 0, len(findings))
	for _, f := range findings {
		flags = append(flags, repository.FlaggedContent{
			SessionID:   sessionID,
			FlagType:    f.FlagType,
			FlaggedWord: f.FlaggedWord,
			Context:     f.Context,
			TimestampMs: f.TimestampMs,
			Speaker:     f.Speaker,
		})
	}
	return flags
}

func publishFindings(broadcaster alert.Broadcaster, sess *repository.Session, findings []analyzer.Finding) {
	for _, f := range findings {
		broadcaster.Publish(alert.Event{
			Type:             alert.EventTypeForFlag(f.FlagType),
			SessionID:        sess.ID,
			OwnerDisplayName: sess.OwnerDisplayName,
			FlaggedWord:      f.FlaggedWord,
			TimestampMs:      f.TimestampMs,
			Speaker:          f.Speaker,
			Context:          f.Context,
			FlagType:         f.FlagType,
		})
	}
}
