package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/talkcircle/sentinel/internal/alert"
	"github.com/talkcircle/sentinel/internal/provider"
	"github.com/talkcircle/sentinel/internal/repository"
)

func newTestFinalizer(repo *mockRepository, transcripts *mockProvider) (*Finalizer, *recordingBroadcaster, *recordingWebhookSender, *recordingCache) {
	cfg := testConfig()
	cfg.ProviderFetchTimeout = time.Second
	broadcaster := &recordingBroadcaster{}
	sessionCache := newRecordingCache()
	summaries := &recordingWebhookSender{}
	return NewFinalizer(cfg, repo, transcripts, broadcaster, sessionCache, summaries), broadcaster, summaries, sessionCache
}

func seedDraftSession(t *testing.T, repo *mockRepository, segments []repository.Segment) *repository.Session {
	t.Helper()
	sess, err := repo.CreateSession(context.Background(), repository.CreateSessionInput{
		OwnerID:          "owner-1",
		OwnerDisplayName: "Owner Name",
		Language:         "english",
	})
	if err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	if len(segments) > 0 {
		if _, err := repo.AppendSegments(context.Background(), sess.ID, 0, segments); err != nil {
			t.Fatalf("failed to seed segments: %v", err)
		}
	}
	out, err := repo.GetSession(context.Background(), sess.ID)
	if err != nil {
		t.Fatalf("failed to reload session: %v", err)
	}
	return out
}

func TestFinalizeSession_MarksCompleteWithScores(t *testing.T) {
	repo := newMockRepository()
	f, _, summaries, _ := newTestFinalizer(repo, &mockProvider{})
	sess := seedDraftSession(t, repo, []repository.Segment{
		{Speaker: "S1", Text: "I think this evidence matters", StartTime: 0, EndTime: 10},
		{Speaker: "S2", Text: "I agree with that point", StartTime: 10, EndTime: 20},
	})

	final, err := f.FinalizeSession(context.Background(), "owner-1", sess.ID, 20, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.Status != repository.SessionStatusComplete {
		t.Fatalf("unexpected status: %s", final.Status)
	}
	if final.DurationSeconds != 20 {
		t.Fatalf("unexpected duration: %v", final.DurationSeconds)
	}
	if final.TopicAdherenceScore == nil || *final.TopicAdherenceScore != 1.0 {
		t.Fatalf("unexpected topic score: %v", final.TopicAdherenceScore)
	}
	if final.ParticipationBalance == nil || !final.ParticipationBalance.IsBalanced {
		t.Fatalf("unexpected balance: %+v", final.ParticipationBalance)
	}
	if len(summaries.payloads) != 1 || summaries.payloads[0].SessionID != sess.ID {
		t.Fatalf("expected one summary webhook, got %+v", summaries.payloads)
	}
}

func TestFinalizeSession_IsIdempotent(t *testing.T) {
	repo := newMockRepository()
	transcripts := &mockProvider{tokens: []provider.Token{
		{Speaker: "S1", Text: "did you see that movie", StartTime: 0, EndTime: 5},
	}}
	f, _, summaries, _ := newTestFinalizer(repo, transcripts)
	sess := seedDraftSession(t, repo, []repository.Segment{
		{Speaker: "S1", Text: "did you see that movie", StartTime: 0, EndTime: 5},
	})

	first, err := f.FinalizeSession(context.Background(), "owner-1", sess.ID, 5, "ref-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flagsAfterFirst := len(repo.sessionFlags(sess.ID))

	second, err := f.FinalizeSession(context.Background(), "owner-1", sess.ID, 5, "ref-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Status != repository.SessionStatusComplete {
		t.Fatalf("unexpected status: %s", second.Status)
	}
	if *first.TopicAdherenceScore != *second.TopicAdherenceScore || first.DurationSeconds != second.DurationSeconds {
		t.Fatalf("repeat finalize changed state: %+v vs %+v", first, second)
	}
	if got := len(repo.sessionFlags(sess.ID)); got != flagsAfterFirst {
		t.Fatalf("repeat finalize duplicated flags: %d vs %d", got, flagsAfterFirst)
	}
	if transcripts.calls != 1 {
		t.Fatalf("repeat finalize re-ran the external fetch: %d calls", transcripts.calls)
	}
	if len(summaries.payloads) != 1 {
		t.Fatalf("repeat finalize re-sent the summary webhook: %d", len(summaries.payloads))
	}
}

func TestFinalizeSession_ProviderFailureDegradesGracefully(t *testing.T) {
	repo := newMockRepository()
	transcripts := &mockProvider{err: provider.ErrProviderUnavailable}
	f, _, _, _ := newTestFinalizer(repo, transcripts)
	liveSegments := []repository.Segment{
		{Speaker: "S1", Text: "damn this topic", StartTime: 0, EndTime: 5},
	}
	sess := seedDraftSession(t, repo, liveSegments)
	// Live ingestion already produced a profanity flag.
	if err := repo.InsertFlags(context.Background(), []repository.FlaggedContent{{
		SessionID: sess.ID, FlagType: repository.FlagTypeProfanity, FlaggedWord: "damn",
	}}); err != nil {
		t.Fatalf("failed to seed flag: %v", err)
	}

	final, err := f.FinalizeSession(context.Background(), "owner-1", sess.ID, 5, "ref-1")
	if err != nil {
		t.Fatalf("finalization must complete despite provider failure, got %v", err)
	}
	if final.Status != repository.SessionStatusComplete {
		t.Fatalf("unexpected status: %s", final.Status)
	}
	if len(final.Segments) != 1 || final.Segments[0].Text != "damn this topic" {
		t.Fatalf("accumulated segments must stand on fetch failure: %+v", final.Segments)
	}

	// The live profanity flag survives degradation.
	profanity := 0
	for _, flag := range repo.sessionFlags(sess.ID) {
		if flag.FlagType == repository.FlagTypeProfanity {
			profanity++
		}
	}
	if profanity != 1 {
		t.Fatalf("expected live profanity flag to survive, got %d", profanity)
	}
}

func TestFinalizeSession_AuthoritativeReplacementRegeneratesFlags(t *testing.T) {
	repo := newMockRepository()
	transcripts := &mockProvider{tokens: []provider.Token{
		{Speaker: "S1", Text: "I", StartTime: 0, EndTime: 0.4},
		{Speaker: "S1", Text: "think", StartTime: 0.4, EndTime: 0.9},
		{Speaker: "S1", Text: "shit", StartTime: 0.9, EndTime: 1.4},
		{Speaker: "S2", Text: "agree entirely", StartTime: 1.4, EndTime: 3.0},
	}}
	f, _, _, _ := newTestFinalizer(repo, transcripts)
	sess := seedDraftSession(t, repo, []repository.Segment{
		{Speaker: "S1", Text: "completely different draft text damn", StartTime: 0, EndTime: 5},
	})
	if err := repo.InsertFlags(context.Background(), []repository.FlaggedContent{{
		SessionID: sess.ID, FlagType: repository.FlagTypeProfanity, FlaggedWord: "damn",
	}}); err != nil {
		t.Fatalf("failed to seed flag: %v", err)
	}

	final, err := f.FinalizeSession(context.Background(), "owner-1", sess.ID, 3, "ref-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(final.Segments) != 2 {
		t.Fatalf("expected replaced segments, got %+v", final.Segments)
	}
	if final.Segments[0].Text != "I think shit" {
		t.Fatalf("unexpected merged segment: %+v", final.Segments[0])
	}

	// The stale flag from the superseded transcript is gone; the regenerated
	// one references the authoritative text.
	var words []string
	for _, flag := range repo.sessionFlags(sess.ID) {
		if flag.FlagType == repository.FlagTypeProfanity {
			words = append(words, flag.FlaggedWord)
		}
	}
	if len(words) != 1 || words[0] != "shit" {
		t.Fatalf("unexpected profanity flags after replacement: %v", words)
	}
	if final.ProfanityCount != 1 {
		t.Fatalf("unexpected profanity count after replacement: %d", final.ProfanityCount)
	}
}

func TestFinalizeSession_BroadcastsSummaryAlerts(t *testing.T) {
	repo := newMockRepository()
	f, broadcaster, _, _ := newTestFinalizer(repo, &mockProvider{})
	// Unbalanced (S1 dominant) and fully off-topic.
	sess := seedDraftSession(t, repo, []repository.Segment{
		{Speaker: "S1", Text: "the party this weekend", StartTime: 0, EndTime: 70},
		{Speaker: "S2", Text: "yeah the movie too", StartTime: 70, EndTime: 90},
		{Speaker: "S1", Text: "and that game", StartTime: 90, EndTime: 150},
	})

	if _, err := f.FinalizeSession(context.Background(), "owner-1", sess.ID, 150, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := broadcaster.published()
	var participation, topic int
	for _, e := range events {
		switch e.Type {
		case alert.EventTypeParticipation:
			participation++
		case alert.EventTypeTopicAdherence:
			topic++
		}
	}
	if participation != 1 {
		t.Fatalf("expected one participation alert, got %d (events: %+v)", participation, events)
	}
	if topic != 1 {
		t.Fatalf("expected one topic adherence alert, got %d (events: %+v)", topic, events)
	}
}

func TestFinalizeSession_NoAlertsWhenHealthy(t *testing.T) {
	repo := newMockRepository()
	f, broadcaster, _, _ := newTestFinalizer(repo, &mockProvider{})
	sess := seedDraftSession(t, repo, []repository.Segment{
		{Speaker: "S1", Text: "I think we should discuss the evidence", StartTime: 0, EndTime: 10},
		{Speaker: "S2", Text: "good point, I agree", StartTime: 10, EndTime: 20},
	})

	if _, err := f.FinalizeSession(context.Background(), "owner-1", sess.ID, 20, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if events := broadcaster.published(); len(events) != 0 {
		t.Fatalf("expected no alerts for a healthy session, got %+v", events)
	}
}

func TestFinalizeSession_DeniesNonOwner(t *testing.T) {
	repo := newMockRepository()
	f, _, _, _ := newTestFinalizer(repo, &mockProvider{})
	sess := seedDraftSession(t, repo, nil)

	if _, err := f.FinalizeSession(context.Background(), "intruder", sess.ID, 5, ""); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
}

func TestFinalizeSession_UnknownSession(t *testing.T) {
	repo := newMockRepository()
	f, _, _, _ := newTestFinalizer(repo, &mockProvider{})

	if _, err := f.FinalizeSession(context.Background(), "owner-1", "missing", 5, ""); !errors.Is(err, repository.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionLifecycle_EndToEnd(t *testing.T) {
	repo := newMockRepository()
	cfg := testConfig()
	cfg.ProviderFetchTimeout = time.Second
	broadcaster := &recordingBroadcaster{}
	sessionCache := newRecordingCache()
	coordinator := NewCoordinator(cfg, repo, broadcaster, sessionCache)
	f := NewFinalizer(cfg, repo, &mockProvider{}, broadcaster, sessionCache, &recordingWebhookSender{})

	sess, err := coordinator.CreateSession(context.Background(), "owner-1", "Owner Name", CreateSessionInput{})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := coordinator.AppendSegments(context.Background(), "owner-1", sess.ID, 0,
		[]repository.Segment{{Speaker: "S1", Text: "this is fine", StartTime: 0, EndTime: 2}}); err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	updated, err := coordinator.AppendSegments(context.Background(), "owner-1", sess.ID, 1,
		[]repository.Segment{{Speaker: "S1", Text: "damn it", StartTime: 2, EndTime: 5}})
	if err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	if updated.Cursor != 2 {
		t.Fatalf("cursor = %d, want 2", updated.Cursor)
	}

	var profanity []repository.FlaggedContent
	for _, flag := range repo.sessionFlags(sess.ID) {
		if flag.FlagType == repository.FlagTypeProfanity {
			profanity = append(profanity, flag)
		}
	}
	if len(profanity) != 1 || profanity[0].FlaggedWord != "damn" {
		t.Fatalf("unexpected profanity flags: %+v", profanity)
	}

	final, err := f.FinalizeSession(context.Background(), "owner-1", sess.ID, 5, "")
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}
	if final.Status != repository.SessionStatusComplete || final.DurationSeconds != 5 {
		t.Fatalf("unexpected final state: %+v", final)
	}
	if final.TopicAdherenceScore == nil {
		t.Fatal("expected a topic adherence score after finalization")
	}
	if final.ProfanityCount != 1 {
		t.Fatalf("profanity count = %d, want 1", final.ProfanityCount)
	}
}

func TestFinalizeSession_InvalidatesCache(t *testing.T) {
	repo := newMockRepository()
	f, _, _, sessionCache := newTestFinalizer(repo, &mockProvider{})
	sess := seedDraftSession(t, repo, nil)
	sessionCache.Set(context.Background(), sess.ID, []byte(`{"stale":true}`))

	if _, err := f.FinalizeSession(context.Background(), "owner-1", sess.ID, 5, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := sessionCache.Get(context.Background(), sess.ID); ok {
		t.Fatal("expected cache invalidation after finalize")
	}
}
