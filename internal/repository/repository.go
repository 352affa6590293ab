package repository

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrSessionCompleted = errors.New("session already completed")
)

// CursorConflictError reports an append whose fromIndex did not match the
// store's cursor at CAS time. The caller re-reads from Actual and retries.
type CursorConflictError struct {
	Expected int
	Actual   int
}

func (e *CursorConflictError) Error() string {
	return fmt.Sprintf("cursor conflict: expected %d, actual %d", e.Expected, e.Actual)
}

type CreateSessionInput struct {
	OwnerID             string
	OwnerDisplayName    string
	Language            string
	TopicPrompt         string
	TopicKeywords       []string
	ParticipationConfig *ParticipationConfig
}

type FinalizeSessionInput struct {
	SessionID            string
	DurationSeconds      float64
	ParticipationBalance *ParticipationBalance
	TopicAdherenceScore  float64
}

type SessionRepository interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	// AppendSegments atomically extends the segment sequence iff the stored
	// cursor equals fromIndex. Returns *CursorConflictError otherwise.
	AppendSegments(ctx context.Context, sessionID string, fromIndex int, segments []Segment) (*Session, error)
	// ReplaceSegments swaps the whole sequence and resets the cursor to its
	// length. Used only by finalization with an authoritative transcript.
	ReplaceSegments(ctx context.Context, sessionID string, segments []Segment) error
	AddViolationCounts(ctx context.Context, sessionID string, profanity, languagePolicy int) error
	// FinalizeSession marks the session complete and persists aggregate
	// scores. Returns false without error when the session was already
	// complete, so repeated finalize calls converge on one result.
	FinalizeSession(ctx context.Context, input FinalizeSessionInput) (bool, error)
}

type FlagRepository interface {
	InsertFlags(ctx context.Context, flags []FlaggedContent) error
	ListFlagsBySessionID(ctx context.Context, sessionID string) ([]FlaggedContent, error)
	DeleteFlagsByTypes(ctx context.Context, sessionID string, types []FlagType) error
}

type Repository interface {
	SessionRepository
	FlagRepository
}
