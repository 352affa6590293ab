package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/talkcircle/sentinel/internal/repository"
)

type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) repository.Repository {
	return &PostgresRepository{pool: pool}
}

const sessionColumns = `id, owner_id, owner_display_name, status, language, topic_prompt,
	topic_keywords, participation_config, segments, cursor,
	profanity_count, language_violation_count, participation_balance,
	topic_adherence_score, duration_seconds, created_at, updated_at`

func scanSession(row pgx.Row) (*repository.Session, error) {
	var s repository.Session
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.OwnerDisplayName, &s.Status, &s.Language, &s.TopicPrompt,
		&s.TopicKeywords, &s.ParticipationConfig, &s.Segments, &s.Cursor,
		&s.ProfanityCount, &s.LanguageViolationCount, &s.ParticipationBalance,
		&s.TopicAdherenceScore, &s.DurationSeconds, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, input repository.CreateSessionInput) (*repository.Session, error) {
	keywords := input.TopicKeywords
	if keywords == nil {
		keywords = []string{}
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO sessions (owner_id, owner_display_name, language, topic_prompt, topic_keywords, participation_config)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+sessionColumns,
		input.OwnerID, input.OwnerDisplayName, input.Language, input.TopicPrompt, keywords, input.ParticipationConfig)
	return scanSession(row)
}

func (r *PostgresRepository) GetSession(ctx context.Context, sessionID string) (*repository.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE id = $1`, sessionID)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}

func (r *PostgresRepository) AppendSegments(ctx context.Context, sessionID string, fromIndex int, segments []repository.Segment) (*repository.Session, error) {
	payload, err := json.Marshal(segments)
	if err != nil {
		return nil, fmt.Errorf("failed to encode segments: %w", err)
	}

	// The cursor column is the optimistic-lock key: the UPDATE applies only
	// when the stored cursor still equals fromIndex and the session is draft.
	row := r.pool.QueryRow(ctx,
		`UPDATE sessions
		 SET segments = segments || $3::jsonb,
		     cursor = cursor + $4,
		     updated_at = NOW()
		 WHERE id = $1 AND cursor = $2 AND status = 'draft'
		 RETURNING `+sessionColumns,
		sessionID, fromIndex, payload, len(segments))
	s, err := scanSession(row)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var actualCursor int
	var status repository.SessionStatus
	lookupErr := r.pool.QueryRow(ctx,
		`SELECT cursor, status FROM sessions WHERE id = $1`, sessionID).
		Scan(&actualCursor, &status)
	if lookupErr != nil {
		if errors.Is(lookupErr, pgx.ErrNoRows) {
			return nil, repository.ErrSessionNotFound
		}
		return nil, lookupErr
	}
	if status == repository.SessionStatusComplete {
		return nil, repository.ErrSessionCompleted
	}
	return nil, &repository.CursorConflictError{Expected: fromIndex, Actual: actualCursor}
}

func (r *PostgresRepository) ReplaceSegments(ctx context.Context, sessionID string, segments []repository.Segment) error {
	payload, err := json.Marshal(segments)
	if err != nil {
		return fmt.Errorf("failed to encode segments: %w", err)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions SET segments = $2::jsonb, cursor = $3, updated_at = NOW() WHERE id = $1`,
		sessionID, payload, len(segments))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrSessionNotFound
	}
	return nil
}

func (r *PostgresRepository) AddViolationCounts(ctx context.Context, sessionID string, profanity, languagePolicy int) error {
	if profanity == 0 && languagePolicy == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET profanity_count = profanity_count + $2,
		     language_violation_count = language_violation_count + $3,
		     updated_at = NOW()
		 WHERE id = $1`,
		sessionID, profanity, languagePolicy)
	return err
}

func (r *PostgresRepository) FinalizeSession(ctx context.Context, input repository.FinalizeSessionInput) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE sessions
		 SET status = 'complete',
		     duration_seconds = $2,
		     participation_balance = $3,
		     topic_adherence_score = $4,
		     updated_at = NOW()
		 WHERE id = $1 AND status = 'draft'`,
		input.SessionID, input.DurationSeconds, input.ParticipationBalance, input.TopicAdherenceScore)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sessions WHERE id = $1)`, input.SessionID).Scan(&exists); err != nil {
		return false, err
	}
	if !exists {
		return false, repository.ErrSessionNotFound
	}
	return false, nil
}

func (r *PostgresRepository) InsertFlags(ctx context.Context, flags []repository.FlaggedContent) error {
	if len(flags) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, f := range flags {
		batch.Queue(
			`INSERT INTO flagged_contents (session_id, flag_type, flagged_word, context, timestamp_ms, speaker)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			f.SessionID, f.FlagType, f.FlaggedWord, f.Context, f.TimestampMs, f.Speaker)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer func() {
		_ = results.Close()
	}()
	for range flags {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) ListFlagsBySessionID(ctx context.Context, sessionID string) ([]repository.FlaggedContent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, flag_type, flagged_word, context, timestamp_ms, speaker, created_at
		 FROM flagged_contents WHERE session_id = $1 ORDER BY timestamp_ms ASC, created_at ASC`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []repository.FlaggedContent
	for rows.Next() {
		var f repository.FlaggedContent
		if err := rows.Scan(&f.ID, &f.SessionID, &f.FlagType, &f.FlaggedWord, &f.Context, &f.TimestampMs, &f.Speaker, &f.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, f)
	}
	return list, rows.Err()
}

func (r *PostgresRepository) DeleteFlagsByTypes(ctx context.Context, sessionID string, types []repository.FlagType) error {
	if len(types) == 0 {
		return nil
	}
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, string(t))
	}
	_, err := r.pool.Exec(ctx,
		`DELETE FROM flagged_contents WHERE session_id = $1 AND flag_type = ANY($2)`,
		sessionID, names)
	return err
}
