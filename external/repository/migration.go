package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrationStatements = []string{
	`DO $$ BEGIN CREATE TYPE session_status AS ENUM ('draft', 'complete'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`DO $$ BEGIN CREATE TYPE flag_type AS ENUM ('profanity', 'language_policy', 'off_topic', 'participation'); EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		owner_id TEXT NOT NULL,
		owner_display_name TEXT NOT NULL DEFAULT '',
		status session_status NOT NULL DEFAULT 'draft',
		language TEXT NOT NULL DEFAULT '',
		topic_prompt TEXT NOT NULL DEFAULT '',
		topic_keywords JSONB NOT NULL DEFAULT '[]',
		participation_config JSONB,
		segments JSONB NOT NULL DEFAULT '[]',
		cursor INTEGER NOT NULL DEFAULT 0,
		profanity_count INTEGER NOT NULL DEFAULT 0,
		language_violation_count INTEGER NOT NULL DEFAULT 0,
		participation_balance JSONB,
		topic_adherence_score DOUBLE PRECISION,
		duration_seconds DOUBLE PRECISION NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions (owner_id)`,
	`CREATE TABLE IF NOT EXISTS flagged_contents (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		session_id UUID NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		flag_type flag_type NOT NULL,
		flagged_word TEXT NOT NULL,
		context TEXT NOT NULL DEFAULT '',
		timestamp_ms BIGINT NOT NULL,
		speaker TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_flagged_contents_session ON flagged_contents (session_id, timestamp_ms)`,
}

func RunMigration(ctx context.Context, pool *pgxpool.Pool) error {
	for _, s := range migrationStatements {
		stmt := strings.TrimSpace(s)
		if stmt == "" {
			continue
		}
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
