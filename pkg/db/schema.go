// pkg/db/schema.go
package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schemaStatements are executed in order on startup. Every statement is
// idempotent, so repeated startups against the same database are safe.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id              BIGSERIAL PRIMARY KEY,
		username        TEXT NOT NULL UNIQUE,
		role            TEXT NOT NULL,
		membership_tier SMALLINT NOT NULL,
		referred_by     BIGINT REFERENCES accounts (id),
		archived_at     TIMESTAMPTZ,
		created_at      TIMESTAMPTZ NOT NULL,
		updated_at      TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS wallets (
		id                      BIGSERIAL PRIMARY KEY,
		account_id              BIGINT NOT NULL REFERENCES accounts (id),
		currency                TEXT NOT NULL,
		balance                 NUMERIC(30, 8) NOT NULL DEFAULT 0,
		bonus_balance           NUMERIC(30, 8) NOT NULL DEFAULT 0,
		total_deposited         NUMERIC(30, 8) NOT NULL DEFAULT 0,
		total_withdrawn         NUMERIC(30, 8) NOT NULL DEFAULT 0,
		total_profit            NUMERIC(30, 8) NOT NULL DEFAULT 0,
		total_referral_earnings NUMERIC(30, 8) NOT NULL DEFAULT 0,
		created_at              TIMESTAMPTZ NOT NULL,
		updated_at              TIMESTAMPTZ NOT NULL,
		UNIQUE (account_id, currency)
	)`,

	`CREATE TABLE IF NOT EXISTS daily_task_states (
		account_id          BIGINT PRIMARY KEY REFERENCES accounts (id),
		window_start        TIMESTAMPTZ NOT NULL,
		tasks_completed     INTEGER NOT NULL DEFAULT 0,
		total_reward_window NUMERIC(30, 8) NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS task_credits (
		id           UUID PRIMARY KEY,
		account_id   BIGINT NOT NULL REFERENCES accounts (id),
		window_start TIMESTAMPTZ NOT NULL,
		task_index   INTEGER NOT NULL,
		amount       NUMERIC(30, 8) NOT NULL,
		currency     TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		UNIQUE (account_id, window_start, task_index)
	)`,

	`CREATE TABLE IF NOT EXISTS commission_records (
		id                UUID PRIMARY KEY,
		beneficiary_id    BIGINT NOT NULL REFERENCES accounts (id),
		source_account_id BIGINT NOT NULL REFERENCES accounts (id),
		level             INTEGER NOT NULL,
		event_type        TEXT NOT NULL,
		amount            NUMERIC(30, 8) NOT NULL,
		currency          TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_commission_records_beneficiary
		ON commission_records (beneficiary_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS investments (
		id                 UUID PRIMARY KEY,
		account_id         BIGINT NOT NULL REFERENCES accounts (id),
		principal          NUMERIC(30, 8) NOT NULL,
		currency           TEXT NOT NULL,
		daily_rate         NUMERIC(30, 8) NOT NULL,
		start_date         TIMESTAMPTZ NOT NULL,
		end_date           TIMESTAMPTZ NOT NULL,
		status             TEXT NOT NULL,
		accumulated_profit NUMERIC(30, 8) NOT NULL DEFAULT 0,
		last_accrued_at    TIMESTAMPTZ NOT NULL,
		created_at         TIMESTAMPTZ NOT NULL,
		updated_at         TIMESTAMPTZ NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_investments_account
		ON investments (account_id, created_at DESC)`,

	`CREATE TABLE IF NOT EXISTS spin_records (
		account_id       BIGINT PRIMARY KEY REFERENCES accounts (id),
		last_spin_at     TIMESTAMPTZ NOT NULL,
		next_eligible_at TIMESTAMPTZ NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS withdrawal_requests (
		id          UUID PRIMARY KEY,
		account_id  BIGINT NOT NULL REFERENCES accounts (id),
		amount      NUMERIC(30, 8) NOT NULL,
		currency    TEXT NOT NULL,
		destination TEXT NOT NULL,
		status      TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL,
		decided_at  TIMESTAMPTZ
	)`,

	// At most one pending request per account, enforced by the store so
	// that concurrent requests cannot both slip through the service check.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_withdrawal_requests_one_pending
		ON withdrawal_requests (account_id) WHERE status = 'PENDING'`,

	`CREATE INDEX IF NOT EXISTS idx_withdrawal_requests_account
		ON withdrawal_requests (account_id, created_at DESC)`,
}

// EnsureSchema creates all tables and indexes the engine needs if they do not
// exist yet.
func EnsureSchema(ctx context.Context, dbConn *sqlx.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := dbConn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
