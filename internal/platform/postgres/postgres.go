// Package postgres opens the shared database handle and applies the schema.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// Schema creates the tables the postgres stores expect. Idempotent so it can
// run on every startup; a real migration tool can replace this later without
// changing the stores.
const Schema = `
CREATE TABLE IF NOT EXISTS cards (
	id               UUID PRIMARY KEY,
	user_id          UUID NOT NULL,
	card_number      TEXT NOT NULL UNIQUE,
	last_four_digits TEXT NOT NULL,
	cvv              TEXT NOT NULL,
	name             TEXT,
	merchant_lock    TEXT NOT NULL DEFAULT '',
	spending_limit   NUMERIC(20,2) NOT NULL,
	current_spent    NUMERIC(20,2) NOT NULL DEFAULT 0,
	is_active        BOOLEAN NOT NULL DEFAULT TRUE,
	expiry_date      TIMESTAMPTZ NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cards_user_id ON cards (user_id);

CREATE TABLE IF NOT EXISTS transactions (
	id             UUID PRIMARY KEY,
	card_id        UUID NOT NULL REFERENCES cards (id) ON DELETE CASCADE,
	amount         NUMERIC(20,2) NOT NULL,
	merchant_name  TEXT NOT NULL,
	status         TEXT NOT NULL,
	decline_reason TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transactions_card_id ON transactions (card_id);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions (created_at DESC);
`

// Open connects to postgres, verifies the connection, and applies the schema.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}
