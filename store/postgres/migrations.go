package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the rosca store.
var Migrations = migrate.NewGroup("rosca")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_rosca_pools",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rosca_pools (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL DEFAULT '',
    operator         TEXT NOT NULL,
    currency         TEXT NOT NULL,
    min_contribution BIGINT NOT NULL DEFAULT 0,
    quota            BIGINT NOT NULL DEFAULT 0,
    total            BIGINT NOT NULL DEFAULT 0,
    contributors     BIGINT NOT NULL DEFAULT 0,
    completed        BIGINT NOT NULL DEFAULT 0,
    cycle            BIGINT NOT NULL DEFAULT 1,
    participants     JSONB NOT NULL DEFAULT '{}',
    queue            JSONB NOT NULL DEFAULT '[]',
    pending          JSONB,
    history          JSONB NOT NULL DEFAULT '[]',
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rosca_pools_operator ON rosca_pools (operator);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rosca_pools`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_rosca_journal",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS rosca_journal (
    id         TEXT PRIMARY KEY,
    pool_id    TEXT NOT NULL,
    kind       TEXT NOT NULL,
    cycle      BIGINT NOT NULL DEFAULT 0,
    actor      TEXT NOT NULL DEFAULT '',
    subject    TEXT NOT NULL DEFAULT '',
    amount     BIGINT NOT NULL DEFAULT 0,
    total      BIGINT NOT NULL DEFAULT 0,
    currency   TEXT NOT NULL DEFAULT '',
    metadata   JSONB NOT NULL DEFAULT '{}',
    timestamp  TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_rosca_journal_pool_ts ON rosca_journal (pool_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_rosca_journal_kind ON rosca_journal (pool_id, kind);
CREATE INDEX IF NOT EXISTS idx_rosca_journal_ts ON rosca_journal (timestamp);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS rosca_journal`)
				return err
			},
		},
	)
}
