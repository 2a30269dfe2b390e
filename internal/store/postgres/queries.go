package postgres

const querySchema = `
CREATE TABLE IF NOT EXISTS announcer_runs (
    id                UUID PRIMARY KEY,
    group_url         TEXT NOT NULL,
    started_at        TIMESTAMPTZ NOT NULL,
    finished_at       TIMESTAMPTZ NOT NULL,
    result            TEXT NOT NULL,
    fatal_reason      TEXT NOT NULL DEFAULT '',
    notified          BOOLEAN NOT NULL DEFAULT false,
    processed         INTEGER NOT NULL DEFAULT 0,
    announced         INTEGER NOT NULL DEFAULT 0,
    already_announced INTEGER NOT NULL DEFAULT 0,
    skipped           INTEGER NOT NULL DEFAULT 0,
    failed            INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS announcer_runs_group_started_idx
    ON announcer_runs (group_url, started_at DESC);

CREATE TABLE IF NOT EXISTS announcer_event_outcomes (
    run_id          UUID NOT NULL REFERENCES announcer_runs (id) ON DELETE CASCADE,
    position        INTEGER NOT NULL,
    event_url       TEXT NOT NULL,
    raw_date        TEXT NOT NULL,
    event_at        TIMESTAMPTZ,
    outcome         TEXT NOT NULL,
    reason          TEXT NOT NULL DEFAULT '',
    banner_variant  TEXT NOT NULL DEFAULT '',
    control_variant TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (run_id, position)
);
`

const queryInsertRun = `
INSERT INTO announcer_runs (
    id, group_url, started_at, finished_at, result, fatal_reason, notified,
    processed, announced, already_announced, skipped, failed
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const queryInsertOutcome = `
INSERT INTO announcer_event_outcomes (
    run_id, position, event_url, raw_date, event_at, outcome, reason, banner_variant, control_variant
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`

const queryListRuns = `
SELECT
    id, group_url, started_at, finished_at, result, fatal_reason, notified,
    processed, announced, already_announced, skipped, failed
FROM announcer_runs
WHERE group_url = $1
ORDER BY started_at DESC
LIMIT $2
`

const queryListOutcomes = `
SELECT event_url, raw_date, event_at, outcome, reason, banner_variant, control_variant
FROM announcer_event_outcomes
WHERE run_id = $1
ORDER BY position
`
