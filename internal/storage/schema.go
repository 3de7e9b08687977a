package storage

// PostgresSchema creates the artifacts and sessions tables. The search vector
// is a stored generated column so it is recomputed whenever title or content
// change. Every statement is safe to re-run.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
    id              TEXT PRIMARY KEY,
    project         TEXT NOT NULL,
    type            TEXT NOT NULL,
    title           TEXT NULL,
    content         TEXT NOT NULL,
    tags            JSONB NOT NULL DEFAULT '[]'::jsonb,
    source_session  TEXT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    search_vector   TSVECTOR GENERATED ALWAYS AS (
        setweight(to_tsvector('english', coalesce(title, '')), 'A') ||
        setweight(to_tsvector('english', coalesce(content, '')), 'B')
    ) STORED
);

CREATE TABLE IF NOT EXISTS sessions (
    session_id  TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    project     TEXT NOT NULL DEFAULT 'default',
    summary     TEXT NOT NULL DEFAULT '',
    started_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    ended_at    TIMESTAMPTZ NULL
);

CREATE INDEX IF NOT EXISTS idx_artifacts_search ON artifacts USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_artifacts_project_created ON artifacts (project, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_artifacts_project_type ON artifacts (project, type);
CREATE INDEX IF NOT EXISTS idx_sessions_project_started ON sessions (project, started_at DESC);
`

// sqliteTimeFormat is the layout of every timestamp column in the sqlite
// backend. It sorts lexically in time order.
const sqliteTimeFormat = "2006-01-02T15:04:05.000Z"

// SQLiteSchema mirrors PostgresSchema on sqlite. artifacts_fts is an external
// content FTS5 table kept in sync by the triggers in SQLiteTriggers.
const SQLiteSchema = `
CREATE TABLE IF NOT EXISTS artifacts (
    id              TEXT PRIMARY KEY,
    project         TEXT NOT NULL,
    type            TEXT NOT NULL,
    title           TEXT NULL,
    content         TEXT NOT NULL,
    tags            TEXT NOT NULL DEFAULT '[]',
    source_session  TEXT NULL,
    created_at      TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
);

CREATE TABLE IF NOT EXISTS sessions (
    session_id  TEXT PRIMARY KEY,
    source      TEXT NOT NULL,
    project     TEXT NOT NULL DEFAULT 'default',
    summary     TEXT NOT NULL DEFAULT '',
    started_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ', 'now')),
    ended_at    TEXT NULL
);

CREATE VIRTUAL TABLE IF NOT EXISTS artifacts_fts USING fts5(
    title,
    content,
    content='artifacts',
    content_rowid='rowid',
    tokenize='porter unicode61'
);

CREATE INDEX IF NOT EXISTS idx_artifacts_project_created ON artifacts(project, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_artifacts_project_type ON artifacts(project, type);
CREATE INDEX IF NOT EXISTS idx_sessions_project_started ON sessions(project, started_at DESC);
`

// SQLiteTriggers keeps artifacts_fts in step with artifacts.
const SQLiteTriggers = `
CREATE TRIGGER IF NOT EXISTS artifacts_ai AFTER INSERT ON artifacts BEGIN
    INSERT INTO artifacts_fts(rowid, title, content) VALUES (new.rowid, coalesce(new.title, ''), new.content);
END;
CREATE TRIGGER IF NOT EXISTS artifacts_ad AFTER DELETE ON artifacts BEGIN
    INSERT INTO artifacts_fts(artifacts_fts, rowid, title, content) VALUES ('delete', old.rowid, coalesce(old.title, ''), old.content);
END;
CREATE TRIGGER IF NOT EXISTS artifacts_au AFTER UPDATE OF title, content ON artifacts BEGIN
    INSERT INTO artifacts_fts(artifacts_fts, rowid, title, content) VALUES ('delete', old.rowid, coalesce(old.title, ''), old.content);
    INSERT INTO artifacts_fts(rowid, title, content) VALUES (new.rowid, coalesce(new.title, ''), new.content);
END;
`
