package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/crack-kitty/claudememkeep/internal/models"
)

// bm25Rank orders FTS5 hits best-first. Title matches weigh more than
// content matches, in the same ratio as the default postgres weights for A
// and B.
const bm25Rank = `bm25(artifacts_fts, 2.5, 1.0)`

// SQLiteStore is a single-node Store backed by one sqlite file and FTS5.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at opts.SQLitePath and applies
// SQLiteSchema and SQLiteTriggers.
func OpenSQLite(ctx context.Context, opts Options) (*SQLiteStore, error) {
	if dir := filepath.Dir(opts.SQLitePath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+opts.SQLitePath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if opts.MaxConns > 0 {
		db.SetMaxOpenConns(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		db.SetMaxIdleConns(opts.MinConns)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, SQLiteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, SQLiteTriggers); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite triggers: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping issues a trivial query.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

func (s *SQLiteStore) SaveArtifact(ctx context.Context, a models.NewArtifact) (*models.Artifact, error) {
	tags, err := encodeTags(a.Tags)
	if err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		`INSERT INTO artifacts (id, project, type, title, content, tags, source_session)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+artifactColumns,
		uuid.New().String(), a.Project, a.Type, nullString(a.Title), a.Content, tags, nullString(a.SourceSession),
	)
	art, err := scanSQLiteArtifact(row)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	return art, nil
}

func (s *SQLiteStore) SearchArtifacts(ctx context.Context, query, project string, limit int) ([]models.Artifact, error) {
	match := websearchToFTS5(query)
	if match == "" {
		return []models.Artifact{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.project, a.type, a.title, a.content, a.tags, a.source_session, a.created_at
		 FROM artifacts_fts
		 JOIN artifacts a ON a.rowid = artifacts_fts.rowid
		 WHERE artifacts_fts MATCH ? AND a.project = ?
		 ORDER BY `+bm25Rank+`
		 LIMIT ?`,
		match, project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search artifacts fts: %w", err)
	}
	return collectSQLiteArtifacts(rows)
}

func (s *SQLiteStore) GetSummary(ctx context.Context, project string) (*models.Summary, error) {
	return buildSummary(ctx, s, project)
}

func (s *SQLiteStore) GetRecent(ctx context.Context, project string, hours int) (*models.Activity, error) {
	return buildActivity(ctx, s, project, hours)
}

func (s *SQLiteStore) UpsertSession(ctx context.Context, in models.NewSession) (*models.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO sessions (session_id, source, project, summary)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (session_id) DO UPDATE
		   SET summary = excluded.summary,
		       ended_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')
		 RETURNING `+sessionColumns,
		in.SessionID, in.Source, in.Project, in.Summary,
	)
	sess, err := scanSQLiteSession(row)
	if err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) recentDecisions(ctx context.Context, project string, limit int) ([]models.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+artifactColumns+`
		 FROM artifacts
		 WHERE project = ? AND type = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		project, models.TypeDecision, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent decisions: %w", err)
	}
	return collectSQLiteArtifacts(rows)
}

func (s *SQLiteStore) recentSessions(ctx context.Context, project string, limit int) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE project = ?
		 ORDER BY started_at DESC, rowid DESC
		 LIMIT ?`,
		project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	return collectSQLiteSessions(rows)
}

func (s *SQLiteStore) countByType(ctx context.Context, project string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT type, COUNT(*) FROM artifacts WHERE project = ? GROUP BY type`,
		project,
	)
	if err != nil {
		return nil, fmt.Errorf("count artifacts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scan artifact count: %w", err)
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) artifactsSince(ctx context.Context, project string, hours int) ([]models.Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+artifactColumns+`
		 FROM artifacts
		 WHERE project = ? AND created_at > strftime('%Y-%m-%dT%H:%M:%fZ', 'now', ?)
		 ORDER BY created_at DESC, rowid DESC`,
		project, hoursModifier(hours),
	)
	if err != nil {
		return nil, fmt.Errorf("query recent artifacts: %w", err)
	}
	return collectSQLiteArtifacts(rows)
}

func (s *SQLiteStore) sessionsSince(ctx context.Context, project string, hours int) ([]models.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE project = ? AND started_at > strftime('%Y-%m-%dT%H:%M:%fZ', 'now', ?)
		 ORDER BY started_at DESC, rowid DESC`,
		project, hoursModifier(hours),
	)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	return collectSQLiteSessions(rows)
}

// hoursModifier is the sqlite date modifier for "hours ago".
func hoursModifier(hours int) string {
	return fmt.Sprintf("-%d hours", hours)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteArtifact(row rowScanner) (*models.Artifact, error) {
	var a models.Artifact
	var title, source sql.NullString
	var tags, created string
	if err := row.Scan(&a.ID, &a.Project, &a.Type, &title, &a.Content, &tags, &source, &created); err != nil {
		return nil, err
	}
	a.Title = stringPtr(title)
	a.SourceSession = stringPtr(source)

	var err error
	if a.Tags, err = decodeTags([]byte(tags)); err != nil {
		return nil, err
	}
	if a.CreatedAt, err = parseSQLiteTime(created); err != nil {
		return nil, err
	}
	return &a, nil
}

func collectSQLiteArtifacts(rows *sql.Rows) ([]models.Artifact, error) {
	defer rows.Close()

	artifacts := []models.Artifact{}
	for rows.Next() {
		a, err := scanSQLiteArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		artifacts = append(artifacts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artifacts: %w", err)
	}
	return artifacts, nil
}

func scanSQLiteSession(row rowScanner) (*models.Session, error) {
	var sess models.Session
	var started string
	var ended sql.NullString
	if err := row.Scan(&sess.SessionID, &sess.Source, &sess.Project, &sess.Summary, &started, &ended); err != nil {
		return nil, err
	}

	var err error
	if sess.StartedAt, err = parseSQLiteTime(started); err != nil {
		return nil, err
	}
	if ended.Valid {
		t, err := parseSQLiteTime(ended.String)
		if err != nil {
			return nil, err
		}
		sess.EndedAt = &t
	}
	return &sess, nil
}

func collectSQLiteSessions(rows *sql.Rows) ([]models.Session, error) {
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		sess, err := scanSQLiteSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
