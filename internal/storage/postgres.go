package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/crack-kitty/claudememkeep/internal/models"
)

const artifactColumns = `id, project, type, title, content, tags, source_session, created_at`

const sessionColumns = `session_id, source, project, summary, started_at, ended_at`

// PostgresStore is the production Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects a bounded pool to dsn and applies PostgresSchema.
func OpenPostgres(ctx context.Context, opts Options) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.ConnTimeout > 0 {
		cfg.ConnConfig.ConnectTimeout = opts.ConnTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	// Exec without arguments uses the simple protocol, which accepts the
	// multi-statement schema in one round trip.
	if _, err := pool.Exec(ctx, PostgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("init postgres schema: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// Close releases every pooled connection.
func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}

// Ping issues a trivial query on a pooled connection.
func (p *PostgresStore) Ping(ctx context.Context) error {
	var one int
	if err := p.pool.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (p *PostgresStore) SaveArtifact(ctx context.Context, a models.NewArtifact) (*models.Artifact, error) {
	tags, err := encodeTags(a.Tags)
	if err != nil {
		return nil, err
	}

	row := p.pool.QueryRow(ctx,
		`INSERT INTO artifacts (id, project, type, title, content, tags, source_session)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		 RETURNING `+artifactColumns,
		uuid.New().String(), a.Project, a.Type, a.Title, a.Content, tags, a.SourceSession,
	)
	art, err := scanPgArtifact(row)
	if err != nil {
		return nil, fmt.Errorf("insert artifact: %w", err)
	}
	return art, nil
}

func (p *PostgresStore) SearchArtifacts(ctx context.Context, query, project string, limit int) ([]models.Artifact, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+artifactColumns+`
		 FROM artifacts
		 WHERE search_vector @@ websearch_to_tsquery('english', $1)
		   AND project = $2
		 ORDER BY ts_rank(search_vector, websearch_to_tsquery('english', $1)) DESC
		 LIMIT $3`,
		query, project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search artifacts: %w", err)
	}
	return collectPgArtifacts(rows)
}

func (p *PostgresStore) GetSummary(ctx context.Context, project string) (*models.Summary, error) {
	return buildSummary(ctx, p, project)
}

func (p *PostgresStore) GetRecent(ctx context.Context, project string, hours int) (*models.Activity, error) {
	return buildActivity(ctx, p, project, hours)
}

func (p *PostgresStore) UpsertSession(ctx context.Context, s models.NewSession) (*models.Session, error) {
	row := p.pool.QueryRow(ctx,
		`INSERT INTO sessions (session_id, source, project, summary)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (session_id) DO UPDATE
		   SET summary = EXCLUDED.summary,
		       ended_at = NOW()
		 RETURNING `+sessionColumns,
		s.SessionID, s.Source, s.Project, s.Summary,
	)
	sess, err := scanPgSession(row)
	if err != nil {
		return nil, fmt.Errorf("upsert session: %w", err)
	}
	return sess, nil
}

func (p *PostgresStore) recentDecisions(ctx context.Context, project string, limit int) ([]models.Artifact, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+artifactColumns+`
		 FROM artifacts
		 WHERE project = $1 AND type = $2
		 ORDER BY created_at DESC
		 LIMIT $3`,
		project, models.TypeDecision, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent decisions: %w", err)
	}
	return collectPgArtifacts(rows)
}

func (p *PostgresStore) recentSessions(ctx context.Context, project string, limit int) ([]models.Session, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE project = $1
		 ORDER BY started_at DESC
		 LIMIT $2`,
		project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	return collectPgSessions(rows)
}

func (p *PostgresStore) countByType(ctx context.Context, project string) (map[string]int, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT type, COUNT(*) FROM artifacts WHERE project = $1 GROUP BY type`,
		project,
	)
	if err != nil {
		return nil, fmt.Errorf("count artifacts: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}
	for rows.Next() {
		var t string
		var n int64
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scan artifact count: %w", err)
		}
		counts[t] = int(n)
	}
	return counts, rows.Err()
}

func (p *PostgresStore) artifactsSince(ctx context.Context, project string, hours int) ([]models.Artifact, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+artifactColumns+`
		 FROM artifacts
		 WHERE project = $1 AND created_at > NOW() - make_interval(hours => $2)
		 ORDER BY created_at DESC`,
		project, hours,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent artifacts: %w", err)
	}
	return collectPgArtifacts(rows)
}

func (p *PostgresStore) sessionsSince(ctx context.Context, project string, hours int) ([]models.Session, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM sessions
		 WHERE project = $1 AND started_at > NOW() - make_interval(hours => $2)
		 ORDER BY started_at DESC`,
		project, hours,
	)
	if err != nil {
		return nil, fmt.Errorf("query recent sessions: %w", err)
	}
	return collectPgSessions(rows)
}

func scanPgArtifact(row pgx.Row) (*models.Artifact, error) {
	var a models.Artifact
	var tags []byte
	if err := row.Scan(&a.ID, &a.Project, &a.Type, &a.Title, &a.Content, &tags, &a.SourceSession, &a.CreatedAt); err != nil {
		return nil, err
	}
	var err error
	if a.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func collectPgArtifacts(rows pgx.Rows) ([]models.Artifact, error) {
	defer rows.Close()

	artifacts := []models.Artifact{}
	for rows.Next() {
		a, err := scanPgArtifact(rows)
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

func scanPgSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	if err := row.Scan(&s.SessionID, &s.Source, &s.Project, &s.Summary, &s.StartedAt, &s.EndedAt); err != nil {
		return nil, err
	}
	s.StartedAt = s.StartedAt.UTC()
	if s.EndedAt != nil {
		t := s.EndedAt.UTC()
		s.EndedAt = &t
	}
	return &s, nil
}

func collectPgSessions(rows pgx.Rows) ([]models.Session, error) {
	defer rows.Close()

	sessions := []models.Session{}
	for rows.Next() {
		s, err := scanPgSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// encodeTags renders tags as a JSON array, never null.
func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func decodeTags(raw []byte) ([]string, error) {
	tags := []string{}
	if len(raw) == 0 {
		return tags, nil
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}
