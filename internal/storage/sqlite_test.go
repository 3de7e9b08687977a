package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/crack-kitty/claudememkeep/internal/models"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "claudememkeep-test-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// setupSQLite opens a fresh sqlite store in a temp directory.
func setupSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), Options{
		Driver:     DriverSQLite,
		SQLitePath: filepath.Join(tempDir(t), "memory.db"),
		MinConns:   1,
		MaxConns:   4,
	})
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func save(t *testing.T, s Store, project, typ, title, content string) *models.Artifact {
	t.Helper()
	in := models.NewArtifact{Project: project, Type: typ, Content: content}
	if title != "" {
		in.Title = &title
	}
	a, err := s.SaveArtifact(context.Background(), in)
	if err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}
	return a
}

// backdate moves an artifact's created_at the given number of hours into the past.
func backdate(t *testing.T, s *SQLiteStore, id string, hours int) {
	t.Helper()
	_, err := s.db.Exec(
		`UPDATE artifacts SET created_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now', ?) WHERE id = ?`,
		hoursModifier(hours), id,
	)
	if err != nil {
		t.Fatalf("backdate artifact: %v", err)
	}
}

func TestOpenSQLiteIsIdempotent(t *testing.T) {
	path := filepath.Join(tempDir(t), "memory.db")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s, err := OpenSQLite(ctx, Options{SQLitePath: path})
		if err != nil {
			t.Fatalf("OpenSQLite #%d: %v", i+1, err)
		}
		if err := s.Ping(ctx); err != nil {
			t.Errorf("Ping #%d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestSaveArtifactRoundTrip(t *testing.T) {
	s := setupSQLite(t)
	title := "Use sqlite"
	session := "sess-1"

	a, err := s.SaveArtifact(context.Background(), models.NewArtifact{
		Project:       "p",
		Type:          models.TypeNote,
		Title:         &title,
		Content:       "Embedded database for single node installs",
		Tags:          []string{"storage", "infra"},
		SourceSession: &session,
	})
	if err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}

	if a.ID == "" {
		t.Error("ID should not be empty")
	}
	if a.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
	if a.Project != "p" || a.Type != models.TypeNote {
		t.Errorf("Project/Type = %q/%q, want p/note", a.Project, a.Type)
	}
	if a.Title == nil || *a.Title != title {
		t.Errorf("Title = %v, want %q", a.Title, title)
	}
	if a.Content != "Embedded database for single node installs" {
		t.Errorf("Content = %q", a.Content)
	}
	if strings.Join(a.Tags, ",") != "storage,infra" {
		t.Errorf("Tags = %v, want [storage infra]", a.Tags)
	}
	if a.SourceSession == nil || *a.SourceSession != session {
		t.Errorf("SourceSession = %v, want %q", a.SourceSession, session)
	}
}

func TestSaveArtifactDefaults(t *testing.T) {
	s := setupSQLite(t)
	a := save(t, s, "p", models.TypeContext, "", "no title here")

	if a.Title != nil {
		t.Errorf("Title = %q, want nil", *a.Title)
	}
	if a.SourceSession != nil {
		t.Errorf("SourceSession = %q, want nil", *a.SourceSession)
	}
	if a.Tags == nil || len(a.Tags) != 0 {
		t.Errorf("Tags = %#v, want empty non-nil slice", a.Tags)
	}
}

func TestSaveArtifactAcceptsAnyType(t *testing.T) {
	s := setupSQLite(t)
	a := save(t, s, "p", "bogus", "", "the store does not validate types")
	if a.Type != "bogus" {
		t.Errorf("Type = %q, want bogus", a.Type)
	}
}

func TestSaveArtifactNeverReusesIDs(t *testing.T) {
	s := setupSQLite(t)
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		a := save(t, s, "p", models.TypeNote, "", "same content")
		if seen[a.ID] {
			t.Fatalf("duplicate id %q", a.ID)
		}
		seen[a.ID] = true
	}
}

func TestSearchArtifacts(t *testing.T) {
	s := setupSQLite(t)
	save(t, s, "p", models.TypeNote, "", "Go is a fast compiled language")
	save(t, s, "p", models.TypeNote, "", "SQLite is an embedded database")
	save(t, s, "p", models.TypeNote, "", "Postgres is a database server")

	results, err := s.SearchArtifacts(context.Background(), "database", "p", 10)
	if err != nil {
		t.Fatalf("SearchArtifacts: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	got := []string{results[0].Content, results[1].Content}
	sort.Strings(got)
	if !strings.HasPrefix(got[0], "Postgres") || !strings.HasPrefix(got[1], "SQLite") {
		t.Errorf("unexpected results %v", got)
	}
}

func TestSearchArtifactsStemming(t *testing.T) {
	s := setupSQLite(t)
	save(t, s, "p", models.TypeNote, "", "We decided on caching responses")

	results, err := s.SearchArtifacts(context.Background(), "cache", "p", 5)
	if err != nil {
		t.Fatalf("SearchArtifacts: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected stemmed match, got %d results", len(results))
	}
}

func TestSearchArtifactsNaturalLanguage(t *testing.T) {
	s := setupSQLite(t)
	save(t, s, "p", models.TypeDecision, "Use Postgres for storage", "Chosen over sqlite for concurrent writers")

	tests := []struct {
		query string
		want  int
	}{
		{"postgres storage", 1},
		{"what is the postgres storage", 1},
		{"why did we use postgres for the storage", 1},
		{"what is this", 0},
	}
	for _, tt := range tests {
		results, err := s.SearchArtifacts(context.Background(), tt.query, "p", 10)
		if err != nil {
			t.Errorf("SearchArtifacts(%q): %v", tt.query, err)
			continue
		}
		if len(results) != tt.want {
			t.Errorf("SearchArtifacts(%q) = %d results, want %d", tt.query, len(results), tt.want)
		}
	}
}

func TestSearchArtifactsScopedByProject(t *testing.T) {
	s := setupSQLite(t)
	save(t, s, "a", models.TypeNote, "", "shared keyword payload")

	results, err := s.SearchArtifacts(context.Background(), "keyword", "b", 10)
	if err != nil {
		t.Fatalf("SearchArtifacts: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected no results from project b, got %d", len(results))
	}
}

func TestSearchArtifactsTitleOutranksContent(t *testing.T) {
	s := setupSQLite(t)
	save(t, s, "p", models.TypeNote, "", "some notes that mention migrations in passing among many other words")
	titled := save(t, s, "p", models.TypeDecision, "Migrations", "unrelated body text")

	results, err := s.SearchArtifacts(context.Background(), "migrations", "p", 5)
	if err != nil {
		t.Fatalf("SearchArtifacts: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].ID != titled.ID {
		t.Errorf("Expected title match first, got %q", results[0].Content)
	}
}

func TestSearchArtifactsLimit(t *testing.T) {
	s := setupSQLite(t)
	for i := 0; i < 5; i++ {
		save(t, s, "p", models.TypeNote, "", "repeated deployment note")
	}

	results, err := s.SearchArtifacts(context.Background(), "deployment", "p", 3)
	if err != nil {
		t.Fatalf("SearchArtifacts: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("Expected 3 results, got %d", len(results))
	}
}

func TestSearchArtifactsOperators(t *testing.T) {
	s := setupSQLite(t)
	save(t, s, "p", models.TypeNote, "", "redis cache layer")
	save(t, s, "p", models.TypeNote, "", "memcached cache layer")
	save(t, s, "p", models.TypeNote, "", "layer cake recipe")

	tests := []struct {
		query string
		want  int
	}{
		{"cache", 2},
		{"cache -redis", 1},
		{"redis or memcached", 2},
		{`"cache layer"`, 2},
		{`"layer cache"`, 0},
		{"-cache", 0},
		{"", 0},
		{`"NEAR(" OR *`, 0},
	}
	for _, tt := range tests {
		results, err := s.SearchArtifacts(context.Background(), tt.query, "p", 10)
		if err != nil {
			t.Errorf("SearchArtifacts(%q): %v", tt.query, err)
			continue
		}
		if len(results) != tt.want {
			t.Errorf("SearchArtifacts(%q) = %d results, want %d", tt.query, len(results), tt.want)
		}
	}
}

func TestGetSummary(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		save(t, s, "p", models.TypeNote, "", "note")
	}
	d1 := save(t, s, "p", models.TypeDecision, "first", "decision one")
	d2 := save(t, s, "p", models.TypeDecision, "second", "decision two")
	save(t, s, "other", models.TypeDecision, "", "elsewhere")

	if _, err := s.UpsertSession(ctx, models.NewSession{SessionID: "s1", Source: models.SourceClaudeCode, Project: "p"}); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}

	sum, err := s.GetSummary(ctx, "p")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if sum.Project != "p" {
		t.Errorf("Project = %q, want p", sum.Project)
	}
	if len(sum.ArtifactCounts) != 2 || sum.ArtifactCounts["note"] != 3 || sum.ArtifactCounts["decision"] != 2 {
		t.Errorf("ArtifactCounts = %v, want map[decision:2 note:3]", sum.ArtifactCounts)
	}
	if len(sum.RecentDecisions) != 2 {
		t.Fatalf("Expected 2 recent decisions, got %d", len(sum.RecentDecisions))
	}
	if sum.RecentDecisions[0].ID != d2.ID || sum.RecentDecisions[1].ID != d1.ID {
		t.Error("recent decisions should be newest first")
	}
	if len(sum.RecentSessions) != 1 || sum.RecentSessions[0].SessionID != "s1" {
		t.Errorf("RecentSessions = %+v", sum.RecentSessions)
	}
}

func TestGetSummaryLimits(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()
	for i := 0; i < 12; i++ {
		save(t, s, "p", models.TypeDecision, "", "decision")
	}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		if _, err := s.UpsertSession(ctx, models.NewSession{SessionID: id, Source: models.SourceClaudeAI, Project: "p"}); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := s.GetSummary(ctx, "p")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if len(sum.RecentDecisions) != 10 {
		t.Errorf("Expected 10 recent decisions, got %d", len(sum.RecentDecisions))
	}
	if len(sum.RecentSessions) != 5 {
		t.Errorf("Expected 5 recent sessions, got %d", len(sum.RecentSessions))
	}
	if sum.ArtifactCounts["decision"] != 12 {
		t.Errorf("decision count = %d, want 12", sum.ArtifactCounts["decision"])
	}
}

func TestGetSummaryEmptyProject(t *testing.T) {
	s := setupSQLite(t)

	sum, err := s.GetSummary(context.Background(), "nothing")
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if sum.RecentDecisions == nil || sum.RecentSessions == nil || sum.ArtifactCounts == nil {
		t.Error("empty summary should carry empty, non-nil collections")
	}
}

func TestGetRecentWindow(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	a1 := save(t, s, "p", models.TypeNote, "", "one hour ago")
	a47 := save(t, s, "p", models.TypeNote, "", "forty seven hours ago")
	a49 := save(t, s, "p", models.TypeNote, "", "forty nine hours ago")
	backdate(t, s, a1.ID, 1)
	backdate(t, s, a47.ID, 47)
	backdate(t, s, a49.ID, 49)
	save(t, s, "other", models.TypeNote, "", "different project")

	act, err := s.GetRecent(ctx, "p", 48)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if act.Project != "p" || act.Hours != 48 {
		t.Errorf("Project/Hours = %q/%d", act.Project, act.Hours)
	}
	if len(act.Artifacts) != 2 {
		t.Fatalf("Expected 2 artifacts, got %d", len(act.Artifacts))
	}
	if act.Artifacts[0].ID != a1.ID || act.Artifacts[1].ID != a47.ID {
		t.Errorf("Expected [1h, 47h], got [%q, %q]", act.Artifacts[0].Content, act.Artifacts[1].Content)
	}
	if act.Sessions == nil {
		t.Error("Sessions should be an empty slice, not nil")
	}
}

func TestGetRecentSessions(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	for _, id := range []string{"old", "new"} {
		if _, err := s.UpsertSession(ctx, models.NewSession{SessionID: id, Source: models.SourceClaudeCode, Project: "p"}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.db.Exec(`UPDATE sessions SET started_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now', '-3 hours') WHERE session_id = 'old'`); err != nil {
		t.Fatal(err)
	}

	act, err := s.GetRecent(ctx, "p", 2)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(act.Sessions) != 1 || act.Sessions[0].SessionID != "new" {
		t.Errorf("Sessions = %+v, want only new", act.Sessions)
	}

	act, err = s.GetRecent(ctx, "p", 4)
	if err != nil {
		t.Fatalf("GetRecent: %v", err)
	}
	if len(act.Sessions) != 2 || act.Sessions[0].SessionID != "new" {
		t.Errorf("Sessions = %+v, want [new old]", act.Sessions)
	}
}

func TestUpsertSession(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	first, err := s.UpsertSession(ctx, models.NewSession{SessionID: "s1", Source: models.SourceClaudeCode, Project: "p"})
	if err != nil {
		t.Fatalf("UpsertSession #1: %v", err)
	}
	if !first.Open() {
		t.Error("new session should be open")
	}
	if first.Summary != "" {
		t.Errorf("Summary = %q, want empty", first.Summary)
	}

	second, err := s.UpsertSession(ctx, models.NewSession{SessionID: "s1", Source: models.SourceClaudeAI, Project: "q", Summary: "done"})
	if err != nil {
		t.Fatalf("UpsertSession #2: %v", err)
	}
	if second.Summary != "done" {
		t.Errorf("Summary = %q, want done", second.Summary)
	}
	if second.EndedAt == nil {
		t.Error("EndedAt should be set after the second upsert")
	}
	if !second.StartedAt.Equal(first.StartedAt) {
		t.Errorf("StartedAt changed: %v -> %v", first.StartedAt, second.StartedAt)
	}
	if second.Source != models.SourceClaudeCode || second.Project != "p" {
		t.Errorf("Source/Project = %q/%q, want untouched claude_code/p", second.Source, second.Project)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE session_id = 's1'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("Expected exactly 1 row, got %d", n)
	}
}

func TestUpsertSessionLastWriteWins(t *testing.T) {
	s := setupSQLite(t)
	ctx := context.Background()

	for _, summary := range []string{"", "first pass", ""} {
		if _, err := s.UpsertSession(ctx, models.NewSession{SessionID: "s1", Source: models.SourceClaudeCode, Project: "p", Summary: summary}); err != nil {
			t.Fatal(err)
		}
	}

	sum, err := s.GetSummary(ctx, "p")
	if err != nil {
		t.Fatal(err)
	}
	if len(sum.RecentSessions) != 1 {
		t.Fatalf("Expected 1 session, got %d", len(sum.RecentSessions))
	}
	if got := sum.RecentSessions[0].Summary; got != "" {
		t.Errorf("Summary = %q, want overwritten with empty", got)
	}
}

func TestOperationsHonorCancelledContext(t *testing.T) {
	s := setupSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := s.SaveArtifact(ctx, models.NewArtifact{Project: "p", Type: models.TypeNote, Content: "x"}); err == nil {
		t.Error("Expected error from cancelled context")
	}
	if _, err := s.GetSummary(ctx, "p"); err == nil {
		t.Error("Expected error from cancelled context")
	}
}
