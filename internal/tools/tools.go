package tools

import (
	"context"
	"unicode/utf8"

	"github.com/crack-kitty/claudememkeep/internal/models"
	"github.com/crack-kitty/claudememkeep/internal/storage"
)

// Argument bounds and defaults.
const (
	DefaultSearchLimit = 5
	MinSearchLimit     = 1
	MaxSearchLimit     = 50

	DefaultRecentHours = 48
	MinRecentHours     = 1
	MaxRecentHours     = 720

	decisionTitleMax = 200
)

// StoreSource hands out the shared Store. *storage.Provider implements it.
type StoreSource interface {
	Store(ctx context.Context) (storage.Store, error)
}

// MemoryTools implements the shared memory operations exposed as MCP tools.
// Every method validates its input before touching the store and returns a
// *models.ValidationError for contract violations.
type MemoryTools struct {
	Stores StoreSource
}

// New creates MemoryTools over src.
func New(src StoreSource) *MemoryTools {
	return &MemoryTools{Stores: src}
}

// --- Input types ---

// Required arguments are optional in the generated schemas so a missing one
// reaches the checks below and comes back as a {"error": ...} tool result
// rather than a protocol error.

type SaveContextInput struct {
	Project       string   `json:"project,omitempty" jsonschema:"Required. Project identifier (e.g. the repository name, or 'default')"`
	Content       string   `json:"content,omitempty" jsonschema:"Required. The context content to save"`
	Type          string   `json:"type,omitempty" jsonschema:"Required. One of: decision, context, note, code_change"`
	Title         *string  `json:"title,omitempty" jsonschema:"Optional short title for the artifact"`
	Tags          []string `json:"tags,omitempty" jsonschema:"Optional list of tags for categorization"`
	SourceSession *string  `json:"source_session,omitempty" jsonschema:"Optional id of the session that produced this artifact"`
}

type SearchContextInput struct {
	Query   string `json:"query,omitempty" jsonschema:"Required. Search query (supports natural language, quoted phrases, 'or' and -exclusion)"`
	Project string `json:"project,omitempty" jsonschema:"Project to search in (default: 'default')"`
	Limit   *int   `json:"limit,omitempty" jsonschema:"Maximum number of results, 1-50 (default 5)"`
}

type GetProjectSummaryInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project identifier (default: 'default')"`
}

type LogDecisionInput struct {
	Project   string `json:"project,omitempty" jsonschema:"Required. Project identifier"`
	Decision  string `json:"decision,omitempty" jsonschema:"Required. The decision that was made"`
	Reasoning string `json:"reasoning,omitempty" jsonschema:"Why this decision was made"`
}

type GetRecentActivityInput struct {
	Project string `json:"project,omitempty" jsonschema:"Project identifier (default: 'default')"`
	Hours   *int   `json:"hours,omitempty" jsonschema:"How many hours back to look, 1-720 (default 48)"`
}

type LogSessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Required. Unique session identifier"`
	Source    string `json:"source,omitempty" jsonschema:"Required. Either 'claude_ai' or 'claude_code'"`
	Project   string `json:"project,omitempty" jsonschema:"Project identifier (default: 'default')"`
	Summary   string `json:"summary,omitempty" jsonschema:"Session summary (usually set at session end)"`
}

// --- Output types ---

type SavedOutput struct {
	Saved *models.Artifact `json:"saved"`
}

type SearchOutput struct {
	Results []models.Artifact `json:"results"`
	Count   int               `json:"count"`
}

type LoggedOutput struct {
	Logged *models.Artifact `json:"logged"`
}

type SessionOutput struct {
	Session *models.Session `json:"session"`
}

// --- Operations ---

// SaveContext stores a new artifact. Identical calls create duplicate rows.
func (t *MemoryTools) SaveContext(ctx context.Context, in SaveContextInput) (*SavedOutput, error) {
	if !models.ValidArtifactType(in.Type) {
		return nil, models.Invalid("type", "must be one of: decision, context, note, code_change")
	}
	if in.Project == "" {
		return nil, models.Invalid("project", "is required")
	}
	if in.Content == "" {
		return nil, models.Invalid("content", "is required")
	}

	s, err := t.Stores.Store(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.SaveArtifact(ctx, models.NewArtifact{
		Project:       in.Project,
		Type:          in.Type,
		Title:         in.Title,
		Content:       in.Content,
		Tags:          in.Tags,
		SourceSession: in.SourceSession,
	})
	if err != nil {
		return nil, err
	}
	return &SavedOutput{Saved: a}, nil
}

// SearchContext runs a ranked full-text search inside one project.
func (t *MemoryTools) SearchContext(ctx context.Context, in SearchContextInput) (*SearchOutput, error) {
	if in.Query == "" {
		return nil, models.Invalid("query", "is required")
	}
	limit := DefaultSearchLimit
	if in.Limit != nil {
		limit = *in.Limit
	}
	if limit < MinSearchLimit || limit > MaxSearchLimit {
		return nil, models.Invalid("limit", "must be between %d and %d, got %d", MinSearchLimit, MaxSearchLimit, limit)
	}

	s, err := t.Stores.Store(ctx)
	if err != nil {
		return nil, err
	}
	results, err := s.SearchArtifacts(ctx, in.Query, projectOrDefault(in.Project), limit)
	if err != nil {
		return nil, err
	}
	return &SearchOutput{Results: results, Count: len(results)}, nil
}

// GetProjectSummary returns recent decisions, recent sessions and counts.
func (t *MemoryTools) GetProjectSummary(ctx context.Context, in GetProjectSummaryInput) (*models.Summary, error) {
	s, err := t.Stores.Store(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetSummary(ctx, projectOrDefault(in.Project))
}

// LogDecision saves a decision artifact titled with the decision itself.
func (t *MemoryTools) LogDecision(ctx context.Context, in LogDecisionInput) (*LoggedOutput, error) {
	if in.Project == "" {
		return nil, models.Invalid("project", "is required")
	}
	if in.Decision == "" {
		return nil, models.Invalid("decision", "is required")
	}

	content := in.Decision
	if in.Reasoning != "" {
		content = in.Decision + "\n\nReasoning: " + in.Reasoning
	}
	title := truncateRunes(in.Decision, decisionTitleMax)

	s, err := t.Stores.Store(ctx)
	if err != nil {
		return nil, err
	}
	a, err := s.SaveArtifact(ctx, models.NewArtifact{
		Project: in.Project,
		Type:    models.TypeDecision,
		Title:   &title,
		Content: content,
	})
	if err != nil {
		return nil, err
	}
	return &LoggedOutput{Logged: a}, nil
}

// GetRecentActivity returns artifacts and sessions from the trailing window.
func (t *MemoryTools) GetRecentActivity(ctx context.Context, in GetRecentActivityInput) (*models.Activity, error) {
	hours := DefaultRecentHours
	if in.Hours != nil {
		hours = *in.Hours
	}
	if hours < MinRecentHours || hours > MaxRecentHours {
		return nil, models.Invalid("hours", "must be between %d and %d, got %d", MinRecentHours, MaxRecentHours, hours)
	}

	s, err := t.Stores.Store(ctx)
	if err != nil {
		return nil, err
	}
	return s.GetRecent(ctx, projectOrDefault(in.Project), hours)
}

// LogSession registers a session, or on repeat calls overwrites its summary
// and stamps ended_at.
func (t *MemoryTools) LogSession(ctx context.Context, in LogSessionInput) (*SessionOutput, error) {
	if !models.ValidSessionSource(in.Source) {
		return nil, models.Invalid("source", "must be 'claude_ai' or 'claude_code'")
	}
	if in.SessionID == "" {
		return nil, models.Invalid("session_id", "is required")
	}

	s, err := t.Stores.Store(ctx)
	if err != nil {
		return nil, err
	}
	sess, err := s.UpsertSession(ctx, models.NewSession{
		SessionID: in.SessionID,
		Source:    in.Source,
		Project:   projectOrDefault(in.Project),
		Summary:   in.Summary,
	})
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Session: sess}, nil
}

func projectOrDefault(p string) string {
	if p == "" {
		return models.DefaultProject
	}
	return p
}

// truncateRunes returns at most n characters of s.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
