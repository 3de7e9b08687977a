package models

import (
	"fmt"
	"time"
)

// DefaultProject is used when a caller does not name a project.
const DefaultProject = "default"

// Artifact types accepted by the tool layer.
const (
	TypeDecision   = "decision"
	TypeContext    = "context"
	TypeNote       = "note"
	TypeCodeChange = "code_change"
)

// Session sources accepted by the tool layer.
const (
	SourceClaudeAI   = "claude_ai"
	SourceClaudeCode = "claude_code"
)

// ArtifactTypes lists the valid artifact types in display order.
var ArtifactTypes = []string{TypeDecision, TypeContext, TypeNote, TypeCodeChange}

// SessionSources lists the valid session sources.
var SessionSources = []string{SourceClaudeAI, SourceClaudeCode}

// Artifact is a persisted piece of shared memory: a decision, note, context
// snippet or code change.
type Artifact struct {
	ID            string    `json:"id"`
	Project       string    `json:"project"`
	Type          string    `json:"type"`
	Title         *string   `json:"title"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags"`
	SourceSession *string   `json:"source_session"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewArtifact carries the caller-supplied fields of an artifact insert.
type NewArtifact struct {
	Project       string
	Type          string
	Title         *string
	Content       string
	Tags          []string
	SourceSession *string
}

// Session records one assistant session. SessionID is the natural key.
type Session struct {
	SessionID string     `json:"session_id"`
	Source    string     `json:"source"`
	Project   string     `json:"project"`
	Summary   string     `json:"summary"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at"`
}

// Open reports whether the session has never been updated after creation.
func (s Session) Open() bool {
	return s.EndedAt == nil
}

// NewSession carries the fields of a session upsert.
type NewSession struct {
	SessionID string
	Source    string
	Project   string
	Summary   string
}

// Summary is the project overview returned by get_project_summary.
type Summary struct {
	Project         string         `json:"project"`
	RecentDecisions []Artifact     `json:"recent_decisions"`
	RecentSessions  []Session      `json:"recent_sessions"`
	ArtifactCounts  map[string]int `json:"artifact_counts"`
}

// Activity is everything recorded for a project inside a trailing window.
type Activity struct {
	Project   string     `json:"project"`
	Hours     int        `json:"hours"`
	Artifacts []Artifact `json:"artifacts"`
	Sessions  []Session  `json:"sessions"`
}

// ValidArtifactType reports whether t is one of ArtifactTypes.
func ValidArtifactType(t string) bool {
	for _, v := range ArtifactTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ValidSessionSource reports whether s is one of SessionSources.
func ValidSessionSource(s string) bool {
	for _, v := range SessionSources {
		if v == s {
			return true
		}
	}
	return false
}

// ValidationError is returned for caller input that breaks the tool contract.
// The store is never reached when one is produced.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for field.
func Invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
