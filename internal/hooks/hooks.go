package hooks

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/crack-kitty/claudememkeep/internal/models"
)

const recentHours = 48

// Runner implements the client hooks. Every method is best-effort: failures
// are logged and an Output is always returned.
type Runner struct {
	Caller Caller

	StartTimeout   time.Duration
	EndTimeout     time.Duration
	CompactTimeout time.Duration
}

func NewRunner(c Caller) *Runner {
	return &Runner{
		Caller:         c,
		StartTimeout:   8 * time.Second,
		EndTimeout:     10 * time.Second,
		CompactTimeout: 25 * time.Second,
	}
}

// SessionStart injects recent project activity into the new session and
// registers it.
func (r *Runner) SessionStart(ctx context.Context, ev Event) Output {
	ctx, cancel := context.WithTimeout(ctx, r.StartTimeout)
	defer cancel()

	project := ev.Project()

	var act models.Activity
	var out Output
	err := r.Caller.Call(ctx, "get_recent_activity", map[string]any{
		"project": project,
		"hours":   recentHours,
	}, &act)
	if err != nil {
		log.Warn().Err(err).Str("project", project).Msg("fetch recent activity failed")
	} else {
		out.AdditionalContext = RenderActivity(&act)
	}

	if ev.SessionID != "" && ev.FreshStart() {
		err := r.Caller.Call(ctx, "log_session", map[string]any{
			"session_id": ev.SessionID,
			"source":     models.SourceClaudeCode,
			"project":    project,
		}, nil)
		if err != nil {
			log.Warn().Err(err).Str("session_id", ev.SessionID).Msg("register session failed")
		}
	}
	return out
}

// SessionEnd stores a task/outcome summary on the session row.
func (r *Runner) SessionEnd(ctx context.Context, ev Event) Output {
	if ev.SessionID == "" {
		return Output{}
	}
	ctx, cancel := context.WithTimeout(ctx, r.EndTimeout)
	defer cancel()

	var summary string
	if ev.TranscriptPath != "" {
		msgs, err := ReadTranscript(ev.TranscriptPath)
		if err != nil {
			log.Warn().Err(err).Msg("transcript read failed")
		}
		summary = SessionSummary(msgs)
	}

	err := r.Caller.Call(ctx, "log_session", map[string]any{
		"session_id": ev.SessionID,
		"source":     models.SourceClaudeCode,
		"project":    ev.Project(),
		"summary":    summary,
	}, nil)
	if err != nil {
		log.Warn().Err(err).Str("session_id", ev.SessionID).Msg("log_session failed")
	}
	return Output{}
}

// PreCompact archives the transcript as a context artifact before the
// client compresses it.
func (r *Runner) PreCompact(ctx context.Context, ev Event) Output {
	if ev.TranscriptPath == "" {
		return Output{}
	}
	if _, err := os.Stat(ev.TranscriptPath); err != nil {
		return Output{}
	}

	msgs, err := ReadTranscript(ev.TranscriptPath)
	if err != nil {
		log.Warn().Err(err).Msg("transcript read failed")
	}
	archive := Archive(msgs)
	if archive == "" {
		return Output{}
	}

	ctx, cancel := context.WithTimeout(ctx, r.CompactTimeout)
	defer cancel()

	args := map[string]any{
		"project": ev.Project(),
		"content": archive,
		"type":    models.TypeContext,
		"title":   "Pre-compact archive: " + shortID(ev.SessionID),
		"tags":    []string{"auto-captured", "pre-compact"},
	}
	if ev.SessionID != "" {
		args["source_session"] = ev.SessionID
	}
	if err := r.Caller.Call(ctx, "save_context", args, nil); err != nil {
		log.Warn().Err(err).Msg("archive transcript failed")
	}
	return Output{}
}

func shortID(id string) string {
	if id == "" {
		return "unknown"
	}
	return truncate(id, 12)
}
