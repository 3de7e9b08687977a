package hooks

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/crack-kitty/claudememkeep/internal/models"
)

// Event is the JSON document a client hook receives on stdin.
type Event struct {
	SessionID      string `json:"session_id"`
	TranscriptPath string `json:"transcript_path"`
	Cwd            string `json:"cwd"`
	HookEventName  string `json:"hook_event_name"`
	// Source tells why a session started: startup, resume, clear or compact.
	Source string `json:"source"`
}

// ReadEvent decodes an Event from r. Empty or malformed input yields the
// zero Event.
func ReadEvent(r io.Reader) Event {
	var ev Event
	if err := json.NewDecoder(r).Decode(&ev); err != nil {
		return Event{}
	}
	return ev
}

// Project derives the project name from the working directory.
func (e Event) Project() string {
	cwd := strings.TrimRight(e.Cwd, `/\`)
	if cwd == "" {
		return models.DefaultProject
	}
	base := filepath.Base(cwd)
	if base == "." || base == string(filepath.Separator) {
		return models.DefaultProject
	}
	return base
}

// FreshStart reports whether the event opens a new session rather than
// resuming one that may already carry a summary.
func (e Event) FreshStart() bool {
	return e.Source == "" || e.Source == "startup"
}

// Output is what a hook writes to stdout. An empty Output encodes as {}.
type Output struct {
	AdditionalContext string `json:"additionalContext,omitempty"`
}
