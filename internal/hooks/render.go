package hooks

import (
	"fmt"
	"strings"

	"github.com/crack-kitty/claudememkeep/internal/models"
)

const (
	contextArtifactMax = 10
	contextSessionMax  = 5
	contextContentMax  = 200
	contextTimeLayout  = "2006-01-02T15:04:05"
)

// RenderActivity formats recent activity as markdown for injection at
// session start. It returns "" when there is nothing to show.
func RenderActivity(act *models.Activity) string {
	if act == nil {
		return ""
	}
	var parts []string

	if len(act.Artifacts) > 0 {
		parts = append(parts, "## Recent Shared Context")
		for i, a := range act.Artifacts {
			if i == contextArtifactMax {
				break
			}
			title := a.Type
			if a.Title != nil && *a.Title != "" {
				title = *a.Title
			}
			parts = append(parts, fmt.Sprintf("- **[%s]** %s (%s)", a.Type, title, a.CreatedAt.UTC().Format(contextTimeLayout)))
			if content := truncate(a.Content, contextContentMax); content != "" {
				parts = append(parts, "  "+content)
			}
		}
	}

	if len(act.Sessions) > 0 {
		parts = append(parts, "\n## Recent Sessions")
		for i, s := range act.Sessions {
			if i == contextSessionMax {
				break
			}
			summary := s.Summary
			if summary == "" {
				summary = "No summary"
			}
			parts = append(parts, fmt.Sprintf("- [%s] %s: %s", s.Source, s.StartedAt.UTC().Format(contextTimeLayout), summary))
		}
	}

	return strings.Join(parts, "\n")
}
