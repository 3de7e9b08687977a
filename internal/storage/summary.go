package storage

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/crack-kitty/claudememkeep/internal/models"
)

// reader is the per-backend query set behind GetSummary and GetRecent.
type reader interface {
	recentDecisions(ctx context.Context, project string, limit int) ([]models.Artifact, error)
	recentSessions(ctx context.Context, project string, limit int) ([]models.Session, error)
	countByType(ctx context.Context, project string) (map[string]int, error)
	artifactsSince(ctx context.Context, project string, hours int) ([]models.Artifact, error)
	sessionsSince(ctx context.Context, project string, hours int) ([]models.Session, error)
}

// buildSummary runs the three summary reads concurrently. They do not share a
// snapshot, so counts may disagree with the lists under concurrent writes.
func buildSummary(ctx context.Context, r reader, project string) (*models.Summary, error) {
	sum := &models.Summary{Project: project}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sum.RecentDecisions, err = r.recentDecisions(gctx, project, summaryDecisionLimit)
		return err
	})
	g.Go(func() error {
		var err error
		sum.RecentSessions, err = r.recentSessions(gctx, project, summarySessionLimit)
		return err
	})
	g.Go(func() error {
		var err error
		sum.ArtifactCounts, err = r.countByType(gctx, project)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if sum.RecentDecisions == nil {
		sum.RecentDecisions = []models.Artifact{}
	}
	if sum.RecentSessions == nil {
		sum.RecentSessions = []models.Session{}
	}
	if sum.ArtifactCounts == nil {
		sum.ArtifactCounts = map[string]int{}
	}
	return sum, nil
}

// buildActivity collects artifacts and sessions inside the trailing window.
func buildActivity(ctx context.Context, r reader, project string, hours int) (*models.Activity, error) {
	act := &models.Activity{Project: project, Hours: hours}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		act.Artifacts, err = r.artifactsSince(gctx, project, hours)
		return err
	})
	g.Go(func() error {
		var err error
		act.Sessions, err = r.sessionsSince(gctx, project, hours)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if act.Artifacts == nil {
		act.Artifacts = []models.Artifact{}
	}
	if act.Sessions == nil {
		act.Sessions = []models.Session{}
	}
	return act, nil
}
