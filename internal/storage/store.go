package storage

import (
	"context"
	"errors"
	"time"

	"github.com/crack-kitty/claudememkeep/internal/models"
)

// Backend driver names.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Summary limits.
const (
	summaryDecisionLimit = 10
	summarySessionLimit  = 5
)

// ErrUnknownDriver is returned when Options.Driver names no backend.
var ErrUnknownDriver = errors.New("unknown store driver")

// Store is the persistence boundary for artifacts and sessions. Every method
// runs a single atomic statement, except GetSummary and GetRecent which are
// independent reads with no shared snapshot.
//
// Store does not validate artifact types or session sources; callers do.
type Store interface {
	SaveArtifact(ctx context.Context, a models.NewArtifact) (*models.Artifact, error)
	SearchArtifacts(ctx context.Context, query, project string, limit int) ([]models.Artifact, error)
	GetSummary(ctx context.Context, project string) (*models.Summary, error)
	GetRecent(ctx context.Context, project string, hours int) (*models.Activity, error)
	UpsertSession(ctx context.Context, s models.NewSession) (*models.Session, error)
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and sizes a backend.
type Options struct {
	Driver      string
	DSN         string // postgres connection string
	SQLitePath  string
	MinConns    int
	MaxConns    int
	ConnTimeout time.Duration
}
