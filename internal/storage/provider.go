package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Provider owns the process-wide Store. The backend is opened and its schema
// applied on the first call to Store; later calls share that instance until
// Close. A failed open is not remembered, so the next call tries again.
type Provider struct {
	mu    sync.Mutex
	opts  Options
	store Store
	open  func(context.Context, Options) (Store, error)
}

// NewProvider creates a Provider for opts without connecting.
func NewProvider(opts Options) *Provider {
	return &Provider{opts: opts, open: Open}
}

// Open connects the backend named by opts.Driver and initializes its schema.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverPostgres:
		s, err := OpenPostgres(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, opts)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

// Store returns the shared Store, opening it if needed. Concurrent first
// callers block on the same open.
func (p *Provider) Store(ctx context.Context) (Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store != nil {
		return p.store, nil
	}

	s, err := p.open(ctx, p.opts)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", p.opts.Driver).Msg("store initialized")
	p.store = s
	return s, nil
}

// Ping opens the store if needed and probes it.
func (p *Provider) Ping(ctx context.Context) error {
	s, err := p.Store(ctx)
	if err != nil {
		return err
	}
	return s.Ping(ctx)
}

// Close tears down the shared Store. The next Store call opens a new one.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	return err
}
