package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cpcoach/backend/internal/logging"
	"github.com/cpcoach/backend/internal/metrics"
	"github.com/cpcoach/backend/internal/models"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ProblemSource fetches the full problem set from upstream.
type ProblemSource interface {
	Problems(ctx context.Context) ([]models.Problem, error)
}

// Persister is the durable copy of the catalog. *Store implements it.
type Persister interface {
	LoadAll(ctx context.Context) ([]models.Problem, error)
	ReplaceAll(ctx context.Context, problems []models.Problem) error
}

// Manager loads the catalog at startup and refreshes it from upstream.
type Manager struct {
	catalog  *Catalog
	store    Persister
	source   ProblemSource
	interval time.Duration
	group    singleflight.Group
	log      zerolog.Logger
}

func NewManager(c *Catalog, store Persister, source ProblemSource, interval time.Duration) *Manager {
	return &Manager{
		catalog:  c,
		store:    store,
		source:   source,
		interval: interval,
		log:      logging.WithComponent("catalog"),
	}
}

func (m *Manager) Catalog() *Catalog { return m.catalog }

// Load fills the catalog from the persister, falling back to upstream when
// the persisted catalog is empty.
func (m *Manager) Load(ctx context.Context) error {
	if m.store != nil {
		problems, err := m.store.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("load catalog: %w", err)
		}
		if len(problems) > 0 {
			s := m.catalog.Replace(problems)
			metrics.CatalogProblems.Set(float64(s.Len()))
			m.log.Info().Int("problems", s.Len()).Msg("catalog loaded from database")
			return nil
		}
	}
	_, err := m.Refresh(ctx)
	return err
}

// Refresh pulls the problem set upstream, persists it and swaps the
// snapshot. Concurrent calls share one upstream fetch.
func (m *Manager) Refresh(ctx context.Context) (int, error) {
	if m.source == nil {
		return 0, errors.New("catalog refresh: no problem source configured")
	}
	v, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		problems, err := m.source.Problems(ctx)
		if err != nil {
			return 0, fmt.Errorf("fetch problems: %w", err)
		}
		if len(problems) == 0 {
			return 0, errors.New("fetch problems: upstream returned an empty problem set")
		}
		if m.store != nil {
			if err := m.store.ReplaceAll(ctx, problems); err != nil {
				return 0, fmt.Errorf("persist problems: %w", err)
			}
		}
		s := m.catalog.Replace(problems)
		metrics.CatalogProblems.Set(float64(s.Len()))
		m.log.Info().Int("problems", s.Len()).Msg("catalog refreshed")
		return s.Len(), nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Serve refreshes the catalog every interval until ctx is done. It runs
// under the process supervisor.
func (m *Manager) Serve(ctx context.Context) error {
	if m.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := m.Refresh(ctx); err != nil {
				m.log.Warn().Err(err).Msg("scheduled catalog refresh failed, keeping current snapshot")
			}
		}
	}
}

func (m *Manager) String() string { return "catalog-refresher" }
