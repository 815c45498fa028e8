package topicgraph

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"thirdcoast.systems/scout/internal/metrics"
)

// Store loads the tenant's current items and saves whole graphs. Saving must
// replace the prior graph atomically.
type Store interface {
	LoadGraphSnapshot(ctx context.Context, tenantID string) (*Snapshot, error)
	SaveTopicGraph(ctx context.Context, tenantID string, g *Graph, builtAt time.Time) error
}

// Service rebuilds tenant graphs.
type Service struct {
	store  Store
	params Params
	now    func() time.Time

	// OnBuilt, when set, runs after a graph is saved.
	OnBuilt func(ctx context.Context, tenantID string)
}

func NewService(store Store, params Params) *Service {
	return &Service{store: store, params: params, now: time.Now}
}

func (s *Service) Params() Params { return s.params }

// Rebuild recomputes and saves the graph for one tenant.
func (s *Service) Rebuild(ctx context.Context, tenantID string) (*Graph, error) {
	start := time.Now()

	snap, err := s.store.LoadGraphSnapshot(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("load graph snapshot: %w", err)
	}

	g := Build(*snap, s.params)
	if err := s.store.SaveTopicGraph(ctx, tenantID, g, s.now().UTC()); err != nil {
		return nil, fmt.Errorf("save topic graph: %w", err)
	}

	metrics.GraphTopics.WithLabelValues(tenantID).Set(float64(len(g.Topics)))
	metrics.GraphEdges.WithLabelValues(tenantID).Set(float64(len(g.Edges)))
	metrics.GraphBuildDuration.Observe(time.Since(start).Seconds())

	slog.Info("topic graph rebuilt",
		"tenant_id", tenantID,
		"items", g.ItemCount,
		"topics", len(g.Topics),
		"edges", len(g.Edges),
		"duration", time.Since(start))

	if s.OnBuilt != nil {
		s.OnBuilt(ctx, tenantID)
	}
	return g, nil
}
