package db

import (
	"context"
	"sync"
	"time"

	"thirdcoast.systems/scout/internal/topicgraph"
)

type GraphLoader interface {
	LoadTopicGraph(ctx context.Context, tenantID string) (*topicgraph.Graph, time.Time, error)
}

type CachedGraph struct {
	Graph   *topicgraph.Graph
	BuiltAt time.Time
}

// GraphCache provides thread-safe access to each tenant's latest graph.
// Entries are reloaded via LISTEN/NOTIFY when a graph is saved.
type GraphCache struct {
	mu     sync.RWMutex
	graphs map[string]*CachedGraph
	loader GraphLoader
}

func NewGraphCache(loader GraphLoader) *GraphCache {
	return &GraphCache{graphs: make(map[string]*CachedGraph), loader: loader}
}

// Get returns the cached graph, loading it on first use. It returns nil when
// no graph has been built for the tenant.
func (c *GraphCache) Get(ctx context.Context, tenantID string) (*CachedGraph, error) {
	c.mu.RLock()
	cg, ok := c.graphs[tenantID]
	c.mu.RUnlock()
	if ok {
		return cg, nil
	}
	if err := c.Reload(ctx, tenantID); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.graphs[tenantID], nil
}

// Reload fetches the tenant's graph from the database and swaps it in.
func (c *GraphCache) Reload(ctx context.Context, tenantID string) error {
	g, builtAt, err := c.loader.LoadTopicGraph(ctx, tenantID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if g == nil {
		delete(c.graphs, tenantID)
		return nil
	}
	c.graphs[tenantID] = &CachedGraph{Graph: g, BuiltAt: builtAt}
	return nil
}
