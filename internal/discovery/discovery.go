// Package discovery finds candidate channels for a search phrase and fetches
// their profiles, throttled and guarded by a circuit breaker.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"thirdcoast.systems/scout/internal/platform"
	"thirdcoast.systems/scout/internal/resilience"
)

// Backend is the raw discovery service.
type Backend interface {
	Search(ctx context.Context, p platform.Platform, query string, limit int) ([]string, error)
	Profile(ctx context.Context, p platform.Platform, handle string) (*platform.Profile, error)
}

// Candidate is a channel found by a search, before its profile is fetched.
type Candidate struct {
	Platform platform.Platform
	Handle   string
	URL      string
}

type Service struct {
	backend Backend
	limiter *rate.Limiter
	search  *gobreaker.CircuitBreaker[[]string]
	profile *gobreaker.CircuitBreaker[*platform.Profile]
}

// New allows perMinute backend calls per minute with a burst of one.
func New(backend Backend, perMinute int) *Service {
	if perMinute <= 0 {
		perMinute = 20
	}
	return &Service{
		backend: backend,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
		search:  resilience.NewBreaker[[]string](resilience.DefaultBreakerConfig("discovery-search")),
		profile: resilience.NewBreaker[*platform.Profile](resilience.DefaultBreakerConfig("discovery-profile")),
	}
}

// WithLimiter replaces the rate limiter (tests).
func (s *Service) WithLimiter(l *rate.Limiter) *Service {
	s.limiter = l
	return s
}

// Search returns distinct candidates for query on platform p, in result order.
// URLs that do not resolve to a profile on p are skipped.
func (s *Service) Search(ctx context.Context, p platform.Platform, query string, limit int) ([]Candidate, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	urls, err := s.search.Execute(func() ([]string, error) {
		return s.backend.Search(ctx, p, query, limit)
	})
	if err != nil {
		return nil, fmt.Errorf("discovery search: %w", err)
	}

	seen := make(map[string]struct{}, len(urls))
	out := make([]Candidate, 0, len(urls))
	for _, u := range urls {
		up, handle, err := platform.ParseProfileURL(u)
		if err != nil || up != p {
			slog.Debug("skipping search result", "url", u, "error", err)
			continue
		}
		if _, dup := seen[handle]; dup {
			continue
		}
		seen[handle] = struct{}{}
		out = append(out, Candidate{Platform: p, Handle: handle, URL: platform.ProfileURL(p, handle)})
	}
	return out, nil
}

func (s *Service) FetchProfile(ctx context.Context, p platform.Platform, handle string) (*platform.Profile, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	prof, err := s.profile.Execute(func() (*platform.Profile, error) {
		return s.backend.Profile(ctx, p, handle)
	})
	if err != nil {
		return nil, fmt.Errorf("discovery profile %s/%s: %w", p, handle, err)
	}
	return prof, nil
}
