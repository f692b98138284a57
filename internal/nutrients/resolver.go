package nutrients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noot-app/macroplan-mcp-server/internal/foods"
)

// ErrFoodNotFound is returned when no provider and no built-in entry knows a food
var ErrFoodNotFound = errors.New("food not found")

const (
	defaultCandidateLimit = 3
	maxConcurrentLookups  = 8
)

// Resolver turns free-text food names into nutrient profiles. Lookup order is
// cache, then every provider queried concurrently (first provider with a hit wins),
// then the built-in fallback table.
type Resolver struct {
	providers []foods.Provider
	cache     *Cache
	log       *slog.Logger
}

// NewResolver creates a resolver. A nil cache uses the process-wide cache.
func NewResolver(providers []foods.Provider, cache *Cache, logger *slog.Logger) *Resolver {
	if cache == nil {
		cache = SharedCache()
	}
	return &Resolver{providers: providers, cache: cache, log: logger}
}

// Resolve returns the profile for a single food name
func (r *Resolver) Resolve(ctx context.Context, name string) (Food, error) {
	key := Standardize(name)
	if key == "" {
		return Food{}, fmt.Errorf("%w: empty name", ErrFoodNotFound)
	}
	if f, ok := r.cache.Get(key); ok {
		return f, nil
	}
	if err := ctx.Err(); err != nil {
		return Food{}, err
	}

	start := time.Now()
	results := make([][]foods.Candidate, len(r.providers))

	// provider failures are tolerated, so the group never cancels siblings
	var g errgroup.Group
	for i, p := range r.providers {
		g.Go(func() error {
			candidates, err := p.Search(ctx, key, defaultCandidateLimit)
			if err != nil {
				r.log.Warn("Food provider lookup failed", "provider", p.Name(), "food", key, "error", err)
				return nil
			}
			results[i] = candidates
			return nil
		})
	}
	_ = g.Wait()

	for _, candidates := range results {
		if c, ok := pickCandidate(key, candidates); ok {
			f := Food{Key: key, Name: c.Name, Profile: c.Profile, Source: c.Source}
			r.cache.Put(f)
			r.log.Debug("Food resolved", "food", key, "match", c.Name, "source", c.Source, "duration", time.Since(start))
			return f, nil
		}
	}

	if match, ok := fallbackMatch(key); ok {
		profile, _ := Fallback(match)
		f := Food{Key: key, Name: match, Profile: profile, Source: FallbackSource}
		r.cache.Put(f)
		r.log.Debug("Food resolved from built-in table", "food", key, "match", match, "duration", time.Since(start))
		return f, nil
	}

	r.log.Info("Food not found", "food", name, "providers", len(r.providers), "duration", time.Since(start))
	return Food{}, fmt.Errorf("%w: %q", ErrFoodNotFound, name)
}

// ResolveAll resolves every distinct name concurrently. Foods that cannot be found are
// listed in missing; err is only set when ctx is done.
func (r *Resolver) ResolveAll(ctx context.Context, names []string) (resolved map[string]Food, missing []string, err error) {
	resolved = make(map[string]Food, len(names))
	seen := make(map[string]bool, len(names))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)

	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		g.Go(func() error {
			f, err := r.Resolve(gctx, name)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				resolved[name] = f
			case errors.Is(err, ErrFoodNotFound):
				missing = append(missing, name)
			default:
				return err
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return resolved, missing, nil
}

// pickCandidate prefers a candidate whose standardized name equals the key
func pickCandidate(key string, candidates []foods.Candidate) (foods.Candidate, bool) {
	if len(candidates) == 0 {
		return foods.Candidate{}, false
	}
	for _, c := range candidates {
		if Standardize(c.Name) == key && c.Profile.Valid() {
			return c, true
		}
	}
	for _, c := range candidates {
		if c.Profile.Valid() {
			return c, true
		}
	}
	return foods.Candidate{}, false
}
