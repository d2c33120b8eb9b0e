// Package cache holds the latest computed opportunity list. The list is an
// immutable snapshot replaced wholesale on every publish; readers never see a
// partially refreshed state, so no locking is needed beyond the pointer swap.
package cache

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Ibarakilol/bestchange-arbitrage-bot/internal/domain"
)

// snapshot is one published generation of the ranked list plus its id index.
type snapshot struct {
	opportunities []domain.Opportunity
	byID          map[string]int
	refreshedAt   time.Time
}

// OpportunityCache is the single-writer store the refresher publishes into
// and the bot reads from.
type OpportunityCache struct {
	current atomic.Pointer[snapshot]
}

// New creates an empty cache.
func New() *OpportunityCache {
	c := &OpportunityCache{}
	c.current.Store(&snapshot{byID: map[string]int{}})
	return c
}

// Publish replaces the cached list with a fresh one. The slice is owned by
// the cache after the call; the publisher must not mutate it.
func (c *OpportunityCache) Publish(opportunities []domain.Opportunity, refreshedAt time.Time) {
	byID := make(map[string]int, len(opportunities))
	for i, opp := range opportunities {
		byID[opp.ID] = i
	}
	c.current.Store(&snapshot{
		opportunities: opportunities,
		byID:          byID,
		refreshedAt:   refreshedAt,
	})
}

// List returns the current ranked list. Callers must treat it as read-only.
func (c *OpportunityCache) List() []domain.Opportunity {
	return c.current.Load().opportunities
}

// Get resolves an opportunity id from the current snapshot. A stale id (from
// a button rendered before the last refresh) returns domain.ErrNotFound; the
// caller is expected to tell the user rather than treat it as a failure.
func (c *OpportunityCache) Get(id string) (domain.Opportunity, error) {
	snap := c.current.Load()
	idx, ok := snap.byID[id]
	if !ok {
		return domain.Opportunity{}, fmt.Errorf("opportunity %q: %w", id, domain.ErrNotFound)
	}
	return snap.opportunities[idx], nil
}

// RefreshedAt returns the publish time of the current snapshot, or the zero
// time if nothing has been published yet.
func (c *OpportunityCache) RefreshedAt() time.Time {
	return c.current.Load().refreshedAt
}
