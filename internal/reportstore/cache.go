package reportstore

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dvloznov/credit-report/internal/domain"
	"github.com/dvloznov/credit-report/internal/logger"
)

// Cached is a read-through cache in front of another Store. Every successful
// upsert replaces the cached entry, so a read never returns an older report
// than the last write made through this instance.
type Cached struct {
	next  Store
	cache *gocache.Cache

	mu       sync.Mutex
	versions map[string]uint64
}

// NewCached wraps next with a cache whose entries expire after ttl.
func NewCached(next Store, ttl time.Duration) *Cached {
	return &Cached{
		next:     next,
		cache:    gocache.New(ttl, 2*ttl),
		versions: make(map[string]uint64),
	}
}

func cacheKey(userID string) string {
	return "report:" + userID
}

func (c *Cached) UpsertLatest(ctx context.Context, userID string, report *domain.CreditReport) (*domain.CreditReport, error) {
	stored, err := c.next.UpsertLatest(ctx, userID, report)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.versions[userID]++
	if err != nil {
		// The backend state is unknown; drop the entry rather than serve it.
		c.cache.Delete(cacheKey(userID))
		return nil, err
	}
	c.cache.Set(cacheKey(userID), stored.Clone(), gocache.DefaultExpiration)
	return stored, nil
}

func (c *Cached) GetLatest(ctx context.Context, userID string) (*domain.CreditReport, error) {
	log := logger.FromContext(ctx)

	if v, ok := c.cache.Get(cacheKey(userID)); ok {
		if r, ok := v.(*domain.CreditReport); ok {
			log.Debug().Str("user_id", userID).Msg("report cache hit")
			return r.Clone(), nil
		}
	}

	c.mu.Lock()
	seen := c.versions[userID]
	c.mu.Unlock()

	r, err := c.next.GetLatest(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A write that finished during the backend read owns the entry.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[userID] == seen {
		c.cache.Set(cacheKey(userID), r.Clone(), gocache.DefaultExpiration)
	} else {
		log.Debug().Str("user_id", userID).Msg("skipping report cache fill after concurrent write")
	}
	return r, nil
}
