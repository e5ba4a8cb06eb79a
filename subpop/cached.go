package subpop

import (
	"context"
	"fmt"
	"time"

	"github.com/MrEthical07/goStudyAuth/criteria"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// CacheConfig tunes a Cached registry.
type CacheConfig struct {
	TTL time.Duration
	// CreateDefault persists the default group through the source when it
	// implements Creator and a tenant has no records at all.
	CreateDefault bool
}

// Cached is a Registry that memoizes Source loads per tenant.
type Cached struct {
	source  Source
	creator Creator
	cfg     CacheConfig
	cache   *gocache.Cache
	group   singleflight.Group
}

// NewCached wraps source. A non-positive TTL defaults to one minute.
func NewCached(source Source, cfg CacheConfig) *Cached {
	if cfg.TTL <= 0 {
		cfg.TTL = time.Minute
	}
	c := &Cached{
		source: source,
		cfg:    cfg,
		cache:  gocache.New(cfg.TTL, 2*cfg.TTL),
	}
	if creator, ok := source.(Creator); ok {
		c.creator = creator
	}
	return c
}

// List returns the tenant's live subpopulations ordered by specificity.
// The returned slice is owned by the caller.
func (c *Cached) List(ctx context.Context, tenantID string) ([]Subpopulation, error) {
	if v, ok := c.cache.Get(tenantID); ok {
		return clone(v.([]Subpopulation)), nil
	}

	v, err, _ := c.group.Do(tenantID, func() (interface{}, error) {
		subs, err := c.load(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		c.cache.Set(tenantID, subs, gocache.DefaultExpiration)
		return subs, nil
	})
	if err != nil {
		return nil, err
	}
	return clone(v.([]Subpopulation)), nil
}

// ForUser returns the most specific subpopulation matching cctx.
func (c *Cached) ForUser(ctx context.Context, tenantID string, cctx criteria.Context) (Subpopulation, bool, error) {
	subs, err := c.List(ctx, tenantID)
	if err != nil {
		return Subpopulation{}, false, err
	}
	best, ok := BestMatch(subs, cctx)
	return best, ok, nil
}

// Invalidate drops the cached list for tenantID.
func (c *Cached) Invalidate(tenantID string) {
	c.cache.Delete(tenantID)
}

func (c *Cached) load(ctx context.Context, tenantID string) ([]Subpopulation, error) {
	all, err := c.source.Load(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	if len(all) == 0 {
		def := NewDefault(tenantID)
		if c.cfg.CreateDefault && c.creator != nil {
			if err := c.creator.Create(ctx, def); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
			}
		}
		return []Subpopulation{def}, nil
	}

	subs := live(all)
	criteria.SortBySpecificity(subs)
	return subs, nil
}

func clone(subs []Subpopulation) []Subpopulation {
	out := make([]Subpopulation, len(subs))
	copy(out, subs)
	return out
}
