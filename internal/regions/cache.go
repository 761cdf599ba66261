// Package regions keeps the country code to commerce region map used to
// route storefront requests.
package regions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/commerce"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
)

const DefaultTTL = time.Hour

var ErrNoRegions = errors.New("commerce backend returned no regions")

type regionLister interface {
	ListRegions(ctx context.Context) ([]commerce.Region, error)
}

// Snapshot is an immutable view of the region map.
type Snapshot struct {
	byCountry map[string]commerce.Region
	order     []string
	fetchedAt time.Time
}

// Lookup finds the region serving a country code.
func (s *Snapshot) Lookup(code string) (commerce.Region, bool) {
	if s == nil {
		return commerce.Region{}, false
	}
	region, ok := s.byCountry[strings.ToLower(strings.TrimSpace(code))]
	return region, ok
}

// First returns the first country code in backend order.
func (s *Snapshot) First() string {
	if s == nil || len(s.order) == 0 {
		return ""
	}
	return s.order[0]
}

func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}

// Cache refreshes the region map lazily when it is empty or older than the TTL.
// Concurrent refreshes may race; the last one wins and every result is equivalent.
type Cache struct {
	lister  regionLister
	ttl     time.Duration
	metrics *metrics.RegionCacheMetrics
	logg    *logger.Logger
	now     func() time.Time
	current atomic.Pointer[Snapshot]
}

func NewCache(lister regionLister, ttl time.Duration, m *metrics.RegionCacheMetrics, logg *logger.Logger) (*Cache, error) {
	if lister == nil {
		return nil, fmt.Errorf("region lister required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{lister: lister, ttl: ttl, metrics: m, logg: logg, now: time.Now}, nil
}

// Get returns the current map, fetching it first when missing or stale.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	if snap := c.current.Load(); snap != nil && c.now().Sub(snap.fetchedAt) < c.ttl {
		return snap, nil
	}
	return c.refresh(ctx)
}

// Invalidate drops the current map so the next Get refetches it.
func (c *Cache) Invalidate() {
	c.current.Store(nil)
}

func (c *Cache) refresh(ctx context.Context) (*Snapshot, error) {
	regions, err := c.lister.ListRegions(ctx)
	if err != nil {
		c.metrics.RefreshFailed()
		return nil, fmt.Errorf("fetch regions: %w", err)
	}

	snap := &Snapshot{
		byCountry: make(map[string]commerce.Region),
		fetchedAt: c.now(),
	}
	// a country listed by several regions maps to the last one; order keeps
	// its first position
	for _, region := range regions {
		for _, code := range region.CountryCodes() {
			if _, seen := snap.byCountry[code]; !seen {
				snap.order = append(snap.order, code)
			}
			snap.byCountry[code] = region
		}
	}
	if len(snap.order) == 0 {
		c.metrics.RefreshFailed()
		return nil, ErrNoRegions
	}

	c.current.Store(snap)
	c.metrics.RefreshSucceeded(len(snap.order))
	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "countries", len(snap.order)), "region map refreshed")
	}
	return snap, nil
}
