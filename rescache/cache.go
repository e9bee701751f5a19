// Package rescache implements the Resource Cache (spec §4.1): a
// content-addressed store mapping URL to Resource, shared across
// TraverseNodes, deduplicated across callers and across concurrent
// misses.
//
// Grounded on tile_proxy/cache.go's TileCache (mutex-protected map,
// frame/tick-driven sweep) generalized from byte blobs to typed,
// stateful Resources, plus golang.org/x/sync/singleflight to collapse
// concurrent Get-miss callers onto one Resource instead of racing two
// inserts for the same URL.
package rescache

import (
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/GrainArc/vtsclient/model"
)

// Cache is the shared URL -> *model.Resource table. Lookup/insert is
// protected by a mutex; individual Resources use their own atomics for
// the state word (spec §5).
type Cache struct {
	mu    sync.RWMutex
	items map[string]*model.Resource
	group singleflight.Group

	maxRamMem uint64
	maxGpuMem uint64

	tick uint64
}

// New creates a cache enforcing the given RAM/GPU budgets (0 = no limit).
func New(maxRamMem, maxGpuMem uint64) *Cache {
	return &Cache{
		items:     make(map[string]*model.Resource),
		maxRamMem: maxRamMem,
		maxGpuMem: maxGpuMem,
	}
}

// Get returns the existing Resource for url or inserts a new
// Initializing one. Concurrent misses for the same url are collapsed
// via singleflight so at most one Resource is ever created per URL.
func (c *Cache) Get(url string, kind model.Kind) *model.Resource {
	c.mu.RLock()
	if r, ok := c.items[url]; ok {
		c.mu.RUnlock()
		return r
	}
	c.mu.RUnlock()

	v, _, _ := c.group.Do(url, func() (any, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if r, ok := c.items[url]; ok {
			return r, nil
		}
		r := model.NewResource(url, kind)
		c.items[url] = r
		return r, nil
	})
	return v.(*model.Resource)
}

// Lookup returns the resource for url without creating one.
func (c *Cache) Lookup(url string) (*model.Resource, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.items[url]
	return r, ok
}

// Touch protects r from this tick's eviction pass.
func (c *Cache) Touch(r *model.Resource) {
	r.Touch(c.tick)
}

// CurrentTick is the cache's notion of "now", advanced once per frame
// by BeginTick.
func (c *Cache) CurrentTick() uint64 { return c.tick }

// Validity is a thin alias for r.Validity(), kept so callers that only
// ever go through the cache read naturally (spec §4.1 validity(r)).
func (c *Cache) Validity(r *model.Resource) model.Validity { return r.Validity() }

// UpdatePriority is a thin alias for r.UpdatePriority(p).
func (c *Cache) UpdatePriority(r *model.Resource, p float32) { r.UpdatePriority(p) }

// BeginTick bumps the tick counter at the start of a frame and resets
// every resource's per-tick priority accumulator, so every Touch made
// by this frame's traversal is stamped with the tick eviction will
// compare against at the frame's end (spec §4.7/§5: "eviction ...
// never drops resources with current-tick access").
func (c *Cache) BeginTick() {
	c.mu.Lock()
	c.tick++
	for _, r := range c.items {
		r.ResetPriority()
	}
	c.mu.Unlock()
}

// Evict runs the eviction pass at the frame's end. Returns the number
// of resources evicted.
func (c *Cache) Evict() int {
	return c.evict()
}

// AdvanceTick is BeginTick immediately followed by Evict, a convenience
// for callers that don't need the two phases split around a traversal
// in between.
func (c *Cache) AdvanceTick() int {
	c.BeginTick()
	return c.Evict()
}

// Purge resets every non-Ready resource to Initializing (map reload /
// view-cache purge cancellation protocol, spec §4.2/§5).
func (c *Cache) Purge() {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.items {
		r.Purge()
	}
}

// All returns a snapshot slice of every resource currently cached, for
// the fetch scheduler's pending-resource scan.
func (c *Cache) All() []*model.Resource {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*model.Resource, 0, len(c.items))
	for _, r := range c.items {
		out = append(out, r)
	}
	return out
}

// evict drops resources in ascending (last_access_tick, -ram_cost)
// order until both budgets are satisfied, skipping any resource that
// is pinned, in flight, or touched during the current tick (spec §4.1
// Eviction).
func (c *Cache) evict() int {
	if c.maxRamMem == 0 && c.maxGpuMem == 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var ram, gpu uint64
	candidates := make([]*model.Resource, 0, len(c.items))
	for _, r := range c.items {
		ram += r.RamCost
		gpu += r.GpuCost
		if !r.Pinned() && !r.InFlight() && r.LastAccessTick() != c.tick {
			candidates = append(candidates, r)
		}
	}

	if (c.maxRamMem == 0 || ram <= c.maxRamMem) && (c.maxGpuMem == 0 || gpu <= c.maxGpuMem) {
		return 0
	}

	sort.Slice(candidates, func(i, j int) bool {
		ti, ri := candidates[i].LastAccessTick(), candidates[i].RamCost
		tj, rj := candidates[j].LastAccessTick(), candidates[j].RamCost
		if ti != tj {
			return ti < tj
		}
		return ri > rj // -ram_cost ascending == ram_cost descending
	})

	evicted := 0
	for _, r := range candidates {
		if (c.maxRamMem == 0 || ram <= c.maxRamMem) && (c.maxGpuMem == 0 || gpu <= c.maxGpuMem) {
			break
		}
		ram -= r.RamCost
		gpu -= r.GpuCost
		delete(c.items, r.URL)
		evicted++
	}
	return evicted
}

// Size is the number of resources currently cached.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// MemoryUsage returns the current (ram, gpu) totals across all
// resources, regardless of pin state.
func (c *Cache) MemoryUsage() (ram, gpu uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.items {
		ram += r.RamCost
		gpu += r.GpuCost
	}
	return
}
