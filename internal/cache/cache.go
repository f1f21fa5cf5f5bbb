package cache

import (
	"cmp"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/junioryono/chaindi/internal/registry"
	"github.com/puzpuzpuz/xsync/v3"
)

// entry is a cached instance together with the registration that produced it.
type entry struct {
	reg      registry.Registration
	instance any
	seq      uint64
}

// Entry is a cached instance and the registration that produced it.
type Entry struct {
	Registration registry.Registration
	Instance     any
}

// Cache holds the Shared instances of one scope.
//
// Instances are stored under their registration's key and, when the
// implementation type is known, also under (implementation type, name), so
// they can be found through the contract or the concrete type.
type Cache struct {
	primary *xsync.MapOf[registry.Key, entry]
	byImpl  *xsync.MapOf[registry.Key, entry]
	locks   *xsync.MapOf[registry.Registration, *sync.Mutex]
	seq     atomic.Uint64

	stats struct {
		hits   atomic.Int64
		misses atomic.Int64
	}
}

// Statistics tracks cache performance metrics.
type Statistics struct {
	Hits    int64
	Misses  int64
	Entries int
}

// New creates an empty cache.
func New() *Cache {
	return &Cache{
		primary: xsync.NewMapOf[registry.Key, entry](),
		byImpl:  xsync.NewMapOf[registry.Key, entry](),
		locks:   xsync.NewMapOf[registry.Registration, *sync.Mutex](),
	}
}

// Has reports whether an instance is cached for serviceType, looked up by
// contract or concrete type. An empty name matches any cached entry of that
// type, named or not; a non-empty name matches only itself.
func (c *Cache) Has(serviceType reflect.Type, name string) bool {
	_, ok := c.TryGetByType(serviceType, name)
	return ok
}

// TryGet returns the instance cached for reg.
func (c *Cache) TryGet(reg registry.Registration) (any, bool) {
	e, ok := c.primary.Load(reg.Key())
	if !ok || e.reg != reg {
		c.stats.misses.Add(1)
		return nil, false
	}

	c.stats.hits.Add(1)
	return e.instance, true
}

// TryGetByType returns an instance cached for serviceType using the matching
// rule of Has.
func (c *Cache) TryGetByType(serviceType reflect.Type, name string) (any, bool) {
	key := registry.Key{ServiceType: serviceType, Name: name}
	if e, ok := c.primary.Load(key); ok {
		return e.instance, true
	}
	if e, ok := c.byImpl.Load(key); ok {
		return e.instance, true
	}

	if name != "" {
		return nil, false
	}

	var found any
	var ok bool
	match := func(k registry.Key, e entry) bool {
		if k.ServiceType == serviceType {
			found, ok = e.instance, true
			return false
		}
		return true
	}

	c.primary.Range(match)
	if !ok {
		c.byImpl.Range(match)
	}
	return found, ok
}

// Add stores instance for reg, replacing any previous entry.
func (c *Cache) Add(reg registry.Registration, instance any) {
	e := entry{reg: reg, instance: instance, seq: c.seq.Add(1)}
	c.primary.Store(reg.Key(), e)
	c.indexImpl(reg, e)
}

// GetOrAdd stores instance for reg unless an instance is already cached for
// it, and returns the instance that ends up cached. An entry left by another
// registration of the same key is replaced.
func (c *Cache) GetOrAdd(reg registry.Registration, instance any) (actual any, loaded bool) {
	e, _ := c.primary.Compute(reg.Key(), func(old entry, ok bool) (entry, bool) {
		if ok && old.reg == reg {
			loaded = true
			return old, false
		}
		return entry{reg: reg, instance: instance, seq: c.seq.Add(1)}, false
	})
	if !loaded {
		c.indexImpl(reg, e)
	}
	return e.instance, loaded
}

func (c *Cache) indexImpl(reg registry.Registration, e entry) {
	impl := reg.ImplementationType()
	if impl == nil || impl == reg.ServiceType() {
		return
	}
	c.byImpl.Compute(registry.Key{ServiceType: impl, Name: reg.Name()}, func(old entry, ok bool) (entry, bool) {
		if ok && old.reg.Key() != reg.Key() {
			return old, false
		}
		return e, false
	})
}

// Contains reports whether an instance is cached under exactly key.
func (c *Cache) Contains(key registry.Key) bool {
	_, ok := c.primary.Load(key)
	return ok
}

// Lock returns the mutex serializing construction of reg's shared instance.
func (c *Cache) Lock(reg registry.Registration) *sync.Mutex {
	mu, _ := c.locks.LoadOrCompute(reg, func() *sync.Mutex {
		return &sync.Mutex{}
	})
	return mu
}

// Snapshot returns the cached entries in the order they were added.
func (c *Cache) Snapshot() []Entry {
	var entries []entry
	c.primary.Range(func(_ registry.Key, e entry) bool {
		entries = append(entries, e)
		return true
	})

	slices.SortFunc(entries, func(a, b entry) int {
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = Entry{Registration: e.reg, Instance: e.instance}
	}
	return out
}

// Len returns the number of cached registrations.
func (c *Cache) Len() int {
	return c.primary.Size()
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() Statistics {
	return Statistics{
		Hits:    c.stats.hits.Load(),
		Misses:  c.stats.misses.Load(),
		Entries: c.primary.Size(),
	}
}
