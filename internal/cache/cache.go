package cache

import (
	"sync"

	"github.com/zrfleet/depotsim/pkg/core"
)

// VehicleCache caches registered vehicles to avoid storage reads on the
// hot paths. Latency in these calls is critical to keep the boarding and
// drain loops moving.
type VehicleCache struct {
	m        sync.Mutex
	Vehicles map[string]core.Vehicle
}

func NewVehicleCache() *VehicleCache {
	return &VehicleCache{
		m:        sync.Mutex{},
		Vehicles: make(map[string]core.Vehicle),
	}
}

func (c *VehicleCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Vehicles = make(map[string]core.Vehicle)
}

func (c *VehicleCache) Get(registration string) (core.Vehicle, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if v, ok := c.Vehicles[registration]; ok {
		return v, true
	}
	return core.Vehicle{}, false
}

func (c *VehicleCache) Add(v core.Vehicle) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Vehicles[v.Registration] = v
}

func (c *VehicleCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Vehicles)
}

// Registrations returns the cached plates, unordered.
func (c *VehicleCache) Registrations() []string {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]string, 0, len(c.Vehicles))
	for reg := range c.Vehicles {
		out = append(out, reg)
	}
	return out
}

// RouteCache caches routes learned from AvailableRoutes listings and
// dispatches, keyed by route ID.
type RouteCache struct {
	m      sync.Mutex
	Routes map[string]core.RouteDescriptor
}

func NewRouteCache() *RouteCache {
	return &RouteCache{
		m:      sync.Mutex{},
		Routes: make(map[string]core.RouteDescriptor),
	}
}

func (c *RouteCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Routes = make(map[string]core.RouteDescriptor)
}

func (c *RouteCache) Get(routeID string) (core.RouteDescriptor, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if r, ok := c.Routes[routeID]; ok {
		return r, true
	}
	return core.RouteDescriptor{}, false
}

func (c *RouteCache) Add(r core.RouteDescriptor) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Routes[r.RouteID] = r
}

func (c *RouteCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.Routes)
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

func (c *SafeCounter) Add(n int) {
	c.mu.Lock()
	c.v += n
	c.mu.Unlock()
}
