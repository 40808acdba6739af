package session

import (
	"sync"

	"github.com/zrfleet/depotsim/internal/model"
)

// Context holds the current depot and service day state
type Context struct {
	mu         sync.RWMutex
	Depot      *model.Depot
	ServiceDay *model.ServiceDay
}

// NewContext creates a new Context with default values
func NewContext() *Context {
	return &Context{
		Depot:      &model.Depot{Name: "No depot loaded"},
		ServiceDay: &model.ServiceDay{Tag: "No service day started"},
	}
}

// GetDepot returns the current depot
func (sc *Context) GetDepot() *model.Depot {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Depot
}

// GetServiceDay returns the current service day
func (sc *Context) GetServiceDay() *model.ServiceDay {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.ServiceDay
}

// SetServiceDay sets the current service day and depot
func (sc *Context) SetServiceDay(day *model.ServiceDay, depot *model.Depot) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.ServiceDay = day
	sc.Depot = depot
}
