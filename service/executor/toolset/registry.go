package toolset

import (
	"sync"

	"github.com/viant/x"

	"github.com/arkadia-labs/approvia/model/types"
)

// Types registers the Go types used by tool inputs and outputs.
type Types struct {
	x.Registry
}

// NewTypes creates a new type registry.
func NewTypes(options ...x.RegistryOption) *Types {
	return &Types{Registry: *x.NewRegistry(options...)}
}

// DataTypeIniter lets a tool service register its own data types on
// registration.
type DataTypeIniter interface {
	InitTypes(types *Types)
}

// Registry holds the tool services the toolset provider can dispatch to.
// The provider's capability list is derived from the registered method
// signatures.
type Registry struct {
	types    *Types
	services map[string]types.Service
	mux      sync.RWMutex
}

// Types returns the data type registry.
func (r *Registry) Types() *Types { return r.types }

// Lookup returns a service by name.
func (r *Registry) Lookup(name string) types.Service {
	r.mux.RLock()
	defer r.mux.RUnlock()
	return r.services[name]
}

// Register registers a tool service.
func (r *Registry) Register(service types.Service) {
	r.mux.Lock()
	defer r.mux.Unlock()

	if initer, ok := service.(DataTypeIniter); ok {
		initer.InitTypes(r.types)
	}
	r.services[service.Name()] = service
}

// Services returns all registered services.
func (r *Registry) Services() []types.Service {
	r.mux.RLock()
	defer r.mux.RUnlock()
	out := make([]types.Service, 0, len(r.services))
	for _, service := range r.services {
		out = append(out, service)
	}
	return out
}

// NewRegistry creates a tool registry, optionally pre-registering data types.
func NewRegistry(goTypes ...*x.Type) *Registry {
	ret := &Registry{
		types:    NewTypes(),
		services: make(map[string]types.Service),
	}
	for _, t := range goTypes {
		if t != nil {
			ret.types.Register(t)
		}
	}
	return ret
}
