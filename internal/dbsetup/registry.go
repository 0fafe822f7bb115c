package dbsetup

import (
	"sort"
	"sync"

	"zonerun/internal/containerizer"
	"zonerun/internal/execute"
)

// Factory creates the strategy for one database container.
type Factory func(runner execute.Runner, c containerizer.Container, opts Options) Strategy

// Registry maps database image repositories to strategies.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in engine.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for name, e := range builtinEngines {
		r.Register(name, e.factory())
	}
	return r
}

// Register adds or replaces the factory for an engine.
func (r *Registry) Register(engine string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[engine] = factory
}

// Lookup returns the factory for engine.
func (r *Registry) Lookup(engine string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[engine]
	if !ok {
		return nil, &UnsupportedDatabaseEngineError{Engine: engine, Supported: r.enginesLocked()}
	}
	return f, nil
}

// Engines lists the registered engines in lexical order.
func (r *Registry) Engines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enginesLocked()
}

func (r *Registry) enginesLocked() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var builtinEngines = map[string]*engine{
	"postgres": postgresEngine,
	"mysql":    mysqlEngine,
	"mariadb":  mysqlEngine,
}

// DefaultPort returns the server port of a built-in engine, or zero.
func DefaultPort(name string) int {
	if e, ok := builtinEngines[name]; ok {
		return e.defaultPort
	}
	return 0
}
