package core

import (
	"fmt"
	"sync"
)

// Global registry for source self-registration in init().
var globalRegistry = &Registry{
	prototypes: make(map[string]Source),
	sources:    make(map[string]Source),
}

// Registry tracks source prototypes (one per type) and configured source
// instances (one per configured name).
type Registry struct {
	prototypes map[string]Source
	sources    map[string]Source
	mu         sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		prototypes: make(map[string]Source),
		sources:    make(map[string]Source),
	}
}

// RegisterSourcePrototype lets source packages register themselves during init().
func RegisterSourcePrototype(name string, prototype Source) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.prototypes[name] = prototype
}

// GetGlobalRegistry returns a fresh registry seeded with every registered
// prototype. Instances created on the returned registry do not leak into
// the global one.
func GetGlobalRegistry() *Registry {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	registry := NewRegistry()
	for name, prototype := range globalRegistry.prototypes {
		registry.prototypes[name] = prototype
	}
	return registry
}

func (r *Registry) RegisterPrototype(name string, prototype Source) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prototypes[name]; exists {
		return fmt.Errorf("source prototype %s already registered", name)
	}

	r.prototypes[name] = prototype
	return nil
}

// CreateSource instantiates a configured source from a registered prototype,
// replacing (and closing) any previous instance with the same name.
func (r *Registry) CreateSource(instanceName, sourceType string, config interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prototype, exists := r.prototypes[sourceType]
	if !exists {
		return fmt.Errorf("source prototype %s not found", sourceType)
	}

	if validator, ok := config.(interface{ Validate() error }); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("invalid config for source %s: %w", instanceName, err)
		}
	}

	source, err := prototype.Factory(instanceName, config)
	if err != nil {
		return fmt.Errorf("creating source %s: %w", instanceName, err)
	}

	if existing, exists := r.sources[instanceName]; exists {
		if err := existing.Close(); err != nil {
			return fmt.Errorf("closing existing source %s: %w", instanceName, err)
		}
	}

	r.sources[instanceName] = source
	return nil
}

func (r *Registry) GetSource(name string) (Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	source, exists := r.sources[name]
	if !exists {
		return nil, fmt.Errorf("source %s not found", name)
	}
	return source, nil
}

func (r *Registry) GetAllSources() map[string]Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Source, len(r.sources))
	for name, src := range r.sources {
		result[name] = src
	}
	return result
}

func (r *Registry) ListSources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

func (r *Registry) RemoveSource(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	source, exists := r.sources[name]
	if !exists {
		return fmt.Errorf("source %s not found", name)
	}

	if err := source.Close(); err != nil {
		return fmt.Errorf("closing source %s: %w", name, err)
	}

	delete(r.sources, name)
	return nil
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, source := range r.sources {
		if err := source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing source %s: %w", name, err))
		}
	}

	r.sources = make(map[string]Source)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing sources: %v", errs)
	}
	return nil
}
