// Package postprocessors builds the sectionizers used by the indexing
// pipeline from their configured names.
package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/veritas/internal/core/domain"
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
)

// BuilderFunc creates a Sectionizer from generic config.
// Config is a map of sectionizer-specific settings parsed from user config.
type BuilderFunc func(cfg map[string]any) (driven.Sectionizer, error)

// Registry maps sectionizer names to their builders.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry creates a new, empty registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]BuilderFunc),
	}
}

// Register adds a builder. A later registration under the same name wins.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build creates a sectionizer by name with the given config.
func (r *Registry) Build(name string, cfg map[string]any) (driven.Sectionizer, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: sectionizer %q", domain.ErrUnsupportedType, name)
	}
	return builder(cfg)
}

// Has returns true if a sectionizer with the given name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns all registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
