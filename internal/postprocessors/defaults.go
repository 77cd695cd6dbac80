package postprocessors

import (
	"github.com/custodia-labs/veritas/internal/core/ports/driven"
	"github.com/custodia-labs/veritas/internal/normalisers/html"
	"github.com/custodia-labs/veritas/internal/postprocessors/chunker"
)

// Built-in sectionizer names.
const (
	Headings   = "headings"
	Positional = "positional"
)

// RegisterDefaults registers the built-in sectionizers.
func RegisterDefaults(r *Registry) {
	r.Register(Headings, buildHeadings)
	r.Register(Positional, buildPositional)
}

// NewDefaultRegistry returns a registry with the built-in sectionizers.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

func buildHeadings(_ map[string]any) (driven.Sectionizer, error) {
	return html.New(), nil
}

// buildPositional creates a positional chunker from generic config.
// Supported config keys:
//   - chunk_size (int): Characters per chunk (default: 1050)
//   - overlap (int): Overlapping characters between chunks (default: 150)
func buildPositional(cfg map[string]any) (driven.Sectionizer, error) {
	var opts []chunker.Option

	if cfg != nil {
		if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
			opts = append(opts, chunker.WithChunkSize(size))
		}
		if _, ok := cfg["overlap"]; ok {
			opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
		}
	}

	return chunker.New(opts...), nil
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
