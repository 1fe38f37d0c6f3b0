package resolver

import (
	"fmt"

	"codeir/internal/graph"
)

type ResolveStats struct {
	Attempted int
	Resolved  int
	Skipped   int // Stopped as ambiguous
}

type GraphResolver interface {
	Name() string
	Resolve(g *graph.Graph) (ResolveStats, error)
}

type StageResult struct {
	Resolver         string
	Stats            ResolveStats
	PendingBefore    int
	PendingAfter     int
	UnresolvedBefore int
	UnresolvedAfter  int
	EdgeCount        int
	Err              error
}

// Options tunes the default chain.
type Options struct {
	// PreferSameDirectory lets the fuzzy stage break ties in favour of
	// declarations living next to the referencing file.
	PreferSameDirectory bool
}

type ResolverChain struct {
	resolvers []GraphResolver
}

func NewResolverChain(resolvers ...GraphResolver) *ResolverChain {
	return &ResolverChain{resolvers: resolvers}
}

// NewDefaultChain returns the chain in resolution order: same file, import
// binding, module path, then unique fuzzy match.
func NewDefaultChain(opts Options) *ResolverChain {
	return NewResolverChain(
		NewSameFileResolver(),
		NewImportBindingResolver(),
		NewModulePathResolver(),
		NewFuzzyResolver(opts.PreferSameDirectory),
	)
}

func (c *ResolverChain) Run(g *graph.Graph) []StageResult {
	if g == nil {
		return nil
	}

	var out []StageResult
	for _, r := range c.resolvers {
		pending, before := len(g.Pending), len(g.Unresolved)
		stats, err := r.Resolve(g)
		out = append(out, StageResult{
			Resolver:         r.Name(),
			Stats:            stats,
			PendingBefore:    pending,
			PendingAfter:     len(g.Pending),
			UnresolvedBefore: before,
			UnresolvedAfter:  len(g.Unresolved),
			EdgeCount:        len(g.Edges),
			Err:              err,
		})
		if err != nil {
			break
		}
	}
	return out
}

// Finalize resolves g through the chain and freezes it.
func (c *ResolverChain) Finalize(g *graph.Graph) ([]StageResult, error) {
	var stages []StageResult
	err := g.Finalize(func(g *graph.Graph) error {
		stages = c.Run(g)
		for _, s := range stages {
			if s.Err != nil {
				return fmt.Errorf("resolver %s: %w", s.Resolver, s.Err)
			}
		}
		return nil
	})
	return stages, err
}

// resolveWith adapts a graph.Match function into a stage.
func resolveWith(g *graph.Graph, name string, match func(graph.Pending) graph.Match) (ResolveStats, error) {
	if g == nil {
		return ResolveStats{}, nil
	}
	attempted := len(g.Pending)
	resolved, ambiguous := g.ResolvePending(name, match)
	return ResolveStats{Attempted: attempted, Resolved: resolved, Skipped: ambiguous}, nil
}
