package resolver

import (
	"sort"
	"strings"

	"codeir/internal/extractor"
	"codeir/internal/graph"
)

const (
	StageSameFile      = "same_file"
	StageImportBinding = "import_binding"
	StageModulePath    = "module_path"
	StageFuzzy         = "fuzzy"
)

// receivers name the enclosing type inside a method body.
var receivers = map[string]bool{"self": true, "this": true, "cls": true, "Self": true}

// SameFileResolver links a call or reference to the declaration of the same
// file whose qualified name equals the target.
type SameFileResolver struct{}

func NewSameFileResolver() *SameFileResolver { return &SameFileResolver{} }

func (r *SameFileResolver) Name() string { return StageSameFile }

func (r *SameFileResolver) Resolve(g *graph.Graph) (ResolveStats, error) {
	return resolveWith(g, r.Name(), func(p graph.Pending) graph.Match {
		if p.Kind == graph.RelationImports {
			return graph.NoMatch
		}
		target := p.Target
		if head, rest, ok := strings.Cut(target, "."); ok && receivers[head] {
			cls := enclosingClass(g, p.From)
			if cls < 0 {
				return graph.NoMatch
			}
			target = g.Entities[cls].QualifiedName + "." + rest
		}

		var c []int
		for _, i := range g.InFile(g.Entities[p.From].Path) {
			e := g.Entities[i]
			if e.Kind.IsDeclaration() && e.QualifiedName == target {
				c = append(c, i)
			}
		}
		return graph.FromCandidates(c)
	})
}

func enclosingClass(g *graph.Graph, i int) int {
	for i = g.Entities[i].Parent; i >= 0; i = g.Entities[i].Parent {
		if k := g.Entities[i].Kind; k == extractor.KindClass || k == extractor.KindType {
			return i
		}
	}
	return -1
}

// ImportBindingResolver links a call or reference whose first segment is
// bound by an import of the same file to that import.
type ImportBindingResolver struct{}

func NewImportBindingResolver() *ImportBindingResolver { return &ImportBindingResolver{} }

func (r *ImportBindingResolver) Name() string { return StageImportBinding }

func (r *ImportBindingResolver) Resolve(g *graph.Graph) (ResolveStats, error) {
	return resolveWith(g, r.Name(), func(p graph.Pending) graph.Match {
		if p.Kind == graph.RelationImports {
			return graph.NoMatch
		}
		head, _, _ := strings.Cut(p.Target, ".")
		var c []int
		for _, i := range g.InFile(g.Entities[p.From].Path) {
			e := g.Entities[i]
			if e.Kind == extractor.KindImport && e.Name == head {
				c = append(c, i)
			}
		}
		return graph.FromCandidates(c)
	})
}

// ModulePathResolver links imports to the module they name.
//
// The import path is matched exactly, then as a dotted suffix in either
// direction, then the same again for its parent path so that an import of a
// member lands on the member's module. Candidates that all live in one
// directory are files of one package; the first path wins.
type ModulePathResolver struct{}

func NewModulePathResolver() *ModulePathResolver { return &ModulePathResolver{} }

func (r *ModulePathResolver) Name() string { return StageModulePath }

func (r *ModulePathResolver) Resolve(g *graph.Graph) (ResolveStats, error) {
	if g == nil {
		return ResolveStats{}, nil
	}
	names := g.ModuleNames()
	return resolveWith(g, r.Name(), func(p graph.Pending) graph.Match {
		if p.Kind != graph.RelationImports || p.Target == "" {
			return graph.NoMatch
		}
		self := g.Entities[p.From].Path
		target := p.Target
		for level := 0; level < 2 && target != ""; level++ {
			if c := moduleCandidates(g, names, target, self); len(c) > 0 {
				return pickModule(g, c)
			}
			i := strings.LastIndexByte(target, '.')
			if i < 0 {
				break
			}
			target = target[:i]
		}
		return graph.NoMatch
	})
}

func moduleCandidates(g *graph.Graph, names []string, target, self string) []int {
	keep := func(in []int) []int {
		var out []int
		for _, i := range in {
			if g.Entities[i].Path != self {
				out = append(out, i)
			}
		}
		return out
	}

	if c := keep(g.ModulesNamed(target)); len(c) > 0 {
		return c
	}
	var c []int
	for _, q := range names {
		forward := strings.HasSuffix(q, "."+target)
		backward := strings.Contains(q, ".") && strings.HasSuffix(target, "."+q)
		if forward || backward {
			c = append(c, keep(g.ModulesNamed(q))...)
		}
	}
	return c
}

func pickModule(g *graph.Graph, c []int) graph.Match {
	if len(c) == 1 {
		return graph.Unique(c[0])
	}
	dir := g.Dir(c[0])
	for _, i := range c[1:] {
		if g.Dir(i) != dir {
			return graph.Ambiguous(len(c))
		}
	}
	sort.Slice(c, func(a, b int) bool {
		ea, eb := g.Entities[c[a]], g.Entities[c[b]]
		if ea.Path != eb.Path {
			return ea.Path < eb.Path
		}
		return ea.Start < eb.Start
	})
	return graph.Unique(c[0])
}

// FuzzyResolver links a call or reference by its last segment when exactly
// one declaration in the repository carries that name.
type FuzzyResolver struct {
	preferSameDirectory bool
}

func NewFuzzyResolver(preferSameDirectory bool) *FuzzyResolver {
	return &FuzzyResolver{preferSameDirectory: preferSameDirectory}
}

func (r *FuzzyResolver) Name() string { return StageFuzzy }

func (r *FuzzyResolver) Resolve(g *graph.Graph) (ResolveStats, error) {
	return resolveWith(g, r.Name(), func(p graph.Pending) graph.Match {
		if p.Kind == graph.RelationImports {
			return graph.NoMatch
		}
		name := p.Target
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		c := g.DeclarationsNamed(name)
		if len(c) > 1 && r.preferSameDirectory {
			dir := g.Dir(p.From)
			var near []int
			for _, i := range c {
				if g.Dir(i) == dir {
					near = append(near, i)
				}
			}
			if len(near) == 1 {
				return graph.Unique(near[0])
			}
		}
		return graph.FromCandidates(c)
	})
}
