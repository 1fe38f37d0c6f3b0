package graph

import (
	"errors"
	"fmt"
	"path"
	"sort"

	"codeir/internal/diag"
	"codeir/internal/extractor"
)

// ErrFinalized is returned when a finalized graph is modified.
var ErrFinalized = errors.New("graph already finalized")

type fileRecord struct {
	hash  string
	first int
	count int
}

type edgeKey struct {
	from, to int
	kind     RelationKind
}

// Graph is the repository-wide symbol graph.
//
// Entities live in an arena; edges refer to arena indices. Merge is called by
// a single writer, Finalize resolves pending edges and freezes the graph.
type Graph struct {
	Entities   []Entity
	Edges      []Edge
	Pending    []Pending
	Unresolved []UnresolvedRelation

	ids   map[string]int
	files map[string]fileRecord
	order []string
	edges map[edgeKey]struct{}

	byName  map[string][]int
	modules map[string][]int
	indexed bool

	finalized bool
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		ids:   make(map[string]int),
		files: make(map[string]fileRecord),
		edges: make(map[edgeKey]struct{}),
	}
}

// Merge adds one file's extraction result to the graph.
//
// Merging the same path with the same content hash is a no-op. A second result
// for a merged path with different content is ignored with a warning.
func (g *Graph) Merge(res *extractor.FileResult) ([]diag.Diagnostic, error) {
	if g.finalized {
		return nil, ErrFinalized
	}
	if res == nil || len(res.Entities) == 0 {
		return nil, nil
	}
	if rec, ok := g.files[res.Path]; ok {
		if rec.hash == res.Hash {
			return nil, nil
		}
		return []diag.Diagnostic{diag.New(diag.KindExtractionWarning, res.Path, 0,
			"file merged twice with different content; keeping the first")}, nil
	}

	base := len(g.Entities)
	var diags []diag.Diagnostic
	for _, e := range res.Entities {
		ge := fromExtracted(e, base)
		id, holder := g.assignID(ge)
		if holder >= 0 {
			diags = append(diags, diag.New(diag.KindIDCollision, ge.Path, ge.Start,
				"%s %q collides with %s declared in %s; assigned %s",
				ge.Kind, ge.QualifiedName, g.Entities[holder].ID, g.Entities[holder].Path, id))
		}
		ge.ID = id
		g.ids[id] = len(g.Entities)
		g.Entities = append(g.Entities, ge)
	}
	for _, le := range res.Edges {
		g.addEdge(rebaseEdge(le, base))
	}
	for _, p := range res.Pending {
		g.Pending = append(g.Pending, rebasePending(p, base))
	}

	g.files[res.Path] = fileRecord{hash: res.Hash, first: base, count: len(res.Entities)}
	g.order = append(g.order, res.Path)
	g.indexed = false
	return diags, nil
}

// assignID returns a unique id for e and, on collision, the arena index of the
// entity holding the plain id (-1 otherwise).
func (g *Graph) assignID(e Entity) (string, int) {
	id := extractor.BuildStableSymbolID(e.Kind, extractor.IdentityKey(e.Entity))
	holder, taken := g.ids[id]
	if !taken {
		return id, -1
	}

	candidate := id + extractor.DisambiguationSuffix(e.Path, e.Start, false)
	if _, ok := g.ids[candidate]; !ok {
		return candidate, holder
	}
	candidate = id + extractor.DisambiguationSuffix(e.Path, e.Start, true)
	base := candidate
	for n := 2; ; n++ {
		if _, ok := g.ids[candidate]; !ok {
			return candidate, holder
		}
		candidate = fmt.Sprintf("%s.%d", base, n)
	}
}

func (g *Graph) addEdge(e Edge) bool {
	if e.From < 0 || e.From >= len(g.Entities) || e.To < 0 || e.To >= len(g.Entities) {
		return false
	}
	k := edgeKey{from: e.From, to: e.To, kind: e.Kind}
	if _, dup := g.edges[k]; dup {
		return false
	}
	g.edges[k] = struct{}{}
	g.Edges = append(g.Edges, e)
	return true
}

// Finalize runs resolve over the pending edges, records whatever is left as
// unresolved and freezes the graph.
func (g *Graph) Finalize(resolve func(*Graph) error) error {
	if g.finalized {
		return ErrFinalized
	}
	g.buildIndex()
	if resolve != nil {
		if err := resolve(g); err != nil {
			return err
		}
	}
	for _, p := range g.Pending {
		g.Unresolved = append(g.Unresolved, UnresolvedRelation{
			From: p.From, Target: p.Target, Kind: p.Kind, Reason: ReasonNoCandidate,
		})
	}
	g.Pending = nil
	g.finalized = true
	return nil
}

// Finalized reports whether Finalize has completed.
func (g *Graph) Finalized() bool {
	return g.finalized
}

// ResolvePending asks match about every pending edge. Unique matches become
// edges tagged with stage, ambiguous ones become unresolved and the rest stay
// pending for later stages.
func (g *Graph) ResolvePending(stage string, match func(Pending) Match) (resolved, ambiguous int) {
	g.buildIndex()
	kept := g.Pending[:0]
	for _, p := range g.Pending {
		m := match(p)
		switch {
		case m.Candidates == 1 && m.Target >= 0 && m.Target < len(g.Entities):
			g.addEdge(Edge{
				From:       p.From,
				To:         m.Target,
				Kind:       p.Kind,
				Resolver:   stage,
				Confidence: extractor.CalibrateRelationConfidence(p.Kind, stage),
			})
			resolved++
		case m.Candidates > 1:
			g.Unresolved = append(g.Unresolved, UnresolvedRelation{
				From: p.From, Target: p.Target, Kind: p.Kind,
				Reason: ReasonAmbiguous, Candidates: m.Candidates,
			})
			ambiguous++
		default:
			kept = append(kept, p)
		}
	}
	g.Pending = kept
	return resolved, ambiguous
}

func (g *Graph) buildIndex() {
	if g.indexed {
		return
	}
	g.byName = make(map[string][]int)
	g.modules = make(map[string][]int)
	for i, e := range g.Entities {
		switch {
		case e.Kind.IsDeclaration():
			g.byName[e.Name] = append(g.byName[e.Name], i)
		case e.Kind == extractor.KindModule:
			g.modules[e.QualifiedName] = append(g.modules[e.QualifiedName], i)
		}
	}
	g.indexed = true
}

// Lookup returns the arena index of an id.
func (g *Graph) Lookup(id string) (int, bool) {
	i, ok := g.ids[id]
	return i, ok
}

// Files returns merged paths in merge order.
func (g *Graph) Files() []string {
	return append([]string(nil), g.order...)
}

// FileHash returns the content hash a path was merged with.
func (g *Graph) FileHash(p string) (string, bool) {
	rec, ok := g.files[p]
	return rec.hash, ok
}

// InFile returns the arena indices of the entities extracted from p.
func (g *Graph) InFile(p string) []int {
	rec, ok := g.files[p]
	if !ok {
		return nil
	}
	out := make([]int, rec.count)
	for i := range out {
		out[i] = rec.first + i
	}
	return out
}

// FileModule returns the module entity of p.
func (g *Graph) FileModule(p string) (int, bool) {
	rec, ok := g.files[p]
	if !ok {
		return -1, false
	}
	return rec.first, true
}

// DeclarationsNamed returns declarations whose short name is name.
func (g *Graph) DeclarationsNamed(name string) []int {
	g.buildIndex()
	return g.byName[name]
}

// ModulesNamed returns modules whose qualified name is exactly q.
func (g *Graph) ModulesNamed(q string) []int {
	g.buildIndex()
	return g.modules[q]
}

// ModuleNames returns every module qualified name in sorted order.
func (g *Graph) ModuleNames() []string {
	g.buildIndex()
	out := make([]string, 0, len(g.modules))
	for q := range g.modules {
		out = append(out, q)
	}
	sort.Strings(out)
	return out
}

// Dir returns the directory of the file that declares entity i.
func (g *Graph) Dir(i int) string {
	return path.Dir(g.Entities[i].Path)
}

// GetDependencies returns entities the given entity points to.
func (g *Graph) GetDependencies(id string) []*Entity {
	from, ok := g.ids[id]
	if !ok {
		return nil
	}
	var deps []*Entity
	for _, edge := range g.Edges {
		if edge.From == from && edge.Kind != RelationDeclares {
			deps = append(deps, &g.Entities[edge.To])
		}
	}
	return deps
}

// GetDependents returns entities that point to the given entity.
func (g *Graph) GetDependents(id string) []*Entity {
	to, ok := g.ids[id]
	if !ok {
		return nil
	}
	var deps []*Entity
	for _, edge := range g.Edges {
		if edge.To == to && edge.Kind != RelationDeclares {
			deps = append(deps, &g.Entities[edge.From])
		}
	}
	return deps
}
