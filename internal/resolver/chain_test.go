package resolver

import (
	"context"
	"errors"
	"testing"

	"codeir/internal/extractor"
	"codeir/internal/grammar"
	"codeir/internal/graph"
	"codeir/internal/lang"
	"codeir/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver struct {
	name string
	fn   func(g *graph.Graph) (ResolveStats, error)
}

func (f fakeResolver) Name() string { return f.name }
func (f fakeResolver) Resolve(g *graph.Graph) (ResolveStats, error) {
	return f.fn(g)
}

func TestResolverChain_Run(t *testing.T) {
	g := graph.NewGraph()
	g.Pending = []graph.Pending{
		{From: 0, Target: "x", Kind: graph.RelationCalls},
		{From: 1, Target: "y", Kind: graph.RelationCalls},
	}

	r1 := fakeResolver{
		name: "r1",
		fn: func(g *graph.Graph) (ResolveStats, error) {
			g.Pending = g.Pending[1:]
			return ResolveStats{Attempted: 2, Resolved: 1}, nil
		},
	}
	r2 := fakeResolver{
		name: "r2",
		fn: func(g *graph.Graph) (ResolveStats, error) {
			g.Pending = nil
			return ResolveStats{Attempted: 1, Resolved: 1}, nil
		},
	}

	results := NewResolverChain(r1, r2).Run(g)
	require.Len(t, results, 2)
	assert.Equal(t, "r1", results[0].Resolver)
	assert.Equal(t, "r2", results[1].Resolver)
	assert.Equal(t, 2, results[0].PendingBefore)
	assert.Equal(t, 1, results[0].PendingAfter)
	assert.Equal(t, 0, results[1].PendingAfter)
}

func TestResolverChain_StopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	r1 := fakeResolver{name: "r1", fn: func(*graph.Graph) (ResolveStats, error) { calls++; return ResolveStats{}, boom }}
	r2 := fakeResolver{name: "r2", fn: func(*graph.Graph) (ResolveStats, error) { calls++; return ResolveStats{}, nil }}

	g := graph.NewGraph()
	stages, err := NewResolverChain(r1, r2).Finalize(g)
	assert.ErrorIs(t, err, boom)
	require.Len(t, stages, 1)
	assert.Equal(t, 1, calls)
	assert.False(t, g.Finalized())
}

func extractAll(t *testing.T, files map[string]string, order ...string) *graph.Graph {
	t.Helper()
	reg, err := grammar.NewRegistry()
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	ex, err := extractor.NewExtractor(reg)
	require.NoError(t, err)

	g := graph.NewGraph()
	for _, p := range order {
		res, err := ex.ExtractFile(context.Background(), source.New(p, lang.FromPath(p), []byte(files[p])))
		require.NoError(t, err)
		_, err = g.Merge(res)
		require.NoError(t, err)
	}
	return g
}

func find(g *graph.Graph, kind extractor.Kind, path, name string) int {
	for i, e := range g.Entities {
		if e.Kind == kind && e.Path == path && e.Name == name {
			return i
		}
	}
	return -1
}

func edgeFrom(g *graph.Graph, from int, kind graph.RelationKind) (graph.Edge, bool) {
	for _, e := range g.Edges {
		if e.From == from && e.Kind == kind {
			return e, true
		}
	}
	return graph.Edge{}, false
}

func TestDefaultChain(t *testing.T) {
	t.Run("ImportThenCall", func(t *testing.T) {
		g := extractAll(t, map[string]string{
			"main.py": "import foo\n\nfoo.bar()\n",
		}, "main.py")
		_, err := NewDefaultChain(Options{}).Finalize(g)
		require.NoError(t, err)

		call := find(g, extractor.KindCall, "main.py", "bar")
		imp := find(g, extractor.KindImport, "main.py", "foo")
		require.GreaterOrEqual(t, call, 0)
		require.GreaterOrEqual(t, imp, 0)

		var calls []graph.Edge
		for _, e := range g.Edges {
			if e.From == call && e.Kind == graph.RelationCalls {
				calls = append(calls, e)
			}
		}
		require.Len(t, calls, 1)
		assert.Equal(t, imp, calls[0].To)
		assert.Equal(t, StageImportBinding, calls[0].Resolver)
	})

	t.Run("SameFileFirst", func(t *testing.T) {
		g := extractAll(t, map[string]string{
			"a/x.py": "def helper():\n    pass\n\nhelper()\n",
			"b/y.py": "def helper():\n    pass\n",
		}, "a/x.py", "b/y.py")
		_, err := NewDefaultChain(Options{}).Finalize(g)
		require.NoError(t, err)

		e, ok := edgeFrom(g, find(g, extractor.KindCall, "a/x.py", "helper"), graph.RelationCalls)
		require.True(t, ok)
		assert.Equal(t, find(g, extractor.KindFunction, "a/x.py", "helper"), e.To)
		assert.Equal(t, StageSameFile, e.Resolver)
	})

	t.Run("MethodOnSelf", func(t *testing.T) {
		src := "class Box:\n    def open(self):\n        self.close()\n\n    def close(self):\n        pass\n"
		g := extractAll(t, map[string]string{"box.py": src}, "box.py")
		_, err := NewDefaultChain(Options{}).Finalize(g)
		require.NoError(t, err)

		e, ok := edgeFrom(g, find(g, extractor.KindCall, "box.py", "close"), graph.RelationCalls)
		require.True(t, ok)
		assert.Equal(t, find(g, extractor.KindFunction, "box.py", "close"), e.To)
	})

	t.Run("ModulePath", func(t *testing.T) {
		g := extractAll(t, map[string]string{
			"pkg/util.py": "def helper():\n    pass\n",
			"app.py":      "from pkg.util import helper\n\nhelper()\n",
		}, "app.py", "pkg/util.py")
		_, err := NewDefaultChain(Options{}).Finalize(g)
		require.NoError(t, err)

		imp := find(g, extractor.KindImport, "app.py", "helper")
		e, ok := edgeFrom(g, imp, graph.RelationImports)
		require.True(t, ok)
		mod, _ := g.FileModule("pkg/util.py")
		assert.Equal(t, mod, e.To)
		assert.Equal(t, StageModulePath, e.Resolver)

		call, ok := edgeFrom(g, find(g, extractor.KindCall, "app.py", "helper"), graph.RelationCalls)
		require.True(t, ok)
		assert.Equal(t, imp, call.To)
	})

	t.Run("FuzzyUnique", func(t *testing.T) {
		g := extractAll(t, map[string]string{
			"a.py": "def only_here():\n    pass\n",
			"b.py": "only_here()\n",
		}, "a.py", "b.py")
		_, err := NewDefaultChain(Options{}).Finalize(g)
		require.NoError(t, err)

		e, ok := edgeFrom(g, find(g, extractor.KindCall, "b.py", "only_here"), graph.RelationCalls)
		require.True(t, ok)
		assert.Equal(t, StageFuzzy, e.Resolver)
		assert.Less(t, e.Confidence, extractor.CalibrateRelationConfidence(graph.RelationCalls, StageSameFile))
	})

	t.Run("FuzzyAmbiguous", func(t *testing.T) {
		files := map[string]string{
			"x/a.py": "def dup():\n    pass\n",
			"y/b.py": "def dup():\n    pass\n",
			"x/c.py": "dup()\n",
		}
		g := extractAll(t, files, "x/a.py", "y/b.py", "x/c.py")
		_, err := NewDefaultChain(Options{}).Finalize(g)
		require.NoError(t, err)

		call := find(g, extractor.KindCall, "x/c.py", "dup")
		_, ok := edgeFrom(g, call, graph.RelationCalls)
		assert.False(t, ok)
		require.Len(t, g.Unresolved, 1)
		assert.Equal(t, graph.ReasonAmbiguous, g.Unresolved[0].Reason)
		assert.Equal(t, 2, g.Unresolved[0].Candidates)

		g = extractAll(t, files, "x/a.py", "y/b.py", "x/c.py")
		_, err = NewDefaultChain(Options{PreferSameDirectory: true}).Finalize(g)
		require.NoError(t, err)
		e, ok := edgeFrom(g, find(g, extractor.KindCall, "x/c.py", "dup"), graph.RelationCalls)
		require.True(t, ok)
		assert.Equal(t, find(g, extractor.KindFunction, "x/a.py", "dup"), e.To)
	})

	t.Run("NoCandidate", func(t *testing.T) {
		g := extractAll(t, map[string]string{"a.py": "missing()\n"}, "a.py")
		stages, err := NewDefaultChain(Options{}).Finalize(g)
		require.NoError(t, err)
		require.Len(t, stages, 4)
		require.Len(t, g.Unresolved, 1)
		assert.Equal(t, graph.ReasonNoCandidate, g.Unresolved[0].Reason)
		assert.Equal(t, "missing", g.Unresolved[0].Target)
	})
}

func TestModulePathGoPackage(t *testing.T) {
	g := extractAll(t, map[string]string{
		"internal/store/a.go": "package store\n\nfunc Open() {}\n",
		"internal/store/b.go": "package store\n\nfunc Close() {}\n",
		"cmd/main.go":         "package main\n\nimport \"example.com/app/internal/store\"\n\nfunc main() { store.Open() }\n",
	}, "cmd/main.go", "internal/store/b.go", "internal/store/a.go")
	_, err := NewDefaultChain(Options{}).Finalize(g)
	require.NoError(t, err)

	imp := find(g, extractor.KindImport, "cmd/main.go", "store")
	require.GreaterOrEqual(t, imp, 0)
	e, ok := edgeFrom(g, imp, graph.RelationImports)
	require.True(t, ok)
	assert.Equal(t, "internal/store/a.go", g.Entities[e.To].Path)
}
