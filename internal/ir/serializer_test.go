package ir

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"codeir/internal/diag"
	"codeir/internal/extractor"
	"codeir/internal/grammar"
	"codeir/internal/graph"
	"codeir/internal/lang"
	"codeir/internal/metadata"
	"codeir/internal/resolver"
	"codeir/internal/source"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sources = map[string]string{
	"pkg/util.py": "import os\n\ndef helper(x: int) -> int:\n    return os.getpid() + x\n\nclass Cache:\n    def get(self, key):\n        return helper(key)\n",
	"app.py":      "from pkg.util import helper, Cache\n\ndef main():\n    c = Cache()\n    print(helper(1), c.get(2))\n\nmain()\n",
}

func buildGraph(t *testing.T) *graph.Graph {
	t.Helper()
	reg, err := grammar.NewRegistry()
	require.NoError(t, err)
	t.Cleanup(reg.Close)
	ex, err := extractor.NewExtractor(reg)
	require.NoError(t, err)

	g := graph.NewGraph()
	for _, p := range []string{"app.py", "pkg/util.py"} {
		res, err := ex.ExtractFile(context.Background(), source.New(p, lang.Python, []byte(sources[p])))
		require.NoError(t, err)
		_, err = g.Merge(res)
		require.NoError(t, err)
	}
	_, err = resolver.NewDefaultChain(resolver.Options{}).Finalize(g)
	require.NoError(t, err)
	return g
}

func TestSerialize(t *testing.T) {
	t.Run("Unlimited", func(t *testing.T) {
		g := buildGraph(t)
		doc, data, err := Serialize(g, Budget{})
		require.NoError(t, err)
		assert.False(t, doc.Truncated)
		assert.Empty(t, doc.Diagnostics)
		assert.Len(t, doc.Entities, len(g.Entities))
		assert.Equal(t, Version, doc.Version)
		require.NoError(t, Validate(data))

		ids := make(map[string]bool)
		for _, e := range doc.Entities {
			ids[e.ID] = true
		}
		for _, e := range doc.Edges {
			assert.True(t, ids[e.FromID], "edge source %s", e.FromID)
			assert.True(t, ids[e.ToID], "edge target %s", e.ToID)
		}
	})

	t.Run("Signatures", func(t *testing.T) {
		doc, data, err := Serialize(buildGraph(t), Budget{})
		require.NoError(t, err)
		sigs := make(map[string]string)
		for _, e := range doc.Entities {
			if e.Signature != "" {
				sigs[e.Name] = e.Signature
			}
		}
		assert.Equal(t, "def helper(x: int) -> int", sigs["helper"])
		assert.Equal(t, "class Cache", sigs["Cache"])
		assert.Contains(t, string(data), `"signature":"def main()"`)
		require.NoError(t, Validate(data))
	})

	t.Run("Deterministic", func(t *testing.T) {
		_, a, err := Serialize(buildGraph(t), Budget{MaxEntities: 7})
		require.NoError(t, err)
		_, b, err := Serialize(buildGraph(t), Budget{MaxEntities: 7})
		require.NoError(t, err)
		assert.Equal(t, string(a), string(b))
	})

	t.Run("Ordering", func(t *testing.T) {
		doc, _, err := Serialize(buildGraph(t), Budget{})
		require.NoError(t, err)
		for i := 1; i < len(doc.Entities); i++ {
			prev, cur := doc.Entities[i-1], doc.Entities[i]
			if prev.File == cur.File {
				assert.LessOrEqual(t, prev.Range[0], cur.Range[0])
			} else {
				assert.Less(t, prev.File, cur.File)
			}
		}
	})

	t.Run("EntityBudget", func(t *testing.T) {
		g := buildGraph(t)
		doc, data, err := Serialize(g, Budget{MaxEntities: 6})
		require.NoError(t, err)
		assert.True(t, doc.Truncated)
		assert.Len(t, doc.Entities, 6)
		require.Len(t, doc.Diagnostics, 1)
		assert.Equal(t, diag.KindBudgetExceeded, doc.Diagnostics[0].Kind)
		require.NoError(t, Validate(data))

		for _, e := range doc.Entities {
			assert.NotContains(t, []string{"reference", "call", "import"}, e.Kind, "low tiers go first")
		}
	})

	t.Run("ByteBudget", func(t *testing.T) {
		g := buildGraph(t)
		_, full, err := Serialize(g, Budget{})
		require.NoError(t, err)

		limit := len(full) / 2
		require.GreaterOrEqual(t, limit, MinBytes)
		doc, data, err := Serialize(g, Budget{MaxBytes: limit})
		require.NoError(t, err)
		assert.True(t, doc.Truncated)
		assert.LessOrEqual(t, len(data), limit)

		doc, data, err = Serialize(g, Budget{MaxBytes: len(full) + 100})
		require.NoError(t, err)
		assert.False(t, doc.Truncated)
		assert.Equal(t, full, data)
	})

	t.Run("YAMLByteBudget", func(t *testing.T) {
		g := buildGraph(t)
		doc, _, err := Serialize(g, Budget{})
		require.NoError(t, err)
		full, err := EncodeYAML(doc)
		require.NoError(t, err)

		limit := len(full) / 2
		require.GreaterOrEqual(t, limit, MinBytes)
		doc, data, err := Serialize(g, Budget{MaxBytes: limit}, WithFormat("yaml"))
		require.NoError(t, err)
		assert.True(t, doc.Truncated)
		out, err := EncodeYAML(doc)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(out), limit)
		require.NoError(t, Validate(data), "returned bytes stay canonical JSON")
	})

	t.Run("TokenBudget", func(t *testing.T) {
		g := buildGraph(t)
		_, full, err := Serialize(g, Budget{})
		require.NoError(t, err)

		limit := EstimateTokens(len(full)) - 20
		doc, data, err := Serialize(g, Budget{MaxTokens: limit})
		require.NoError(t, err)
		assert.True(t, doc.Truncated)
		assert.LessOrEqual(t, EstimateTokens(len(data)), limit)
	})

	t.Run("ParentRepointed", func(t *testing.T) {
		doc, _, err := Serialize(buildGraph(t), Budget{MaxEntities: 5})
		require.NoError(t, err)
		ids := make(map[string]bool)
		for _, e := range doc.Entities {
			ids[e.ID] = true
		}
		for _, e := range doc.Entities {
			if e.ParentID != "" {
				assert.True(t, ids[e.ParentID], "parent of %s must survive", e.Name)
			}
		}
	})

	t.Run("ProjectDroppedLast", func(t *testing.T) {
		var deps []string
		for i := 0; i < 200; i++ {
			deps = append(deps, fmt.Sprintf("dependency-%03d", i))
		}
		project := &metadata.Project{Name: "demo", Manifest: "pyproject.toml", Dependencies: deps}

		g := buildGraph(t)
		doc, data, err := Serialize(g, Budget{MaxBytes: 2048}, WithProject(project))
		require.NoError(t, err)
		assert.True(t, doc.Truncated)
		assert.Nil(t, doc.Project)
		assert.Empty(t, doc.Entities)
		assert.LessOrEqual(t, len(data), 2048)
		assert.Contains(t, doc.Diagnostics[0].Message, "project metadata")

		doc, data, err = Serialize(g, Budget{}, WithProject(project))
		require.NoError(t, err)
		require.NotNil(t, doc.Project)
		require.NoError(t, Validate(data))
	})

	t.Run("Errors", func(t *testing.T) {
		_, _, err := Serialize(graph.NewGraph(), Budget{})
		assert.ErrorIs(t, err, ErrNotFinalized)

		g := buildGraph(t)
		_, _, err = Serialize(g, Budget{MaxEntities: -1})
		assert.ErrorIs(t, err, diag.ErrConfiguration)
		_, _, err = Serialize(g, Budget{MaxBytes: 10})
		assert.ErrorIs(t, err, diag.ErrConfiguration)
	})
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate([]byte(`{"version":"1.0.0","entities":[],"edges":[],"unresolved":[],"truncated":false}`)))
	assert.Error(t, Validate([]byte(`{"version":"1.0.0","entities":[]}`)))
	assert.Error(t, Validate([]byte(`{"version":"1.0.0","entities":[{"id":"x","kind":"module","name":"m","file":"a","range":[0,1]}],"edges":[],"unresolved":[],"truncated":false}`)))
	assert.Error(t, Validate([]byte(`not json`)))
	assert.Error(t, ValidateDocument(nil))
	assert.Contains(t, Schema(), "codeir://ir.schema.json")
}

func TestEncodeYAML(t *testing.T) {
	doc, data, err := Serialize(buildGraph(t), Budget{})
	require.NoError(t, err)

	out, err := EncodeYAML(doc)
	require.NoError(t, err)
	text := string(out)
	assert.True(t, strings.HasPrefix(text, "version: 1.1.0\n"))
	assert.Contains(t, text, "truncated: false")
	assert.Contains(t, text, "range: [")

	back, err := DecodeJSON(data)
	require.NoError(t, err)
	assert.Equal(t, doc.Entities, back.Entities)
}
