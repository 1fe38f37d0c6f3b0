package retrieval

import (
	"testing"

	"codeir/internal/ir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a.py defines A, b.py's B calls A, c.py's C calls B.
func sampleDoc() *ir.Document {
	ent := func(id, kind, file string, start, end uint32, parent string) ir.Entity {
		return ir.Entity{ID: id, Kind: kind, Name: id, File: file, Range: [2]uint32{start, end}, ParentID: parent}
	}
	return &ir.Document{
		Version: ir.Version,
		Entities: []ir.Entity{
			ent("ma", "module", "a.py", 0, 100, ""),
			ent("A", "function", "a.py", 10, 40, "ma"),
			ent("mb", "module", "b.py", 0, 50, ""),
			ent("B", "function", "b.py", 0, 30, "mb"),
			ent("cb", "call", "b.py", 5, 10, "B"),
			ent("mc", "module", "c.py", 0, 50, ""),
			ent("C", "function", "c.py", 0, 30, "mc"),
			ent("cc", "call", "c.py", 5, 10, "C"),
		},
		Edges: []ir.Edge{
			{FromID: "ma", ToID: "A", Kind: "declares"},
			{FromID: "mb", ToID: "B", Kind: "declares"},
			{FromID: "mc", ToID: "C", Kind: "declares"},
			{FromID: "cb", ToID: "A", Kind: "calls"},
			{FromID: "cc", ToID: "B", Kind: "calls"},
		},
		Unresolved: []ir.Unresolved{
			{FromID: "cc", Target: "missing", Kind: "calls", Reason: "no_candidate"},
		},
	}
}

func ids(es []ir.Entity) []string {
	out := make([]string, 0, len(es))
	for _, e := range es {
		out = append(out, e.ID)
	}
	return out
}

func TestExtract_SeedsOnly(t *testing.T) {
	s := Extract(sampleDoc(), []Seed{{Path: "b.py", Offsets: []uint32{5}}}, Config{MaxHops: 0})

	assert.Equal(t, []string{"B", "cb", "mb"}, s.SeedIDs)
	assert.Equal(t, []string{"mb", "B", "cb"}, ids(s.Document.Entities))
	require.Len(t, s.Document.Edges, 1)
	assert.Equal(t, "declares", s.Document.Edges[0].Kind)
	assert.Empty(t, s.Document.Unresolved)
}

func TestExtract_Dependents(t *testing.T) {
	s := Extract(sampleDoc(), []Seed{{Path: "a.py", Offsets: []uint32{15}}}, Config{MaxHops: 2, Direction: Dependents})

	direct, indirect := s.Affected()
	assert.Equal(t, []string{"A", "ma"}, direct)
	assert.Equal(t, []string{"cb"}, indirect)

	// B and mb are ancestors of cb, kept for parent ids only.
	assert.Equal(t, []string{"ma", "A", "mb", "B", "cb"}, ids(s.Document.Entities))
	assert.Len(t, s.Document.Edges, 3)
	assert.NotContains(t, s.Depth, "cc")
}

func TestExtract_AllowedKinds(t *testing.T) {
	s := Extract(sampleDoc(), []Seed{{Path: "c.py"}}, Config{MaxHops: 3, AllowedKinds: map[string]bool{"calls": true}})

	assert.Equal(t, 1, s.Depth["B"])
	assert.NotContains(t, s.Depth, "A")
	assert.Equal(t, []string{"mb", "B", "mc", "C", "cc"}, ids(s.Document.Entities))
	assert.Equal(t, []ir.Edge{{FromID: "cc", ToID: "B", Kind: "calls"}}, s.Document.Edges)
	require.Len(t, s.Document.Unresolved, 1)
	assert.Equal(t, "missing", s.Document.Unresolved[0].Target)
}

func TestExtract_Edges(t *testing.T) {
	t.Run("NoSeeds", func(t *testing.T) {
		s := Extract(sampleDoc(), []Seed{{Path: "zzz.py"}}, DefaultConfig())
		assert.Empty(t, s.SeedIDs)
		assert.Empty(t, s.Document.Entities)
		assert.NotNil(t, s.Document.Edges)
	})

	t.Run("NilDocument", func(t *testing.T) {
		s := Extract(nil, nil, DefaultConfig())
		assert.Equal(t, ir.Version, s.Document.Version)
	})

	t.Run("KeepsHeader", func(t *testing.T) {
		doc := sampleDoc()
		doc.Truncated = true
		s := Extract(doc, []Seed{{Path: "a.py"}}, Config{MaxHops: -1})
		assert.True(t, s.Document.Truncated)
		assert.Equal(t, []string{"ma", "A"}, ids(s.Document.Entities))
	})
}
