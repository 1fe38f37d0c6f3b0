package main

import (
	"os"
	"path/filepath"
	"testing"

	"codeir/internal/ir"
	"codeir/internal/retrieval"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeed(t *testing.T) {
	seed, err := parseSeed("pkg/a.py")
	require.NoError(t, err)
	assert.Equal(t, retrieval.Seed{Path: "pkg/a.py"}, seed)

	seed, err = parseSeed("pkg/a.py@10,42")
	require.NoError(t, err)
	assert.Equal(t, []uint32{10, 42}, seed.Offsets)

	_, err = parseSeed("a.py@x")
	assert.Error(t, err)
}

func TestReadDocument(t *testing.T) {
	doc := &ir.Document{
		Version:    ir.Version,
		Entities:   []ir.Entity{{ID: "module:0123456789ab", Kind: "module", Name: "a", File: "a.py", Range: [2]uint32{0, 4}}},
		Edges:      []ir.Edge{},
		Unresolved: []ir.Unresolved{},
	}
	dir := t.TempDir()

	js, err := ir.EncodeJSON(doc)
	require.NoError(t, err)
	jsonPath := filepath.Join(dir, "doc.json")
	require.NoError(t, os.WriteFile(jsonPath, js, 0o644))

	ym, err := ir.EncodeYAML(doc)
	require.NoError(t, err)
	yamlPath := filepath.Join(dir, "doc.yaml")
	require.NoError(t, os.WriteFile(yamlPath, ym, 0o644))

	fromJSON, err := readDocument(jsonPath)
	require.NoError(t, err)
	fromYAML, err := readDocument(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, fromJSON.Entities, fromYAML.Entities)
	require.NoError(t, ir.ValidateDocument(fromYAML))
}
