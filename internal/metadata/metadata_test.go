package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("Cargo", func(t *testing.T) {
		p, err := Parse("Cargo.toml", []byte(`
[package]
name = "demo"
version = "0.3.1"
description = "A demo crate"

[dependencies]
serde = { version = "1", features = ["derive"] }
anyhow = "1.0"
`))
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "demo", p.Name)
		assert.Equal(t, "0.3.1", p.Version)
		assert.Equal(t, "Cargo.toml", p.Manifest)
		assert.Equal(t, []string{"anyhow", "serde"}, p.Dependencies)
	})

	t.Run("CargoWorkspaceVersion", func(t *testing.T) {
		p, err := Parse("Cargo.toml", []byte("[package]\nname = \"member\"\nversion.workspace = true\n"))
		require.NoError(t, err)
		assert.Equal(t, "member", p.Name)
		assert.Empty(t, p.Version)
	})

	t.Run("CargoWorkspaceRoot", func(t *testing.T) {
		p, err := Parse("Cargo.toml", []byte("[workspace]\nmembers = [\"a\"]\n"))
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("PEP621", func(t *testing.T) {
		p, err := Parse("pyproject.toml", []byte(`
[project]
name = "tool"
version = "2.0"
dependencies = ["requests>=2.31", "pyyaml", "rich[jupyter] ; python_version>'3.8'", "pyyaml==6"]
`))
		require.NoError(t, err)
		assert.Equal(t, "tool", p.Name)
		assert.Equal(t, []string{"pyyaml", "requests", "rich"}, p.Dependencies)
	})

	t.Run("Poetry", func(t *testing.T) {
		p, err := Parse("pyproject.toml", []byte(`
[tool.poetry]
name = "legacy"
version = "0.1.0"

[tool.poetry.dependencies]
python = "^3.10"
click = "^8"
`))
		require.NoError(t, err)
		assert.Equal(t, "legacy", p.Name)
		assert.Equal(t, []string{"click"}, p.Dependencies)
	})

	t.Run("PackageJSON", func(t *testing.T) {
		p, err := Parse("package.json", []byte(`{"name":"web","version":"1.2.3","dependencies":{"react":"^18","axios":"1"}}`))
		require.NoError(t, err)
		assert.Equal(t, "web", p.Name)
		assert.Equal(t, []string{"axios", "react"}, p.Dependencies)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := Parse("Cargo.toml", []byte("[package\nname="))
		assert.Error(t, err)
		_, err = Parse("setup.cfg", nil)
		assert.Error(t, err)
	})
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	p, err := Detect(dir)
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(`{"name":"web"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pyproject.toml"), []byte("[project]\nname = \"py\"\n"), 0o644))

	p, err = Detect(dir)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "py", p.Name)
	assert.Equal(t, "pyproject.toml", p.Manifest)
}
