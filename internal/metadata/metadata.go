// Package metadata reads project manifests for the IR project header.
package metadata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Project is the manifest summary emitted in the IR document.
type Project struct {
	Name         string   `json:"name" yaml:"name"`
	Version      string   `json:"version,omitempty" yaml:"version,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	Manifest     string   `json:"manifest" yaml:"manifest"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Manifests are probed in this order; the first one present wins.
var Manifests = []string{"Cargo.toml", "pyproject.toml", "package.json"}

// Detect reads the first manifest found in root. It returns nil without error
// when root has none.
func Detect(root string) (*Project, error) {
	for _, name := range Manifests {
		data, err := os.ReadFile(filepath.Join(root, name))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		p, err := Parse(name, data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		return p, nil
	}
	return nil, nil
}

// Parse decodes a manifest by its file name.
func Parse(name string, data []byte) (*Project, error) {
	var (
		p   *Project
		err error
	)
	switch name {
	case "Cargo.toml":
		p, err = parseCargo(data)
	case "pyproject.toml":
		p, err = parsePyproject(data)
	case "package.json":
		p, err = parsePackageJSON(data)
	default:
		return nil, fmt.Errorf("unknown manifest %q", name)
	}
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	p.Manifest = name
	p.Dependencies = normalizeDeps(p.Dependencies)
	return p, nil
}

type cargoManifest struct {
	Package struct {
		Name        string `toml:"name"`
		Version     any    `toml:"version"`
		Description string `toml:"description"`
	} `toml:"package"`
	Dependencies map[string]any `toml:"dependencies"`
}

func parseCargo(data []byte) (*Project, error) {
	var m cargoManifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, err
	}
	if m.Package.Name == "" {
		// Workspace roots carry no [package].
		return nil, nil
	}
	p := &Project{
		Name:        m.Package.Name,
		Description: m.Package.Description,
	}
	// version.workspace = true leaves a table here.
	if v, ok := m.Package.Version.(string); ok {
		p.Version = v
	}
	for dep := range m.Dependencies {
		p.Dependencies = append(p.Dependencies, dep)
	}
	return p, nil
}

type pyprojectManifest struct {
	Project struct {
		Name         string   `toml:"name"`
		Version      string   `toml:"version"`
		Description  string   `toml:"description"`
		Dependencies []string `toml:"dependencies"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Name         string         `toml:"name"`
			Version      string         `toml:"version"`
			Description  string         `toml:"description"`
			Dependencies map[string]any `toml:"dependencies"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func parsePyproject(data []byte) (*Project, error) {
	var m pyprojectManifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, err
	}

	if m.Project.Name != "" {
		p := &Project{
			Name:        m.Project.Name,
			Version:     m.Project.Version,
			Description: m.Project.Description,
		}
		for _, req := range m.Project.Dependencies {
			p.Dependencies = append(p.Dependencies, requirementName(req))
		}
		return p, nil
	}

	poetry := m.Tool.Poetry
	if poetry.Name == "" {
		return nil, nil
	}
	p := &Project{
		Name:        poetry.Name,
		Version:     poetry.Version,
		Description: poetry.Description,
	}
	for dep := range poetry.Dependencies {
		if dep != "python" {
			p.Dependencies = append(p.Dependencies, dep)
		}
	}
	return p, nil
}

// requirementName cuts a PEP 508 requirement down to the distribution name.
func requirementName(req string) string {
	req = strings.TrimSpace(req)
	if i := strings.IndexAny(req, "<>=!~;[( @"); i >= 0 {
		req = req[:i]
	}
	return req
}

type packageJSON struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Description  string            `json:"description"`
	Dependencies map[string]string `json:"dependencies"`
}

func parsePackageJSON(data []byte) (*Project, error) {
	var m packageJSON
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m.Name == "" {
		return nil, nil
	}
	p := &Project{Name: m.Name, Version: m.Version, Description: m.Description}
	for dep := range m.Dependencies {
		p.Dependencies = append(p.Dependencies, dep)
	}
	return p, nil
}

func normalizeDeps(deps []string) []string {
	seen := make(map[string]bool, len(deps))
	var out []string
	for _, d := range deps {
		d = strings.TrimSpace(d)
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
