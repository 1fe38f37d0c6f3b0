package crawler

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
	"github.com/rs/zerolog/log"

	"codeir/internal/diag"
	"codeir/internal/lang"
	"codeir/internal/source"
)

// DefaultIgnoredDirs are never descended into.
var DefaultIgnoredDirs = []string{".git", "vendor", "node_modules", "__pycache__", "target", "dist", "build", ".venv", "venv"}

type Options struct {
	Ignore       []string // glob patterns over slash paths relative to the root
	MaxFileBytes int64    // 0 means no limit
}

// Crawler discovers source files under a root directory.
type Crawler struct {
	ignored  map[string]bool
	patterns []glob.Glob
	maxBytes int64
}

// NewCrawler compiles the ignore patterns.
func NewCrawler(opts Options) (*Crawler, error) {
	c := &Crawler{
		ignored:  make(map[string]bool, len(DefaultIgnoredDirs)),
		maxBytes: opts.MaxFileBytes,
	}
	for _, d := range DefaultIgnoredDirs {
		c.ignored[d] = true
	}
	for _, p := range opts.Ignore {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, diag.Configf("ignore pattern %q: %v", p, err)
		}
		c.patterns = append(c.patterns, g)
	}
	return c, nil
}

func (c *Crawler) skip(rel string) bool {
	for _, g := range c.patterns {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

// Discover walks root in lexical order and returns every file with a known
// language. Paths are relative to root with forward slashes. Files that are
// too large or unreadable are reported and skipped.
func (c *Crawler) Discover(ctx context.Context, root string) ([]source.File, []diag.Diagnostic, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, nil, diag.Configf("project root %s: %v", root, err)
	}
	if !info.IsDir() {
		return nil, nil, diag.Configf("project root %s is not a directory", root)
	}

	var (
		files []source.File
		diags []diag.Diagnostic
	)
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)
		if err != nil {
			diags = append(diags, diag.New(diag.KindExtractionWarning, rel, 0, "unreadable: %v", err))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip ignored directories
		if d.IsDir() {
			if rel == "." {
				return nil
			}
			name := d.Name()
			if c.ignored[name] || strings.HasPrefix(name, ".") || c.skip(rel) {
				log.Debug().Str("dir", rel).Msg("crawler: skipping directory")
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || c.skip(rel) {
			return nil
		}

		l := lang.FromPath(rel)
		if l == lang.Unknown {
			return nil
		}
		if c.maxBytes > 0 {
			fi, err := d.Info()
			if err == nil && fi.Size() > c.maxBytes {
				diags = append(diags, diag.New(diag.KindExtractionWarning, rel, 0,
					"skipped: %d bytes exceeds max_file_bytes %d", fi.Size(), c.maxBytes))
				return nil
			}
		}

		content, err := os.ReadFile(path)
		if err != nil {
			diags = append(diags, diag.New(diag.KindExtractionWarning, rel, 0, "unreadable: %v", err))
			return nil
		}
		files = append(files, source.New(rel, l, content))
		return nil
	})
	if err != nil {
		return files, diags, fmt.Errorf("discover %s: %w", root, err)
	}

	sort.SliceStable(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, diags, nil
}
