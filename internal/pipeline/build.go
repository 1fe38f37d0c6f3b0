package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"codeir/internal/config"
	"codeir/internal/crawler"
	"codeir/internal/diag"
	"codeir/internal/extractor"
	"codeir/internal/grammar"
	"codeir/internal/index"
	"codeir/internal/ir"
	"codeir/internal/metadata"
	"codeir/internal/source"
	"codeir/internal/storage"
)

// Build runs discovery, indexing and output formatting for one project root.
type Build struct {
	Config *config.Config
	Store  storage.Store // optional IR cache

	// OnDiscover is called once with the number of files to index.
	OnDiscover func(n int)
	// OnFile is called after each file is merged.
	OnFile func(path string)
}

// Outcome is what a build produced.
type Outcome struct {
	Key         string
	Document    *ir.Document
	JSON        []byte // canonical form
	Output      []byte // in the configured format
	Diagnostics []diag.Diagnostic
	Files       int
	CacheHit    bool
	Partial     bool
}

func NewBuild(cfg *config.Config, store storage.Store) *Build {
	return &Build{Config: cfg, Store: store}
}

// Run executes the build. A cancelled context yields the partial outcome
// together with the context error.
func (b *Build) Run(ctx context.Context) (*Outcome, error) {
	if b.Config == nil {
		return nil, diag.Configf("build requires a configuration")
	}
	if err := b.Config.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	root := b.Config.Project.Root

	files, diags, err := b.discoverStage(ctx, root)
	if err != nil {
		return nil, err
	}
	project, projectDiags := b.projectStage(root)
	diags = append(diags, projectDiags...)

	extra := []string{fmt.Sprintf("languages=%v", b.Config.Languages)}
	if b.Config.Budget.MaxBytes > 0 || b.Config.Budget.MaxTokens > 0 {
		// Byte and token limits are measured in the output format.
		extra = append(extra, "format="+b.Config.Output.Format)
	}
	key := index.RunKey(files, b.Config.Budget, b.Config.ResolverOptions(), project, extra...)

	if out, ok := b.cacheStage(ctx, key, diags); ok {
		log.Info().Str("key", key[:12]).Dur("elapsed", time.Since(start)).Msg("pipeline: cache hit")
		return b.formatStage(out)
	}

	out, runErr := b.indexStage(ctx, files, project)
	if out == nil {
		return nil, runErr
	}
	out.Key = key
	if runErr == nil {
		b.saveStage(ctx, out, files)
	}
	// Discovery and manifest diagnostics are never cached.
	out.Diagnostics = append(diags, out.Diagnostics...)
	diag.Sort(out.Diagnostics)
	log.Info().Int("files", out.Files).Int("entities", len(out.Document.Entities)).
		Bool("truncated", out.Document.Truncated).Dur("elapsed", time.Since(start)).Msg("pipeline: build finished")

	out, err = b.formatStage(out)
	if err != nil {
		return nil, err
	}
	return out, runErr
}

func (b *Build) discoverStage(ctx context.Context, root string) ([]source.File, []diag.Diagnostic, error) {
	cr, err := crawler.NewCrawler(crawler.Options{
		Ignore:       b.Config.Discovery.Ignore,
		MaxFileBytes: b.Config.Discovery.MaxFileBytes,
	})
	if err != nil {
		return nil, nil, err
	}
	files, diags, err := cr.Discover(ctx, root)
	if err != nil {
		return nil, nil, err
	}
	log.Debug().Str("root", root).Int("files", len(files)).Msg("pipeline: discovered files")
	if b.OnDiscover != nil {
		b.OnDiscover(len(files))
	}
	return files, diags, nil
}

func (b *Build) projectStage(root string) (*metadata.Project, []diag.Diagnostic) {
	var diags []diag.Diagnostic
	project, err := metadata.Detect(root)
	if err != nil {
		diags = append(diags, diag.New(diag.KindExtractionWarning, "", 0, "project manifest: %v", err))
		project = nil
	}
	if name := b.Config.Project.Name; name != "" {
		if project == nil {
			project = &metadata.Project{Name: name}
		} else {
			project.Name = name
		}
	}
	if project == nil {
		log.Debug().Str("root", root).Msg("pipeline: no project manifest")
	}
	return project, diags
}

func (b *Build) cacheStage(ctx context.Context, key string, diags []diag.Diagnostic) (*Outcome, bool) {
	if b.Store == nil {
		return nil, false
	}
	entry, err := b.Store.LoadDocument(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: cache lookup failed")
		return nil, false
	}
	doc, err := ir.DecodeJSON(entry.Data)
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: cached document is unreadable")
		return nil, false
	}
	all := append(append([]diag.Diagnostic(nil), diags...), entry.Diagnostics...)
	diag.Sort(all)
	return &Outcome{
		Key:         key,
		Document:    doc,
		JSON:        entry.Data,
		Diagnostics: all,
		Files:       len(entry.Files),
		CacheHit:    true,
	}, true
}

func (b *Build) indexStage(ctx context.Context, files []source.File, project *metadata.Project) (*Outcome, error) {
	opts, err := b.Config.RegistryOptions()
	if err != nil {
		return nil, diag.Configf("%v", err)
	}
	reg, err := grammar.NewRegistry(opts...)
	if err != nil {
		return nil, diag.Configf("%v", err)
	}
	defer reg.Close()

	ex, err := extractor.NewExtractor(reg)
	if err != nil {
		return nil, err
	}
	ix, err := index.NewIndexer(ex, index.Options{
		Workers: b.Config.Workers,
		Budget:  b.Config.Budget,
		Resolve: b.Config.ResolverOptions(),
		Project: project,
		Format:  b.Config.Output.Format,
		OnFile:  b.OnFile,
	})
	if err != nil {
		return nil, err
	}

	res, err := ix.Build(ctx, files)
	if res == nil {
		return nil, err
	}
	for _, s := range res.Stages {
		log.Debug().Str("resolver", s.Resolver).Int("attempted", s.Stats.Attempted).
			Int("resolved", s.Stats.Resolved).Int("ambiguous", s.Stats.Skipped).
			Int("pending", s.PendingAfter).Msg("pipeline: resolver stage")
	}
	return &Outcome{
		Document:    res.Document,
		JSON:        res.Bytes,
		Diagnostics: res.Diagnostics,
		Files:       res.Files,
		Partial:     res.Partial,
	}, err
}

// saveStage caches complete runs. Cache failures are logged, never fatal.
func (b *Build) saveStage(ctx context.Context, out *Outcome, files []source.File) {
	if b.Store == nil || out.Partial {
		return
	}
	snapshot := make(map[string]string, len(files))
	for _, f := range files {
		snapshot[f.Path] = f.Hash
	}
	err := b.Store.SaveDocument(ctx, &storage.Entry{
		Key:         out.Key,
		Data:        out.JSON,
		Entities:    len(out.Document.Entities),
		Truncated:   out.Document.Truncated,
		Diagnostics: out.Diagnostics,
		Files:       snapshot,
	})
	if err != nil {
		log.Warn().Err(err).Msg("pipeline: failed to cache document")
	}
}

func (b *Build) formatStage(out *Outcome) (*Outcome, error) {
	switch b.Config.Output.Format {
	case "yaml":
		data, err := ir.EncodeYAML(out.Document)
		if err != nil {
			return nil, err
		}
		out.Output = data
	default:
		out.Output = out.JSON
	}
	return out, nil
}

// DefaultCachePath places the cache next to the project root.
func DefaultCachePath(root string) string {
	return filepath.Join(root, ".codeir", "cache.db")
}
