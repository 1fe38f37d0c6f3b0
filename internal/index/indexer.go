package index

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"codeir/internal/diag"
	"codeir/internal/extractor"
	"codeir/internal/grammar"
	"codeir/internal/graph"
	"codeir/internal/ir"
	"codeir/internal/metadata"
	"codeir/internal/resolver"
	"codeir/internal/source"
	"codeir/internal/syntax"
)

type Options struct {
	Workers int // 0 means GOMAXPROCS
	Budget  ir.Budget
	Resolve resolver.Options
	Project *metadata.Project
	Format  string // output format the byte budget is measured in, json by default

	// OnFile is called by the collector after each file is merged.
	OnFile func(path string)
}

// Indexer orchestrates extraction, merge, resolution and serialization.
type Indexer struct {
	extractor *extractor.Extractor
	opts      Options
}

// Result is the outcome of one run.
type Result struct {
	Document    *ir.Document
	Bytes       []byte
	Diagnostics []diag.Diagnostic
	Stages      []resolver.StageResult
	Files       int // files merged into the graph
	Partial     bool
}

// NewIndexer validates opts. Invalid options are configuration errors.
func NewIndexer(ex *extractor.Extractor, opts Options) (*Indexer, error) {
	if ex == nil {
		return nil, diag.Configf("indexer requires an extractor")
	}
	if opts.Workers < 0 {
		return nil, diag.Configf("workers must not be negative, got %d", opts.Workers)
	}
	if err := opts.Budget.Validate(); err != nil {
		return nil, err
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	return &Indexer{extractor: ex, opts: opts}, nil
}

type extracted struct {
	seq   int
	res   *extractor.FileResult
	diags []diag.Diagnostic
}

// Build runs the pipeline over files.
//
// Files are extracted concurrently and merged by a single collector in input
// order. Once every merge is done the graph is resolved and serialized. If ctx
// is cancelled, no further files are started and the files merged so far are
// still resolved and serialized: the partial Result is returned with ctx.Err().
func (ix *Indexer) Build(ctx context.Context, files []source.File) (*Result, error) {
	g := graph.NewGraph()
	results := make(chan extracted, ix.opts.Workers)

	var (
		diags  []diag.Diagnostic
		merged int
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		merge := func(it extracted) {
			diags = append(diags, it.diags...)
			if it.res == nil {
				return
			}
			collisions, err := g.Merge(it.res)
			if err != nil {
				diags = append(diags, diag.New(diag.KindExtractionWarning, it.res.Path, 0, "merge: %v", err))
				return
			}
			diags = append(diags, it.res.Diagnostics...)
			diags = append(diags, collisions...)
			merged++
			if ix.opts.OnFile != nil {
				ix.opts.OnFile(it.res.Path)
			}
		}

		// Reorder buffer: merge strictly in input order.
		buffered := make(map[int]extracted)
		next := 0
		for it := range results {
			buffered[it.seq] = it
			for {
				cur, ok := buffered[next]
				if !ok {
					break
				}
				delete(buffered, next)
				merge(cur)
				next++
			}
		}

		// Gaps left by cancellation.
		rest := make([]int, 0, len(buffered))
		for seq := range buffered {
			rest = append(rest, seq)
		}
		sort.Ints(rest)
		for _, seq := range rest {
			merge(buffered[seq])
		}
	}()

	var eg errgroup.Group
	eg.SetLimit(ix.opts.Workers)
	for seq, f := range files {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			results <- ix.extract(ctx, seq, f)
			return nil
		})
	}
	_ = eg.Wait()
	close(results)
	<-done

	// Barrier: every merge has completed.
	cancelErr := ctx.Err()
	stages, err := resolver.NewDefaultChain(ix.opts.Resolve).Finalize(g)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}
	diags = append(diags, ambiguityDiagnostics(g)...)
	log.Debug().Interface("edges", g.EdgeKindCounts()).Interface("resolved_by", g.ResolvedBy()).
		Interface("unresolved", g.UnresolvedReasonCounts()).Msg("index: graph finalized")

	var opts []ir.Option
	if ix.opts.Project != nil {
		opts = append(opts, ir.WithProject(ix.opts.Project))
	}
	if ix.opts.Format != "" {
		opts = append(opts, ir.WithFormat(ix.opts.Format))
	}
	doc, data, err := ir.Serialize(g, ix.opts.Budget, opts...)
	if err != nil {
		return nil, fmt.Errorf("serialize: %w", err)
	}
	diags = append(diags, doc.Diagnostics...)

	diag.Sort(diags)
	for _, d := range diags {
		logDiagnostic(d)
	}

	res := &Result{
		Document:    doc,
		Bytes:       data,
		Diagnostics: diags,
		Stages:      stages,
		Files:       merged,
		Partial:     cancelErr != nil,
	}
	log.Debug().Int("files", merged).Int("entities", len(doc.Entities)).Int("edges", len(doc.Edges)).
		Int("unresolved", len(doc.Unresolved)).Bool("truncated", doc.Truncated).Msg("index: build finished")
	return res, cancelErr
}

func (ix *Indexer) extract(ctx context.Context, seq int, f source.File) extracted {
	res, err := ix.extractor.ExtractFile(ctx, f)
	if err == nil {
		return extracted{seq: seq, res: res}
	}

	var kind diag.Kind
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return extracted{seq: seq}
	case errors.Is(err, grammar.ErrUnsupportedLanguage):
		kind = diag.KindUnsupportedLanguage
	case errors.Is(err, syntax.ErrMalformedSyntaxTree):
		kind = diag.KindMalformedSyntax
	default:
		kind = diag.KindExtractionWarning
	}
	return extracted{seq: seq, diags: []diag.Diagnostic{diag.New(kind, f.Path, 0, "file skipped: %v", err)}}
}

func ambiguityDiagnostics(g *graph.Graph) []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, u := range g.Unresolved {
		if u.Reason != graph.ReasonAmbiguous {
			continue
		}
		e := g.Entities[u.From]
		out = append(out, diag.New(diag.KindAmbiguousReference, e.Path, e.Start,
			"%s target %q matches %d candidates", u.Kind, u.Target, u.Candidates))
	}
	return out
}

func logDiagnostic(d diag.Diagnostic) {
	ev := log.Warn()
	switch d.Kind {
	case diag.KindIDCollision, diag.KindAmbiguousReference:
		ev = log.Debug()
	}
	ev.Str("kind", string(d.Kind)).Str("path", d.Path).Uint32("offset", d.Offset).Msg("index: " + d.Message)
}

// RunKey fingerprints a run: the ordered file list with content hashes, the
// budget, the resolver options, the project header and any extra settings
// that shape extraction. Equal keys produce byte-identical documents.
func RunKey(files []source.File, budget ir.Budget, resolve resolver.Options, project *metadata.Project, extra ...string) string {
	h := sha256.New()
	fmt.Fprintf(h, "ir=%s\n", ir.Version)
	for _, f := range files {
		fmt.Fprintln(h, f.Key())
	}
	fmt.Fprintf(h, "budget=%d/%d/%d\n", budget.MaxEntities, budget.MaxBytes, budget.MaxTokens)
	fmt.Fprintf(h, "resolve=%t\n", resolve.PreferSameDirectory)
	if project != nil {
		fmt.Fprintf(h, "project=%s@%s:%s:%s:%v\n", project.Name, project.Version, project.Manifest, project.Description, project.Dependencies)
	}
	for _, x := range extra {
		fmt.Fprintln(h, x)
	}
	return hex.EncodeToString(h.Sum(nil))
}
