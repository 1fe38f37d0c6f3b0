package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"codeir/internal/config"
	"codeir/internal/diag"
	"codeir/internal/grammar"
	"codeir/internal/ir"
	"codeir/internal/pipeline"
	"codeir/internal/retrieval"
	"codeir/internal/storage"
)

var (
	rootCmd = &cobra.Command{
		Use:   "codeir",
		Short: "Extract a language-neutral code structure document from a source tree",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	configPath string
	logLevel   string
	dbPath     string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if diag.Fatal(err) {
			log.Error().Err(err).Msg("invalid configuration")
			os.Exit(2)
		}
		log.Error().Err(err).Msg("codeir failed")
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "codeir.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the document cache (SQLite); empty uses cache.path or <root>/.codeir/cache.db")

	buildCmd.Flags().StringP("out", "o", "", "Write the document to this file instead of stdout")
	buildCmd.Flags().StringP("format", "f", "", "Output format: json or yaml")
	buildCmd.Flags().Int("max-entities", -1, "Entity budget (0 is unlimited)")
	buildCmd.Flags().Int("max-bytes", -1, "Serialized size budget in bytes (0 is unlimited)")
	buildCmd.Flags().Int("max-tokens", -1, "Estimated token budget (0 is unlimited)")
	buildCmd.Flags().IntP("workers", "w", -1, "Concurrent extraction workers (0 uses all CPUs)")
	buildCmd.Flags().Bool("no-cache", false, "Skip the document cache")
	buildCmd.Flags().Bool("no-progress", false, "Hide the progress bar")
	buildCmd.Flags().Bool("diagnostics", false, "Print every diagnostic to stderr")

	sliceCmd.Flags().Int("hops", retrieval.DefaultConfig().MaxHops, "Maximum edge hops from the seeds")
	sliceCmd.Flags().Bool("dependents", false, "Only follow edges into the seeds (impact analysis)")
	sliceCmd.Flags().StringSlice("kinds", nil, "Edge kinds to follow (default all)")
	sliceCmd.Flags().StringP("format", "f", "json", "Output format: json or yaml")
	sliceCmd.Flags().StringP("out", "o", "", "Write the slice to this file instead of stdout")

	cacheCmd.AddCommand(cacheListCmd)
	cacheCmd.AddCommand(cacheClearCmd)
	cacheClearCmd.Flags().String("file", "", "Only drop documents built from this file")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(languagesCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(sliceCmd)
	rootCmd.AddCommand(cacheCmd)
}

func setupLogging() error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", logLevel, err)
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
	return nil
}

// loadConfig reads the configuration file and applies command line overrides.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	if len(args) > 0 {
		cfg.Project.Root = args[0]
	}
	flags := cmd.Flags()
	if flags.Lookup("format") != nil {
		if v, _ := flags.GetString("format"); v != "" {
			cfg.Output.Format = v
		}
		if v, _ := flags.GetString("out"); v != "" {
			cfg.Output.Path = v
		}
		for name, dst := range map[string]*int{
			"max-entities": &cfg.Budget.MaxEntities,
			"max-bytes":    &cfg.Budget.MaxBytes,
			"max-tokens":   &cfg.Budget.MaxTokens,
			"workers":      &cfg.Workers,
		} {
			if v, _ := flags.GetInt(name); v >= 0 {
				*dst = v
			}
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func cachePath(cfg *config.Config) string {
	switch {
	case dbPath != "":
		return dbPath
	case cfg.Cache.Path != "":
		return cfg.Cache.Path
	}
	return pipeline.DefaultCachePath(cfg.Project.Root)
}

func openStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	p := cachePath(cfg)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return nil, err
	}
	return storage.NewSQLiteStore(p)
}

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Build the structure document for a project",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		b := pipeline.NewBuild(cfg, nil)
		if noCache, _ := cmd.Flags().GetBool("no-cache"); !noCache {
			store, err := openStore(cfg)
			if err != nil {
				log.Warn().Err(err).Msg("cache disabled")
			} else {
				defer store.Close()
				b.Store = store
			}
		}

		if noProgress, _ := cmd.Flags().GetBool("no-progress"); !noProgress {
			var bar *progressbar.ProgressBar
			b.OnDiscover = func(n int) {
				bar = progressbar.NewOptions(n,
					progressbar.OptionSetWriter(os.Stderr),
					progressbar.OptionSetDescription("Indexing files"),
					progressbar.OptionSetWidth(40),
					progressbar.OptionShowCount(),
					progressbar.OptionShowIts(),
					progressbar.OptionSetItsString("files/s"),
					progressbar.OptionThrottle(65*time.Millisecond),
					progressbar.OptionClearOnFinish(),
				)
			}
			b.OnFile = func(string) {
				if bar != nil {
					_ = bar.Add(1)
				}
			}
			defer func() {
				if bar != nil {
					_ = bar.Finish()
				}
			}()
		}

		out, runErr := b.Run(ctx)
		if out == nil {
			return runErr
		}

		if show, _ := cmd.Flags().GetBool("diagnostics"); show {
			for _, d := range out.Diagnostics {
				fmt.Fprintln(os.Stderr, d.String())
			}
		}
		if err := writeOutput(cfg.Output.Path, out.Output); err != nil {
			return err
		}

		ev := log.Info()
		if out.Partial {
			ev = log.Warn()
		}
		ev.Int("files", out.Files).
			Int("entities", len(out.Document.Entities)).
			Int("edges", len(out.Document.Edges)).
			Int("unresolved", len(out.Document.Unresolved)).
			Interface("diagnostics", diag.Counts(out.Diagnostics)).
			Bool("truncated", out.Document.Truncated).
			Bool("cached", out.CacheHit).
			Bool("partial", out.Partial).
			Msg("build complete")

		if runErr != nil {
			return fmt.Errorf("build interrupted: %w", runErr)
		}
		return nil
	},
}

func writeOutput(path string, data []byte) error {
	if !bytes.HasSuffix(data, []byte("\n")) {
		data = append(data, '\n')
	}
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("document written")
	return nil
}

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a document against the IR schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		if isYAML(args[0]) {
			doc, derr := readDocument(args[0])
			if derr != nil {
				return derr
			}
			err = ir.ValidateDocument(doc)
		} else {
			err = ir.Validate(data)
		}
		if err != nil {
			return fmt.Errorf("%s is invalid: %w", args[0], err)
		}
		log.Info().Str("file", args[0]).Msg("document is valid")
		return nil
	},
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func readDocument(path string) (*ir.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !isYAML(path) {
		return ir.DecodeJSON(data)
	}
	var doc ir.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &doc, nil
}

// parseSeed accepts "path" or "path@offset[,offset...]".
func parseSeed(arg string) (retrieval.Seed, error) {
	p, offsets, found := strings.Cut(arg, "@")
	seed := retrieval.Seed{Path: filepath.ToSlash(p)}
	if !found {
		return seed, nil
	}
	for _, o := range strings.Split(offsets, ",") {
		n, err := strconv.ParseUint(o, 10, 32)
		if err != nil {
			return seed, fmt.Errorf("invalid offset %q in %q", o, arg)
		}
		seed.Offsets = append(seed.Offsets, uint32(n))
	}
	return seed, nil
}

var sliceCmd = &cobra.Command{
	Use:   "slice <document> <path[@offset,...]>...",
	Short: "Cut a document down to the entities around the given files",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := readDocument(args[0])
		if err != nil {
			return err
		}
		var seeds []retrieval.Seed
		for _, arg := range args[1:] {
			seed, err := parseSeed(arg)
			if err != nil {
				return err
			}
			seeds = append(seeds, seed)
		}

		cfg := retrieval.DefaultConfig()
		cfg.MaxHops, _ = cmd.Flags().GetInt("hops")
		if dependents, _ := cmd.Flags().GetBool("dependents"); dependents {
			cfg.Direction = retrieval.Dependents
		}
		if kinds, _ := cmd.Flags().GetStringSlice("kinds"); len(kinds) > 0 {
			cfg.AllowedKinds = make(map[string]bool, len(kinds))
			for _, k := range kinds {
				cfg.AllowedKinds[k] = true
			}
		}

		slice := retrieval.Extract(doc, seeds, cfg)
		direct, indirect := slice.Affected()
		log.Info().Int("seeds", len(direct)).Int("reached", len(indirect)).
			Int("entities", len(slice.Document.Entities)).Msg("slice extracted")

		var data []byte
		format, _ := cmd.Flags().GetString("format")
		switch format {
		case "yaml":
			data, err = ir.EncodeYAML(slice.Document)
		case "json":
			data, err = ir.EncodeJSON(slice.Document)
		default:
			return fmt.Errorf("unknown format %q", format)
		}
		if err != nil {
			return err
		}
		out, _ := cmd.Flags().GetString("out")
		return writeOutput(out, data)
	},
}

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the IR JSON schema",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(ir.Schema())
	},
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List supported languages and the node kinds behind each tag",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		opts, err := cfg.RegistryOptions()
		if err != nil {
			return diag.Configf("%v", err)
		}
		reg, err := grammar.NewRegistry(opts...)
		if err != nil {
			return err
		}
		defer reg.Close()

		for _, l := range reg.Languages() {
			c, err := reg.Capabilities(l)
			if err != nil {
				return err
			}
			fmt.Printf("%s\n", l)
			tags := make([]string, 0, len(c.Kinds))
			for tag, kinds := range c.Kinds {
				tags = append(tags, fmt.Sprintf("  %-16s %s", tag, strings.Join(kinds, ", ")))
			}
			sort.Strings(tags)
			for _, line := range tags {
				fmt.Println(line)
			}
		}
		return nil
	},
}

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the document cache",
}

var cacheListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		keys, err := store.ListKeys(ctx)
		if err != nil {
			return err
		}
		for _, k := range keys {
			e, err := store.LoadDocument(ctx, k)
			if err != nil {
				return err
			}
			fmt.Printf("%s  files=%d entities=%d truncated=%t\n", k[:min(12, len(k))], len(e.Files), e.Entities, e.Truncated)
		}
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached documents",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, nil)
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		var keys []string
		if file, _ := cmd.Flags().GetString("file"); file != "" {
			keys, err = store.KeysForFile(ctx, filepath.ToSlash(file))
		} else {
			keys, err = store.ListKeys(ctx)
		}
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := store.DeleteDocument(ctx, k); err != nil && !errors.Is(err, storage.ErrNotFound) {
				return err
			}
		}
		log.Info().Int("removed", len(keys)).Msg("cache cleared")
		return nil
	},
}
