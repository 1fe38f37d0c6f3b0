package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"
	"strconv"

	"github.com/gobwas/glob"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"codeir/internal/diag"
	"codeir/internal/grammar"
	"codeir/internal/ir"
	"codeir/internal/lang"
	"codeir/internal/resolver"
	"codeir/internal/syntax"
)

// DefaultMaxFileBytes skips generated or vendored blobs during discovery.
const DefaultMaxFileBytes = 1 << 20

type Config struct {
	Project struct {
		Root string `yaml:"root"`
		Name string `yaml:"name"`
	} `yaml:"project"`
	Budget  ir.Budget `yaml:"budget"`
	Workers int       `yaml:"workers"` // 0 means GOMAXPROCS
	Resolve struct {
		PreferSameDirectory bool `yaml:"prefer_same_directory"`
	} `yaml:"resolve"`
	Discovery struct {
		Ignore       []string `yaml:"ignore"`
		MaxFileBytes int64    `yaml:"max_file_bytes"`
	} `yaml:"discovery"`
	Languages map[string]LanguageConfig `yaml:"languages"`
	Output    struct {
		Format string `yaml:"format"` // json or yaml
		Path   string `yaml:"path"`
	} `yaml:"output"`
	Cache struct {
		Path string `yaml:"path"`
	} `yaml:"cache"`
}

type LanguageConfig struct {
	Disabled bool              `yaml:"disabled"`
	Tags     map[string]string `yaml:"tags"` // raw node kind -> universal tag
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	var cfg Config
	cfg.Project.Root = "."
	cfg.Discovery.MaxFileBytes = DefaultMaxFileBytes
	cfg.Output.Format = "json"
	return &cfg
}

// LoadConfig reads path on top of the defaults. A missing file leaves the
// defaults in place; an unreadable or malformed one is a configuration error.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, diag.Configf("read %s: %v", path, err)
		default:
			dec := yaml.NewDecoder(bytes.NewReader(file))
			dec.KnownFields(true)
			if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, diag.Configf("parse %s: %v", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("CODEIR_ROOT"); v != "" {
		cfg.Project.Root = v
	}
	if v := os.Getenv("CODEIR_OUTPUT_FORMAT"); v != "" {
		cfg.Output.Format = v
	}
	if v := os.Getenv("CODEIR_CACHE_PATH"); v != "" {
		cfg.Cache.Path = v
	}

	ints := []struct {
		env string
		dst *int
	}{
		{"CODEIR_WORKERS", &cfg.Workers},
		{"CODEIR_MAX_ENTITIES", &cfg.Budget.MaxEntities},
		{"CODEIR_MAX_BYTES", &cfg.Budget.MaxBytes},
		{"CODEIR_MAX_TOKENS", &cfg.Budget.MaxTokens},
	}
	for _, o := range ints {
		v := os.Getenv(o.env)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return diag.Configf("%s=%q is not an integer", o.env, v)
		}
		*o.dst = n
	}
	return nil
}

// Validate returns an error wrapping diag.ErrConfiguration listing every problem.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Budget.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.Discovery.MaxFileBytes < 0 {
		errs = append(errs, fmt.Errorf("discovery.max_file_bytes must not be negative"))
	}
	for _, p := range c.Discovery.Ignore {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, fmt.Errorf("discovery.ignore %q: %v", p, err))
		}
	}
	switch c.Output.Format {
	case "json", "yaml":
	default:
		errs = append(errs, fmt.Errorf("output.format must be json or yaml, got %q", c.Output.Format))
	}
	if _, err := c.RegistryOptions(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", diag.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

// RegistryOptions turns the languages section into grammar registry options.
func (c *Config) RegistryOptions() ([]grammar.Option, error) {
	names := make([]string, 0, len(c.Languages))
	for name := range c.Languages {
		names = append(names, name)
	}
	sort.Strings(names)

	var opts []grammar.Option
	for _, name := range names {
		lc := c.Languages[name]
		l, ok := lang.Parse(name)
		if !ok {
			return nil, fmt.Errorf("languages.%s: unknown language", name)
		}
		if lc.Disabled {
			opts = append(opts, grammar.WithDisabled(l))
			continue
		}
		if len(lc.Tags) == 0 {
			continue
		}
		overrides := make(map[string]syntax.Tag, len(lc.Tags))
		for kind, tagName := range lc.Tags {
			tag, ok := syntax.ParseTag(tagName)
			if !ok {
				return nil, fmt.Errorf("languages.%s.tags.%s: unknown tag %q", name, kind, tagName)
			}
			overrides[kind] = tag
		}
		opts = append(opts, grammar.WithTagOverrides(l, overrides))
	}
	return opts, nil
}

// ResolverOptions returns the options for the default resolver chain.
func (c *Config) ResolverOptions() resolver.Options {
	return resolver.Options{PreferSameDirectory: c.Resolve.PreferSameDirectory}
}
