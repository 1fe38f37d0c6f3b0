package diag

import (
	"errors"
	"fmt"
	"sort"
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindUnsupportedLanguage Kind = "unsupported_language"
	KindMalformedSyntax     Kind = "malformed_syntax_tree"
	KindExtractionWarning   Kind = "extraction_warning"
	KindIDCollision         Kind = "id_collision"
	KindAmbiguousReference  Kind = "ambiguous_reference"
	KindBudgetExceeded      Kind = "budget_exceeded"
	KindConfiguration       Kind = "configuration_error"
)

// ErrConfiguration is the only error class that aborts a run.
var ErrConfiguration = errors.New("configuration error")

// Configf returns an error wrapping ErrConfiguration.
func Configf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// Fatal reports whether the error must abort the run.
func Fatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

// Diagnostic is a non-fatal problem recorded during a run.
type Diagnostic struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Offset  uint32 `json:"offset" yaml:"offset"`
	Message string `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	if d.Path == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s:%d: %s: %s", d.Path, d.Offset, d.Kind, d.Message)
}

// New builds a diagnostic.
func New(kind Kind, path string, offset uint32, format string, args ...any) Diagnostic {
	return Diagnostic{Kind: kind, Path: path, Offset: offset, Message: fmt.Sprintf(format, args...)}
}

// Sort orders diagnostics by path, offset, kind and message.
func Sort(ds []Diagnostic) {
	sort.SliceStable(ds, func(i, j int) bool {
		a, b := ds[i], ds[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Offset != b.Offset {
			return a.Offset < b.Offset
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Message < b.Message
	})
}

// Counts tallies diagnostics per kind.
func Counts(ds []Diagnostic) map[Kind]int {
	counts := make(map[Kind]int)
	for _, d := range ds {
		counts[d.Kind]++
	}
	return counts
}
