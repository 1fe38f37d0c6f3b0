package extractor

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// IdentityKey returns the fingerprint a stable id is hashed from.
//
// Declarations are keyed by package directory so that two files of one
// package declaring the same name collide and get disambiguated. File modules
// are keyed by path. Imports, calls, references and nested modules also carry
// their byte offset because they repeat freely within a file.
func IdentityKey(e Entity) string {
	language := strings.TrimSpace(string(e.Language))
	if language == "" {
		language = "unknown"
	}
	name := strings.TrimSpace(e.QualifiedName)
	if name == "" {
		name = "_"
	}

	var parts []string
	switch {
	case e.Kind.IsDeclaration():
		parts = []string{language, path.Dir(e.Path), name, string(e.Kind)}
	case e.Kind == KindModule && e.Parent < 0:
		parts = []string{language, e.Path, string(e.Kind)}
	default:
		parts = []string{language, e.Path, name, string(e.Kind), strconv.FormatUint(uint64(e.Start), 10)}
	}
	return strings.Join(parts, "|")
}

// BuildStableSymbolID hashes an identity key into a short id.
func BuildStableSymbolID(kind Kind, key string) string {
	sum := sha256.Sum256([]byte(key))
	return fmt.Sprintf("%s:%s", kind, hex.EncodeToString(sum[:6]))
}

// DisambiguationSuffix derives a short suffix from a file path and an optional offset.
func DisambiguationSuffix(p string, offset uint32, withOffset bool) string {
	s := p
	if withOffset {
		s = p + "@" + strconv.FormatUint(uint64(offset), 10)
	}
	sum := sha256.Sum256([]byte(s))
	return "~" + hex.EncodeToString(sum[:3])
}
