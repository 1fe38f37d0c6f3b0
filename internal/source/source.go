package source

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"

	"codeir/internal/lang"
)

// File is one source file as supplied by discovery. It is never mutated.
type File struct {
	Path     string
	Language lang.Language
	Content  []byte
	Hash     string
}

// New builds a File, normalizing the path to forward slashes and hashing content.
func New(path string, language lang.Language, content []byte) File {
	return File{
		Path:     filepath.ToSlash(filepath.Clean(path)),
		Language: language,
		Content:  content,
		Hash:     Hash(content),
	}
}

// Hash returns the hex sha256 of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Key identifies a file by path and content.
func (f File) Key() string {
	return f.Path + "@" + f.Hash
}
