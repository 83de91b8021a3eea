package storage

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// Namespace identifies one cache partition. It is derived from the model
// descriptor of the capability whose results are cached.
type Namespace struct {
	Component string // e.g. "embedder" or "triple_extractor"
	Model     string // model identifier, e.g. "openai/text-embedding-3-small"
}

// Validate checks that both parts of the namespace are set.
func (n Namespace) Validate() error {
	if strings.TrimSpace(n.Component) == "" || strings.TrimSpace(n.Model) == "" {
		return ErrInvalidNamespace
	}
	return nil
}

// String returns "component/model".
func (n Namespace) String() string {
	return n.Component + "/" + n.Model
}

// Path returns the namespace directory below root. Path separators and other
// characters unsafe in directory names are replaced so a model id like
// "openai/gpt-4o" stays a single directory level.
func (n Namespace) Path(root string) string {
	return filepath.Join(root, sanitize(n.Component), sanitize(n.Model))
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}

// Fingerprint returns the record key for input within a namespace.
func Fingerprint(ns Namespace, input string) string {
	h, _ := blake2b.New(32, nil)
	h.Write([]byte(ns.String()))
	h.Write([]byte{0})
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}

// Cache is a persistent key/value memoization store scoped to one namespace.
// Keys are raw inputs (the text that was embedded or extracted); implementations
// store records under Fingerprint(namespace, key). Implementations must be
// thread-safe.
type Cache interface {
	// Namespace returns the namespace this cache serves.
	Namespace() Namespace

	// Contains reports whether key has a stored value.
	Contains(ctx context.Context, key string) (bool, error)

	// Get returns the stored value for key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Clear removes every record in the namespace.
	Clear(ctx context.Context) error

	// Close releases the underlying storage.
	Close() error
}
