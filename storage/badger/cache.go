package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/knownet/storage"
)

const namespaceMetaKey = "namespace"

// Cache is a storage.Cache backed by one BadgerDB database per namespace.
type Cache struct {
	backend *Backend
	ns      storage.Namespace
	logger  *slog.Logger
	closed  atomic.Bool
}

var _ storage.Cache = (*Cache)(nil)

// Option configures a Cache.
type Option func(*cacheOptions) error

type cacheOptions struct {
	logger   *slog.Logger
	inMemory bool
}

// WithLogger sets the logger used by the cache and by BadgerDB itself.
func WithLogger(logger *slog.Logger) Option {
	return func(o *cacheOptions) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		o.logger = logger
		return nil
	}
}

// WithInMemory keeps the cache in memory only. Intended for tests.
func WithInMemory() Option {
	return func(o *cacheOptions) error {
		o.inMemory = true
		return nil
	}
}

// OpenCache opens (creating when needed) the cache for ns below root.
// The database lives in ns.Path(root).
func OpenCache(root string, ns storage.Namespace, opts ...Option) (storage.Cache, error) {
	if err := ns.Validate(); err != nil {
		return nil, err
	}

	o := &cacheOptions{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	logger := o.logger.With("component", "cache", "namespace", ns.String())

	backend, err := OpenBackend(ns.Path(root), o.inMemory, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache %s: %w", ns, err)
	}

	c := &Cache{
		backend: backend,
		ns:      ns,
		logger:  logger,
	}
	if err := c.writeNamespace(); err != nil {
		backend.Close()
		return nil, err
	}
	return c, nil
}

// writeNamespace records the namespace inside the database so an orphaned
// cache directory can be identified.
func (c *Cache) writeNamespace() error {
	return c.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeMetaKey(namespaceMetaKey), []byte(c.ns.String()))
	})
}

// Namespace returns the namespace this cache serves.
func (c *Cache) Namespace() storage.Namespace {
	return c.ns
}

// Contains reports whether key has a stored value.
func (c *Cache) Contains(ctx context.Context, key string) (bool, error) {
	_, err := c.Get(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the stored value for key, or storage.ErrNotFound.
func (c *Cache) Get(ctx context.Context, key string) ([]byte, error) {
	if err := c.check(ctx); err != nil {
		return nil, err
	}

	var value []byte
	err := c.backend.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(c.ns, key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Set stores value under key.
func (c *Cache) Set(ctx context.Context, key string, value []byte) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	return c.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeRecordKey(c.ns, key), value)
	})
}

// Clear removes every record in the namespace.
func (c *Cache) Clear(ctx context.Context) error {
	if err := c.check(ctx); err != nil {
		return err
	}
	if err := c.backend.DropAll(); err != nil {
		return fmt.Errorf("failed to clear cache %s: %w", c.ns, err)
	}
	c.logger.Info("cache cleared")
	return c.writeNamespace()
}

// Close closes the underlying database. Closing twice is a no-op.
func (c *Cache) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	return c.backend.Close()
}

func (c *Cache) check(ctx context.Context) error {
	if c.closed.Load() {
		return storage.ErrStorageClosed
	}
	return ctx.Err()
}
