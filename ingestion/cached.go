// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/batching"
	"github.com/poiesic/knownet/storage"
)

// CachedOption configures a CachedEmbedder or CachedExtractor.
type CachedOption func(*cachedConfig) error

type cachedConfig struct {
	batchSize     int
	concurrency   int
	maxInputChars int
	logger        *slog.Logger
}

func defaultCachedConfig() *cachedConfig {
	return &cachedConfig{
		batchSize:     batching.DefaultBatchSize,
		concurrency:   4,
		maxInputChars: ai.DefaultMaxInputChars,
		logger:        slog.Default(),
	}
}

// WithBatchSize sets how many requests are coalesced into one model call.
func WithBatchSize(n int) CachedOption {
	return func(c *cachedConfig) error {
		if n < 1 {
			return batching.ErrInvalidBatchSize
		}
		c.batchSize = n
		return nil
	}
}

// WithExtractConcurrency bounds how many extraction calls of one batch run at
// once. Extractors have no batch endpoint, so a batch fans out per item.
func WithExtractConcurrency(n int) CachedOption {
	return func(c *cachedConfig) error {
		if n < 1 {
			return ErrInvalidPoolSize
		}
		c.concurrency = n
		return nil
	}
}

// WithMaxInputChars sets the length an oversized input is truncated to
// before its single retry. Zero halves the input instead.
func WithMaxInputChars(n int) CachedOption {
	return func(c *cachedConfig) error {
		if n < 0 {
			n = 0
		}
		c.maxInputChars = n
		return nil
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(logger *slog.Logger) CachedOption {
	return func(c *cachedConfig) error {
		if logger != nil {
			c.logger = logger
		}
		return nil
	}
}

// CacheStats counts cache traffic for one capability.
type CacheStats struct {
	Hits        int64 // Served from the persistent cache
	Misses      int64 // Computed through the model
	Truncated   int64 // Inputs retried after truncation
	CacheErrors int64 // Cache reads or writes that failed and were bypassed
}

// outcome carries a per-item result through a batch so that one bad input
// does not fail its neighbors.
type outcome[Out any] struct {
	val Out
	err error
}

// memo is the shared cache -> singleflight -> batch path.
type memo[Out any] struct {
	cache         storage.Cache
	encode        func(Out) []byte
	decode        func([]byte) (Out, error)
	batcher       *batching.Service[string, outcome[Out]]
	group         singleflight.Group
	maxInputChars int
	logger        *slog.Logger

	hits, misses, truncated, cacheErrors atomic.Int64
}

func (m *memo[Out]) get(ctx context.Context, text string) (Out, error) {
	if v, ok := m.lookup(ctx, text); ok {
		return v, nil
	}
	if err := ctx.Err(); err != nil {
		var zero Out
		return zero, err
	}

	ch := m.group.DoChan(text, func() (any, error) {
		// Shared by every waiter, so it must outlive any one caller.
		return m.compute(context.WithoutCancel(ctx), text)
	})

	var zero Out
	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(Out), nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (m *memo[Out]) lookup(ctx context.Context, text string) (Out, bool) {
	var zero Out
	if m.cache == nil {
		return zero, false
	}

	data, err := m.cache.Get(ctx, text)
	if err != nil {
		if ctx.Err() != nil {
			return zero, false
		}
		if !errors.Is(err, storage.ErrNotFound) {
			m.cacheErrors.Add(1)
			m.logger.Warn("cache read failed, recomputing", "err", err)
		}
		return zero, false
	}
	v, err := m.decode(data)
	if err != nil {
		m.cacheErrors.Add(1)
		m.logger.Warn("cached value unreadable, recomputing", "err", err)
		return zero, false
	}
	m.hits.Add(1)
	return v, true
}

func (m *memo[Out]) compute(ctx context.Context, text string) (Out, error) {
	m.misses.Add(1)

	v, err := m.submit(ctx, text)
	if errors.Is(err, ai.ErrInputTooLarge) {
		m.truncated.Add(1)
		short := ai.Truncate(text, m.maxInputChars)
		m.logger.Info("input too large, retrying truncated", "chars", len(text), "truncated", len(short))
		v, err = m.submit(ctx, short)
	}
	if err != nil {
		var zero Out
		return zero, err
	}

	if m.cache != nil {
		// Keyed by the original text so the next lookup hits.
		if err := m.cache.Set(ctx, text, m.encode(v)); err != nil {
			m.cacheErrors.Add(1)
			m.logger.Warn("cache write failed", "err", err)
		}
	}
	return v, nil
}

func (m *memo[Out]) submit(ctx context.Context, text string) (Out, error) {
	res, err := m.batcher.Do(ctx, text)
	if err != nil {
		return res.val, err
	}
	return res.val, res.err
}

func (m *memo[Out]) stats() CacheStats {
	return CacheStats{
		Hits:        m.hits.Load(),
		Misses:      m.misses.Load(),
		Truncated:   m.truncated.Load(),
		CacheErrors: m.cacheErrors.Load(),
	}
}
