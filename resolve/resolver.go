package resolve

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/knownet/ai"
	"github.com/poiesic/knownet/core"
)

const (
	// DefaultMatchThreshold is the similarity a mention must exceed to join an existing entity.
	DefaultMatchThreshold float32 = 0.95

	// DefaultAmbiguityMargin is the distance from the threshold within which a
	// decision is logged as ambiguous.
	DefaultAmbiguityMargin float32 = 0.02
)

// Option configures a Resolver.
type Option func(*Resolver) error

// WithMatchThreshold sets the similarity a nearest neighbor must strictly
// exceed for a mention to merge into it.
func WithMatchThreshold(t float32) Option {
	return func(r *Resolver) error {
		if t <= 0 || t > 1 {
			return fmt.Errorf("%w: %v", ErrInvalidThreshold, t)
		}
		r.threshold = t
		return nil
	}
}

// WithAmbiguityMargin sets the band around the threshold that is logged as ambiguous.
func WithAmbiguityMargin(m float32) Option {
	return func(r *Resolver) error {
		if m < 0 {
			return ErrInvalidMargin
		}
		r.margin = m
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) error {
		if logger != nil {
			r.logger = logger
		}
		return nil
	}
}

// Candidate is an entity returned by Nearest with its similarity to the query.
type Candidate struct {
	Entity core.Entity
	Score  float32
}

// Stats counts resolution outcomes.
type Stats struct {
	Resolved  int // Calls to Resolve or ResolveUnder that succeeded
	Created   int // Mentions that founded a new entity
	Merged    int // Mentions that joined an existing entity by similarity
	Exact     int // Mentions answered from the exact-mention table
	Ambiguous int // Similarity decisions within the ambiguity margin
}

// Resolver canonicalizes mentions against a running nearest-neighbor index.
type Resolver struct {
	embedder  ai.Embedder
	index     Index
	threshold float32
	margin    float32
	logger    *slog.Logger
	now       func() time.Time

	entities []core.Entity // entities[id-1]
	mentions map[string]core.EntityID
	stats    Stats
}

// New creates a Resolver. A nil index defaults to an HNSW index.
func New(embedder ai.Embedder, index Index, opts ...Option) (*Resolver, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if index == nil {
		index = NewHNSWIndex()
	}

	r := &Resolver{
		embedder:  embedder,
		index:     index,
		threshold: DefaultMatchThreshold,
		margin:    DefaultAmbiguityMargin,
		logger:    slog.Default(),
		now:       time.Now,
		mentions:  make(map[string]core.EntityID),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	r.logger = r.logger.With("component", "resolver")
	return r, nil
}

// Threshold returns the configured match threshold.
func (r *Resolver) Threshold() float32 {
	return r.threshold
}

// Resolve returns the entity for mention, creating one if no existing entity
// is similar enough.
func (r *Resolver) Resolve(ctx context.Context, mention string) (core.Entity, error) {
	return r.ResolveUnder(ctx, mention, core.NoEntity)
}

// ResolveUnder resolves mention like Resolve. When a new entity is created its
// parent is set to parent. The parent of an existing entity is never changed,
// and since a parent must exist before its child is created the is-a relation
// stays acyclic.
func (r *Resolver) ResolveUnder(ctx context.Context, mention string, parent core.EntityID) (core.Entity, error) {
	mention = strings.TrimSpace(mention)
	if mention == "" {
		return core.Entity{}, ErrEmptyMention
	}

	if id, ok := r.mentions[mention]; ok {
		r.stats.Resolved++
		r.stats.Exact++
		return r.entities[id-1], nil
	}

	vec, err := r.embedder.EmbedText(ctx, mention)
	if err != nil {
		return core.Entity{}, fmt.Errorf("%w: %q: %w", ErrEmbeddingFailed, mention, err)
	}

	matches, err := r.index.Query(vec, 1)
	if err != nil {
		return core.Entity{}, fmt.Errorf("query index for %q: %w", mention, err)
	}

	if len(matches) > 0 {
		best := matches[0]
		id := core.EntityID(best.Key)
		r.noteAmbiguity(mention, id, best.Score)
		if best.Score > r.threshold && r.live(id) {
			r.mentions[mention] = id
			r.stats.Resolved++
			r.stats.Merged++
			r.logger.Debug("mention merged", "mention", mention, "entity", r.entities[id-1].Name, "score", best.Score)
			return r.entities[id-1], nil
		}
	}

	if !r.live(parent) {
		parent = core.NoEntity
	}
	entity := core.Entity{
		ID:        core.EntityID(len(r.entities) + 1),
		Name:      mention,
		ParentID:  parent,
		CreatedAt: r.now(),
	}
	if err := r.index.Insert(vec, uint32(entity.ID)); err != nil {
		return core.Entity{}, fmt.Errorf("index %q: %w", mention, err)
	}
	r.entities = append(r.entities, entity)
	r.mentions[mention] = entity.ID
	r.stats.Resolved++
	r.stats.Created++
	r.logger.Debug("entity created", "mention", mention, "id", entity.ID, "parent", parent)
	return entity, nil
}

func (r *Resolver) noteAmbiguity(mention string, id core.EntityID, score float32) {
	diff := score - r.threshold
	if diff < 0 {
		diff = -diff
	}
	if diff > r.margin {
		return
	}
	r.stats.Ambiguous++
	var name string
	if r.live(id) {
		name = r.entities[id-1].Name
	}
	r.logger.Warn("ambiguous resolution",
		"mention", mention,
		"candidate", name,
		"score", score,
		"threshold", r.threshold,
		"merged", score > r.threshold)
}

func (r *Resolver) live(id core.EntityID) bool {
	return id != core.NoEntity && int(id) <= len(r.entities)
}

// Entity returns the entity with the given id.
func (r *Resolver) Entity(id core.EntityID) (core.Entity, bool) {
	if !r.live(id) {
		return core.Entity{}, false
	}
	return r.entities[id-1], true
}

// Lookup returns the entity a mention was previously resolved to, without
// embedding it.
func (r *Resolver) Lookup(mention string) (core.Entity, bool) {
	id, ok := r.mentions[strings.TrimSpace(mention)]
	if !ok {
		return core.Entity{}, false
	}
	return r.entities[id-1], true
}

// Entities returns every entity in id order.
func (r *Resolver) Entities() []core.Entity {
	return slices.Clone(r.entities)
}

// Len returns the number of entities.
func (r *Resolver) Len() int {
	return len(r.entities)
}

// Stats returns resolution counters.
func (r *Resolver) Stats() Stats {
	return r.stats
}

// Nearest embeds text and returns up to k entities ordered by similarity.
// It never creates entities.
func (r *Resolver) Nearest(ctx context.Context, text string, k int) ([]Candidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMention
	}
	if k <= 0 || len(r.entities) == 0 {
		return nil, nil
	}

	vec, err := r.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrEmbeddingFailed, text, err)
	}
	matches, err := r.index.Query(vec, k)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}

	out := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		id := core.EntityID(m.Key)
		if !r.live(id) {
			continue
		}
		out = append(out, Candidate{Entity: r.entities[id-1], Score: m.Score})
	}
	return out, nil
}
