package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/poiesic/knownet/core"
	"github.com/poiesic/knownet/graph"
)

const (
	// DefaultMaxHits is the number of entities returned per search.
	DefaultMaxHits = 4

	// verbatimBoost is added when every word of an entity name appears in the question.
	verbatimBoost = 0.3
)

// MentionFunc splits a question into the entity mentions to look up.
type MentionFunc func(ctx context.Context, question string) ([]string, error)

// Result is one retrieved entity with its neighborhood.
type Result struct {
	Entity    core.Entity
	Score     float32
	Mention   string   // Mention the entity was found for
	Relations []string // Formatted neighborhood of the entity
}

// Searcher retrieves graph context for questions.
type Searcher struct {
	store    *graph.Store
	mentions MentionFunc
	maxHits  int
	depth    int
	minScore float32
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMaxHits sets how many entities a search returns.
func WithMaxHits(n int) Option {
	return func(s *Searcher) error {
		if n < 1 {
			return ErrInvalidMaxHits
		}
		s.maxHits = n
		return nil
	}
}

// WithDepth sets the neighborhood depth.
func WithDepth(depth int) Option {
	return func(s *Searcher) error {
		s.depth = max(depth, 1)
		return nil
	}
}

// WithMinScore drops entities whose similarity is at or below score.
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		s.minScore = score
		return nil
	}
}

// WithMentionFunc sets how questions are split into mentions. By default the
// whole question is a single mention.
func WithMentionFunc(fn MentionFunc) Option {
	return func(s *Searcher) error {
		if fn != nil {
			s.mentions = fn
		}
		return nil
	}
}

// NewSearcher creates a new searcher over store.
func NewSearcher(store *graph.Store, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}

	s := &Searcher{
		store: store,
		mentions: func(_ context.Context, q string) ([]string, error) {
			return []string{q}, nil
		},
		maxHits:  DefaultMaxHits,
		depth:    graph.DefaultDepth,
		minScore: -1,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns the entities nearest to the question, best first.
func (s *Searcher) Search(ctx context.Context, question string) ([]Result, error) {
	return s.SearchWithMonitor(ctx, question, nil)
}

// SearchWithMonitor searches like Search, reporting each stage to monitor.
func (s *Searcher) SearchWithMonitor(ctx context.Context, question string, monitor SearchMonitor) ([]Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, ErrEmptyQuery
	}

	monitor.Start(question)

	mentions, err := s.mentions(ctx, question)
	if err != nil {
		s.logger.Error("error extracting mentions from question", "err", err)
		return nil, err
	}
	mentions = slices.DeleteFunc(mentions, func(m string) bool { return strings.TrimSpace(m) == "" })
	monitor.AfterMentionExtraction(mentions)

	best := make(map[core.EntityID]*Result)
	for _, mention := range mentions {
		candidates, hoods, err := s.store.Nearest(ctx, mention, s.maxHits, s.depth)
		if err != nil {
			s.logger.Error("error finding nearest entities", "mention", mention, "err", err)
			return nil, err
		}
		monitor.AfterNearestEntities(mention, candidates)

		for i, c := range candidates {
			if c.Score <= s.minScore {
				continue
			}
			score := c.Score
			if mentionsEntity(question, c.Entity.Name) {
				score += verbatimBoost
				monitor.VerbatimHit(c.Entity)
			}
			if prev, ok := best[c.Entity.ID]; ok && prev.Score >= score {
				continue
			}
			best[c.Entity.ID] = &Result{
				Entity:    c.Entity,
				Score:     score,
				Mention:   mention,
				Relations: hoods[i],
			}
		}
	}

	results := make([]Result, 0, len(best))
	for _, r := range best {
		results = append(results, *r)
	}
	slices.SortFunc(results, func(a, b Result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return int(a.Entity.ID) - int(b.Entity.ID)
	})
	if len(results) > s.maxHits {
		results = results[:s.maxHits]
	}
	monitor.Finish(results)

	s.logger.Debug("search finished", "question", question, "mentions", len(mentions), "results", len(results))
	return results, nil
}

// Context returns the distinct relations of every search result, one per
// line, in result order.
func (s *Searcher) Context(ctx context.Context, question string) (string, error) {
	results, err := s.Search(ctx, question)
	if err != nil {
		return "", err
	}
	seen := make(map[string]bool)
	var lines []string
	for _, r := range results {
		for _, rel := range r.Relations {
			if seen[rel] {
				continue
			}
			seen[rel] = true
			lines = append(lines, rel)
		}
	}
	return strings.Join(lines, "\n"), nil
}
