package feed

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fritter-circles/backend/internal/graph"
	apperrors "fritter-circles/backend/pkg/errors"
	"fritter-circles/backend/pkg/logger"
)

// ReputationSource provides read-only per-user reputation lookups
type ReputationSource interface {
	GetBotscore(ctx context.Context, username string) (*graph.Botscore, error)
}

// CircleSource provides read-only per-creator circle listings
type CircleSource interface {
	CirclesOf(ctx context.Context, creator string) ([]graph.Circle, error)
}

// CircleInfo is the resolved circle metadata attached to a freet. Members
// is nil when the tag did not resolve to a registered circle, including the
// sentinel, a deleted circle, and the untagged case.
type CircleInfo struct {
	Name    string   `json:"name,omitempty"`
	Members []string `json:"members,omitempty"`
}

// Restricted reports whether the freet's tag resolved to a circle
func (c CircleInfo) Restricted() bool {
	return c.Members != nil
}

// EnrichedFreet is a freet plus derived author metadata. Nothing here is
// persisted; it is rebuilt on every feed refresh.
type EnrichedFreet struct {
	graph.Freet
	Botscore *graph.Botscore `json:"botscore,omitempty"`
	Circle   CircleInfo      `json:"circle"`
	Err      error           `json:"-"`
}

// Flagged reports whether the author's score crossed their own display
// threshold, the hint clients use to dim likely-bot freets.
func (e EnrichedFreet) Flagged() bool {
	return e.Botscore != nil && e.Botscore.Score >= e.Botscore.Threshold
}

// authorEntry is one author's share of the per-invocation cache
type authorEntry struct {
	botscore *graph.Botscore
	circles  map[string]graph.Circle
	err      error
}

// Enricher attaches author reputation and circle metadata to raw freets.
// It holds no state of its own; every Enrich call owns its cache.
type Enricher struct {
	reputation ReputationSource
	circles    CircleSource
	limit      int
	logger     *zap.Logger
}

// DefaultLookupLimit caps concurrent author lookups when no limit is given
const DefaultLookupLimit = 8

// NewEnricher creates an enricher over the two read-side collaborators.
// lookupLimit bounds concurrent author lookups; values < 1 fall back to
// DefaultLookupLimit.
func NewEnricher(reputation ReputationSource, circles CircleSource, lookupLimit int) *Enricher {
	if lookupLimit < 1 {
		lookupLimit = DefaultLookupLimit
	}
	return &Enricher{
		reputation: reputation,
		circles:    circles,
		limit:      lookupLimit,
		logger:     logger.Get(),
	}
}

// Enrich resolves reputation and circle metadata for every freet, in input
// order, one output per input. Lookups are issued once per distinct author
// per call: posts sharing an author share one concurrent fetch of botscore
// and circle list. Missing records degrade to absent fields; a failed
// author lookup tags only that author's posts via Err. The only call-level
// failures are malformed input (an empty author) and cancellation.
func (e *Enricher) Enrich(ctx context.Context, freets []graph.Freet) ([]EnrichedFreet, error) {
	start := time.Now()

	for _, f := range freets {
		if f.Author == "" {
			return nil, apperrors.ErrEmptyUsername
		}
	}

	if len(freets) == 0 {
		return []EnrichedFreet{}, nil
	}

	// Cache owned by this invocation only. Deduplicating authors before
	// launching guarantees at most one outstanding lookup per author.
	entries := make(map[string]*authorEntry)
	for _, f := range freets {
		if _, ok := entries[f.Author]; !ok {
			entries[f.Author] = &authorEntry{}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.limit)

	for author, entry := range entries {
		author, entry := author, entry
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			e.resolveAuthor(gctx, author, entry)
			return nil
		})
	}

	// Lookup failures are recorded per entry, never returned, so a bad
	// author cannot discard the rest of the batch. Wait only reports
	// cancellation.
	if err := g.Wait(); err != nil {
		return nil, err
	}

	enriched := make([]EnrichedFreet, len(freets))
	for i, f := range freets {
		enriched[i] = assemble(f, entries[f.Author])
	}

	e.logger.Debug("Feed enriched",
		zap.Int("freets", len(freets)),
		zap.Int("authors", len(entries)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return enriched, nil
}

// resolveAuthor fetches botscore and circle list for one author. The two
// reads are independent, so they run concurrently and join here.
func (e *Enricher) resolveAuthor(ctx context.Context, author string, entry *authorEntry) {
	var (
		botscore *graph.Botscore
		circles  []graph.Circle
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		score, err := e.reputation.GetBotscore(gctx, author)
		if err != nil {
			if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
				return nil // no record is not an error
			}
			return err
		}
		botscore = score
		return nil
	})

	g.Go(func() error {
		list, err := e.circles.CirclesOf(gctx, author)
		if err != nil {
			if apperrors.IsErrorType(err, apperrors.ErrorTypeNotFound) {
				return nil
			}
			return err
		}
		circles = list
		return nil
	})

	if err := g.Wait(); err != nil {
		entry.err = err
		return
	}

	entry.botscore = botscore
	entry.circles = make(map[string]graph.Circle, len(circles))
	for _, c := range circles {
		entry.circles[c.Name] = c
	}
}

// assemble builds one enriched freet from its author's cache entry
func assemble(f graph.Freet, entry *authorEntry) EnrichedFreet {
	out := EnrichedFreet{Freet: f}

	if entry.err != nil {
		out.Err = entry.err
		out.Circle = CircleInfo{Name: f.Circle}
		return out
	}

	out.Botscore = entry.botscore

	if f.Circle == "" {
		return out
	}
	if c, ok := entry.circles[f.Circle]; ok && f.Circle != graph.SentinelCircle {
		members := c.Members
		if members == nil {
			members = []string{}
		}
		out.Circle = CircleInfo{Name: c.Name, Members: members}
		return out
	}
	// Tag set but unresolvable: the sentinel, a deleted circle, or a name
	// the author never registered. The tag is kept, members stay absent.
	out.Circle = CircleInfo{Name: f.Circle}
	return out
}
