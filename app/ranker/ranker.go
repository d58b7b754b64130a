package ranker

import (
	"log/slog"
	"math"
	"sort"

	"github.com/ademidov/newspulse/app/database"
	"github.com/ademidov/newspulse/app/vector"
)

// CandidateMultiplier controls how many items are fetched per requested
// result. Ranking re-sorts a recency-ordered pool, so the pool has to be
// wider than the page or relevant older items would never surface.
const CandidateMultiplier = 10

// Scored pairs an item with its fused relevance score.
type Scored struct {
	Item  database.Item
	Score float64
}

// Ranker scores candidate items against a user's weighted preference
// vectors. It is a pure re-sort: all I/O happens before Rank is called.
type Ranker struct {
	dimension int
}

func New(dimension int) *Ranker {
	return &Ranker{dimension: dimension}
}

// CandidateLimit returns the size of the pool to fetch for a page of
// the given limit.
func (r *Ranker) CandidateLimit(limit int) int {
	return limit * CandidateMultiplier
}

// Rank computes score = sum(similarity(item, pref_i) * weight_i) per
// candidate and returns the top `limit` in descending score order, ties
// broken by recency. Candidates whose stored vector does not decode are
// dropped with a log, never propagated as NaN. With no usable
// preferences every item scores 0.0 and recency ordering is preserved.
func (r *Ranker) Rank(prefs []database.Preference, candidates []database.Item, limit int) []Scored {
	prefVectors := r.decodePreferences(prefs)

	if len(prefVectors) == 0 {
		return recencyFallback(candidates, limit)
	}

	scored := make([]Scored, 0, len(candidates))
	for _, item := range candidates {
		if item.Embedding == nil {
			continue
		}

		itemVec, err := vector.Decode(item.Embedding, r.dimension)
		if err != nil {
			slog.Warn("Excluding candidate with unusable vector", "item_id", item.ID, "error", err)
			continue
		}

		var score float64
		for _, pv := range prefVectors {
			score += vector.CosineSimilarity(itemVec, pv.vec) * pv.weight
		}

		if math.IsNaN(score) || math.IsInf(score, 0) {
			slog.Warn("Excluding candidate with non-finite score", "item_id", item.ID)
			continue
		}

		scored = append(scored, Scored{Item: item, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return laterPublished(scored[i].Item, scored[j].Item)
	})

	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}

	return scored
}

type prefVector struct {
	vec    []float32
	weight float64
}

func (r *Ranker) decodePreferences(prefs []database.Preference) []prefVector {
	out := make([]prefVector, 0, len(prefs))
	for _, p := range prefs {
		if p.Embedding == nil {
			continue
		}
		vec, err := vector.Decode(p.Embedding, r.dimension)
		if err != nil {
			slog.Warn("Skipping preference with unusable vector", "preference_id", p.ID, "error", err)
			continue
		}
		out = append(out, prefVector{vec: vec, weight: p.Weight})
	}
	return out
}

// recencyFallback is the defined degenerate behavior for users without
// embedded preferences: newest first, every score 0.0.
func recencyFallback(candidates []database.Item, limit int) []Scored {
	sorted := make([]database.Item, len(candidates))
	copy(sorted, candidates)

	sort.SliceStable(sorted, func(i, j int) bool {
		return laterPublished(sorted[i], sorted[j])
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]Scored, len(sorted))
	for i, item := range sorted {
		out[i] = Scored{Item: item, Score: 0.0}
	}
	return out
}

func laterPublished(a, b database.Item) bool {
	switch {
	case a.PublishedAt == nil:
		return false
	case b.PublishedAt == nil:
		return true
	default:
		return a.PublishedAt.After(*b.PublishedAt)
	}
}
