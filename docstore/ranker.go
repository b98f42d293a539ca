package docstore

import (
	"context"
	"fmt"
	"sort"
)

// DefaultHardCap bounds how many raw hits a single search may pull from the
// index regardless of the requested k.
const DefaultHardCap = 50

type queryIndex interface {
	Query(ctx context.Context, ownerID, query string, n int, filter Filter) ([]Hit, error)
}

// Ranker turns raw index hits into scored, ordered search results.
type Ranker struct {
	index   queryIndex
	hardCap int
}

func NewRanker(index queryIndex, hardCap int) *Ranker {
	if hardCap <= 0 {
		hardCap = DefaultHardCap
	}

	return &Ranker{
		index:   index,
		hardCap: hardCap,
	}
}

// Similarity converts an index distance into a similarity score in (0, 1].
// A distance of zero maps to a perfect score of 1.
func Similarity(distance float64) float64 {
	return 1.0 / (1.0 + distance)
}

// Search queries the owner's index and returns at most k results with
// similarity at or above threshold, best first. Hits with equal scores keep
// the order the index returned them in.
func (r *Ranker) Search(ctx context.Context, ownerID, query string, k int, threshold float64, filter Filter) ([]SearchResult, error) {
	if k <= 0 {
		return nil, nil
	}

	n := k
	if n > r.hardCap {
		n = r.hardCap
	}

	hits, err := r.index.Query(ctx, ownerID, query, n, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to search index: %w", err)
	}

	results := make([]SearchResult, 0, len(hits))
	for _, h := range hits {
		score := Similarity(h.Distance)
		if score < threshold {
			continue
		}
		results = append(results, SearchResult{
			ChunkID:      h.ChunkID,
			DocumentID:   h.DocumentID,
			DocumentName: h.DocumentName,
			Content:      h.Content,
			Score:        score,
			ChunkIndex:   h.ChunkIndex,
			Tags:         h.Tags,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > k {
		results = results[:k]
	}

	return results, nil
}
