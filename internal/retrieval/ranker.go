package retrieval

import (
	"math"
	"sort"

	"research-rag/internal/corpus"
)

// DefaultLambda weights relevance against novelty in MMR selection.
const DefaultLambda = 0.3

// Scored is a chunk annotated with its similarity to the query.
type Scored struct {
	Chunk corpus.Chunk
	Score float64
}

// Score computes the query similarity of every chunk and returns them sorted
// by descending score. Equal scores keep corpus order.
func Score(query []float32, chunks []corpus.Chunk) []Scored {
	scored := make([]Scored, len(chunks))
	for i, c := range chunks {
		scored[i] = Scored{Chunk: c, Score: Cosine(query, c.Embedding)}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Rank scores chunks against query and returns at most k of them.
//
// When more than k chunks are available the result is re-selected greedily by
// Maximal Marginal Relevance:
//
//	mmr(c) = lambda*score(c) - (1-lambda)*max_{s in selected} cos(c, s)
//
// seeded with the top-scored chunk. diversified reports whether MMR ran.
func Rank(query []float32, chunks []corpus.Chunk, k int, lambda float64) (ranked []Scored, diversified bool) {
	scored := Score(query, chunks)
	if k <= 0 {
		return []Scored{}, false
	}
	if len(scored) <= k {
		return scored, false
	}
	return selectMMR(scored, k, lambda), true
}

// selectMMR runs greedy MMR over candidates sorted by descending score.
// maxSim[i] holds the highest similarity between remaining[i] and anything
// selected so far; it only needs updating against the newest selection.
func selectMMR(candidates []Scored, k int, lambda float64) []Scored {
	selected := make([]Scored, 0, k)
	selected = append(selected, candidates[0])

	remaining := make([]Scored, len(candidates)-1)
	copy(remaining, candidates[1:])
	maxSim := make([]float64, len(remaining))
	for i := range maxSim {
		maxSim[i] = math.Inf(-1)
	}

	for len(selected) < k && len(remaining) > 0 {
		last := selected[len(selected)-1].Chunk.Embedding

		bestIdx := -1
		bestMMR := math.Inf(-1)
		for i, cand := range remaining {
			if sim := Cosine(cand.Chunk.Embedding, last); sim > maxSim[i] {
				maxSim[i] = sim
			}
			mmr := lambda*cand.Score - (1-lambda)*maxSim[i]
			if bestIdx < 0 || mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		maxSim = append(maxSim[:bestIdx], maxSim[bestIdx+1:]...)
	}

	return selected
}
