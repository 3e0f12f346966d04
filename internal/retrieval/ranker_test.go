package retrieval

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"sort"
	"testing"

	"research-rag/internal/corpus"
)

func vecChunk(id string, vec ...float32) corpus.Chunk {
	return corpus.Chunk{DocID: "DOC_" + id, ChunkID: id, Text: "text " + id, Embedding: vec}
}

func randomChunks(rng *rand.Rand, n, dim int) []corpus.Chunk {
	chunks := make([]corpus.Chunk, n)
	for i := range chunks {
		vec := make([]float32, dim)
		for j := range vec {
			vec[j] = float32(rng.NormFloat64())
		}
		chunks[i] = vecChunk(fmt.Sprintf("c%02d", i), vec...)
	}
	return chunks
}

func scoredIDs(scored []Scored) []string {
	ids := make([]string, len(scored))
	for i, s := range scored {
		ids[i] = s.Chunk.ChunkID
	}
	return ids
}

func TestScore_SortsDescendingAndKeepsTies(t *testing.T) {
	query := []float32{1, 0}
	chunks := []corpus.Chunk{
		vecChunk("low", 0, 1),
		vecChunk("tie-a", 1, 1),
		vecChunk("high", 1, 0),
		vecChunk("tie-b", 2, 2),
	}

	got := scoredIDs(Score(query, chunks))
	want := []string{"high", "tie-a", "tie-b", "low"}
	if !slices.Equal(got, want) {
		t.Errorf("Score() order = %v, want %v", got, want)
	}
}

func TestRank_NoDiversificationWhenWithinK(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := []corpus.Chunk{
		vecChunk("b", 0.5, 0.5, 0),
		vecChunk("a", 1, 0, 0),
		vecChunk("c", 0, 0, 1),
	}

	for _, k := range []int{3, 5, 10} {
		ranked, diversified := Rank(query, chunks, k, DefaultLambda)
		if diversified {
			t.Errorf("k=%d: diversified = true, want false", k)
		}
		if got := scoredIDs(ranked); !slices.Equal(got, []string{"a", "b", "c"}) {
			t.Errorf("k=%d: Rank() = %v, want full set by score", k, got)
		}
	}
}

func TestRank_MMRPrefersNovelty(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := []corpus.Chunk{
		vecChunk("top", 1, 0, 0),
		vecChunk("near-duplicate", 0.99, 0.1, 0),
		vecChunk("different", 0.6, 0.8, 0),
	}

	ranked, diversified := Rank(query, chunks, 2, 0.3)
	if !diversified {
		t.Fatal("diversified = false, want true")
	}
	if got := scoredIDs(ranked); !slices.Equal(got, []string{"top", "different"}) {
		t.Errorf("Rank(lambda=0.3) = %v, want [top different]", got)
	}

	ranked, _ = Rank(query, chunks, 2, 1.0)
	if got := scoredIDs(ranked); !slices.Equal(got, []string{"top", "near-duplicate"}) {
		t.Errorf("Rank(lambda=1) = %v, want pure relevance [top near-duplicate]", got)
	}
}

func TestRank_MMRTieGoesToEarlierCandidate(t *testing.T) {
	query := []float32{1, 0}
	chunks := []corpus.Chunk{
		vecChunk("top", 1, 0),
		vecChunk("twin-1", 0, 1),
		vecChunk("twin-2", 0, 1),
	}

	ranked, _ := Rank(query, chunks, 2, 0.5)
	if got := scoredIDs(ranked); !slices.Equal(got, []string{"top", "twin-1"}) {
		t.Errorf("Rank() = %v, want [top twin-1]", got)
	}
}

func TestRank_SelectionOrderKeepsScores(t *testing.T) {
	query := []float32{1, 0, 0}
	chunks := []corpus.Chunk{
		vecChunk("top", 1, 0, 0),
		vecChunk("near-duplicate", 0.99, 0.1, 0),
		vecChunk("different", 0.6, 0.8, 0),
	}

	ranked, _ := Rank(query, chunks, 2, 0.3)
	for _, r := range ranked {
		if want := Cosine(query, r.Chunk.Embedding); r.Score != want {
			t.Errorf("%s score = %v, want relevance %v", r.Chunk.ChunkID, r.Score, want)
		}
	}
}

func TestRank_Properties(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))

	for trial := 0; trial < 50; trial++ {
		n := rng.IntN(25)
		k := 1 + rng.IntN(10)
		lambda := rng.Float64()
		query := randomChunks(rng, 1, 16)[0].Embedding
		chunks := randomChunks(rng, n, 16)

		ranked, diversified := Rank(query, chunks, k, lambda)

		if want := min(k, n); len(ranked) != want {
			t.Fatalf("trial %d: len = %d, want min(%d, %d)", trial, len(ranked), k, n)
		}
		if diversified != (n > k) {
			t.Fatalf("trial %d: diversified = %v with n=%d k=%d", trial, diversified, n, k)
		}
		if n == 0 {
			continue
		}

		best := Score(query, chunks)[0]
		if ranked[0].Chunk.ChunkID != best.Chunk.ChunkID {
			t.Fatalf("trial %d: first = %s, want top-scored %s", trial, ranked[0].Chunk.ChunkID, best.Chunk.ChunkID)
		}

		seen := make(map[string]bool)
		for _, r := range ranked {
			if seen[r.Chunk.ChunkID] {
				t.Fatalf("trial %d: %s selected twice", trial, r.Chunk.ChunkID)
			}
			seen[r.Chunk.ChunkID] = true
		}

		if n <= k && !sort.SliceIsSorted(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score }) {
			t.Fatalf("trial %d: passthrough result not sorted by score", trial)
		}
	}
}

// naiveMMR recomputes every candidate's max similarity each round.
func naiveMMR(candidates []Scored, k int, lambda float64) []Scored {
	selected := []Scored{candidates[0]}
	remaining := slices.Clone(candidates[1:])
	for len(selected) < k && len(remaining) > 0 {
		bestIdx, bestMMR := -1, 0.0
		for i, cand := range remaining {
			maxSim := -2.0
			for _, s := range selected {
				maxSim = max(maxSim, Cosine(cand.Chunk.Embedding, s.Chunk.Embedding))
			}
			mmr := lambda*cand.Score - (1-lambda)*maxSim
			if bestIdx < 0 || mmr > bestMMR {
				bestIdx, bestMMR = i, mmr
			}
		}
		selected = append(selected, remaining[bestIdx])
		remaining = slices.Delete(remaining, bestIdx, bestIdx+1)
	}
	return selected
}

func TestRank_MatchesNaiveMMR(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))

	for trial := 0; trial < 20; trial++ {
		query := randomChunks(rng, 1, 8)[0].Embedding
		chunks := randomChunks(rng, 30, 8)
		k := 2 + rng.IntN(9)
		lambda := rng.Float64()

		ranked, _ := Rank(query, chunks, k, lambda)
		want := naiveMMR(Score(query, chunks), k, lambda)
		if !slices.Equal(scoredIDs(ranked), scoredIDs(want)) {
			t.Fatalf("trial %d: Rank() = %v, naive = %v", trial, scoredIDs(ranked), scoredIDs(want))
		}
	}
}

func TestRank_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	query := randomChunks(rng, 1, 32)[0].Embedding
	chunks := randomChunks(rng, 40, 32)

	first, _ := Rank(query, chunks, 7, DefaultLambda)
	for i := 0; i < 5; i++ {
		again, _ := Rank(query, chunks, 7, DefaultLambda)
		if !slices.Equal(scoredIDs(first), scoredIDs(again)) {
			t.Fatalf("run %d differs: %v vs %v", i, scoredIDs(again), scoredIDs(first))
		}
	}
}

func TestRank_EmptyAndNonPositiveK(t *testing.T) {
	ranked, diversified := Rank([]float32{1}, nil, 5, DefaultLambda)
	if len(ranked) != 0 || diversified {
		t.Errorf("Rank(empty) = %v, %v", ranked, diversified)
	}

	ranked, _ = Rank([]float32{1}, []corpus.Chunk{vecChunk("a", 1)}, 0, DefaultLambda)
	if len(ranked) != 0 {
		t.Errorf("Rank(k=0) len = %d, want 0", len(ranked))
	}
}
