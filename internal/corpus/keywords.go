package corpus

import (
	"cmp"
	"math"
	"slices"
	"strings"
	"unicode"
)

const (
	// keywordVocabulary caps the title vocabulary to the most frequent terms.
	keywordVocabulary = 50
	// keywordLimit is how many terms TopKeywords reports.
	keywordLimit = 20
)

// KeywordScore is a title term and its mean TF-IDF weight across documents.
type KeywordScore struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

// TopKeywords scores unigrams and bigrams of the distinct document titles in
// chunks with TF-IDF and returns the highest mean scores. Each title vector is
// L2-normalized before averaging, and idf is smoothed as ln((1+n)/(1+df))+1.
func TopKeywords(chunks []Chunk) []KeywordScore {
	titles := documentTitles(chunks)
	if len(titles) == 0 {
		return []KeywordScore{}
	}

	docTerms := make([]map[string]int, len(titles))
	total := make(map[string]int)
	df := make(map[string]int)
	for i, title := range titles {
		counts := make(map[string]int)
		for _, term := range titleTerms(title) {
			counts[term]++
			total[term]++
		}
		for term := range counts {
			df[term]++
		}
		docTerms[i] = counts
	}

	vocab := make([]string, 0, len(total))
	for term := range total {
		vocab = append(vocab, term)
	}
	slices.SortFunc(vocab, func(a, b string) int {
		if c := cmp.Compare(total[b], total[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	if len(vocab) > keywordVocabulary {
		vocab = vocab[:keywordVocabulary]
	}

	n := float64(len(titles))
	idf := make(map[string]float64, len(vocab))
	for _, term := range vocab {
		idf[term] = math.Log((1+n)/(1+float64(df[term]))) + 1
	}

	sums := make(map[string]float64, len(vocab))
	for _, counts := range docTerms {
		weights := make(map[string]float64)
		var norm float64
		for term, tf := range counts {
			w, ok := idf[term]
			if !ok {
				continue
			}
			w *= float64(tf)
			weights[term] = w
			norm += w * w
		}
		if norm == 0 {
			continue
		}
		norm = math.Sqrt(norm)
		for term, w := range weights {
			sums[term] += w / norm
		}
	}

	scores := make([]KeywordScore, 0, len(sums))
	for term, sum := range sums {
		if mean := sum / n; mean > 0 {
			scores = append(scores, KeywordScore{Term: term, Score: mean})
		}
	}
	slices.SortFunc(scores, func(a, b KeywordScore) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return strings.Compare(a.Term, b.Term)
	})
	if len(scores) > keywordLimit {
		scores = scores[:keywordLimit]
	}
	return scores
}

// documentTitles returns the first non-empty title of each document, in corpus order.
func documentTitles(chunks []Chunk) []string {
	seen := make(map[string]struct{})
	var titles []string
	for _, c := range chunks {
		if _, ok := seen[c.DocID]; ok || c.DocTitle == "" {
			continue
		}
		seen[c.DocID] = struct{}{}
		titles = append(titles, c.DocTitle)
	}
	return titles
}

// titleTerms lowercases title, drops stopwords and one-letter words, and
// returns the remaining unigrams followed by their adjacent bigrams.
func titleTerms(title string) []string {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})

	kept := make([]string, 0, len(words))
	for _, w := range words {
		if len([]rune(w)) < 2 {
			continue
		}
		if _, stop := englishStopwords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}

	terms := slices.Clone(kept)
	for i := 1; i < len(kept); i++ {
		terms = append(terms, kept[i-1]+" "+kept[i])
	}
	return terms
}

var englishStopwords = func() map[string]struct{} {
	words := []string{
		"a", "about", "above", "after", "again", "against", "all", "also", "am", "an",
		"and", "any", "are", "as", "at", "be", "because", "been", "before", "being",
		"below", "between", "both", "but", "by", "can", "could", "did", "do", "does",
		"doing", "down", "during", "each", "few", "for", "from", "further", "had", "has",
		"have", "having", "he", "her", "here", "hers", "him", "his", "how", "if",
		"in", "into", "is", "it", "its", "itself", "just", "may", "might", "more",
		"most", "must", "my", "no", "nor", "not", "of", "off", "on", "once",
		"only", "or", "other", "our", "ours", "out", "over", "own", "same", "she",
		"should", "so", "some", "such", "than", "that", "the", "their", "them", "then",
		"there", "these", "they", "this", "those", "through", "to", "too", "under", "until",
		"up", "upon", "very", "via", "was", "we", "were", "what", "when", "where",
		"which", "while", "who", "whom", "why", "will", "with", "within", "without", "would",
		"you", "your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
