package retrieval

import (
	"slices"
	"strings"

	"research-rag/internal/corpus"
)

// YearRange is an inclusive publication-year range. Either bound may be nil.
type YearRange struct {
	Min *int `json:"min,omitempty"`
	Max *int `json:"max,omitempty"`
}

// Keywords holds case-insensitive substring terms matched against chunk text and document title.
type Keywords struct {
	// Include keeps chunks matching at least one term.
	Include []string `json:"include,omitempty"`
	// Exclude drops chunks matching any term.
	Exclude []string `json:"exclude,omitempty"`
}

// Filter scopes a search. Every present sub-filter must pass; a nil or zero Filter matches everything.
type Filter struct {
	Year     *YearRange `json:"year,omitempty"`
	Keywords *Keywords  `json:"keywords,omitempty"`
	DocIDs   []string   `json:"doc_ids,omitempty"`
}

// Active reports whether the filter constrains anything.
func (f *Filter) Active() bool {
	if f == nil {
		return false
	}
	if f.Year != nil || len(f.DocIDs) > 0 {
		return true
	}
	if f.Keywords != nil {
		return len(foldTerms(f.Keywords.Include)) > 0 || len(foldTerms(f.Keywords.Exclude)) > 0
	}
	return false
}

// Apply returns the chunks that pass the filter, preserving their order.
// The input slice is never modified.
func (f *Filter) Apply(chunks []corpus.Chunk) []corpus.Chunk {
	if !f.Active() {
		return chunks
	}

	m := f.compile()
	out := make([]corpus.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if m.match(c) {
			out = append(out, c)
		}
	}
	return out
}

// matcher is a Filter with its terms case-folded once per request.
type matcher struct {
	year    *YearRange
	include []string
	exclude []string
	docIDs  map[string]struct{}
}

func (f *Filter) compile() matcher {
	m := matcher{year: f.Year}
	if f.Keywords != nil {
		m.include = foldTerms(f.Keywords.Include)
		m.exclude = foldTerms(f.Keywords.Exclude)
	}
	if len(f.DocIDs) > 0 {
		m.docIDs = make(map[string]struct{}, len(f.DocIDs))
		for _, id := range f.DocIDs {
			m.docIDs[id] = struct{}{}
		}
	}
	return m
}

func (m matcher) match(c corpus.Chunk) bool {
	if m.year != nil {
		if c.Year == nil {
			return false
		}
		if m.year.Min != nil && *c.Year < *m.year.Min {
			return false
		}
		if m.year.Max != nil && *c.Year > *m.year.Max {
			return false
		}
	}

	if m.docIDs != nil {
		if _, ok := m.docIDs[c.DocID]; !ok {
			return false
		}
	}

	if len(m.include) == 0 && len(m.exclude) == 0 {
		return true
	}

	text := strings.ToLower(c.Text)
	title := strings.ToLower(c.DocTitle)
	contains := func(term string) bool {
		return strings.Contains(text, term) || strings.Contains(title, term)
	}

	if len(m.include) > 0 && !slices.ContainsFunc(m.include, contains) {
		return false
	}
	return !slices.ContainsFunc(m.exclude, contains)
}

// foldTerms lower-cases and trims terms, dropping blanks.
func foldTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
