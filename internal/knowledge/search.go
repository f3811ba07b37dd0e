package knowledge

import (
	"slices"
	"unicode/utf8"
)

// Tier is the coarse confidence classification of a result set. It drives
// disclosure policy, not only display.
type Tier string

const (
	TierHigh    Tier = "high"
	TierGood    Tier = "good"
	TierPartial Tier = "partial"
	TierNone    Tier = "none"
)

// Confidence thresholds on the top score. They are policy constants.
const (
	HighThreshold    = 85.0
	GoodThreshold    = 70.0
	PartialThreshold = 60.0
)

const (
	// DefaultTopK is used when SearchOptions.TopK is not positive.
	DefaultTopK = 3
	// MaxQueryRunes bounds the normalized query that is scored.
	MaxQueryRunes = 256
	// MinPartialQueryRunes is the shortest query scored by substring
	// alignment. Shorter queries only match a whole title or phrasing.
	MinPartialQueryRunes = 3
)

// TierFor classifies a top score.
func TierFor(score float64) Tier {
	switch {
	case score >= HighThreshold:
		return TierHigh
	case score >= GoodThreshold:
		return TierGood
	case score >= PartialThreshold:
		return TierPartial
	default:
		return TierNone
	}
}

// Field names the part of a document that produced its score.
type Field string

const (
	FieldPhrasing Field = "phrasing"
	FieldBody     Field = "body"
)

// Match is one ranked document.
type Match struct {
	Document  Document `json:"document"`
	Score     float64  `json:"score"`
	MatchedOn Field    `json:"matched_on"`
}

// Result is a ranked retrieval outcome.
type Result struct {
	Query     string   `json:"query"`
	Category  Category `json:"category,omitempty"`
	Matches   []Match  `json:"matches"`
	Tier      Tier     `json:"tier"`
	NoResults bool     `json:"no_results"`
}

// TopScore returns the best score, or 0 for an empty result.
func (r Result) TopScore() float64 {
	if len(r.Matches) == 0 {
		return 0
	}
	return r.Matches[0].Score
}

// SearchOptions narrows a search.
type SearchOptions struct {
	// Category restricts scoring to one category; zero means all.
	Category Category
	TopK     int
}

type indexedDoc struct {
	doc       Document
	phrasings []string
	body      string
}

// Engine scores queries against a corpus. The index is built once and never
// mutated, so an Engine is safe for concurrent use.
type Engine struct {
	index      []indexedDoc
	similarity Similarity
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithSimilarity replaces the default PartialRatio metric.
func WithSimilarity(s Similarity) EngineOption {
	return func(e *Engine) {
		if s != nil {
			e.similarity = s
		}
	}
}

// NewEngine indexes the normalized title, phrasings and body of every
// document in c.
func NewEngine(c *Corpus, opts ...EngineOption) *Engine {
	e := &Engine{similarity: PartialRatio}
	for _, opt := range opts {
		opt(e)
	}
	for _, doc := range c.Documents() {
		entry := indexedDoc{doc: doc, body: Normalize(doc.Body)}
		for _, p := range append([]string{doc.Title}, doc.Phrasings...) {
			if np := Normalize(p); np != "" {
				entry.phrasings = append(entry.phrasings, np)
			}
		}
		e.index = append(e.index, entry)
	}
	return e
}

// Search ranks every document (or every document in opts.Category) against
// query. Documents scoring below PartialThreshold are dropped; an empty query,
// empty corpus or no surviving document yields NoResults. Search never fails.
func (e *Engine) Search(query string, opts SearchOptions) Result {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	q := Normalize(query)
	if r := []rune(q); len(r) > MaxQueryRunes {
		q = string(r[:MaxQueryRunes])
	}
	result := Result{Query: q, Category: opts.Category, Matches: []Match{}, Tier: TierNone, NoResults: true}
	if q == "" {
		return result
	}

	for _, entry := range e.index {
		if opts.Category != "" && entry.doc.Category != opts.Category {
			continue
		}
		m := e.score(q, entry)
		if m.Score >= PartialThreshold {
			result.Matches = append(result.Matches, m)
		}
	}
	// Stable sort keeps declaration order among equal scores.
	slices.SortStableFunc(result.Matches, func(a, b Match) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(result.Matches) > topK {
		result.Matches = result.Matches[:topK]
	}
	if len(result.Matches) > 0 {
		result.Tier = TierFor(result.TopScore())
		result.NoResults = false
	}
	return result
}

func (e *Engine) score(q string, entry indexedDoc) Match {
	best := Match{Document: entry.doc, MatchedOn: FieldPhrasing}
	if utf8.RuneCountInString(q) < MinPartialQueryRunes {
		// One or two letters are a substring of nearly every body.
		for _, p := range entry.phrasings {
			if s := Ratio(q, p); s > best.Score {
				best.Score = s
			}
		}
		best.Score = roundScore(best.Score)
		return best
	}
	for _, p := range entry.phrasings {
		if s := e.similarity(q, p); s > best.Score {
			best.Score = s
		}
	}
	if s := e.similarity(q, entry.body); s > best.Score {
		best.Score = s
		best.MatchedOn = FieldBody
	}
	best.Score = roundScore(best.Score)
	return best
}

// Search is a one-shot convenience over NewEngine(c).Search.
func Search(query string, c *Corpus, opts SearchOptions) Result {
	return NewEngine(c).Search(query, opts)
}
