package relevance

import (
	"context"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/askql/askql/internal/describe"
)

// Lexical ranks tables with TF-IDF weighted term vectors and cosine
// similarity. Terms are unigrams and bigrams with english stop words
// removed. Scores tend to run lower than dense embeddings, so the tuned
// threshold is correspondingly lower.
type Lexical struct {
	threshold float64

	mu  sync.RWMutex
	idx *lexicalIndex
}

type lexicalIndex struct {
	idf  map[string]float64
	docs []lexicalDoc
}

type lexicalDoc struct {
	table  string
	vector map[string]float64 // l2-normalized tf-idf weights
}

// NewLexical creates a lexical strategy with the given minimum-similarity
// threshold.
func NewLexical(threshold float64) *Lexical {
	return &Lexical{threshold: threshold}
}

// Build tokenizes every description variant, fits IDF weights over the whole
// corpus, and swaps in the finished index atomically.
func (l *Lexical) Build(_ context.Context, descriptions []describe.Description) error {
	items := flattenDescriptions(descriptions)

	tokenized := make([][]string, len(items))
	df := make(map[string]int)

	for i, item := range items {
		terms := tokenize(item.text)
		tokenized[i] = terms

		for _, term := range uniqueTerms(terms) {
			df[term]++
		}
	}

	n := len(items)

	idf := make(map[string]float64, len(df))
	for term, count := range df {
		// Smoothed IDF keeps terms that appear everywhere from zeroing out.
		idf[term] = math.Log(float64(1+n)/float64(1+count)) + 1
	}

	docs := make([]lexicalDoc, len(items))
	for i, item := range items {
		docs[i] = lexicalDoc{
			table:  item.table,
			vector: vectorize(tokenized[i], idf),
		}
	}

	l.mu.Lock()
	l.idx = &lexicalIndex{idf: idf, docs: docs}
	l.mu.Unlock()

	return nil
}

// Query expands the question into variants, scores each against the corpus
// by cosine similarity, and aggregates per-table maxima.
func (l *Lexical) Query(_ context.Context, text string, topK int) ([]RankedTable, error) {
	l.mu.RLock()
	idx := l.idx
	l.mu.RUnlock()

	if idx == nil {
		return nil, errNotBuilt()
	}

	var matches []scoredMatch

	for _, variant := range expandQuery(text) {
		vector := vectorize(tokenize(variant), idx.idf)
		if len(vector) == 0 {
			continue
		}

		var variantMatches []scoredMatch

		for _, doc := range idx.docs {
			score := sparseCosine(vector, doc.vector)
			if score >= l.threshold {
				variantMatches = append(variantMatches,
					scoredMatch{table: doc.table, score: score})
			}
		}

		matches = append(matches, topMatches(variantMatches, topK*2)...)
	}

	return aggregateRanked(matches, topK), nil
}

// tokenize lowercases, splits on non-alphanumeric runs, drops stop words,
// and adds bigrams of adjacent kept tokens.
func tokenize(text string) []string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	kept := make([]string, 0, len(words))
	for _, word := range words {
		if !stopWords[word] {
			kept = append(kept, word)
		}
	}

	terms := make([]string, 0, 2*len(kept))
	terms = append(terms, kept...)

	for i := 0; i+1 < len(kept); i++ {
		terms = append(terms, kept[i]+" "+kept[i+1])
	}

	return terms
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))

	unique := make([]string, 0, len(terms))
	for _, term := range terms {
		if !seen[term] {
			seen[term] = true
			unique = append(unique, term)
		}
	}

	return unique
}

// vectorize builds an l2-normalized tf-idf vector. Terms without a fitted
// IDF weight (never seen at build time) are skipped.
func vectorize(terms []string, idf map[string]float64) map[string]float64 {
	tf := make(map[string]float64)

	for _, term := range terms {
		if _, ok := idf[term]; ok {
			tf[term]++
		}
	}

	if len(tf) == 0 {
		return nil
	}

	var norm float64

	for term := range tf {
		tf[term] *= idf[term]
		norm += tf[term] * tf[term]
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		return nil
	}

	for term := range tf {
		tf[term] /= norm
	}

	return tf
}

// sparseCosine computes the dot product of two l2-normalized sparse vectors
func sparseCosine(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}

	var dot float64

	for term, weight := range a {
		dot += weight * b[term]
	}

	return dot
}
