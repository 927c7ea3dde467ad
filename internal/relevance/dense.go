package relevance

import (
	"context"
	"math"
	"sync"

	"github.com/askql/askql/internal/describe"
	"github.com/askql/askql/internal/errors"
)

// Dense ranks tables with sentence embeddings from the LLM provider's
// embedding endpoint and cosine similarity. Dense scores sit higher than
// lexical ones for the same corpus, hence the separate tuned threshold.
type Dense struct {
	threshold float64
	embedder  Embedder

	mu  sync.RWMutex
	idx *denseIndex
}

type denseIndex struct {
	tables  []string
	vectors [][]float32 // l2-normalized, parallel to tables
}

// NewDense creates a dense strategy with the given minimum-similarity
// threshold.
func NewDense(threshold float64, embedder Embedder) *Dense {
	return &Dense{threshold: threshold, embedder: embedder}
}

// Build embeds every description variant in a single batch and swaps in the
// finished index atomically.
func (d *Dense) Build(ctx context.Context, descriptions []describe.Description) error {
	items := flattenDescriptions(descriptions)

	texts := make([]string, len(items))
	for i, item := range items {
		texts[i] = item.text
	}

	idx := &denseIndex{}

	if len(texts) > 0 {
		vectors, err := d.embedder.Embed(ctx, texts)
		if err != nil {
			return errors.Wrap(err, errors.ErrTypeGeneration,
				"failed to embed table descriptions")
		}

		if len(vectors) != len(texts) {
			return errors.Newf(errors.ErrTypeInternal,
				"embedding count mismatch: sent %d texts, got %d vectors",
				len(texts), len(vectors))
		}

		idx.tables = make([]string, len(items))
		idx.vectors = make([][]float32, len(items))

		for i, item := range items {
			idx.tables[i] = item.table
			idx.vectors[i] = normalize(vectors[i])
		}
	}

	d.mu.Lock()
	d.idx = idx
	d.mu.Unlock()

	return nil
}

// Query embeds the question variants in one batch and scores them against
// the corpus, aggregating per-table maxima.
func (d *Dense) Query(ctx context.Context, text string, topK int) ([]RankedTable, error) {
	d.mu.RLock()
	idx := d.idx
	d.mu.RUnlock()

	if idx == nil {
		return nil, errNotBuilt()
	}

	if len(idx.vectors) == 0 {
		return nil, nil
	}

	variants := expandQuery(text)

	queryVectors, err := d.embedder.Embed(ctx, variants)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTypeGeneration,
			"failed to embed query variants")
	}

	var matches []scoredMatch

	for _, queryVector := range queryVectors {
		qv := normalize(queryVector)

		var variantMatches []scoredMatch

		for i, docVector := range idx.vectors {
			score := float64(dot(qv, docVector))
			if score >= d.threshold {
				variantMatches = append(variantMatches,
					scoredMatch{table: idx.tables[i], score: score})
			}
		}

		matches = append(matches, topMatches(variantMatches, topK*2)...)
	}

	return aggregateRanked(matches, topK), nil
}

func normalize(vector []float32) []float32 {
	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		return vector
	}

	normalized := make([]float32, len(vector))
	for i, v := range vector {
		normalized[i] = float32(float64(v) / norm)
	}

	return normalized
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}

	return sum
}
