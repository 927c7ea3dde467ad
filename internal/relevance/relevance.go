// Package relevance ranks tables against a free-text question using a
// similarity index built over synthesized table descriptions.
package relevance

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/askql/askql/internal/config"
	"github.com/askql/askql/internal/describe"
	"github.com/askql/askql/internal/errors"
)

// RankedTable is one lookup result. Score is in [0,1] and results are
// ordered descending by score.
type RankedTable struct {
	TableName string
	Score     float64
}

// Strategy is a similarity index over table descriptions. Build replaces any
// existing index wholesale; there is no incremental update. Query before a
// successful Build fails with a not_initialized error.
type Strategy interface {
	Build(ctx context.Context, descriptions []describe.Description) error
	Query(ctx context.Context, text string, topK int) ([]RankedTable, error)
}

// Embedder produces fixed-length vectors for a batch of texts. The dense
// strategy uses it for both corpus items and query variants.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// NewStrategy builds the configured strategy. The dense strategy requires an
// embedder; the lexical one is self-contained.
func NewStrategy(cfg config.IndexConfig, embedder Embedder) (Strategy, error) {
	switch strings.ToLower(cfg.Strategy) {
	case "lexical":
		return NewLexical(cfg.LexicalThreshold), nil
	case "dense":
		if embedder == nil {
			return nil, errors.New(errors.ErrTypeConfig,
				"dense strategy requires an embedding-capable LLM provider").
				WithSuggestion("Set llm.provider to openai or switch index.strategy to lexical")
		}

		return NewDense(cfg.DenseThreshold, embedder), nil
	default:
		return nil, errors.NewConfigError(
			fmt.Sprintf("unknown index strategy %q", cfg.Strategy), "index.strategy")
	}
}

func errNotBuilt() error {
	return errors.New(errors.ErrTypeNotInitialized, "relevance index has not been built").
		WithSuggestion("Connect to the database and run introspection before querying")
}

var (
	// Numeric literals, optionally with thousands separators and two
	// decimal places: 50000, 50,000, 1234.56.
	numberPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+(?:\.\d{2})?|\d+(?:\.\d{2})?`)

	// Shorthand magnitudes like "50K" or "1.5k".
	shorthandPattern = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)k\b`)

	comparisonPattern = regexp.MustCompile(
		`(?i)\b(more than|greater than|higher than|less than|lower than|at least|at most|equal to)\b`)
)

// expandQuery turns the raw question into one or more variants to raise
// recall for numeric-comparison phrasing. The original text is always the
// first variant. Shorthand like "50K" is rewritten to its full magnitude so
// amounts in synthesized descriptions can match; SQL-level magnitude
// inference stays with the language model.
func expandQuery(text string) []string {
	variants := []string{text}
	seen := map[string]bool{text: true}

	add := func(v string) {
		if v != "" && !seen[v] {
			variants = append(variants, v)
			seen[v] = true
		}
	}

	expanded := shorthandPattern.ReplaceAllStringFunc(text, func(match string) string {
		sub := shorthandPattern.FindStringSubmatch(match)

		value, err := strconv.ParseFloat(sub[1], 64)
		if err != nil {
			return match
		}

		return strconv.FormatFloat(value*1000, 'f', -1, 64)
	})
	add(expanded)

	amounts := numberPattern.FindAllString(expanded, -1)
	comparisons := comparisonPattern.FindAllString(expanded, -1)

	for _, comparison := range comparisons {
		for _, amount := range amounts {
			amount = strings.ReplaceAll(amount, ",", "")
			add(fmt.Sprintf("records where value is %s %s",
				strings.ToLower(comparison), amount))
		}
	}

	return variants
}

// corpusItem is one retrieval unit: a single description variant tagged with
// its owning table.
type corpusItem struct {
	table string
	text  string
}

func flattenDescriptions(descriptions []describe.Description) []corpusItem {
	var items []corpusItem

	for _, desc := range descriptions {
		for _, variant := range desc.Variants {
			items = append(items, corpusItem{table: desc.TableName, text: variant})
		}
	}

	return items
}

type scoredMatch struct {
	table string
	score float64
}

// aggregateRanked merges per-variant matches into the final ranking: the
// maximum score wins per table, results sort descending by score with a
// deterministic name tie-break, and the list truncates to topK.
func aggregateRanked(matches []scoredMatch, topK int) []RankedTable {
	best := make(map[string]float64)

	for _, m := range matches {
		score := clampScore(m.score)
		if score > best[m.table] {
			best[m.table] = score
		}
	}

	ranked := make([]RankedTable, 0, len(best))
	for table, score := range best {
		ranked = append(ranked, RankedTable{TableName: table, Score: score})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}

		return ranked[i].TableName < ranked[j].TableName
	})

	if topK > 0 && len(ranked) > topK {
		ranked = ranked[:topK]
	}

	return ranked
}

// topMatches keeps the highest-scoring matches of one variant, bounded at
// limit to leave room for deduplication across variants.
func topMatches(matches []scoredMatch, limit int) []scoredMatch {
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}

		return matches[i].table < matches[j].table
	})

	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	return matches
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}

	if score > 1 {
		return 1
	}

	return score
}
