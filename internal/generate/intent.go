// Package generate turns a natural language question into an executable
// SQL statement using an LLM, guided by the relevant table schemas.
package generate

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/askql/askql/internal/llm"
	"github.com/askql/askql/internal/logging"
)

// Intent captures what the user is asking for, as extracted from the
// question by the model.
type Intent struct {
	TargetColumns []string `json:"target_columns"`
	Conditions    []string `json:"conditions"`
	Subject       *string  `json:"subject"`
	OutputColumns []string `json:"output_columns"`
}

// fallbackIntent is returned when the model's reply cannot be parsed.
// Extraction degrades rather than fails so the pipeline can continue.
func fallbackIntent() Intent {
	return Intent{
		TargetColumns: []string{},
		Conditions:    []string{},
		Subject:       nil,
		OutputColumns: []string{"name", "price", "category"},
	}
}

const intentSystemPrompt = `You are an expert at understanding database queries.
Analyze the user's question and extract:
1. What specific information they want (columns)
2. Any conditions or filters
3. The main subject they're asking about

Format your response as JSON with these keys:
{
    "target_columns": [], # List of columns they want to see
    "conditions": [], # List of conditions to filter by
    "subject": "", # Main entity being queried
    "output_columns": [] # Final columns to show in result
}`

// Extractor extracts query intent from natural language questions.
type Extractor struct {
	client llm.Client
	logger *logging.Logger
}

// NewExtractor creates an intent extractor backed by the given client.
func NewExtractor(client llm.Client, logger *logging.Logger) *Extractor {
	return &Extractor{client: client, logger: logger}
}

// ExtractIntent asks the model to analyze the question. It never
// returns an error: if the model call or parsing fails, the fallback
// intent is returned and the failure is logged.
func (e *Extractor) ExtractIntent(ctx context.Context, question string) Intent {
	reply, err := e.client.Complete(ctx, intentSystemPrompt, "Analyze this database query: "+question)
	if err != nil {
		e.logger.WithError(err).Warnf("intent extraction failed, using fallback")
		return fallbackIntent()
	}

	intent, ok := parseIntent(reply)
	if !ok {
		e.logger.WithField("reply", reply).Warnf("could not parse intent reply, using fallback")
		return fallbackIntent()
	}

	return intent
}

// parseIntent tries a strict unmarshal first, then looks for a JSON
// object buried in markdown fences or surrounding prose.
func parseIntent(reply string) (Intent, bool) {
	var intent Intent
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &intent); err == nil {
		return normalizeIntent(intent), true
	}

	extracted, ok := extractJSONObject(reply)
	if !ok {
		return Intent{}, false
	}

	if err := json.Unmarshal([]byte(extracted), &intent); err != nil {
		return Intent{}, false
	}

	return normalizeIntent(intent), true
}

// normalizeIntent replaces nil slices so downstream formatting never
// has to distinguish nil from empty.
func normalizeIntent(intent Intent) Intent {
	if intent.TargetColumns == nil {
		intent.TargetColumns = []string{}
	}

	if intent.Conditions == nil {
		intent.Conditions = []string{}
	}

	if intent.OutputColumns == nil {
		intent.OutputColumns = []string{}
	}

	return intent
}

// extractJSONObject finds the first balanced top-level JSON object in
// s, skipping over markdown fences and prose. Braces inside JSON
// strings are ignored.
func extractJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}

		if c == '\\' && inString {
			escaped = true
			continue
		}

		if c == '"' {
			inString = !inString
			continue
		}

		if inString {
			continue
		}

		switch c {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				candidate := s[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}

				return "", false
			}
		}
	}

	return "", false
}
