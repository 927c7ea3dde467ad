package relevance

// stopWords is a compact english stop-word list applied before term
// weighting. Question words like "show" and "all" carry no retrieval signal
// against schema-derived descriptions.
var stopWords = map[string]bool{
	"a": true, "about": true, "after": true, "all": true, "an": true,
	"and": true, "any": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "before": true, "between": true, "both": true,
	"but": true, "by": true, "can": true, "did": true, "do": true,
	"does": true, "each": true, "for": true, "from": true, "get": true,
	"give": true, "had": true, "has": true, "have": true, "how": true,
	"i": true, "if": true, "in": true, "into": true, "is": true,
	"it": true, "its": true, "list": true, "me": true, "my": true,
	"no": true, "not": true, "of": true, "on": true, "or": true,
	"our": true, "out": true, "over": true, "per": true, "show": true,
	"so": true, "some": true, "than": true, "that": true, "the": true,
	"their": true, "them": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "those": true, "to": true, "under": true,
	"up": true, "was": true, "we": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "who": true, "whose": true,
	"will": true, "with": true, "would": true, "you": true, "your": true,
}
