package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"google.golang.org/genai"
)

// Variant caps. Fan-out cost downstream grows linearly with the number of
// variants, so both strategies are bounded.
const (
	maxLexicalVariants = 6
	maxModelVariants   = 3
	minTokenLen        = 4
	maxDrillTokens     = 3
)

// domainRestatement anchors a generic question to the curriculum domain.
const domainRestatement = "Kenya CBC curriculum: "

// QueryExpander turns one user query into alternate search phrasings. The
// result is ordered, deduplicated, never empty, and always starts with the
// raw query verbatim.
type QueryExpander interface {
	Expand(ctx context.Context, query string) []string
}

// LexicalExpander is the offline strategy: the raw query, a
// domain-contextualized restatement, and the query's most significant tokens
// drilled as standalone probes.
type LexicalExpander struct{}

func NewLexicalExpander() *LexicalExpander {
	return &LexicalExpander{}
}

var stopwords = map[string]bool{
	"what": true, "when": true, "where": true, "which": true, "whose": true,
	"this": true, "that": true, "these": true, "those": true, "there": true,
	"about": true, "does": true, "will": true, "have": true, "with": true,
	"from": true, "into": true, "should": true, "could": true, "would": true,
	"their": true, "they": true, "them": true, "then": true, "than": true,
	"your": true, "mine": true, "being": true, "been": true, "were": true,
}

func (e *LexicalExpander) Expand(_ context.Context, query string) []string {
	variants := []string{query}

	if trimmed := strings.TrimSpace(query); trimmed != "" {
		variants = append(variants, domainRestatement+trimmed)
	}

	// Drill: each significant token widens recall for fragments that mention
	// the term without matching the question's phrasing.
	tokens := significantTokens(query)
	if len(tokens) > maxDrillTokens {
		tokens = tokens[:maxDrillTokens]
	}
	variants = append(variants, tokens...)

	return dedupeVariants(variants, maxLexicalVariants)
}

func significantTokens(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var tokens []string
	for _, f := range fields {
		if len(f) < minTokenLen || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// dedupeVariants removes exact duplicates preserving first-seen order, drops
// empties, and caps the count. The first entry (the raw query) survives.
func dedupeVariants(variants []string, limit int) []string {
	seen := make(map[string]bool, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		if v == "" && len(out) > 0 {
			continue
		}
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) >= limit {
			break
		}
	}
	return out
}

// expansionModel is the single call the model-assisted strategy makes to its
// provider: one prompt in, the reply text out.
type expansionModel interface {
	generate(ctx context.Context, prompt string) (string, error)
}

// ModelExpander asks a fast completion model for alternate phrasings and
// falls back to the lexical strategy on any provider or parse failure.
type ModelExpander struct {
	model    expansionModel
	fallback *LexicalExpander
}

func NewModelExpander(client *genai.Client) *ModelExpander {
	return &ModelExpander{
		model:    &geminiExpansionModel{client: client, model: "gemini-2.5-flash"},
		fallback: NewLexicalExpander(),
	}
}

type geminiExpansionModel struct {
	client *genai.Client
	model  string
}

func (g *geminiExpansionModel) generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.1),
		MaxOutputTokens: 256,
	})
	if err != nil {
		return "", err
	}
	return responseText(result), nil
}

const expandPrompt = `Rewrite the following question about the Kenyan CBC/CBE education system as up to 3 alternate search phrasings that would each retrieve different relevant passages. Respond with a JSON array of strings and nothing else.

Question: %q`

func (e *ModelExpander) Expand(ctx context.Context, query string) []string {
	text, err := e.model.generate(ctx, fmt.Sprintf(expandPrompt, query))
	if err != nil {
		log.Printf("EXPANDER WARN: model expansion failed, falling back to lexical: %v", err)
		return e.fallback.Expand(ctx, query)
	}

	phrasings, ok := extractStringArray(text)
	if !ok {
		log.Printf("EXPANDER WARN: could not parse expansion reply, falling back to lexical")
		return e.fallback.Expand(ctx, query)
	}
	if len(phrasings) > maxModelVariants {
		phrasings = phrasings[:maxModelVariants]
	}

	return dedupeVariants(append([]string{query}, phrasings...), maxModelVariants+1)
}

func responseText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		if p != nil && p.Text != "" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// extractStringArray leniently pulls the first JSON string array out of a
// model reply, tolerating surrounding prose or code fences.
func extractStringArray(text string) ([]string, bool) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, false
	}
	var arr []string
	if err := json.Unmarshal([]byte(text[start:end+1]), &arr); err != nil {
		return nil, false
	}
	out := arr[:0]
	for _, s := range arr {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}
