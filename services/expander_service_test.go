package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLexicalExpander_AlwaysIncludesRawQueryFirst(t *testing.T) {
	e := NewLexicalExpander()

	for _, query := range []string{
		"What is KJSEA?",
		"grade 10 placement",
		"",
		"a",
	} {
		variants := e.Expand(context.Background(), query)
		require.NotEmpty(t, variants, "query %q", query)
		assert.Equal(t, query, variants[0], "raw query must come first")
	}
}

func TestLexicalExpander_AddsDomainRestatementAndTokens(t *testing.T) {
	e := NewLexicalExpander()

	variants := e.Expand(context.Background(), "What subjects are in the STEM pathway?")

	assert.Contains(t, variants, "Kenya CBC curriculum: What subjects are in the STEM pathway?")
	assert.Contains(t, variants, "subjects")
	assert.Contains(t, variants, "stem")
	assert.Contains(t, variants, "pathway")
	// "what" and "the" are too short or stopwords
	assert.NotContains(t, variants, "what")
	assert.NotContains(t, variants, "the")
}

func TestLexicalExpander_DeduplicatesAndCaps(t *testing.T) {
	e := NewLexicalExpander()

	variants := e.Expand(context.Background(), "placement placement placement placement placement placement")

	seen := make(map[string]bool)
	for _, v := range variants {
		assert.False(t, seen[v], "duplicate variant %q", v)
		seen[v] = true
	}
	assert.LessOrEqual(t, len(variants), maxLexicalVariants)
}

func TestSignificantTokens_FiltersShortAndStopwords(t *testing.T) {
	tokens := significantTokens("What is the KJSEA exam about for them?")
	assert.Equal(t, []string{"kjsea", "exam"}, tokens)
}

func TestExtractStringArray(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
		ok   bool
	}{
		{"plain array", `["a", "b"]`, []string{"a", "b"}, true},
		{"code fence", "```json\n[\"one\", \"two\"]\n```", []string{"one", "two"}, true},
		{"surrounding prose", `Here you go: ["x"] hope that helps`, []string{"x"}, true},
		{"no array", "sorry, I can't", nil, false},
		{"malformed", `[1, 2, 3]`, nil, false},
		{"empty array", `[]`, nil, false},
		{"blank entries", `["", "  "]`, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractStringArray(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestDedupeVariants_KeepsFirstSeenOrder(t *testing.T) {
	out := dedupeVariants([]string{"a", "b", "a", "c", "b", "d"}, 3)
	assert.Equal(t, []string{"a", "b", "c"}, out)
}

type fakeExpansionModel struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeExpansionModel) generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func newModelExpanderWith(model expansionModel) *ModelExpander {
	return &ModelExpander{model: model, fallback: NewLexicalExpander()}
}

func TestModelExpander_UsesModelPhrasings(t *testing.T) {
	model := &fakeExpansionModel{reply: `["KJSEA grading", "Grade 9 exit assessment"]`}
	e := newModelExpanderWith(model)

	variants := e.Expand(context.Background(), "What is KJSEA?")

	assert.Equal(t, []string{"What is KJSEA?", "KJSEA grading", "Grade 9 exit assessment"}, variants)
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], `"What is KJSEA?"`)
}

func TestModelExpander_CapsPhrasingsAndDeduplicates(t *testing.T) {
	model := &fakeExpansionModel{reply: `["a", "What is KJSEA?", "b", "c", "d"]`}
	e := newModelExpanderWith(model)

	variants := e.Expand(context.Background(), "What is KJSEA?")

	assert.Equal(t, "What is KJSEA?", variants[0])
	assert.LessOrEqual(t, len(variants), maxModelVariants+1)
}

func TestModelExpander_ProviderFailureFallsBackToLexical(t *testing.T) {
	model := &fakeExpansionModel{err: context.DeadlineExceeded}
	e := newModelExpanderWith(model)

	query := "What subjects are in the STEM pathway?"
	variants := e.Expand(context.Background(), query)

	assert.Equal(t, NewLexicalExpander().Expand(context.Background(), query), variants)
}

func TestModelExpander_UnparseableReplyFallsBackToLexical(t *testing.T) {
	model := &fakeExpansionModel{reply: "I'd be happy to help rephrase that!"}
	e := newModelExpanderWith(model)

	query := "What is KJSEA?"
	variants := e.Expand(context.Background(), query)

	assert.Equal(t, NewLexicalExpander().Expand(context.Background(), query), variants)
}
