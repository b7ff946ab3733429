package services

import (
	"context"
	"sync"

	"github.com/elimu-hub/cbc-chatbot/models"
)

// fakeVectorStore implements VectorStore for tests. Query results and errors
// are keyed by collection name; upserts are recorded and signalled so tests
// can wait for background writes.
type fakeVectorStore struct {
	mu         sync.Mutex
	results    map[string][][]models.Fragment
	queryErr   map[string]error
	upsertErr  error
	upserts    []upsertRecord
	upsertDone chan struct{}
	queries    []queryRecord
}

type upsertRecord struct {
	collection string
	id         string
	vector     []float32
	document   string
	metadata   map[string]string
}

type queryRecord struct {
	collection string
	vectors    [][]float32
	n          int
}

func newFakeVectorStore() *fakeVectorStore {
	return &fakeVectorStore{
		results:    make(map[string][][]models.Fragment),
		queryErr:   make(map[string]error),
		upsertDone: make(chan struct{}, 16),
	}
}

func (f *fakeVectorStore) QueryNearest(_ context.Context, collection string, vectors [][]float32, n int) ([][]models.Fragment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, queryRecord{collection: collection, vectors: vectors, n: n})
	if err := f.queryErr[collection]; err != nil {
		return nil, err
	}
	groups := f.results[collection]
	// One group per input embedding, empty when the fake has fewer.
	out := make([][]models.Fragment, len(vectors))
	for i := range vectors {
		if i < len(groups) {
			out[i] = groups[i]
		}
	}
	return out, nil
}

func (f *fakeVectorStore) Upsert(_ context.Context, collection, id string, vector []float32, document string, metadata map[string]string) error {
	f.mu.Lock()
	f.upserts = append(f.upserts, upsertRecord{collection, id, vector, document, metadata})
	err := f.upsertErr
	f.mu.Unlock()
	f.upsertDone <- struct{}{}
	return err
}

func (f *fakeVectorStore) DeleteBySource(context.Context, string, string) error { return nil }

func (f *fakeVectorStore) AllMetadatas(context.Context, string) ([]map[string]interface{}, error) {
	return nil, nil
}

func (f *fakeVectorStore) upsertCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.upserts)
}

func (f *fakeVectorStore) queryCount(collection string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, q := range f.queries {
		if q.collection == collection {
			n++
		}
	}
	return n
}

// fakeEmbedder returns one deterministic vector per input, or nothing when
// failing is set (the degraded contract of the real client).
type fakeEmbedder struct {
	failing bool
}

func (f *fakeEmbedder) EmbedQueries(_ context.Context, texts []string) [][]float32 {
	return f.embed(texts)
}

func (f *fakeEmbedder) EmbedDocuments(_ context.Context, texts []string) [][]float32 {
	return f.embed(texts)
}

func (f *fakeEmbedder) embed(texts []string) [][]float32 {
	if f.failing {
		return nil
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1, 0}
	}
	return out
}

// fakeCompletion records the system prompt it was called with.
type fakeCompletion struct {
	answer  string
	err     error
	prompts []string
}

func (f *fakeCompletion) Complete(_ context.Context, systemPrompt string, _ []models.ChatMessage) (string, error) {
	f.prompts = append(f.prompts, systemPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}
