package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/textsplitter"

	"github.com/elimu-hub/cbc-chatbot/config"
)

// IngestService delivers already-extracted text into the document collection:
// chunk, embed in one batch, upsert. It is a thin feeder for the retrieval
// pipeline; the chat path only ever reads what it writes.
type IngestService interface {
	IngestText(ctx context.Context, source, text string, metadata map[string]string) (int, error)
}

type ingestServiceImpl struct {
	store      VectorStore
	embedder   EmbeddingService
	collection string
}

func NewIngestService(store VectorStore, embedder EmbeddingService, cfg *config.Config) IngestService {
	return &ingestServiceImpl{
		store:      store,
		embedder:   embedder,
		collection: cfg.DocumentCollection,
	}
}

// IngestText splits the text into overlapping chunks and upserts each with
// its embedding. Returns the number of chunks indexed.
func (s *ingestServiceImpl) IngestText(ctx context.Context, source, text string, metadata map[string]string) (int, error) {
	if strings.TrimSpace(text) == "" {
		return 0, fmt.Errorf("no indexable content in %q", source)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(1000),
		textsplitter.WithChunkOverlap(100),
	)
	chunks, err := splitter.SplitText(text)
	if err != nil {
		return 0, fmt.Errorf("failed to split text from %q: %w", source, err)
	}
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no indexable content in %q", source)
	}

	vectors := s.embedder.EmbedDocuments(ctx, chunks)
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedding failed for %q: expected %d vectors, got %d", source, len(chunks), len(vectors))
	}

	for i, chunk := range chunks {
		meta := map[string]string{"source": source, "chunk_num": fmt.Sprintf("%d", i)}
		for k, v := range metadata {
			meta[k] = v
		}
		id := fmt.Sprintf("%s-chunk%d", uuid.New().String(), i)
		if err := s.store.Upsert(ctx, s.collection, id, vectors[i], chunk, meta); err != nil {
			return i, fmt.Errorf("failed to store chunk %d of %q: %w", i, source, err)
		}
	}

	log.Printf("INGEST: indexed %d chunks from %q", len(chunks), source)
	return len(chunks), nil
}
