package services

import (
	"context"
	"log"

	openai "github.com/sashabaranov/go-openai"

	"github.com/elimu-hub/cbc-chatbot/config"
)

// queryInstruction is prepended to search queries before embedding. Models
// tuned for asymmetric retrieval score queries against unprefixed passages,
// so documents are embedded without it.
const queryInstruction = "Represent this sentence for searching relevant passages: "

// EmbeddingService turns texts into fixed-length vectors. Both methods batch
// every input into a single provider call and degrade to a nil slice on any
// provider failure; callers treat an empty result as "skip this stage".
type EmbeddingService interface {
	EmbedQueries(ctx context.Context, texts []string) [][]float32
	EmbedDocuments(ctx context.Context, texts []string) [][]float32
}

type embeddingServiceImpl struct {
	client *openai.Client
	model  string
}

// NewEmbeddingService creates an embedding client against any
// OpenAI-compatible embeddings endpoint.
func NewEmbeddingService(cfg *config.Config) EmbeddingService {
	clientConfig := openai.DefaultConfig(cfg.EmbeddingsAPIKey)
	if cfg.EmbeddingsBaseURL != "" {
		clientConfig.BaseURL = cfg.EmbeddingsBaseURL
	}
	return &embeddingServiceImpl{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.EmbeddingsModel,
	}
}

func (s *embeddingServiceImpl) EmbedQueries(ctx context.Context, texts []string) [][]float32 {
	prefixed := make([]string, len(texts))
	for i, t := range texts {
		prefixed[i] = queryInstruction + t
	}
	return s.embed(ctx, prefixed)
}

func (s *embeddingServiceImpl) EmbedDocuments(ctx context.Context, texts []string) [][]float32 {
	return s.embed(ctx, texts)
}

func (s *embeddingServiceImpl) embed(ctx context.Context, texts []string) [][]float32 {
	if len(texts) == 0 {
		return nil
	}

	resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(s.model),
	})
	if err != nil {
		log.Printf("EMBEDDING WARN: provider call failed: %v", err)
		return nil
	}
	if len(resp.Data) != len(texts) {
		log.Printf("EMBEDDING WARN: expected %d vectors, got %d", len(texts), len(resp.Data))
		return nil
	}

	// The provider is not required to preserve input order; the index field
	// on each datum is authoritative.
	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) || len(d.Embedding) == 0 {
			log.Printf("EMBEDDING WARN: malformed embedding datum at index %d", d.Index)
			return nil
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors
}
