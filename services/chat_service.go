package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/elimu-hub/cbc-chatbot/models"
)

// ErrEmptyQuery is returned when the conversation carries no user question to
// answer. It is rejected before any external call is made.
var ErrEmptyQuery = errors.New("no user query in conversation")

// ChatService runs the full retrieval-and-cache pipeline for one request:
// embed the raw query, try the semantic answer cache, otherwise expand the
// query, retrieve and fuse evidence, assemble the grounded prompt, complete,
// and persist the new answer in the background.
type ChatService interface {
	ProcessChat(ctx context.Context, messages []models.ChatMessage) (*models.ChatResponse, error)
}

type chatServiceImpl struct {
	embedder   EmbeddingService
	expander   QueryExpander
	cache      SemanticCache
	retriever  Retriever
	completion CompletionService
}

func NewChatService(
	embedder EmbeddingService,
	expander QueryExpander,
	cache SemanticCache,
	retriever Retriever,
	completion CompletionService,
) ChatService {
	return &chatServiceImpl{
		embedder:   embedder,
		expander:   expander,
		cache:      cache,
		retriever:  retriever,
		completion: completion,
	}
}

func (s *chatServiceImpl) ProcessChat(ctx context.Context, messages []models.ChatMessage) (*models.ChatResponse, error) {
	query := latestUserQuery(messages)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	log.Printf("SERVICE: Processing chat query: %q", query)

	// Every degradable stage below converts its failure into an empty state
	// rather than aborting: only the final completion call is allowed to
	// fail the request.
	var (
		bundle []models.Fragment
		cached bool
		rawVec []float32
	)

	if vecs := s.embedder.EmbedQueries(ctx, []string{query}); len(vecs) == 1 {
		rawVec = vecs[0]
	} else {
		log.Printf("SERVICE: query embedding unavailable, skipping cache and retrieval")
	}

	if rawVec != nil {
		if answer, hit := s.cache.Lookup(ctx, rawVec); hit {
			// The stored answer becomes the entire context bundle; document
			// retrieval and fusion are bypassed.
			bundle = []models.Fragment{{Text: answer}}
			cached = true
		}
	}

	if !cached && rawVec != nil {
		variants := s.expander.Expand(ctx, query)
		log.Printf("SERVICE: expanded query into %d variants", len(variants))

		if variantVecs := s.embedder.EmbedQueries(ctx, variants); len(variantVecs) > 0 {
			bundle = s.retriever.FetchContext(ctx, variantVecs)
		} else {
			log.Printf("SERVICE: variant embedding unavailable, proceeding without evidence")
		}
	}

	systemPrompt := BuildSystemPrompt(bundle)

	answer, err := s.completion.Complete(ctx, systemPrompt, messages)
	if err != nil {
		return nil, err
	}

	// Persisting the fresh answer never blocks or fails the response. Cached
	// answers are not re-written: the memory collection is append-only.
	if !cached && rawVec != nil {
		s.cache.StoreAsync(query, rawVec, answer)
	}

	return &models.ChatResponse{
		Role:    "assistant",
		Content: answer,
		Cached:  cached,
	}, nil
}

// latestUserQuery returns the content of the most recent user turn.
func latestUserQuery(messages []models.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
