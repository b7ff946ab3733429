package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/elimu-hub/cbc-chatbot/config"
)

// cacheWriteTimeout bounds the detached background upsert. The write is
// exempt from request cancellation, so it needs its own deadline.
const cacheWriteTimeout = 30 * time.Second

// SemanticCache short-circuits retrieval when a sufficiently similar question
// was already answered. Lookups that fail for any reason report a miss.
type SemanticCache interface {
	Lookup(ctx context.Context, queryVector []float32) (answer string, hit bool)
	StoreAsync(query string, queryVector []float32, answer string)
}

type semanticCacheImpl struct {
	store      VectorStore
	collection string
	threshold  float64
}

// NewSemanticCache builds the cache over the memory collection. The
// threshold is a similarity radius, not an exact-match test: paraphrases and
// typos of an answered question land within it.
func NewSemanticCache(store VectorStore, cfg *config.Config) SemanticCache {
	return &semanticCacheImpl{
		store:      store,
		collection: cfg.MemoryCollection,
		threshold:  cfg.CacheThreshold,
	}
}

func (c *semanticCacheImpl) Lookup(ctx context.Context, queryVector []float32) (string, bool) {
	if len(queryVector) == 0 {
		return "", false
	}

	groups, err := c.store.QueryNearest(ctx, c.collection, [][]float32{queryVector}, 1)
	if err != nil {
		log.Printf("CACHE WARN: memory lookup failed, treating as miss: %v", err)
		return "", false
	}
	if len(groups) == 0 || len(groups[0]) == 0 {
		return "", false
	}

	nearest := groups[0][0]
	if nearest.Distance > c.threshold {
		log.Printf("CACHE: nearest prior question at distance %.4f, above threshold %.4f", nearest.Distance, c.threshold)
		return "", false
	}

	log.Printf("CACHE: hit at distance %.4f, reusing stored answer", nearest.Distance)
	return nearest.Text, true
}

// StoreAsync persists a freshly answered question without blocking the
// response path. The entry stores the answer as the document and the raw
// query as metadata, keyed by a fresh id so prior entries are never touched.
func (c *semanticCacheImpl) StoreAsync(query string, queryVector []float32, answer string) {
	if len(queryVector) == 0 || answer == "" {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
		defer cancel()

		metadata := map[string]string{
			"query":      query,
			"created_at": time.Now().UTC().Format(time.RFC3339),
		}
		if err := c.store.Upsert(ctx, c.collection, uuid.New().String(), queryVector, answer, metadata); err != nil {
			log.Printf("CACHE WARN: background write failed: %v", err)
		}
	}()
}
