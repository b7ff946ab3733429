package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"

	"github.com/elimu-hub/cbc-chatbot/config"
	"github.com/elimu-hub/cbc-chatbot/models"
)

// VectorStore is the narrow contract the pipeline has with the vector
// database. QueryNearest returns one ordered neighbor list per input
// embedding; entries with empty documents are filtered out.
type VectorStore interface {
	QueryNearest(ctx context.Context, collection string, vectors [][]float32, n int) ([][]models.Fragment, error)
	Upsert(ctx context.Context, collection, id string, vector []float32, document string, metadata map[string]string) error
	DeleteBySource(ctx context.Context, collection, source string) error
	AllMetadatas(ctx context.Context, collection string) ([]map[string]interface{}, error)
}

type chromaGateway struct {
	client chromago.Client

	mu          sync.Mutex
	collections map[string]chromago.Collection
}

// NewVectorGateway connects to Chroma using the v2 HTTP API. Collections are
// resolved by name on first use and cached for the life of the process.
func NewVectorGateway(cfg *config.Config) (*chromaGateway, error) {
	opts := []chromago.ClientOption{chromago.WithBaseURL(cfg.ChromaURL)}
	if cfg.ChromaAPIKey != "" {
		opts = append(opts, chromago.WithAuth(
			chromago.NewTokenAuthCredentialsProvider(cfg.ChromaAPIKey, chromago.XChromaTokenHeader),
		))
	}
	if cfg.ChromaTenant != "" && cfg.ChromaDatabase != "" {
		opts = append(opts, chromago.WithDatabaseAndTenant(cfg.ChromaDatabase, cfg.ChromaTenant))
	}

	client, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}

	return &chromaGateway{
		client:      client,
		collections: make(map[string]chromago.Collection),
	}, nil
}

// Close releases the underlying chroma client resources.
func (g *chromaGateway) Close() error {
	return g.client.Close()
}

// resolve returns the named collection, creating it if it does not exist yet.
// The cosine space matches the ingestion side of the reference deployment.
func (g *chromaGateway) resolve(ctx context.Context, name string) (chromago.Collection, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if col, ok := g.collections[name]; ok {
		return col, nil
	}

	col, err := g.client.GetOrCreateCollection(
		ctx,
		name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("hnsw:space", "cosine"),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve collection %q: %w", name, err)
	}
	g.collections[name] = col
	return col, nil
}

func (g *chromaGateway) QueryNearest(ctx context.Context, collection string, vectors [][]float32, n int) ([][]models.Fragment, error) {
	if len(vectors) == 0 {
		return nil, nil
	}

	col, err := g.resolve(ctx, collection)
	if err != nil {
		return nil, err
	}

	queryEmbeddings := make([]embeddings.Embedding, len(vectors))
	for i, v := range vectors {
		queryEmbeddings[i] = embeddings.NewEmbeddingFromFloat32(v)
	}

	results, err := col.Query(ctx,
		chromago.WithQueryEmbeddings(queryEmbeddings...),
		chromago.WithNResults(n),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %q: %w", collection, err)
	}

	documentGroups := results.GetDocumentsGroups()
	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()

	groups := make([][]models.Fragment, len(vectors))
	for gi := range documentGroups {
		if gi >= len(groups) {
			break
		}
		for di, doc := range documentGroups[gi] {
			if doc == nil || doc.ContentString() == "" {
				continue
			}
			frag := models.Fragment{Text: doc.ContentString()}
			if gi < len(distanceGroups) && di < len(distanceGroups[gi]) {
				frag.Distance = float64(distanceGroups[gi][di])
			}
			if gi < len(metadataGroups) && di < len(metadataGroups[gi]) {
				frag.Metadata = metadataToMap(metadataGroups[gi][di])
			}
			groups[gi] = append(groups[gi], frag)
		}
	}
	return groups, nil
}

func (g *chromaGateway) Upsert(ctx context.Context, collection, id string, vector []float32, document string, metadata map[string]string) error {
	col, err := g.resolve(ctx, collection)
	if err != nil {
		return err
	}

	attrs := make([]*chromago.MetaAttribute, 0, len(metadata))
	for k, v := range metadata {
		attrs = append(attrs, chromago.NewStringAttribute(k, v))
	}

	err = col.Upsert(ctx,
		chromago.WithIDs(chromago.DocumentID(id)),
		chromago.WithTexts(document),
		chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithMetadatas(chromago.NewDocumentMetadata(attrs...)),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert into collection %q: %w", collection, err)
	}
	return nil
}

// DeleteBySource removes every record whose source_file metadata matches.
func (g *chromaGateway) DeleteBySource(ctx context.Context, collection, source string) error {
	col, err := g.resolve(ctx, collection)
	if err != nil {
		return err
	}
	where := chromago.EqString("source_file", source)
	return col.Delete(ctx, chromago.WithWhereDelete(where))
}

// AllMetadatas returns the metadata of every record in the collection. Used
// by the indexer to rebuild its change-detection state on startup.
func (g *chromaGateway) AllMetadatas(ctx context.Context, collection string) ([]map[string]interface{}, error) {
	col, err := g.resolve(ctx, collection)
	if err != nil {
		return nil, err
	}
	results, err := col.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection %q: %w", collection, err)
	}

	metadatas := results.GetMetadatas()
	out := make([]map[string]interface{}, 0, len(metadatas))
	for _, meta := range metadatas {
		if m := metadataToMap(meta); m != nil {
			out = append(out, m)
		}
	}
	return out, nil
}

// metadataToMap converts chroma's DocumentMetadata to a plain map. The struct
// has no public accessor for its values, so a JSON round-trip is the
// supported way to flatten it.
func metadataToMap(meta chromago.DocumentMetadata) map[string]interface{} {
	if meta == nil {
		return nil
	}
	jsonBytes, err := json.Marshal(meta)
	if err != nil {
		log.Printf("GATEWAY WARN: could not marshal document metadata: %v", err)
		return map[string]interface{}{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(jsonBytes, &m); err != nil {
		log.Printf("GATEWAY WARN: could not unmarshal document metadata: %v", err)
		return map[string]interface{}{}
	}
	return m
}
