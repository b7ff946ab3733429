package services

import (
	"context"
	"log"

	"github.com/elimu-hub/cbc-chatbot/config"
	"github.com/elimu-hub/cbc-chatbot/models"
)

// Retriever fans a set of variant embeddings out against the document
// collection and fuses the results into one context bundle.
type Retriever interface {
	FetchContext(ctx context.Context, variantVectors [][]float32) []models.Fragment
}

type retrieverImpl struct {
	store      VectorStore
	collection string
	topN       int
}

func NewRetriever(store VectorStore, cfg *config.Config) Retriever {
	return &retrieverImpl{
		store:      store,
		collection: cfg.DocumentCollection,
		topN:       cfg.TopNPerVariant,
	}
}

// FetchContext issues one batched nearest-neighbor call covering every
// variant, then flattens the per-variant result lists in variant order and
// deduplicates by fragment fingerprint, first seen wins. The store's native
// ordering within each variant is preserved; no re-ranking happens here.
// Any failure or absence of results yields an empty bundle, never an error:
// absence of evidence is a valid pipeline state.
func (r *retrieverImpl) FetchContext(ctx context.Context, variantVectors [][]float32) []models.Fragment {
	if len(variantVectors) == 0 {
		return nil
	}

	groups, err := r.store.QueryNearest(ctx, r.collection, variantVectors, r.topN)
	if err != nil {
		log.Printf("RETRIEVAL WARN: document lookup failed, proceeding without evidence: %v", err)
		return nil
	}

	seen := make(map[string]bool)
	var bundle []models.Fragment
	for _, group := range groups {
		for _, frag := range group {
			fp := frag.Fingerprint()
			if fp == "" || seen[fp] {
				continue
			}
			seen[fp] = true
			bundle = append(bundle, frag)
		}
	}

	log.Printf("RETRIEVAL: fused %d variants into %d unique fragments", len(variantVectors), len(bundle))
	return bundle
}
