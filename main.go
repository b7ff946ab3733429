package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"github.com/elimu-hub/cbc-chatbot/config"
	"github.com/elimu-hub/cbc-chatbot/controller"
	"github.com/elimu-hub/cbc-chatbot/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Invalid configuration: %v", err)
	}

	// Shared clients, constructed once and injected everywhere.
	gateway, err := services.NewVectorGateway(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to create vector store gateway: %v", err)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			log.Printf("Warning: Failed to close chroma client: %v", err)
		}
	}()

	embedder := services.NewEmbeddingService(cfg)
	completion := services.NewCompletionService(cfg)

	expander, err := buildExpander(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to create query expander: %v", err)
	}

	cache := services.NewSemanticCache(gateway, cfg)
	retriever := services.NewRetriever(gateway, cfg)
	chatService := services.NewChatService(embedder, expander, cache, retriever, completion)
	ingestService := services.NewIngestService(gateway, embedder, cfg)
	chatController := controller.NewChatController(chatService, ingestService, cfg.RequestTimeout)

	// Background sync of the local curriculum directory, if configured.
	indexCtx, cancelIndexer := context.WithCancel(context.Background())
	defer cancelIndexer()
	if cfg.IndexPath != "" {
		indexer := services.NewDirectoryIndexer(gateway, ingestService, cfg)
		go indexer.Run(indexCtx)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": "CBC Chatbot Backend",
			"version": "2.0.0",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/chat", chatController.Chat)              // Answer a curriculum question
		apiV1.POST("/ingest-text", chatController.IngestText) // Index pasted text
		apiV1.POST("/ingest", chatController.IngestFile)      // Index an uploaded file
	}

	log.Printf("CBC chatbot backend starting on http://localhost:%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}

// buildExpander picks the query expansion strategy from configuration. Only
// the model-assisted strategy needs a Gemini client.
func buildExpander(cfg *config.Config) (services.QueryExpander, error) {
	if cfg.ExpanderStrategy != "model" {
		return services.NewLexicalExpander(), nil
	}
	geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return services.NewModelExpander(geminiClient), nil
}
