package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config gathers every external dependency setting in one place. It is built
// once at startup and handed explicitly to each service constructor, so the
// services never reach into the environment themselves.
type Config struct {
	Port string

	// Chroma vector store
	ChromaURL      string
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	// Collection names. DocumentCollection holds the ingested curriculum
	// material; MemoryCollection holds previously answered questions.
	DocumentCollection string
	MemoryCollection   string

	// Embedding provider (OpenAI-compatible /embeddings endpoint)
	EmbeddingsBaseURL string
	EmbeddingsAPIKey  string
	EmbeddingsModel   string

	// Groq completion model
	GroqAPIKey    string
	GroqBaseURL   string
	GroqModel     string
	GroqMaxTokens int

	// Gemini, only needed for the model-assisted expander
	GeminiAPIKey string

	// ExpanderStrategy is "lexical" or "model".
	ExpanderStrategy string

	// CacheThreshold is the maximum distance at which a previously answered
	// question counts as a cache hit.
	CacheThreshold float64

	// TopNPerVariant is how many fragments each query variant pulls from the
	// document collection.
	TopNPerVariant int

	// IndexPath is the local directory of curriculum files to scan and watch.
	// Empty disables local indexing.
	IndexPath string

	RequestTimeout time.Duration
}

// Load reads the .env file if present and builds the Config from the
// environment, applying defaults that match the reference deployment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		ChromaURL:          getEnv("CHROMA_URL", "http://localhost:8000"),
		ChromaAPIKey:       os.Getenv("CHROMA_API_KEY"),
		ChromaTenant:       os.Getenv("CHROMA_TENANT"),
		ChromaDatabase:     os.Getenv("CHROMA_DATABASE"),
		DocumentCollection: getEnv("DOCUMENT_COLLECTION", "Curriculumnpdfs"),
		MemoryCollection:   getEnv("MEMORY_COLLECTION", "chat_memory"),
		EmbeddingsBaseURL:  getEnv("EMBEDDINGS_BASE_URL", "https://api.openai.com/v1"),
		EmbeddingsAPIKey:   os.Getenv("EMBEDDINGS_API_KEY"),
		EmbeddingsModel:    getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
		GroqAPIKey:         os.Getenv("GROQ_API_KEY"),
		GroqBaseURL:        getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:          getEnv("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqMaxTokens:      getEnvInt("GROQ_MAX_TOKENS", 1500),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		ExpanderStrategy:   getEnv("EXPANDER_STRATEGY", "lexical"),
		CacheThreshold:     getEnvFloat("CACHE_THRESHOLD", 0.1),
		TopNPerVariant:     getEnvInt("TOP_N_PER_VARIANT", 5),
		IndexPath:          os.Getenv("INDEX_PATH"),
		RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECS", 60)) * time.Second,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY not set")
	}
	if c.ExpanderStrategy != "lexical" && c.ExpanderStrategy != "model" {
		return fmt.Errorf("EXPANDER_STRATEGY must be \"lexical\" or \"model\", got %q", c.ExpanderStrategy)
	}
	if c.ExpanderStrategy == "model" && c.GeminiAPIKey == "" {
		return fmt.Errorf("EXPANDER_STRATEGY=model requires GEMINI_API_KEY")
	}
	if c.CacheThreshold < 0 {
		return fmt.Errorf("CACHE_THRESHOLD must be >= 0, got %v", c.CacheThreshold)
	}
	if c.TopNPerVariant <= 0 {
		return fmt.Errorf("TOP_N_PER_VARIANT must be > 0, got %d", c.TopNPerVariant)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("CONFIG WARN: %s=%q is not an integer, using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("CONFIG WARN: %s=%q is not a number, using default %v", key, v, fallback)
		return fallback
	}
	return f
}
