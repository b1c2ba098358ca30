package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config carries every tunable the service reads at startup. Values come
// from the environment (the mains load .env first); nothing here is
// reloaded at runtime.
type Config struct {
	ServerAddr string

	// Postgres
	PGHost   string
	PGPort   int
	PGUser   string
	PGPass   string
	PGDBName string

	// Providers
	EmbeddingProvider string // "ollama" or "openai"
	OllamaEmbedURL    string
	OllamaEmbedModel  string
	OllamaGenerateURL string
	LLMModel          string
	OpenAIAPIKey      string

	// Chunking
	ChunkSize    int
	ChunkOverlap int

	// Retrieval
	SimilarityThreshold float64
	TopK                int

	// Embedding gateway
	EmbedBatchSize     int
	EmbeddingDimension int

	// Conversation
	HistoryLimit    int
	IncludeHistory  bool
	MaxContextToken int

	// Loader
	SourceDir      string
	ArchiveDir     string
	BadDir         string
	MonitoringTime time.Duration
	ConverterURL   string
}

func FromEnv() Config {
	return Config{
		ServerAddr: getStr("SERVER_ADDR", ":3000"),

		PGHost:   getStr("PG_HOST", "localhost"),
		PGPort:   getInt("PG_PORT", 5432),
		PGUser:   os.Getenv("PG_USER"),
		PGPass:   os.Getenv("PG_PASS"),
		PGDBName: os.Getenv("PG_DB_NAME"),

		EmbeddingProvider: getStr("EMBEDDING_PROVIDER", "ollama"),
		OllamaEmbedURL:    os.Getenv("OLLAMA_EMBEDDING_URL"),
		OllamaEmbedModel:  os.Getenv("OLLAMA_EMBEDDING_MODEL"),
		OllamaGenerateURL: os.Getenv("OLLAMA_GENERATE_URL"),
		LLMModel:          os.Getenv("LLM_MODEL"),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),

		ChunkSize:    getInt("CHUNK_SIZE", 1000),
		ChunkOverlap: getInt("CHUNK_OVERLAP", 200),

		SimilarityThreshold: getFloat("SIMILARITY_THRESHOLD", 0.7),
		TopK:                getInt("TOP_K", 5),

		EmbedBatchSize:     getInt("EMBED_BATCH_SIZE", 100),
		EmbeddingDimension: getInt("EMBEDDING_DIMENSION", 768),

		HistoryLimit:    getInt("HISTORY_LIMIT", 10),
		IncludeHistory:  getBool("INCLUDE_HISTORY", true),
		MaxContextToken: getInt("MAX_CONTEXT_TOKENS", 3000),

		SourceDir:      getStr("LOADER_SOURCE_DIR", "./source"),
		ArchiveDir:     getStr("LOADER_ARCHIVE_DIR", "./archive"),
		BadDir:         getStr("LOADER_BAD_DIR", "./bad"),
		MonitoringTime: getDuration("MONITORING_TIME", 5*time.Second),
		ConverterURL:   os.Getenv("CONVERTER_URL"),
	}
}

// ConnStr builds the Postgres connection string the pgx pool expects.
func (c Config) ConnStr() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.PGHost, c.PGPort, c.PGUser, c.PGPass, c.PGDBName)
}

func getStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
