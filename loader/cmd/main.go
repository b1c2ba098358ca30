package main

import (
	"context"
	"log"

	"wikichat/config"
	"wikichat/ingest"
	"wikichat/loader/service"
	"wikichat/model"
	"wikichat/store"

	"github.com/joho/godotenv"
)

func init() {
	mustLoadEnvVariables()
}

func main() {
	ctx := context.Background()
	cfg := config.FromEnv()

	pool, err := store.NewPostgresStore(ctx, cfg.ConnStr())
	if err != nil {
		log.Fatal("error to connect to Postgres database ", err)
		return
	}

	if err := pool.Init(ctx, cfg.EmbeddingDimension); err != nil {
		log.Fatal("error to create tables ", err)
		return
	}

	embedder := buildEmbedder(cfg)
	ingester := ingest.New(pool, embedder, cfg.ChunkSize, cfg.ChunkOverlap)

	service.New(pool, ingester, cfg).Run()

	log.Println("Closing database connection pool...")
	if err := pool.Close(); err != nil {
		log.Printf("error closing pool: %v\n", err)
	} else {
		log.Println("Database connection pool closed successfully")
	}
}

func buildEmbedder(cfg config.Config) model.Embedder {
	var gateway *model.Gateway
	switch cfg.EmbeddingProvider {
	case "openai":
		client := model.NewOpenAIClient(cfg.OpenAIAPIKey, "", cfg.LLMModel, cfg.EmbeddingDimension)
		gateway = model.NewGateway(client, cfg.EmbeddingDimension, cfg.EmbedBatchSize)
	default:
		client := model.NewOllamaClient(cfg.OllamaEmbedURL, cfg.OllamaEmbedModel, cfg.OllamaGenerateURL, cfg.LLMModel)
		gateway = model.NewGateway(client, cfg.EmbeddingDimension, cfg.EmbedBatchSize)
	}
	return model.NewRetryEmbedder(gateway)
}

func mustLoadEnvVariables() {
	err := godotenv.Load()
	if err != nil {
		log.Fatal("Error loading .env file")
	}
}
