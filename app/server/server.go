package server

import (
	"context"
	"log"
	"log/slog"

	"wikichat/app/agent"
	"wikichat/app/api"
	"wikichat/app/middleware"
	"wikichat/config"
	"wikichat/ingest"
	"wikichat/model"
	"wikichat/retriever"
	"wikichat/store"

	"github.com/gofiber/fiber/v2"
)

var fiberConfig = fiber.Config{
	ErrorHandler: api.ErrorHandler,
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger
}

func NewServer(cfg config.Config) *Server {
	return &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
}

func (s *Server) Stop() {
	s.logger.Info("server stopped")
}

func (s *Server) Run() {
	ctx := context.Background()

	pool, err := store.NewPostgresStore(ctx, s.cfg.ConnStr())
	if err != nil {
		log.Fatal("error to connect to Postgres database ", err)
		return
	}

	if err := pool.Init(ctx, s.cfg.EmbeddingDimension); err != nil {
		log.Fatal("error to create tables ", err)
		return
	}

	embedder, generator := s.buildProviders()

	retr, err := retriever.New(pool, s.cfg.SimilarityThreshold, s.cfg.TopK)
	if err != nil {
		log.Fatal("error to build retriever ", err)
		return
	}

	ragAgent := agent.New(embedder, generator, retr, pool, agent.Config{
		TopK:             s.cfg.TopK,
		HistoryLimit:     s.cfg.HistoryLimit,
		IncludeHistory:   s.cfg.IncludeHistory,
		MaxContextTokens: s.cfg.MaxContextToken,
	})
	ingester := ingest.New(pool, embedder, s.cfg.ChunkSize, s.cfg.ChunkOverlap)

	var (
		app             = fiber.New(fiberConfig)
		checkHandler    = api.NewCheckHandler(pool, embedder)
		chatHandler     = api.NewChatHandler(ragAgent)
		documentHandler = api.NewDocumentHandler(pool, ingester)
		check           = app.Group("/check")
		apiv1           = app.Group("/api/v1")
	)

	app.Use(middleware.IgnoreProbes())

	check.Get("/healthy", checkHandler.HandleHealthy)

	apiv1.Post("/chat", chatHandler.HandleChat)
	apiv1.Get("/chat/:session_id/history", chatHandler.HandleHistory)

	apiv1.Post("/documents", documentHandler.HandleUpload)
	apiv1.Get("/documents", documentHandler.HandleList)
	apiv1.Get("/documents/:id", documentHandler.HandleGet)
	apiv1.Delete("/documents/:id", documentHandler.HandleDelete)

	if err := app.Listen(s.cfg.ServerAddr); err != nil {
		s.logger.Error("error to start server", "error", err.Error())
		return
	}
}

// buildProviders picks the embedding and generation backends from config.
// Both paths go through the same gateway and retry decoration.
func (s *Server) buildProviders() (model.Embedder, model.Generator) {
	switch s.cfg.EmbeddingProvider {
	case "openai":
		client := model.NewOpenAIClient(s.cfg.OpenAIAPIKey, "", s.cfg.LLMModel, s.cfg.EmbeddingDimension)
		gateway := model.NewGateway(client, s.cfg.EmbeddingDimension, s.cfg.EmbedBatchSize)
		return model.NewRetryEmbedder(gateway), client
	default:
		client := model.NewOllamaClient(
			s.cfg.OllamaEmbedURL,
			s.cfg.OllamaEmbedModel,
			s.cfg.OllamaGenerateURL,
			s.cfg.LLMModel,
		)
		gateway := model.NewGateway(client, s.cfg.EmbeddingDimension, s.cfg.EmbedBatchSize)
		return model.NewRetryEmbedder(gateway), client
	}
}
