package api

import (
	"wikichat/model"
	"wikichat/store"

	"github.com/gofiber/fiber/v2"
)

type CheckHandler struct {
	store    *store.PostgresStore
	embedder model.Embedder
}

func NewCheckHandler(st *store.PostgresStore, embedder model.Embedder) *CheckHandler {
	return &CheckHandler{
		store:    st,
		embedder: embedder,
	}
}

func (h *CheckHandler) HandleHealthy(c *fiber.Ctx) error {
	dbOK := h.store.Ping(c.Context()) == nil
	embedOK := h.embedder.HealthCheck(c.Context())

	status := fiber.StatusOK
	if !dbOK || !embedOK {
		status = fiber.StatusServiceUnavailable
	}
	return c.Status(status).JSON(fiber.Map{
		"database": dbOK,
		"embedder": embedOK,
	})
}
