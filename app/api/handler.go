package api

import (
	"log"
	"time"

	"wikichat/app/agent"
	"wikichat/types"

	"github.com/gofiber/fiber/v2"
)

type ChatHandler struct {
	agent *agent.Agent
}

func NewChatHandler(a *agent.Agent) *ChatHandler {
	return &ChatHandler{agent: a}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	result, err := h.agent.ProcessQuery(c.Context(), params.Prompt, params.SessionID)
	if err != nil {
		log.Printf("[CHAT] query failed for session %s: %v", params.SessionID, err)
		return err
	}

	resp := &types.ChatResponse{
		Answer:    result.Answer,
		Sources:   result.Sources,
		Timestamp: time.Now(),
	}
	return c.JSON(resp)
}

func (h *ChatHandler) HandleHistory(c *fiber.Ctx) error {
	sessionID := c.Params("session_id")
	if sessionID == "" {
		return ErrBadRequest()
	}

	turns, err := h.agent.History(c.Context(), sessionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"session_id": sessionID, "turns": turns})
}
