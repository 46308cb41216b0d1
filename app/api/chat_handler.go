package api

import (
	"github.com/gofiber/fiber/v2"

	"visamate/app/agent"
	"visamate/types"
)

type ChatHandler struct {
	agent *agent.Agent
}

func NewChatHandler(a *agent.Agent) *ChatHandler {
	return &ChatHandler{
		agent: a,
	}
}

func (h *ChatHandler) HandleChat(c *fiber.Ctx) error {
	var params types.ChatParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}

	if errors := types.Validate(&params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	resp, err := h.agent.Answer(c.Context(), params.Message, params.History)
	if err != nil {
		return err
	}

	return c.JSON(resp)
}
