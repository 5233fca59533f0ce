package server

import (
	"bothub/internal/models"
	"bothub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CreateBot handles POST /api/bots
func (s *Server) CreateBot(c *fiber.Ctx) error {
	var req struct {
		Name        string `json:"name"`
		Personality string `json:"personality"`
		Model       string `json:"model"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	bot, err := s.botService.CreateBot(c.Context(), service.CreateBotInput{
		UserID:      s.currentUserID(c),
		Name:        req.Name,
		Personality: req.Personality,
		Model:       req.Model,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"bot": bot})
}

// GetBots handles GET /api/bots
func (s *Server) GetBots(c *fiber.Ctx) error {
	bots, err := s.botService.ListBots(c.Context(), s.currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"bots": bots})
}

// GetBot handles GET /api/bots/:id
func (s *Server) GetBot(c *fiber.Ctx) error {
	botID, ok := s.parseID(c, "id")
	if !ok {
		return nil
	}

	bot, err := s.botService.GetBot(c.Context(), botID, s.currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"bot": bot})
}

// DeleteBot handles DELETE /api/bots/:id
func (s *Server) DeleteBot(c *fiber.Ctx) error {
	botID, ok := s.parseID(c, "id")
	if !ok {
		return nil
	}

	if err := s.botService.DeleteBot(c.Context(), botID, s.currentUserID(c)); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// SendMessage handles POST /api/bots/:id/messages
func (s *Server) SendMessage(c *fiber.Ctx) error {
	botID, ok := s.parseID(c, "id")
	if !ok {
		return nil
	}

	var req struct {
		Message string `json:"message"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.chatService.SendMessage(c.Context(), s.currentUserID(c), botID, req.Message)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// ClearConversation handles DELETE /api/bots/:id/conversation
func (s *Server) ClearConversation(c *fiber.Ctx) error {
	botID, ok := s.parseID(c, "id")
	if !ok {
		return nil
	}

	if err := s.chatService.ClearConversation(c.Context(), s.currentUserID(c), botID); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}
