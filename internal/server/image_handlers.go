package server

import (
	"bothub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GenerateImage handles POST /api/images/generations
func (s *Server) GenerateImage(c *fiber.Ctx) error {
	userID := s.currentUserID(c)

	if !s.featureFlags.Enabled("image_generation", userID) {
		return models.RespondWithError(c, fiber.StatusForbidden,
			models.NewValidationError("Image generation is not enabled for this account"))
	}

	var req struct {
		Prompt string `json:"prompt"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	result, err := s.imageService.GenerateImage(c.Context(), userID, req.Prompt)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}
