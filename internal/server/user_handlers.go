package server

import (
	"bothub/internal/models"
	"bothub/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetMyProfile handles GET /api/users/me. Reading the profile applies any
// pending quota resets so the returned counters are for the current period.
func (s *Server) GetMyProfile(c *fiber.Ctx) error {
	userID := s.currentUserID(c)

	user, err := s.userService.GetProfile(c.Context(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	limits := service.LimitsFor(user.Plan)
	return c.JSON(fiber.Map{
		"user": user,
		"limits": fiber.Map{
			"messages":     limits.Messages,
			"images":       limits.Images,
			"historyTurns": service.HistoryLimit(user.Plan),
		},
	})
}

// GetMyFeatureFlags handles GET /api/users/me/flags.
func (s *Server) GetMyFeatureFlags(c *fiber.Ctx) error {
	userID := s.currentUserID(c)
	return c.JSON(fiber.Map{
		"flags": s.featureFlags.Snapshot(userID),
	})
}

// SaveSettings handles PUT /api/users/me/settings.
func (s *Server) SaveSettings(c *fiber.Ctx) error {
	var req struct {
		OpenAIKey string `json:"openaiKey"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := s.currentUserID(c)
	user, err := s.userService.SaveSettings(c.Context(), userID, req.OpenAIKey)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// UpgradePlan handles POST /api/users/me/plan, the self-service plan switch.
func (s *Server) UpgradePlan(c *fiber.Ctx) error {
	var req struct {
		Plan string `json:"plan"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := s.currentUserID(c)
	user, err := s.userService.UpgradePlan(c.Context(), userID, req.Plan)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}
