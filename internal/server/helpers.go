package server

import (
	"strings"
	"unicode"

	"bothub/internal/models"

	"github.com/gofiber/fiber/v2"
)

// parseID extracts a route parameter by name as a positive uint. On failure it
// writes a 400 JSON response and reports false; callers then return nil so the
// committed response is not overwritten by Fiber's ErrorHandler. The message
// is derived from the parameter name (e.g. "id" -> "Invalid ID", "botId" ->
// "Invalid bot ID").
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, bool) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		_ = models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid "+humanizeParam(param)))
		return 0, false
	}
	return uint(id), true
}

// currentUserID reads the authenticated user ID placed in locals by AuthRequired.
func (s *Server) currentUserID(c *fiber.Ctx) uint {
	if uid, ok := c.Locals("userID").(uint); ok {
		return uid
	}
	return 0
}

// respondServiceError maps a service-layer error to its HTTP status and
// writes the standard error body.
func respondServiceError(c *fiber.Ctx, err error) error {
	return models.RespondWithError(c, models.StatusForError(err), err)
}

// humanizeParam converts a route param name into a human-readable label.
// Examples: "id" -> "ID", "botId" -> "bot ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	// Split on camelCase boundary before the trailing "Id" suffix.
	if strings.HasSuffix(param, "Id") {
		prefix := param[:len(param)-2]
		// Split camelCase prefix into words.
		words := splitCamel(prefix)
		return strings.ToLower(strings.Join(words, " ")) + " ID"
	}
	return param
}

// splitCamel splits a camelCase string into words.
func splitCamel(s string) []string {
	var words []string
	start := 0
	for i, r := range s {
		if i > 0 && unicode.IsUpper(r) {
			words = append(words, s[start:i])
			start = i
		}
	}
	words = append(words, s[start:])
	return words
}
