package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetFeatureFlags returns the flags evaluated for the current principal.
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return nil
	}

	return c.JSON(fiber.Map{
		"evaluated": s.featureFlags.Snapshot(caller.UserID),
	})
}
