package server

import (
	"urbanfix/internal/geocode"

	"github.com/gofiber/fiber/v2"
)

// LocateIP handles GET /api/location/ip
// @Summary Suggested map center
// @Description Approximates the caller's position from their IP, falling back to the default center
// @Tags location
// @Produce json
// @Success 200 {object} geocode.Location
// @Router /location/ip [get]
func (s *Server) LocateIP(c *fiber.Ctx) error {
	ip := geocode.ClientIP(c.Get(fiber.HeaderXForwardedFor), c.Get("X-Real-IP"), c.Context().RemoteIP().String())
	return c.JSON(s.ipLocator.Locate(c.UserContext(), ip))
}
