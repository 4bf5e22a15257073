package server

import (
	"urbanfix/internal/models"
	"urbanfix/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// VoteRequest is the body of a vote.
type VoteRequest struct {
	VoteType string `json:"vote_type" validate:"required,vote_type"`
}

// CastVote handles POST /api/issues/:id/votes
// @Summary Vote on an issue
// @Description Repeating the current vote retracts it; the opposite vote switches it
// @Tags votes
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Issue ID"
// @Param request body VoteRequest true "Vote"
// @Success 200 {object} service.VoteResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /issues/{id}/votes [post]
func (s *Server) CastVote(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return nil
	}
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	var req VoteRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if err := validation.Struct(req); err != nil {
		return models.RespondWithAppError(c, err)
	}

	res, err := s.scoring.CastVote(c.UserContext(), caller, id, models.VoteType(req.VoteType))
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(res)
}

// GetMyVotes handles GET /api/votes/me
// @Summary Caller's votes
// @Description Map of issue id to vote type
// @Tags votes
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]string
// @Failure 401 {object} models.ErrorResponse
// @Router /votes/me [get]
func (s *Server) GetMyVotes(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return nil
	}

	votes, err := s.scoring.UserVotes(c.UserContext(), caller)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(votes)
}
