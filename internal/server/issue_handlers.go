package server

import (
	"urbanfix/internal/models"
	"urbanfix/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListIssues handles GET /api/issues
// @Summary Issue feed
// @Description Lists issues by priority descending, then oldest first
// @Tags issues
// @Produce json
// @Param status query string false "pending, verified, addressed or all" default(verified)
// @Param q query string false "Search title, description and address"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset"
// @Success 200 {array} models.Issue
// @Failure 400 {object} models.ErrorResponse
// @Router /issues [get]
func (s *Server) ListIssues(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)

	issues, err := s.issues.Feed(c.UserContext(), service.FeedQuery{
		Status: c.Query("status"),
		Query:  c.Query("q"),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(issues)
}

// GetTriage handles GET /api/issues/triage
// @Summary Triage queue
// @Description Verified issues ordered for responders
// @Tags issues
// @Produce json
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset"
// @Success 200 {array} models.Issue
// @Router /issues/triage [get]
func (s *Server) GetTriage(c *fiber.Ctx) error {
	page := parsePagination(c, defaultPaginationLimit)

	issues, err := s.scoring.Triage(c.UserContext(), page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(issues)
}

// GetStats handles GET /api/issues/stats
// @Summary Dashboard counters
// @Tags issues
// @Produce json
// @Success 200 {object} models.IssueStats
// @Router /issues/stats [get]
func (s *Server) GetStats(c *fiber.Ctx) error {
	stats, err := s.issues.Stats(c.UserContext())
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(stats)
}

// GetNearby handles GET /api/issues/nearby?lat=..&lng=..
// @Summary Open issues near a point
// @Description Open issues inside the duplicate radius and window, nearest first
// @Tags issues
// @Produce json
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Success 200 {array} models.NearbyIssue
// @Failure 400 {object} models.ErrorResponse
// @Router /issues/nearby [get]
func (s *Server) GetNearby(c *fiber.Ctx) error {
	p, err := parsePoint(c)
	if err != nil {
		return nil
	}

	hits, err := s.issues.Nearby(c.UserContext(), p)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(hits)
}

// GetIssue handles GET /api/issues/:id
// @Summary Get issue
// @Tags issues
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {object} models.Issue
// @Failure 404 {object} models.ErrorResponse
// @Router /issues/{id} [get]
func (s *Server) GetIssue(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	issue, err := s.issues.Get(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(issue)
}

// GetIssueReports handles GET /api/issues/:id/reports
// @Summary Reports folded into an issue
// @Tags issues
// @Produce json
// @Param id path string true "Issue ID"
// @Success 200 {array} models.IssueReport
// @Failure 404 {object} models.ErrorResponse
// @Router /issues/{id}/reports [get]
func (s *Server) GetIssueReports(c *fiber.Ctx) error {
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	reports, err := s.issues.Reports(c.UserContext(), id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(reports)
}

// GetMyIssues handles GET /api/issues/mine
// @Summary Issues created by the caller
// @Tags issues
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset"
// @Success 200 {array} models.Issue
// @Failure 401 {object} models.ErrorResponse
// @Router /issues/mine [get]
func (s *Server) GetMyIssues(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return nil
	}
	page := parsePagination(c, defaultPaginationLimit)

	issues, err := s.issues.Mine(c.UserContext(), caller, page.Limit, page.Offset)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(issues)
}

// SubmitReport handles POST /api/issues
// @Summary Submit a report
// @Description Merges the report into an open issue within the duplicate radius or creates a new issue
// @Tags issues
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body service.ReportInput true "Report"
// @Success 201 {object} service.SubmitResult "created"
// @Success 200 {object} service.SubmitResult "merged"
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 429 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /issues [post]
func (s *Server) SubmitReport(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return nil
	}

	var req service.ReportInput
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	res, err := s.resolver.Submit(c.UserContext(), caller, req)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}

	status := fiber.StatusOK
	if res.Outcome == service.OutcomeCreated {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(res)
}

// MarkAddressed handles POST /api/issues/:id/address
// @Summary Mark an issue addressed
// @Description Moves a verified issue to addressed
// @Tags lifecycle
// @Produce json
// @Security BearerAuth
// @Param id path string true "Issue ID"
// @Success 200 {object} models.Issue
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /issues/{id}/address [post]
func (s *Server) MarkAddressed(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return nil
	}
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	issue, err := s.lifecycle.MarkAddressed(c.UserContext(), caller, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(issue)
}

// RecordAIVerification handles POST /api/issues/:id/ai-verification
// @Summary Record an AI verification
// @Description Called by the external verifier; sets ai_verified and re-evaluates the lifecycle
// @Tags lifecycle
// @Produce json
// @Security BearerAuth
// @Param id path string true "Issue ID"
// @Success 200 {object} models.Issue
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /issues/{id}/ai-verification [post]
func (s *Server) RecordAIVerification(c *fiber.Ctx) error {
	caller, err := principal(c)
	if err != nil {
		return nil
	}
	id, err := parseUUID(c, "id")
	if err != nil {
		return nil
	}

	issue, err := s.lifecycle.RecordAIVerification(c.UserContext(), caller, id)
	if err != nil {
		return models.RespondWithAppError(c, err)
	}
	return c.JSON(issue)
}
