package service

import (
	"context"
	"strings"
	"time"

	"urbanfix/internal/cache"
	"urbanfix/internal/geo"
	"urbanfix/internal/models"
	"urbanfix/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// FeedQuery selects issues for the public feed.
type FeedQuery struct {
	// Status is pending, verified, addressed or all. Empty means verified.
	Status string
	Query  string
	Limit  int
	Offset int
}

// IssueService serves the read-only projections of issues.
type IssueService struct {
	store    *repository.Store
	rdb      *redis.Client
	settings Settings
	now      func() time.Time
}

func NewIssueService(store *repository.Store, rdb *redis.Client, settings Settings) *IssueService {
	return &IssueService{store: store, rdb: rdb, settings: settings, now: utcNow}
}

// Get returns one issue, read through the Redis cache.
func (s *IssueService) Get(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	var issue models.Issue
	err := cache.Aside(ctx, s.rdb, cache.IssueKey(id), &issue, cache.IssueTTL, func() error {
		found, err := s.store.Issues.GetByID(ctx, id)
		if err != nil {
			return err
		}
		issue = *found
		return nil
	})
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", id)
	}
	return &issue, nil
}

// Feed lists issues by priority descending, then oldest first.
func (s *IssueService) Feed(ctx context.Context, q FeedQuery) ([]models.Issue, error) {
	filter := repository.IssueFilter{Query: q.Query, Limit: q.Limit, Offset: q.Offset}
	switch status := strings.ToLower(strings.TrimSpace(q.Status)); status {
	case "":
		filter.Statuses = []models.IssueStatus{models.StatusVerified}
	case "all":
	default:
		if !models.IssueStatus(status).Valid() {
			return nil, models.NewValidationError("status must be one of [pending verified addressed all]")
		}
		filter.Statuses = []models.IssueStatus{models.IssueStatus(status)}
	}

	issues, err := s.store.Issues.List(ctx, filter)
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", "feed")
	}
	return issues, nil
}

// Mine lists the issues principal created, in feed order.
func (s *IssueService) Mine(ctx context.Context, principal models.Principal, limit, offset int) ([]models.Issue, error) {
	issues, err := s.store.Issues.List(ctx, repository.IssueFilter{CreatedBy: &principal.UserID, Limit: limit, Offset: offset})
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", principal.UserID)
	}
	return issues, nil
}

// Stats returns the dashboard counters.
func (s *IssueService) Stats(ctx context.Context) (*models.IssueStats, error) {
	stats, err := s.store.Issues.Stats(ctx)
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", "stats")
	}
	return stats, nil
}

// Nearby answers the proximity query with the configured radius and window.
func (s *IssueService) Nearby(ctx context.Context, p geo.Point) ([]models.NearbyIssue, error) {
	if !p.Valid() {
		return nil, models.NewValidationError("lat must be within [-90, 90] and lng within [-180, 180]")
	}
	hits, err := s.store.Issues.FindNearby(ctx, p, s.settings.RadiusMeters, s.settings.since(s.now()))
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", "nearby")
	}
	return hits, nil
}

// Reports lists the report records merged into an issue.
func (s *IssueService) Reports(ctx context.Context, id uuid.UUID) ([]models.IssueReport, error) {
	if _, err := s.store.Issues.GetByID(ctx, id); err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", id)
	}
	reports, err := s.store.Reports.ListByIssue(ctx, id)
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", id)
	}
	return reports, nil
}
