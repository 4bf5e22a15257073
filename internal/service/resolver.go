package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"urbanfix/internal/cache"
	"urbanfix/internal/featureflags"
	"urbanfix/internal/geo"
	"urbanfix/internal/geocode"
	"urbanfix/internal/models"
	"urbanfix/internal/notifications"
	"urbanfix/internal/observability"
	"urbanfix/internal/repository"
	"urbanfix/internal/validation"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// Resolution outcomes, also used as metric labels.
const (
	OutcomeCreated     = "created"
	OutcomeMerged      = "merged"
	OutcomeRateLimited = "rate_limited"
	OutcomeConflict    = "conflict"
)

const (
	maxResolveAttempts = 3
	geocodeBudget      = 3 * time.Second
)

// ReportInput is an incoming report submission.
type ReportInput struct {
	Title       string   `json:"title" validate:"required,trimmed_min=5,max=100"`
	Description string   `json:"description" validate:"max=500"`
	ImageURL    string   `json:"image_url" validate:"required,url,max=2048"`
	Latitude    *float64 `json:"latitude" validate:"required,gte=-90,lte=90"`
	Longitude   *float64 `json:"longitude" validate:"required,gte=-180,lte=180"`
}

// SubmitResult reports what the resolver did with a submission.
type SubmitResult struct {
	Issue   *models.Issue `json:"issue"`
	Outcome string        `json:"outcome"`
	// DistanceMeters is set for merges.
	DistanceMeters *float64 `json:"distance_meters,omitempty"`

	promoted bool
}

// Resolver decides whether a report duplicates an open issue nearby and
// either merges it or creates a new issue.
type Resolver struct {
	store     *repository.Store
	rdb       *redis.Client
	locker    cache.Locker
	lifecycle *LifecycleService
	geocoder  geocode.Reverser
	flags     *featureflags.Manager
	notifier  *notifications.Notifier
	settings  Settings
	grid      geo.Grid
	now       func() time.Time
}

// ResolverDeps are the collaborators of a Resolver. Geocoder, Flags and
// Notifier are optional.
type ResolverDeps struct {
	Store     *repository.Store
	Redis     *redis.Client
	Locker    cache.Locker
	Lifecycle *LifecycleService
	Geocoder  geocode.Reverser
	Flags     *featureflags.Manager
	Notifier  *notifications.Notifier
}

func NewResolver(deps ResolverDeps, settings Settings) *Resolver {
	return &Resolver{
		store:     deps.Store,
		rdb:       deps.Redis,
		locker:    deps.Locker,
		lifecycle: deps.Lifecycle,
		geocoder:  deps.Geocoder,
		flags:     deps.Flags,
		notifier:  deps.Notifier,
		settings:  settings,
		grid:      geo.Grid{SizeMeters: settings.RadiusMeters},
		now:       utcNow,
	}
}

// Submit resolves one report from principal.
func (r *Resolver) Submit(ctx context.Context, principal models.Principal, in ReportInput) (*SubmitResult, error) {
	if !principal.Role.CanReport() {
		return nil, models.NewForbiddenError("NGO accounts cannot submit reports")
	}
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.ImageURL = strings.TrimSpace(in.ImageURL)
	p := geo.Point{Lat: *in.Latitude, Lng: *in.Longitude}

	span, ctx := observability.NewSpan(ctx, "resolver.submit",
		attribute.Float64("geo.lat", p.Lat), attribute.Float64("geo.lng", p.Lng))
	defer span.End()

	res, err := r.resolveLocked(ctx, principal, in, p)
	if err != nil {
		switch {
		case models.HasCode(err, models.CodeRateLimited):
			observability.ReportsTotal.WithLabelValues(OutcomeRateLimited).Inc()
		case models.HasCode(err, models.CodeConflict):
			observability.ReportsTotal.WithLabelValues(OutcomeConflict).Inc()
		default:
			span.SetError(err)
		}
		return nil, models.ClassifyStorageError(err, "Issue", "report")
	}

	observability.ReportsTotal.WithLabelValues(res.Outcome).Inc()
	span.AddAttributes(attribute.String("report.outcome", res.Outcome), attribute.String("issue.id", res.Issue.ID.String()))
	r.afterCommit(ctx, principal, res)
	return res, nil
}

// resolveLocked runs the merge-or-create decision under the cluster lock. The
// lock is released once the decision is committed, before any follow-up work.
func (r *Resolver) resolveLocked(ctx context.Context, principal models.Principal, in ReportInput, p geo.Point) (*SubmitResult, error) {
	release, err := r.lockCluster(ctx, p)
	if err != nil {
		return nil, err
	}
	defer release()

	var res *SubmitResult
	for attempt := 1; attempt <= maxResolveAttempts; attempt++ {
		res, err = r.resolve(ctx, principal, in, p)
		// The matched issue was addressed between the query and the merge; the
		// next query no longer sees it.
		if !errors.Is(err, repository.ErrIssueNotOpen) {
			break
		}
	}
	return res, err
}

// lockCluster serializes resolutions whose points could match a common issue.
func (r *Resolver) lockCluster(ctx context.Context, p geo.Point) (func(), error) {
	cells := r.grid.Neighbourhood(p)
	keys := make([]string, len(cells))
	for i, c := range cells {
		keys[i] = cache.GeocellKey(c.Key())
	}

	start := time.Now()
	release, err := r.locker.Acquire(ctx, keys)
	observability.GeocellLockWait.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, models.NewTransientStorageError(err)
	}
	return release, nil
}

func (r *Resolver) resolve(ctx context.Context, principal models.Principal, in ReportInput, p geo.Point) (*SubmitResult, error) {
	var res *SubmitResult
	err := r.store.Transaction(ctx, func(tx *repository.Store) error {
		now := r.now()
		if err := tx.Users.Upsert(ctx, principal, now); err != nil {
			return err
		}

		hits, err := tx.Issues.FindNearby(ctx, p, r.settings.RadiusMeters, r.settings.since(now))
		if err != nil {
			return err
		}
		if len(hits) > 0 {
			res, err = r.merge(ctx, tx, principal, in, hits[0], now)
		} else {
			res, err = r.create(ctx, tx, principal, in, p, now)
		}
		return err
	})
	return res, err
}

func (r *Resolver) merge(ctx context.Context, tx *repository.Store, principal models.Principal, in ReportInput, hit models.NearbyIssue, now time.Time) (*SubmitResult, error) {
	already, err := tx.Reports.Exists(ctx, hit.IssueID, principal.UserID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, models.NewConflictError("You have already reported this issue", hit.IssueID)
	}

	if err := tx.Issues.RecordMerge(ctx, hit.IssueID, now); err != nil {
		return nil, err
	}
	err = tx.Reports.Create(ctx, &models.IssueReport{
		IssueID:   hit.IssueID,
		UserID:    principal.UserID,
		ImageURL:  in.ImageURL,
		CreatedAt: now,
	})
	if models.IsUniqueViolation(err) {
		return nil, models.NewConflictError("You have already reported this issue", hit.IssueID)
	}
	if err != nil {
		return nil, err
	}

	promoted, err := r.lifecycle.promote(ctx, tx, hit.IssueID)
	if err != nil {
		return nil, err
	}
	issue, err := tx.Issues.GetByID(ctx, hit.IssueID)
	if err != nil {
		return nil, err
	}

	d := hit.DistanceMeters
	return &SubmitResult{Issue: issue, Outcome: OutcomeMerged, DistanceMeters: &d, promoted: promoted}, nil
}

func (r *Resolver) create(ctx context.Context, tx *repository.Store, principal models.Principal, in ReportInput, p geo.Point, now time.Time) (*SubmitResult, error) {
	dayStart, nextDay := r.settings.day(now)
	ok, err := tx.Users.ClaimDailySlot(ctx, principal.UserID, dayStart.UTC(), now, r.settings.MaxNewPerDay)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewRateLimitedError("You have already reported a new issue today", nextDay.Sub(now))
	}

	creator := principal.UserID
	issue := &models.Issue{
		ID:            uuid.New(),
		CreatedBy:     &creator,
		Title:         in.Title,
		Description:   in.Description,
		ImageURL:      in.ImageURL,
		Latitude:      p.Lat,
		Longitude:     p.Lng,
		Status:        models.StatusPending,
		PriorityScore: 0,
		UsersReported: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := tx.Issues.Create(ctx, issue); err != nil {
		return nil, err
	}
	err = tx.Reports.Create(ctx, &models.IssueReport{
		IssueID:   issue.ID,
		UserID:    principal.UserID,
		ImageURL:  in.ImageURL,
		CreatedAt: now,
	})
	if err != nil {
		return nil, err
	}

	// A threshold of one is met by the creating report itself.
	promoted, err := r.lifecycle.promote(ctx, tx, issue.ID)
	if err != nil {
		return nil, err
	}
	if promoted {
		if issue, err = tx.Issues.GetByID(ctx, issue.ID); err != nil {
			return nil, err
		}
	}
	return &SubmitResult{Issue: issue, Outcome: OutcomeCreated, promoted: promoted}, nil
}

func (r *Resolver) afterCommit(ctx context.Context, principal models.Principal, res *SubmitResult) {
	issue := res.Issue
	invalidateIssue(ctx, r.rdb, issue.ID)

	event := notifications.EventIssueMerged
	if res.Outcome == OutcomeCreated {
		event = notifications.EventIssueCreated
		r.fillAddress(ctx, principal, issue)
	}
	publish(ctx, r.notifier, notifications.NewIssueEvent(event, issue, principal.UserID, r.now()))
	if res.promoted {
		r.lifecycle.afterTransition(ctx, issue, principal.UserID, notifications.EventIssueVerified)
	}

	slog.InfoContext(ctx, "report resolved",
		"outcome", res.Outcome,
		"issue_id", issue.ID,
		"users_reported", issue.UsersReported,
		"status", issue.Status,
	)
}

// fillAddress reverse geocodes a new issue. Failures leave the address empty.
func (r *Resolver) fillAddress(ctx context.Context, principal models.Principal, issue *models.Issue) {
	if r.geocoder == nil || !r.flags.Enabled(featureflags.ReverseGeocoding, principal.UserID) {
		return
	}
	gctx, cancel := context.WithTimeout(ctx, geocodeBudget)
	defer cancel()

	address, err := r.geocoder.Reverse(gctx, geo.Point{Lat: issue.Latitude, Lng: issue.Longitude})
	if err != nil {
		slog.WarnContext(ctx, "reverse geocoding failed", "issue_id", issue.ID, "error", err)
		return
	}
	if err := r.store.Issues.SetAddress(ctx, issue.ID, address); err != nil {
		slog.WarnContext(ctx, "failed to store address", "issue_id", issue.ID, "error", err)
		return
	}
	issue.Address = &address
	invalidateIssue(ctx, r.rdb, issue.ID)
}
