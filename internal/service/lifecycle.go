package service

import (
	"context"
	"log/slog"
	"time"

	"urbanfix/internal/models"
	"urbanfix/internal/notifications"
	"urbanfix/internal/observability"
	"urbanfix/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// LifecycleService drives issues through pending → verified → addressed.
// Every transition is a conditional update on the current status, so status
// never moves backward even under concurrent requests.
type LifecycleService struct {
	store    *repository.Store
	rdb      *redis.Client
	notifier *notifications.Notifier
	settings Settings
	now      func() time.Time
}

func NewLifecycleService(store *repository.Store, rdb *redis.Client, notifier *notifications.Notifier, settings Settings) *LifecycleService {
	return &LifecycleService{
		store:    store,
		rdb:      rdb,
		notifier: notifier,
		settings: settings,
		now:      utcNow,
	}
}

// promote applies the verification rule inside the caller's transaction.
func (s *LifecycleService) promote(ctx context.Context, tx *repository.Store, id uuid.UUID) (bool, error) {
	return tx.Issues.PromoteToVerified(ctx, id, s.settings.CrowdThreshold, s.now())
}

// EvaluateVerification promotes a pending issue that is AI verified or has
// reached the crowd threshold, and returns the issue's current state.
func (s *LifecycleService) EvaluateVerification(ctx context.Context, id uuid.UUID) (*models.Issue, error) {
	span, ctx := observability.NewSpan(ctx, "lifecycle.evaluate", attribute.String("issue.id", id.String()))
	defer span.End()

	promoted, err := s.promote(ctx, s.store, id)
	if err != nil {
		span.SetError(err)
		return nil, models.ClassifyStorageError(err, "Issue", id)
	}
	issue, err := s.store.Issues.GetByID(ctx, id)
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", id)
	}
	if promoted {
		s.afterTransition(ctx, issue, uuid.Nil, notifications.EventIssueVerified)
	}
	return issue, nil
}

// RecordAIVerification is the hook for the external verifier: it sets
// aiVerified and re-evaluates the issue. Only admins may call it.
func (s *LifecycleService) RecordAIVerification(ctx context.Context, principal models.Principal, id uuid.UUID) (*models.Issue, error) {
	if principal.Role != models.RoleAdmin {
		return nil, models.NewForbiddenError("Only admins can record AI verification")
	}

	span, ctx := observability.NewSpan(ctx, "lifecycle.ai_verification", attribute.String("issue.id", id.String()))
	defer span.End()

	var promoted bool
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Issues.SetAIVerified(ctx, id, s.now()); err != nil {
			return err
		}
		var err error
		promoted, err = s.promote(ctx, tx, id)
		return err
	})
	if err != nil {
		span.SetError(err)
		return nil, models.ClassifyStorageError(err, "Issue", id)
	}

	issue, err := s.store.Issues.GetByID(ctx, id)
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", id)
	}
	invalidateIssue(ctx, s.rdb, id)
	if promoted {
		s.afterTransition(ctx, issue, principal.UserID, notifications.EventIssueVerified)
	}
	return issue, nil
}

// MarkAddressed resolves a verified issue. Only ngo and admin principals may
// do this; pending and already addressed issues yield INVALID_TRANSITION.
func (s *LifecycleService) MarkAddressed(ctx context.Context, principal models.Principal, id uuid.UUID) (*models.Issue, error) {
	if !principal.Role.CanAddress() {
		return nil, models.NewForbiddenError("Only NGO or admin users can mark issues as addressed")
	}

	span, ctx := observability.NewSpan(ctx, "lifecycle.mark_addressed",
		attribute.String("issue.id", id.String()), attribute.String("actor.role", string(principal.Role)))
	defer span.End()

	changed, err := s.store.Issues.MarkAddressed(ctx, id, s.now())
	if err != nil {
		span.SetError(err)
		return nil, models.ClassifyStorageError(err, "Issue", id)
	}

	issue, err := s.store.Issues.GetByID(ctx, id)
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", id)
	}
	if !changed {
		return nil, models.NewInvalidTransitionError(issue.Status, models.StatusAddressed)
	}

	s.afterTransition(ctx, issue, principal.UserID, notifications.EventIssueAddressed)
	return issue, nil
}

func (s *LifecycleService) afterTransition(ctx context.Context, issue *models.Issue, actor uuid.UUID, event string) {
	observability.LifecycleTransitions.WithLabelValues(string(issue.Status)).Inc()
	invalidateIssue(ctx, s.rdb, issue.ID)
	publish(ctx, s.notifier, notifications.NewIssueEvent(event, issue, actor, s.now()))
	slog.InfoContext(ctx, "issue transitioned", "issue_id", issue.ID, "status", issue.Status)
}

func publish(ctx context.Context, n *notifications.Notifier, ev notifications.IssueEvent) {
	if err := n.Publish(ctx, ev); err != nil {
		slog.WarnContext(ctx, "failed to publish issue event", "type", ev.Type, "issue_id", ev.IssueID, "error", err)
	}
}
