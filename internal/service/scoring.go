package service

import (
	"context"
	"time"

	"urbanfix/internal/models"
	"urbanfix/internal/observability"
	"urbanfix/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// Vote transitions, also used as metric labels.
const (
	TransitionCast    = "cast"
	TransitionRetract = "retract"
	TransitionSwitch  = "switch"
)

const maxVoteAttempts = 3

// ApplyVote computes the toggle rule: a first vote is cast, repeating the
// held direction retracts it and the opposite direction switches it. It
// returns the resulting vote state and the score delta.
func ApplyVote(current, requested models.VoteType) (next models.VoteType, delta int, transition string) {
	switch {
	case current == models.NoVote || current == "":
		return requested, requested.Weight(), TransitionCast
	case current == requested:
		return models.NoVote, -current.Weight(), TransitionRetract
	default:
		return requested, requested.Weight() - current.Weight(), TransitionSwitch
	}
}

// VoteResult is returned by CastVote.
type VoteResult struct {
	IssueID       uuid.UUID       `json:"issue_id"`
	PriorityScore int             `json:"priority_score"`
	Vote          models.VoteType `json:"vote"`
}

// ScoringService maintains priority scores as net votes.
type ScoringService struct {
	store *repository.Store
	rdb   *redis.Client
	now   func() time.Time
}

func NewScoringService(store *repository.Store, rdb *redis.Client) *ScoringService {
	return &ScoringService{store: store, rdb: rdb, now: utcNow}
}

// CastVote applies one vote by principal. The delta is computed against the
// vote row as read inside the transaction and applied as an atomic increment,
// so concurrent voters never lose updates.
func (s *ScoringService) CastVote(ctx context.Context, principal models.Principal, issueID uuid.UUID, voteType models.VoteType) (*VoteResult, error) {
	if !voteType.Valid() {
		return nil, models.NewValidationError("vote_type must be one of [upvote downvote]")
	}

	span, ctx := observability.NewSpan(ctx, "scoring.cast_vote",
		attribute.String("issue.id", issueID.String()), attribute.String("vote.requested", string(voteType)))
	defer span.End()

	var (
		result     *VoteResult
		transition string
		err        error
	)
	for attempt := 1; attempt <= maxVoteAttempts; attempt++ {
		result, transition, err = s.castOnce(ctx, principal, issueID, voteType)
		// Two first votes from the same user race on the unique (issue, user) index.
		if err == nil || !models.IsUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		span.SetError(err)
		return nil, models.ClassifyStorageError(err, "Issue", issueID)
	}

	observability.VotesTotal.WithLabelValues(transition).Inc()
	span.AddAttributes(attribute.String("vote.transition", transition), attribute.Int("issue.priority_score", result.PriorityScore))
	invalidateIssue(ctx, s.rdb, issueID)
	return result, nil
}

func (s *ScoringService) castOnce(ctx context.Context, principal models.Principal, issueID uuid.UUID, voteType models.VoteType) (*VoteResult, string, error) {
	var (
		result     *VoteResult
		transition string
	)
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		now := s.now()
		if _, err := tx.Issues.GetByID(ctx, issueID); err != nil {
			return err
		}
		if err := tx.Users.Upsert(ctx, principal, now); err != nil {
			return err
		}

		existing, err := tx.Votes.GetForUpdate(ctx, issueID, principal.UserID)
		if err != nil {
			return err
		}
		current := models.NoVote
		if existing != nil {
			current = existing.VoteType
		}

		next, delta, t := ApplyVote(current, voteType)
		transition = t
		switch t {
		case TransitionCast:
			err = tx.Votes.Create(ctx, &models.Vote{
				IssueID:   issueID,
				UserID:    principal.UserID,
				VoteType:  next,
				CreatedAt: now,
				UpdatedAt: now,
			})
		case TransitionRetract:
			err = tx.Votes.Delete(ctx, existing.ID)
		case TransitionSwitch:
			err = tx.Votes.UpdateType(ctx, existing.ID, next, now)
		}
		if err != nil {
			return err
		}

		score, err := tx.Issues.AddScore(ctx, issueID, delta, now)
		if err != nil {
			return err
		}
		result = &VoteResult{IssueID: issueID, PriorityScore: score, Vote: next}
		return nil
	})
	return result, transition, err
}

// UserVotes returns the caller's held votes keyed by issue.
func (s *ScoringService) UserVotes(ctx context.Context, principal models.Principal) (map[uuid.UUID]models.VoteType, error) {
	votes, err := s.store.Votes.ListByUser(ctx, principal.UserID)
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Vote", principal.UserID)
	}
	out := make(map[uuid.UUID]models.VoteType, len(votes))
	for _, v := range votes {
		out[v.IssueID] = v.VoteType
	}
	return out, nil
}

// Triage returns verified issues by priority descending, oldest first on ties.
func (s *ScoringService) Triage(ctx context.Context, limit, offset int) ([]models.Issue, error) {
	issues, err := s.store.Issues.List(ctx, repository.IssueFilter{
		Statuses: []models.IssueStatus{models.StatusVerified},
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return nil, models.ClassifyStorageError(err, "Issue", "triage")
	}
	return issues, nil
}
