package repository

import (
	"context"
	"errors"
	"time"

	"urbanfix/internal/models"
	"urbanfix/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// VoteRepository defines the interface for vote data operations
type VoteRepository interface {
	// GetForUpdate returns the caller's vote on an issue, locking the row, or nil when there is none.
	GetForUpdate(ctx context.Context, issueID, userID uuid.UUID) (*models.Vote, error)
	Create(ctx context.Context, vote *models.Vote) error
	UpdateType(ctx context.Context, id uuid.UUID, voteType models.VoteType, now time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Vote, error)
}

type voteRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewVoteRepository creates a new vote repository
func NewVoteRepository(db *gorm.DB) VoteRepository {
	return &voteRepository{db: db, log: observability.NewRepoLogger("issue_votes")}
}

func (r *voteRepository) GetForUpdate(ctx context.Context, issueID, userID uuid.UUID) (*models.Vote, error) {
	defer observability.TrackQuery("get_for_update", "issue_votes")()
	var vote models.Vote
	err := lockForUpdate(r.db.WithContext(ctx)).
		Where("issue_id = ? AND user_id = ?", issueID, userID).
		First(&vote).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vote, nil
}

func (r *voteRepository) Create(ctx context.Context, vote *models.Vote) error {
	defer observability.TrackQuery("create", "issue_votes")()
	if vote.ID == uuid.Nil {
		vote.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(vote).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"issue_id": vote.IssueID, "vote_type": vote.VoteType})
	return nil
}

func (r *voteRepository) UpdateType(ctx context.Context, id uuid.UUID, voteType models.VoteType, now time.Time) error {
	defer observability.TrackQuery("update", "issue_votes")()
	err := r.db.WithContext(ctx).Model(&models.Vote{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"vote_type": voteType, "updated_at": now}).Error
	if err != nil {
		r.log.LogError(ctx, err, "update")
		return err
	}
	r.log.LogUpdate(ctx, map[string]interface{}{"vote_id": id, "vote_type": voteType})
	return nil
}

func (r *voteRepository) Delete(ctx context.Context, id uuid.UUID) error {
	defer observability.TrackQuery("delete", "issue_votes")()
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Vote{}).Error; err != nil {
		r.log.LogError(ctx, err, "delete")
		return err
	}
	r.log.LogDelete(ctx, map[string]interface{}{"vote_id": id})
	return nil
}

func (r *voteRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Vote, error) {
	defer observability.TrackQuery("list_by_user", "issue_votes")()
	var votes []models.Vote
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&votes).Error; err != nil {
		return nil, err
	}
	return votes, nil
}
