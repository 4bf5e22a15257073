package repository

import (
	"context"
	"time"

	"urbanfix/internal/models"
	"urbanfix/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Upsert(ctx context.Context, p models.Principal, now time.Time) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// ClaimDailySlot consumes one of the user's new-issue slots for the day
	// starting at dayStart. It reports false when the day's allowance is used up.
	ClaimDailySlot(ctx context.Context, userID uuid.UUID, dayStart, now time.Time, maxPerDay int) (bool, error)
}

type userRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db, log: observability.NewRepoLogger("users")}
}

// Upsert mirrors the identity provider's view of the principal.
func (r *userRepository) Upsert(ctx context.Context, p models.Principal, now time.Time) error {
	defer observability.TrackQuery("upsert", "users")()
	user := models.User{ID: p.UserID, Email: p.Email, Role: p.Role, CreatedAt: now, UpdatedAt: now}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "role", "updated_at"}),
	}).Create(&user).Error
	if err != nil {
		r.log.LogError(ctx, err, "upsert")
	}
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	defer observability.TrackQuery("get", "users")()
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

const claimDailySlotSQL = `UPDATE users SET
	issues_today = CASE WHEN last_issue_date IS NOT NULL AND last_issue_date >= ? THEN issues_today + 1 ELSE 1 END,
	last_issue_date = ?,
	updated_at = ?
WHERE id = ? AND (last_issue_date IS NULL OR last_issue_date < ? OR issues_today < ?)`

func (r *userRepository) ClaimDailySlot(ctx context.Context, userID uuid.UUID, dayStart, now time.Time, maxPerDay int) (bool, error) {
	defer observability.TrackQuery("claim_daily_slot", "users")()
	res := r.db.WithContext(ctx).Exec(claimDailySlotSQL, dayStart, now, now, userID, dayStart, maxPerDay)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "claim_daily_slot")
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
