package repository

import (
	"context"
	"errors"

	"urbanfix/internal/models"
	"urbanfix/internal/observability"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRepository defines the interface for report record operations
type ReportRepository interface {
	Create(ctx context.Context, report *models.IssueReport) error
	Exists(ctx context.Context, issueID, userID uuid.UUID) (bool, error)
	ListByIssue(ctx context.Context, issueID uuid.UUID) ([]models.IssueReport, error)
}

type reportRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewReportRepository creates a new report repository
func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db, log: observability.NewRepoLogger("issue_reports")}
}

func (r *reportRepository) Create(ctx context.Context, report *models.IssueReport) error {
	defer observability.TrackQuery("create", "issue_reports")()
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogCreate(ctx, map[string]interface{}{"issue_id": report.IssueID})
	return nil
}

func (r *reportRepository) Exists(ctx context.Context, issueID, userID uuid.UUID) (bool, error) {
	var report models.IssueReport
	err := r.db.WithContext(ctx).Select("id").
		Where("issue_id = ? AND user_id = ?", issueID, userID).
		First(&report).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (r *reportRepository) ListByIssue(ctx context.Context, issueID uuid.UUID) ([]models.IssueReport, error) {
	defer observability.TrackQuery("list_by_issue", "issue_reports")()
	var reports []models.IssueReport
	err := r.db.WithContext(ctx).Where("issue_id = ?", issueID).Order("created_at ASC").Find(&reports).Error
	return reports, err
}
