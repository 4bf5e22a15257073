package models

import (
	"time"

	"github.com/google/uuid"
)

// IssueReport records one reporter's submission folded into an issue,
// whether it created the issue or merged onto it.
type IssueReport struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_issue_reports_issue_user,priority:1" json:"issue_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_issue_reports_issue_user,priority:2" json:"user_id"`
	ImageURL  string    `gorm:"column:image_url" json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for IssueReport.
func (IssueReport) TableName() string {
	return "issue_reports"
}
