// Package models defines the persisted domain types and the application error taxonomy.
package models

import (
	"time"

	"github.com/google/uuid"
)

// IssueStatus is the lifecycle state of an issue.
type IssueStatus string

const (
	StatusPending   IssueStatus = "pending"
	StatusVerified  IssueStatus = "verified"
	StatusAddressed IssueStatus = "addressed"
)

// OpenStatuses are the states eligible for duplicate matching.
var OpenStatuses = []IssueStatus{StatusPending, StatusVerified}

// Valid reports whether s is a known status.
func (s IssueStatus) Valid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusAddressed:
		return true
	}
	return false
}

// Open reports whether an issue in this status may absorb duplicate reports.
func (s IssueStatus) Open() bool {
	return s == StatusPending || s == StatusVerified
}

// rank orders statuses along the lifecycle; transitions only ever increase it.
func (s IssueStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusVerified:
		return 1
	case StatusAddressed:
		return 2
	}
	return -1
}

// Before reports whether s precedes other in the lifecycle.
func (s IssueStatus) Before(other IssueStatus) bool {
	return s.rank() < other.rank()
}

// Issue is a reported urban problem.
type Issue struct {
	ID            uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedBy     *uuid.UUID  `gorm:"type:uuid;index" json:"created_by"`
	Title         string      `gorm:"size:100;not null" json:"title"`
	Description   string      `gorm:"size:500" json:"description"`
	ImageURL      string      `gorm:"column:image_url;not null" json:"image_url"`
	Latitude      float64     `gorm:"type:double precision;not null;index:idx_issues_location,priority:1" json:"latitude"`
	Longitude     float64     `gorm:"type:double precision;not null;index:idx_issues_location,priority:2" json:"longitude"`
	Address       *string     `json:"address"`
	Status        IssueStatus `gorm:"size:16;not null;default:pending;index" json:"status"`
	AIVerified    bool        `gorm:"column:ai_verified;not null;default:false" json:"ai_verified"`
	PriorityScore int         `gorm:"not null;default:0;index" json:"priority_score"`
	UsersReported int         `gorm:"not null;default:1" json:"users_reported"`
	CreatedAt     time.Time   `gorm:"index" json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	AddressedAt   *time.Time  `json:"addressed_at"`
}

// TableName returns the database table name for Issue.
func (Issue) TableName() string {
	return "issues"
}

// NearbyIssue is one hit of a proximity query.
type NearbyIssue struct {
	IssueID        uuid.UUID `json:"issue_id"`
	DistanceMeters float64   `json:"distance_meters"`
	CreatedAt      time.Time `json:"created_at"`
}

// IssueStats holds dashboard counters.
type IssueStats struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Verified  int64 `json:"verified"`
	Addressed int64 `json:"addressed"`
}
