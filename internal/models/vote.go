package models

import (
	"time"

	"github.com/google/uuid"
)

// VoteType is the direction of a vote.
type VoteType string

const (
	Upvote   VoteType = "upvote"
	Downvote VoteType = "downvote"
	// NoVote is the state of a user without a vote row on an issue.
	NoVote VoteType = "none"
)

// Valid reports whether v may be cast.
func (v VoteType) Valid() bool {
	return v == Upvote || v == Downvote
}

// Weight is the score contribution of a held vote.
func (v VoteType) Weight() int {
	switch v {
	case Upvote:
		return 1
	case Downvote:
		return -1
	}
	return 0
}

// Vote is one user's current stance on one issue.
type Vote struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	IssueID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_issue_votes_issue_user,priority:1" json:"issue_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_issue_votes_issue_user,priority:2;index" json:"user_id"`
	VoteType  VoteType  `gorm:"size:16;not null" json:"vote_type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Vote.
func (Vote) TableName() string {
	return "issue_votes"
}
