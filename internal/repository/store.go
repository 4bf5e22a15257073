// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles the repositories that share one *gorm.DB so a service can
// run several of them inside a single transaction.
type Store struct {
	db      *gorm.DB
	Issues  IssueRepository
	Votes   VoteRepository
	Users   UserRepository
	Reports ReportRepository
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:      db,
		Issues:  NewIssueRepository(db),
		Votes:   NewVoteRepository(db),
		Users:   NewUserRepository(db),
		Reports: NewReportRepository(db),
	}
}

// Transaction runs fn against a Store bound to a new transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// lockForUpdate adds SELECT ... FOR UPDATE where the dialect supports it.
// SQLite serializes writers at the database level instead.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clauseLockingUpdate)
	}
	return db
}
