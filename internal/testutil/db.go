// Package testutil provides shared fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"urbanfix/internal/database"
	"urbanfix/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database private to t. A single
// connection keeps concurrent goroutines on the same database and serializes
// their transactions.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_busy_timeout=5000", name, uuid.NewString()[:8])

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Discard,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Principal returns a fresh principal with the given role.
func Principal(role models.Role) models.Principal {
	id := uuid.New()
	return models.Principal{UserID: id, Role: role, Email: id.String()[:8] + "@example.com"}
}

// SeedIssue inserts an issue directly, bypassing the resolver.
func SeedIssue(t *testing.T, db *gorm.DB, mutate func(*models.Issue)) *models.Issue {
	t.Helper()
	now := time.Now().UTC()
	issue := &models.Issue{
		ID:            uuid.New(),
		Title:         "Seeded pothole",
		Description:   "Deep pothole near the bus stop",
		ImageURL:      "https://storage.example.com/issues/seed.jpg",
		Latitude:      18.5204,
		Longitude:     73.8567,
		Status:        models.StatusPending,
		UsersReported: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if mutate != nil {
		mutate(issue)
	}
	require.NoError(t, db.Create(issue).Error)
	return issue
}
