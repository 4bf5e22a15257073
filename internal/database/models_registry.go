package database

import "urbanfix/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Issue{},
		&models.Vote{},
		&models.IssueReport{},
	}
}
