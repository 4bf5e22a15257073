package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"urbanfix/internal/config"
	"urbanfix/internal/middleware"
	"urbanfix/internal/models"

	"gorm.io/gorm"
)

const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do for a given configuration.
type SchemaPlan struct {
	Mode    string
	RunSQL  bool
	RunAuto bool
}

// SchemaCheck is one structural guarantee the report pipeline relies on.
type SchemaCheck struct {
	Name   string
	Guards string
	// Required checks block startup when missing.
	Required bool
	Present  bool
	// Skipped is set when the dialect cannot hold the object, e.g. stored
	// functions on SQLite.
	Skipped bool
}

// SchemaStatus describes the plan, the migration log and the structural checks.
type SchemaStatus struct {
	SchemaPlan
	Environment       string
	AppliedVersions   []int
	PendingMigrations []Migration
	Checks            []SchemaCheck
}

// Healthy reports whether every non-skipped check passed.
func (s *SchemaStatus) Healthy() bool {
	for _, c := range s.Checks {
		if !c.Present && !c.Skipped {
			return false
		}
	}
	return true
}

// PlanSchema resolves DB_SCHEMA_MODE against the environment. Staging counts
// as production for AutoMigrate, which can drop columns.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode))
	if mode == "" {
		mode = SchemaModeHybrid
	}
	env := strings.ToLower(strings.TrimSpace(cfg.Env))
	prodLike := cfg.IsProduction() || env == "staging" || env == "stage"

	switch mode {
	case SchemaModeSQL:
		return SchemaPlan{Mode: mode, RunSQL: true}, nil
	case SchemaModeAuto:
		if prodLike && !cfg.DBAutoMigrateAllowDestructive {
			return SchemaPlan{}, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		return SchemaPlan{Mode: mode, RunAuto: true}, nil
	case SchemaModeHybrid:
		return SchemaPlan{Mode: mode, RunSQL: true, RunAuto: !prodLike}, nil
	}
	return SchemaPlan{}, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
}

// AutoMigrate creates or updates tables for PersistentModels.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema migrates according to the plan and then refuses to continue if
// a required uniqueness guard is missing.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.RunSQL {
		if err := RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if plan.RunAuto {
		if plan.Mode == SchemaModeAuto && cfg.DBAutoMigrateAllowDestructive {
			middleware.Logger.Warn("DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true set for DB_SCHEMA_MODE=auto; review schema diffs before production deployment")
		}
		middleware.Logger.Info("Running GORM AutoMigrate", slog.String("mode", plan.Mode), slog.String("env", cfg.Env))
		if err := AutoMigrate(db.WithContext(ctx)); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	checks, err := CheckSchema(ctx, db)
	if err != nil {
		return err
	}
	for _, c := range checks {
		if c.Required && !c.Present {
			return fmt.Errorf("schema is missing %s (%s)", c.Name, c.Guards)
		}
	}
	return nil
}

// CheckSchema inspects the objects that enforce report and vote invariants.
func CheckSchema(ctx context.Context, db *gorm.DB) ([]SchemaCheck, error) {
	m := db.WithContext(ctx).Migrator()
	checks := []SchemaCheck{
		{
			Name:     "idx_issue_reports_issue_user",
			Guards:   "one report per user per issue",
			Required: true,
			Present:  m.HasIndex(&models.IssueReport{}, "idx_issue_reports_issue_user"),
		},
		{
			Name:     "idx_issue_votes_issue_user",
			Guards:   "one vote per user per issue",
			Required: true,
			Present:  m.HasIndex(&models.Vote{}, "idx_issue_votes_issue_user"),
		},
	}

	nearby := SchemaCheck{Name: "find_nearby_issues", Guards: "proximity lookup for SQL clients"}
	if IsPostgres(db) {
		var exists bool
		err := db.WithContext(ctx).
			Raw("SELECT EXISTS (SELECT 1 FROM pg_proc WHERE proname = ?)", "find_nearby_issues").
			Scan(&exists).Error
		if err != nil {
			return nil, fmt.Errorf("check find_nearby_issues: %w", err)
		}
		nearby.Present = exists
	} else {
		nearby.Skipped = true
	}
	return append(checks, nearby), nil
}

// GetSchemaStatus reports the plan, pending migrations and structural checks
// without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan, Environment: cfg.Env}

	if plan.RunSQL {
		applied, err := appliedMigrations(ctx, db)
		if err != nil {
			return nil, err
		}
		for _, a := range applied {
			status.AppliedVersions = append(status.AppliedVersions, a.Version)
		}
		status.PendingMigrations = pendingMigrations(applied, migrations)
	}

	if status.Checks, err = CheckSchema(ctx, db); err != nil {
		return nil, err
	}
	return status, nil
}
