// Package service implements report resolution, vote scoring, the issue
// lifecycle and the read projections over the repositories.
package service

import (
	"context"
	"time"

	"urbanfix/internal/cache"
	"urbanfix/internal/config"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Settings are the process-wide matching and gating constants.
type Settings struct {
	RadiusMeters   float64
	WindowDays     int
	CrowdThreshold int
	MaxNewPerDay   int
	Location       *time.Location
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings() Settings {
	return Settings{
		RadiusMeters:   50,
		WindowDays:     7,
		CrowdThreshold: 2,
		MaxNewPerDay:   1,
		Location:       time.UTC,
	}
}

// SettingsFromConfig extracts the matching constants from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		RadiusMeters:   cfg.DuplicateRadiusMeters,
		WindowDays:     cfg.DuplicateWindowDays,
		CrowdThreshold: cfg.CrowdVerifyThreshold,
		MaxNewPerDay:   cfg.MaxNewIssuesPerDay,
		Location:       cfg.Location(),
	}
}

func (s Settings) since(now time.Time) time.Time {
	return now.AddDate(0, 0, -s.WindowDays)
}

// day returns the start of the reporting day containing now and the start of
// the next one, both in the configured zone.
func (s Settings) day(now time.Time) (start, next time.Time) {
	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

func utcNow() time.Time { return time.Now().UTC() }

func invalidateIssue(ctx context.Context, rdb *redis.Client, id uuid.UUID) {
	cache.Invalidate(ctx, rdb, cache.IssueKey(id))
}
