package seed

import (
	"context"
	"testing"
	"time"

	"urbanfix/internal/cache"
	"urbanfix/internal/models"
	"urbanfix/internal/repository"
	"urbanfix/internal/service"
	"urbanfix/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
seed: 42
clusters:
  - name: Pothole
    lat: 18.5204
    lng: 73.8567
    spread_meters: 30
    reports: 3
    upvotes: 4
    downvotes: 1
    addressed: true
  - name: Garbage pile
    lat: 18.5310
    lng: 73.8440
    spread_meters: 0
    reports: 1
    upvotes: 2
`

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)
	assert.Equal(t, int64(42), sc.Seed)
	require.Len(t, sc.Clusters, 2)
	assert.Equal(t, "Garbage pile", sc.Clusters[1].Name)
	assert.True(t, sc.Clusters[0].Addressed)

	tests := []struct {
		name string
		raw  string
	}{
		{"Empty", "seed: 1\n"},
		{"Missing name", "clusters:\n  - reports: 1\n"},
		{"No reports", "clusters:\n  - name: x\n    reports: 0\n"},
		{"Bad center", "clusters:\n  - name: x\n    reports: 1\n    lat: 120\n"},
		{"Not YAML", "clusters: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.raw))
			assert.Error(t, err)
		})
	}
}

func TestSeeder_Run(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	settings := service.DefaultSettings()

	lifecycle := service.NewLifecycleService(store, nil, nil, settings)
	scoring := service.NewScoringService(store, nil)
	resolver := service.NewResolver(service.ResolverDeps{
		Store:     store,
		Locker:    cache.NewLocalLocker(5 * time.Second),
		Lifecycle: lifecycle,
	}, settings)

	sc, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	sum, err := NewSeeder(resolver, scoring, lifecycle, settings.RadiusMeters).Run(context.Background(), sc)
	require.NoError(t, err)
	assert.Equal(t, Summary{Created: 2, Merged: 2, Votes: 7, Addressed: 1}, sum)

	var issues []models.Issue
	require.NoError(t, db.Order("latitude").Find(&issues).Error)
	require.Len(t, issues, 2)

	pothole, garbage := issues[0], issues[1]
	assert.Equal(t, 3, pothole.UsersReported)
	assert.Equal(t, 3, pothole.PriorityScore)
	assert.Equal(t, models.StatusAddressed, pothole.Status)

	assert.Equal(t, 1, garbage.UsersReported)
	assert.Equal(t, 2, garbage.PriorityScore)
	assert.Equal(t, models.StatusPending, garbage.Status)
}
