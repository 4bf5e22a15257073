package service

import (
	"context"
	"testing"
	"time"

	"urbanfix/internal/cache"
	"urbanfix/internal/geo"
	"urbanfix/internal/models"
	"urbanfix/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueService_GetIsCachedAndInvalidated(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	h := newHarness(t, DefaultSettings(), withRedis(rdb))
	ctx := context.Background()
	issue := testutil.SeedIssue(t, h.db, nil)

	got, err := h.issues.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, issue.ID, got.ID)
	assert.True(t, mr.Exists(cache.IssueKey(issue.ID)))
	ttl := mr.TTL(cache.IssueKey(issue.ID))
	assert.True(t, ttl > 0 && ttl <= cache.IssueTTL)

	_, err = h.scoring.CastVote(ctx, testutil.Principal(models.RoleUser), issue.ID, models.Upvote)
	require.NoError(t, err)
	assert.False(t, mr.Exists(cache.IssueKey(issue.ID)), "votes invalidate the cached issue")

	got, err = h.issues.Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.PriorityScore)

	_, err = h.issues.Get(ctx, uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestIssueService_Feed(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	now := h.clock.Now()

	pending := testutil.SeedIssue(t, h.db, func(i *models.Issue) { i.Title = "Overflowing drain" })
	verified := testutil.SeedIssue(t, h.db, func(i *models.Issue) {
		i.Status = models.StatusVerified
		i.Title = "Fallen tree"
	})
	testutil.SeedIssue(t, h.db, func(i *models.Issue) {
		i.Status = models.StatusAddressed
		i.AddressedAt = &now
	})

	tests := []struct {
		name  string
		query FeedQuery
		want  int
	}{
		{"default is verified", FeedQuery{Limit: 10}, 1},
		{"pending", FeedQuery{Status: "pending", Limit: 10}, 1},
		{"addressed", FeedQuery{Status: "ADDRESSED", Limit: 10}, 1},
		{"all", FeedQuery{Status: "all", Limit: 10}, 3},
		{"search", FeedQuery{Status: "all", Query: "drain", Limit: 10}, 1},
		{"offset past end", FeedQuery{Status: "all", Limit: 10, Offset: 5}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			issues, err := h.issues.Feed(ctx, tt.query)
			require.NoError(t, err)
			assert.Len(t, issues, tt.want)
		})
	}

	issues, err := h.issues.Feed(ctx, FeedQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, verified.ID, issues[0].ID)

	issues, err = h.issues.Feed(ctx, FeedQuery{Status: "all", Query: "drain", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, pending.ID, issues[0].ID)

	_, err = h.issues.Feed(ctx, FeedQuery{Status: "closed"})
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestIssueService_StatsNearbyMine(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	reporter := testutil.Principal(models.RoleUser)

	created, err := h.resolver.Submit(ctx, reporter, report(potholeA))
	require.NoError(t, err)
	testutil.SeedIssue(t, h.db, func(i *models.Issue) {
		i.Status = models.StatusVerified
		i.Latitude, i.Longitude = farAway.Lat, farAway.Lng
	})

	stats, err := h.issues.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.IssueStats{Total: 2, Pending: 1, Verified: 1}, *stats)

	hits, err := h.issues.Nearby(ctx, geo.Offset(potholeA, 30, 0))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, created.Issue.ID, hits[0].IssueID)
	assert.InDelta(t, 30, hits[0].DistanceMeters, 0.01)

	_, err = h.issues.Nearby(ctx, geo.Point{Lat: 95, Lng: 0})
	assert.True(t, models.HasCode(err, models.CodeValidation))

	h.clock.Advance(8 * 24 * time.Hour)
	hits, err = h.issues.Nearby(ctx, potholeA)
	require.NoError(t, err)
	assert.Empty(t, hits, "issues older than the window are not matched")

	mine, err := h.issues.Mine(ctx, reporter, 10, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, created.Issue.ID, mine[0].ID)

	_, err = h.issues.Reports(ctx, uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
