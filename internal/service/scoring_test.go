package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"urbanfix/internal/models"
	"urbanfix/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyVote(t *testing.T) {
	tests := []struct {
		current, requested models.VoteType
		next               models.VoteType
		delta              int
		transition         string
	}{
		{models.NoVote, models.Upvote, models.Upvote, 1, TransitionCast},
		{models.NoVote, models.Downvote, models.Downvote, -1, TransitionCast},
		{models.Upvote, models.Upvote, models.NoVote, -1, TransitionRetract},
		{models.Downvote, models.Downvote, models.NoVote, 1, TransitionRetract},
		{models.Downvote, models.Upvote, models.Upvote, 2, TransitionSwitch},
		{models.Upvote, models.Downvote, models.Downvote, -2, TransitionSwitch},
	}
	for _, tt := range tests {
		t.Run(string(tt.current)+"->"+string(tt.requested), func(t *testing.T) {
			next, delta, transition := ApplyVote(tt.current, tt.requested)
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.delta, delta)
			assert.Equal(t, tt.transition, transition)
			assert.Equal(t, next.Weight()-tt.current.Weight(), delta, "delta keeps score equal to the sum of held votes")
		})
	}
}

func TestCastVote_ToggleIdempotence(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	issue := testutil.SeedIssue(t, h.db, func(i *models.Issue) { i.PriorityScore = 4 })
	voter := testutil.Principal(models.RoleUser)

	res, err := h.scoring.CastVote(ctx, voter, issue.ID, models.Upvote)
	require.NoError(t, err)
	assert.Equal(t, 5, res.PriorityScore)
	assert.Equal(t, models.Upvote, res.Vote)

	res, err = h.scoring.CastVote(ctx, voter, issue.ID, models.Upvote)
	require.NoError(t, err)
	assert.Equal(t, 4, res.PriorityScore)
	assert.Equal(t, models.NoVote, res.Vote)

	votes, err := h.scoring.UserVotes(ctx, voter)
	require.NoError(t, err)
	assert.Empty(t, votes)
}

func TestCastVote_SwitchDelta(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	issue := testutil.SeedIssue(t, h.db, nil)
	voter := testutil.Principal(models.RoleUser)

	res, err := h.scoring.CastVote(ctx, voter, issue.ID, models.Downvote)
	require.NoError(t, err)
	start := res.PriorityScore
	assert.Equal(t, -1, start)

	res, err = h.scoring.CastVote(ctx, voter, issue.ID, models.Upvote)
	require.NoError(t, err)
	assert.Equal(t, start+2, res.PriorityScore)
	assert.Equal(t, models.Upvote, res.Vote)

	votes, err := h.scoring.UserVotes(ctx, voter)
	require.NoError(t, err)
	assert.Equal(t, map[uuid.UUID]models.VoteType{issue.ID: models.Upvote}, votes)
}

func TestCastVote_Errors(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	voter := testutil.Principal(models.RoleUser)

	_, err := h.scoring.CastVote(ctx, voter, uuid.New(), models.Upvote)
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	issue := testutil.SeedIssue(t, h.db, nil)
	_, err = h.scoring.CastVote(ctx, voter, issue.ID, models.VoteType("sideways"))
	assert.True(t, models.HasCode(err, models.CodeValidation))
	_, err = h.scoring.CastVote(ctx, voter, issue.ID, models.NoVote)
	assert.True(t, models.HasCode(err, models.CodeValidation))
}

func TestCastVote_ScoreConservation(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	issue := testutil.SeedIssue(t, h.db, nil)
	const voters = 20

	var wg sync.WaitGroup
	errs := make(chan error, voters)
	for i := 0; i < voters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.scoring.CastVote(ctx, testutil.Principal(models.RoleUser), issue.ID, models.Upvote)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := h.store.Issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, voters, got.PriorityScore)
}

func TestCastVote_SameUserConcurrentVotesStayConsistent(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	issue := testutil.SeedIssue(t, h.db, nil)
	voter := testutil.Principal(models.RoleUser)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vt := models.Upvote
			if i%3 == 0 {
				vt = models.Downvote
			}
			_, err := h.scoring.CastVote(ctx, voter, issue.ID, vt)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	votes, err := h.scoring.UserVotes(ctx, voter)
	require.NoError(t, err)
	got, err := h.store.Issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)

	held, ok := votes[issue.ID]
	if !ok {
		held = models.NoVote
	}
	assert.Equal(t, held.Weight(), got.PriorityScore, "score always equals the held vote")
}

func TestTriageOrdering(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	now := h.clock.Now()

	older := testutil.SeedIssue(t, h.db, func(i *models.Issue) {
		i.Status, i.PriorityScore, i.CreatedAt = models.StatusVerified, 3, now.Add(-48 * time.Hour)
	})
	newer := testutil.SeedIssue(t, h.db, func(i *models.Issue) {
		i.Status, i.PriorityScore, i.CreatedAt = models.StatusVerified, 3, now.Add(-time.Hour)
	})
	top := testutil.SeedIssue(t, h.db, func(i *models.Issue) {
		i.Status, i.PriorityScore = models.StatusVerified, 9
	})
	testutil.SeedIssue(t, h.db, func(i *models.Issue) { i.PriorityScore = 50 })

	issues, err := h.scoring.Triage(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, issues, 3)
	assert.Equal(t, []uuid.UUID{top.ID, older.ID, newer.ID}, []uuid.UUID{issues[0].ID, issues[1].ID, issues[2].ID})
}
