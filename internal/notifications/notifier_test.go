package notifications

import (
	"context"
	"testing"
	"time"

	"urbanfix/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.Publish(context.Background(), IssueEvent{Type: EventIssueCreated}))
	assert.NoError(t, n.Subscribe(context.Background(), func(IssueEvent) {}))

	var nilNotifier *Notifier
	assert.NoError(t, nilNotifier.Publish(context.Background(), IssueEvent{}))
}

func TestIssueChannel(t *testing.T) {
	t.Parallel()
	id := uuid.MustParse("0b6f7a52-7f55-4d0e-8a8a-5f1f8a1b2c3d")
	assert.Equal(t, "urbanfix:issues:0b6f7a52-7f55-4d0e-8a8a-5f1f8a1b2c3d", IssueChannel(id))
}

func TestNotifier_PublishAndSubscribe(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	n := NewNotifier(rdb)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := make(chan IssueEvent, 2)
	require.NoError(t, n.Subscribe(ctx, func(ev IssueEvent) {
		if ev.Type == "boom" {
			panic("handler failure")
		}
		events <- ev
	}))

	issue := &models.Issue{ID: uuid.New(), Status: models.StatusVerified, UsersReported: 2, ImageURL: "https://img/1.jpg"}
	actor := uuid.New()
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

	require.NoError(t, n.Publish(ctx, IssueEvent{Type: "boom", IssueID: issue.ID}))
	require.NoError(t, n.Publish(ctx, NewIssueEvent(EventIssueVerified, issue, actor, now)))

	select {
	case ev := <-events:
		assert.Equal(t, EventIssueVerified, ev.Type)
		assert.Equal(t, issue.ID, ev.IssueID)
		assert.Equal(t, models.StatusVerified, ev.Status)
		assert.Equal(t, actor, ev.ActorID)
		assert.Equal(t, 2, ev.UsersReported)
		assert.True(t, now.Equal(ev.OccurredAt))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}
