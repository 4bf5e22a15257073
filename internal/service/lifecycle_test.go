package service

import (
	"context"
	"testing"
	"time"

	"urbanfix/internal/models"
	"urbanfix/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkAddressed(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	issue := testutil.SeedIssue(t, h.db, nil)
	ngo := testutil.Principal(models.RoleNGO)

	tests := []struct {
		name  string
		actor models.Principal
		id    uuid.UUID
		code  string
	}{
		{"plain user is forbidden", testutil.Principal(models.RoleUser), issue.ID, models.CodeForbidden},
		{"pending cannot skip verification", ngo, issue.ID, models.CodeInvalidTransition},
		{"missing issue", ngo, uuid.New(), models.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.lifecycle.MarkAddressed(ctx, tt.actor, tt.id)
			require.Error(t, err)
			assert.True(t, models.HasCode(err, tt.code), "got %v", err)
		})
	}

	got, err := h.store.Issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.AddressedAt)
}

func TestLifecycleMonotonicity(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	issue := testutil.SeedIssue(t, h.db, func(i *models.Issue) { i.UsersReported = 2 })
	admin := testutil.Principal(models.RoleAdmin)

	verified, err := h.lifecycle.EvaluateVerification(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusVerified, verified.Status)

	addressed, err := h.lifecycle.MarkAddressed(ctx, admin, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAddressed, addressed.Status)
	require.NotNil(t, addressed.AddressedAt)
	firstAddressedAt := *addressed.AddressedAt

	h.clock.Advance(time.Hour)
	_, err = h.lifecycle.MarkAddressed(ctx, testutil.Principal(models.RoleNGO), issue.ID)
	assert.True(t, models.HasCode(err, models.CodeInvalidTransition))

	again, err := h.lifecycle.EvaluateVerification(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAddressed, again.Status, "evaluation never regresses status")

	_, err = h.lifecycle.RecordAIVerification(ctx, admin, issue.ID)
	require.NoError(t, err)

	got, err := h.store.Issues.GetByID(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAddressed, got.Status)
	require.NotNil(t, got.AddressedAt)
	assert.True(t, firstAddressedAt.Equal(*got.AddressedAt), "addressedAt is set exactly once")
}

func TestRecordAIVerification(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	ctx := context.Background()
	issue := testutil.SeedIssue(t, h.db, nil)

	_, err := h.lifecycle.RecordAIVerification(ctx, testutil.Principal(models.RoleNGO), issue.ID)
	assert.True(t, models.HasCode(err, models.CodeForbidden))

	_, err = h.lifecycle.RecordAIVerification(ctx, testutil.Principal(models.RoleAdmin), uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))

	got, err := h.lifecycle.RecordAIVerification(ctx, testutil.Principal(models.RoleAdmin), issue.ID)
	require.NoError(t, err)
	assert.True(t, got.AIVerified)
	assert.Equal(t, models.StatusVerified, got.Status, "AI verification alone is sufficient")
	assert.Equal(t, 1, got.UsersReported)
}

func TestEvaluateVerification_BelowThresholdStaysPending(t *testing.T) {
	h := newHarness(t, DefaultSettings())
	issue := testutil.SeedIssue(t, h.db, nil)

	got, err := h.lifecycle.EvaluateVerification(context.Background(), issue.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)

	_, err = h.lifecycle.EvaluateVerification(context.Background(), uuid.New())
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}
