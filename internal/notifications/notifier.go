// Package notifications publishes issue lifecycle events over Redis pub/sub.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"urbanfix/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// EventsChannel carries every issue event.
const EventsChannel = "urbanfix:issues:events"

// Event types.
const (
	EventIssueCreated   = "issue.created"
	EventIssueMerged    = "issue.merged"
	EventIssueVerified  = "issue.verified"
	EventIssueAddressed = "issue.addressed"
)

// IssueEvent is the payload published for each lifecycle change. The AI
// verifier subscribes to issue.created to pick up new work.
type IssueEvent struct {
	Type          string             `json:"type"`
	IssueID       uuid.UUID          `json:"issue_id"`
	Status        models.IssueStatus `json:"status"`
	ActorID       uuid.UUID          `json:"actor_id"`
	UsersReported int                `json:"users_reported"`
	ImageURL      string             `json:"image_url,omitempty"`
	OccurredAt    time.Time          `json:"occurred_at"`
}

// NewIssueEvent builds an event snapshot of issue.
func NewIssueEvent(eventType string, issue *models.Issue, actor uuid.UUID, at time.Time) IssueEvent {
	return IssueEvent{
		Type:          eventType,
		IssueID:       issue.ID,
		Status:        issue.Status,
		ActorID:       actor,
		UsersReported: issue.UsersReported,
		ImageURL:      issue.ImageURL,
		OccurredAt:    at.UTC(),
	}
}

// IssueChannel returns the per-issue channel name.
func IssueChannel(id uuid.UUID) string {
	return fmt.Sprintf("urbanfix:issues:%s", id)
}

// Notifier publishes issue events into Redis channels. A nil client makes
// every call a no-op.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier over rdb.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Publish sends ev to the shared events channel and to the issue's channel.
func (n *Notifier) Publish(ctx context.Context, ev IssueEvent) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	pipe := n.rdb.Pipeline()
	pipe.Publish(ctx, EventsChannel, payload)
	pipe.Publish(ctx, IssueChannel(ev.IssueID), payload)
	_, err = pipe.Exec(ctx)
	return err
}

// Subscribe delivers decoded events from the shared channel to onEvent until
// ctx is cancelled. Undecodable payloads are logged and skipped.
func (n *Notifier) Subscribe(ctx context.Context, onEvent func(IssueEvent)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.Subscribe(ctx, EventsChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", EventsChannel, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var ev IssueEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					slog.Warn("dropping malformed issue event", "error", err)
					continue
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							slog.Error("panic in issue event handler", "panic", r, "stack", string(debug.Stack()))
						}
					}()
					onEvent(ev)
				}()
			}
		}
	}()

	return nil
}
