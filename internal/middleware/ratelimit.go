package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"urbanfix/internal/models"
	"urbanfix/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the throttle store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen lets the request through if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed rejects the request with TRANSIENT_STORAGE if Redis is unavailable.
	FailClosed
)

const throttleKeyPrefix = "throttle:%s:%s"

// ErrThrottleStoreUnavailable is returned when no Redis client is configured.
var ErrThrottleStoreUnavailable = errors.New("throttle store unavailable")

// Throttle caps how often one caller may invoke one operation. Each operation
// counts in its own bucket, so heavy voting never eats into report submission.
// Rejections surface as TOO_MANY_REQUESTS; RATE_LIMITED is reserved for the
// daily new-issue allowance enforced by the resolver.
type Throttle struct {
	Operation string
	Limit     int
	Window    time.Duration
	Policy    FailPolicy
}

// Decision is the result of counting one call against a Throttle.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// Allow counts one call by caller and reports whether it fits in the window.
// Throttling is disabled when APP_ENV is "test" or "stress".
func (t Throttle) Allow(ctx context.Context, rdb *redis.Client, caller string) (Decision, error) {
	switch os.Getenv("APP_ENV") {
	case "test", "stress":
		return Decision{Allowed: true}, nil
	}
	if rdb == nil {
		return Decision{}, ErrThrottleStoreUnavailable
	}

	key := fmt.Sprintf(throttleKeyPrefix, t.Operation, caller)
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return Decision{}, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, t.Window)
	}
	if cnt <= int64(t.Limit) {
		return Decision{Allowed: true}, nil
	}

	retry, err := rdb.PTTL(ctx, key).Result()
	if err != nil || retry <= 0 {
		retry = t.Window
	}
	return Decision{RetryAfter: retry}, nil
}

// Handler returns a Fiber middleware enforcing the throttle. Callers are keyed
// by authenticated principal when present, otherwise by remote IP.
func (t Throttle) Handler(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if p, ok := c.Locals("principal").(models.Principal); ok {
			caller = "user:" + p.UserID.String()
		}

		d, err := t.Allow(c.UserContext(), rdb, caller)
		if err != nil {
			if t.Policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "throttle store unavailable, failing closed",
					"operation", t.Operation, "error", err)
				return models.RespondWithAppError(c, models.NewTransientStorageError(err))
			}
			return c.Next()
		}
		if !d.Allowed {
			observability.ThrottledRequests.WithLabelValues(t.Operation).Inc()
			return models.RespondWithAppError(c, models.NewTooManyRequestsError(d.RetryAfter))
		}
		return c.Next()
	}
}
