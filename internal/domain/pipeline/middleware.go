package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Decision is the outcome of one capability check.
type Decision struct {
	Allowed bool
	Reason  string // stable machine-readable reason when denied
}

func allow() Decision              { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Check is a capability gate evaluated before the pipeline runs. Checks
// compose into a chain; the first denial wins.
type Check interface {
	Name() string
	Allow(ctx context.Context, userID uuid.UUID) Decision
}

// SubscriptionStore reports whether a user's subscription is active.
type SubscriptionStore interface {
	HasActive(ctx context.Context, userID uuid.UUID) (bool, error)
}

// SubscriptionCheck denies users without an active subscription. A store
// failure fails open: a billing outage must not lose expense records.
type SubscriptionCheck struct {
	store  SubscriptionStore
	logger *slog.Logger
}

func NewSubscriptionCheck(store SubscriptionStore, logger *slog.Logger) *SubscriptionCheck {
	return &SubscriptionCheck{store: store, logger: logger}
}

func (c *SubscriptionCheck) Name() string { return "subscription" }

func (c *SubscriptionCheck) Allow(ctx context.Context, userID uuid.UUID) Decision {
	active, err := c.store.HasActive(ctx, userID)
	if err != nil {
		c.logger.Warn("subscription check failed, allowing", "user_id", userID, "error", err)
		return allow()
	}
	if !active {
		return deny("subscription_required")
	}
	return allow()
}

// RateLimitCheck throttles per-user message throughput with a token bucket
// per user.
type RateLimitCheck struct {
	mu       sync.Mutex
	limiters map[uuid.UUID]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func NewRateLimitCheck(perSecond float64, burst int) *RateLimitCheck {
	return &RateLimitCheck{
		limiters: make(map[uuid.UUID]*rate.Limiter),
		limit:    rate.Limit(perSecond),
		burst:    burst,
	}
}

func (c *RateLimitCheck) Name() string { return "rate_limit" }

func (c *RateLimitCheck) Allow(_ context.Context, userID uuid.UUID) Decision {
	c.mu.Lock()
	limiter, ok := c.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(c.limit, c.burst)
		c.limiters[userID] = limiter
	}
	c.mu.Unlock()

	if !limiter.Allow() {
		return deny("rate_limited")
	}
	return allow()
}
