package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pymesoft/comercio-backend/pkg/redis"
)

// IdempotencyGuard marks Stripe event ids as seen so redelivered webhooks
// short-circuit before touching the payment ledger. Marks expire after the
// TTL, by which point the ledger's unique external reference is the backstop.
type IdempotencyGuard struct {
	store     redis.IdempotencyStore
	ttl       time.Duration
	namespace string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, namespace string) (*IdempotencyGuard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	if namespace == "" {
		return nil, errors.New("namespace is required")
	}
	return &IdempotencyGuard{
		store:     store,
		ttl:       ttl,
		namespace: namespace,
	}, nil
}

// CheckAndMark atomically marks the event and reports whether it had already
// been marked.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	key := g.store.IdempotencyKey(g.namespace, eventID)
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("mark event %s: %w", eventID, err)
	}
	return !set, nil
}

// Delete releases the mark so the provider's next redelivery is processed,
// used when handling failed after the mark was taken.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	if eventID == "" {
		return errors.New("event id is required")
	}
	return g.store.Del(ctx, g.store.IdempotencyKey(g.namespace, eventID))
}
