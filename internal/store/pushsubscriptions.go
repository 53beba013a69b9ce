package store

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/argus-assistant/argus/internal/errs"
	"github.com/argus-assistant/argus/internal/model"
)

// pushSubscriptionsKey is the Redis hash holding every registered
// opaque push token, mapped to its createdAt.
const pushSubscriptionsKey = "argus:push_subscriptions"

// PushSubscriptionStore is the sixth, Redis-backed collection.
type PushSubscriptionStore struct {
	redis *redis.Client
}

func NewPushSubscriptionStore(rdb *redis.Client) *PushSubscriptionStore {
	return &PushSubscriptionStore{redis: rdb}
}

// Add registers a push token; for a token already present it
// overwrites the stored createdAt.
func (s *PushSubscriptionStore) Add(ctx context.Context, token string, createdAt int64) error {
	if err := s.redis.HSet(ctx, pushSubscriptionsKey, token, createdAt).Err(); err != nil {
		return &errs.StoreError{Operation: "add", Collection: "push_subscriptions", Cause: err}
	}
	return nil
}

// Remove unregisters a push token.
func (s *PushSubscriptionStore) Remove(ctx context.Context, token string) error {
	if err := s.redis.HDel(ctx, pushSubscriptionsKey, token).Err(); err != nil {
		return &errs.StoreError{Operation: "remove", Collection: "push_subscriptions", Cause: err}
	}
	return nil
}

// List returns every currently registered subscription.
func (s *PushSubscriptionStore) List(ctx context.Context) ([]model.PushSubscription, error) {
	all, err := s.redis.HGetAll(ctx, pushSubscriptionsKey).Result()
	if err != nil {
		return nil, &errs.StoreError{Operation: "list", Collection: "push_subscriptions", Cause: err}
	}

	out := make([]model.PushSubscription, 0, len(all))
	for token, createdAtStr := range all {
		ts, _ := strconv.ParseInt(createdAtStr, 10, 64)
		out = append(out, model.PushSubscription{Token: token, CreatedAt: ts})
	}
	return out, nil
}

// Count returns the number of registered push subscriptions.
func (s *PushSubscriptionStore) Count(ctx context.Context) (int64, error) {
	n, err := s.redis.HLen(ctx, pushSubscriptionsKey).Result()
	if err != nil {
		return 0, &errs.StoreError{Operation: "count", Collection: "push_subscriptions", Cause: err}
	}
	return n, nil
}

// BulkAdd registers a batch of subscriptions as-is, used by backup restore.
func (s *PushSubscriptionStore) BulkAdd(ctx context.Context, subs []model.PushSubscription) error {
	for _, sub := range subs {
		if err := s.Add(ctx, sub.Token, sub.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAll removes every registered push subscription (used by backup
// restore mode=replace).
func (s *PushSubscriptionStore) DeleteAll(ctx context.Context) error {
	if err := s.redis.Del(ctx, pushSubscriptionsKey).Err(); err != nil {
		return &errs.StoreError{Operation: "delete_all", Collection: "push_subscriptions", Cause: err}
	}
	return nil
}
