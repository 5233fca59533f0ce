package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	UserKeyPrefix         = "user:%d"
	BotKeyPrefix          = "bot:%d"
	WebhookEventKeyPrefix = "webhook:%s:%s"
)

const (
	UserTTL = 5 * time.Minute
	BotTTL  = 10 * time.Minute

	// WebhookEventTTL bounds the replay-protection window. Providers retry
	// failed deliveries for at most a day.
	WebhookEventTTL = 24 * time.Hour
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func BotKey(botID uint) string {
	return fmt.Sprintf(BotKeyPrefix, botID)
}

func WebhookEventKey(provider, eventID string) string {
	return fmt.Sprintf(WebhookEventKeyPrefix, provider, eventID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateBot(ctx context.Context, botID uint) {
	Invalidate(ctx, BotKey(botID))
}

// ClaimWebhookEvent atomically marks a webhook delivery as seen. It returns
// true when this is the first delivery of (provider, eventID) within the
// replay window, false on a duplicate. When Redis is unavailable the claim
// fails open: replays are preferable to dropped upgrades.
func ClaimWebhookEvent(ctx context.Context, provider, eventID string) bool {
	if client == nil || eventID == "" {
		return true
	}
	ok, err := client.SetNX(ctx, WebhookEventKey(provider, eventID), time.Now().UTC().Format(time.RFC3339), WebhookEventTTL).Result()
	if err != nil && err != redis.Nil {
		return true
	}
	return ok
}

// ReleaseWebhookEvent drops a claim so a retried delivery can be processed
// again after the apply step failed.
func ReleaseWebhookEvent(ctx context.Context, provider, eventID string) {
	if client == nil || eventID == "" {
		return
	}
	client.Del(ctx, WebhookEventKey(provider, eventID))
}
