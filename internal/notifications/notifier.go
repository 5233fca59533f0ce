// Package notifications publishes best-effort account events over Redis
// pub/sub. Delivery failures are logged and never fail the triggering
// operation.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"bothub/internal/models"
)

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(
	ctx context.Context, userID uint, payload string,
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	channel := UserChannel(userID)
	return n.rdb.Publish(ctx, channel, payload).Err()
}

// PublishBroadcast sends a notification payload to all connected users.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, "notifications:broadcast", payload).Err()
}

// PublishPlanUpgrade announces a confirmed plan upgrade on the user's
// channel. This is the in-app replacement for the confirmation email the
// payment flow used to send; it stays best-effort for the same reason.
func (n *Notifier) PublishPlanUpgrade(
	ctx context.Context, userID uint, plan models.Plan, method models.PaymentMethod,
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload := map[string]interface{}{
		"type":           "plan_upgraded",
		"plan":           plan,
		"payment_method": method,
		"upgraded_at":    time.Now().UTC().Format(time.RFC3339),
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), string(payloadJSON)).Err()
}

// PublishQuotaWarning tells a user their conversation window or quota is
// close to its limit.
func (n *Notifier) PublishQuotaWarning(ctx context.Context, userID uint, kind string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	payload := map[string]interface{}{
		"type": "quota_warning",
		"kind": kind,
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return n.rdb.Publish(ctx, UserChannel(userID), string(payloadJSON)).Err()
}

// StartPatternSubscriber subscribes to pattern `notifications:user:*` and calls onMessage
// for each incoming message. onMessage receives channel and payload.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, "notifications:user:*", "notifications:broadcast")
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
				func() {
					defer func() {
						if r := recover(); r != nil {
							log.Printf("PANIC in PatternSubscriber: %v\n%s", r, debug.Stack())
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return "notifications:user:" + strconv.FormatUint(uint64(userID), 10)
}
