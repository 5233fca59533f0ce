package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"bothub/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupNotifier(t *testing.T) (*Notifier, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewNotifier(rdb), rdb
}

func waitForMessage(t *testing.T, ch <-chan *redis.Message) *redis.Message {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pub/sub message")
		return nil
	}
}

func TestPublishPlanUpgrade(t *testing.T) {
	n, rdb := setupNotifier(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, UserChannel(42))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, n.PublishPlanUpgrade(ctx, 42, models.PlanPremium, models.PaymentMethodStripe))

	msg := waitForMessage(t, sub.Channel())
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
	assert.Equal(t, "plan_upgraded", payload["type"])
	assert.Equal(t, "premium", payload["plan"])
	assert.Equal(t, "stripe", payload["payment_method"])
	assert.NotEmpty(t, payload["upgraded_at"])
}

func TestPublishQuotaWarning(t *testing.T) {
	n, rdb := setupNotifier(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, UserChannel(7))
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	require.NoError(t, n.PublishQuotaWarning(ctx, 7, "history"))

	msg := waitForMessage(t, sub.Channel())
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
	assert.Equal(t, "quota_warning", payload["type"])
	assert.Equal(t, "history", payload["kind"])
}

func TestNotifierNilSafety(t *testing.T) {
	ctx := context.Background()

	var n *Notifier
	assert.NoError(t, n.PublishPlanUpgrade(ctx, 1, models.PlanBasic, models.PaymentMethodPayPal))
	assert.NoError(t, n.PublishQuotaWarning(ctx, 1, "history"))

	// A notifier without Redis behaves the same.
	n = NewNotifier(nil)
	assert.NoError(t, n.PublishUser(ctx, 1, "hello"))
	assert.NoError(t, n.PublishBroadcast(ctx, "hello"))
}

func TestStartPatternSubscriber(t *testing.T) {
	n, _ := setupNotifier(t)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	got := make(chan string, 1)
	require.NoError(t, n.StartPatternSubscriber(ctx, func(channel, payload string) {
		got <- channel + "|" + payload
	}))

	// Give the pattern subscription a moment to register.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, n.PublishUser(context.Background(), 9, "ping"))

	select {
	case v := <-got:
		assert.Equal(t, UserChannel(9)+"|ping", v)
	case <-time.After(2 * time.Second):
		t.Fatal("subscriber never received the message")
	}
}
