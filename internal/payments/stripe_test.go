package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bothub/internal/models"
)

func checkoutEvent(t *testing.T, eventID, clientReference string) stripe.Event {
	t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":                  "cs_test_1",
		"client_reference_id": clientReference,
	})
	require.NoError(t, err)
	return stripe.Event{
		ID:   eventID,
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestParseStripeEvent_CheckoutSession(t *testing.T) {
	up, err := ParseStripeEvent(checkoutEvent(t, "evt_1", "42|premium"))
	require.NoError(t, err)
	require.NotNil(t, up)
	assert.Equal(t, "evt_1", up.EventID)
	assert.Equal(t, uint(42), up.UserID)
	assert.Equal(t, models.PlanPremium, up.Plan)
	assert.Equal(t, models.PaymentMethodStripe, up.Method)
}

func TestParseStripeEvent_BadReferences(t *testing.T) {
	tests := []struct {
		name      string
		reference string
	}{
		{"Empty reference", ""},
		{"One part", "42"},
		{"Three parts", "42|premium|extra"},
		{"Non-numeric user", "abc|premium"},
		{"Zero user", "0|premium"},
		{"Unknown plan", "42|gold"},
		{"Free plan is not purchasable", "42|free"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up, err := ParseStripeEvent(checkoutEvent(t, "evt_1", tt.reference))
			assert.Error(t, err)
			assert.Nil(t, up)
		})
	}
}

func TestParseStripeEvent_PaymentIntent(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"id":       "pi_1",
		"metadata": map[string]string{"userId": "7", "plan": "basic"},
	})
	require.NoError(t, err)

	up, err := ParseStripeEvent(stripe.Event{
		ID:   "evt_2",
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: raw},
	})
	require.NoError(t, err)
	require.NotNil(t, up)
	assert.Equal(t, uint(7), up.UserID)
	assert.Equal(t, models.PlanBasic, up.Plan)
}

func TestParseStripeEvent_IrrelevantTypeIgnored(t *testing.T) {
	up, err := ParseStripeEvent(stripe.Event{
		ID:   "evt_3",
		Type: "invoice.paid",
		Data: &stripe.EventData{Raw: json.RawMessage(`{}`)},
	})
	assert.NoError(t, err)
	assert.Nil(t, up)
}

// signPayload builds a Stripe-Signature header the way Stripe does: HMAC-SHA256
// over "<timestamp>.<payload>" with the endpoint secret.
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestStripeVerifier(t *testing.T) {
	const secret = "whsec_test_secret"
	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{}}}`)
	verifier := NewStripeVerifier(secret)

	t.Run("Valid signature", func(t *testing.T) {
		event, err := verifier.Verify(payload, signPayload(payload, secret, time.Now()))
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
	})

	t.Run("Wrong secret", func(t *testing.T) {
		_, err := verifier.Verify(payload, signPayload(payload, "whsec_other", time.Now()))
		require.Error(t, err)
		appErr := &models.AppError{}
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "PAYMENT_VERIFICATION_FAILED", appErr.Code)
	})

	t.Run("Stale timestamp", func(t *testing.T) {
		_, err := verifier.Verify(payload, signPayload(payload, secret, time.Now().Add(-time.Hour)))
		assert.Error(t, err)
	})

	t.Run("Garbage header", func(t *testing.T) {
		_, err := verifier.Verify(payload, "not-a-signature")
		assert.Error(t, err)
	})
}
