// Package payments verifies payment-provider callbacks and normalizes them
// into upgrade commands. Verification is mandatory: nothing in this package
// hands an Upgrade to the caller unless the provider's authenticity checks
// passed.
package payments

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"bothub/internal/models"
)

// Upgrade is a verified, normalized plan-upgrade command extracted from a
// provider event.
type Upgrade struct {
	EventID string
	UserID  uint
	Plan    models.Plan
	Method  models.PaymentMethod
}

// StripeVerifier checks a raw webhook payload against its signature header.
type StripeVerifier interface {
	Verify(payload []byte, sigHeader string) (stripe.Event, error)
}

type stripeVerifier struct {
	secret string
}

// NewStripeVerifier returns a StripeVerifier using the endpoint's signing secret.
func NewStripeVerifier(secret string) StripeVerifier {
	return &stripeVerifier{secret: secret}
}

func (v *stripeVerifier) Verify(payload []byte, sigHeader string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, v.secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, models.NewPaymentVerificationError("Stripe signature verification failed")
	}
	return event, nil
}

// ParseStripeEvent maps a verified Stripe event to an Upgrade. Event types
// that do not confirm a payment return (nil, nil) and should be acknowledged
// without action. Malformed reference data is an error: the event was signed
// by Stripe but cannot be attributed to a user and plan.
func ParseStripeEvent(event stripe.Event) (*Upgrade, error) {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, models.NewValidationError("Malformed checkout session payload")
		}
		return upgradeFromReference(event.ID, session.ClientReferenceID)

	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return nil, models.NewValidationError("Malformed payment intent payload")
		}
		userID, err := parseUserID(intent.Metadata["userId"])
		if err != nil {
			return nil, err
		}
		plan, ok := models.ParsePlan(intent.Metadata["plan"])
		if !ok || plan == models.PlanFree {
			return nil, models.NewValidationError(fmt.Sprintf("Unknown plan %q in payment intent metadata", intent.Metadata["plan"]))
		}
		return &Upgrade{
			EventID: event.ID,
			UserID:  userID,
			Plan:    plan,
			Method:  models.PaymentMethodStripe,
		}, nil
	}

	// Everything else is acknowledged but ignored.
	return nil, nil
}

// upgradeFromReference decodes the "userId|plan" reference carried on
// checkout sessions. Exactly two parts; anything else is rejected.
func upgradeFromReference(eventID, reference string) (*Upgrade, error) {
	parts := strings.Split(reference, "|")
	if len(parts) != 2 {
		return nil, models.NewValidationError("Client reference must be userId|plan")
	}
	userID, err := parseUserID(parts[0])
	if err != nil {
		return nil, err
	}
	plan, ok := models.ParsePlan(parts[1])
	if !ok || plan == models.PlanFree {
		return nil, models.NewValidationError(fmt.Sprintf("Unknown plan %q in client reference", parts[1]))
	}
	return &Upgrade{
		EventID: eventID,
		UserID:  userID,
		Plan:    plan,
		Method:  models.PaymentMethodStripe,
	}, nil
}

func parseUserID(raw string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, models.NewValidationError("Invalid user ID in payment reference")
	}
	return uint(id), nil
}
