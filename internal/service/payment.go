package service

import (
	"context"
	"time"

	"bothub/internal/cache"
	"bothub/internal/middleware"
	"bothub/internal/models"
	"bothub/internal/notifications"
	"bothub/internal/observability"
	"bothub/internal/payments"
	"bothub/internal/repository"
)

// PaymentService applies verified upgrade commands to user accounts.
type PaymentService struct {
	userRepo repository.UserRepository
	notifier *notifications.Notifier

	now func() time.Time
}

// NewPaymentService returns a PaymentService. notifier may be nil.
func NewPaymentService(userRepo repository.UserRepository, notifier *notifications.Notifier) *PaymentService {
	return &PaymentService{
		userRepo: userRepo,
		notifier: notifier,
		now:      time.Now,
	}
}

// ApplyUpgrade upgrades the user's plan and refreshes their subscription.
// Replayed events (same provider and event ID inside the dedupe window) are
// skipped; applied reports whether this call changed anything. Idempotency
// is decided before any write so a retried delivery can never double-apply.
func (s *PaymentService) ApplyUpgrade(ctx context.Context, up payments.Upgrade) (applied bool, err error) {
	provider := string(up.Method)

	if !cache.ClaimWebhookEvent(ctx, provider, up.EventID) {
		observability.WebhookEvents.WithLabelValues(provider, "duplicate").Inc()
		middleware.Logger.InfoContext(ctx, "duplicate payment event skipped",
			"provider", provider, "event_id", up.EventID)
		return false, nil
	}

	user, err := s.userRepo.GetByID(ctx, up.UserID)
	if err != nil {
		// Let the provider retry the delivery once the user row issue is resolved.
		cache.ReleaseWebhookEvent(ctx, provider, up.EventID)
		return false, err
	}

	now := s.now()
	user.Plan = up.Plan
	if err := s.userRepo.Update(ctx, user); err != nil {
		cache.ReleaseWebhookEvent(ctx, provider, up.EventID)
		return false, err
	}

	sub := &models.Subscription{
		UserID:          user.ID,
		Status:          models.SubscriptionStatusActive,
		Plan:            up.Plan,
		NextBillingDate: now.AddDate(0, 1, 0),
		LastPaymentDate: now,
		PaymentMethod:   up.Method,
		// Confirmation clears any checkout still marked as pending.
		PendingSessionID: "",
		PendingPaymentID: "",
	}
	if err := s.userRepo.SaveSubscription(ctx, sub); err != nil {
		cache.ReleaseWebhookEvent(ctx, provider, up.EventID)
		return false, err
	}

	observability.WebhookEvents.WithLabelValues(provider, "applied").Inc()
	observability.PlanUpgrades.WithLabelValues(string(up.Plan), provider).Inc()

	if err := s.notifier.PublishPlanUpgrade(ctx, user.ID, up.Plan, up.Method); err != nil {
		middleware.Logger.WarnContext(ctx, "plan upgrade notification failed",
			"user_id", user.ID, "error", err.Error())
	}

	middleware.Logger.InfoContext(ctx, "plan upgrade applied",
		"user_id", user.ID, "plan", string(up.Plan), "provider", provider, "event_id", up.EventID)
	return true, nil
}

// MarkPendingCheckout records an initiated but unconfirmed checkout on the
// user's subscription so a later confirmation can be correlated.
func (s *PaymentService) MarkPendingCheckout(ctx context.Context, userID uint, plan models.Plan, method models.PaymentMethod, reference string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	sub := user.Subscription
	if sub == nil {
		sub = &models.Subscription{UserID: user.ID}
	}
	sub.Status = models.SubscriptionStatusPending
	sub.Plan = plan
	sub.PaymentMethod = method
	switch method {
	case models.PaymentMethodStripe:
		sub.PendingSessionID = reference
	case models.PaymentMethodPayPal:
		sub.PendingPaymentID = reference
	}
	return s.userRepo.SaveSubscription(ctx, sub)
}
