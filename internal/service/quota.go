package service

import (
	"context"
	"time"

	"bothub/internal/models"
	"bothub/internal/observability"
	"bothub/internal/repository"
)

// Unlimited marks a quota dimension with no cap.
const Unlimited = -1

// PlanLimits caps per-period usage for a plan. Messages reset monthly,
// images daily.
type PlanLimits struct {
	Messages int
	Images   int
}

var planLimits = map[models.Plan]PlanLimits{
	models.PlanFree:    {Messages: 100, Images: 3},
	models.PlanBasic:   {Messages: 5000, Images: 10},
	models.PlanPremium: {Messages: Unlimited, Images: Unlimited},
}

// LimitsFor returns the limits for a plan. Unknown plans get free-tier
// limits rather than an error so a corrupt plan value can never unlock
// unlimited usage.
func LimitsFor(plan models.Plan) PlanLimits {
	if l, ok := planLimits[plan]; ok {
		return l
	}
	return planLimits[models.PlanFree]
}

// QuotaTracker applies lazy per-period usage resets and answers whether an
// action is within plan limits. Resets happen on read, never by timer, and
// are persisted even when the action itself is denied.
type QuotaTracker struct {
	userRepo repository.UserRepository

	// now is swappable in tests to cross period boundaries.
	now func() time.Time
}

// NewQuotaTracker returns a QuotaTracker using the given repository.
func NewQuotaTracker(userRepo repository.UserRepository) *QuotaTracker {
	return &QuotaTracker{userRepo: userRepo, now: time.Now}
}

// ApplyResets zeroes counters whose period has rolled over and reports
// whether anything changed. It mutates the user in place and does not persist.
func (t *QuotaTracker) ApplyResets(user *models.User) bool {
	now := t.now()
	changed := false

	// Monthly message reset: compare calendar month, not elapsed time.
	ly, lm, _ := user.Usage.LastMessageReset.Date()
	ny, nm, _ := now.Date()
	if user.Usage.LastMessageReset.IsZero() || ly != ny || lm != nm {
		user.Usage.Messages = 0
		user.Usage.LastMessageReset = now
		changed = true
	}

	// Daily image reset: compare calendar day.
	ld, nd := user.Usage.LastReset, now
	if ld.IsZero() || ld.Year() != nd.Year() || ld.YearDay() != nd.YearDay() {
		user.Usage.Images = 0
		user.Usage.LastReset = now
		changed = true
	}

	return changed
}

// CheckAndReset applies pending resets and persists the counters if they
// changed. The write happens before any quota decision so a denied request
// still records the rollover.
func (t *QuotaTracker) CheckAndReset(ctx context.Context, user *models.User) error {
	if !t.ApplyResets(user) {
		return nil
	}
	return t.userRepo.UpdateUsage(ctx, user.ID, user.Usage)
}

// CanSendMessage reports whether the user may send another chat message.
func (t *QuotaTracker) CanSendMessage(user *models.User) bool {
	limits := LimitsFor(user.Plan)
	if limits.Messages == Unlimited {
		return true
	}
	allowed := user.Usage.Messages < limits.Messages
	if !allowed {
		observability.QuotaDenials.WithLabelValues(string(user.Plan), "message").Inc()
	}
	return allowed
}

// CanGenerateImage reports whether the user may generate another image.
func (t *QuotaTracker) CanGenerateImage(user *models.User) bool {
	limits := LimitsFor(user.Plan)
	if limits.Images == Unlimited {
		return true
	}
	allowed := user.Usage.Images < limits.Images
	if !allowed {
		observability.QuotaDenials.WithLabelValues(string(user.Plan), "image").Inc()
	}
	return allowed
}

// RecordMessage increments the message counter and persists it.
func (t *QuotaTracker) RecordMessage(ctx context.Context, user *models.User) error {
	user.Usage.Messages++
	return t.userRepo.UpdateUsage(ctx, user.ID, user.Usage)
}

// RecordImage increments the image counter and persists it.
func (t *QuotaTracker) RecordImage(ctx context.Context, user *models.User) error {
	user.Usage.Images++
	return t.userRepo.UpdateUsage(ctx, user.ID, user.Usage)
}
