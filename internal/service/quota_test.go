package service

import (
	"context"
	"testing"
	"time"

	"bothub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimitsFor(t *testing.T) {
	tests := []struct {
		name     string
		plan     models.Plan
		messages int
		images   int
	}{
		{"Free plan", models.PlanFree, 100, 3},
		{"Basic plan", models.PlanBasic, 5000, 10},
		{"Premium plan", models.PlanPremium, Unlimited, Unlimited},
		{"Unknown plan falls back to free", models.Plan("gold"), 100, 3},
		{"Empty plan falls back to free", models.Plan(""), 100, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := LimitsFor(tt.plan)
			assert.Equal(t, tt.messages, l.Messages)
			assert.Equal(t, tt.images, l.Images)
		})
	}
}

func TestApplyResets_MonthBoundary(t *testing.T) {
	now := time.Date(2026, time.March, 1, 0, 0, 1, 0, time.UTC)

	tests := []struct {
		name          string
		lastMsgReset  time.Time
		wantReset     bool
	}{
		{"Same month keeps counter", time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), false},
		{"Previous month resets", time.Date(2026, time.February, 28, 23, 59, 59, 0, time.UTC), true},
		{"Same month last year resets", time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC), true},
		{"Zero time resets", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewQuotaTracker(newFakeUserRepo())
			tracker.now = func() time.Time { return now }

			user := &models.User{
				ID:   1,
				Plan: models.PlanFree,
				Usage: models.UsageCounters{
					Messages:         42,
					LastReset:        now,
					LastMessageReset: tt.lastMsgReset,
				},
			}

			changed := tracker.ApplyResets(user)
			assert.Equal(t, tt.wantReset, changed)
			if tt.wantReset {
				assert.Zero(t, user.Usage.Messages)
				assert.Equal(t, now, user.Usage.LastMessageReset)
			} else {
				assert.Equal(t, 42, user.Usage.Messages)
			}
		})
	}
}

func TestApplyResets_DayBoundary(t *testing.T) {
	now := time.Date(2026, time.March, 2, 0, 0, 1, 0, time.UTC)

	tests := []struct {
		name      string
		lastReset time.Time
		wantReset bool
	}{
		{"Same day keeps counter", time.Date(2026, time.March, 2, 23, 0, 0, 0, time.UTC), false},
		{"Previous day resets", time.Date(2026, time.March, 1, 23, 59, 59, 0, time.UTC), true},
		{"Same day-of-year last year resets", time.Date(2025, time.March, 2, 12, 0, 0, 0, time.UTC), true},
		{"Zero time resets", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := NewQuotaTracker(newFakeUserRepo())
			tracker.now = func() time.Time { return now }

			user := &models.User{
				ID:   1,
				Plan: models.PlanFree,
				Usage: models.UsageCounters{
					Images:           2,
					LastReset:        tt.lastReset,
					LastMessageReset: now,
				},
			}

			changed := tracker.ApplyResets(user)
			assert.Equal(t, tt.wantReset, changed)
			if tt.wantReset {
				assert.Zero(t, user.Usage.Images)
			} else {
				assert.Equal(t, 2, user.Usage.Images)
			}
		})
	}
}

func TestCheckAndReset_PersistsRollover(t *testing.T) {
	now := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	user := &models.User{
		ID:   7,
		Plan: models.PlanFree,
		Usage: models.UsageCounters{
			Messages:         100,
			Images:           3,
			LastReset:        now.AddDate(0, 0, -1),
			LastMessageReset: now.AddDate(0, -1, 0),
		},
	}
	repo := newFakeUserRepo(user)
	tracker := NewQuotaTracker(repo)
	tracker.now = func() time.Time { return now }

	require.NoError(t, tracker.CheckAndReset(context.Background(), user))
	assert.Equal(t, 1, repo.usageWrites, "rollover must be written through")

	stored, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)
	assert.Zero(t, stored.Usage.Messages)
	assert.Zero(t, stored.Usage.Images)

	// Second call in the same period writes nothing.
	require.NoError(t, tracker.CheckAndReset(context.Background(), user))
	assert.Equal(t, 1, repo.usageWrites)
}

func TestCanSendMessage(t *testing.T) {
	tracker := NewQuotaTracker(newFakeUserRepo())

	tests := []struct {
		name    string
		plan    models.Plan
		used    int
		allowed bool
	}{
		{"Free under limit", models.PlanFree, 99, true},
		{"Free at limit", models.PlanFree, 100, false},
		{"Free over limit", models.PlanFree, 150, false},
		{"Basic under limit", models.PlanBasic, 4999, true},
		{"Basic at limit", models.PlanBasic, 5000, false},
		{"Premium never limited", models.PlanPremium, 1000000, true},
		{"Unknown plan uses free limit", models.Plan("gold"), 100, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{Plan: tt.plan, Usage: models.UsageCounters{Messages: tt.used}}
			assert.Equal(t, tt.allowed, tracker.CanSendMessage(user))
		})
	}
}

func TestCanGenerateImage(t *testing.T) {
	tracker := NewQuotaTracker(newFakeUserRepo())

	tests := []struct {
		name    string
		plan    models.Plan
		used    int
		allowed bool
	}{
		{"Free under limit", models.PlanFree, 2, true},
		{"Free at limit", models.PlanFree, 3, false},
		{"Basic at limit", models.PlanBasic, 10, false},
		{"Premium never limited", models.PlanPremium, 500, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{Plan: tt.plan, Usage: models.UsageCounters{Images: tt.used}}
			assert.Equal(t, tt.allowed, tracker.CanGenerateImage(user))
		})
	}
}

func TestRecordMessage_Persists(t *testing.T) {
	user := &models.User{ID: 3, Plan: models.PlanFree}
	repo := newFakeUserRepo(user)
	tracker := NewQuotaTracker(repo)

	require.NoError(t, tracker.RecordMessage(context.Background(), user))
	require.NoError(t, tracker.RecordImage(context.Background(), user))

	stored, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Usage.Messages)
	assert.Equal(t, 1, stored.Usage.Images)
}
