package service

import (
	"context"
	"strings"

	"bothub/internal/models"
	"bothub/internal/repository"
)

type UserService struct {
	userRepo repository.UserRepository
	quota    *QuotaTracker
}

func NewUserService(userRepo repository.UserRepository, quota *QuotaTracker) *UserService {
	return &UserService{userRepo: userRepo, quota: quota}
}

// GetProfile loads a user and applies any pending quota resets so the
// returned counters reflect the current period.
func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.quota.CheckAndReset(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// SaveSettings stores the user's own OpenAI API key. An empty key clears it.
func (s *UserService) SaveSettings(ctx context.Context, userID uint, openaiKey string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	key := strings.TrimSpace(openaiKey)
	if key != "" && !strings.HasPrefix(key, "sk-") {
		return nil, models.NewValidationError("OpenAI API keys start with sk-")
	}
	user.OpenAIKey = key

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// UpgradePlan is the authenticated self-service plan switch. Only paid tiers
// can be selected here; downgrades to free go through support.
func (s *UserService) UpgradePlan(ctx context.Context, userID uint, planRaw string) (*models.User, error) {
	plan, ok := models.ParsePlan(planRaw)
	if !ok || plan == models.PlanFree {
		return nil, models.NewValidationError("Plan must be basic or premium")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	user.Plan = plan
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
