package service

import (
	"context"
	"strings"

	"bothub/internal/models"
	"bothub/internal/repository"
)

type ImageService struct {
	userRepo repository.UserRepository
	quota    *QuotaTracker
	provider ChatProvider
}

// ImageResult carries the generated image URL and the caller's counters
// after the generation was charged.
type ImageResult struct {
	ImageURL string               `json:"imageUrl"`
	Usage    models.UsageCounters `json:"usage"`
}

func NewImageService(userRepo repository.UserRepository, quota *QuotaTracker, provider ChatProvider) *ImageService {
	return &ImageService{userRepo: userRepo, quota: quota, provider: provider}
}

// GenerateImage runs the image flow: daily reset, quota gate, provider call,
// usage bump. The provider returns a URL; image bytes never pass through
// this service.
func (s *ImageService) GenerateImage(ctx context.Context, userID uint, prompt string) (*ImageResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, models.NewValidationError("Prompt must not be empty")
	}
	const maxPromptLen = 4000
	if len(prompt) > maxPromptLen {
		return nil, models.NewValidationError("Prompt too long (max 4000 characters)")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := s.quota.CheckAndReset(ctx, user); err != nil {
		return nil, err
	}
	if !s.quota.CanGenerateImage(user) {
		return nil, models.NewQuotaExceededError("Daily image limit reached for your plan. Try again tomorrow or upgrade.")
	}

	if user.OpenAIKey == "" {
		return nil, models.NewConfigError("No OpenAI API key on file. Add one under settings to generate images.")
	}

	url, err := s.provider.GenerateImage(ctx, user.OpenAIKey, prompt)
	if err != nil {
		return nil, err
	}

	if err := s.quota.RecordImage(ctx, user); err != nil {
		return nil, err
	}

	return &ImageResult{ImageURL: url, Usage: user.Usage}, nil
}
