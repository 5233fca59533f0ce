package service

import (
	"context"
	"strings"

	"bothub/internal/models"
	"bothub/internal/repository"
)

// DefaultBotModel is used when a bot is created without an explicit model.
const DefaultBotModel = "gpt-3.5-turbo"

type BotService struct {
	botRepo repository.BotRepository
}

type CreateBotInput struct {
	UserID      uint
	Name        string
	Personality string
	Model       string
}

func NewBotService(botRepo repository.BotRepository) *BotService {
	return &BotService{botRepo: botRepo}
}

func (s *BotService) CreateBot(ctx context.Context, in CreateBotInput) (*models.Bot, error) {
	name := strings.TrimSpace(in.Name)
	personality := strings.TrimSpace(in.Personality)
	if name == "" || personality == "" {
		return nil, models.NewValidationError("Bot name and personality are required")
	}

	const maxNameLen = 60
	const maxPersonalityLen = 2000
	if len(name) > maxNameLen {
		return nil, models.NewValidationError("Bot name too long (max 60 characters)")
	}
	if len(personality) > maxPersonalityLen {
		return nil, models.NewValidationError("Bot personality too long (max 2000 characters)")
	}

	model := strings.TrimSpace(in.Model)
	if model == "" {
		model = DefaultBotModel
	}

	bot := &models.Bot{
		UserID:      in.UserID,
		Name:        name,
		Personality: personality,
		Model:       model,
	}
	if err := s.botRepo.Create(ctx, bot); err != nil {
		return nil, err
	}
	return bot, nil
}

func (s *BotService) ListBots(ctx context.Context, userID uint) ([]models.Bot, error) {
	return s.botRepo.ListByUser(ctx, userID)
}

func (s *BotService) GetBot(ctx context.Context, botID, userID uint) (*models.Bot, error) {
	return s.botRepo.GetForUser(ctx, botID, userID)
}

func (s *BotService) DeleteBot(ctx context.Context, botID, userID uint) error {
	return s.botRepo.Delete(ctx, botID, userID)
}
