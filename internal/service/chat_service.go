package service

import (
	"context"
	"strings"

	"bothub/internal/middleware"
	"bothub/internal/models"
	"bothub/internal/notifications"
	"bothub/internal/openai"
	"bothub/internal/repository"
)

// ChatProvider delegates chat and image generation to an external API.
type ChatProvider interface {
	ChatCompletion(ctx context.Context, apiKey, model string, messages []openai.Message) (string, error)
	GenerateImage(ctx context.Context, apiKey, prompt string) (string, error)
}

type ChatService struct {
	userRepo repository.UserRepository
	botRepo  repository.BotRepository
	quota    *QuotaTracker
	provider ChatProvider
	notifier *notifications.Notifier
}

// ChatResult is what a successful message round-trip returns to the client.
type ChatResult struct {
	Reply        string               `json:"reply"`
	Conversation []models.Turn        `json:"conversation"`
	Usage        models.UsageCounters `json:"usage"`
	NearLimit    bool                 `json:"nearLimit"`
}

func NewChatService(
	userRepo repository.UserRepository,
	botRepo repository.BotRepository,
	quota *QuotaTracker,
	provider ChatProvider,
	notifier *notifications.Notifier,
) *ChatService {
	return &ChatService{
		userRepo: userRepo,
		botRepo:  botRepo,
		quota:    quota,
		provider: provider,
		notifier: notifier,
	}
}

// SendMessage runs one chat round-trip: quota gate, provider call, window
// append and trim, usage bump. Period resets are persisted before the quota
// decision, so a denied request still records the rollover.
func (s *ChatService) SendMessage(ctx context.Context, userID, botID uint, message string) (*ChatResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, models.NewValidationError("Message must not be empty")
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	bot, err := s.botRepo.GetForUser(ctx, botID, userID)
	if err != nil {
		return nil, err
	}

	if err := s.quota.CheckAndReset(ctx, user); err != nil {
		return nil, err
	}
	if !s.quota.CanSendMessage(user) {
		return nil, models.NewQuotaExceededError("Monthly message limit reached for your plan. Upgrade to keep chatting.")
	}

	if user.OpenAIKey == "" {
		return nil, models.NewConfigError("No OpenAI API key on file. Add one under settings to start chatting.")
	}

	messages := make([]openai.Message, 0, len(bot.Conversation)+2)
	messages = append(messages, openai.Message{Role: "system", Content: bot.Personality})
	for _, turn := range bot.Conversation {
		messages = append(messages, openai.Message{Role: string(turn.Role), Content: turn.Content})
	}
	messages = append(messages, openai.Message{Role: string(models.TurnRoleUser), Content: message})

	reply, err := s.provider.ChatCompletion(ctx, user.OpenAIKey, bot.Model, messages)
	if err != nil {
		return nil, err
	}

	conversation, _ := AppendTurn(bot.Conversation, models.Turn{
		Role:    models.TurnRoleUser,
		Content: message,
	}, user.Plan)
	conversation, nearLimit := AppendTurn(conversation, models.Turn{
		Role:    models.TurnRoleAssistant,
		Content: reply,
	}, user.Plan)

	if err := s.botRepo.SaveConversation(ctx, botID, conversation); err != nil {
		return nil, err
	}
	if err := s.quota.RecordMessage(ctx, user); err != nil {
		return nil, err
	}

	if nearLimit {
		if err := s.notifier.PublishQuotaWarning(ctx, userID, "history"); err != nil {
			middleware.Logger.WarnContext(ctx, "history warning notification failed",
				"user_id", userID, "error", err.Error())
		}
	}

	return &ChatResult{
		Reply:        reply,
		Conversation: conversation,
		Usage:        user.Usage,
		NearLimit:    nearLimit,
	}, nil
}

// ClearConversation wipes a bot's stored history.
func (s *ChatService) ClearConversation(ctx context.Context, userID, botID uint) error {
	if _, err := s.botRepo.GetForUser(ctx, botID, userID); err != nil {
		return err
	}
	return s.botRepo.SaveConversation(ctx, botID, nil)
}
