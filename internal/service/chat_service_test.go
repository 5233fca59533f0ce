package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"bothub/internal/models"
	"bothub/internal/openai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBotRepo struct {
	bots map[uint]*models.Bot

	savedConversations map[uint][]models.Turn
}

func newFakeBotRepo(bots ...*models.Bot) *fakeBotRepo {
	r := &fakeBotRepo{
		bots:               make(map[uint]*models.Bot),
		savedConversations: make(map[uint][]models.Turn),
	}
	for _, b := range bots {
		r.bots[b.ID] = b
	}
	return r
}

func (r *fakeBotRepo) GetByID(_ context.Context, id uint) (*models.Bot, error) {
	b, ok := r.bots[id]
	if !ok {
		return nil, models.NewNotFoundError("Bot", id)
	}
	clone := *b
	return &clone, nil
}

func (r *fakeBotRepo) GetForUser(ctx context.Context, id, userID uint) (*models.Bot, error) {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, models.NewNotFoundError("Bot", id)
	}
	return b, nil
}

func (r *fakeBotRepo) ListByUser(_ context.Context, userID uint) ([]models.Bot, error) {
	var out []models.Bot
	for _, b := range r.bots {
		if b.UserID == userID {
			out = append(out, *b)
		}
	}
	return out, nil
}

func (r *fakeBotRepo) Create(_ context.Context, bot *models.Bot) error {
	bot.ID = uint(len(r.bots) + 1)
	clone := *bot
	r.bots[bot.ID] = &clone
	return nil
}

func (r *fakeBotRepo) Delete(_ context.Context, id, userID uint) error {
	b, ok := r.bots[id]
	if !ok || b.UserID != userID {
		return models.NewNotFoundError("Bot", id)
	}
	delete(r.bots, id)
	return nil
}

func (r *fakeBotRepo) SaveConversation(_ context.Context, botID uint, turns []models.Turn) error {
	r.savedConversations[botID] = turns
	if b, ok := r.bots[botID]; ok {
		b.Conversation = turns
	}
	return nil
}

// stubProvider answers with a canned reply and records what it was asked.
type stubProvider struct {
	reply    string
	imageURL string
	err      error

	gotKey      string
	gotModel    string
	gotMessages []openai.Message
	gotPrompt   string
	calls       int
}

func (p *stubProvider) ChatCompletion(_ context.Context, apiKey, model string, messages []openai.Message) (string, error) {
	p.calls++
	p.gotKey, p.gotModel, p.gotMessages = apiKey, model, messages
	return p.reply, p.err
}

func (p *stubProvider) GenerateImage(_ context.Context, apiKey, prompt string) (string, error) {
	p.calls++
	p.gotKey, p.gotPrompt = apiKey, prompt
	return p.imageURL, p.err
}

func chatFixture(t *testing.T, user *models.User, bot *models.Bot, provider ChatProvider) (*ChatService, *fakeUserRepo, *fakeBotRepo) {
	t.Helper()
	userRepo := newFakeUserRepo(user)
	botRepo := newFakeBotRepo(bot)
	quota := NewQuotaTracker(userRepo)
	return NewChatService(userRepo, botRepo, quota, provider, nil), userRepo, botRepo
}

func freshUser(plan models.Plan) *models.User {
	now := time.Now()
	return &models.User{
		ID:        1,
		Plan:      plan,
		OpenAIKey: "sk-test",
		Usage:     models.UsageCounters{LastReset: now, LastMessageReset: now},
	}
}

func TestSendMessage_HappyPath(t *testing.T) {
	user := freshUser(models.PlanFree)
	bot := &models.Bot{
		ID: 10, UserID: 1, Name: "Chef", Personality: "You are a chef.", Model: "gpt-3.5-turbo",
		Conversation: []models.Turn{
			{Role: models.TurnRoleUser, Content: "hi"},
			{Role: models.TurnRoleAssistant, Content: "hello"},
		},
	}
	provider := &stubProvider{reply: "bon appetit"}
	svc, userRepo, botRepo := chatFixture(t, user, bot, provider)

	result, err := svc.SendMessage(context.Background(), 1, 10, "what's for dinner?")
	require.NoError(t, err)

	assert.Equal(t, "bon appetit", result.Reply)
	assert.False(t, result.NearLimit)
	assert.Equal(t, 1, result.Usage.Messages)

	// The provider sees the personality as system prompt, then the stored
	// window, then the new message.
	require.Len(t, provider.gotMessages, 4)
	assert.Equal(t, openai.Message{Role: "system", Content: "You are a chef."}, provider.gotMessages[0])
	assert.Equal(t, "what's for dinner?", provider.gotMessages[3].Content)
	assert.Equal(t, "sk-test", provider.gotKey)
	assert.Equal(t, "gpt-3.5-turbo", provider.gotModel)

	// Both turns of the round-trip were persisted.
	saved := botRepo.savedConversations[10]
	require.Len(t, saved, 4)
	assert.Equal(t, "what's for dinner?", saved[2].Content)
	assert.Equal(t, "bon appetit", saved[3].Content)

	stored, err := userRepo.GetByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Usage.Messages)
}

func TestSendMessage_EmptyMessage(t *testing.T) {
	svc, _, _ := chatFixture(t, freshUser(models.PlanFree),
		&models.Bot{ID: 10, UserID: 1, Personality: "p", Model: "m"}, &stubProvider{})

	_, err := svc.SendMessage(context.Background(), 1, 10, "   ")
	require.Error(t, err)
	appErr := &models.AppError{}
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestSendMessage_QuotaExceeded(t *testing.T) {
	user := freshUser(models.PlanFree)
	user.Usage.Messages = 100
	provider := &stubProvider{reply: "nope"}
	svc, _, _ := chatFixture(t, user,
		&models.Bot{ID: 10, UserID: 1, Personality: "p", Model: "m"}, provider)

	_, err := svc.SendMessage(context.Background(), 1, 10, "hello")
	require.Error(t, err)
	appErr := &models.AppError{}
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "QUOTA_EXCEEDED", appErr.Code)
	assert.Zero(t, provider.calls, "provider must not be called past the quota gate")
}

func TestSendMessage_DeniedRequestStillPersistsReset(t *testing.T) {
	// Counter maxed out in a previous month: the rollover zeroes it, the
	// request goes through, and the reset is written even before the call.
	user := freshUser(models.PlanFree)
	user.Usage.Messages = 100
	user.Usage.LastMessageReset = time.Now().AddDate(0, -1, 0)
	provider := &stubProvider{reply: "hi"}
	svc, userRepo, _ := chatFixture(t, user,
		&models.Bot{ID: 10, UserID: 1, Personality: "p", Model: "m"}, provider)

	result, err := svc.SendMessage(context.Background(), 1, 10, "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Usage.Messages)
	assert.GreaterOrEqual(t, userRepo.usageWrites, 2, "reset write plus usage bump")
}

func TestSendMessage_MissingAPIKey(t *testing.T) {
	user := freshUser(models.PlanFree)
	user.OpenAIKey = ""
	svc, _, _ := chatFixture(t, user,
		&models.Bot{ID: 10, UserID: 1, Personality: "p", Model: "m"}, &stubProvider{})

	_, err := svc.SendMessage(context.Background(), 1, 10, "hello")
	require.Error(t, err)
	appErr := &models.AppError{}
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFIG_ERROR", appErr.Code)
}

func TestSendMessage_ProviderErrorDoesNotCharge(t *testing.T) {
	user := freshUser(models.PlanFree)
	provider := &stubProvider{err: models.NewProviderError("upstream exploded", errors.New("503"))}
	svc, userRepo, botRepo := chatFixture(t, user,
		&models.Bot{ID: 10, UserID: 1, Personality: "p", Model: "m"}, provider)

	_, err := svc.SendMessage(context.Background(), 1, 10, "hello")
	require.Error(t, err)

	stored, gerr := userRepo.GetByID(context.Background(), 1)
	require.NoError(t, gerr)
	assert.Zero(t, stored.Usage.Messages, "failed calls are not billed")
	assert.Empty(t, botRepo.savedConversations[10], "failed calls leave no turns behind")
}

func TestSendMessage_OtherUsersBot(t *testing.T) {
	svc, _, _ := chatFixture(t, freshUser(models.PlanFree),
		&models.Bot{ID: 10, UserID: 99, Personality: "p", Model: "m"}, &stubProvider{})

	_, err := svc.SendMessage(context.Background(), 1, 10, "hello")
	require.Error(t, err)
	appErr := &models.AppError{}
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestSendMessage_PremiumNearLimit(t *testing.T) {
	user := freshUser(models.PlanPremium)
	bot := &models.Bot{ID: 10, UserID: 1, Personality: "p", Model: "m", Conversation: turns(94)}
	svc, _, _ := chatFixture(t, user, bot, &stubProvider{reply: "r"})

	result, err := svc.SendMessage(context.Background(), 1, 10, "hello")
	require.NoError(t, err)
	assert.True(t, result.NearLimit)
}

func TestClearConversation(t *testing.T) {
	bot := &models.Bot{ID: 10, UserID: 1, Personality: "p", Model: "m", Conversation: turns(4)}
	svc, _, botRepo := chatFixture(t, freshUser(models.PlanFree), bot, &stubProvider{})

	require.NoError(t, svc.ClearConversation(context.Background(), 1, 10))
	saved, ok := botRepo.savedConversations[10]
	assert.True(t, ok)
	assert.Empty(t, saved)

	// Clearing someone else's bot is a not-found, same as reading it.
	err := svc.ClearConversation(context.Background(), 2, 10)
	require.Error(t, err)
}
