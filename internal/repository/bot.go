package repository

import (
	"context"
	"errors"

	"bothub/internal/cache"
	"bothub/internal/models"

	"gorm.io/gorm"
)

// BotRepository defines persistence operations for bots and their conversations.
type BotRepository interface {
	GetByID(ctx context.Context, id uint) (*models.Bot, error)
	GetForUser(ctx context.Context, id, userID uint) (*models.Bot, error)
	ListByUser(ctx context.Context, userID uint) ([]models.Bot, error)
	Create(ctx context.Context, bot *models.Bot) error
	Delete(ctx context.Context, id, userID uint) error
	SaveConversation(ctx context.Context, botID uint, turns []models.Turn) error
}

type botRepository struct {
	db *gorm.DB
}

// NewBotRepository returns a new BotRepository implementation.
func NewBotRepository(db *gorm.DB) BotRepository {
	return &botRepository{db: db}
}

func (r *botRepository) GetByID(ctx context.Context, id uint) (*models.Bot, error) {
	var bot models.Bot
	key := cache.BotKey(id)

	err := cache.Aside(ctx, key, &bot, cache.BotTTL, func() error {
		if err := r.db.WithContext(ctx).
			Preload("Conversation", func(db *gorm.DB) *gorm.DB {
				return db.Order("id ASC")
			}).
			First(&bot, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Bot", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &bot, nil
}

// GetForUser loads a bot and enforces ownership. A bot belonging to another
// user is reported as not found, never as forbidden, so bot IDs cannot be
// probed across accounts.
func (r *botRepository) GetForUser(ctx context.Context, id, userID uint) (*models.Bot, error) {
	bot, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if bot.UserID != userID {
		return nil, models.NewNotFoundError("Bot", id)
	}
	return bot, nil
}

func (r *botRepository) ListByUser(ctx context.Context, userID uint) ([]models.Bot, error) {
	var bots []models.Bot
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&bots).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return bots, nil
}

func (r *botRepository) Create(ctx context.Context, bot *models.Bot) error {
	if err := r.db.WithContext(ctx).Create(bot).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *botRepository) Delete(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Bot{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Bot", id)
	}
	// Turns cascade at the DB level; sqlite test schemas need the explicit sweep.
	if err := r.db.WithContext(ctx).Where("bot_id = ?", id).Delete(&models.Turn{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateBot(ctx, id)
	return nil
}

// SaveConversation replaces the stored window for a bot in one transaction.
// The window is small by construction (at most the plan's history limit), so
// rewriting it beats diffing turn by turn.
func (r *botRepository) SaveConversation(ctx context.Context, botID uint, turns []models.Turn) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("bot_id = ?", botID).Delete(&models.Turn{}).Error; err != nil {
			return err
		}
		for i := range turns {
			turns[i].ID = 0
			turns[i].BotID = botID
		}
		if len(turns) == 0 {
			return nil
		}
		return tx.Create(&turns).Error
	})
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateBot(ctx, botID)
	return nil
}
