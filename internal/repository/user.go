// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"

	"bothub/internal/cache"
	"bothub/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users. Updates are keyed
// by user ID so concurrent writers never clobber each other's records.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateUsage(ctx context.Context, userID uint, usage models.UsageCounters) error
	SaveSubscription(ctx context.Context, sub *models.Subscription) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByID loads a user with their subscription. Not cached: the row carries
// credential fields hidden from JSON and mutable usage counters, so a cache
// round-trip would lose data.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Subscription").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("User", id)
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Preload("Subscription").Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewValidationError("Email already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// isUniqueConstraintError checks if a DB error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	// PostgreSQL unique violation SQLSTATE 23505
	return strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "23505")
}

// Update persists profile, settings and plan fields. The usage counter
// columns are omitted so a writer holding a stale snapshot cannot roll back
// quota bookkeeping done by UpdateUsage in between.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.WithContext(ctx).
		Omit("usage_messages", "usage_images", "usage_last_reset", "usage_last_message_reset").
		Save(user).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// UpdateUsage writes only the usage counters. The narrow update keeps
// quota bookkeeping from racing with plan or settings writes.
func (r *userRepository) UpdateUsage(ctx context.Context, userID uint, usage models.UsageCounters) error {
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).
		Updates(map[string]interface{}{
			"usage_messages":           usage.Messages,
			"usage_images":             usage.Images,
			"usage_last_reset":         usage.LastReset,
			"usage_last_message_reset": usage.LastMessageReset,
		}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, userID)
	return nil
}

// SaveSubscription upserts the subscription row for its user.
func (r *userRepository) SaveSubscription(ctx context.Context, sub *models.Subscription) error {
	var existing models.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", sub.UserID).First(&existing).Error
	switch {
	case err == nil:
		sub.ID = existing.ID
		sub.CreatedAt = existing.CreatedAt
		if err := r.db.WithContext(ctx).Save(sub).Error; err != nil {
			return models.NewInternalError(err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := r.db.WithContext(ctx).Create(sub).Error; err != nil {
			return models.NewInternalError(err)
		}
	default:
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, sub.UserID)
	return nil
}
