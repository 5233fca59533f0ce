// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Plan is a subscription tier governing quotas and history depth.
type Plan string

const (
	// PlanFree is the default tier for new accounts.
	PlanFree Plan = "free"
	// PlanBasic is the entry paid tier.
	PlanBasic Plan = "basic"
	// PlanPremium is the top tier with unlimited usage.
	PlanPremium Plan = "premium"
)

// ParsePlan normalizes a plan string. Unknown values are reported so callers
// can decide between rejecting input and falling back to free-tier limits.
func ParsePlan(s string) (Plan, bool) {
	switch Plan(s) {
	case PlanFree, PlanBasic, PlanPremium:
		return Plan(s), true
	}
	return PlanFree, false
}

// PaymentMethod identifies the provider that confirmed a payment.
type PaymentMethod string

const (
	// PaymentMethodStripe marks upgrades confirmed via Stripe webhooks.
	PaymentMethodStripe PaymentMethod = "stripe"
	// PaymentMethodPayPal marks upgrades confirmed via PayPal callbacks/IPN.
	PaymentMethodPayPal PaymentMethod = "paypal"
)

// UsageCounters tracks per-period consumption. Message counters reset monthly,
// image counters daily; both resets are applied lazily on first use after the
// boundary, never by a background timer.
type UsageCounters struct {
	Messages         int       `json:"messages"`
	Images           int       `json:"images"`
	LastReset        time.Time `json:"lastReset"`
	LastMessageReset time.Time `json:"lastMessageReset"`
}

// User represents a registered account.
type User struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Name      string        `gorm:"not null" json:"name"`
	Email     string        `gorm:"uniqueIndex;not null" json:"email"`
	Password  string        `gorm:"not null" json:"-"`
	Plan      Plan          `gorm:"type:varchar(20);default:'free'" json:"plan"`
	Usage     UsageCounters `gorm:"embedded;embeddedPrefix:usage_" json:"usage"`
	OpenAIKey string        `json:"-"`

	Subscription *Subscription `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"subscription,omitempty"`
	Bots         []Bot         `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"bots,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// SubscriptionStatus represents the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	// SubscriptionStatusActive indicates a paid, current subscription.
	SubscriptionStatusActive SubscriptionStatus = "active"
	// SubscriptionStatusPending indicates an upgrade initiated but not yet confirmed.
	SubscriptionStatusPending SubscriptionStatus = "pending"
)

// Subscription records the billing state attached to a user after an upgrade.
// The pending fields exist only between "upgrade initiated" and "payment
// confirmed"; confirmation clears them.
type Subscription struct {
	ID               uint               `gorm:"primaryKey" json:"id"`
	UserID           uint               `gorm:"uniqueIndex;not null" json:"user_id"`
	Status           SubscriptionStatus `gorm:"type:varchar(20)" json:"status"`
	Plan             Plan               `gorm:"type:varchar(20)" json:"plan"`
	NextBillingDate  time.Time          `json:"nextBillingDate"`
	LastPaymentDate  time.Time          `json:"lastPaymentDate"`
	PaymentMethod    PaymentMethod      `gorm:"type:varchar(20)" json:"paymentMethod"`
	PendingSessionID string             `json:"pendingSessionId,omitempty"`
	PendingPaymentID string             `json:"pendingPaymentId,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (Subscription) TableName() string {
	return "subscriptions"
}

// Bot is a user-defined chatbot: a name, a personality used as the system
// prompt, and the model it talks to. A bot is owned exclusively by its user.
type Bot struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      uint   `gorm:"index;not null" json:"user_id"`
	Name        string `gorm:"not null" json:"name"`
	Personality string `gorm:"not null" json:"personality"`
	Model       string `gorm:"not null" json:"model"`

	Conversation []Turn `gorm:"foreignKey:BotID;constraint:OnDelete:CASCADE" json:"conversation,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Bot) TableName() string {
	return "bots"
}

// TurnRole tags a conversation turn by speaker.
type TurnRole string

const (
	// TurnRoleUser marks a turn authored by the account owner.
	TurnRoleUser TurnRole = "user"
	// TurnRoleAssistant marks a turn authored by the model.
	TurnRoleAssistant TurnRole = "assistant"
)

// Turn is one message in a bot conversation. Ordering is chronological and
// meaningful: the window of stored turns is replayed as model context.
type Turn struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	BotID     uint      `gorm:"index;not null" json:"-"`
	Role      TurnRole  `gorm:"type:varchar(16);not null" json:"role"`
	Content   string    `gorm:"not null" json:"content"`
	CreatedAt time.Time `json:"-"`
}

// TableName specifies the table name for GORM
func (Turn) TableName() string {
	return "turns"
}
