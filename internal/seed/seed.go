// Package seed provides database seeding utilities for development.
package seed

import (
	"fmt"
	"log"
	"time"

	"bothub/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const demoPassword = "Demo-Pass-2024!"

var demoPersonalities = []string{
	"You are a patient cooking instructor who explains techniques step by step and always suggests a cheap substitution.",
	"You are a grumpy but brilliant code reviewer. Short sentences. You always point out one thing done well.",
	"You are an enthusiastic travel planner who loves trains and hates airports.",
	"You are a calm meditation guide. You keep answers under four sentences.",
	"You are a pirate captain who answers every question accurately but in pirate speak.",
}

// DemoData populates the database with a handful of demo accounts and bots.
// Existing demo accounts are left untouched, so repeated startups are safe.
func DemoData(db *gorm.DB) error {
	gofakeit.Seed(42)

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	plans := []models.Plan{models.PlanFree, models.PlanBasic, models.PlanPremium}
	now := time.Now()
	created := 0

	for i := 0; i < 5; i++ {
		email := fmt.Sprintf("demo%d@bothub.local", i+1)

		var existing models.User
		err := db.Where("email = ?", email).First(&existing).Error
		if err == nil {
			continue
		}
		if err != gorm.ErrRecordNotFound {
			return fmt.Errorf("check demo user %s: %w", email, err)
		}

		user := models.User{
			Name:     gofakeit.Name(),
			Email:    email,
			Password: string(hashed),
			Plan:     plans[i%len(plans)],
			Usage: models.UsageCounters{
				Messages:         gofakeit.Number(0, 40),
				Images:           gofakeit.Number(0, 2),
				LastReset:        now,
				LastMessageReset: now,
			},
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("create demo user %s: %w", email, err)
		}

		for b := 0; b < gofakeit.Number(1, 3); b++ {
			bot := models.Bot{
				UserID:      user.ID,
				Name:        gofakeit.PetName(),
				Personality: demoPersonalities[gofakeit.Number(0, len(demoPersonalities)-1)],
				Model:       "gpt-3.5-turbo",
			}
			if err := db.Create(&bot).Error; err != nil {
				return fmt.Errorf("create demo bot for %s: %w", email, err)
			}

			turns := make([]models.Turn, 0, 6)
			for t := 0; t < gofakeit.Number(1, 3); t++ {
				turns = append(turns,
					models.Turn{BotID: bot.ID, Role: models.TurnRoleUser, Content: gofakeit.Question()},
					models.Turn{BotID: bot.ID, Role: models.TurnRoleAssistant, Content: gofakeit.Sentence(12)},
				)
			}
			if err := db.Create(&turns).Error; err != nil {
				return fmt.Errorf("create demo conversation: %w", err)
			}
		}
		created++
	}

	if created > 0 {
		log.Printf("seeded %d demo users (password %q)", created, demoPassword)
	}
	return nil
}
