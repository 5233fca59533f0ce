// Package bootstrap establishes runtime dependencies for the server binary.
package bootstrap

import (
	"fmt"
	"strings"

	"bothub/internal/cache"
	"bothub/internal/config"
	"bothub/internal/database"
	"bothub/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedDemoData bool
}

// InitRuntime connects to DB and Redis and optionally seeds demo data.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	// Connect DB
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Init Redis (may result in nil client if unreachable)
	cache.InitRedis(cfg.RedisURL)
	r := cache.GetClient()

	// Demo data only ever lands in development databases.
	if opts.SeedDemoData && strings.EqualFold(cfg.Env, "development") {
		if err := seed.DemoData(db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	return db, r, nil
}
