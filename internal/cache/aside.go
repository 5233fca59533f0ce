package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Aside implements the cache-aside pattern: try the cache, on miss run fill
// and store the result. Cache failures are never surfaced; the caller only
// sees errors from fill. Callers must not cache values whose struct omits
// fields from JSON, a round-trip would lose them.
func Aside(ctx context.Context, key string, dest interface{}, ttl time.Duration, fill func() error) error {
	if client != nil {
		if data, err := client.Get(ctx, key).Bytes(); err == nil {
			if json.Unmarshal(data, dest) == nil {
				return nil
			}
		}
	}

	if err := fill(); err != nil {
		return err
	}

	if client != nil {
		if data, err := json.Marshal(dest); err == nil {
			client.Set(ctx, key, data, ttl)
		}
	}
	return nil
}
