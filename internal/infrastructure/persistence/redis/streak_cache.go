package redis

import (
	"context"
	"errors"
	"log/slog"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK CACHE
// ══════════════════════════════════════════════════════════════════════════════

// StreakCache caches streak summaries per member. Entries expire after
// TTLStreakCache; a slightly stale streak is acceptable for a read that only
// feeds a profile view.
type StreakCache struct {
	cache  *Cache
	logger *slog.Logger
}

// NewStreakCache creates a streak cache on top of an existing connection.
func NewStreakCache(cache *Cache, logger *slog.Logger) *StreakCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreakCache{cache: cache, logger: logger}
}

func (c *StreakCache) key(memberID string) string {
	return PrefixStreak + memberID
}

// Get returns the cached streak for a member. Any failure is a miss.
func (c *StreakCache) Get(ctx context.Context, memberID string) (attendance.Streak, bool) {
	var streak attendance.Streak
	err := c.cache.Get(ctx, c.key(memberID), &streak)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.logger.Warn("streak cache read failed", "member_id", memberID, "error", err)
		}
		return attendance.Streak{}, false
	}
	return streak, true
}

// Set stores a member's streak summary. Failures are logged and dropped.
func (c *StreakCache) Set(ctx context.Context, memberID string, streak attendance.Streak) {
	if err := c.cache.Set(ctx, c.key(memberID), streak, TTLStreakCache); err != nil {
		c.logger.Warn("streak cache write failed", "member_id", memberID, "error", err)
	}
}
