package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chapterhub/chapter-attendance-hub/internal/domain/attendance"
)

// ══════════════════════════════════════════════════════════════════════════════
// OPEN CHECK-IN GUARD
// ══════════════════════════════════════════════════════════════════════════════

// CheckInGuard implements the open check-in guard with Redis SET NX.
// It reserves a member's single open slot atomically, so two concurrent
// check-ins for the same member cannot both pass the open-record check.
// The value stored under the key is the record ID that holds the slot.
type CheckInGuard struct {
	cache *Cache
}

// NewCheckInGuard creates a guard on top of an existing cache connection.
func NewCheckInGuard(cache *Cache) *CheckInGuard {
	return &CheckInGuard{cache: cache}
}

func (g *CheckInGuard) key(memberID attendance.MemberID) string {
	return PrefixCheckIn + "open:" + memberID.String()
}

// TryAcquire reserves the member's open slot for the given record.
// Returns false when another record already holds the slot.
func (g *CheckInGuard) TryAcquire(ctx context.Context, memberID attendance.MemberID, recordID attendance.RecordID, ttl time.Duration) (bool, error) {
	ok, err := g.cache.Client().SetNX(ctx, g.key(memberID), recordID.String(), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("checkin guard: failed to acquire slot: %w", err)
	}
	return ok, nil
}

// Release frees the member's open slot. Releasing an unheld slot is a no-op.
func (g *CheckInGuard) Release(ctx context.Context, memberID attendance.MemberID) error {
	if err := g.cache.Client().Del(ctx, g.key(memberID)).Err(); err != nil {
		return fmt.Errorf("checkin guard: failed to release slot: %w", err)
	}
	return nil
}

// Holder returns the record ID currently holding the member's slot,
// or empty when the slot is free.
func (g *CheckInGuard) Holder(ctx context.Context, memberID attendance.MemberID) (attendance.RecordID, error) {
	val, err := g.cache.Client().Get(ctx, g.key(memberID)).Result()
	if err != nil {
		if err == redis.Nil {
			return "", nil
		}
		return "", fmt.Errorf("checkin guard: failed to read slot: %w", err)
	}
	return attendance.RecordID(val), nil
}
