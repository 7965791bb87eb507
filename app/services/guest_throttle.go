package services

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thisisfaizi/product-image-upload/utils"
	"golang.org/x/crypto/blake2b"
)

// GuestThrottle limits how often an anonymous shopper may submit an upload batch
type GuestThrottle interface {
	// Allow records a submission from ip and reports whether it is permitted.
	Allow(ctx context.Context, ip string) (bool, error)
}

// NewGuestThrottle returns a redis-backed throttle, or an in-process one when rc is nil
func NewGuestThrottle(rc *redis.Client, prefix string, window time.Duration) GuestThrottle {
	if window <= 0 {
		window = utils.GuestThrottleWindow
	}
	if rc == nil {
		return NewMemoryGuestThrottle(window)
	}
	return &RedisGuestThrottle{rc: rc, prefix: prefix, window: window}
}

// hashIP keeps raw addresses out of cache keys
func hashIP(ip string) string {
	sum := blake2b.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:16])
}

// RedisGuestThrottle uses SET NX with expiry so the window is shared by all instances
type RedisGuestThrottle struct {
	rc     *redis.Client
	prefix string
	window time.Duration
}

func (t *RedisGuestThrottle) key(ip string) string {
	return t.prefix + "guest:last:" + hashIP(ip)
}

func (t *RedisGuestThrottle) Allow(ctx context.Context, ip string) (bool, error) {
	ok, err := t.rc.SetNX(ctx, t.key(ip), utils.UTCNowUnix(), t.window).Result()
	if err != nil {
		return true, err
	}
	return ok, nil
}

// MemoryGuestThrottle is the single-process fallback
type MemoryGuestThrottle struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

func NewMemoryGuestThrottle(window time.Duration) *MemoryGuestThrottle {
	return &MemoryGuestThrottle{
		window: window,
		last:   make(map[string]time.Time),
		now:    utils.UTCNow,
	}
}

func (t *MemoryGuestThrottle) Allow(_ context.Context, ip string) (bool, error) {
	key := hashIP(ip)
	now := t.now()

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.last) > 4096 {
		for k, at := range t.last {
			if now.Sub(at) >= t.window {
				delete(t.last, k)
			}
		}
	}

	if at, ok := t.last[key]; ok && now.Sub(at) < t.window {
		return false, nil
	}
	t.last[key] = now
	return true, nil
}
