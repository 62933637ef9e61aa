package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/KamiDeveloper/kamidev-portfolio/logger"
)

// RateLimitResult はレート制限判定の結果です
type RateLimitResult struct {
	Allowed    bool
	RetryAfter int // 拒否時の再試行までの秒数
}

// RateLimiter はクライアント識別子ごとのウィンドウ内リクエスト数を制限します
type RateLimiter interface {
	Allow(ctx context.Context, key string) (RateLimitResult, error)
}

// NewRateLimiter はREDIS_URLが設定されていればRedis実装を、
// なければプロセス内実装を返します。水平スケールする環境では
// Redis側を使うことでインスタンス間でカウントを共有できます。
func NewRateLimiter(redisURL string, window time.Duration, max int) (RateLimiter, error) {
	if redisURL == "" {
		logger.Logger.Info("レート制限はプロセス内ストアを使用します")
		return NewMemoryRateLimiter(window, max), nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse REDIS_URL: %w", err)
	}

	logger.Logger.Info("レート制限はRedisを使用します", zap.String("addr", opts.Addr))
	return &redisRateLimiter{
		client: redis.NewClient(opts),
		window: window,
		max:    max,
	}, nil
}

// redisRateLimiter はINCR+TTLによる固定ウィンドウ方式の実装です。
// ウィンドウの失効はRedisのTTLに委ねるため掃除処理は不要です。
type redisRateLimiter struct {
	client *redis.Client
	window time.Duration
	max    int
}

func (r *redisRateLimiter) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	redisKey := "ratelimit:contact:" + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return RateLimitResult{}, err
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return RateLimitResult{}, err
		}
	}

	if count > int64(r.max) {
		ttl, err := r.client.TTL(ctx, redisKey).Result()
		if err != nil || ttl < 0 {
			ttl = r.window
		}
		return RateLimitResult{Allowed: false, RetryAfter: int(math.Ceil(ttl.Seconds()))}, nil
	}
	return RateLimitResult{Allowed: true}, nil
}

type rateLimitEntry struct {
	count       int
	windowStart time.Time
}

// MemoryRateLimiter はプロセス内のスライディングウィンドウ実装です。
// 再起動でカウントは消え、複数インスタンス間では共有されません。
type MemoryRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rateLimitEntry
	window  time.Duration
	max     int
	now     func() time.Time
}

func NewMemoryRateLimiter(window time.Duration, max int) *MemoryRateLimiter {
	rl := &MemoryRateLimiter{
		entries: make(map[string]*rateLimitEntry),
		window:  window,
		max:     max,
		now:     time.Now,
	}
	go rl.sweep()
	return rl
}

func (r *MemoryRateLimiter) Allow(_ context.Context, key string) (RateLimitResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	entry, ok := r.entries[key]
	if !ok || now.Sub(entry.windowStart) > r.window {
		r.entries[key] = &rateLimitEntry{count: 1, windowStart: now}
		return RateLimitResult{Allowed: true}, nil
	}

	if entry.count >= r.max {
		remaining := r.window - now.Sub(entry.windowStart)
		return RateLimitResult{
			Allowed:    false,
			RetryAfter: int(math.Ceil(remaining.Seconds())),
		}, nil
	}

	entry.count++
	return RateLimitResult{Allowed: true}, nil
}

// sweep は期限切れエントリを定期的に削除します
func (r *MemoryRateLimiter) sweep() {
	ticker := time.NewTicker(r.window)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.Lock()
		now := r.now()
		for key, entry := range r.entries {
			if now.Sub(entry.windowStart) > r.window*2 {
				delete(r.entries, key)
			}
		}
		r.mu.Unlock()
	}
}
