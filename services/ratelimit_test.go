package services

import (
	"context"
	"testing"
	"time"
)

func newTestLimiter(window time.Duration, max int, now *time.Time) *MemoryRateLimiter {
	rl := &MemoryRateLimiter{
		entries: make(map[string]*rateLimitEntry),
		window:  window,
		max:     max,
		now:     func() time.Time { return *now },
	}
	return rl
}

func TestMemoryRateLimiter_AllowsUpToMax(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newTestLimiter(time.Minute, 3, &now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := rl.Allow(ctx, "1.2.3.4")
		if err != nil {
			t.Fatalf("Allow() error = %v", err)
		}
		if !result.Allowed {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}

	result, err := rl.Allow(ctx, "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if result.Allowed {
		t.Error("Request over the limit should be denied")
	}
	if result.RetryAfter <= 0 || result.RetryAfter > 60 {
		t.Errorf("RetryAfter = %d, want within (0, 60]", result.RetryAfter)
	}
}

func TestMemoryRateLimiter_SeparateKeys(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newTestLimiter(time.Minute, 1, &now)
	ctx := context.Background()

	if result, _ := rl.Allow(ctx, "1.1.1.1"); !result.Allowed {
		t.Error("First request for key A should be allowed")
	}
	if result, _ := rl.Allow(ctx, "2.2.2.2"); !result.Allowed {
		t.Error("First request for key B should be allowed")
	}
	if result, _ := rl.Allow(ctx, "1.1.1.1"); result.Allowed {
		t.Error("Second request for key A should be denied")
	}
}

func TestMemoryRateLimiter_WindowExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newTestLimiter(time.Minute, 1, &now)
	ctx := context.Background()

	if result, _ := rl.Allow(ctx, "1.2.3.4"); !result.Allowed {
		t.Fatal("First request should be allowed")
	}
	if result, _ := rl.Allow(ctx, "1.2.3.4"); result.Allowed {
		t.Fatal("Second request in the same window should be denied")
	}

	// ウィンドウ経過後はカウントがリセットされる
	now = now.Add(61 * time.Second)
	if result, _ := rl.Allow(ctx, "1.2.3.4"); !result.Allowed {
		t.Error("Request after the window should be allowed again")
	}
}

func TestNewRateLimiter_FallsBackToMemory(t *testing.T) {
	rl, err := NewRateLimiter("", time.Minute, 3)
	if err != nil {
		t.Fatalf("NewRateLimiter() error = %v", err)
	}
	if _, ok := rl.(*MemoryRateLimiter); !ok {
		t.Errorf("Expected in-memory limiter when REDIS_URL is empty, got %T", rl)
	}
}

func TestNewRateLimiter_BadRedisURL(t *testing.T) {
	if _, err := NewRateLimiter("not-a-url", time.Minute, 3); err == nil {
		t.Error("Expected error for invalid REDIS_URL")
	}
}
