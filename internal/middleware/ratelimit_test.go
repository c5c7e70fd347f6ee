package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func setupLimitedApp(t *testing.T, cache *redis.Client, limit int, window time.Duration) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Post("/join", JoinRateLimit(cache, limit, window), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func hit(t *testing.T, app *fiber.App) int {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/join", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestJoinRateLimitRedisWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := setupLimitedApp(t, cache, 3, time.Hour)

	for i := 0; i < 3; i++ {
		if status := hit(t, app); status != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, status)
		}
	}
	if status := hit(t, app); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", status)
	}

	// A new window resets the counter.
	mr.FastForward(time.Hour + time.Minute)
	if status := hit(t, app); status != fiber.StatusOK {
		t.Fatalf("expected 200 after window reset, got %d", status)
	}
}

func TestJoinRateLimitFailsOpenOnCacheErrors(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()
	mr.Close() // cache is now unreachable

	app := setupLimitedApp(t, cache, 1, time.Hour)

	for i := 0; i < 5; i++ {
		if status := hit(t, app); status != fiber.StatusOK {
			t.Fatalf("expected fail-open 200, got %d", status)
		}
	}
}

func TestJoinRateLimitLocalFallback(t *testing.T) {
	app := setupLimitedApp(t, nil, 2, time.Hour)

	for i := 0; i < 2; i++ {
		if status := hit(t, app); status != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, status)
		}
	}
	if status := hit(t, app); status != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 from local bucket, got %d", status)
	}
}
