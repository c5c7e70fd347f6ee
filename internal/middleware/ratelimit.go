package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// JoinRateLimit limits join attempts per client IP. With Redis available it
// uses a fixed INCR/EXPIRE window shared across instances and fails open on
// cache errors; without Redis it falls back to in-process token buckets.
func JoinRateLimit(cache *redis.Client, limit int, window time.Duration) fiber.Handler {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = time.Hour
	}

	var (
		mu      sync.Mutex
		buckets = make(map[string]*rate.Limiter)
	)

	return func(c *fiber.Ctx) error {
		ip := c.IP()

		if cache == nil {
			mu.Lock()
			lim, ok := buckets[ip]
			if !ok {
				lim = rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
				buckets[ip] = lim
			}
			mu.Unlock()
			if !lim.Allow() {
				return tooManyRequests(c)
			}
			return c.Next()
		}

		key := "rl:join:" + ip
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, window)
		}
		if cnt > int64(limit) {
			return tooManyRequests(c)
		}
		return c.Next()
	}
}

func tooManyRequests(c *fiber.Ctx) error {
	return c.Status(http.StatusTooManyRequests).JSON(fiber.Map{"error": "RATE_LIMITED"})
}
