package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/harborbank/harbor-core/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, *atomic.Int32) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })

	var calls atomic.Int32
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/payments", func(c *fiber.Ctx) error {
		calls.Add(1)
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
	})
	return app, &calls
}

func postPayments(t *testing.T, app *fiber.App, key string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/payments", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	app, calls := setupTestApp(t)

	for i := 0; i < 2; i++ {
		if status, _ := postPayments(t, app, ""); status != fiber.StatusCreated {
			t.Fatalf("expected %d, got %d", fiber.StatusCreated, status)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("expected handler to run twice without keys, ran %d times", calls.Load())
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	app, calls := setupTestApp(t)

	status1, body1 := postPayments(t, app, "abc123")
	if status1 != fiber.StatusCreated {
		t.Fatalf("first request status %d", status1)
	}
	status2, body2 := postPayments(t, app, "abc123")
	if status2 != fiber.StatusCreated {
		t.Fatalf("replayed status %d", status2)
	}
	if body1 != body2 {
		t.Fatalf("expected identical payloads, got %q and %q", body1, body2)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls.Load())
	}
}

func TestIdempotencyDistinctKeysRunSeparately(t *testing.T) {
	app, calls := setupTestApp(t)

	postPayments(t, app, "key-1")
	postPayments(t, app, "key-2")
	if calls.Load() != 2 {
		t.Fatalf("expected two executions for distinct keys, got %d", calls.Load())
	}
}
