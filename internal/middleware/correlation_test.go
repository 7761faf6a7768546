package middleware_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/middleware"
)

func TestCorrelationIDPropagation(t *testing.T) {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(middleware.CorrelationIDFromContext(c.UserContext()))
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "abc-123", resp.Header.Get("X-Correlation-ID"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Request-ID", "req-9")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, "req-9", resp.Header.Get("X-Correlation-ID"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Correlation-ID", strings.Repeat("x", 200))
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	generated := resp.Header.Get("X-Correlation-ID")
	require.Len(t, generated, 36)
}

func TestRateLimitUsesEnvelope(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(3))
		return c.Next()
	})
	app.Get("/", middleware.RateLimit("test", 1, 0), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	var payload map[string]interface{}
	decodeJSON(t, resp, &payload)
	require.Equal(t, false, payload["success"])
	require.Equal(t, "rate limit exceeded", payload["message"])
}
