package middleware

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func correlationApp() *fiber.App {
	app := fiber.New()
	app.Use(CorrelationID())
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString(GetCorrelationID(c) + "|" + CorrelationIDFromContext(c.UserContext()))
	})
	return app
}

func TestCorrelationIDReusesClientValue(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(CorrelationHeader, " trace-123 ")

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)

	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, "trace-123|trace-123", string(body))
	require.Equal(t, "trace-123", resp.Header.Get(CorrelationHeader))
}

func TestCorrelationIDFallsBackToRequestID(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-9")

	resp, err := correlationApp().Test(req)
	require.NoError(t, err)
	require.Equal(t, "req-9", resp.Header.Get(CorrelationHeader))
}

func TestCorrelationIDReplacesMalformedValue(t *testing.T) {
	for _, incoming := range []string{"", "has space", strings.Repeat("x", 200)} {
		req := httptest.NewRequest("GET", "/", nil)
		if incoming != "" {
			req.Header.Set(CorrelationHeader, incoming)
		}

		resp, err := correlationApp().Test(req)
		require.NoError(t, err)

		_, parseErr := uuid.Parse(resp.Header.Get(CorrelationHeader))
		require.NoError(t, parseErr, "incoming %q", incoming)
	}
}
