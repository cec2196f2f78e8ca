package utils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func performRequest(t *testing.T, handler fiber.Handler) (*fiber.App, APIResponse, int) {
	t.Helper()

	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var envelope APIResponse
	require.NoError(t, json.Unmarshal(body, &envelope))
	return app, envelope, resp.StatusCode
}

func TestSendSuccessDefaultsMessage(t *testing.T) {
	_, envelope, status := performRequest(t, func(c *fiber.Ctx) error {
		return SendSuccess(c, "", map[string]string{"k": "v"})
	})

	require.Equal(t, fiber.StatusOK, status)
	require.True(t, envelope.Success)
	require.Equal(t, "success", envelope.Message)
	require.NotNil(t, envelope.Data)
}

func TestSendErrorOmitsData(t *testing.T) {
	_, envelope, status := performRequest(t, func(c *fiber.Ctx) error {
		return SendError(c, fiber.StatusNotFound, "application not found")
	})

	require.Equal(t, fiber.StatusNotFound, status)
	require.False(t, envelope.Success)
	require.Equal(t, "application not found", envelope.Message)
	require.Nil(t, envelope.Data)
}
