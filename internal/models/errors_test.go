package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", NewValidationError("bad"), fiber.StatusBadRequest},
		{"not found", NewNotFoundError("Message", 3), fiber.StatusNotFound},
		{"duplicate", NewDuplicateActionError("again"), fiber.StatusConflict},
		{"transient", NewTransientStoreError(errors.New("conn refused")), fiber.StatusServiceUnavailable},
		{"unauthorized", NewUnauthorizedError("no"), fiber.StatusUnauthorized},
		{"forbidden", NewForbiddenError("no"), fiber.StatusForbidden},
		{"rate limited", NewRateLimitedError("slow down"), fiber.StatusTooManyRequests},
		{"wrapped", fmt.Errorf("outer: %w", NewNotFoundError("Comment", 9)), fiber.StatusNotFound},
		{"plain", errors.New("boom"), fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestNotFoundErrorMessage(t *testing.T) {
	err := NewNotFoundError("Message", 42)
	assert.Equal(t, "Message with ID 42 not found", err.Error())
	assert.True(t, IsCode(err, CodeNotFound))
	assert.False(t, IsCode(err, CodeValidation))
}

func TestRespondWithError(t *testing.T) {
	app := fiber.New()
	app.Get("/transient", func(c *fiber.Ctx) error {
		err := NewTransientStoreError(errors.New("dial tcp: refused"))
		return RespondWithError(c, StatusFor(err), err)
	})
	app.Get("/plain", func(c *fiber.Ctx) error {
		return RespondWithError(c, fiber.StatusTeapot, errors.New("short and stout"))
	})

	t.Run("app error hides store cause", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/transient", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

		body, _ := io.ReadAll(resp.Body)
		var out ErrorResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.Equal(t, CodeTransientStore, out.Code)
		assert.Empty(t, out.Details)
	})

	t.Run("plain error", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/plain", nil))
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()
		assert.Equal(t, fiber.StatusTeapot, resp.StatusCode)

		var out ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
		assert.Equal(t, "short and stout", out.Error)
		assert.Empty(t, out.Code)
	})
}

func TestNewMessageViewNeverNilComments(t *testing.T) {
	v := NewMessageView(&Message{ID: 1, Content: "hi"}, nil)
	require.NotNil(t, v.Comments)
	assert.Equal(t, 0, v.CommentCount)

	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"comments":[]`)
	assert.Contains(t, string(b), `"content":"hi"`)
	assert.NotContains(t, string(b), "origin")
}
