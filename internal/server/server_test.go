package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"whisperwall/internal/config"
	"whisperwall/internal/models"
	"whisperwall/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAdminPassword = "admin-pass"

func testConfig() *config.Config {
	return &config.Config{
		Port:               "0",
		Env:                "test",
		AllowedOrigins:     "*",
		DBDriver:           config.DriverMemory,
		JWTSecret:          "test-secret-that-is-at-least-32-characters",
		AdminPassword:      testAdminPassword,
		AdminTokenTTL:      time.Hour,
		RateLimitMode:      config.RateLimitOff,
		RateLimitInterval:  10 * time.Second,
		RateLimitRetention: time.Hour,
		WSPingInterval:     30 * time.Second,
		WSMaxConnections:   100,
		StatsCacheTTL:      time.Second,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	s, err := NewServerWithDeps(cfg, repository.NewMemoryStore(), nil, nil)
	require.NoError(t, err)
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any, headers ...string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func adminToken(t *testing.T, s *Server) string {
	t.Helper()
	resp, body := doJSON(t, s, http.MethodPost, "/api/auth/admin", map[string]string{"password": testAdminPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Token
}

func postMessage(t *testing.T, s *Server, content string) models.MessageView {
	t.Helper()
	resp, body := doJSON(t, s, http.MethodPost, "/api/messages", map[string]string{"content": content})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var view models.MessageView
	require.NoError(t, json.Unmarshal(body, &view))
	return view
}

func listIDs(t *testing.T, s *Server, query string) []uint {
	t.Helper()
	resp, body := doJSON(t, s, http.MethodGet, "/api/messages"+query, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var views []models.MessageView
	require.NoError(t, json.Unmarshal(body, &views))
	ids := make([]uint, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	return ids
}

func decodeError(t *testing.T, body []byte) models.ErrorResponse {
	t.Helper()
	var out models.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestCreateMessage(t *testing.T) {
	s := newTestServer(t, testConfig())

	resp, body := doJSON(t, s, http.MethodPost, "/api/messages", map[string]string{"content": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(body, &raw))
	assert.Equal(t, "hello", raw["content"])
	assert.Equal(t, float64(0), raw["likes"])
	assert.Equal(t, false, raw["demoted"])
	assert.Equal(t, []any{}, raw["comments"])
	assert.Equal(t, float64(0), raw["comment_count"])
	assert.NotContains(t, raw, "origin")
	assert.NotContains(t, raw, "Origin")

	resp, body = doJSON(t, s, http.MethodPost, "/api/messages", map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, decodeError(t, body).Code)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/messages", map[string]string{"content": string(bytes.Repeat([]byte("a"), 501))})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetMessages_SortAndPagination(t *testing.T) {
	s := newTestServer(t, testConfig())

	a := postMessage(t, s, "a")
	b := postMessage(t, s, "b")
	c := postMessage(t, s, "c")

	resp, _ := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/messages/%d/like", b.ID), map[string]string{"session_token": "s1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, []uint{b.ID, a.ID, c.ID}, listIDs(t, s, "?sortBy=most_liked"))
	assert.Equal(t, []uint{b.ID, a.ID, c.ID}, listIDs(t, s, "?sort=most_liked"))
	assert.Equal(t, []uint{b.ID}, listIDs(t, s, "?sortBy=most_liked&limit=1"))
	assert.Equal(t, []uint{a.ID}, listIDs(t, s, "?sortBy=most_liked&limit=1&offset=1"))
	assert.Empty(t, listIDs(t, s, "?offset=50"))

	resp, body := doJSON(t, s, http.MethodGet, "/api/messages?sortBy=random", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, models.CodeValidation, decodeError(t, body).Code)
}

func TestGetMessage(t *testing.T) {
	s := newTestServer(t, testConfig())
	m := postMessage(t, s, "detail")

	resp, body := doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/messages/%d", m.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view models.MessageView
	require.NoError(t, json.Unmarshal(body, &view))
	assert.Equal(t, "detail", view.Content)

	resp, body = doJSON(t, s, http.MethodGet, "/api/messages/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, models.CodeNotFound, decodeError(t, body).Code)

	resp, _ = doJSON(t, s, http.MethodGet, "/api/messages/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLikeMessage(t *testing.T) {
	s := newTestServer(t, testConfig())
	m := postMessage(t, s, "likeable")
	path := fmt.Sprintf("/api/messages/%d/like", m.ID)

	resp, body := doJSON(t, s, http.MethodPost, path, map[string]string{"session_token": "s1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var liked models.Message
	require.NoError(t, json.Unmarshal(body, &liked))
	assert.Equal(t, 1, liked.Likes)

	resp, body = doJSON(t, s, http.MethodPost, path, map[string]string{"session_token": "s1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, models.CodeDuplicateAction, decodeError(t, body).Code)

	resp, _ = doJSON(t, s, http.MethodPost, path, map[string]string{"sessionToken": "s2"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/messages/999/like", map[string]string{"session_token": "s1"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestComments(t *testing.T) {
	s := newTestServer(t, testConfig())
	m := postMessage(t, s, "parent")

	resp, body := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/messages/%d/comments", m.ID), map[string]string{"content": "reply"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var comment models.Comment
	require.NoError(t, json.Unmarshal(body, &comment))
	assert.Equal(t, m.ID, comment.MessageID)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/messages/999/comments", map[string]string{"content": "orphan"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/messages/%d/comments", m.ID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []models.Comment
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	likePath := fmt.Sprintf("/api/comments/%d/like", comment.ID)
	resp, _ = doJSON(t, s, http.MethodPost, likePath, map[string]string{"session_token": "s1"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = doJSON(t, s, http.MethodPost, likePath, map[string]string{"session_token": "s1"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doJSON(t, s, http.MethodGet, "/api/messages", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var views []models.MessageView
	require.NoError(t, json.Unmarshal(body, &views))
	require.Len(t, views, 1)
	assert.Equal(t, 1, views[0].CommentCount)
	assert.Equal(t, 1, views[0].Comments[0].Likes)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, testConfig())
	m := postMessage(t, s, "moderate me")
	resp, body := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/messages/%d/comments", m.ID), map[string]string{"content": "reply"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var comment models.Comment
	require.NoError(t, json.Unmarshal(body, &comment))

	demotePath := fmt.Sprintf("/api/messages/%d/demote", m.ID)
	resp, _ = doJSON(t, s, http.MethodPost, demotePath, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = doJSON(t, s, http.MethodPost, demotePath, nil, "Authorization", "Bearer forged")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	token := adminToken(t, s)
	auth := []string{"Authorization", "Bearer " + token}

	resp, body = doJSON(t, s, http.MethodPost, demotePath, nil, auth...)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var demoted models.Message
	require.NoError(t, json.Unmarshal(body, &demoted))
	assert.True(t, demoted.Demoted)

	resp, _ = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/comments/%d", comment.ID), nil, auth...)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/messages/%d", m.ID), nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/messages/%d", m.ID), nil, auth...)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/messages/%d", m.ID), nil, auth...)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodGet, fmt.Sprintf("/api/messages/%d", m.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/auth/admin", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStats(t *testing.T) {
	s := newTestServer(t, testConfig())
	m := postMessage(t, s, "one")
	postMessage(t, s, "two")
	resp, _ := doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/messages/%d/comments", m.ID), map[string]string{"content": "c"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, s, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"total_messages":2,"total_comments":1,"total":3}`, string(body))
}

func TestLogin(t *testing.T) {
	cfg := testConfig()
	cfg.BoardPassword = "letmein"
	s := newTestServer(t, cfg)

	resp, body := doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{"password": "letmein"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Success      bool   `json:"success"`
		SessionToken string `json:"session_token"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	assert.True(t, out.Success)
	assert.NotEmpty(t, out.SessionToken)

	resp, _ = doJSON(t, s, http.MethodPost, "/api/auth/login", map[string]string{"password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRateLimitedCreate(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimitMode = config.RateLimitStore
	s := newTestServer(t, cfg)

	postMessage(t, s, "first")
	resp, body := doJSON(t, s, http.MethodPost, "/api/messages", map[string]string{"content": "second"})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, models.CodeRateLimited, decodeError(t, body).Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, testConfig())

	resp, _ := doJSON(t, s, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, s, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]any
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "healthy", out["status"])
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	s := newTestServer(t, testConfig())
	resp, _ := doJSON(t, s, http.MethodGet, "/ws", nil)
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
