package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	middlewarePkg "github.com/zhouzirui/mindmate/backend/internal/middleware"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	moodService "github.com/zhouzirui/mindmate/backend/internal/service/mood"
	sessionService "github.com/zhouzirui/mindmate/backend/internal/service/session"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

const secret = "router-secret"

type replyGenerator struct{}

func (replyGenerator) GenerateReply(context.Context, []chat.Message, string) (string, error) {
	return "Tell me more.", nil
}

type brokenPinger struct{}

func (brokenPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestRouter(pinger Pinger) http.Handler {
	st := store.NewMemoryStore()
	sessions := sessionService.NewService(st, nil)
	if pinger == nil {
		pinger = st
	}
	return NewRouter(Dependencies{
		Storage:  pinger,
		Sessions: sessions,
		Chat:     chatService.NewService(st, sessions, replyGenerator{}, nil),
		Mood:     moodService.NewService(st, nil),
		Auth:     middlewarePkg.Auth(secret),
	})
}

func bearer(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"id": userID}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return "Bearer " + token
}

func TestHealth(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	newTestRouter(brokenPinger{}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestRouter(nil)
	for _, route := range []struct{ method, path string }{
		{http.MethodPost, "/api/session/start"},
		{http.MethodGet, "/api/session/stats"},
		{http.MethodPost, "/api/talk"},
		{http.MethodGet, "/api/mood-trends/u1"},
	} {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(route.method, route.path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route.method, route.path, resp.Code)
		}
	}
}

func TestTalkThenTrends(t *testing.T) {
	r := newTestRouter(nil)
	auth := bearer(t, "u1")

	req := httptest.NewRequest(http.MethodPost, "/api/talk", bytes.NewBufferString(`{"message":"I am happy"}`))
	req.Header.Set("Authorization", auth)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("talk: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/mood-trends/u1", nil)
	req.Header.Set("Authorization", auth)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("trends: expected 200, got %d", resp.Code)
	}
	var body struct {
		Sessions []struct {
			Data []map[string]any `json:"data"`
		} `json:"sessions"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Sessions) != 1 || len(body.Sessions[0].Data) != 1 {
		t.Fatalf("expected one session with one point: %s", resp.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/mood-trends/u2", nil)
	req.Header.Set("Authorization", auth)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("foreign trends: expected 403, got %d", resp.Code)
	}
}

func TestPreflightSkipsAuth(t *testing.T) {
	resp := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(resp, httptest.NewRequest(http.MethodOptions, "/api/talk", nil))
	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.Code)
	}
}
