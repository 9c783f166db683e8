package chat

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/mindmate/backend/internal/middleware"
	"github.com/zhouzirui/mindmate/backend/internal/model/chat"
	"github.com/zhouzirui/mindmate/backend/internal/model/speech"
	chatservice "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/internal/service/session"
	speechsvc "github.com/zhouzirui/mindmate/backend/internal/service/speech"
	"github.com/zhouzirui/mindmate/backend/internal/store"
)

type stubGenerator struct {
	reply string
	err   error
}

func (g stubGenerator) GenerateReply(context.Context, []chat.Message, string) (string, error) {
	return g.reply, g.err
}

type stubSynthesizer struct{}

func (stubSynthesizer) Synthesize(context.Context, speechsvc.Input) (*speech.TTSResponse, error) {
	return &speech.TTSResponse{AudioData: []byte("mp3-bytes"), Format: "mp3"}, nil
}

func setupRouter(gen stubGenerator, opts ...chatservice.Option) *chi.Mux {
	st := store.NewMemoryStore()
	chatSvc := chatservice.NewService(st, session.NewService(st, nil), gen, nil, opts...)
	handler := New(chatSvc)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(middleware.WithUserID(req.Context(), "u1")))
		})
	})
	handler.RegisterRoutes(r)
	return r
}

func postTalk(t *testing.T, r http.Handler, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	var decoded map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("decode body %q: %v", resp.Body.String(), err)
	}
	return resp, decoded
}

func TestTalk(t *testing.T) {
	r := setupRouter(stubGenerator{reply: "That's wonderful!"})

	resp, body := postTalk(t, r, "/talk", map[string]string{"message": "I feel great"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if body["aiResponse"] != "That's wonderful!" {
		t.Fatalf("unexpected aiResponse: %v", body["aiResponse"])
	}
	sentiment, ok := body["sentiment"].(map[string]any)
	if !ok || sentiment["label"] != "positive" || sentiment["score"] != 0.6 {
		t.Fatalf("unexpected sentiment: %v", body["sentiment"])
	}
	if tts, present := body["tts"]; !present || tts != nil {
		t.Fatalf("tts should be null when not requested, got %v", tts)
	}
}

func TestTalkWithSpeech(t *testing.T) {
	r := setupRouter(stubGenerator{reply: "Breathe in slowly."}, chatservice.WithSynthesizer(stubSynthesizer{}))

	resp, body := postTalk(t, r, "/talk?tts=1", map[string]string{"message": "hello"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	tts, ok := body["tts"].(map[string]any)
	if !ok {
		t.Fatalf("expected tts object, got %v", body["tts"])
	}
	if tts["format"] != "mp3" || tts["data"] != base64.StdEncoding.EncodeToString([]byte("mp3-bytes")) {
		t.Fatalf("unexpected tts payload: %v", tts)
	}
}

func TestTalkValidation(t *testing.T) {
	r := setupRouter(stubGenerator{reply: "ok"})

	resp, _ := postTalk(t, r, "/talk", map[string]string{"message": "   "})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank message, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/talk", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestTalkGeneratorFailure(t *testing.T) {
	r := setupRouter(stubGenerator{err: errors.New("quota exceeded")})

	resp, body := postTalk(t, r, "/talk", map[string]string{"message": "hello"})
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
	if body["error"] != "AI service unavailable" {
		t.Fatalf("unexpected error body: %v", body)
	}
}
