package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/zhouzirui/mindmate/backend/internal/apperr"
)

func TestRespondAppError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperr.Validation("op", "message is required"), http.StatusBadRequest, "message is required"},
		{"authorization", apperr.Authorization("op", "Unauthorized"), http.StatusForbidden, "Unauthorized"},
		{"capability", apperr.Capability("op", errors.New("quota: secret upstream detail")), http.StatusBadGateway, "AI service unavailable"},
		{"storage", apperr.Storage("op", errors.New("pq: password leaked")), http.StatusInternalServerError, "Internal Server Error"},
		{"not found", apperr.NotFound("op", errors.New("x")), http.StatusNotFound, "not found"},
		{"unclassified", errors.New("boom"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		RespondAppError(rec, tc.err)

		if rec.Code != tc.status {
			t.Fatalf("%s: status %d, want %d", tc.name, rec.Code, tc.status)
		}
		var body map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode body: %v", tc.name, err)
		}
		if body["error"] != tc.message {
			t.Fatalf("%s: message %q, want %q", tc.name, body["error"], tc.message)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Message string `json:"message"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"message":"hi"}`))
	if err := DecodeJSON(req, &dst); err != nil || dst.Message != "hi" {
		t.Fatalf("DecodeJSON: %v %+v", err, dst)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{broken`))
	if err := DecodeJSON(req, &dst); !apperr.IsKind(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
