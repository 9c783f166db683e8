package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zhouzirui/mindmate/backend/pkg/utils"
)

type userIDKey struct{}

// WithUserID stores the authenticated user id in the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

// UserID returns the authenticated user id placed by Auth.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok && id != ""
}

// Auth verifies an HS256 bearer token and exposes its "id" claim through
// UserID. Requests without a valid token get 401.
func Auth(secret string, opts ...jwt.ParserOption) func(http.Handler) http.Handler {
	key := []byte(secret)
	parserOpts := append([]jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}, opts...)
	parser := jwt.NewParser(parserOpts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok || len(key) == 0 {
				utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			userID, err := parseUserID(parser, key, raw)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "Invalid token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func parseUserID(parser *jwt.Parser, key []byte, raw string) (string, error) {
	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return key, nil
	}); err != nil {
		return "", err
	}

	// id 可能是字符串，也可能是数据库自增的数字。
	switch id := claims["id"].(type) {
	case string:
		if strings.TrimSpace(id) == "" {
			return "", errors.New("empty id claim")
		}
		return id, nil
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	case nil:
		return "", errors.New("missing id claim")
	default:
		return "", fmt.Errorf("unsupported id claim type %T", id)
	}
}
