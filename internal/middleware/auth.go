// Package middleware содержит HTTP-обвязку сервера: аутентификацию,
// ограничение частоты запросов, журнал доступа и метрики.
package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"vendorbid/internal/auth"
	"vendorbid/internal/market"
)

type ctxKey struct{}

// TokenParser проверяет токен доступа
type TokenParser interface {
	Parse(raw string) (*auth.Claims, error)
}

func WithIdentity(ctx context.Context, id market.Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// IdentityFrom возвращает пользователя, которого положил RequireAuth
func IdentityFrom(ctx context.Context) (market.Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(market.Identity)
	return id, ok
}

// RequireAuth пропускает только запросы с действительным Bearer-токеном
func RequireAuth(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(raw) == "" {
				writeMessage(w, http.StatusUnauthorized, "No token, authorization denied")
				return
			}

			claims, err := tokens.Parse(strings.TrimSpace(raw))
			if err != nil {
				writeMessage(w, http.StatusUnauthorized, "Token is not valid")
				return
			}

			ctx := WithIdentity(r.Context(), market.Identity{UserID: claims.UserID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
