package testutils

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vendorbid/internal/market"
	"vendorbid/internal/middleware"
)

// WithChiURLParams подставляет параметры пути в контекст chi запроса для тестов.
func WithChiURLParams(req *http.Request, params map[string]string) *http.Request {
	chiCtx := chi.NewRouteContext()
	for k, v := range params {
		chiCtx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, chiCtx))
}

// WithIdentity кладёт пользователя в контекст так же, как это делает RequireAuth.
func WithIdentity(req *http.Request, id market.Identity) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), id))
}
