package middleware

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	kitmetrics "github.com/go-kit/kit/metrics"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"vendorbid/internal/auth"
	"vendorbid/internal/market"
	"vendorbid/internal/metrics"
	"vendorbid/models"
)

type stubParser struct {
	claims *auth.Claims
	err    error
	got    string
}

func (p *stubParser) Parse(raw string) (*auth.Claims, error) {
	p.got = raw
	return p.claims, p.err
}

func TestRequireAuth(t *testing.T) {
	testCases := map[string]struct {
		header  string
		parser  *stubParser
		status  int
		message string
	}{
		"missing header": {
			parser: &stubParser{}, status: http.StatusUnauthorized,
			message: "No token, authorization denied",
		},
		"wrong scheme": {
			header: "Basic abc", parser: &stubParser{}, status: http.StatusUnauthorized,
			message: "No token, authorization denied",
		},
		"invalid token": {
			header: "Bearer bad", parser: &stubParser{err: auth.ErrInvalidToken}, status: http.StatusUnauthorized,
			message: "Token is not valid",
		},
		"valid token": {
			header: "Bearer good",
			parser: &stubParser{claims: &auth.Claims{UserID: 7, Role: models.RoleSupplier}},
			status: http.StatusOK,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			var seen market.Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, ok := IdentityFrom(r.Context())
				require.True(t, ok)
				seen = id
			})

			req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			RequireAuth(tc.parser)(next).ServeHTTP(rr, req)

			require.Equal(t, tc.status, rr.Code)
			if tc.message != "" {
				require.JSONEq(t, `{"message":"`+tc.message+`"}`, rr.Body.String())
				return
			}
			require.Equal(t, "good", tc.parser.got)
			require.Equal(t, market.Identity{UserID: 7, Role: models.RoleSupplier}, seen)
		})
	}
}

// fakeScripter выполняет скрипт фиксированного окна в памяти
type fakeScripter struct {
	redis.Scripter

	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (f *fakeScripter) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return redis.NewCmdResult(nil, f.err)
	}
	window := args[0].(int64)
	limit := int64(args[1].(int))
	f.counts[keys[0]]++
	count := f.counts[keys[0]]
	allowed := int64(0)
	if count <= limit {
		allowed = 1
	}
	return redis.NewCmdResult([]interface{}{allowed, count, window}, nil)
}

func TestRateLimiter(t *testing.T) {
	rdb := &fakeScripter{counts: map[string]int64{}}
	m := metrics.NopMetrics()
	limiter := NewRateLimiter(rdb, "auth", 2, time.Minute, m, zerolog.Nop())
	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	do := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	require.Equal(t, http.StatusOK, do("10.0.0.1:5000").Code)
	second := do("10.0.0.1:5001")
	require.Equal(t, http.StatusOK, second.Code)
	require.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	blocked := do("10.0.0.1:5002")
	require.Equal(t, http.StatusTooManyRequests, blocked.Code)
	require.Equal(t, "60", blocked.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, do("10.0.0.2:5000").Code)
	require.Contains(t, rdb.counts, "ratelimit:auth:10.0.0.1")
}

func TestRateLimiterFailsOpen(t *testing.T) {
	rdb := &fakeScripter{counts: map[string]int64{}, err: errors.New("connection refused")}
	limiter := NewRateLimiter(rdb, "auth", 1, time.Minute, metrics.NopMetrics(), zerolog.Nop())
	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/auth/login", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
}

func TestNilRateLimiterPassesThrough(t *testing.T) {
	var limiter *RateLimiter
	called := false
	h := limiter.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.True(t, called)
}

type recordingCounter struct {
	mu     *sync.Mutex
	labels *[][]string
	lvs    []string
}

func (c recordingCounter) With(labelValues ...string) kitmetrics.Counter {
	return recordingCounter{mu: c.mu, labels: c.labels, lvs: append(append([]string{}, c.lvs...), labelValues...)}
}

func (c recordingCounter) Add(float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	*c.labels = append(*c.labels, c.lvs)
}

func TestInstrumentUsesRoutePattern(t *testing.T) {
	var labels [][]string
	m := metrics.NopMetrics()
	m.Requests = recordingCounter{mu: &sync.Mutex{}, labels: &labels}

	r := chi.NewRouter()
	r.Use(Instrument(m))
	r.Get("/api/bids/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/bids/42", nil))

	require.Equal(t, [][]string{{"method", "GET", "route", "/api/bids/{id}", "code", "404"}}, labels)
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	h := AccessLog(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/requirements", nil))

	require.Contains(t, buf.String(), `"status":201`)
	require.Contains(t, buf.String(), `"method":"POST"`)
	require.Contains(t, buf.String(), `"url":"/api/requirements"`)
}
