package middleware

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"vendorbid/internal/metrics"
)

// Фиксированное окно: первый запрос в окне ставит срок жизни ключа
var fixedWindow = redis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	if count == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	local ttl = redis.call('PTTL', KEYS[1])
	local allowed = 0
	if count <= tonumber(ARGV[2]) then
		allowed = 1
	end
	return { allowed, count, ttl }
`)

// RateLimiter ограничивает число запросов с одного IP в окне времени.
// Нулевой *RateLimiter ничего не ограничивает.
type RateLimiter struct {
	rdb     redis.Scripter
	prefix  string
	limit   int
	window  time.Duration
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewRateLimiter(rdb redis.Scripter, prefix string, limit int, window time.Duration, m *metrics.Metrics, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{rdb: rdb, prefix: prefix, limit: limit, window: window, metrics: m, logger: logger}
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	if l == nil || l.limit <= 0 {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := fmt.Sprintf("ratelimit:%s:%s", l.prefix, clientIP(r))
		vals, err := fixedWindow.Run(r.Context(), l.rdb, []string{key}, l.window.Milliseconds(), l.limit).Int64Slice()
		if err != nil || len(vals) != 3 {
			// Redis недоступен: запрос пропускается
			l.logger.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable")
			next.ServeHTTP(w, r)
			return
		}
		allowed, count, ttl := vals[0] == 1, vals[1], vals[2]

		remaining := int64(l.limit) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(l.limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			secs := int(math.Ceil(float64(ttl) / 1000.0))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			l.metrics.RateLimited.Add(1)
			writeMessage(w, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP берёт адрес из RemoteAddr; chi RealIP уже подставил X-Forwarded-For
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
