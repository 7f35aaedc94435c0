package middleware

import (
	"net/http"
	"sync"
	"time"
)

const (
	rateLimitWindow      = time.Minute
	rateLimitMaxIP       = 200
	rateLimitMaxIdentity = 100
	// на запрос/повторную отправку кода - отдельный, более жёсткий лимит по IP
	rateLimitMaxCodeIP   = 10
)

type rateLimiter struct {
	mu     sync.Mutex
	times  map[string][]time.Time
	max    int
	window time.Duration
	now    func() time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{times: make(map[string][]time.Time), max: max, window: window, now: time.Now}
}

func (r *rateLimiter) allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	cutoff := now.Add(-r.window)
	slice := r.times[key]
	i := 0
	for _, t := range slice {
		if t.After(cutoff) {
			slice[i] = t
			i++
		}
	}
	slice = slice[:i]
	if len(slice) >= r.max {
		r.times[key] = slice
		return false
	}
	r.times[key] = append(slice, now)
	return true
}

var (
	apiRateByIP       = newRateLimiter(rateLimitMaxIP, rateLimitWindow)
	apiRateByIdentity = newRateLimiter(rateLimitMaxIdentity, rateLimitWindow)
	codeRateByIP      = newRateLimiter(rateLimitMaxCodeIP, rateLimitWindow)
)

func tooMany(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusTooManyRequests)
	_, _ = w.Write([]byte(`{"error":"too many requests"}` + "\n"))
}

// RateLimitAPI ограничивает запросы к /api/* по IP и по identity (если сессия аутентифицирована). 429 при превышении.
func RateLimitAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !apiRateByIP.allow(clientIP(r)) {
			tooMany(w)
			return
		}
		if identity := GetIdentity(r.Context()); identity != "" {
			if !apiRateByIdentity.allow("i:" + identity) {
				tooMany(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitCode защищает отправку писем с кодом от перебора адресов с одного IP.
func RateLimitCode(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !codeRateByIP.allow(clientIP(r)) {
			tooMany(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}
