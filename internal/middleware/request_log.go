package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/airdroptracker/internal/logger"
)

// RequestLog пишет длительность запроса вместе с кодом ответа; 5xx дополнительно уходят в warn.
func RequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := wrapWriter(w)
		next.ServeHTTP(sw, r)
		logger.LogDuration("http "+r.Method+" "+r.URL.Path+" "+strconv.Itoa(sw.status), start)
		if sw.status >= http.StatusInternalServerError {
			logger.Warnf("http %s %s -> %d", r.Method, r.URL.Path, sw.status)
		}
	})
}
