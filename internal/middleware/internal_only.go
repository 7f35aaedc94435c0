package middleware

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
)

// InternalOnly пропускает запрос с заголовком X-Internal-Secret, равным secret, либо с приватного
// или loopback IP. IP берётся из RemoteAddr, который RealIP переписывает только для доверенных прокси.
// Заголовки пересылки от недоверенного соединения означают, что запрос пришёл снаружи через прокси.
func InternalOnly(secret string) func(http.Handler) http.Handler {
	secret = strings.TrimSpace(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get("X-Internal-Secret")), []byte(secret)) == 1 {
				next.ServeHTTP(w, r)
				return
			}
			forwarded := r.Header.Get("X-Real-Ip") != "" || r.Header.Get("X-Forwarded-For") != ""
			if forwarded && !forwardedTrusted(r) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			if isPrivateIP(clientIP(r)) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

// clientIP - адрес соединения (после RealIP - адрес клиента за доверенным прокси).
func clientIP(r *http.Request) string {
	return remoteHost(r.RemoteAddr)
}

func isPrivateIP(s string) bool {
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate()
}
