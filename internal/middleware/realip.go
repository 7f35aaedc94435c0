package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
)

const forwardedKey contextKey = "forwarded_trusted"

// TrustedProxies - адреса обратных прокси, которым разрешено сообщать IP клиента.
type TrustedProxies []*net.IPNet

// ParseTrustedProxies разбирает список IP/CIDR через запятую. Невалидные элементы
// пропускаются и перечисляются в ошибке.
func ParseTrustedProxies(s string) (TrustedProxies, error) {
	var out TrustedProxies
	var bad []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if !strings.Contains(item, "/") {
			ip := net.ParseIP(item)
			if ip == nil {
				bad = append(bad, item)
				continue
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			out = append(out, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, n, err := net.ParseCIDR(item)
		if err != nil {
			bad = append(bad, item)
			continue
		}
		out = append(out, n)
	}
	if len(bad) > 0 {
		return out, fmt.Errorf("trusted proxies: invalid entries %s", strings.Join(bad, ", "))
	}
	return out, nil
}

func (t TrustedProxies) contains(ip net.IP) bool {
	if ip == nil {
		return false
	}
	for _, n := range t {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// RealIP подставляет в RemoteAddr адрес клиента из X-Real-Ip или X-Forwarded-For,
// но только если соединение пришло от доверенного прокси. Иначе заголовки игнорируются.
func RealIP(trusted TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !trusted.contains(net.ParseIP(remoteHost(r.RemoteAddr))) {
				next.ServeHTTP(w, r)
				return
			}
			if ip := forwardedClient(r, trusted); ip != "" {
				r.RemoteAddr = ip
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), forwardedKey, true)))
		})
	}
}

// forwardedClient: X-Real-Ip, иначе самый правый адрес X-Forwarded-For, не принадлежащий прокси.
func forwardedClient(r *http.Request, trusted TrustedProxies) string {
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-Ip"))); ip != nil {
		return ip.String()
	}
	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		ip := net.ParseIP(strings.TrimSpace(hops[i]))
		if ip == nil {
			return ""
		}
		if !trusted.contains(ip) {
			return ip.String()
		}
	}
	return ""
}

func forwardedTrusted(r *http.Request) bool {
	v, _ := r.Context().Value(forwardedKey).(bool)
	return v
}

func remoteHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
