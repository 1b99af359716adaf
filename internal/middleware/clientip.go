package middleware

import (
	"net"
	"net/http"
	"strings"
)

// GetClientIP returns the address a request originated from, as logged with
// every request. Proxy headers are consulted in order (Forwarded,
// X-Forwarded-For, X-Real-IP); the first syntactically valid address wins and
// invalid entries are skipped. RemoteAddr is the fallback.
func GetClientIP(r *http.Request) string {
	if ip := forwardedFor(r.Header.Get("Forwarded")); ip != "" {
		return ip
	}

	for _, candidate := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := validIP(candidate); ip != "" {
			return ip
		}
	}

	if ip := validIP(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}

// forwardedFor extracts the first for= node of an RFC 7239 Forwarded header.
func forwardedFor(header string) string {
	for _, element := range strings.Split(header, ",") {
		for _, pair := range strings.Split(element, ";") {
			key, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if !ok || !strings.EqualFold(key, "for") {
				continue
			}

			value = strings.Trim(value, `"`)

			// Quoted IPv6 nodes look like [2001:db8::1]:4711.
			if host, _, err := net.SplitHostPort(value); err == nil {
				value = host
			}

			if ip := validIP(strings.Trim(value, "[]")); ip != "" {
				return ip
			}
		}
	}

	return ""
}

func validIP(s string) string {
	s = strings.TrimSpace(s)
	if net.ParseIP(s) == nil {
		return ""
	}

	return s
}
