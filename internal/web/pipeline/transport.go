// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package pipeline

import (
	"fmt"
	"net"
	"net/http"
	"time"
)

// DefaultHSTSMaxAge is used when no max-age is configured.
const DefaultHSTSMaxAge = 30 * 24 * time.Hour

// HSTS sets Strict-Transport-Security on TLS responses. Loopback hosts are
// skipped so local development does not pin the browser to HTTPS.
func HSTS(maxAge time.Duration) Stage {
	if maxAge <= 0 {
		maxAge = DefaultHSTSMaxAge
	}
	value := fmt.Sprintf("max-age=%d", int64(maxAge/time.Second))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS != nil && !isLocalHost(r.Host) {
				w.Header().Set("Strict-Transport-Security", value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HTTPSRedirection sends plain HTTP requests to the HTTPS listener with a
// 307. A port of zero or less disables it.
func HTTPSRedirection(port int) Stage {
	return func(next http.Handler) http.Handler {
		if port <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.TLS != nil {
				next.ServeHTTP(w, r)
				return
			}
			host := r.Host
			if h, _, err := net.SplitHostPort(host); err == nil {
				host = h
			}
			if ip := net.ParseIP(host); ip != nil && ip.To4() == nil {
				host = "[" + host + "]"
			}
			if port != 443 {
				host = fmt.Sprintf("%s:%d", host, port)
			}
			http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusTemporaryRedirect)
		})
	}
}
