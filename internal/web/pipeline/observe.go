// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package pipeline

import (
	"net/http"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzhttp"

	"github.com/toeirei/lingo/internal/logging"
	"github.com/toeirei/lingo/internal/metrics"
)

func routeLabel(r *http.Request) string {
	if st := StateFrom(r.Context()); st != nil && st.Route() != "" {
		return st.Route()
	}
	return "unmatched"
}

func requestID(r *http.Request) string {
	if st := StateFrom(r.Context()); st != nil {
		return st.ID
	}
	return ""
}

// Logging writes one line per request once the response is complete.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		l := logging.With(
			"id", requestID(r),
			"method", r.Method,
			"path", r.URL.Path,
			"status", sw.Status(),
			"size", sw.size,
			"route", routeLabel(r),
			"culture", w.Header().Get("Content-Language"),
			"duration", time.Since(start).Round(time.Microsecond),
		)
		switch {
		case sw.Status() >= 500:
			l.Error("request")
		case sw.Status() >= 400:
			l.Warn("request")
		default:
			l.Info("request")
		}
	})
}

// Metrics records request counts and latency per endpoint.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)
		route := routeLabel(r)
		metrics.HTTPRequests.WithLabelValues(route, metrics.MethodLabel(r.Method), strconv.Itoa(sw.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Compression gzips responses for clients that accept it.
func Compression(next http.Handler) http.Handler {
	return gzhttp.GzipHandler(next)
}

// SecurityHeaders sets the baseline response headers.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
