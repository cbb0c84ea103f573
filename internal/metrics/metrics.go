// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector of the process. A dedicated registry keeps
// tests independent of the global default one.
var Registry = prometheus.NewRegistry()

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lingo",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "code"})

	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "lingo",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})

	RequestCultures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lingo",
		Name:      "request_cultures_total",
		Help:      "Negotiated UI cultures by provider that supplied them.",
	}, []string{"culture", "provider"})

	SignIns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lingo",
		Name:      "identity_sign_ins_total",
		Help:      "Password sign-in attempts by result.",
	}, []string{"result"})

	Registrations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "lingo",
		Name:      "identity_registrations_total",
		Help:      "Accounts registered.",
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequests,
		HTTPDuration,
		RequestCultures,
		SignIns,
		Registrations,
	)
}

// MethodLabel maps a request method onto a fixed label set so clients
// cannot create series with made-up methods.
func MethodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions:
		return method
	default:
		return "other"
	}
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
