// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package pipeline assembles the ordered middleware chain every request
// passes through before reaching a controller action or page.
package pipeline

import (
	"context"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/toeirei/lingo/internal/localization"
	"github.com/toeirei/lingo/internal/web/routing"
)

// Stage wraps the remainder of the pipeline.
type Stage func(http.Handler) http.Handler

type namedStage struct {
	name  string
	stage Stage
}

// Pipeline is an ordered list of stages. The first stage added sees the
// request first.
type Pipeline struct {
	stages []namedStage
}

// Use appends a stage.
func (p *Pipeline) Use(name string, s Stage) *Pipeline {
	p.stages = append(p.stages, namedStage{name: name, stage: s})
	return p
}

// Stages returns the stage names in request order.
func (p *Pipeline) Stages() []string {
	out := make([]string, len(p.stages))
	for i, s := range p.stages {
		out[i] = s.name
	}
	return out
}

// Then terminates the pipeline with h.
func (p *Pipeline) Then(h http.Handler) http.Handler {
	for i := len(p.stages) - 1; i >= 0; i-- {
		h = p.stages[i].stage(h)
	}
	return h
}

// MigrationRunner is the storage surface used by the development
// migrations endpoint and exception page. *db.Store implements it.
type MigrationRunner interface {
	PendingMigrations(ctx context.Context) ([]string, error)
	Migrate(ctx context.Context) ([]string, error)
}

// Options wires the stages to the rest of the application.
type Options struct {
	Development bool
	// ErrorPath is re-executed for unhandled errors outside development.
	ErrorPath string
	HSTSMaxAge time.Duration
	// HTTPSPort enables redirection when greater than zero.
	HTTPSPort    int
	Localization localization.Options
	WebRoot      fs.FS
	Router       *routing.Router
	// Authenticate loads the principal from the request (session cookie).
	Authenticate Stage
	// LoginPath receives challenged navigations, default
	// /Identity/Account/Login.
	LoginPath string
	// Migrations backs POST /ApplyDatabaseMigrations in development.
	Migrations MigrationRunner
	// NotFound renders unmatched requests.
	NotFound http.Handler
	Compress bool
}

// New builds the request pipeline:
//
//	request state, logging, metrics, compression, security headers,
//	developer exception page + migrations endpoint (development) or
//	exception handler + HSTS (otherwise),
//	request localization, HTTPS redirection, same-origin check,
//	static files, routing,
//	authentication, authorization, dispatch.
func New(o Options) (http.Handler, *Pipeline) {
	p := &Pipeline{}
	p.Use("RequestState", RequestState)
	p.Use("Logging", Logging)
	p.Use("Metrics", Metrics)
	if o.Compress {
		p.Use("Compression", Compression)
	}
	p.Use("SecurityHeaders", SecurityHeaders)

	if o.Development {
		p.Use("DeveloperExceptionPage", DeveloperExceptionPage(o.Migrations))
		if o.Migrations != nil {
			p.Use("MigrationsEndpoint", MigrationsEndpoint(o.Migrations))
		}
	} else {
		errorPath := o.ErrorPath
		if errorPath == "" {
			errorPath = "/Home/Error"
		}
		p.Use("ExceptionHandler", ExceptionHandler(errorPath))
		p.Use("HSTS", HSTS(o.HSTSMaxAge))
	}

	p.Use("RequestLocalization", localization.Middleware(o.Localization))
	p.Use("HTTPSRedirection", HTTPSRedirection(o.HTTPSPort))
	p.Use("SameOrigin", SameOrigin)
	if o.WebRoot != nil {
		p.Use("StaticFiles", StaticFiles(o.WebRoot))
	}
	p.Use("Routing", o.Router.Middleware)
	if o.Authenticate != nil {
		p.Use("Authentication", o.Authenticate)
	}
	loginPath := o.LoginPath
	if loginPath == "" {
		loginPath = "/Identity/Account/Login"
	}
	p.Use("Authorization", Authorization(loginPath))

	notFound := o.NotFound
	if notFound == nil {
		notFound = http.NotFoundHandler()
	}
	return p.Then(Dispatch(notFound)), p
}

// isLocalHost reports whether host names the loopback interface.
func isLocalHost(host string) bool {
	h := strings.ToLower(host)
	if i := strings.LastIndex(h, ":"); i > -1 && !strings.HasSuffix(h, "]") {
		h = h[:i]
	}
	h = strings.Trim(h, "[]")
	return h == "localhost" || h == "127.0.0.1" || h == "::1"
}
