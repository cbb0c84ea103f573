// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/toeirei/lingo/internal/logging"
)

// Exception describes the failure that triggered re-execution of the error
// path. Only the error page sees it.
type Exception struct {
	Err          error
	OriginalPath string
	RequestID    string
}

type exceptionKey struct{}

// ExceptionFrom returns the exception being handled, or nil.
func ExceptionFrom(ctx context.Context) *Exception {
	e, _ := ctx.Value(exceptionKey{}).(*Exception)
	return e
}

// serveCapturing runs next and returns the error reported through Fail or
// recovered from a panic.
func serveCapturing(next http.Handler, w http.ResponseWriter, r *http.Request) (stack []byte, err error) {
	st := StateFrom(r.Context())
	defer func() {
		v := recover()
		if v == nil {
			return
		}
		if v == http.ErrAbortHandler {
			panic(v)
		}
		if st != nil {
			_, _ = st.takeErr()
		}
		if e, ok := v.(error); ok {
			err = fmt.Errorf("panic: %w", e)
		} else {
			err = fmt.Errorf("panic: %v", v)
		}
		stack = debug.Stack()
	}()
	next.ServeHTTP(w, r)
	if st != nil {
		stack, err = st.takeErr()
	}
	return stack, err
}

// abortStarted handles an error that surfaced after the response began.
// Nothing sensible can be written, so the connection is dropped.
func abortStarted(r *http.Request, err error) {
	logging.With("id", requestID(r), "path", r.URL.Path).Errorf("unhandled error after response started: %v", err)
	panic(http.ErrAbortHandler)
}

func resetHeaders(h http.Header) {
	for _, k := range []string{"Content-Type", "Content-Length", "Content-Disposition", "Location", "Set-Cookie", "Last-Modified", "Etag"} {
		h.Del(k)
	}
	h.Set("Cache-Control", "no-cache, no-store")
}

// ExceptionHandler re-executes errorPath as a GET when the rest of the
// pipeline fails, forcing status 500. The error page gets no detail beyond
// the request id.
func ExceptionHandler(errorPath string) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			_, err := serveCapturing(next, sw, r)
			if err == nil {
				return
			}
			if sw.Started() {
				abortStarted(r, err)
			}
			logging.With("id", requestID(r), "method", r.Method, "path", r.URL.Path).Errorf("unhandled error: %v", err)

			ex := &Exception{Err: err, OriginalPath: r.URL.Path, RequestID: requestID(r)}
			re := r.Clone(context.WithValue(r.Context(), exceptionKey{}, ex))
			re.Method = http.MethodGet
			re.URL.Path = errorPath
			re.URL.RawPath = ""
			re.URL.RawQuery = ""
			re.RequestURI = errorPath
			re.Body = http.NoBody
			re.ContentLength = 0
			resetHeaders(w.Header())

			fw := &fixedStatusWriter{ResponseWriter: w, status: http.StatusInternalServerError}
			if _, err2 := serveCapturing(next, fw, re); err2 != nil {
				logging.Errorf("error page %s failed: %v", errorPath, err2)
				if !fw.started {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				}
				return
			}
			if !fw.started {
				fw.WriteHeader(http.StatusInternalServerError)
			}
		})
	}
}

var devPage = template.Must(template.New("dev").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="utf-8"><title>Unhandled error</title>
<style>body{font-family:sans-serif;margin:2em}pre{background:#f4f4f4;padding:1em;overflow:auto}</style></head>
<body>
<h1>An unhandled error occurred while processing the request.</h1>
<p><strong>{{.Method}} {{.Path}}</strong> (request {{.RequestID}})</p>
<pre id="error">{{.Error}}</pre>
{{if .Pending}}<h2>Pending database migrations</h2>
<ul>{{range .Pending}}<li>{{.}}</li>{{end}}</ul>
<form method="post" action="/ApplyDatabaseMigrations"><button type="submit">Apply migrations</button></form>{{end}}
{{if .Stack}}<h2>Stack</h2><pre id="stack">{{.Stack}}</pre>{{end}}
</body>
</html>
`))

// DeveloperExceptionPage renders the error, its stack and any pending
// migrations. Development only.
func DeveloperExceptionPage(m MigrationRunner) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			stack, err := serveCapturing(next, sw, r)
			if err == nil {
				return
			}
			if sw.Started() {
				abortStarted(r, err)
			}
			logging.With("id", requestID(r), "method", r.Method, "path", r.URL.Path).Errorf("unhandled error: %v", err)

			var pending []string
			if m != nil {
				if p, perr := m.PendingMigrations(r.Context()); perr == nil {
					pending = p
				} else {
					logging.Warnf("list pending migrations: %v", perr)
				}
			}
			resetHeaders(w.Header())
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.WriteHeader(http.StatusInternalServerError)
			_ = devPage.Execute(w, map[string]any{
				"Method":    r.Method,
				"Path":      r.URL.Path,
				"RequestID": requestID(r),
				"Error":     err.Error(),
				"Stack":     string(stack),
				"Pending":   pending,
			})
		})
	}
}

// MigrationsEndpoint applies pending migrations on POST
// /ApplyDatabaseMigrations. Development only.
func MigrationsEndpoint(m MigrationRunner) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || !strings.EqualFold(strings.TrimSuffix(r.URL.Path, "/"), "/ApplyDatabaseMigrations") {
				next.ServeHTTP(w, r)
				return
			}
			if st := StateFrom(r.Context()); st != nil {
				st.setRoute("migrations")
			}
			applied, err := m.Migrate(r.Context())
			if err != nil {
				logging.Errorf("apply migrations: %v", err)
				http.Error(w, "migrations failed: "+err.Error(), http.StatusInternalServerError)
				return
			}
			logging.Infof("applied %d migration(s) from the developer endpoint", len(applied))
			w.WriteHeader(http.StatusNoContent)
		})
	}
}
