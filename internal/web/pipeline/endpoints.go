// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package pipeline

import (
	"io/fs"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/toeirei/lingo/internal/identity"
	"github.com/toeirei/lingo/internal/web/routing"
)

// StaticFiles serves existing files from root for GET and HEAD. Anything
// else falls through to routing.
func StaticFiles(root fs.FS) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
			if name == "" || !fs.ValidPath(name) {
				next.ServeHTTP(w, r)
				return
			}
			info, err := fs.Stat(root, name)
			if err != nil || info.IsDir() {
				next.ServeHTTP(w, r)
				return
			}
			if st := StateFrom(r.Context()); st != nil {
				st.setRoute("static")
			}
			http.ServeFileFS(w, r, root, name)
		})
	}
}

// Authorization rejects anonymous requests to endpoints that require an
// authenticated user. Navigations are redirected to loginPath with a
// ReturnUrl; other methods get 401.
func Authorization(loginPath string) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m := routing.MatchFrom(r.Context())
			if m == nil || !m.Endpoint.RequiresAuth || identity.PrincipalFrom(r.Context()) != nil {
				next.ServeHTTP(w, r)
				return
			}
			if st := StateFrom(r.Context()); st != nil {
				st.setRoute(m.Endpoint.Name)
			}
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				http.Redirect(w, r, loginPath+"?ReturnUrl="+url.QueryEscape(r.URL.RequestURI()), http.StatusFound)
				return
			}
			w.Header().Set("WWW-Authenticate", `Cookie realm="lingo"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		})
	}
}

// Dispatch runs the selected endpoint, or notFound when routing found none.
func Dispatch(notFound http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := routing.MatchFrom(r.Context())
		if m == nil {
			notFound.ServeHTTP(w, r)
			return
		}
		if st := StateFrom(r.Context()); st != nil {
			st.setRoute(m.Endpoint.Name)
		}
		m.Endpoint.Handler.ServeHTTP(w, r)
	})
}
