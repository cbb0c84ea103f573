// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package controllers holds the Home controller, the Identity account pages
// and the shared rendering helpers they use.
package controllers

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/toeirei/lingo/internal/i18n"
	"github.com/toeirei/lingo/internal/identity"
	"github.com/toeirei/lingo/internal/localization"
	"github.com/toeirei/lingo/internal/validation"
	"github.com/toeirei/lingo/internal/web/pipeline"
	"github.com/toeirei/lingo/internal/web/routing"
	"github.com/toeirei/lingo/internal/web/views"
)

// Deps are the services handlers render and act with.
type Deps struct {
	Views        *views.Engine
	Catalog      *i18n.Catalog
	Validator    *validation.Validator
	Identity     *identity.Manager
	Email        identity.EmailSender
	Localization localization.Options
	Development  bool
	// DisplayConfirmationLink shows the confirmation link on the
	// registration confirmation page when no real mail transport exists.
	// It only takes effect in development: the page is anonymous and keyed
	// by email alone.
	DisplayConfirmationLink bool
	Now                     func() time.Time
}

func (d *Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func requestCulture(r *http.Request) localization.RequestCulture {
	return localization.FromContext(r.Context()).RequestCulture
}

func (d *Deps) t(r *http.Request, id string, args ...any) string {
	return d.Catalog.T(requestCulture(r).UICulture, id, args...)
}

// data prepares the view data common to every page.
func (d *Deps) data(r *http.Request, titleID string, model any) views.Data {
	vd := views.Data{
		Culture:     requestCulture(r),
		User:        identity.PrincipalFrom(r.Context()),
		Model:       model,
		RequestPath: r.URL.RequestURI(),
		Development: d.Development,
	}
	if titleID != "" {
		vd.Title = d.t(r, titleID)
	}
	if st := pipeline.StateFrom(r.Context()); st != nil {
		vd.RequestID = st.ID
	}
	return vd
}

func (d *Deps) validate(r *http.Request, form any) validation.FieldErrors {
	return d.Validator.Validate(requestCulture(r).UICulture, form)
}

// write renders into a buffer first so a template failure can still be
// reported as an unhandled error.
func write(w http.ResponseWriter, r *http.Request, status int, render func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		pipeline.Fail(r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// view renders the current controller's view.
func (d *Deps) view(w http.ResponseWriter, r *http.Request, status int, name string, vd views.Data) {
	controller := "Shared"
	if m := routing.MatchFrom(r.Context()); m != nil && m.Endpoint.Controller != "" {
		controller = m.Endpoint.Controller
	}
	write(w, r, status, func(b *bytes.Buffer) error { return d.Views.RenderView(b, controller, name, vd) })
}

// page renders the page at pagePath.
func (d *Deps) page(w http.ResponseWriter, r *http.Request, status int, pagePath string, vd views.Data) {
	write(w, r, status, func(b *bytes.Buffer) error { return d.Views.RenderPage(b, pagePath, vd) })
}

// NotFound renders the shared 404 view.
func (d *Deps) NotFound(w http.ResponseWriter, r *http.Request) {
	vd := d.data(r, "Status.NotFound", nil)
	write(w, r, http.StatusNotFound, func(b *bytes.Buffer) error {
		return d.Views.RenderView(b, "Shared", "NotFound", vd)
	})
}

// isLocalURL accepts only same-origin absolute paths.
func isLocalURL(u string) bool {
	if u == "" || u[0] != '/' {
		return false
	}
	if len(u) > 1 && (u[1] == '/' || u[1] == '\\') {
		return false
	}
	return !strings.ContainsAny(u, "\r\n")
}

// localRedirect redirects to target when it is local, to "/" otherwise.
func localRedirect(w http.ResponseWriter, r *http.Request, target string) {
	if !isLocalURL(target) {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func returnURL(r *http.Request) string {
	for _, k := range []string{"ReturnUrl", "returnUrl"} {
		if v := r.URL.Query().Get(k); v != "" {
			return v
		}
		if v := r.PostFormValue(k); v != "" {
			return v
		}
	}
	return "/"
}

func absoluteURL(r *http.Request, p string, q url.Values) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	u := url.URL{Scheme: scheme, Host: r.Host, Path: p, RawQuery: q.Encode()}
	return u.String()
}

// supportedCulture resolves a picker value against the supported UI list.
func (d *Deps) supportedCulture(value string) (language.Tag, bool) {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return language.Und, false
	}
	for _, t := range d.Localization.SupportedUICultures {
		if t == tag {
			return t, true
		}
	}
	return language.Und, false
}
