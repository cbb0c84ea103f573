// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package localization negotiates the culture of each request. Providers are
// consulted in order (query string, cookie, Accept-Language); the first one
// yielding a supported culture wins, otherwise the default applies.
// Formatting culture and UI culture are resolved independently against their
// own supported lists.
package localization

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/toeirei/lingo/internal/metrics"
)

// RequestCulture pairs the formatting culture (numbers, dates) with the UI
// culture (resources, views).
type RequestCulture struct {
	Culture   language.Tag
	UICulture language.Tag
}

// NewRequestCulture returns a RequestCulture using tag for both axes.
func NewRequestCulture(tag language.Tag) RequestCulture {
	return RequestCulture{Culture: tag, UICulture: tag}
}

func (rc RequestCulture) String() string {
	return fmt.Sprintf("c=%s|uic=%s", rc.Culture, rc.UICulture)
}

// Options configures request localization.
type Options struct {
	DefaultRequestCulture RequestCulture
	SupportedCultures     []language.Tag
	SupportedUICultures   []language.Tag
	// FallBackToParentCultures lets "fr-CA" select a supported "fr".
	FallBackToParentCultures bool
	Providers                []Provider
}

var ErrDefaultNotSupported = errors.New("default culture is not in the supported list")

// NewOptions builds options for a default culture and a supported list used
// for both axes, with the standard provider chain.
func NewOptions(defaultCulture string, supported ...string) (Options, error) {
	def, err := language.Parse(defaultCulture)
	if err != nil {
		return Options{}, fmt.Errorf("default culture %q: %w", defaultCulture, err)
	}
	tags := make([]language.Tag, 0, len(supported))
	for _, s := range supported {
		tag, err := language.Parse(strings.TrimSpace(s))
		if err != nil {
			return Options{}, fmt.Errorf("supported culture %q: %w", s, err)
		}
		tags = append(tags, tag)
	}
	opts := Options{
		DefaultRequestCulture:    NewRequestCulture(def),
		SupportedCultures:        tags,
		SupportedUICultures:      tags,
		FallBackToParentCultures: true,
		Providers:                DefaultProviders(),
	}
	return opts, opts.Validate()
}

// Validate checks that the default culture belongs to both supported lists.
func (o Options) Validate() error {
	if len(o.SupportedCultures) == 0 || len(o.SupportedUICultures) == 0 {
		return errors.New("at least one supported culture is required")
	}
	if !contains(o.SupportedCultures, o.DefaultRequestCulture.Culture) {
		return fmt.Errorf("%w: culture %s", ErrDefaultNotSupported, o.DefaultRequestCulture.Culture)
	}
	if !contains(o.SupportedUICultures, o.DefaultRequestCulture.UICulture) {
		return fmt.Errorf("%w: ui culture %s", ErrDefaultNotSupported, o.DefaultRequestCulture.UICulture)
	}
	return nil
}

func contains(list []language.Tag, tag language.Tag) bool {
	for _, t := range list {
		if t == tag {
			return true
		}
	}
	return false
}

// match returns the supported tag selected by name, walking parent cultures
// when allowed.
func match(name string, supported []language.Tag, parents bool) (language.Tag, bool) {
	tag, err := language.Parse(strings.TrimSpace(name))
	if err != nil || tag == language.Und {
		return language.Und, false
	}
	for {
		if contains(supported, tag) {
			return tag, true
		}
		if !parents {
			return language.Und, false
		}
		parent := tag.Parent()
		if parent == language.Und || parent == tag {
			return language.Und, false
		}
		tag = parent
	}
}

func firstMatch(names []string, supported []language.Tag, parents bool) (language.Tag, bool) {
	for _, n := range names {
		if tag, ok := match(n, supported, parents); ok {
			return tag, true
		}
	}
	return language.Und, false
}

// Feature is the negotiation outcome stored on the request context.
type Feature struct {
	RequestCulture RequestCulture
	// Provider names the provider that supplied the culture, or "default".
	Provider string
}

type featureKey struct{}

// WithFeature returns a copy of ctx carrying f.
func WithFeature(ctx context.Context, f Feature) context.Context {
	return context.WithValue(ctx, featureKey{}, f)
}

// FromContext returns the negotiated culture of the request. Requests that
// did not pass the middleware report English.
func FromContext(ctx context.Context) Feature {
	if f, ok := ctx.Value(featureKey{}).(Feature); ok {
		return f
	}
	return Feature{RequestCulture: NewRequestCulture(language.English), Provider: "default"}
}

// Resolve runs the provider chain for r.
func (o Options) Resolve(r *http.Request) Feature {
	for _, p := range o.Providers {
		res, ok := p.Determine(r)
		if !ok {
			continue
		}
		cultures, uiCultures := res.Cultures, res.UICultures
		if len(cultures) == 0 {
			cultures = uiCultures
		}
		if len(uiCultures) == 0 {
			uiCultures = cultures
		}
		c, cok := firstMatch(cultures, o.SupportedCultures, o.FallBackToParentCultures)
		uic, uok := firstMatch(uiCultures, o.SupportedUICultures, o.FallBackToParentCultures)
		if !cok && !uok {
			continue
		}
		if !cok {
			c = o.DefaultRequestCulture.Culture
		}
		if !uok {
			uic = o.DefaultRequestCulture.UICulture
		}
		return Feature{RequestCulture: RequestCulture{Culture: c, UICulture: uic}, Provider: p.Name()}
	}
	return Feature{RequestCulture: o.DefaultRequestCulture, Provider: "default"}
}

// Middleware attaches the negotiated culture to every request and announces
// the UI culture in Content-Language.
func Middleware(o Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			f := o.Resolve(r)
			metrics.RequestCultures.WithLabelValues(f.RequestCulture.UICulture.String(), f.Provider).Inc()
			w.Header().Set("Content-Language", f.RequestCulture.UICulture.String())
			next.ServeHTTP(w, r.WithContext(WithFeature(r.Context(), f)))
		})
	}
}
