// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package localization

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	// QueryCultureKey and QueryUICultureKey are the query string parameters.
	QueryCultureKey   = "culture"
	QueryUICultureKey = "ui-culture"
	// CookieName stores the user's culture choice.
	CookieName = ".Lingo.Culture"
	// maxAcceptLanguages bounds how many Accept-Language entries are tried.
	maxAcceptLanguages = 3
)

// ProviderResult holds candidate culture names in preference order.
type ProviderResult struct {
	Cultures   []string
	UICultures []string
}

// Provider extracts culture candidates from a request.
type Provider interface {
	Name() string
	Determine(r *http.Request) (ProviderResult, bool)
}

// DefaultProviders returns query string, cookie and Accept-Language
// providers, in that order.
func DefaultProviders() []Provider {
	return []Provider{QueryStringProvider{}, CookieProvider{Cookie: CookieName}, AcceptLanguageProvider{}}
}

// QueryStringProvider reads ?culture=fr&ui-culture=fr. Either key alone sets
// both axes.
type QueryStringProvider struct{}

func (QueryStringProvider) Name() string { return "query" }

func (QueryStringProvider) Determine(r *http.Request) (ProviderResult, bool) {
	q := r.URL.Query()
	c := strings.TrimSpace(q.Get(QueryCultureKey))
	uic := strings.TrimSpace(q.Get(QueryUICultureKey))
	if c == "" && uic == "" {
		return ProviderResult{}, false
	}
	var res ProviderResult
	if c != "" {
		res.Cultures = []string{c}
	}
	if uic != "" {
		res.UICultures = []string{uic}
	}
	return res, true
}

// CookieProvider reads the culture cookie written by SetCultureCookie.
type CookieProvider struct {
	Cookie string
}

func (CookieProvider) Name() string { return "cookie" }

func (p CookieProvider) Determine(r *http.Request) (ProviderResult, bool) {
	name := p.Cookie
	if name == "" {
		name = CookieName
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ProviderResult{}, false
	}
	return ParseCookieValue(c.Value)
}

// AcceptLanguageProvider reads the Accept-Language header by descending
// quality.
type AcceptLanguageProvider struct{}

func (AcceptLanguageProvider) Name() string { return "accept-language" }

func (AcceptLanguageProvider) Determine(r *http.Request) (ProviderResult, bool) {
	header := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if header == "" {
		return ProviderResult{}, false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ProviderResult{}, false
	}
	if len(tags) > maxAcceptLanguages {
		tags = tags[:maxAcceptLanguages]
	}
	names := make([]string, 0, len(tags))
	for _, t := range tags {
		names = append(names, t.String())
	}
	return ProviderResult{Cultures: names, UICultures: names}, true
}

// MakeCookieValue encodes rc as "c=<culture>|uic=<ui culture>".
func MakeCookieValue(rc RequestCulture) string {
	return "c=" + rc.Culture.String() + "|uic=" + rc.UICulture.String()
}

// ParseCookieValue decodes a culture cookie. A value carrying only one of
// the two parts uses it for both.
func ParseCookieValue(value string) (ProviderResult, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return ProviderResult{}, false
	}
	var c, uic string
	for _, part := range strings.Split(value, "|") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return ProviderResult{}, false
		}
		switch strings.TrimSpace(k) {
		case "c":
			c = strings.TrimSpace(v)
		case "uic":
			uic = strings.TrimSpace(v)
		default:
			return ProviderResult{}, false
		}
	}
	if c == "" && uic == "" {
		return ProviderResult{}, false
	}
	if c == "" {
		c = uic
	}
	if uic == "" {
		uic = c
	}
	return ProviderResult{Cultures: []string{c}, UICultures: []string{uic}}, true
}

// SetCultureCookie persists rc for one year.
func SetCultureCookie(w http.ResponseWriter, r *http.Request, rc RequestCulture) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    MakeCookieValue(rc),
		Path:     "/",
		Expires:  time.Now().AddDate(1, 0, 0),
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		Secure:   r != nil && r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
