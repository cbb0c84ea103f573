package app

import (
	"context"
	"errors"
	"html"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/toeirei/lingo/internal/config"
	"github.com/toeirei/lingo/internal/identity"
	"github.com/toeirei/lingo/internal/localization"
	"github.com/toeirei/lingo/internal/web/controllers"
	"github.com/toeirei/lingo/internal/web/routing"
)

var nonWord = regexp.MustCompile(`[^A-Za-z0-9]+`)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	name := nonWord.ReplaceAllString(t.Name(), "_")
	return config.Config{
		Environment: config.Production,
		ConnectionStrings: map[string]string{
			"defaultconnection": "file:" + name + "?mode=memory&cache=shared",
		},
		Database: config.DatabaseConfig{MigrateOnStart: true},
		Server:   config.ServerConfig{Listen: "127.0.0.1:0"},
		Localization: config.LocalizationConfig{
			DefaultCulture:    "en",
			SupportedCultures: []string{"en", "fr"},
		},
		Identity: config.IdentityConfig{RequireConfirmedAccount: true},
	}
}

func boomController(*controllers.Deps) routing.Controller {
	return routing.Controller{Name: "Test", Actions: []routing.Action{
		{Name: "Boom", Handler: func(http.ResponseWriter, *http.Request) {
			panic("database password is hunter2")
		}},
	}}
}

func buildApp(t *testing.T, mutate func(*Builder)) *App {
	t.Helper()
	b := NewBuilder(testConfig(t))
	b.Hasher = identity.BcryptHasher{Cost: bcrypt.MinCost}
	b.AddController(boomController)
	if mutate != nil {
		mutate(b)
	}
	a, err := b.Build(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func get(t *testing.T, h http.Handler, target string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestBuild_MissingConnectionStringFailsBeforeServing(t *testing.T) {
	cfg := testConfig(t)
	cfg.ConnectionStrings = nil

	a, err := NewBuilder(cfg).Build(context.Background())
	require.Error(t, err)
	assert.Nil(t, a)
	assert.True(t, errors.Is(err, config.ErrConnectionStringNotFound))
	assert.Equal(t, "Connection string 'DefaultConnection' not found.", err.Error())
}

func TestBuild_RejectsDefaultOutsideSupported(t *testing.T) {
	cfg := testConfig(t)
	cfg.Localization.DefaultCulture = "de"
	_, err := NewBuilder(cfg).Build(context.Background())
	assert.Error(t, err)
}

func TestNoCultureIndicatorRendersEnglish(t *testing.T) {
	a := buildApp(t, nil)
	rec := get(t, a.Handler, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))
	assert.Contains(t, body, `<html lang="en">`)
	assert.Contains(t, body, "Welcome")
	assert.Contains(t, body, "1,234.5")
	assert.NotContains(t, body, `data-view="fr"`)
}

func TestFrenchSelectsCultureViewOrFallsBack(t *testing.T) {
	a := buildApp(t, nil)

	rec := get(t, a.Handler, "/?culture=fr")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-view="fr"`)
	assert.Contains(t, rec.Body.String(), "Bienvenue")
	assert.Contains(t, rec.Body.String(), "1 234,5")

	rec = get(t, a.Handler, "/Home/Privacy", "Accept-Language", "fr-CA,fr;q=0.9")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fr", rec.Header().Get("Content-Language"))
	assert.Contains(t, rec.Body.String(), "Politique de confidentialité")

	rec = get(t, a.Handler, "/Identity/Account/Login?ui-culture=fr")
	assert.Contains(t, rec.Body.String(), `<section lang="fr">`)
}

func TestCultureCookieFromSetLanguage(t *testing.T) {
	a := buildApp(t, nil)
	form := url.Values{"culture": {"fr"}, "returnUrl": {"/Home/Privacy"}}
	req := httptest.NewRequest(http.MethodPost, "/Home/SetLanguage", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/Home/Privacy", rec.Header().Get("Location"))
	var culture *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == localization.CookieName {
			culture = c
		}
	}
	require.NotNil(t, culture)
	assert.Equal(t, "c=fr|uic=fr", culture.Value)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(culture)
	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)
	assert.Contains(t, rec.Body.String(), "Bienvenue")
}

func TestSetLanguage_RejectsOffSiteReturnURL(t *testing.T) {
	a := buildApp(t, nil)
	form := url.Values{"culture": {"fr"}, "returnUrl": {"//evil.example/"}}
	req := httptest.NewRequest(http.MethodPost, "/Home/SetLanguage", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestSetLanguage_CrossSitePostForbidden(t *testing.T) {
	a := buildApp(t, nil)
	form := url.Values{"culture": {"fr"}, "returnUrl": {"/"}}
	req := httptest.NewRequest(http.MethodPost, "/Home/SetLanguage", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	for _, c := range rec.Result().Cookies() {
		assert.NotEqual(t, localization.CookieName, c.Name)
	}
}

func TestUnhandledErrorReExecutesGenericErrorPage(t *testing.T) {
	a := buildApp(t, nil)
	rec := get(t, a.Handler, "/Test/Boom", "X-Request-ID", "trace-7")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "An error occurred while processing your request.")
	assert.Contains(t, body, "trace-7")
	assert.NotContains(t, body, "hunter2")
	assert.NotContains(t, body, "goroutine")
}

func TestDevelopmentShowsDiagnostics(t *testing.T) {
	a := buildApp(t, func(b *Builder) { b.Config.Environment = "development" })
	rec := get(t, a.Handler, "/Test/Boom")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "hunter2")
}

func TestProtectedPageRejectsAnonymous(t *testing.T) {
	a := buildApp(t, nil)

	rec := get(t, a.Handler, "/Identity/Account/Manage")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/Identity/Account/Login?ReturnUrl=%2FIdentity%2FAccount%2FManage", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodPost, "/Identity/Account/Manage", strings.NewReader("NewPassword=x"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec = httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestNotFoundAndMetrics(t *testing.T) {
	a := buildApp(t, nil)

	rec := get(t, a.Handler, "/Nope/Nothing/Here/At/All")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "404")

	rec = get(t, a.Handler, "/css/site.css")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetrics_NotPublicInProduction(t *testing.T) {
	a := buildApp(t, nil)
	assert.Equal(t, http.StatusNotFound, get(t, a.Handler, "/metrics").Code)

	public := buildApp(t, func(b *Builder) { b.Config.Metrics.Public = true })
	rec := get(t, public.Handler, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lingo_http_requests_total")
}

func TestServe_MetricsOnDedicatedListener(t *testing.T) {
	a := buildApp(t, nil)
	get(t, a.Handler, "/")
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	metricsLn, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.serve(ctx, ln, nil, metricsLn) }()

	var body string
	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + metricsLn.Addr().String() + "/metrics")
		if err != nil {
			return false
		}
		body = readBody(t, res)
		return res.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, "lingo_http_requests_total")

	res, err := http.Get("http://" + ln.Addr().String() + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	res.Body.Close()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

var (
	confirmLink = regexp.MustCompile(`id="confirm-link" href="([^"]+)"`)
	mailedLink  = regexp.MustCompile(`href="([^"]+)"`)
)

func TestRegisterConfirmation_LinkShownOnlyInDevelopment(t *testing.T) {
	for _, env := range []string{config.Production, config.Development} {
		t.Run(env, func(t *testing.T) {
			a := buildApp(t, func(b *Builder) { b.Config.Environment = env })
			_, err := a.Identity.Register(context.Background(), "victim@example.com", "Passw0rd!")
			require.NoError(t, err)

			rec := get(t, a.Handler, "/Identity/Account/RegisterConfirmation?email=victim%40example.com")
			require.Equal(t, http.StatusOK, rec.Code)
			m := confirmLink.FindStringSubmatch(rec.Body.String())
			if env == config.Production {
				assert.Nil(t, m)
				return
			}
			require.Len(t, m, 2)
			link, err := url.Parse(html.UnescapeString(m[1]))
			require.NoError(t, err)
			rec = get(t, a.Handler, link.RequestURI())
			assert.Contains(t, rec.Body.String(), "Thank you for confirming your email.")
		})
	}
}

func noRedirectClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:           jar,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func readBody(t *testing.T, res *http.Response) string {
	t.Helper()
	defer res.Body.Close()
	b, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(b)
}

func TestAccountLifecycle(t *testing.T) {
	a := buildApp(t, nil)
	srv := httptest.NewServer(a.Handler)
	defer srv.Close()
	c := noRedirectClient(t)

	post := func(path string, form url.Values) *http.Response {
		res, err := c.PostForm(srv.URL+path, form)
		require.NoError(t, err)
		return res
	}

	// Mismatched confirmation is reported next to the field.
	res := post("/Identity/Account/Register", url.Values{
		"Email": {"ann@example.com"}, "Password": {"Passw0rd!"}, "ConfirmPassword": {"nope"},
	})
	assert.Contains(t, readBody(t, res), "The password and confirmation password do not match.")

	res = post("/Identity/Account/Register", url.Values{
		"Email": {"ann@example.com"}, "Password": {"Passw0rd!"}, "ConfirmPassword": {"Passw0rd!"},
	})
	require.Equal(t, http.StatusFound, res.StatusCode)
	loc := res.Header.Get("Location")
	require.True(t, strings.HasPrefix(loc, "/Identity/Account/RegisterConfirmation?"), loc)
	res.Body.Close()

	// Unconfirmed accounts cannot sign in.
	res = post("/Identity/Account/Login", url.Values{"Email": {"ann@example.com"}, "Password": {"Passw0rd!"}})
	assert.Contains(t, readBody(t, res), "You must confirm your email before you can log in.")

	// Production shows no link on the anonymous confirmation page; the
	// mailed one is used instead.
	res, err := c.Get(srv.URL + loc)
	require.NoError(t, err)
	assert.NotContains(t, readBody(t, res), "confirm-link")
	sender, ok := a.Email.(*identity.LogEmailSender)
	require.True(t, ok)
	mail, ok := sender.LastMessage("ann@example.com")
	require.True(t, ok)
	m := mailedLink.FindStringSubmatch(mail)
	require.Len(t, m, 2)
	res, err = c.Get(html.UnescapeString(m[1]))
	require.NoError(t, err)
	assert.Contains(t, readBody(t, res), "Thank you for confirming your email.")

	res = post("/Identity/Account/Login?ReturnUrl=%2FIdentity%2FAccount%2FManage", url.Values{
		"Email": {"ann@example.com"}, "Password": {"Passw0rd!"},
	})
	require.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/Identity/Account/Manage", res.Header.Get("Location"))
	res.Body.Close()

	res, err = c.Get(srv.URL + "/Identity/Account/Manage")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, readBody(t, res), "ann@example.com")

	res = post("/Identity/Account/Manage", url.Values{
		"OldPassword": {"Passw0rd!"}, "NewPassword": {"N3w-secret"}, "ConfirmPassword": {"N3w-secret"},
	})
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, readBody(t, res), "Your password has been changed.")

	res = post("/Identity/Account/Logout", url.Values{"returnUrl": {"/"}})
	require.Equal(t, http.StatusFound, res.StatusCode)
	res.Body.Close()

	res, err = c.Get(srv.URL + "/Identity/Account/Manage")
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, res.StatusCode)
	res.Body.Close()
}

func TestServeShutsDownOnCancel(t *testing.T) {
	a := buildApp(t, nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		res, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return false
		}
		res.Body.Close()
		return res.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestHTTPSPort(t *testing.T) {
	assert.Equal(t, 0, httpsPort(config.ServerConfig{}))
	assert.Equal(t, 8443, httpsPort(config.ServerConfig{HTTPSPort: 8443}))
	assert.Equal(t, 5001, httpsPort(config.ServerConfig{HTTPSListen: ":5001", CertFile: "c", KeyFile: "k"}))
}
