package pipeline

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toeirei/lingo/internal/identity"
	"github.com/toeirei/lingo/internal/localization"
	"github.com/toeirei/lingo/internal/metrics"
	"github.com/toeirei/lingo/internal/web/routing"
)

type fakeMigrations struct {
	pending []string
	applied int
}

func (f *fakeMigrations) PendingMigrations(context.Context) ([]string, error) {
	return f.pending, nil
}

func (f *fakeMigrations) Migrate(context.Context) ([]string, error) {
	done := f.pending
	f.pending = nil
	f.applied += len(done)
	return done, nil
}

type testApp struct {
	handler    http.Handler
	pipeline   *Pipeline
	dispatched []string
}

func newTestApp(t *testing.T, mutate func(*Options)) *testApp {
	t.Helper()
	app := &testApp{}
	track := func(name string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			app.dispatched = append(app.dispatched, name)
			h(w, r)
		}
	}

	rt := routing.NewRouter()
	require.NoError(t, rt.MapControllerRoute("default", "{controller=Home}/{action=Index}/{id?}"))
	rt.AddController(routing.Controller{Name: "Home", Actions: []routing.Action{
		{Name: "Index", Handler: track("index", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("culture=" + localization.FromContext(r.Context()).RequestCulture.UICulture.String()))
		})},
		{Name: "Error", Handler: track("error", func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if ex := ExceptionFrom(r.Context()); ex != nil {
				id = ex.RequestID
			}
			_, _ = w.Write([]byte("generic error page " + id))
		})},
		{Name: "Boom", Handler: track("boom", func(w http.ResponseWriter, r *http.Request) {
			panic("secret detail: connection refused")
		})},
		{Name: "Fail", Methods: []string{http.MethodPost}, Handler: track("fail", func(w http.ResponseWriter, r *http.Request) {
			Fail(r, errors.New("secret detail: constraint violated"))
		})},
		{Name: "Large", Handler: track("large", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(strings.Repeat("lingo ", 1000)))
		})},
	}})
	rt.AddController(routing.Controller{Name: "Admin", Authorize: true, Actions: []routing.Action{
		{Name: "Index", Methods: []string{http.MethodGet, http.MethodPost}, Handler: track("admin", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("admin"))
		})},
	}})

	loc, err := localization.NewOptions("en", "en", "fr")
	require.NoError(t, err)

	o := Options{
		Localization: loc,
		Router:       rt,
		WebRoot: fstest.MapFS{
			"css/site.css": {Data: []byte("body{}")},
		},
		NotFound: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("custom not found"))
		}),
	}
	if mutate != nil {
		mutate(&o)
	}
	app.handler, app.pipeline = New(o)
	return app
}

func (a *testApp) do(r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, r)
	return rec
}

func TestNew_StageOrder(t *testing.T) {
	prod := newTestApp(t, nil)
	assert.Equal(t, []string{
		"RequestState", "Logging", "Metrics", "SecurityHeaders",
		"ExceptionHandler", "HSTS", "RequestLocalization", "HTTPSRedirection",
		"SameOrigin", "StaticFiles", "Routing", "Authorization",
	}, prod.pipeline.Stages())

	dev := newTestApp(t, func(o *Options) {
		o.Development = true
		o.Migrations = &fakeMigrations{}
		o.Compress = true
		o.Authenticate = func(next http.Handler) http.Handler { return next }
	})
	assert.Equal(t, []string{
		"RequestState", "Logging", "Metrics", "Compression", "SecurityHeaders",
		"DeveloperExceptionPage", "MigrationsEndpoint", "RequestLocalization",
		"HTTPSRedirection", "SameOrigin", "StaticFiles", "Routing", "Authentication", "Authorization",
	}, dev.pipeline.Stages())
}

func TestPipeline_CrossSitePostRejected(t *testing.T) {
	app := newTestApp(t, nil)

	cases := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"cross-site fetch metadata", map[string]string{"Sec-Fetch-Site": "cross-site", "Origin": "https://evil.example"}, http.StatusForbidden},
		{"same-site fetch metadata", map[string]string{"Sec-Fetch-Site": "same-site"}, http.StatusForbidden},
		{"foreign origin", map[string]string{"Origin": "https://evil.example"}, http.StatusForbidden},
		{"foreign referer", map[string]string{"Referer": "https://evil.example/form"}, http.StatusForbidden},
		{"null origin", map[string]string{"Origin": "null"}, http.StatusForbidden},
		{"same-origin fetch metadata", map[string]string{"Sec-Fetch-Site": "same-origin"}, http.StatusInternalServerError},
		{"matching origin", map[string]string{"Origin": "http://example.com"}, http.StatusInternalServerError},
		{"no browser headers", nil, http.StatusInternalServerError},
	}
	for _, c := range cases {
		app.dispatched = nil
		req := httptest.NewRequest(http.MethodPost, "/Home/Fail", nil)
		for k, v := range c.header {
			req.Header.Set(k, v)
		}
		rec := app.do(req)
		assert.Equal(t, c.want, rec.Code, c.name)
		if c.want == http.StatusForbidden {
			assert.Empty(t, app.dispatched, c.name)
		}
	}

	// Safe methods are never blocked.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	assert.Equal(t, http.StatusOK, app.do(req).Code)
}

func TestMetrics_MethodLabelIsBounded(t *testing.T) {
	app := newTestApp(t, nil)
	before := testutil.CollectAndCount(metrics.HTTPRequests)
	for i := 0; i < 50; i++ {
		app.do(httptest.NewRequest(fmt.Sprintf("JUNK%d", i), "/nope", nil))
	}
	assert.LessOrEqual(t, testutil.CollectAndCount(metrics.HTTPRequests)-before, 1)
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues("unmatched", "other", "404")), 50.0)
}

func TestPipeline_DefaultCultureWithoutIndicator(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "culture=en", rec.Body.String())
	assert.Equal(t, "en", rec.Header().Get("Content-Language"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = app.do(httptest.NewRequest(http.MethodGet, "/?culture=fr", nil))
	assert.Equal(t, "culture=fr", rec.Body.String())
}

func TestExceptionHandler_ReExecutesErrorPathWithoutDetail(t *testing.T) {
	app := newTestApp(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/Home/Boom", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := app.do(req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "generic error page req-42", rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "secret")
	assert.Equal(t, []string{"boom", "error"}, app.dispatched)
}

func TestExceptionHandler_ReportedErrorOnPost(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.do(httptest.NewRequest(http.MethodPost, "/Home/Fail", strings.NewReader("x=1")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "generic error page"))
	assert.NotContains(t, rec.Body.String(), "constraint")
}

func TestDeveloperExceptionPage_ShowsDetailAndPendingMigrations(t *testing.T) {
	mig := &fakeMigrations{pending: []string{"0002_sessions"}}
	app := newTestApp(t, func(o *Options) {
		o.Development = true
		o.Migrations = mig
	})
	rec := app.do(httptest.NewRequest(http.MethodGet, "/Home/Boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "secret detail: connection refused")
	assert.Contains(t, body, "0002_sessions")
	assert.Contains(t, body, `action="/ApplyDatabaseMigrations"`)
	assert.NotContains(t, app.dispatched, "error")

	rec = app.do(httptest.NewRequest(http.MethodPost, "/ApplyDatabaseMigrations", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, mig.applied)
}

func TestAuthorization_RejectsBeforeDispatch(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/Admin?tab=1", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/Identity/Account/Login?ReturnUrl=%2FAdmin%3Ftab%3D1", rec.Header().Get("Location"))

	rec = app.do(httptest.NewRequest(http.MethodPost, "/Admin", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, app.dispatched)
}

func TestAuthorization_AllowsAuthenticated(t *testing.T) {
	app := newTestApp(t, func(o *Options) {
		o.Authenticate = func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				p := &identity.Principal{UserID: "u1", Email: "ann@example.com"}
				next.ServeHTTP(w, r.WithContext(identity.WithPrincipal(r.Context(), p)))
			})
		}
	})
	rec := app.do(httptest.NewRequest(http.MethodGet, "/Admin", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin", rec.Body.String())
}

func TestHSTS(t *testing.T) {
	app := newTestApp(t, nil)

	req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	req.TLS = &tls.ConnectionState{}
	rec := app.do(req)
	assert.Equal(t, "max-age=2592000", rec.Header().Get("Strict-Transport-Security"))

	req = httptest.NewRequest(http.MethodGet, "https://localhost:5001/", nil)
	req.TLS = &tls.ConnectionState{}
	rec = app.do(req)
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	rec = app.do(httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	dev := newTestApp(t, func(o *Options) { o.Development = true })
	req = httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	req.TLS = &tls.ConnectionState{}
	assert.Empty(t, dev.do(req).Header().Get("Strict-Transport-Security"))
}

func TestHTTPSRedirection(t *testing.T) {
	app := newTestApp(t, func(o *Options) { o.HTTPSPort = 8443 })
	rec := app.do(httptest.NewRequest(http.MethodGet, "http://example.com:8080/Home?x=1", nil))
	assert.Equal(t, http.StatusTemporaryRedirect, rec.Code)
	assert.Equal(t, "https://example.com:8443/Home?x=1", rec.Header().Get("Location"))

	std := newTestApp(t, func(o *Options) { o.HTTPSPort = 443 })
	rec = std.do(httptest.NewRequest(http.MethodGet, "http://example.com/", nil))
	assert.Equal(t, "https://example.com/", rec.Header().Get("Location"))

	req := httptest.NewRequest(http.MethodGet, "https://example.com/", nil)
	req.TLS = &tls.ConnectionState{}
	assert.Equal(t, http.StatusOK, app.do(req).Code)
}

func TestStaticFiles(t *testing.T) {
	app := newTestApp(t, nil)

	rec := app.do(httptest.NewRequest(http.MethodGet, "/css/site.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "body{}", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/css")

	rec = app.do(httptest.NewRequest(http.MethodGet, "/css/missing.css", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "custom not found", rec.Body.String())
	assert.Empty(t, app.dispatched)
}

func TestDispatch_NotFoundAndMethodMismatch(t *testing.T) {
	app := newTestApp(t, nil)
	rec := app.do(httptest.NewRequest(http.MethodGet, "/No/Such/Route/Here", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.do(httptest.NewRequest(http.MethodGet, "/Home/Fail", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestCompression(t *testing.T) {
	app := newTestApp(t, func(o *Options) { o.Compress = true })
	req := httptest.NewRequest(http.MethodGet, "/Home/Large", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := app.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestIsLocalHost(t *testing.T) {
	for host, want := range map[string]bool{
		"localhost":      true,
		"localhost:5001": true,
		"127.0.0.1:80":   true,
		"[::1]:443":      true,
		"example.com":    false,
		"10.0.0.1:80":    false,
	} {
		assert.Equal(t, want, isLocalHost(host), host)
	}
}
