package routing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultPattern = "{controller=Home}/{action=Index}/{id?}"

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern(defaultPattern)
	require.NoError(t, err)
	require.Len(t, p.Segments, 3)
	assert.Equal(t, Segment{Param: "controller", Default: "Home", HasDef: true}, p.Segments[0])
	assert.Equal(t, Segment{Param: "action", Default: "Index", HasDef: true}, p.Segments[1])
	assert.Equal(t, Segment{Param: "id", Optional: true}, p.Segments[2])
	assert.Equal(t, []string{"controller", "action", "id"}, p.Params())
}

func TestParsePattern_Errors(t *testing.T) {
	for _, bad := range []string{
		"{controller=Home}/{action}",
		"{id?}/static",
		"{a}/{a}",
		"{}",
		"api//{id}",
		"{open",
		"lit}eral",
	} {
		_, err := ParsePattern(bad)
		assert.Error(t, err, "pattern %q", bad)
	}
}

func TestPatternMatch(t *testing.T) {
	p, err := ParsePattern(defaultPattern)
	require.NoError(t, err)

	cases := []struct {
		path string
		want Values
	}{
		{"/", Values{"controller": "Home", "action": "Index"}},
		{"/Home", Values{"controller": "Home", "action": "Index"}},
		{"/home/privacy", Values{"controller": "home", "action": "privacy"}},
		{"/Products/Details/42", Values{"controller": "Products", "action": "Details", "id": "42"}},
		{"/Products/Details/42/", Values{"controller": "Products", "action": "Details", "id": "42"}},
	}
	for _, c := range cases {
		got, ok := p.Match(c.path)
		require.True(t, ok, c.path)
		assert.Equal(t, c.want, got, c.path)
	}

	_, ok := p.Match("/a/b/c/d")
	assert.False(t, ok)

	lit, err := ParsePattern("api/{id}")
	require.NoError(t, err)
	v, ok := lit.Match("/API/7")
	require.True(t, ok)
	assert.Equal(t, "7", v.Get("ID"))
	_, ok = lit.Match("/api")
	assert.False(t, ok)
}

func TestPatternExpand(t *testing.T) {
	p, err := ParsePattern(defaultPattern)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"/Home/Index/{id}", "/Home/Index", "/Home", "/"},
		p.Expand(Values{"controller": "Home", "action": "Index"}))
	assert.Equal(t,
		[]string{"/Home/Privacy/{id}", "/Home/Privacy"},
		p.Expand(Values{"controller": "Home", "action": "Privacy"}))
	assert.Equal(t,
		[]string{"/Account/Index/{id}", "/Account/Index", "/Account"},
		p.Expand(Values{"controller": "Account", "action": "Index"}))
}

func handlerNamed(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(name)) }
}

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	rt := NewRouter()
	require.NoError(t, rt.MapControllerRoute("default", defaultPattern))
	rt.AddController(Controller{Name: "Home", Actions: []Action{
		{Name: "Index", Handler: handlerNamed("index")},
		{Name: "Privacy", Handler: handlerNamed("privacy")},
		{Name: "SetLanguage", Methods: []string{http.MethodPost}, Handler: handlerNamed("setlang")},
	}})
	rt.AddController(Controller{Name: "Admin", Authorize: true, Actions: []Action{
		{Name: "Index", Handler: handlerNamed("admin")},
		{Name: "Ping", AllowAnonymous: true, Handler: handlerNamed("ping")},
	}})
	rt.MapPage(Page{Path: "/Identity/Account/Login", Methods: []string{http.MethodGet, http.MethodPost}, Handler: handlerNamed("login")})
	rt.MapPage(Page{Path: "/Identity/Account/Manage", Authorize: true, Handler: handlerNamed("manage")})
	rt.Handle("/metrics", handlerNamed("metrics"))
	return rt
}

func TestSelect(t *testing.T) {
	rt := newTestRouter(t)

	cases := []struct {
		method, path, endpoint string
		auth                   bool
	}{
		{http.MethodGet, "/", "Home.Index", false},
		{http.MethodGet, "/home", "Home.Index", false},
		{http.MethodGet, "/HOME/PRIVACY", "Home.Privacy", false},
		{http.MethodHead, "/Home/Privacy", "Home.Privacy", false},
		{http.MethodGet, "/Home/Index/5", "Home.Index", false},
		{http.MethodPost, "/Home/SetLanguage", "Home.SetLanguage", false},
		{http.MethodGet, "/Admin", "Admin.Index", true},
		{http.MethodGet, "/admin/ping", "Admin.Ping", false},
		{http.MethodGet, "/identity/account/login", "Page:/Identity/Account/Login", false},
		{http.MethodGet, "/Identity/Account/Manage", "Page:/Identity/Account/Manage", true},
		{http.MethodGet, "/metrics", "/metrics", false},
	}
	for _, c := range cases {
		m, err := rt.Select(httptest.NewRequest(c.method, c.path, nil))
		require.NoError(t, err, "%s %s", c.method, c.path)
		assert.Equal(t, c.endpoint, m.Endpoint.Name, c.path)
		assert.Equal(t, c.auth, m.Endpoint.RequiresAuth, c.path)
	}
}

func TestSelect_RouteValuesKeepRequestCasing(t *testing.T) {
	rt := newTestRouter(t)
	m, err := rt.Select(httptest.NewRequest(http.MethodGet, "/home/index/AbC", nil))
	require.NoError(t, err)
	assert.Equal(t, "Home", m.Values.Get("controller"))
	assert.Equal(t, "Index", m.Values.Get("action"))
	assert.Equal(t, "AbC", m.Values.Get("id"))
}

func TestSelect_NoMatchAndMethodMismatch(t *testing.T) {
	rt := newTestRouter(t)

	_, err := rt.Select(httptest.NewRequest(http.MethodGet, "/Nope/Nothing", nil))
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = rt.Select(httptest.NewRequest(http.MethodGet, "/Home/SetLanguage", nil))
	assert.ErrorIs(t, err, ErrMethodNotAllowed)
}

func TestBuild_DuplicateRoute(t *testing.T) {
	rt := NewRouter()
	rt.MapPage(Page{Path: "/Home/Privacy", Handler: handlerNamed("page")})
	require.NoError(t, rt.MapControllerRoute("default", defaultPattern))
	rt.AddController(Controller{Name: "Home", Actions: []Action{{Name: "Privacy", Handler: handlerNamed("action")}}})
	assert.Error(t, rt.Build())
}

func TestMiddleware_StoresMatch(t *testing.T) {
	rt := newTestRouter(t)
	var got *Match
	h := rt.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = MatchFrom(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/Home/Privacy", nil))
	require.NotNil(t, got)
	assert.Equal(t, "Home.Privacy", got.Endpoint.Name)

	got = nil
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing/route/x/y", nil))
	assert.Nil(t, got)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/Home/SetLanguage", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestEndpoints(t *testing.T) {
	rt := newTestRouter(t)
	eps, err := rt.Endpoints()
	require.NoError(t, err)

	var templates []string
	for _, e := range eps {
		templates = append(templates, e.Template)
	}
	assert.Contains(t, templates, "/")
	assert.Contains(t, templates, "/Home/Privacy")
	assert.Contains(t, templates, "/Identity/Account/Login")
	assert.Contains(t, templates, "/metrics")
}
