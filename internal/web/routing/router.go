// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package routing maps request paths to controller actions and pages.
// Conventional patterns are expanded per registered action into concrete
// gorilla/mux routes; selection happens in one middleware and execution in
// another so that authorization can inspect the selected endpoint first.
package routing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

var (
	ErrNoMatch          = errors.New("no route matches the request")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// Action is one controller action.
type Action struct {
	Name           string
	Methods        []string
	Authorize      bool
	AllowAnonymous bool
	Handler        http.HandlerFunc
}

// Controller groups actions. Authorize applies to every action unless the
// action sets AllowAnonymous.
type Controller struct {
	Name      string
	Authorize bool
	Actions   []Action
}

// Page is a standalone page endpoint such as "/Identity/Account/Login".
type Page struct {
	Path           string
	Methods        []string
	Authorize      bool
	AllowAnonymous bool
	Handler        http.HandlerFunc
}

// Endpoint is a dispatch target with its authorization metadata.
type Endpoint struct {
	Name         string
	Route        string
	Controller   string
	Action       string
	Page         string
	Templates    []string
	Methods      []string
	RequiresAuth bool
	Handler      http.Handler

	pattern *Pattern
}

// Match is the routing outcome stored on the request context.
type Match struct {
	Endpoint *Endpoint
	Values   Values
}

type matchKey struct{}

// WithMatch returns a copy of ctx carrying m.
func WithMatch(ctx context.Context, m *Match) context.Context {
	return context.WithValue(ctx, matchKey{}, m)
}

// MatchFrom returns the selected endpoint, or nil when routing found none.
func MatchFrom(ctx context.Context) *Match {
	m, _ := ctx.Value(matchKey{}).(*Match)
	return m
}

type conventionalRoute struct {
	name    string
	pattern *Pattern
}

// Router holds the registrations and the compiled mux.
type Router struct {
	routes      []conventionalRoute
	controllers map[string]Controller
	pages       []Page
	extra       []*Endpoint

	mu        sync.RWMutex
	mux       *mux.Router
	endpoints []*Endpoint
	byRoute   map[string]*Endpoint
}

// NewRouter returns an empty router.
func NewRouter() *Router {
	return &Router{controllers: map[string]Controller{}}
}

// MapControllerRoute registers a conventional route pattern.
func (rt *Router) MapControllerRoute(name, pattern string) error {
	p, err := ParsePattern(pattern)
	if err != nil {
		return err
	}
	rt.routes = append(rt.routes, conventionalRoute{name: name, pattern: p})
	rt.mux = nil
	return nil
}

// AddController registers c. Names are matched case-insensitively.
func (rt *Router) AddController(c Controller) {
	rt.controllers[strings.ToLower(c.Name)] = c
	rt.mux = nil
}

// MapPage registers a page endpoint.
func (rt *Router) MapPage(p Page) {
	rt.pages = append(rt.pages, p)
	rt.mux = nil
}

// Handle registers a fixed-path endpoint outside the MVC conventions,
// e.g. /metrics.
func (rt *Router) Handle(path string, h http.Handler, methods ...string) {
	rt.extra = append(rt.extra, &Endpoint{Name: path, Templates: []string{path}, Methods: methods, Handler: h})
	rt.mux = nil
}

func normalizeMethods(m []string) []string {
	if len(m) == 0 {
		return []string{http.MethodGet, http.MethodHead}
	}
	out := make([]string, 0, len(m)+1)
	hasGet, hasHead := false, false
	for _, v := range m {
		v = strings.ToUpper(v)
		hasGet = hasGet || v == http.MethodGet
		hasHead = hasHead || v == http.MethodHead
		out = append(out, v)
	}
	if hasGet && !hasHead {
		out = append(out, http.MethodHead)
	}
	return out
}

func requiresAuth(controllerAuth, actionAuth, anonymous bool) bool {
	return (controllerAuth || actionAuth) && !anonymous
}

// Build compiles every registration into the mux. Select and Endpoints
// call it on first use.
func (rt *Router) Build() error {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.build()
}

type compiledRoutes struct {
	mux       *mux.Router
	endpoints []*Endpoint
	byRoute   map[string]*Endpoint
}

func (rt *Router) compiled() (compiledRoutes, error) {
	rt.mu.RLock()
	c := compiledRoutes{rt.mux, rt.endpoints, rt.byRoute}
	rt.mu.RUnlock()
	if c.mux != nil {
		return c, nil
	}
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.mux == nil {
		if err := rt.build(); err != nil {
			return compiledRoutes{}, err
		}
	}
	return compiledRoutes{rt.mux, rt.endpoints, rt.byRoute}, nil
}

func (rt *Router) build() error {
	m := mux.NewRouter()
	var eps []*Endpoint
	seen := map[string]string{}
	byRoute := map[string]*Endpoint{}

	add := func(ep *Endpoint) error {
		for _, tpl := range ep.Templates {
			for _, method := range ep.Methods {
				key := method + " " + strings.ToLower(tpl)
				if other, dup := seen[key]; dup {
					return fmt.Errorf("route %s %s is claimed by both %s and %s", method, tpl, other, ep.Name)
				}
				seen[key] = ep.Name
			}
			routeName := fmt.Sprintf("%d:%s", len(byRoute), tpl)
			byRoute[routeName] = ep
			m.NewRoute().Name(routeName).Path(strings.ToLower(tpl)).Methods(ep.Methods...).Handler(ep.Handler)
		}
		eps = append(eps, ep)
		return nil
	}

	for _, ep := range rt.extra {
		ep.Methods = normalizeMethods(ep.Methods)
		if err := add(ep); err != nil {
			return err
		}
	}
	for _, p := range rt.pages {
		ep := &Endpoint{
			Name:         "Page:" + p.Path,
			Page:         p.Path,
			Templates:    []string{"/" + strings.Trim(p.Path, "/")},
			Methods:      normalizeMethods(p.Methods),
			RequiresAuth: requiresAuth(false, p.Authorize, p.AllowAnonymous),
			Handler:      p.Handler,
		}
		if err := add(ep); err != nil {
			return err
		}
	}

	names := make([]string, 0, len(rt.controllers))
	for k := range rt.controllers {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, route := range rt.routes {
		for _, key := range names {
			c := rt.controllers[key]
			for _, a := range c.Actions {
				ep := &Endpoint{
					Name:         c.Name + "." + a.Name,
					Route:        route.name,
					Controller:   c.Name,
					Action:       a.Name,
					Templates:    route.pattern.Expand(Values{"controller": c.Name, "action": a.Name}),
					Methods:      normalizeMethods(a.Methods),
					RequiresAuth: requiresAuth(c.Authorize, a.Authorize, a.AllowAnonymous),
					Handler:      a.Handler,
					pattern:      route.pattern,
				}
				if err := add(ep); err != nil {
					return err
				}
			}
		}
	}

	rt.mux = m
	rt.endpoints = eps
	rt.byRoute = byRoute
	return nil
}

// Select finds the endpoint for r. Paths are matched case-insensitively;
// route values keep the casing of the request.
func (rt *Router) Select(r *http.Request) (*Match, error) {
	c, err := rt.compiled()
	if err != nil {
		return nil, err
	}
	probe := r.Clone(r.Context())
	probe.URL.Path = strings.ToLower(r.URL.Path)
	if len(probe.URL.Path) > 1 {
		probe.URL.Path = strings.TrimSuffix(probe.URL.Path, "/")
	}
	probe.URL.RawPath = ""

	var rm mux.RouteMatch
	if !c.mux.Match(probe, &rm) || rm.MatchErr != nil {
		if errors.Is(rm.MatchErr, mux.ErrMethodMismatch) {
			return nil, ErrMethodNotAllowed
		}
		return nil, ErrNoMatch
	}

	ep, ok := c.byRoute[rm.Route.GetName()]
	if !ok {
		return nil, ErrNoMatch
	}
	vals := Values{}
	if ep.pattern != nil {
		if v, ok := ep.pattern.Match(r.URL.Path); ok {
			vals = v
		}
		vals["controller"] = ep.Controller
		vals["action"] = ep.Action
	}
	return &Match{Endpoint: ep, Values: vals}, nil
}

// EndpointInfo describes an endpoint for listings.
type EndpointInfo struct {
	Name         string
	Template     string
	Methods      []string
	RequiresAuth bool
}

// Endpoints lists every compiled route template.
func (rt *Router) Endpoints() ([]EndpointInfo, error) {
	c, err := rt.compiled()
	if err != nil {
		return nil, err
	}
	var out []EndpointInfo
	for _, ep := range c.endpoints {
		for _, tpl := range ep.Templates {
			out = append(out, EndpointInfo{Name: ep.Name, Template: tpl, Methods: ep.Methods, RequiresAuth: ep.RequiresAuth})
		}
	}
	return out, nil
}

// Middleware selects the endpoint and stores it on the context. Requests
// without a match continue with no endpoint so later stages can decide.
func (rt *Router) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m, err := rt.Select(r)
		if err != nil {
			if errors.Is(err, ErrMethodNotAllowed) {
				http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithMatch(r.Context(), m)))
	})
}
