// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package app composes the application: configuration, storage, identity,
// localization and the MVC registrations, assembled into one request
// pipeline and served until shutdown.
package app

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/toeirei/lingo/internal/config"
	"github.com/toeirei/lingo/internal/db"
	"github.com/toeirei/lingo/internal/i18n"
	"github.com/toeirei/lingo/internal/identity"
	"github.com/toeirei/lingo/internal/localization"
	"github.com/toeirei/lingo/internal/logging"
	"github.com/toeirei/lingo/internal/metrics"
	"github.com/toeirei/lingo/internal/validation"
	"github.com/toeirei/lingo/internal/web/assets"
	"github.com/toeirei/lingo/internal/web/controllers"
	"github.com/toeirei/lingo/internal/web/pipeline"
	"github.com/toeirei/lingo/internal/web/routing"
	"github.com/toeirei/lingo/internal/web/views"
)

// DefaultRoutePattern is the conventional controller route.
const DefaultRoutePattern = "{controller=Home}/{action=Index}/{id?}"

// Builder collects the registrations Build assembles. Zero fields take
// their production defaults.
type Builder struct {
	Config config.Config
	// Email delivers confirmation links; defaults to a LogEmailSender.
	Email identity.EmailSender
	// Hasher defaults to bcrypt at the default cost.
	Hasher identity.PasswordHasher
	// Views replaces the embedded templates.
	Views fs.FS
	// WebRoot replaces the static file root.
	WebRoot fs.FS
	Now     func() time.Time

	controllers []func(*controllers.Deps) routing.Controller
	pages       []func(*controllers.Deps) []routing.Page
}

// NewBuilder returns a builder with the stock Home controller and Identity
// pages registered.
func NewBuilder(cfg config.Config) *Builder {
	b := &Builder{Config: cfg}
	b.AddController(controllers.Home)
	b.AddPages(controllers.AccountPages)
	return b
}

// AddController registers a controller constructor.
func (b *Builder) AddController(f func(*controllers.Deps) routing.Controller) *Builder {
	b.controllers = append(b.controllers, f)
	return b
}

// AddPages registers page constructors.
func (b *Builder) AddPages(f func(*controllers.Deps) []routing.Page) *Builder {
	b.pages = append(b.pages, f)
	return b
}

// App is a built application.
type App struct {
	Config   config.Config
	Store    *db.Store
	Identity *identity.Manager
	Catalog  *i18n.Catalog
	Router   *routing.Router
	Pipeline *pipeline.Pipeline
	Email    identity.EmailSender
	Handler  http.Handler
	// MetricsHandler serves /metrics on the dedicated metrics listener.
	MetricsHandler http.Handler
}

// Close releases the storage context.
func (a *App) Close() error {
	if a.Store == nil {
		return nil
	}
	return a.Store.Close()
}

// IdentityOptions maps configuration onto the identity policy.
func IdentityOptions(c config.IdentityConfig) identity.Options {
	o := identity.DefaultOptions()
	o.RequireConfirmedAccount = c.RequireConfirmedAccount
	if c.MaxFailedAccessAttempts > 0 {
		o.Lockout.MaxFailedAttempts = c.MaxFailedAccessAttempts
	}
	if c.LockoutDuration > 0 {
		o.Lockout.Duration = c.LockoutDuration
	}
	if c.SessionLifetime > 0 {
		o.SessionLifetime = c.SessionLifetime
	}
	if c.CookieName != "" {
		o.CookieName = c.CookieName
	}
	if c.PasswordMinLength > 0 {
		o.Password.RequiredLength = c.PasswordMinLength
	}
	return o
}

func parseCultures(names []string) ([]language.Tag, error) {
	tags := make([]language.Tag, 0, len(names))
	for _, n := range names {
		t, err := language.Parse(strings.TrimSpace(n))
		if err != nil {
			return nil, fmt.Errorf("culture %q: %w", n, err)
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// Build validates the configuration and assembles the application. A
// missing DefaultConnection fails here, before any listener exists.
func (b *Builder) Build(ctx context.Context) (*App, error) {
	cfg := b.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logging.Level != "" {
		if err := logging.SetLevel(cfg.Logging.Level); err != nil {
			logging.Warnf("%v", err)
		}
	}
	dev := cfg.IsDevelopment()

	// Persistence.
	dsn, _ := cfg.ConnectionString(config.DefaultConnectionName)
	store, err := db.Open(ctx, cfg.Database.Provider, dsn)
	if err != nil {
		return nil, err
	}
	ok := false
	defer func() {
		if !ok {
			_ = store.Close()
		}
	}()
	if cfg.Database.MigrateOnStart {
		applied, err := store.Migrate(ctx)
		if err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		if len(applied) > 0 {
			logging.Infof("applied %d migration(s)", len(applied))
		}
	} else if pending, err := store.PendingMigrations(ctx); err == nil && len(pending) > 0 {
		logging.Warnf("%d pending migration(s); run 'lingo migrate'", len(pending))
	}

	// Identity.
	email := b.Email
	logSender := false
	if email == nil {
		email = identity.NewLogEmailSender()
		logSender = true
	}
	manager := identity.NewManager(store, IdentityOptions(cfg.Identity), b.Hasher)

	// Localization.
	cultures, err := parseCultures(cfg.Localization.SupportedCultures)
	if err != nil {
		return nil, err
	}
	locOpts, err := localization.NewOptions(cfg.Localization.DefaultCulture, cfg.Localization.SupportedCultures...)
	if err != nil {
		return nil, err
	}
	ordered := append([]language.Tag{locOpts.DefaultRequestCulture.UICulture}, without(cultures, locOpts.DefaultRequestCulture.UICulture)...)
	catalog, err := i18n.New(cfg.Localization.ResourcesPath, ordered)
	if err != nil {
		return nil, err
	}
	validator, err := validation.New(catalog)
	if err != nil {
		return nil, err
	}

	// MVC.
	viewFS := b.Views
	if viewFS == nil {
		viewFS = views.Embedded
	}
	deps := &controllers.Deps{
		Views:                   views.New(viewFS, catalog, dev),
		Catalog:                 catalog,
		Validator:               validator,
		Identity:                manager,
		Email:                   email,
		Localization:            locOpts,
		Development:             dev,
		DisplayConfirmationLink: logSender,
		Now:                     b.Now,
	}
	router := routing.NewRouter()
	if err := router.MapControllerRoute("default", DefaultRoutePattern); err != nil {
		return nil, err
	}
	for _, f := range b.controllers {
		router.AddController(f(deps))
	}
	for _, f := range b.pages {
		for _, p := range f(deps) {
			router.MapPage(p)
		}
	}
	if cfg.Metrics.Public || dev {
		router.Handle("/metrics", metrics.Handler())
	}
	if err := router.Build(); err != nil {
		return nil, err
	}

	webRoot := b.WebRoot
	if webRoot == nil {
		webRoot = assets.WebRoot(cfg.Static.WebRoot)
	}
	handler, p := pipeline.New(pipeline.Options{
		Development:  dev,
		ErrorPath:    "/Home/Error",
		HSTSMaxAge:   cfg.Server.HSTSMaxAge,
		HTTPSPort:    httpsPort(cfg.Server),
		Localization: locOpts,
		WebRoot:      webRoot,
		Router:       router,
		Authenticate: manager.Middleware,
		LoginPath:    controllers.LoginPath,
		Migrations:   store,
		NotFound:     http.HandlerFunc(deps.NotFound),
		Compress:     true,
	})
	logging.With("environment", cfg.Environment, "provider", store.Provider(), "cultures", cfg.Localization.SupportedCultures).
		Debugf("pipeline: %s", strings.Join(p.Stages(), " -> "))

	ok = true
	return &App{
		Config:   cfg,
		Store:    store,
		Identity: manager,
		Catalog:  catalog,
		Router:   router,
		Pipeline: p,
		Email:    email,
		Handler:  handler,

		MetricsHandler: metricsMux(),
	}, nil
}

func metricsMux() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func without(tags []language.Tag, drop language.Tag) []language.Tag {
	out := make([]language.Tag, 0, len(tags))
	for _, t := range tags {
		if t != drop {
			out = append(out, t)
		}
	}
	return out
}

// httpsPort is the redirect target port: the explicit setting, else the
// port of the HTTPS listener when TLS is configured.
func httpsPort(s config.ServerConfig) int {
	if s.HTTPSPort > 0 {
		return s.HTTPSPort
	}
	if s.CertFile == "" || s.KeyFile == "" || s.HTTPSListen == "" {
		return 0
	}
	if i := strings.LastIndex(s.HTTPSListen, ":"); i >= 0 {
		var port int
		if _, err := fmt.Sscanf(s.HTTPSListen[i+1:], "%d", &port); err == nil {
			return port
		}
	}
	return 0
}
