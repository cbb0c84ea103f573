// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package views renders html/template views with culture-specific variants.
// A view "Index" requested in UI culture fr-CA resolves to the first existing
// file of Index.fr-CA.html, Index.fr.html and Index.html, searched in each
// view location in turn.
package views

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/toeirei/lingo/internal/i18n"
	"github.com/toeirei/lingo/internal/identity"
	"github.com/toeirei/lingo/internal/localization"
	"github.com/toeirei/lingo/internal/logging"
	"github.com/toeirei/lingo/internal/validation"
)

// Embedded holds the stock Views and Pages trees.
//
//go:embed all:Views all:Pages
var Embedded embed.FS

const (
	// LayoutPath is wrapped around every view unless NoLayout is set.
	LayoutPath = "Views/Shared/_Layout.html"
	sharedDir  = "Views/Shared"
	ext        = ".html"
)

// ErrViewNotFound is returned when no candidate file exists.
var ErrViewNotFound = errors.New("view not found")

// NotFoundError lists the locations searched for a view.
type NotFoundError struct {
	Name     string
	Searched []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("the view '%s' was not found. The following locations were searched:\n%s", e.Name, strings.Join(e.Searched, "\n"))
}

func (e *NotFoundError) Unwrap() error { return ErrViewNotFound }

// Data is passed to every template.
type Data struct {
	Title       string
	Culture     localization.RequestCulture
	User        *identity.Principal
	Model       any
	Errors      validation.FieldErrors
	Message     string
	RequestPath string
	RequestID   string
	Development bool
	// NoLayout renders the view alone.
	NoLayout bool
}

// Engine locates, parses and caches templates.
type Engine struct {
	fsys    fs.FS
	catalog *i18n.Catalog
	reload  bool

	mu    sync.RWMutex
	cache map[string]*template.Template
}

// New returns an engine over fsys. With reload set, templates are parsed on
// every render so edits show up without a restart.
func New(fsys fs.FS, catalog *i18n.Catalog, reload bool) *Engine {
	return &Engine{fsys: fsys, catalog: catalog, reload: reload, cache: map[string]*template.Template{}}
}

// cultureSuffixes returns the suffix chain for tag: "fr-CA", "fr", "".
func cultureSuffixes(tag language.Tag) []string {
	var out []string
	for t := tag; t != language.Und; {
		out = append(out, t.String())
		p := t.Parent()
		if p == t {
			break
		}
		t = p
	}
	return append(out, "")
}

// Candidates lists the files tried for name under dirs, in lookup order.
func Candidates(dirs []string, name string, ui language.Tag) []string {
	suffixes := cultureSuffixes(ui)
	out := make([]string, 0, len(dirs)*len(suffixes))
	for _, dir := range dirs {
		for _, s := range suffixes {
			file := name + ext
			if s != "" {
				file = name + "." + s + ext
			}
			out = append(out, path.Join(dir, file))
		}
	}
	return out
}

// Locate returns the first existing candidate.
func (e *Engine) Locate(dirs []string, name string, ui language.Tag) (string, error) {
	candidates := Candidates(dirs, name, ui)
	for _, c := range candidates {
		if st, err := fs.Stat(e.fsys, c); err == nil && !st.IsDir() {
			return c, nil
		}
	}
	return "", &NotFoundError{Name: name, Searched: candidates}
}

// ViewDirs returns the locations searched for a controller view.
func ViewDirs(controller string) []string {
	return []string{path.Join("Views", controller), sharedDir}
}

// PageDirs returns the locations searched for a page at pagePath, e.g.
// "/Identity/Account/Login" searches Pages/Identity/Account then
// Pages/Shared.
func PageDirs(pagePath string) (dir string, name string, dirs []string) {
	clean := strings.Trim(pagePath, "/")
	dir = path.Join("Pages", path.Dir(clean))
	name = path.Base(clean)
	return dir, name, []string{dir, "Pages/Shared"}
}

func (e *Engine) placeholderFuncs() template.FuncMap {
	return e.funcs(localization.NewRequestCulture(language.English))
}

func (e *Engine) funcs(rc localization.RequestCulture) template.FuncMap {
	return template.FuncMap{
		"T": func(id string, args ...any) string {
			if e.catalog == nil {
				return id
			}
			if len(args) > 0 && len(args)%2 == 0 {
				if _, isKey := args[0].(string); isKey {
					return e.catalog.T(rc.UICulture, id, pairs(args))
				}
			}
			return e.catalog.T(rc.UICulture, id, args...)
		},
		"num": func(v any) string {
			switch n := v.(type) {
			case int:
				return i18n.FormatInt(rc.Culture, int64(n))
			case int64:
				return i18n.FormatInt(rc.Culture, n)
			case float64:
				return i18n.FormatNumber(rc.Culture, n)
			default:
				return fmt.Sprint(v)
			}
		},
		"date":     func(t time.Time) string { return i18n.FormatDate(rc.Culture, t) },
		"longdate": func(t time.Time) string { return i18n.FormatLongDate(rc.Culture, t) },
		"culture":  func() string { return rc.UICulture.String() },
		"cultures": func() []CultureOption { return e.cultureOptions(rc.UICulture) },
		"year":     func() int { return time.Now().Year() },
	}
}

// pairs turns "Key", value, "Key2", value2 into template data.
func pairs(args []any) map[string]any {
	m := make(map[string]any, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		k, _ := args[i].(string)
		m[k] = args[i+1]
	}
	return m
}

// CultureOption feeds the language picker.
type CultureOption struct {
	Tag    string
	Label  string
	Active bool
}

func (e *Engine) cultureOptions(active language.Tag) []CultureOption {
	if e.catalog == nil {
		return nil
	}
	var out []CultureOption
	for _, t := range e.catalog.SupportedCultures() {
		out = append(out, CultureOption{Tag: t.String(), Label: i18n.DisplayName(t), Active: t == active})
	}
	return out
}

func (e *Engine) load(viewPath string, withLayout bool) (*template.Template, error) {
	key := viewPath
	if withLayout {
		key = LayoutPath + "|" + viewPath
	}
	if !e.reload {
		e.mu.RLock()
		t, ok := e.cache[key]
		e.mu.RUnlock()
		if ok {
			return t, nil
		}
	}

	root := template.New("root").Funcs(e.placeholderFuncs())
	if err := e.parsePartials(root); err != nil {
		return nil, err
	}
	if withLayout {
		if err := e.parseInto(root, "layout", LayoutPath); err != nil {
			return nil, err
		}
	}
	if err := e.parseInto(root, "body", viewPath); err != nil {
		return nil, err
	}

	if !e.reload {
		e.mu.Lock()
		e.cache[key] = root
		e.mu.Unlock()
	}
	logging.Debugf("views: parsed %s", key)
	return root, nil
}

func (e *Engine) parseInto(root *template.Template, name, file string) error {
	src, err := fs.ReadFile(e.fsys, file)
	if err != nil {
		return fmt.Errorf("read %s: %w", file, err)
	}
	if _, err := root.New(name).Parse(string(src)); err != nil {
		return fmt.Errorf("parse %s: %w", file, err)
	}
	return nil
}

// parsePartials registers Views/Shared/_*.html (except the layout) under
// their base name, e.g. "_LoginPartial".
func (e *Engine) parsePartials(root *template.Template) error {
	entries, err := fs.ReadDir(e.fsys, sharedDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	for _, entry := range entries {
		n := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(n, "_") || !strings.HasSuffix(n, ext) || path.Join(sharedDir, n) == LayoutPath {
			continue
		}
		if err := e.parseInto(root, strings.TrimSuffix(n, ext), path.Join(sharedDir, n)); err != nil {
			return err
		}
	}
	return nil
}

// Render executes the template at viewPath for the given culture.
func (e *Engine) Render(w io.Writer, viewPath string, data Data) error {
	t, err := e.load(viewPath, !data.NoLayout)
	if err != nil {
		return err
	}
	clone, err := t.Clone()
	if err != nil {
		return err
	}
	clone.Funcs(e.funcs(data.Culture))

	entry := "layout"
	if data.NoLayout {
		entry = "body"
	}
	// Buffer so a failing template never leaves a half-written page.
	var buf bytes.Buffer
	if err := clone.ExecuteTemplate(&buf, entry, data); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// RenderView locates controller/name for the UI culture and renders it.
func (e *Engine) RenderView(w io.Writer, controller, name string, data Data) error {
	p, err := e.Locate(ViewDirs(controller), name, data.Culture.UICulture)
	if err != nil {
		return err
	}
	return e.Render(w, p, data)
}

// RenderPage locates the page at pagePath for the UI culture and renders it.
func (e *Engine) RenderPage(w io.Writer, pagePath string, data Data) error {
	_, name, dirs := PageDirs(pagePath)
	p, err := e.Locate(dirs, name, data.Culture.UICulture)
	if err != nil {
		return err
	}
	return e.Render(w, p, data)
}
