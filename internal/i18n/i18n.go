// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package i18n loads the translated resources of the application and formats
// numbers and dates per culture. Resources are YAML message files named
// <Name>.<culture>.yaml; the embedded set is overlaid with files found in the
// configured resources directory.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/toeirei/lingo/internal/logging"
)

// resourceFS embeds the stock translations.
//
//go:embed Resources/*.yaml
var resourceFS embed.FS

// DefaultCultures is the stock supported set; the first entry is the default.
var DefaultCultures = []language.Tag{language.English, language.French}

// Catalog holds the message bundle and a localizer per culture.
type Catalog struct {
	bundle    *i18n.Bundle
	cultures  []language.Tag
	mu        sync.RWMutex
	localizer map[string]*i18n.Localizer
}

// New builds a catalog from the embedded resources and, when dir is not
// empty and exists, the YAML files inside it. Files on disk override
// embedded messages with the same id. cultures[0] is the fallback language.
func New(dir string, cultures []language.Tag) (*Catalog, error) {
	if len(cultures) == 0 {
		cultures = DefaultCultures
	}
	bundle := i18n.NewBundle(cultures[0])
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	bundle.RegisterUnmarshalFunc("yml", yaml.Unmarshal)

	if err := loadFS(bundle, resourceFS, "Resources"); err != nil {
		return nil, err
	}
	if dir != "" {
		if st, err := os.Stat(dir); err == nil && st.IsDir() {
			if err := loadFS(bundle, os.DirFS(dir), "."); err != nil {
				return nil, fmt.Errorf("load resources from %s: %w", dir, err)
			}
		} else {
			logging.Debugf("i18n: resources directory %s not found, using embedded resources", dir)
		}
	}

	return &Catalog{
		bundle:    bundle,
		cultures:  append([]language.Tag(nil), cultures...),
		localizer: map[string]*i18n.Localizer{},
	}, nil
}

func loadFS(bundle *i18n.Bundle, fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		data, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, e.Name())))
		if err != nil {
			return err
		}
		if _, err := bundle.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("parse %s: %w", e.Name(), err)
		}
	}
	return nil
}

// SupportedCultures returns the cultures the catalog was built for.
func (c *Catalog) SupportedCultures() []language.Tag {
	return append([]language.Tag(nil), c.cultures...)
}

// Localizer returns the cached localizer for tag. Lookups fall back from
// the full tag to its base language and then to the default culture.
func (c *Catalog) Localizer(tag language.Tag) *i18n.Localizer {
	key := tag.String()
	c.mu.RLock()
	l, ok := c.localizer[key]
	c.mu.RUnlock()
	if ok {
		return l
	}

	langs := []string{key}
	if base, conf := tag.Base(); conf != language.No && base.String() != key {
		langs = append(langs, base.String())
	}
	l = i18n.NewLocalizer(c.bundle, langs...)

	c.mu.Lock()
	c.localizer[key] = l
	c.mu.Unlock()
	return l
}

// T translates messageID for tag. A single map argument is used as
// template data; other arguments are applied fmt-style to the translation.
// Unknown ids return the id itself.
func (c *Catalog) T(tag language.Tag, messageID string, args ...any) string {
	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(args) == 1 {
		if data, ok := args[0].(map[string]any); ok {
			cfg.TemplateData = data
			args = nil
		}
	}
	msg, err := c.Localizer(tag).Localize(cfg)
	if err != nil {
		msg = messageID
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Has reports whether messageID resolves for tag without falling back to
// the id.
func (c *Catalog) Has(tag language.Tag, messageID string) bool {
	_, err := c.Localizer(tag).Localize(&i18n.LocalizeConfig{MessageID: messageID})
	return err == nil
}
