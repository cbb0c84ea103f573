// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

// Package validation checks annotated form models and returns messages in
// the request's UI culture. Rules come from `validate` struct tags, field
// display names from `display` tags holding resource ids, and `errmsg`
// tags ("eqfield=Some.Id") replace the built-in message of one rule.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
	"golang.org/x/text/language"
)

// Localizer resolves resource ids; *i18n.Catalog implements it.
type Localizer interface {
	T(tag language.Tag, messageID string, args ...any) string
}

// FieldErrors maps a struct field name to its localized message.
type FieldErrors map[string]string

// Error joins the messages, making FieldErrors usable as an error.
func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for k, v := range fe {
		parts = append(parts, k+": "+v)
	}
	return strings.Join(parts, "; ")
}

// Validator wraps validator/v10 with per-culture translators.
type Validator struct {
	validate *validator.Validate
	uni      *ut.UniversalTranslator
	loc      Localizer
}

// New registers the English and French translations and the display-name
// hook. loc may be nil, in which case display ids are shown verbatim.
func New(loc Localizer) (*Validator, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if d := f.Tag.Get("display"); d != "" && d != "-" {
			return d
		}
		return f.Name
	})

	enLocale := en.New()
	uni := ut.New(enLocale, enLocale, fr.New())
	enTrans, _ := uni.GetTranslator("en")
	frTrans, _ := uni.GetTranslator("fr")
	if err := en_translations.RegisterDefaultTranslations(v, enTrans); err != nil {
		return nil, fmt.Errorf("register en translations: %w", err)
	}
	if err := fr_translations.RegisterDefaultTranslations(v, frTrans); err != nil {
		return nil, fmt.Errorf("register fr translations: %w", err)
	}
	return &Validator{validate: v, uni: uni, loc: loc}, nil
}

func (v *Validator) translator(tag language.Tag) ut.Translator {
	base, _ := tag.Base()
	if t, found := v.uni.GetTranslator(base.String()); found {
		return t
	}
	return v.uni.GetFallback()
}

func (v *Validator) display(tag language.Tag, id string) string {
	if v.loc == nil {
		return id
	}
	return v.loc.T(tag, id)
}

// Validate checks s and returns nil when it is valid.
func (v *Validator) Validate(tag language.Tag, s any) FieldErrors {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return FieldErrors{"": err.Error()}
	}

	overrides := messageOverrides(s)
	trans := v.translator(tag)
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		name := fe.StructField()
		if _, seen := out[name]; seen {
			continue
		}
		if id, ok := overrides[name][fe.Tag()]; ok {
			out[name] = v.display(tag, id)
			continue
		}
		out[name] = strings.ReplaceAll(fe.Translate(trans), fe.Field(), v.display(tag, fe.Field()))
	}
	return out
}

// messageOverrides collects errmsg tags ("rule=id,rule=id") of the
// top-level struct fields.
func messageOverrides(s any) map[string]map[string]string {
	t := reflect.TypeOf(s)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}
	out := map[string]map[string]string{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		overrides := f.Tag.Get("errmsg")
		if overrides == "" {
			continue
		}
		rules := map[string]string{}
		for _, part := range strings.Split(overrides, ",") {
			if rule, id, ok := strings.Cut(part, "="); ok {
				rules[strings.TrimSpace(rule)] = strings.TrimSpace(id)
			}
		}
		out[f.Name] = rules
	}
	return out
}
