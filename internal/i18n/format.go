// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import (
	"time"

	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DisplayName returns the name of tag in its own language, e.g. "français".
func DisplayName(tag language.Tag) string {
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return tag.String()
}

// FormatNumber formats v with the grouping and decimal separators of tag.
func FormatNumber(tag language.Tag, v float64) string {
	return message.NewPrinter(tag).Sprint(number.Decimal(v))
}

// FormatInt formats an integer with the grouping separator of tag.
func FormatInt(tag language.Tag, v int64) string {
	return message.NewPrinter(tag).Sprint(number.Decimal(v))
}

// dateTranslators maps base languages to CLDR calendars.
var dateTranslators = map[string]locales.Translator{
	"en": en.New(),
	"fr": fr.New(),
}

func translatorFor(tag language.Tag) locales.Translator {
	base, _ := tag.Base()
	if t, ok := dateTranslators[base.String()]; ok {
		return t
	}
	return dateTranslators["en"]
}

// FormatDate renders t as a short date in the calendar conventions of tag
// (1/2/06 in English, 02/01/2006 in French).
func FormatDate(tag language.Tag, t time.Time) string {
	return translatorFor(tag).FmtDateShort(t)
}

// FormatLongDate renders t as a long date, e.g. "January 2, 2006".
func FormatLongDate(tag language.Tag, t time.Time) string {
	return translatorFor(tag).FmtDateLong(t)
}
