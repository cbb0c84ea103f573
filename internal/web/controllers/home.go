// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package controllers

import (
	"net/http"
	"time"

	"github.com/toeirei/lingo/internal/localization"
	"github.com/toeirei/lingo/internal/logging"
	"github.com/toeirei/lingo/internal/web/pipeline"
	"github.com/toeirei/lingo/internal/web/routing"
)

// IndexModel feeds the home page formatting samples.
type IndexModel struct {
	Now    time.Time
	Sample float64
}

// ContactForm is posted by the contact page.
type ContactForm struct {
	Name    string `validate:"required,max=100" display:"Field.Name"`
	Email   string `validate:"required,email" display:"Field.Email"`
	Message string `validate:"required,max=2000" display:"Field.Message"`
}

// Home returns the Home controller.
func Home(d *Deps) routing.Controller {
	return routing.Controller{Name: "Home", Actions: []routing.Action{
		{Name: "Index", Handler: d.homeIndex},
		{Name: "Privacy", Handler: d.homePrivacy},
		{Name: "Error", Methods: []string{http.MethodGet, http.MethodPost}, Handler: d.homeError},
		{Name: "SetLanguage", Methods: []string{http.MethodPost}, Handler: d.homeSetLanguage},
		{Name: "Contact", Methods: []string{http.MethodGet, http.MethodPost}, Handler: d.homeContact},
	}}
}

func (d *Deps) homeIndex(w http.ResponseWriter, r *http.Request) {
	d.view(w, r, http.StatusOK, "Index", d.data(r, "Home.Title", IndexModel{Now: d.now(), Sample: 1234.5}))
}

func (d *Deps) homePrivacy(w http.ResponseWriter, r *http.Request) {
	d.view(w, r, http.StatusOK, "Privacy", d.data(r, "Privacy.Title", nil))
}

// homeError shows the generic error page. Only the request id is exposed.
func (d *Deps) homeError(w http.ResponseWriter, r *http.Request) {
	vd := d.data(r, "Error.Title", nil)
	if ex := pipeline.ExceptionFrom(r.Context()); ex != nil {
		vd.RequestID = ex.RequestID
	}
	w.Header().Set("Cache-Control", "no-cache, no-store")
	d.view(w, r, http.StatusOK, "Error", vd)
}

func (d *Deps) homeSetLanguage(w http.ResponseWriter, r *http.Request) {
	tag, ok := d.supportedCulture(r.PostFormValue("culture"))
	if !ok {
		http.Error(w, d.t(r, "Validation.InvalidCulture"), http.StatusBadRequest)
		return
	}
	localization.SetCultureCookie(w, r, localization.NewRequestCulture(tag))
	localRedirect(w, r, r.PostFormValue("returnUrl"))
}

func (d *Deps) homeContact(w http.ResponseWriter, r *http.Request) {
	form := ContactForm{}
	if r.Method != http.MethodPost {
		d.view(w, r, http.StatusOK, "Contact", d.data(r, "Contact.Title", form))
		return
	}
	form.Name = r.PostFormValue("Name")
	form.Email = r.PostFormValue("Email")
	form.Message = r.PostFormValue("Message")

	vd := d.data(r, "Contact.Title", form)
	if errs := d.validate(r, form); errs != nil {
		vd.Errors = errs
		d.view(w, r, http.StatusOK, "Contact", vd)
		return
	}
	logging.With("email", form.Email, "culture", vd.Culture.UICulture.String()).Info("contact message received")
	vd.Message = d.t(r, "Contact.Thanks", map[string]any{"Name": form.Name})
	vd.Model = ContactForm{}
	d.view(w, r, http.StatusOK, "Contact", vd)
}
