// Copyright (c) 2026 ToeiRei
// Lingo - localized web application
// This source code is licensed under the MIT license found in the LICENSE file.

package controllers

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/toeirei/lingo/internal/identity"
	"github.com/toeirei/lingo/internal/logging"
	"github.com/toeirei/lingo/internal/model"
	"github.com/toeirei/lingo/internal/validation"
	"github.com/toeirei/lingo/internal/web/pipeline"
	"github.com/toeirei/lingo/internal/web/routing"
)

// Account page paths.
const (
	RegisterPath             = "/Identity/Account/Register"
	RegisterConfirmationPath = "/Identity/Account/RegisterConfirmation"
	ConfirmEmailPath         = "/Identity/Account/ConfirmEmail"
	LoginPath                = "/Identity/Account/Login"
	LogoutPath               = "/Identity/Account/Logout"
	ManagePath               = "/Identity/Account/Manage"
	AccessDeniedPath         = "/Identity/Account/AccessDenied"

	ForgotPasswordPath             = "/Identity/Account/ForgotPassword"
	ForgotPasswordConfirmationPath = "/Identity/Account/ForgotPasswordConfirmation"
	ResetPasswordPath              = "/Identity/Account/ResetPassword"
	ResetPasswordConfirmationPath  = "/Identity/Account/ResetPasswordConfirmation"
)

type RegisterForm struct {
	Email           string `validate:"required,email" display:"Field.Email"`
	Password        string `validate:"required" display:"Field.Password"`
	ConfirmPassword string `validate:"eqfield=Password" display:"Field.ConfirmPassword" errmsg:"eqfield=Validation.PasswordMismatch"`
	ReturnURL       string `validate:"-"`
}

type LoginForm struct {
	Email      string `validate:"required,email" display:"Field.Email"`
	Password   string `validate:"required" display:"Field.Password"`
	RememberMe bool
	ReturnURL  string `validate:"-"`
}

type ChangePasswordForm struct {
	OldPassword     string `validate:"required" display:"Field.CurrentPassword"`
	NewPassword     string `validate:"required" display:"Field.NewPassword"`
	ConfirmPassword string `validate:"eqfield=NewPassword" display:"Field.ConfirmNewPassword" errmsg:"eqfield=Validation.PasswordMismatch"`
}

type ForgotPasswordForm struct {
	Email string `validate:"required,email" display:"Field.Email"`
}

type ResetPasswordForm struct {
	UserID          string `validate:"-"`
	Code            string `validate:"-"`
	Password        string `validate:"required" display:"Field.Password"`
	ConfirmPassword string `validate:"eqfield=Password" display:"Field.ConfirmPassword" errmsg:"eqfield=Validation.PasswordMismatch"`
}

type registerConfirmationModel struct {
	Email           string
	ConfirmationURL string
}

type confirmEmailModel struct {
	Confirmed bool
}

// AccountPages returns the Identity account pages.
func AccountPages(d *Deps) []routing.Page {
	both := []string{http.MethodGet, http.MethodPost}
	return []routing.Page{
		{Path: RegisterPath, Methods: both, Handler: d.register},
		{Path: RegisterConfirmationPath, Handler: d.registerConfirmation},
		{Path: ConfirmEmailPath, Handler: d.confirmEmail},
		{Path: LoginPath, Methods: both, Handler: d.login},
		{Path: LogoutPath, Methods: both, Handler: d.logout},
		{Path: ManagePath, Methods: both, Authorize: true, Handler: d.manage},
		{Path: AccessDeniedPath, Handler: d.accessDenied},
		{Path: ForgotPasswordPath, Methods: both, Handler: d.forgotPassword},
		{Path: ForgotPasswordConfirmationPath, Handler: d.forgotPasswordConfirmation},
		{Path: ResetPasswordPath, Methods: both, Handler: d.resetPassword},
		{Path: ResetPasswordConfirmationPath, Handler: d.resetPasswordConfirmation},
	}
}

// passwordErrors localizes password policy failures into one message.
func (d *Deps) passwordErrors(r *http.Request, pe *identity.PasswordError) string {
	opts := d.Identity.Options().Password
	msgs := make([]string, 0, len(pe.Codes))
	for _, code := range pe.Codes {
		msgs = append(msgs, d.t(r, "identity."+code, map[string]any{
			"Length": opts.RequiredLength,
			"Count":  opts.RequiredUniqueChars,
		}))
	}
	return strings.Join(msgs, " ")
}

func (d *Deps) register(w http.ResponseWriter, r *http.Request) {
	form := RegisterForm{ReturnURL: returnURL(r)}
	if r.Method != http.MethodPost {
		d.page(w, r, http.StatusOK, RegisterPath, d.data(r, "Register.Title", form))
		return
	}
	form.Email = strings.TrimSpace(r.PostFormValue("Email"))
	form.Password = r.PostFormValue("Password")
	form.ConfirmPassword = r.PostFormValue("ConfirmPassword")

	vd := d.data(r, "Register.Title", form)
	if errs := d.validate(r, form); errs != nil {
		vd.Errors = errs
		d.page(w, r, http.StatusOK, RegisterPath, vd)
		return
	}

	u, err := d.Identity.Register(r.Context(), form.Email, form.Password)
	if err != nil {
		var pe *identity.PasswordError
		switch {
		case errors.As(err, &pe):
			vd.Errors = validation.FieldErrors{"Password": d.passwordErrors(r, pe)}
		case errors.Is(err, identity.ErrDuplicateEmail):
			vd.Errors = validation.FieldErrors{"": d.t(r, "Register.DuplicateEmail", map[string]any{"Email": form.Email})}
		default:
			pipeline.Fail(r, err)
			return
		}
		d.page(w, r, http.StatusOK, RegisterPath, vd)
		return
	}

	link, err := d.confirmationLink(r, u)
	if err != nil {
		pipeline.Fail(r, err)
		return
	}
	body := d.t(r, "RegisterConfirmation.Body", map[string]any{"Link": link})
	if err := d.Email.SendEmail(r.Context(), u.Email, d.t(r, "RegisterConfirmation.Subject"), body); err != nil {
		logging.With("user", u.ID).Warnf("send confirmation email: %v", err)
	}

	if d.Identity.Options().RequireConfirmedAccount {
		q := url.Values{"email": {u.Email}, "returnUrl": {form.ReturnURL}}
		http.Redirect(w, r, RegisterConfirmationPath+"?"+q.Encode(), http.StatusFound)
		return
	}
	res, err := d.Identity.PasswordSignIn(r.Context(), form.Email, form.Password)
	if err != nil {
		pipeline.Fail(r, err)
		return
	}
	d.Identity.SetSessionCookie(w, r, res, false)
	localRedirect(w, r, form.ReturnURL)
}

// confirmationLink issues a confirmation token and returns the absolute
// ConfirmEmail URL carrying it.
func (d *Deps) confirmationLink(r *http.Request, u *model.User) (string, error) {
	code, err := d.Identity.GenerateEmailConfirmationToken(r.Context(), u)
	if err != nil {
		return "", err
	}
	return absoluteURL(r, ConfirmEmailPath, url.Values{"userId": {u.ID}, "code": {code}}), nil
}

func (d *Deps) registerConfirmation(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	u, err := d.Identity.FindByEmail(r.Context(), email)
	if errors.Is(err, identity.ErrUserNotFound) {
		d.NotFound(w, r)
		return
	}
	if err != nil {
		pipeline.Fail(r, err)
		return
	}
	m := registerConfirmationModel{Email: u.Email}
	if d.Development && d.DisplayConfirmationLink && !u.EmailConfirmed {
		if m.ConfirmationURL, err = d.confirmationLink(r, u); err != nil {
			pipeline.Fail(r, err)
			return
		}
	}
	d.page(w, r, http.StatusOK, RegisterConfirmationPath, d.data(r, "RegisterConfirmation.Title", m))
}

func (d *Deps) confirmEmail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, code := q.Get("userId"), q.Get("code")
	if userID == "" || code == "" {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	err := d.Identity.ConfirmEmail(r.Context(), userID, code)
	switch {
	case errors.Is(err, identity.ErrUserNotFound):
		d.NotFound(w, r)
		return
	case err != nil && !errors.Is(err, identity.ErrInvalidToken):
		pipeline.Fail(r, err)
		return
	}
	d.page(w, r, http.StatusOK, ConfirmEmailPath, d.data(r, "ConfirmEmail.Title", confirmEmailModel{Confirmed: err == nil}))
}

func (d *Deps) login(w http.ResponseWriter, r *http.Request) {
	form := LoginForm{ReturnURL: returnURL(r)}
	if r.Method != http.MethodPost {
		d.page(w, r, http.StatusOK, LoginPath, d.data(r, "Login.Title", form))
		return
	}
	form.Email = strings.TrimSpace(r.PostFormValue("Email"))
	form.Password = r.PostFormValue("Password")
	form.RememberMe = r.PostFormValue("RememberMe") == "true"

	vd := d.data(r, "Login.Title", form)
	if errs := d.validate(r, form); errs != nil {
		vd.Errors = errs
		d.page(w, r, http.StatusOK, LoginPath, vd)
		return
	}

	res, err := d.Identity.PasswordSignIn(r.Context(), form.Email, form.Password)
	if err == nil {
		d.Identity.SetSessionCookie(w, r, res, form.RememberMe)
		localRedirect(w, r, form.ReturnURL)
		return
	}
	var msg string
	switch {
	case errors.Is(err, identity.ErrNotConfirmed):
		msg = "Login.NotConfirmed"
	case errors.Is(err, identity.ErrLockedOut):
		msg = "Login.LockedOut"
	case errors.Is(err, identity.ErrInvalidCredentials):
		msg = "Login.Invalid"
	default:
		pipeline.Fail(r, err)
		return
	}
	vd.Errors = validation.FieldErrors{"": d.t(r, msg)}
	d.page(w, r, http.StatusOK, LoginPath, vd)
}

func (d *Deps) logout(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		if err := d.Identity.SignOut(r.Context(), d.Identity.SessionToken(r)); err != nil {
			pipeline.Fail(r, err)
			return
		}
		d.Identity.ClearSessionCookie(w, r)
		if p := identity.PrincipalFrom(r.Context()); p != nil {
			logging.With("user", p.UserID).Info("user signed out")
		}
		if target := r.PostFormValue("returnUrl"); isLocalURL(target) {
			http.Redirect(w, r, target, http.StatusFound)
			return
		}
		vd := d.data(r, "Logout.Title", nil)
		vd.User = nil
		d.page(w, r, http.StatusOK, LogoutPath, vd)
		return
	}
	d.page(w, r, http.StatusOK, LogoutPath, d.data(r, "Logout.Title", nil))
}

func (d *Deps) manage(w http.ResponseWriter, r *http.Request) {
	p := identity.PrincipalFrom(r.Context())
	if p == nil {
		http.Redirect(w, r, LoginPath, http.StatusFound)
		return
	}
	vd := d.data(r, "Manage.Title", ChangePasswordForm{})
	if r.Method != http.MethodPost {
		d.page(w, r, http.StatusOK, ManagePath, vd)
		return
	}

	form := ChangePasswordForm{
		OldPassword:     r.PostFormValue("OldPassword"),
		NewPassword:     r.PostFormValue("NewPassword"),
		ConfirmPassword: r.PostFormValue("ConfirmPassword"),
	}
	if errs := d.validate(r, form); errs != nil {
		vd.Errors = errs
		d.page(w, r, http.StatusOK, ManagePath, vd)
		return
	}
	u, err := d.Identity.FindByID(r.Context(), p.UserID)
	if err != nil {
		pipeline.Fail(r, err)
		return
	}
	if err := d.Identity.ChangePassword(r.Context(), u, form.OldPassword, form.NewPassword); err != nil {
		var pe *identity.PasswordError
		switch {
		case errors.As(err, &pe):
			vd.Errors = validation.FieldErrors{"NewPassword": d.passwordErrors(r, pe)}
		case errors.Is(err, identity.ErrInvalidCredentials):
			vd.Errors = validation.FieldErrors{"OldPassword": d.t(r, "Login.Invalid")}
		default:
			pipeline.Fail(r, err)
			return
		}
		d.page(w, r, http.StatusOK, ManagePath, vd)
		return
	}

	// Changing the password ends every session; sign the user back in.
	res, err := d.Identity.PasswordSignIn(r.Context(), u.Email, form.NewPassword)
	if err != nil {
		pipeline.Fail(r, err)
		return
	}
	d.Identity.SetSessionCookie(w, r, res, false)
	logging.With("user", u.ID).Info("password changed")
	vd.Message = d.t(r, "Manage.PasswordChanged")
	d.page(w, r, http.StatusOK, ManagePath, vd)
}

func (d *Deps) accessDenied(w http.ResponseWriter, r *http.Request) {
	d.page(w, r, http.StatusForbidden, AccessDeniedPath, d.data(r, "AccessDenied.Title", nil))
}

func (d *Deps) forgotPassword(w http.ResponseWriter, r *http.Request) {
	vd := d.data(r, "ForgotPassword.Title", ForgotPasswordForm{})
	if r.Method != http.MethodPost {
		d.page(w, r, http.StatusOK, ForgotPasswordPath, vd)
		return
	}
	form := ForgotPasswordForm{Email: strings.TrimSpace(r.PostFormValue("Email"))}
	vd.Model = form
	if errs := d.validate(r, form); errs != nil {
		vd.Errors = errs
		d.page(w, r, http.StatusOK, ForgotPasswordPath, vd)
		return
	}

	// Unknown and unconfirmed addresses get the same answer as real ones.
	u, err := d.Identity.FindByEmail(r.Context(), form.Email)
	switch {
	case errors.Is(err, identity.ErrUserNotFound):
	case err != nil:
		pipeline.Fail(r, err)
		return
	case u.EmailConfirmed:
		code, err := d.Identity.GeneratePasswordResetToken(r.Context(), u)
		if err != nil {
			pipeline.Fail(r, err)
			return
		}
		link := absoluteURL(r, ResetPasswordPath, url.Values{"userId": {u.ID}, "code": {code}})
		body := d.t(r, "ForgotPassword.Body", map[string]any{"Link": link})
		if err := d.Email.SendEmail(r.Context(), u.Email, d.t(r, "ForgotPassword.Subject"), body); err != nil {
			logging.With("user", u.ID).Warnf("send password reset email: %v", err)
		}
	}
	http.Redirect(w, r, ForgotPasswordConfirmationPath, http.StatusFound)
}

func (d *Deps) forgotPasswordConfirmation(w http.ResponseWriter, r *http.Request) {
	d.page(w, r, http.StatusOK, ForgotPasswordConfirmationPath, d.data(r, "ForgotPasswordConfirmation.Title", nil))
}

func (d *Deps) resetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		q := r.URL.Query()
		if q.Get("userId") == "" || q.Get("code") == "" {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
		form := ResetPasswordForm{UserID: q.Get("userId"), Code: q.Get("code")}
		d.page(w, r, http.StatusOK, ResetPasswordPath, d.data(r, "ResetPassword.Title", form))
		return
	}
	form := ResetPasswordForm{
		UserID:          r.PostFormValue("UserId"),
		Code:            r.PostFormValue("Code"),
		Password:        r.PostFormValue("Password"),
		ConfirmPassword: r.PostFormValue("ConfirmPassword"),
	}
	vd := d.data(r, "ResetPassword.Title", form)
	if errs := d.validate(r, form); errs != nil {
		vd.Errors = errs
		d.page(w, r, http.StatusOK, ResetPasswordPath, vd)
		return
	}
	err := d.Identity.ResetPassword(r.Context(), form.UserID, form.Code, form.Password)
	var pe *identity.PasswordError
	switch {
	case err == nil:
		logging.With("user", form.UserID).Info("password reset")
		http.Redirect(w, r, ResetPasswordConfirmationPath, http.StatusFound)
		return
	case errors.As(err, &pe):
		vd.Errors = validation.FieldErrors{"Password": d.passwordErrors(r, pe)}
	case errors.Is(err, identity.ErrInvalidToken), errors.Is(err, identity.ErrUserNotFound):
		vd.Errors = validation.FieldErrors{"": d.t(r, "ResetPassword.Invalid")}
	default:
		pipeline.Fail(r, err)
		return
	}
	d.page(w, r, http.StatusOK, ResetPasswordPath, vd)
}

func (d *Deps) resetPasswordConfirmation(w http.ResponseWriter, r *http.Request) {
	d.page(w, r, http.StatusOK, ResetPasswordConfirmationPath, d.data(r, "ResetPasswordConfirmation.Title", nil))
}
