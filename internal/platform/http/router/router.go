package router

import (
	"errors"
	"net/http"
	"strings"

	"lastautoindex/internal/app"
	"lastautoindex/internal/platform/login"
	"lastautoindex/internal/ui"

	"github.com/Data-Corruption/stdx/xhttp"
	"github.com/Data-Corruption/stdx/xlog"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// New builds the router for a bootstrapped app.
func New(a *app.App, tmpl *ui.Templates) *chi.Mux {
	r := chi.NewRouter()

	// inject logger into request context so we can use xhttp.Error() handler
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(xlog.IntoContext(r.Context(), a.Log)))
		})
	})

	// basic security hardening
	if !a.IsDev() && strings.HasPrefix(a.BaseURL, "https://") {
		r.Use(httpsRedirect)
	}
	r.Use(securityHeaders)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		page, err := a.Page(w, r)
		if err != nil {
			xhttp.Error(r.Context(), w, &xhttp.Err{
				Code: http.StatusInternalServerError,
				Msg:  "Failed to prepare page",
				Err:  err,
			})
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if err := tmpl.Index(w, page); err != nil {
			a.Log.Errorf("failed to render index: %v", err)
		}
	})

	if a.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))
	}

	if a.Login.Enabled() {
		r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
			err := a.Login.SignIn(w, r, r.PostFormValue("user"), r.PostFormValue("pass"))
			if errors.Is(err, login.ErrInvalidCredentials) {
				xhttp.Error(r.Context(), w, &xhttp.Err{Code: http.StatusUnauthorized, Msg: "Invalid username or password", Err: err})
				return
			}
			if err != nil {
				xhttp.Error(r.Context(), w, &xhttp.Err{Code: http.StatusInternalServerError, Msg: "Failed to sign in", Err: err})
				return
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
		})
		r.Post("/logout", func(w http.ResponseWriter, r *http.Request) {
			if err := a.Login.SignOut(w, r); err != nil {
				xhttp.Error(r.Context(), w, &xhttp.Err{Code: http.StatusInternalServerError, Msg: "Failed to sign out", Err: err})
				return
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
		})
	}

	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; frame-ancestors 'self'")
		h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
		next.ServeHTTP(w, r)
	})
}

func httpsRedirect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "http" || (r.TLS == nil && r.Header.Get("X-Forwarded-Proto") == "") {
			if r.Host != "localhost" && r.Host != "127.0.0.1" && r.Host != "" {
				target := "https://" + r.Host + r.URL.RequestURI()
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
