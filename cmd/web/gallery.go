package main

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/crucial707/asset-vault/internal/apiclient"
	"github.com/crucial707/asset-vault/internal/config"
	"github.com/crucial707/asset-vault/internal/middleware"
	"github.com/crucial707/asset-vault/internal/models"
)

//go:embed templates
var templatesFS embed.FS

const (
	tokenCookie = "dam_token"
	roleCookie  = "dam_role"
	userCookie  = "dam_user"

	pageSize     = 24
	uploadField  = "file"
	uploadMemory = 8 << 20

	pageCSP = "default-src 'self'; img-src 'self' http: https: data:; style-src 'self' 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'"
)

// session is what the gallery remembers about a signed in browser.
// Role only decides which controls are rendered; the API authorizes every upload itself.
type session struct {
	Token    string
	Username string
	Role     string
}

func (s session) IsAdmin() bool { return s.Role == models.RoleAdmin }

type galleryPage struct {
	Session  session
	LoggedIn bool

	Online  bool
	Message string

	Assets   []models.Asset
	PrevPage int
	NextPage int
	HasPrev  bool
	HasNext  bool

	Notice string
	Error  string
}

type loginPage struct {
	Next     string
	Username string
	Error    string
}

type gallery struct {
	cfg   config.WebConfig
	log   zerolog.Logger
	pages map[string]*template.Template
}

func newGallery(cfg config.WebConfig, log zerolog.Logger) *gallery {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"gallery.html", "login.html"} {
		pages[name] = template.Must(template.ParseFS(templatesFS, "templates/layout.html", "templates/"+name))
	}
	return &gallery{cfg: cfg, log: log, pages: pages}
}

func (g *gallery) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer(g.log))
	r.Use(middleware.RequestLog(g.log))
	r.Use(middleware.Prometheus)

	// Health (no auth, no templates)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(chimw.SetHeader("Content-Security-Policy", pageCSP))
		r.Use(chimw.SetHeader("X-Content-Type-Options", "nosniff"))
		r.Use(chimw.SetHeader("Referrer-Policy", "same-origin"))

		r.Get("/", g.home)
		r.Get("/login", g.loginForm)
		r.With(middleware.MaxBytes(middleware.DefaultMaxBodyBytes)).Post("/login", g.loginSubmit)
		r.Get("/logout", g.logout)

		r.With(requireSession, middleware.MaxBytes(g.cfg.MaxUploadBytes)).Post("/upload", g.upload)
	})
	return r
}

// ==========================
// Session cookies
// ==========================

func readSession(r *http.Request) (session, bool) {
	c, err := r.Cookie(tokenCookie)
	if err != nil || c.Value == "" {
		return session{}, false
	}
	s := session{Token: c.Value}
	if c, err := r.Cookie(userCookie); err == nil {
		s.Username, _ = url.QueryUnescape(c.Value)
	}
	if c, err := r.Cookie(roleCookie); err == nil {
		s.Role = c.Value
	}
	return s, true
}

func (g *gallery) setSession(w http.ResponseWriter, s session) {
	maxAge := int(g.cfg.SessionTTL / time.Second)
	g.setCookies(w, maxAge, s.Token, s.Role, url.QueryEscape(s.Username))
}

func (g *gallery) clearSession(w http.ResponseWriter) {
	g.setCookies(w, -1, "", "", "")
}

func (g *gallery) setCookies(w http.ResponseWriter, maxAge int, token, role, user string) {
	for _, c := range [][2]string{{tokenCookie, token}, {roleCookie, role}, {userCookie, user}} {
		http.SetCookie(w, &http.Cookie{
			Name:     c[0],
			Value:    c[1],
			Path:     "/",
			MaxAge:   maxAge,
			HttpOnly: true,
			Secure:   g.cfg.CookieSecure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// requireSession sends browsers without a token to the login page.
func requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := readSession(r); !ok {
			http.Redirect(w, r, "/login?next="+url.QueryEscape("/"), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return "/"
	}
	return next
}

// client returns an API client that forwards the browser's address so the
// API rate limits each visitor rather than the gallery as a whole. The API
// honours it only when the gallery is listed in TRUSTED_PROXIES.
func (g *gallery) client(r *http.Request, token string) *apiclient.Client {
	c := apiclient.New(g.cfg.APIURL, token)
	c.HTTP.Timeout = g.cfg.APITimeout
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		c.Header = http.Header{"X-Forwarded-For": {host}}
	}
	return c
}

// ==========================
// Gallery (GET /)
// ==========================

func (g *gallery) home(w http.ResponseWriter, r *http.Request) {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 0 {
		page = 0
	}
	data := g.load(r, page)
	if name := r.URL.Query().Get("uploaded"); name != "" {
		data.Notice = "uploaded " + name
	}
	g.render(w, http.StatusOK, "gallery.html", data)
}

// load fetches the API status and one page of assets. Failures are shown on
// the page rather than failing the request.
func (g *gallery) load(r *http.Request, page int) galleryPage {
	sess, loggedIn := readSession(r)
	data := galleryPage{Session: sess, LoggedIn: loggedIn}
	ctx := r.Context()
	api := g.client(r, "")

	var status struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := api.Get(ctx, "/", nil, &status); err != nil {
		g.log.Warn().Err(err).Msg("api status check failed")
	} else {
		data.Online = status.Status == "online"
		data.Message = status.Message
	}

	// One extra row tells whether a next page exists.
	q := url.Values{
		"skip":  {strconv.Itoa(page * pageSize)},
		"limit": {strconv.Itoa(pageSize + 1)},
	}
	var assets []models.Asset
	if err := api.Get(ctx, "/assets/", q, &assets); err != nil {
		g.log.Error().Err(err).Msg("list assets")
		data.Error = "could not load assets"
	}
	if len(assets) > pageSize {
		assets = assets[:pageSize]
		data.HasNext = true
		data.NextPage = page + 1
	}
	if page > 0 {
		data.HasPrev = true
		data.PrevPage = page - 1
	}
	data.Assets = assets
	return data
}

// ==========================
// Login / Logout
// ==========================

func (g *gallery) loginForm(w http.ResponseWriter, r *http.Request) {
	next := safeNext(r.URL.Query().Get("next"))
	if _, ok := readSession(r); ok {
		http.Redirect(w, r, next, http.StatusFound)
		return
	}
	g.render(w, http.StatusOK, "login.html", loginPage{Next: next})
}

func (g *gallery) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		g.render(w, http.StatusBadRequest, "login.html", loginPage{Next: "/", Error: "invalid form"})
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	page := loginPage{Next: safeNext(r.PostForm.Get("next")), Username: username}
	if username == "" || password == "" {
		page.Error = "username and password are required"
		g.render(w, http.StatusBadRequest, "login.html", page)
		return
	}

	var out struct {
		AccessToken string `json:"access_token"`
		Role        string `json:"role"`
	}
	err := g.client(r, "").PostForm(r.Context(), "/token",
		url.Values{"username": {username}, "password": {password}}, &out)
	var apiErr *apiclient.APIError
	switch {
	case errors.As(err, &apiErr):
		status := http.StatusUnauthorized
		if apiErr.Status == http.StatusTooManyRequests {
			status = http.StatusTooManyRequests
		}
		page.Error = apiErr.Message
		g.render(w, status, "login.html", page)
		return
	case err != nil:
		g.log.Error().Err(err).Msg("login: api unreachable")
		page.Error = "asset service unavailable"
		g.render(w, http.StatusBadGateway, "login.html", page)
		return
	case out.AccessToken == "":
		page.Error = "invalid login response"
		g.render(w, http.StatusBadGateway, "login.html", page)
		return
	}

	g.setSession(w, session{Token: out.AccessToken, Username: username, Role: out.Role})
	g.log.Info().Str("username", username).Str("role", out.Role).Msg("signed in")
	http.Redirect(w, r, page.Next, http.StatusSeeOther)
}

func (g *gallery) logout(w http.ResponseWriter, r *http.Request) {
	g.clearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// ==========================
// Upload (POST /upload, admin)
// ==========================

// upload forwards the chosen file to the API's POST /upload/ with the
// session's bearer token. Failures re-render the gallery with the reason.
func (g *gallery) upload(w http.ResponseWriter, r *http.Request) {
	sess, _ := readSession(r)
	fail := func(status int, msg string) {
		data := g.load(r, 0)
		data.Error = msg
		g.render(w, status, "gallery.html", data)
	}

	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		if middleware.BodyTooLarge(err) {
			fail(http.StatusRequestEntityTooLarge, "file is too large")
			return
		}
		fail(http.StatusBadRequest, "choose an image to upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		fail(http.StatusBadRequest, "choose an image to upload")
		return
	}
	defer file.Close()

	var out struct {
		URL string `json:"url"`
	}
	err = g.client(r, sess.Token).Upload(r.Context(), "/upload/", uploadField, header.Filename, file, &out)
	var apiErr *apiclient.APIError
	switch {
	case apiclient.Unauthorized(err):
		// Expired or revoked token.
		g.clearSession(w)
		http.Redirect(w, r, "/login?next="+url.QueryEscape("/"), http.StatusSeeOther)
		return
	case errors.As(err, &apiErr):
		status, msg := apiErr.Status, apiErr.Message
		if m := apiErr.Fields[uploadField]; m != "" {
			msg = m
		}
		switch {
		case status == http.StatusForbidden:
			msg = "login as admin to manage assets"
		case status >= http.StatusInternalServerError:
			status = http.StatusBadGateway
		}
		fail(status, msg)
		return
	case err != nil:
		g.log.Error().Err(err).Msg("upload: api unreachable")
		fail(http.StatusBadGateway, "asset service unavailable")
		return
	}

	g.log.Info().Str("username", sess.Username).Str("url", out.URL).Msg("asset uploaded")
	http.Redirect(w, r, "/?uploaded="+url.QueryEscape(header.Filename), http.StatusSeeOther)
}

// render executes page inside the layout. Output is buffered so a template
// error never leaves a half written page.
func (g *gallery) render(w http.ResponseWriter, status int, page string, data any) {
	var buf bytes.Buffer
	if err := g.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		g.log.Error().Err(err).Str("page", page).Msg("render template")
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
