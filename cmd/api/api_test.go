package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/crucial707/asset-vault/internal/auth"
	"github.com/crucial707/asset-vault/internal/config"
	"github.com/crucial707/asset-vault/internal/storage"
)

var userColumns = []string{"id", "username", "email", "password_hash", "role", "created_at"}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:          "test-secret-for-integration",
		AccessTokenTTL:     30 * time.Minute,
		BcryptCost:         bcrypt.MinCost,
		MaxUploadBytes:     1 << 20,
		CORSAllowedOrigins: []string{"*"},
	}
}

func newTestServer(t *testing.T) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()
	return newTestServerWith(t, testConfig())
}

func newTestServerWith(t *testing.T, cfg config.Config) (*httptest.Server, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	files, err := storage.NewLocal(t.TempDir(), "http://localhost:8000")
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	srv := httptest.NewServer(newRouter(db, cfg, files, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv, mock
}

func digest(t *testing.T, password string) string {
	t.Helper()
	d, err := auth.NewPasswordHasher(bcrypt.MinCost).Hash(password)
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	return d
}

func login(t *testing.T, srv *httptest.Server, username, password string) (*http.Response, map[string]string) {
	t.Helper()
	resp, err := http.PostForm(srv.URL+"/token", url.Values{"username": {username}, "password": {password}})
	if err != nil {
		t.Fatalf("token request: %v", err)
	}
	defer resp.Body.Close()
	out := map[string]string{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func upload(t *testing.T, srv *httptest.Server, token, filename string, content []byte) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("file", filename)
	part.Write(content)
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/upload/", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("upload request: %v", err)
	}
	return resp
}

// TestAPI_RegisterLoginUploadList walks the full flow: an admin registers, logs in,
// uploads cat.png and finds it in the asset list and under /uploads/.
func TestAPI_RegisterLoginUploadList(t *testing.T) {
	srv, mock := newTestServer(t)
	now := time.Now()

	// POST /users/
	mock.ExpectQuery(`SELECT id, username`).WithArgs("alice").WillReturnRows(sqlmock.NewRows(userColumns))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("alice", "alice@example.com", sqlmock.AnyArg(), "admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(1, 1))
	// POST /token
	aliceRow := func() *sqlmock.Rows {
		return sqlmock.NewRows(userColumns).AddRow(1, "alice", "alice@example.com", digest(t, "pw"), "admin", now)
	}
	mock.ExpectQuery(`SELECT id, username`).WithArgs("alice").WillReturnRows(aliceRow())
	// POST /upload/: gate lookup, registry insert, audit
	mock.ExpectQuery(`SELECT id, username`).WithArgs("alice").WillReturnRows(aliceRow())
	mock.ExpectQuery(`INSERT INTO assets`).
		WithArgs("cat.png", sqlmock.AnyArg(), "http://localhost:8000/uploads/cat.png", "image").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(2, 1))
	// GET /assets/
	mock.ExpectQuery(`FROM assets`).
		WithArgs(100, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "file_path", "file_url", "type", "created_at"}).
			AddRow(1, "cat.png", "uploads/cat.png", "http://localhost:8000/uploads/cat.png", "image", now))

	// 1) Register
	body, _ := json.Marshal(map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "pw", "role": "admin",
	})
	resp, err := http.Post(srv.URL+"/users/", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("register status: got %d, want 200", resp.StatusCode)
	}

	// 2) Login
	resp, tok := login(t, srv, "alice", "pw")
	if resp.StatusCode != http.StatusOK || tok["access_token"] == "" || tok["role"] != "admin" {
		t.Fatalf("login: status %d body %v", resp.StatusCode, tok)
	}

	// 3) Upload
	resp = upload(t, srv, tok["access_token"], "cat.png", []byte("meow"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("upload status: got %d, want 200", resp.StatusCode)
	}
	var up struct {
		Info string `json:"info"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&up); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	if !strings.HasSuffix(up.URL, "/uploads/cat.png") {
		t.Errorf("upload url: got %q", up.URL)
	}

	// 4) List
	resp, err = http.Get(srv.URL + "/assets/")
	if err != nil {
		t.Fatalf("assets request: %v", err)
	}
	defer resp.Body.Close()
	var assets []struct {
		Title   string `json:"title"`
		FileURL string `json:"file_url"`
		Type    string `json:"type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&assets); err != nil {
		t.Fatalf("decode assets: %v", err)
	}
	if len(assets) != 1 || assets[0].Title != "cat.png" || assets[0].Type != "image" {
		t.Errorf("unexpected assets: %+v", assets)
	}

	// 5) The stored bytes are served back.
	resp, err = http.Get(srv.URL + "/uploads/cat.png")
	if err != nil {
		t.Fatalf("download request: %v", err)
	}
	defer resp.Body.Close()
	got, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(got) != "meow" {
		t.Errorf("download: status %d body %q", resp.StatusCode, got)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAPI_DuplicateRegistration(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectQuery(`SELECT id, username`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(1, "alice", "a@x.io", "hash", "user", time.Now()))

	body, _ := json.Marshal(map[string]string{"username": "alice", "email": "b@x.io", "password": "pw"})
	resp, err := http.Post(srv.URL+"/users", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("status: got %d, want 409", resp.StatusCode)
	}
}

func TestAPI_UploadRequiresAdmin(t *testing.T) {
	srv, mock := newTestServer(t)

	// No token: rejected before any lookup.
	resp := upload(t, srv, "", "cat.png", []byte("x"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous upload: got %d, want 401", resp.StatusCode)
	}
	if resp.Header.Get("WWW-Authenticate") != "Bearer" {
		t.Errorf("missing WWW-Authenticate header")
	}

	// Regular user: authenticated but forbidden, no asset row written.
	tokens := auth.NewTokenService([]byte(testConfig().JWTSecret))
	token, _, err := tokens.Issue("bob", time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	mock.ExpectQuery(`SELECT id, username`).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(userColumns).AddRow(2, "bob", "bob@x.io", "hash", "user", time.Now()))

	resp = upload(t, srv, token, "cat.png", []byte("x"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user upload: got %d, want 403", resp.StatusCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestAPI_ExpiredToken(t *testing.T) {
	srv, _ := newTestServer(t)
	tokens := auth.NewTokenService([]byte(testConfig().JWTSecret))
	token, _, err := tokens.Issue("alice", time.Nanosecond)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	time.Sleep(1100 * time.Millisecond)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/audit/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("audit request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expired token: got %d, want 401", resp.StatusCode)
	}
}

func TestAPI_HealthAndReady(t *testing.T) {
	srv, mock := newTestServer(t)
	mock.ExpectPing()

	for _, path := range []string{"/", "/ready"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: got %d, want 200", path, resp.StatusCode)
		}
		if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
			t.Errorf("GET %s: missing security headers", path)
		}
	}
}

func TestAPI_Metrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "http_requests_total") {
		t.Errorf("metrics: status %d", resp.StatusCode)
	}
}

func TestAPI_AuthRateLimitIgnoresSpoofedForwarding(t *testing.T) {
	cfg := testConfig()
	cfg.AuthRatePerMinute = 1
	cfg.AuthRateBurst = 2
	srv, _ := newTestServerWith(t, cfg)

	want := []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusTooManyRequests, http.StatusTooManyRequests}
	for i, code := range want {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/token", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("203.0.113.%d", i+1))
		req.Header.Set("X-Real-IP", fmt.Sprintf("198.51.100.%d", i+1))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		resp.Body.Close()
		if resp.StatusCode != code {
			t.Fatalf("request %d: got %d, want %d", i, resp.StatusCode, code)
		}
	}
}

func TestAPI_UploadsAreSandboxed(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := http.Get(srv.URL + "/uploads/missing.svg")
	if err != nil {
		t.Fatalf("GET uploads: %v", err)
	}
	resp.Body.Close()
	if csp := resp.Header.Get("Content-Security-Policy"); !strings.Contains(csp, "sandbox") {
		t.Errorf("uploads CSP: got %q", csp)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("uploads missing nosniff")
	}
}
