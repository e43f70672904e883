package users

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRegister(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/users/" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["email"] != "bob@example.com" {
			t.Errorf("email: got %q", in["email"])
		}
		if _, ok := in["role"]; ok {
			t.Errorf("role should be omitted when not given")
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"username": in["username"], "role": "user"})
	}))
	defer srv.Close()
	t.Setenv("DAM_API_URL", srv.URL)

	var out bytes.Buffer
	cmd := registerCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--username", "bob", "--email", "bob@example.com", "--password", "pw"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !strings.Contains(out.String(), "User bob registered with role user") {
		t.Errorf("output: %q", out.String())
	}
}

func TestRegister_Conflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"username already registered"}`))
	}))
	defer srv.Close()
	t.Setenv("DAM_API_URL", srv.URL)

	cmd := registerCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--username", "bob", "--email", "bob@example.com", "--password", "pw", "--role", "admin"})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "status 409") {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegister_MissingFlags(t *testing.T) {
	cmd := registerCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--username", "bob"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for missing flags")
	}
}
