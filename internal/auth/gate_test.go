package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/crucial707/asset-vault/internal/models"
	"github.com/crucial707/asset-vault/internal/repo"
)

type stubUsers map[string]*models.User

func (s stubUsers) FindByUsername(_ context.Context, username string) (*models.User, error) {
	if username == "broken" {
		return nil, errors.New("connection reset")
	}
	u, ok := s[username]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return u, nil
}

func newTestGate() (*Gate, *TokenService) {
	tokens := NewTokenService([]byte(testSecret))
	users := stubUsers{
		"alice": {ID: 1, Username: "alice", Role: models.RoleAdmin},
		"bob":   {ID: 2, Username: "bob", Role: models.RoleUser},
	}
	return NewGate(tokens, users), tokens
}

func TestGate_CurrentUser(t *testing.T) {
	g, tokens := newTestGate()
	tok, _, _ := tokens.Issue("bob", time.Hour)

	user, outcome, err := g.CurrentUser(context.Background(), tok)
	if err != nil || outcome != OK {
		t.Fatalf("CurrentUser: outcome=%v err=%v", outcome, err)
	}
	if user.Username != "bob" {
		t.Errorf("unexpected user: %+v", user)
	}
}

func TestGate_CurrentUser_Unauthorized(t *testing.T) {
	g, tokens := newTestGate()
	ghost, _, _ := tokens.Issue("ghost", time.Hour)
	foreign, _, _ := NewTokenService([]byte("other")).Issue("alice", time.Hour)

	for name, tok := range map[string]string{
		"empty":        "",
		"garbage":      "abc",
		"unknown user": ghost,
		"wrong secret": foreign,
	} {
		user, outcome, err := g.CurrentUser(context.Background(), tok)
		if outcome != Unauthorized || user != nil || err != nil {
			t.Errorf("%s: got user=%v outcome=%v err=%v", name, user, outcome, err)
		}
	}
}

func TestGate_CurrentUser_StoreFailure(t *testing.T) {
	g, tokens := newTestGate()
	tok, _, _ := tokens.Issue("broken", time.Hour)

	_, outcome, err := g.CurrentUser(context.Background(), tok)
	if outcome != Failed || err == nil {
		t.Errorf("expected Failed with error, got outcome=%v err=%v", outcome, err)
	}
}

func TestGate_CurrentAdmin(t *testing.T) {
	g, _ := newTestGate()

	admin := &models.User{Username: "alice", Role: models.RoleAdmin}
	if u, outcome := g.CurrentAdmin(admin); outcome != OK || u != admin {
		t.Errorf("admin: got %v %v", u, outcome)
	}

	user := &models.User{Username: "bob", Role: models.RoleUser}
	if u, outcome := g.CurrentAdmin(user); outcome != Forbidden || u != nil {
		t.Errorf("user: got %v %v", u, outcome)
	}

	if _, outcome := g.CurrentAdmin(nil); outcome != Unauthorized {
		t.Errorf("nil: got %v", outcome)
	}
}

func TestOutcome_String(t *testing.T) {
	if OK.String() != "ok" || Forbidden.String() != "forbidden" || Failed.String() != "failed" {
		t.Error("unexpected outcome strings")
	}
}
