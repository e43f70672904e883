package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/crucial707/asset-vault/internal/models"
	"github.com/crucial707/asset-vault/internal/repo"
)

// Outcome is the tagged result of an authorization check.
type Outcome int

const (
	OK Outcome = iota
	Unauthorized
	Forbidden
	// Failed means the check could not run, e.g. the user store is down.
	Failed
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case Unauthorized:
		return "unauthorized"
	case Forbidden:
		return "forbidden"
	default:
		return "failed"
	}
}

// UserFinder is the part of the credential store the gate needs.
type UserFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Gate derives the current user and current admin from a bearer token.
// It keeps no state between calls.
type Gate struct {
	Tokens *TokenService
	Users  UserFinder
}

func NewGate(tokens *TokenService, users UserFinder) *Gate {
	return &Gate{Tokens: tokens, Users: users}
}

// CurrentUser verifies token and loads the user named by its subject.
// The error is non-nil only when the outcome is Failed.
func (g *Gate) CurrentUser(ctx context.Context, token string) (*models.User, Outcome, error) {
	if token == "" {
		return nil, Unauthorized, nil
	}
	claims, err := g.Tokens.Verify(token)
	if err != nil {
		return nil, Unauthorized, nil
	}

	user, err := g.Users.FindByUsername(ctx, claims.Subject)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, Unauthorized, nil
	}
	if err != nil {
		return nil, Failed, fmt.Errorf("load current user: %w", err)
	}
	return user, OK, nil
}

// CurrentAdmin passes user through when it holds the admin role.
func (g *Gate) CurrentAdmin(user *models.User) (*models.User, Outcome) {
	if user == nil {
		return nil, Unauthorized
	}
	if !user.IsAdmin() {
		return nil, Forbidden
	}
	return user, OK
}
