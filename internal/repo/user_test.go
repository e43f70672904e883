package repo

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
)

func TestUserRepo_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`INSERT INTO users \(username, email, password_hash, role\)`).
		WithArgs("alice", "alice@example.com", "hash", "admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(1, now))

	repo := NewUserRepo(db)
	user, err := repo.Create(context.Background(), "alice", "alice@example.com", "hash", "admin")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID != 1 || user.Username != "alice" || user.Role != "admin" || !user.CreatedAt.Equal(now) {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Create_DefaultRole(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO users \(username, email, password_hash, role\)`).
		WithArgs("bob", "bob@example.com", "hash", "user").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(2, time.Now()))

	repo := NewUserRepo(db)
	user, err := repo.Create(context.Background(), "bob", "bob@example.com", "hash", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.Role != "user" {
		t.Errorf("Role: got %q, want user", user.Role)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_Create_ConstraintViolations(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate username", &pq.Error{Code: "23505", Constraint: "users_username_key"}, ErrUserExists},
		{"duplicate email", &pq.Error{Code: "23505", Constraint: "users_email_key"}, ErrEmailExists},
		{"bad role", &pq.Error{Code: "23514", Constraint: "users_role_check"}, ErrInvalidRole},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			if err != nil {
				t.Fatalf("sqlmock.New: %v", err)
			}
			defer db.Close()

			mock.ExpectQuery(`INSERT INTO users`).WillReturnError(tc.err)

			_, err = NewUserRepo(db).Create(context.Background(), "alice", "a@example.com", "hash", "user")
			if !errors.Is(err, tc.want) {
				t.Errorf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestUserRepo_Create_StoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	boom := errors.New("connection refused")
	mock.ExpectQuery(`INSERT INTO users`).WillReturnError(boom)

	_, err = NewUserRepo(db).Create(context.Background(), "alice", "a@example.com", "hash", "user")
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped store error, got %v", err)
	}
	if errors.Is(err, ErrUserExists) {
		t.Error("store failure must not look like a conflict")
	}
}

func TestUserRepo_FindByUsername(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, email, password_hash, role, created_at`).
		WithArgs("charlie").
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "password_hash", "role", "created_at"}).
			AddRow(3, "charlie", "c@example.com", "hash", "user", time.Now()))

	repo := NewUserRepo(db)
	user, err := repo.FindByUsername(context.Background(), "charlie")
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if user.ID != 3 || user.Username != "charlie" || user.PasswordHash != "hash" {
		t.Errorf("unexpected user: %+v", user)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestUserRepo_FindByUsername_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT id, username, email, password_hash, role, created_at`).
		WithArgs("nobody").
		WillReturnError(sql.ErrNoRows)

	_, err = NewUserRepo(db).FindByUsername(context.Background(), "nobody")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}
