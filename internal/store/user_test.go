package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/greyfundr/back-end/types"
)

func newUserRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewUserRepository(db), mock, db
}

func userRows(user types.User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "email", "first_name", "last_name", "role", "is_email_verified", "is_active",
		"profile_picture", "phone_number", "last_login", "password_hash", "refresh_token_hash",
		"created_at", "updated_at",
	}).AddRow(
		user.ID, user.Email, user.FirstName, user.LastName, user.Role,
		user.IsEmailVerified, user.IsActive, user.ProfilePicture, user.PhoneNumber,
		nil, user.PasswordHash, user.RefreshTokenHash, user.CreatedAt, user.UpdatedAt,
	)
}

func TestUserGetByEmail_Found(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	want := types.User{
		ID:           "u1",
		Email:        "alice@example.com",
		FirstName:    "Alice",
		LastName:     "Walker",
		Role:         types.RoleUser,
		IsActive:     true,
		PasswordHash: "hash",
	}

	q := `(?s)^\s*SELECT\s+.*FROM users\s+WHERE email = lower\(\$1\)\s*$`
	mock.ExpectQuery(q).
		WithArgs("alice@example.com").
		WillReturnRows(userRows(want))

	got, err := repo.GetByEmail(context.Background(), " alice@example.com ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != want.ID || got.Email != want.Email {
		t.Fatalf("user mismatch: got %+v want %+v", got, want)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*SELECT\s+.*FROM users\s+WHERE email = lower\(\$1\)\s*$`
	mock.ExpectQuery(q).
		WithArgs("nobody@example.com").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserCreate_DuplicateEmail(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT INTO users\b`
	mock.ExpectExec(q).
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := repo.Create(context.Background(), types.User{ID: "u1", Email: "Dup@Example.com"})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestUserCreate_LowercasesEmail(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*INSERT INTO users\b`
	mock.ExpectExec(q).
		WithArgs("u1", "alice@example.com", "Alice", "Walker", types.RoleUser,
			false, true, "", "", "hash", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	created, err := repo.Create(context.Background(), types.User{
		ID:           "u1",
		Email:        " ALICE@Example.com ",
		FirstName:    "Alice",
		LastName:     "Walker",
		Role:         types.RoleUser,
		IsActive:     true,
		PasswordHash: "hash",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.Email != "alice@example.com" {
		t.Fatalf("email not lowercased: %q", created.Email)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotateRefreshTokenHash_Wins(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE users\s+SET refresh_token_hash = \$1, updated_at = \$2\s+WHERE id = \$3 AND refresh_token_hash = \$4\s*$`
	mock.ExpectExec(q).
		WithArgs("new-hash", sqlmock.AnyArg(), "u1", "old-hash").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.RotateRefreshTokenHash(context.Background(), "u1", "old-hash", "new-hash"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRotateRefreshTokenHash_LosesRace(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	// Zero rows affected means another refresh or a logout already
	// replaced the stored hash.
	q := `(?s)^\s*UPDATE users\s+SET refresh_token_hash = \$1, updated_at = \$2\s+WHERE id = \$3 AND refresh_token_hash = \$4\s*$`
	mock.ExpectExec(q).
		WithArgs("new-hash", sqlmock.AnyArg(), "u1", "stale-hash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.RotateRefreshTokenHash(context.Background(), "u1", "stale-hash", "new-hash")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetRefreshTokenHash_ClearsToNull(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE users\s+SET refresh_token_hash = \$1, updated_at = \$2\s+WHERE id = \$3\s*$`
	mock.ExpectExec(q).
		WithArgs(nil, sqlmock.AnyArg(), "u1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.SetRefreshTokenHash(context.Background(), "u1", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestTouchLastLogin_Missing(t *testing.T) {
	repo, mock, db := newUserRepoWithMock(t)
	defer db.Close()

	q := `(?s)^\s*UPDATE users\s+SET last_login = \$1, updated_at = \$1\s+WHERE id = \$2\s*$`
	mock.ExpectExec(q).
		WithArgs(sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.TouchLastLogin(context.Background(), "missing", time.Now())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
