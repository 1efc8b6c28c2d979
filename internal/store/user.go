package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/greyfundr/back-end/types"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const userColumns = `id, email, first_name, last_name, role, is_email_verified, is_active,
		profile_picture, phone_number, last_login, password_hash, refresh_token_hash,
		created_at, updated_at`

// UserRepository handles persistence for users.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (types.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM users
		WHERE email = lower($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, strings.TrimSpace(email)))
}

func (r *UserRepository) Create(ctx context.Context, user types.User) (types.User, error) {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	const query = `
		INSERT INTO users (id, email, first_name, last_name, role, is_email_verified, is_active,
			profile_picture, phone_number, password_hash, refresh_token_hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.FirstName,
		user.LastName,
		user.Role,
		user.IsEmailVerified,
		user.IsActive,
		user.ProfilePicture,
		user.PhoneNumber,
		user.PasswordHash,
		nullable(user.RefreshTokenHash),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return types.User{}, ErrConflict
		}
		return types.User{}, err
	}
	return user, nil
}

// Update persists profile fields. Credential columns are managed by the
// dedicated methods below.
func (r *UserRepository) Update(ctx context.Context, user types.User) (types.User, error) {
	user.UpdatedAt = time.Now()

	const query = `
		UPDATE users
		SET first_name = $1,
			last_name = $2,
			role = $3,
			is_email_verified = $4,
			is_active = $5,
			profile_picture = $6,
			phone_number = $7,
			updated_at = $8
		WHERE id = $9`
	result, err := r.db.ExecContext(
		ctx,
		query,
		user.FirstName,
		user.LastName,
		user.Role,
		user.IsEmailVerified,
		user.IsActive,
		user.ProfilePicture,
		user.PhoneNumber,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return types.User{}, err
	}
	if err := requireAffected(result); err != nil {
		return types.User{}, err
	}
	return user, nil
}

// SetRefreshTokenHash unconditionally replaces the stored refresh-token
// hash. Pass empty to clear it (logout).
func (r *UserRepository) SetRefreshTokenHash(ctx context.Context, id, hash string) error {
	const query = `
		UPDATE users
		SET refresh_token_hash = $1, updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, nullable(hash), time.Now(), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// RotateRefreshTokenHash replaces the stored hash only if it still
// equals oldHash. Two concurrent refreshes racing on one stale token
// therefore produce at most one winner; the loser sees ErrNotFound.
func (r *UserRepository) RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) error {
	const query = `
		UPDATE users
		SET refresh_token_hash = $1, updated_at = $2
		WHERE id = $3 AND refresh_token_hash = $4`
	result, err := r.db.ExecContext(ctx, query, newHash, time.Now(), id, oldHash)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	const query = `
		UPDATE users
		SET password_hash = $1, updated_at = $2
		WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, hash, time.Now(), id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE users
		SET last_login = $1, updated_at = $1
		WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, at, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// UserFilter narrows List results. Zero values mean "no filter".
type UserFilter struct {
	Role     string
	IsActive *bool
	Search   string
}

func (r *UserRepository) List(ctx context.Context, filter UserFilter) ([]types.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users`
	var conditions []string
	var args []any

	if filter.Role != "" {
		args = append(args, filter.Role)
		conditions = append(conditions, "role = $"+strconv.Itoa(len(args)))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		conditions = append(conditions, "is_active = $"+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		conditions = append(conditions, "(email ILIKE $"+n+" OR first_name ILIKE $"+n+" OR last_name ILIKE $"+n+")")
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []types.User
	for rows.Next() {
		user, err := r.scanOne(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM users WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *UserRepository) scanOne(row rowScanner) (types.User, error) {
	var user types.User
	var lastLogin sql.NullTime
	var refreshHash sql.NullString
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.FirstName,
		&user.LastName,
		&user.Role,
		&user.IsEmailVerified,
		&user.IsActive,
		&user.ProfilePicture,
		&user.PhoneNumber,
		&lastLogin,
		&user.PasswordHash,
		&refreshHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, err
	}
	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}
	if refreshHash.Valid {
		user.RefreshTokenHash = refreshHash.String
	}
	return user, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

