package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/greyfundr/back-end/internal/auth"
	"github.com/greyfundr/back-end/internal/store"
	"github.com/greyfundr/back-end/types"
)

// UserRepository defines the persistence operations the auth core
// needs from the credential store.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	SetRefreshTokenHash(ctx context.Context, id, hash string) error
	RotateRefreshTokenHash(ctx context.Context, id, oldHash, newHash string) error
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	TouchLastLogin(ctx context.Context, id string, at time.Time) error
}

// AuthService orchestrates registration, login, logout, token refresh,
// and password change. It holds no mutable state of its own; every
// operation is an independent request-scoped unit against the store.
type AuthService struct {
	users  UserRepository
	hasher *auth.Hasher
	issuer *auth.Issuer
}

func NewAuthService(users UserRepository, hasher *auth.Hasher, issuer *auth.Issuer) *AuthService {
	return &AuthService{users: users, hasher: hasher, issuer: issuer}
}

// RegisterRequest carries the fields accepted at registration.
type RegisterRequest struct {
	Email          string `json:"email"`
	Password       string `json:"password"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	PhoneNumber    string `json:"phone_number"`
	ProfilePicture string `json:"profile_picture"`
}

// AuthResponse is returned by Register and Login: the sanitized user
// plus a fresh token pair.
type AuthResponse struct {
	User         types.User `json:"user"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
}

// Register creates a user with a freshly hashed password, issues a
// token pair, and persists the refresh token's hash. A duplicate email
// surfaces as ErrConflict.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := types.User{
		ID:             uuid.NewString(),
		Email:          strings.ToLower(strings.TrimSpace(req.Email)),
		FirstName:      strings.TrimSpace(req.FirstName),
		LastName:       strings.TrimSpace(req.LastName),
		PhoneNumber:    strings.TrimSpace(req.PhoneNumber),
		ProfilePicture: strings.TrimSpace(req.ProfilePicture),
		Role:           types.RoleUser,
		IsActive:       true,
		PasswordHash:   passwordHash,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, fmt.Errorf("email is already registered: %w", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	pair, err := s.issueSession(ctx, created)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         created.Sanitized(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Login verifies credentials and starts a new session. Unknown email
// and wrong password both return ErrInvalidCredentials; a deactivated
// account returns ErrAccountDeactivated.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.issueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	user.LastLogin = &now

	return &AuthResponse{
		User:         user.Sanitized(),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout clears the stored refresh-token hash, invalidating any
// outstanding refresh token. It is idempotent: logging out twice, or
// for an unknown user, is not an error.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.users.SetRefreshTokenHash(ctx, userID, ""); err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// Refresh rotates the session on use: the presented refresh token is
// verified against the stored hash and then burned by a conditional
// update, so a stale token has at most one winner even under
// concurrent refreshes.
func (s *AuthService) Refresh(ctx context.Context, userID, refreshToken string) (*auth.TokenPair, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if user.RefreshTokenHash == "" {
		return nil, ErrAccessDenied
	}
	if !s.hasher.VerifyToken(refreshToken, user.RefreshTokenHash) {
		return nil, ErrAccessDenied
	}

	pair, err := s.issuer.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}
	newHash, err := s.hasher.HashToken(pair.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("hash refresh token: %w", err)
	}

	if err := s.users.RotateRefreshTokenHash(ctx, user.ID, user.RefreshTokenHash, newHash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// A concurrent refresh or logout won the race.
			return nil, ErrAccessDenied
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	return &pair, nil
}

// ChangePassword replaces the stored password hash after verifying the
// current password. The active refresh session is left intact; callers
// wanting a forced re-login should follow up with Logout.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	byID, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	// Re-derive the record through the email index as well, so a stale
	// id lookup cannot change a different account's password.
	user, err := s.users.GetByEmail(ctx, byID.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("find user: %w", err)
	}

	if !s.hasher.Verify(currentPassword, user.PasswordHash) {
		return ErrIncorrectPassword
	}

	newHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// GetProfile returns the sanitized user for the given id.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (types.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, ErrNotFound
		}
		return types.User{}, fmt.Errorf("find user: %w", err)
	}
	return user.Sanitized(), nil
}

// issueSession creates a fresh token pair and persists the refresh
// token's hash, replacing whatever session existed before.
func (s *AuthService) issueSession(ctx context.Context, user types.User) (auth.TokenPair, error) {
	pair, err := s.issuer.IssuePair(user.ID, user.Email, user.Role)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	hash, err := s.hasher.HashToken(pair.RefreshToken)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("hash refresh token: %w", err)
	}
	if err := s.users.SetRefreshTokenHash(ctx, user.ID, hash); err != nil {
		return auth.TokenPair{}, fmt.Errorf("persist refresh token: %w", err)
	}
	return pair, nil
}
