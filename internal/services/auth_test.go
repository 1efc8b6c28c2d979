package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/greyfundr/back-end/internal/auth"
	"github.com/greyfundr/back-end/internal/store"
	"github.com/greyfundr/back-end/types"
)

// fakeUserRepo is an in-memory UserRepository with the same conflict
// and conditional-update semantics as the Postgres store.
type fakeUserRepo struct {
	mu   sync.Mutex
	byID map[string]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: map[string]types.User{}}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.byID {
		if user.Email == strings.ToLower(strings.TrimSpace(email)) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == user.Email {
			return types.User{}, store.ErrConflict
		}
	}
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUserRepo) SetRefreshTokenHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	user.RefreshTokenHash = hash
	f.byID[id] = user
	return nil
}

func (f *fakeUserRepo) RotateRefreshTokenHash(_ context.Context, id, oldHash, newHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok || user.RefreshTokenHash != oldHash {
		return store.ErrNotFound
	}
	user.RefreshTokenHash = newHash
	f.byID[id] = user
	return nil
}

func (f *fakeUserRepo) UpdatePasswordHash(_ context.Context, id, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PasswordHash = hash
	f.byID[id] = user
	return nil
}

func (f *fakeUserRepo) TouchLastLogin(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	user.LastLogin = &at
	f.byID[id] = user
	return nil
}

func newTestAuthService() (*AuthService, *fakeUserRepo) {
	repo := newFakeUserRepo()
	hasher := auth.NewHasher(bcrypt.MinCost)
	issuer := auth.NewIssuer(auth.TokenConfig{
		AccessSecret:  []byte("access-secret"),
		RefreshSecret: []byte("refresh-secret"),
	})
	return NewAuthService(repo, hasher, issuer), repo
}

func registerTestUser(t *testing.T, svc *AuthService) *AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "alice@example.com",
		Password:  "Aa1!aaaa",
		FirstName: "Alice",
		LastName:  "Walker",
	})
	require.NoError(t, err)
	return resp
}

func TestRegister_IssuesSession(t *testing.T) {
	svc, repo := newTestAuthService()

	resp := registerTestUser(t, svc)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "alice@example.com", resp.User.Email)
	require.Equal(t, types.RoleUser, resp.User.Role)
	require.Empty(t, resp.User.PasswordHash, "response must not carry secrets")
	require.Empty(t, resp.User.RefreshTokenHash)

	stored, err := repo.GetByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	require.NotEmpty(t, stored.RefreshTokenHash)
	require.NotEqual(t, resp.RefreshToken, stored.RefreshTokenHash, "refresh token must be stored hashed")
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _ := newTestAuthService()

	registerTestUser(t, svc)
	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "ALICE@example.com",
		Password:  "Aa1!aaaa",
		FirstName: "Other",
		LastName:  "Alice",
	})
	require.ErrorIs(t, err, ErrConflict)
}

func TestLogin_ReplacesSession(t *testing.T) {
	svc, _ := newTestAuthService()

	registered := registerTestUser(t, svc)
	loggedIn, err := svc.Login(context.Background(), "alice@example.com", "Aa1!aaaa")
	require.NoError(t, err)
	require.NotEmpty(t, loggedIn.RefreshToken)
	require.NotEqual(t, registered.RefreshToken, loggedIn.RefreshToken)
	require.NotNil(t, loggedIn.User.LastLogin)

	// The registration-time refresh token is dead once login issued a
	// new session.
	_, err = svc.Refresh(context.Background(), registered.User.ID, registered.RefreshToken)
	require.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Refresh(context.Background(), loggedIn.User.ID, loggedIn.RefreshToken)
	require.NoError(t, err)
}

func TestLogin_Failures(t *testing.T) {
	svc, repo := newTestAuthService()
	resp := registerTestUser(t, svc)

	_, err := svc.Login(context.Background(), "nobody@example.com", "Aa1!aaaa")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "alice@example.com", "Wrong1!aa")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := repo.GetByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	user.IsActive = false
	_, err = repo.Update(context.Background(), user)
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "alice@example.com", "Aa1!aaaa")
	require.ErrorIs(t, err, ErrAccountDeactivated)
	require.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh_RotatesAndBurnsOldToken(t *testing.T) {
	svc, _ := newTestAuthService()
	resp := registerTestUser(t, svc)

	pair, err := svc.Refresh(context.Background(), resp.User.ID, resp.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, resp.RefreshToken, pair.RefreshToken)

	// Replaying the consumed token must fail; the rotated one works.
	_, err = svc.Refresh(context.Background(), resp.User.ID, resp.RefreshToken)
	require.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Refresh(context.Background(), resp.User.ID, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefresh_Failures(t *testing.T) {
	svc, _ := newTestAuthService()
	resp := registerTestUser(t, svc)

	_, err := svc.Refresh(context.Background(), "missing-user", resp.RefreshToken)
	require.ErrorIs(t, err, ErrAccessDenied)

	_, err = svc.Refresh(context.Background(), resp.User.ID, "not-the-stored-token")
	require.ErrorIs(t, err, ErrAccessDenied)
}

func TestLogout_InvalidatesSessionAndIsIdempotent(t *testing.T) {
	svc, _ := newTestAuthService()
	resp := registerTestUser(t, svc)

	require.NoError(t, svc.Logout(context.Background(), resp.User.ID))

	_, err := svc.Refresh(context.Background(), resp.User.ID, resp.RefreshToken)
	require.ErrorIs(t, err, ErrAccessDenied)

	require.NoError(t, svc.Logout(context.Background(), resp.User.ID))
	require.NoError(t, svc.Logout(context.Background(), "never-existed"))
}

func TestChangePassword(t *testing.T) {
	svc, repo := newTestAuthService()
	resp := registerTestUser(t, svc)
	ctx := context.Background()

	before, err := repo.GetByID(ctx, resp.User.ID)
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, resp.User.ID, "Wrong1!aa", "Bb2?bbbb")
	require.ErrorIs(t, err, ErrIncorrectPassword)

	after, err := repo.GetByID(ctx, resp.User.ID)
	require.NoError(t, err)
	require.Equal(t, before.PasswordHash, after.PasswordHash, "failed change must not touch the hash")

	require.NoError(t, svc.ChangePassword(ctx, resp.User.ID, "Aa1!aaaa", "Bb2?bbbb"))

	_, err = svc.Login(ctx, "alice@example.com", "Aa1!aaaa")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "alice@example.com", "Bb2?bbbb")
	require.NoError(t, err)
}

func TestChangePassword_KeepsRefreshSession(t *testing.T) {
	svc, _ := newTestAuthService()
	resp := registerTestUser(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.ChangePassword(ctx, resp.User.ID, "Aa1!aaaa", "Bb2?bbbb"))

	// Changing the password does not revoke the refresh session.
	_, err := svc.Refresh(ctx, resp.User.ID, resp.RefreshToken)
	require.NoError(t, err)
}

func TestChangePassword_UnknownUser(t *testing.T) {
	svc, _ := newTestAuthService()

	err := svc.ChangePassword(context.Background(), "missing", "Aa1!aaaa", "Bb2?bbbb")
	require.ErrorIs(t, err, ErrNotFound)
}
